package domain

import "encoding/json"

// GeoJSON type constants for the on-disk submission schema.
const (
	featureType    = "Feature"
	pointType      = "Point"
	collectionType = "FeatureCollection"
)

// Feature is the GeoJSON representation of a candidate record as
// written to submission files and export sinks.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry is a GeoJSON Point geometry. Coordinates are [lon, lat].
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// FeatureCollection is the GeoJSON container for a set of features.
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// NewFeatureCollection wraps features in a FeatureCollection.
func NewFeatureCollection(features []*Feature) *FeatureCollection {
	if features == nil {
		features = []*Feature{}
	}
	return &FeatureCollection{
		Type:     collectionType,
		Features: features,
	}
}

// ToFeature converts a candidate record to its GeoJSON feature form.
func (r *CandidateRecord) ToFeature() *Feature {
	props := map[string]any{
		"title":  r.Title,
		"source": r.Source,
	}
	if r.Description != "" {
		props["description"] = r.Description
	}
	if len(r.Artists) > 0 {
		props["artists"] = r.Artists
	}
	if !r.Tags.Empty() {
		props["tags"] = r.Tags
	}
	if len(r.Photos) > 0 {
		props["photos"] = r.Photos
	}
	if r.SourceURL != "" {
		props["source_url"] = r.SourceURL
	}

	return &Feature{
		Type: featureType,
		ID:   r.ExternalID,
		Geometry: Geometry{
			Type:        pointType,
			Coordinates: [2]float64{r.Coordinates.Lon, r.Coordinates.Lat},
		},
		Properties: props,
	}
}

// ToRecord converts a feature read back from a submission file into a
// candidate record. It is the inverse of ToFeature for the properties
// that round-trip.
func (f *Feature) ToRecord() *CandidateRecord {
	record := &CandidateRecord{
		ExternalID: f.ID,
		Coordinates: Coordinates{
			Lat: f.Geometry.Coordinates[1],
			Lon: f.Geometry.Coordinates[0],
		},
		Title:       propString(f.Properties, "title"),
		Description: propString(f.Properties, "description"),
		Source:      propString(f.Properties, "source"),
		SourceURL:   propString(f.Properties, "source_url"),
		Artists:     propStrings(f.Properties, "artists"),
		Photos:      propStrings(f.Properties, "photos"),
	}

	if raw, ok := f.Properties["tags"]; ok {
		if data, err := json.Marshal(raw); err == nil {
			_ = record.Tags.UnmarshalJSON(data)
		}
	}
	return record
}

func propString(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

func propStrings(props map[string]any, key string) []string {
	switch val := props[key].(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

// MarshalIndent renders the collection as indented JSON for file sinks.
func (fc *FeatureCollection) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(fc, "", "  ")
}
