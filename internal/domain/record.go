// Package domain provides domain models used across the application.
package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Coordinates is a WGS84 point. Latitude is in [-90,90], longitude in
// [-180,180].
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinates are in range.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Tags holds record tags. External sources deliver tags either as a
// free-form list of strings or as a structured key→value object;
// both forms are preserved as given and flattened on demand.
type Tags struct {
	// Values is the structured key→value form, nil when absent.
	Values map[string]string `json:"values,omitempty"`
	// List is the free-form list form, nil when absent.
	List []string `json:"list,omitempty"`
}

// Empty reports whether no tags are present in either form.
func (t Tags) Empty() bool {
	return len(t.Values) == 0 && len(t.List) == 0
}

// Flatten returns the tags as a normalized string set, combining both
// forms. Structured entries are flattened to "key=value" plus the bare
// value, so list-form and structured-form sources remain comparable.
func (t Tags) Flatten() []string {
	set := make(map[string]struct{})
	for _, v := range t.List {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	for k, v := range t.Values {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.ToLower(strings.TrimSpace(v))
		if k == "" {
			continue
		}
		set[k+"="+v] = struct{}{}
		if v != "" {
			set[v] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// UnmarshalJSON accepts both the list form ["a","b"] and the
// structured form {"material":"bronze"} as produced by external feeds.
func (t *Tags) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*t = Tags{}
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("parse tag list: %w", err)
		}
		*t = Tags{List: list}
		return nil
	}

	// Try the wrapped {values, list} form first, then a bare object.
	type wrapped struct {
		Values map[string]string `json:"values"`
		List   []string          `json:"list"`
	}
	var w wrapped
	if err := json.Unmarshal(data, &w); err == nil && (len(w.Values) > 0 || len(w.List) > 0) {
		*t = Tags{Values: w.Values, List: w.List}
		return nil
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse tag object: %w", err)
	}
	*t = Tags{Values: values}
	return nil
}

// CandidateRecord is a not-yet-committed artwork or artist extracted
// from an external source. Records are immutable once created; any
// transformation produces a copy.
type CandidateRecord struct {
	ExternalID    string         `json:"external_id"`
	Coordinates   Coordinates    `json:"coordinates"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Artists       []string       `json:"artists,omitempty"`
	Tags          Tags           `json:"tags,omitempty"`
	Photos        []string       `json:"photos,omitempty"`
	Source        string         `json:"source"`
	SourceURL     string         `json:"source_url,omitempty"`
	RawProperties map[string]any `json:"raw_properties,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *CandidateRecord) Clone() *CandidateRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Artists = append([]string(nil), r.Artists...)
	out.Photos = append([]string(nil), r.Photos...)
	out.Tags = Tags{
		List: append([]string(nil), r.Tags.List...),
	}
	if r.Tags.Values != nil {
		out.Tags.Values = make(map[string]string, len(r.Tags.Values))
		for k, v := range r.Tags.Values {
			out.Tags.Values[k] = v
		}
	}
	if r.RawProperties != nil {
		out.RawProperties = make(map[string]any, len(r.RawProperties))
		for k, v := range r.RawProperties {
			out.RawProperties[k] = v
		}
	}
	return &out
}
