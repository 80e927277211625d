// Package importers provides the built-in importer plugins for the
// two bulk formats external registries deliver: JSON feeds and
// scraped HTML detail pages.
package importers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/plugin"
)

// jsonFeedRequiredFields are the fields every feed record must carry.
var jsonFeedRequiredFields = []string{"id", "title", "lat", "lon"}

// NewJSONFeedImporter builds the importer spec for flat JSON feed
// records shaped like
//
//	{"id": "123", "title": "...", "lat": 49.2, "lon": -123.1,
//	 "tags": [...], "artists": [...], "description": "...", "url": "..."}
//
// sourceName prefixes generated import IDs and stamps the record
// provenance.
func NewJSONFeedImporter(sourceName string) plugin.ImporterSpec {
	return plugin.ImporterSpec{
		Name:             sourceName,
		Description:      "imports flat JSON feed records from " + sourceName,
		SupportedFormats: []string{"json"},
		RequiredFields:   jsonFeedRequiredFields,
		Metadata: map[string]any{
			"version": "1.0.0",
			"source":  sourceName,
		},

		GenerateImportID: func(raw map[string]any) string {
			return sourceName + "-" + asString(raw["id"])
		},

		ValidateData: func(raw map[string]any) plugin.DataValidation {
			var errs []string
			for _, field := range jsonFeedRequiredFields {
				if _, ok := raw[field]; !ok {
					errs = append(errs, fmt.Sprintf("missing required field %q", field))
				}
			}
			if len(errs) == 0 {
				if _, err := asFloat(raw["lat"]); err != nil {
					errs = append(errs, "lat is not numeric")
				}
				if _, err := asFloat(raw["lon"]); err != nil {
					errs = append(errs, "lon is not numeric")
				}
			}
			return plugin.DataValidation{Valid: len(errs) == 0, Errors: errs}
		},

		MapData: func(raw map[string]any) (*domain.CandidateRecord, error) {
			lat, err := asFloat(raw["lat"])
			if err != nil {
				return nil, fmt.Errorf("parse lat: %w", err)
			}
			lon, err := asFloat(raw["lon"])
			if err != nil {
				return nil, fmt.Errorf("parse lon: %w", err)
			}

			record := &domain.CandidateRecord{
				ExternalID:    sourceName + "-" + asString(raw["id"]),
				Title:         strings.TrimSpace(asString(raw["title"])),
				Description:   strings.TrimSpace(asString(raw["description"])),
				Coordinates:   domain.Coordinates{Lat: lat, Lon: lon},
				Artists:       asStringSlice(raw["artists"]),
				Tags:          asTags(raw["tags"]),
				Photos:        asStringSlice(raw["photos"]),
				Source:        sourceName,
				SourceURL:     asString(raw["url"]),
				RawProperties: raw,
			}
			return record, nil
		},
	}
}

// asString renders a raw value as a string.
func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// asFloat parses a raw value as a float64. JSON feeds deliver numbers
// as float64 but some registries quote them.
func asFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", val, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}

// asStringSlice renders a raw value as a list of strings.
func asStringSlice(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := asString(item); s != "" {
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

// asTags parses both tag shapes feeds deliver: a list of strings or a
// key→value object.
func asTags(v any) domain.Tags {
	switch val := v.(type) {
	case nil:
		return domain.Tags{}
	case []string:
		return domain.Tags{List: val}
	case []any:
		return domain.Tags{List: asStringSlice(val)}
	case map[string]string:
		return domain.Tags{Values: val}
	case map[string]any:
		values := make(map[string]string, len(val))
		for k, item := range val {
			values[k] = asString(item)
		}
		return domain.Tags{Values: values}
	default:
		return domain.Tags{}
	}
}
