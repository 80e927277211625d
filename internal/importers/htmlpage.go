package importers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/plugin"
)

// NewHTMLPageImporter builds the importer spec for scraped HTML detail
// pages. Raw records carry the page URL, its HTML body, and the
// identifier extracted during the crawl:
//
//	{"id": "mural-42", "url": "https://...", "html": "<html>..."}
//
// Titles come from og:title with an h1 fallback, coordinates from the
// geo.position meta tag, tags and artists from the selectors the
// registries under ingestion commonly use. Pages that expose no
// coordinates are rejected rather than mapped to a zero location.
func NewHTMLPageImporter(sourceName string) plugin.ImporterSpec {
	return plugin.ImporterSpec{
		Name:             sourceName,
		Description:      "imports scraped HTML detail pages from " + sourceName,
		SupportedFormats: []string{"html"},
		RequiredFields:   []string{"id", "url", "html"},
		Metadata: map[string]any{
			"version": "1.0.0",
			"source":  sourceName,
		},

		GenerateImportID: func(raw map[string]any) string {
			return sourceName + "-" + asString(raw["id"])
		},

		ValidateData: func(raw map[string]any) plugin.DataValidation {
			var errs []string
			for _, field := range []string{"id", "url", "html"} {
				if asString(raw[field]) == "" {
					errs = append(errs, fmt.Sprintf("missing required field %q", field))
				}
			}
			return plugin.DataValidation{Valid: len(errs) == 0, Errors: errs}
		},

		MapData: func(raw map[string]any) (*domain.CandidateRecord, error) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(asString(raw["html"])))
			if err != nil {
				return nil, fmt.Errorf("parse html: %w", err)
			}

			record := &domain.CandidateRecord{
				ExternalID:    sourceName + "-" + asString(raw["id"]),
				Title:         pageTitle(doc),
				Description:   strings.TrimSpace(doc.Find("meta[property='og:description']").AttrOr("content", "")),
				Artists:       selectTexts(doc, ".artist, [itemprop='creator']"),
				Photos:        selectAttrs(doc, "meta[property='og:image']", "content"),
				Source:        sourceName,
				SourceURL:     asString(raw["url"]),
				RawProperties: raw,
			}

			lat, lon, ok := pageCoordinates(doc)
			if !ok {
				return nil, fmt.Errorf("no coordinates on page %s", record.SourceURL)
			}
			record.Coordinates = domain.Coordinates{Lat: lat, Lon: lon}
			if tags := selectTexts(doc, ".tags li, .tags a"); len(tags) > 0 {
				record.Tags = domain.Tags{List: tags}
			}
			return record, nil
		},
	}
}

func pageTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("meta[property='og:title']").AttrOr("content", "")); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// pageCoordinates reads the geo.position meta tag ("lat;lon") with a
// fallback to separate latitude/longitude meta tags.
func pageCoordinates(doc *goquery.Document) (float64, float64, bool) {
	if pos := doc.Find("meta[name='geo.position']").AttrOr("content", ""); pos != "" {
		parts := strings.SplitN(pos, ";", 2)
		if len(parts) == 2 {
			lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if errLat == nil && errLon == nil {
				return lat, lon, true
			}
		}
	}

	lat, errLat := strconv.ParseFloat(doc.Find("meta[itemprop='latitude']").AttrOr("content", ""), 64)
	lon, errLon := strconv.ParseFloat(doc.Find("meta[itemprop='longitude']").AttrOr("content", ""), 64)
	if errLat == nil && errLon == nil {
		return lat, lon, true
	}
	return 0, 0, false
}

func selectTexts(doc *goquery.Document, selector string) []string {
	var out []string
	seen := make(map[string]struct{})
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		out = append(out, text)
	})
	return out
}

func selectAttrs(doc *goquery.Document, selector, attr string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if val := strings.TrimSpace(sel.AttrOr(attr, "")); val != "" {
			out = append(out, val)
		}
	})
	return out
}
