package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/urlnorm"
)

// HTMLSiteConfig describes a paginated HTML registry: a listing page
// that links to one detail page per artwork.
type HTMLSiteConfig struct {
	// Name identifies the source in logs and output files.
	Name string `yaml:"name"`
	// BaseURL resolves relative detail links.
	BaseURL string `yaml:"base_url"`
	// ListURL is a printf pattern with one %d for the page number,
	// starting at 1.
	ListURL string `yaml:"list_url"`
	// LinkSelector matches the anchor elements on a listing page that
	// point at detail pages.
	LinkSelector string `yaml:"link_selector"`
}

// HTMLSite crawls a paginated listing and maps each detail page to a
// candidate record. The crawl stops when a listing page yields no new
// detail links, when the page budget runs out, or when the record
// limit is reached.
type HTMLSite struct {
	config HTMLSiteConfig
	// host restricts the crawl to the registry's own hostname when a
	// base URL is configured.
	host string
	// mapDetail converts one fetched detail page into a record.
	mapDetail func(id, pageURL, html string) (*domain.CandidateRecord, error)
}

// NewHTMLSite builds a site from its config and detail-page mapper.
func NewHTMLSite(config HTMLSiteConfig, mapDetail func(id, pageURL, html string) (*domain.CandidateRecord, error)) (*HTMLSite, error) {
	if config.Name == "" {
		return nil, errors.New("html site: name is required")
	}
	if !strings.Contains(config.ListURL, "%d") {
		return nil, fmt.Errorf("html site %s: list_url must contain a %%d page placeholder", config.Name)
	}
	if config.LinkSelector == "" {
		return nil, fmt.Errorf("html site %s: link_selector is required", config.Name)
	}
	if mapDetail == nil {
		return nil, fmt.Errorf("html site %s: detail mapper is required", config.Name)
	}

	site := &HTMLSite{config: config, mapDetail: mapDetail}
	if config.BaseURL != "" {
		host, err := urlnorm.Host(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("html site %s: %w", config.Name, err)
		}
		site.host = host
	}
	return site, nil
}

func (s *HTMLSite) Name() string {
	return s.config.Name
}

// Scrape walks listing pages in order, visiting each new detail link.
func (s *HTMLSite) Scrape(ctx context.Context, run *Run) error {
	visited := make(map[string]struct{})

	for page := 1; run.PageBudgetLeft(); page++ {
		listURL := fmt.Sprintf(s.config.ListURL, page)
		body, err := run.Fetch(ctx, listURL)
		if err != nil {
			return fmt.Errorf("fetch listing page %d: %w", page, err)
		}

		links, err := s.extractLinks(body)
		if err != nil {
			return fmt.Errorf("parse listing page %d: %w", page, err)
		}

		fresh := 0
		for _, link := range links {
			key := dedupKey(link)
			if _, ok := visited[key]; ok {
				continue
			}
			visited[key] = struct{}{}
			fresh++

			if !run.PageBudgetLeft() {
				return nil
			}
			if err := s.visit(ctx, run, link); err != nil {
				return err
			}
		}

		// An exhausted listing repeats or empties out; stop there.
		if fresh == 0 {
			return nil
		}
	}
	return nil
}

// visit fetches one detail page, maps it, and submits the result.
func (s *HTMLSite) visit(ctx context.Context, run *Run, link string) error {
	body, err := run.Fetch(ctx, link)
	if err != nil {
		return fmt.Errorf("fetch detail page %s: %w", link, err)
	}

	id := detailID(link)
	record, err := s.mapDetail(id, link, body)
	if err != nil {
		run.Reject(id, err)
		return nil
	}
	return run.Submit(record)
}

// extractLinks pulls the detail-page URLs from one listing page,
// resolved against the base URL and deduplicated in document order.
func (s *HTMLSite) extractLinks(body string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(s.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	var links []string
	seen := make(map[string]struct{})
	doc.Find(s.config.LinkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref).String()
		if s.host != "" {
			if linkHost, hostErr := urlnorm.Host(resolved); hostErr != nil || linkHost != s.host {
				return
			}
		}
		key := dedupKey(resolved)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, resolved)
	})
	return links, nil
}

// dedupKey canonicalizes a link for the visited set; the original URL
// is still what gets fetched.
func dedupKey(link string) string {
	if normalized, err := urlnorm.Normalize(link); err == nil {
		return normalized
	}
	return link
}

// detailID derives a stable identifier from the last path segment of a
// detail URL.
func detailID(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return link
	}
	trimmed := strings.Trim(parsed.Path, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if trimmed == "" {
		return link
	}
	return trimmed
}
