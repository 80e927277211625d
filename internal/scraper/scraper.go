package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/logger"
	"github.com/openartmap/ingest/internal/ratelimit"
)

// ErrLimitReached is returned by Submit when the configured record
// limit has been hit; sites stop iterating when they see it.
var ErrLimitReached = errors.New("record limit reached")

// Fetcher retrieves a URL as text. Implemented by fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Site supplies the source-specific crawl logic: page iteration and
// candidate extraction. Sites call back into the Run for fetching and
// for submitting discovered records, so all bookkeeping stays in one
// place.
type Site interface {
	Name() string
	Scrape(ctx context.Context, run *Run) error
}

// Options bounds one run.
type Options struct {
	// MaxPages stops the crawl after this many page fetches (0 = no bound).
	MaxPages int
	// Limit stops the crawl after this many accepted records (0 = no bound).
	Limit int
}

// Run owns the mutable state of one scrape: accumulators, dedup set,
// and counters. A Run is used by exactly one goroutine; the crawl is
// intentionally sequential so target sites see one request at a time
// and the bookkeeping needs no locks.
type Run struct {
	site    Site
	fetcher Fetcher
	limiter *ratelimit.Limiter
	sink    Sink
	logger  logger.Interface

	options  Options
	state    runState
	stats    Stats
	seen     map[string]struct{}
	artworks []*domain.CandidateRecord
	pages    int
	started  time.Time
}

// New creates a run for the given site.
func New(site Site, fetcher Fetcher, limiter *ratelimit.Limiter, sink Sink, log logger.Interface) *Run {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Run{
		site:    site,
		fetcher: fetcher,
		limiter: limiter,
		sink:    sink,
		logger:  log.WithComponent("scraper").With("source", site.Name()),
		state:   stateIdle,
		seen:    make(map[string]struct{}),
	}
}

// Execute performs the full run: crawl via the site, then drain the
// accumulated records to the sinks, then report stats. A Run may be
// executed once.
func (r *Run) Execute(ctx context.Context, opts Options) (Stats, error) {
	if r.state != stateIdle {
		return r.stats, fmt.Errorf("run already executed (state %s)", r.state)
	}

	r.options = opts
	r.started = time.Now()
	r.state = stateCrawling
	r.logger.Info("scrape started", "max_pages", opts.MaxPages, "limit", opts.Limit)

	if err := r.site.Scrape(ctx, r); err != nil && !errors.Is(err, ErrLimitReached) {
		r.state = stateDone
		return r.stats, fmt.Errorf("scrape %s: %w", r.site.Name(), err)
	}

	r.state = stateDraining
	if err := r.drain(ctx); err != nil {
		r.state = stateDone
		return r.stats, err
	}

	r.state = stateDone
	r.logger.Info("scrape finished",
		"total", r.stats.Total,
		"success", r.stats.Success,
		"failed", r.stats.Failed,
		"skipped", r.stats.Skipped,
		"duplicates", r.stats.Duplicates,
		"pages", r.pages,
		"duration", time.Since(r.started).String(),
	)

	return r.stats, nil
}

// Fetch retrieves one page through the rate limiter. Every fetch
// counts against the MaxPages bound.
func (r *Run) Fetch(ctx context.Context, url string) (string, error) {
	if r.options.MaxPages > 0 && r.pages >= r.options.MaxPages {
		return "", fmt.Errorf("page budget of %d exhausted", r.options.MaxPages)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	r.pages++
	r.state = stateCrawling
	body, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return body, nil
}

// PageBudgetLeft reports whether another Fetch is allowed.
func (r *Run) PageBudgetLeft() bool {
	return r.options.MaxPages == 0 || r.pages < r.options.MaxPages
}

// IsDuplicate reports whether the external ID was seen before in this
// run, recording it the first time.
func (r *Run) IsDuplicate(externalID string) bool {
	if _, ok := r.seen[externalID]; ok {
		return true
	}
	r.seen[externalID] = struct{}{}
	return false
}

// Submit accepts one discovered record. It increments the counters,
// short-circuits duplicates, validates minimally, and accumulates the
// record on success. It returns ErrLimitReached when the record limit
// is hit so the site can stop early.
func (r *Run) Submit(record *domain.CandidateRecord) error {
	r.state = stateScraping
	r.stats.Total++

	if r.IsDuplicate(record.ExternalID) {
		r.stats.Duplicates++
		r.stats.Skipped++
		r.logger.Debug("duplicate record skipped", "external_id", record.ExternalID)
		return nil
	}

	if reason, ok := validate(record); !ok {
		r.stats.Failed++
		r.logger.Warn("record rejected",
			"external_id", record.ExternalID,
			"reason", reason,
		)
		return nil
	}

	r.artworks = append(r.artworks, record)
	r.stats.Success++

	if r.options.Limit > 0 && r.stats.Success >= r.options.Limit {
		return ErrLimitReached
	}
	return nil
}

// Reject records one discovered page that could not be mapped to a
// record. It counts against the totals like Submit, so a page without
// extractable data fails the record rather than the whole crawl.
func (r *Run) Reject(externalID string, err error) {
	r.stats.Total++
	r.stats.Failed++
	r.logger.Warn("record rejected",
		"external_id", externalID,
		"reason", err.Error(),
	)
}

// Stats returns a copy of the current counters.
func (r *Run) Stats() Stats {
	return r.stats
}

// Artworks returns the accumulated records in discovery order.
func (r *Run) Artworks() []*domain.CandidateRecord {
	return r.artworks
}

// validate applies the minimal acceptance rules: a title and in-range
// coordinates.
func validate(record *domain.CandidateRecord) (string, bool) {
	if record.ExternalID == "" {
		return "missing external id", false
	}
	if record.Title == "" {
		return "missing title", false
	}
	if !record.Coordinates.Valid() {
		return "coordinates out of range", false
	}
	return "", true
}

// drain persists the accumulated records to the sinks.
func (r *Run) drain(ctx context.Context) error {
	features := make([]*domain.Feature, 0, len(r.artworks))
	entries := make([]IndexEntry, 0, len(r.artworks))
	for _, record := range r.artworks {
		features = append(features, record.ToFeature())
		entries = append(entries, IndexEntry{
			ExternalID: record.ExternalID,
			Title:      record.Title,
			SourceURL:  record.SourceURL,
		})
	}

	if err := r.sink.WriteCollection(ctx, domain.NewFeatureCollection(features)); err != nil {
		return fmt.Errorf("write collection: %w", err)
	}
	if err := r.sink.WriteIndex(ctx, entries); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}
