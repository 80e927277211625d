// Package scraper orchestrates a sequential crawl of one external
// source: rate-limited fetching, per-record dedup and validation, and
// persistence of accumulated records through injected sinks.
package scraper

// Stats holds the running counters for one scraper run. They are
// mutated only by the owning run (single writer, no locking).
type Stats struct {
	Total      int `json:"total"`
	Success    int `json:"success"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

// runState tracks where a run is in its lifecycle.
type runState string

const (
	stateIdle     runState = "idle"
	stateCrawling runState = "crawling"
	stateScraping runState = "scraping"
	stateDraining runState = "draining"
	stateDone     runState = "done"
)
