// Package fetch provides the HTTP client used for all outbound
// scraping requests. It retries transient failures with exponential
// backoff and honors Retry-After hints from rate-limiting hosts.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/logger"
)

// Default client settings.
const (
	DefaultMaxRetries     = 3
	DefaultInitialDelay   = 1 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultUserAgent      = "openartmap-ingest/1.0"
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// ErrRetriesExhausted is wrapped into the NetworkError returned after
// the final failed attempt.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Doer abstracts *http.Client for testing.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the retrying client.
type Config struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int `yaml:"max_retries" env:"FETCH_MAX_RETRIES"`
	// InitialDelay seeds the exponential backoff schedule.
	InitialDelay time.Duration `yaml:"initial_delay" env:"FETCH_INITIAL_DELAY"`
	// Timeout bounds each individual attempt.
	Timeout time.Duration `yaml:"timeout" env:"FETCH_TIMEOUT"`
	// UserAgent is sent on every request.
	UserAgent string `yaml:"user_agent" env:"FETCH_USER_AGENT"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultRequestTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

// Client fetches URLs with bounded retries. One attempt is made plus
// MaxRetries retries; each attempt is bounded by Timeout via context.
type Client struct {
	httpClient Doer
	logger     logger.Interface
	config     Config
}

// NewClient creates a retrying fetch client.
func NewClient(cfg Config, log logger.Interface) *Client {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Client{
		httpClient: &http.Client{},
		logger:     log.WithComponent("fetch"),
		config:     cfg,
	}
}

// Fetch retrieves url and returns the response body as text.
// On any transport error or non-2xx/3xx status it backs off
// initialDelay * 2^attempt and retries, honoring a Retry-After header
// (seconds) on top of the backoff. After exhausting retries it returns
// a *domain.NetworkError carrying the attempt count and last failure.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	attempts := c.config.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		body, retryAfter, err := c.attempt(ctx, url)
		if err == nil {
			if attempt > 0 {
				c.logger.Debug("fetch recovered", "url", url, "attempt", attempt)
			}
			return body, nil
		}

		lastErr = err
		c.logger.Warn("fetch attempt failed",
			"url", url,
			"attempt", attempt,
			"error", err.Error(),
		)

		if attempt == attempts-1 {
			break
		}

		backoff := c.config.InitialDelay * (1 << attempt)
		if retryAfter > 0 {
			backoff += retryAfter
		}
		if sleepErr := sleep(ctx, backoff); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	return "", &domain.NetworkError{
		URL:      url,
		Attempts: attempts,
		Err:      fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr),
	}
}

// attempt performs a single bounded request. It returns the parsed
// Retry-After delay when the response carried one.
func (c *Client) attempt(ctx context.Context, url string) (body string, retryAfter time.Duration, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, reqErr := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, http.NoBody)
	if reqErr != nil {
		return "", 0, fmt.Errorf("create request: %w", reqErr)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return "", 0, fmt.Errorf("http fetch: %w", doErr)
	}
	defer resp.Body.Close()

	retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		return "", retryAfter, fmt.Errorf("http status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes)
	data, readErr := io.ReadAll(limited)
	if readErr != nil {
		return "", retryAfter, fmt.Errorf("read response body: %w", readErr)
	}

	return string(data), retryAfter, nil
}

// parseRetryAfter interprets the header as whole seconds. Malformed or
// negative values are ignored.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
