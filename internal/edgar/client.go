// Package edgar fetches Form 4 filing metadata and documents from SEC EDGAR.
// It speaks both feed shapes: the JSON submissions index on data.sec.gov and
// the Atom browse-edgar feeds on www.sec.gov.
package edgar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"insider-monitor/internal/interfaces"
)

const (
	defaultBaseURL = "https://www.sec.gov"
	defaultDataURL = "https://data.sec.gov"

	defaultMaxConcurrent = 10
	defaultTimeout       = 30 * time.Second
	defaultLookbackDays  = 7
)

// Accession numbers look like 0001234567-24-000123. Entries whose id cannot
// be normalized to this shape cannot be deduplicated safely and are dropped.
var (
	accessionRe         = regexp.MustCompile(`\d{10}-\d{2}-\d{6}`)
	strippedAccessionRe = regexp.MustCompile(`\d{18}`)
)

// Client fetches filing metadata and documents from EDGAR.
type Client struct {
	baseURL       string
	dataURL       string
	httpClient    *http.Client
	userAgent     string
	registry      interfaces.Registry
	limiter       *RateLimiter
	maxConcurrent int
	lookback      time.Duration
	now           func() time.Time
}

var _ interfaces.FilingSource = (*Client)(nil)

// ClientOption configures the EDGAR client.
type ClientOption func(*Client)

// WithBaseURL overrides the www.sec.gov base (used by tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithDataURL overrides the data.sec.gov base (used by tests).
func WithDataURL(u string) ClientOption {
	return func(c *Client) { c.dataURL = strings.TrimRight(u, "/") }
}

// WithUserAgent sets the User-Agent header. SEC requires contact information.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxConcurrent bounds how many feeds are requested concurrently per
// Fetch call.
func WithMaxConcurrent(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithLookback bounds how far back submissions-index entries are accepted.
func WithLookback(d time.Duration) ClientOption {
	return func(c *Client) { c.lookback = d }
}

// WithRateLimiter replaces the default SEC request limiter.
func WithRateLimiter(rl *RateLimiter) ClientOption {
	return func(c *Client) { c.limiter = rl }
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient creates an EDGAR client. The registry resolves tickers to CIKs;
// unresolved tickers fall back to the Atom company feed, which accepts
// tickers directly.
func NewClient(reg interfaces.Registry, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       defaultBaseURL,
		dataURL:       defaultDataURL,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		userAgent:     "insider-monitor/1.0 (contact@example.com)",
		registry:      reg,
		limiter:       NewRateLimiter(10, 100*time.Millisecond),
		maxConcurrent: defaultMaxConcurrent,
		lookback:      defaultLookbackDays * 24 * time.Hour,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// normalizeAccession extracts a canonical dashed accession number from raw
// feed text, or "" when none is present.
func normalizeAccession(raw string) string {
	if m := accessionRe.FindString(raw); m != "" {
		return m
	}
	// Archive URLs sometimes carry the accession with dashes stripped.
	if m := strippedAccessionRe.FindString(raw); m != "" {
		return m[:10] + "-" + m[10:12] + "-" + m[12:]
	}
	return ""
}
