// Package registry maps stock symbols to SEC entity identifiers (CIKs),
// loaded once at startup from the SEC's company ticker feed.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultFeedURL = "https://www.sec.gov/files/company_tickers.json"

// Registry holds the symbol <-> CIK mappings.
type Registry struct {
	tickerToCIK map[string]string
	cikToTicker map[string]string
	names       map[string]string
}

type tickerRecord struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// Load fetches the company ticker feed and builds the mappings. feedURL may
// be empty to use the SEC default; userAgent must carry contact info per SEC
// fair-access policy.
func Load(ctx context.Context, client *http.Client, feedURL, userAgent string) (*Registry, error) {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticker mappings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ticker feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ticker feed: %w", err)
	}

	return Parse(body)
}

// Parse builds a Registry from the raw company ticker feed payload, a JSON
// object keyed by arbitrary row indexes.
func Parse(data []byte) (*Registry, error) {
	var records map[string]tickerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode ticker feed: %w", err)
	}

	r := &Registry{
		tickerToCIK: make(map[string]string, len(records)),
		cikToTicker: make(map[string]string, len(records)),
		names:       make(map[string]string, len(records)),
	}
	for _, rec := range records {
		ticker := strings.ToUpper(rec.Ticker)
		if ticker == "" {
			continue
		}
		cik := fmt.Sprintf("%010d", rec.CIK)
		r.tickerToCIK[ticker] = cik
		r.cikToTicker[cik] = ticker
		r.names[ticker] = rec.Title
	}
	return r, nil
}

// Lookup returns the zero-padded CIK for a symbol.
func (r *Registry) Lookup(symbol string) (string, bool) {
	cik, ok := r.tickerToCIK[strings.ToUpper(symbol)]
	return cik, ok
}

// Ticker returns the symbol for a zero-padded CIK.
func (r *Registry) Ticker(cik string) (string, bool) {
	ticker, ok := r.cikToTicker[cik]
	return ticker, ok
}

// CompanyName returns the registered company title for a symbol.
func (r *Registry) CompanyName(symbol string) string {
	return r.names[strings.ToUpper(symbol)]
}

// Len reports how many symbols are mapped.
func (r *Registry) Len() int {
	return len(r.tickerToCIK)
}
