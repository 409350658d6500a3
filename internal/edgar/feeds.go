package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/antchfx/xmlquery"

	"insider-monitor/internal/interfaces"
	"insider-monitor/internal/logger"
	"insider-monitor/internal/types"
)

var (
	tickerRe = regexp.MustCompile(`Ticker:\s*([A-Z]{1,5})`)
	cikRe    = regexp.MustCompile(`\((\d{10})\)`)
	filedRe  = regexp.MustCompile(`Filed:\s*(\d{4}-\d{2}-\d{2})`)
)

// Fetch requests one feed per target and merges the results. Targets execute
// concurrently up to the configured bound; a feed-level failure contributes
// nothing and never aborts sibling fetches. The merge is intentionally
// unordered across targets while per-feed order is preserved.
func (c *Client) Fetch(ctx context.Context, targets []string) ([]types.FilingEntry, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	sem := make(chan struct{}, c.maxConcurrent)
	results := make(chan []types.FilingEntry, len(targets))
	var wg sync.WaitGroup

	for _, target := range targets {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			entries, err := c.fetchTarget(ctx, target)
			if err != nil {
				logger.ErrorWithErr(ctx, "Feed fetch failed", err, "target", target)
				return
			}
			results <- entries
		}(target)
	}

	wg.Wait()
	close(results)

	var merged []types.FilingEntry
	for batch := range results {
		for _, entry := range batch {
			entry.AccessionNumber = normalizeAccession(entry.AccessionNumber)
			if entry.AccessionNumber == "" {
				logger.Warn(ctx, "Dropping entry without usable accession number",
					"ticker", entry.Ticker, "url", entry.URL)
				continue
			}
			merged = append(merged, entry)
		}
	}

	logger.Debug(ctx, "Feed fetch complete", "targets", len(targets), "entries", len(merged))
	return merged, nil
}

func (c *Client) fetchTarget(ctx context.Context, target string) ([]types.FilingEntry, error) {
	if target == interfaces.TargetAll {
		url := fmt.Sprintf("%s/cgi-bin/browse-edgar?action=getcurrent&type=4&count=100&owner=only&output=atom", c.baseURL)
		return c.fetchAtomFeed(ctx, url, "")
	}

	if c.registry != nil {
		if cik, ok := c.registry.Lookup(target); ok {
			return c.fetchSubmissions(ctx, target, cik)
		}
	}

	// Unresolved symbols still work through the Atom company feed, which
	// accepts tickers in the CIK parameter.
	url := fmt.Sprintf("%s/cgi-bin/browse-edgar?action=getcompany&CIK=%s&type=4&count=40&owner=only&output=atom", c.baseURL, target)
	return c.fetchAtomFeed(ctx, url, strings.ToUpper(target))
}

// submissionsIndex mirrors the shape of data.sec.gov/submissions/CIK*.json:
// parallel arrays indexed together.
type submissionsIndex struct {
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber    []string `json:"accessionNumber"`
			FilingDate         []string `json:"filingDate"`
			Form               []string `json:"form"`
			AcceptanceDateTime []string `json:"acceptanceDateTime"`
		} `json:"recent"`
	} `json:"filings"`
}

func (c *Client) fetchSubmissions(ctx context.Context, ticker, cik string) ([]types.FilingEntry, error) {
	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, cik)

	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submissions for %s: %w", ticker, err)
	}

	var index submissionsIndex
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("failed to decode submissions for %s: %w", ticker, err)
	}

	recent := index.Filings.Recent

	// The arrays are documented as parallel but the shorter length wins to
	// avoid indexing past a truncated one.
	n := len(recent.AccessionNumber)
	if len(recent.FilingDate) < n {
		n = len(recent.FilingDate)
	}
	if len(recent.Form) < n {
		n = len(recent.Form)
	}

	cutoff := c.now().Add(-c.lookback)

	var entries []types.FilingEntry
	for i := 0; i < n; i++ {
		if recent.Form[i] != "4" {
			continue
		}
		filingDate, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil || filingDate.Before(cutoff) {
			continue
		}

		filedAt := ""
		if i < len(recent.AcceptanceDateTime) {
			filedAt = recent.AcceptanceDateTime[i]
		}

		entries = append(entries, types.FilingEntry{
			AccessionNumber: recent.AccessionNumber[i],
			CIK:             cik,
			Ticker:          ticker,
			CompanyName:     index.Name,
			FilingDate:      recent.FilingDate[i],
			FiledAt:         filedAt,
			URL:             c.documentURL(cik, recent.AccessionNumber[i]),
		})
	}

	return entries, nil
}

func (c *Client) fetchAtomFeed(ctx context.Context, url, ticker string) ([]types.FilingEntry, error) {
	body, err := c.get(ctx, url, "application/atom+xml")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch atom feed: %w", err)
	}

	doc, err := xmlquery.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse atom feed: %w", err)
	}

	var entries []types.FilingEntry
	for _, node := range xmlquery.Find(doc, "//entry") {
		entry := c.parseAtomEntry(node, ticker)
		entries = append(entries, entry)
	}

	return entries, nil
}

// parseAtomEntry extracts a FilingEntry from one Atom <entry>. Every field
// except the accession number is best-effort; the accession filter happens
// in Fetch.
func (c *Client) parseAtomEntry(node *xmlquery.Node, ticker string) types.FilingEntry {
	title := nodeText(node, "title")
	summary := nodeText(node, "summary")
	updated := nodeText(node, "updated")

	link := ""
	if l := xmlquery.FindOne(node, "link"); l != nil {
		link = l.SelectAttr("href")
	}

	accession := normalizeAccession(link)
	if accession == "" {
		accession = normalizeAccession(summary)
	}
	if accession == "" {
		accession = normalizeAccession(nodeText(node, "id"))
	}

	if ticker == "" {
		if m := tickerRe.FindStringSubmatch(summary); m != nil {
			ticker = m[1]
		}
	}

	cik := ""
	if m := cikRe.FindStringSubmatch(title); m != nil {
		cik = m[1]
	}

	filingDate := ""
	if m := filedRe.FindStringSubmatch(summary); m != nil {
		filingDate = m[1]
	} else if len(updated) >= 10 {
		filingDate = updated[:10]
	}

	return types.FilingEntry{
		AccessionNumber: accession,
		CIK:             cik,
		Ticker:          ticker,
		CompanyName:     companyFromTitle(title),
		FilingDate:      filingDate,
		FiledAt:         updated,
		URL:             link,
	}
}

// companyFromTitle pulls the company name out of feed titles shaped like
// "4 - Apple Inc. (0000320193) (Issuer)".
func companyFromTitle(title string) string {
	s := title
	if i := strings.Index(s, " - "); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.Index(s, " ("); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func nodeText(node *xmlquery.Node, path string) string {
	if n := xmlquery.FindOne(node, path); n != nil {
		return strings.TrimSpace(n.InnerText())
	}
	return ""
}

func (c *Client) documentURL(cik, accession string) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s.txt",
		c.baseURL, strings.TrimLeft(cik, "0"), strings.ReplaceAll(accession, "-", ""))
}

// Download retrieves the full filing document text for one entry.
func (c *Client) Download(ctx context.Context, entry types.FilingEntry) ([]byte, error) {
	url := entry.URL
	if entry.CIK != "" {
		url = c.documentURL(entry.CIK, entry.AccessionNumber)
	}
	if url == "" {
		return nil, fmt.Errorf("no document location for %s", entry.AccessionNumber)
	}

	body, err := c.get(ctx, url, "text/plain")
	if err != nil {
		return nil, fmt.Errorf("failed to download filing %s: %w", entry.AccessionNumber, err)
	}
	return body, nil
}
