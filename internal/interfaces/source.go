package interfaces

import (
	"context"

	"insider-monitor/internal/types"
)

// TargetAll requests the aggregate recent-filings feed instead of a
// per-ticker feed.
const TargetAll = "ALL"

// FilingSource discovers Form 4 filings and fetches their raw bodies.
type FilingSource interface {
	// Fetch returns filing entries for the given targets (tickers or
	// TargetAll). Feed-level failures are isolated: a failing target
	// contributes nothing and never aborts its siblings. Entries without a
	// usable accession number are dropped before being returned.
	Fetch(ctx context.Context, targets []string) ([]types.FilingEntry, error)

	// Download retrieves the full filing document text for one entry.
	Download(ctx context.Context, entry types.FilingEntry) ([]byte, error)
}
