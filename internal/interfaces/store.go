package interfaces

import (
	"time"

	"insider-monitor/internal/types"
)

// Store is the persistence surface the pipeline depends on. Filings and
// transactions are insert-only from the pipeline's perspective; the seen-set
// is append-only.
type Store interface {
	// SeenIDs bulk-loads the full seen-set at startup.
	SeenIDs() (map[string]struct{}, error)

	// RecordSeen durably marks an accession number as processed. Recording
	// an already-seen id is a no-op, never an error.
	RecordSeen(accessionNumber string, firstSeen time.Time) error

	// UpsertFiling persists a filing and its extracted transactions.
	UpsertFiling(entry types.FilingEntry, txs []types.Transaction) error
}
