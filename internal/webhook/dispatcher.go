package webhook

import (
	"context"
	"fmt"
	"time"

	"insider-monitor/internal/interfaces"
	"insider-monitor/internal/logger"
	"insider-monitor/internal/types"
)

// Dispatcher turns a newly-deduplicated filing into a persisted record and
// one webhook delivery attempt. Persistence failure is an error; delivery
// failure is not: the filing stays recorded and the loss is reconciled
// out-of-band rather than risking re-delivery storms on a flaky sink.
type Dispatcher struct {
	store interfaces.Store
	sink  interfaces.Sink
	now   func() time.Time
}

// NewDispatcher creates a dispatcher. A nil sink disables delivery (persist-only).
func NewDispatcher(store interfaces.Store, sink interfaces.Sink) *Dispatcher {
	return &Dispatcher{
		store: store,
		sink:  sink,
		now:   time.Now,
	}
}

// Delivers reports whether a sink is configured.
func (d *Dispatcher) Delivers() bool {
	return d.sink != nil
}

// Dispatch persists the filing with its transactions, then attempts exactly
// one delivery. The returned error is non-nil only for persistence failure.
func (d *Dispatcher) Dispatch(ctx context.Context, entry types.FilingEntry, scored []types.ScoredTransaction) (types.DeliveryResult, error) {
	result := types.DeliveryResult{
		AccessionNumber: entry.AccessionNumber,
		Ticker:          entry.Ticker,
		Transactions:    len(scored),
	}

	txs := make([]types.Transaction, 0, len(scored))
	for _, s := range scored {
		tx := s.Transaction
		tx.AccessionNumber = entry.AccessionNumber
		txs = append(txs, tx)
	}

	if err := d.store.UpsertFiling(entry, txs); err != nil {
		return result, fmt.Errorf("failed to persist filing %s: %w", entry.AccessionNumber, err)
	}
	result.Persisted = true

	if d.sink == nil {
		return result, nil
	}

	event := types.WebhookEvent{
		Type:         "insider_trading",
		Ticker:       entry.Ticker,
		Company:      entry.CompanyName,
		FilingDate:   entry.FilingDate,
		URL:          entry.URL,
		Timestamp:    d.now().Format(time.RFC3339),
		Transactions: scored,
	}

	if err := d.sink.Deliver(ctx, event); err != nil {
		logger.ErrorWithErr(ctx, "Webhook delivery failed", err,
			"accession", entry.AccessionNumber,
			"ticker", entry.Ticker,
		)
		return result, nil
	}

	result.Delivered = true
	return result, nil
}
