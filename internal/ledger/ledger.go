// Package ledger tracks which filing accession numbers have already been
// processed, guaranteeing idempotent re-runs across restarts.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"insider-monitor/internal/interfaces"
)

// Ledger is the single owner of the seen-set. Check-and-mark is exposed as
// one atomic operation so concurrent pipeline passes can never both observe
// an id as new.
type Ledger struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	store interfaces.Store
	now   func() time.Time
}

// Load builds a Ledger, bulk-loading the full seen-set from the store. This
// must complete before any fetch is dispatched, else a restart would
// re-deliver history.
func Load(store interfaces.Store) (*Ledger, error) {
	seen, err := store.SeenIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to load seen-set: %w", err)
	}
	if seen == nil {
		seen = make(map[string]struct{})
	}
	return &Ledger{
		seen:  seen,
		store: store,
		now:   time.Now,
	}, nil
}

// Seen reports whether an id has been processed, without marking it.
func (l *Ledger) Seen(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[id]
	return ok
}

// CheckAndMark atomically classifies an id. It returns true exactly once per
// id across the process lifetime: the first caller gets true and the id is
// durably recorded before the critical section is released; every later call
// returns false. Marking an already-seen id is a no-op.
//
// A store write failure rolls the in-memory mark back and is returned: the
// dedup invariant cannot be maintained without durable state.
func (l *Ledger) CheckAndMark(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[id]; ok {
		return false, nil
	}

	l.seen[id] = struct{}{}
	if err := l.store.RecordSeen(id, l.now()); err != nil {
		delete(l.seen, id)
		return false, fmt.Errorf("failed to persist seen mark for %s: %w", id, err)
	}
	return true, nil
}

// Size reports how many ids the ledger tracks.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
