package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"insider-monitor/internal/ledger"
	"insider-monitor/internal/types"
	"insider-monitor/internal/webhook"
)

const filingDoc = `<XML>
<ownershipDocument>
  <reportingOwner>
    <reportingOwnerId><rptOwnerName>Doe Jane</rptOwnerName></reportingOwnerId>
    <reportingOwnerRelationship><officerTitle>CEO</officerTitle></reportingOwnerRelationship>
  </reportingOwner>
  <nonDerivativeTable>
    <nonDerivativeTransaction>
      <transactionDate><value>2024-03-18</value></transactionDate>
      <transactionCoding><transactionCode>P</transactionCode></transactionCoding>
      <transactionAmounts>
        <transactionShares><value>50000</value></transactionShares>
        <transactionPricePerShare><value>30</value></transactionPricePerShare>
      </transactionAmounts>
    </nonDerivativeTransaction>
  </nonDerivativeTable>
</ownershipDocument>
</XML>`

type fakeSource struct {
	mu        sync.Mutex
	entries   []types.FilingEntry
	fetchErr  error
	fetches   int
	downloads int
}

func (f *fakeSource) Fetch(ctx context.Context, targets []string) ([]types.FilingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.entries, nil
}

func (f *fakeSource) Download(ctx context.Context, entry types.FilingEntry) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	return []byte(filingDoc), nil
}

type fakeStore struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	upserts []types.FilingEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: make(map[string]time.Time)}
}

func (f *fakeStore) SeenIDs() (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]struct{}, len(f.seen))
	for id := range f.seen {
		out[id] = struct{}{}
	}
	return out, nil
}

func (f *fakeStore) RecordSeen(id string, firstSeen time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[id] = firstSeen
	return nil
}

func (f *fakeStore) UpsertFiling(entry types.FilingEntry, txs []types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, entry)
	return nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []types.WebhookEvent
}

func (f *fakeSink) Deliver(ctx context.Context, event types.WebhookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func entryFor(accession, ticker string) types.FilingEntry {
	return types.FilingEntry{
		AccessionNumber: accession,
		CIK:             "0000320193",
		Ticker:          ticker,
		CompanyName:     "Apple Inc.",
		FilingDate:      "2024-03-18",
		URL:             "https://www.sec.gov/Archives/edgar/data/320193/filing.txt",
	}
}

func TestRunPassDeduplicatesAndDispatches(t *testing.T) {
	store := newFakeStore()
	store.seen["0001234567-24-000002"] = time.Now()

	source := &fakeSource{entries: []types.FilingEntry{
		entryFor("0001234567-24-000001", "AAPL"),
		entryFor("0001234567-24-000002", "AAPL"),
	}}
	sink := &fakeSink{}

	led, err := ledger.Load(store)
	if err != nil {
		t.Fatalf("Expected ledger to load, got %v", err)
	}

	m := New(source, led, webhook.NewDispatcher(store, sink), Config{
		Targets:        []string{"AAPL"},
		OneShot:        true,
		FetchDocuments: true,
	})

	stats, err := m.RunPass(context.Background())
	if err != nil {
		t.Fatalf("Expected pass to succeed, got %v", err)
	}

	if stats.Fetched != 2 {
		t.Errorf("Expected 2 fetched, got %d", stats.Fetched)
	}
	if stats.New != 1 {
		t.Errorf("Expected 1 new, got %d", stats.New)
	}
	if stats.Delivered != 1 {
		t.Errorf("Expected 1 delivered, got %d", stats.Delivered)
	}

	// Only the unseen filing is persisted and delivered.
	if len(store.upserts) != 1 || store.upserts[0].AccessionNumber != "0001234567-24-000001" {
		t.Errorf("Expected one upsert for the new filing, got %+v", store.upserts)
	}
	if len(sink.events) != 1 {
		t.Fatalf("Expected 1 delivery, got %d", len(sink.events))
	}

	event := sink.events[0]
	if len(event.Transactions) != 1 {
		t.Fatalf("Expected parsed transactions in event, got %d", len(event.Transactions))
	}
	if event.Transactions[0].Signal != types.SignalStrongBuy {
		t.Errorf("Expected STRONG_BUY from the scored purchase, got %s", event.Transactions[0].Signal)
	}

	// Both filings are now marked seen.
	if !led.Seen("0001234567-24-000001") || !led.Seen("0001234567-24-000002") {
		t.Error("Expected both accession numbers marked seen after the pass")
	}
}

func TestRunPassSecondPassIsQuiet(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{entries: []types.FilingEntry{entryFor("0001234567-24-000001", "AAPL")}}
	sink := &fakeSink{}

	led, _ := ledger.Load(store)
	m := New(source, led, webhook.NewDispatcher(store, sink), Config{OneShot: true})

	if _, err := m.RunPass(context.Background()); err != nil {
		t.Fatalf("Expected first pass to succeed, got %v", err)
	}
	stats, err := m.RunPass(context.Background())
	if err != nil {
		t.Fatalf("Expected second pass to succeed, got %v", err)
	}

	if stats.New != 0 || stats.Delivered != 0 {
		t.Errorf("Expected quiet second pass, got new=%d delivered=%d", stats.New, stats.Delivered)
	}
	if len(sink.events) != 1 {
		t.Errorf("Expected exactly 1 delivery across both passes, got %d", len(sink.events))
	}
}

func TestRunPassWithoutDocuments(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{entries: []types.FilingEntry{entryFor("0001234567-24-000001", "AAPL")}}
	sink := &fakeSink{}

	led, _ := ledger.Load(store)
	m := New(source, led, webhook.NewDispatcher(store, sink), Config{OneShot: true})

	if _, err := m.RunPass(context.Background()); err != nil {
		t.Fatalf("Expected pass to succeed, got %v", err)
	}

	if source.downloads != 0 {
		t.Errorf("Expected no downloads with document fetching off, got %d", source.downloads)
	}
	if len(sink.events) != 1 {
		t.Fatalf("Expected metadata-only delivery, got %d events", len(sink.events))
	}
	if len(sink.events[0].Transactions) != 0 {
		t.Errorf("Expected no transactions in metadata-only event, got %d", len(sink.events[0].Transactions))
	}
}

func TestRunOneShotReturnsFetchError(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{fetchErr: errors.New("edgar unavailable")}

	led, _ := ledger.Load(store)
	m := New(source, led, webhook.NewDispatcher(store, nil), Config{OneShot: true})

	if err := m.Run(context.Background()); err == nil {
		t.Error("Expected one-shot run to surface the fetch error")
	}
	if m.State() != StateStopped {
		t.Errorf("Expected STOPPED state after one-shot, got %s", m.State())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{}

	led, _ := ledger.Load(store)
	m := New(source, led, webhook.NewDispatcher(store, nil), Config{
		Interval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// Let the first pass complete, then cancel during the wait.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected run to stop promptly after cancellation")
	}

	if m.State() != StateStopped {
		t.Errorf("Expected STOPPED state, got %s", m.State())
	}
}

func TestRunPollsAgainAfterInterval(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{}

	led, _ := ledger.Load(store)
	m := New(source, led, webhook.NewDispatcher(store, nil), Config{
		Interval:     20 * time.Millisecond,
		ErrorBackoff: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = m.Run(ctx)

	source.mu.Lock()
	fetches := source.fetches
	source.mu.Unlock()
	if fetches < 2 {
		t.Errorf("Expected repeated passes, got %d fetches", fetches)
	}
}

func TestOnFilingHook(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{entries: []types.FilingEntry{entryFor("0001234567-24-000001", "AAPL")}}

	led, _ := ledger.Load(store)

	var hooked []string
	m := New(source, led, webhook.NewDispatcher(store, nil), Config{
		OneShot:        true,
		FetchDocuments: true,
		OnFiling: func(entry types.FilingEntry, scored []types.ScoredTransaction) {
			hooked = append(hooked, entry.AccessionNumber)
			if len(scored) != 1 {
				t.Errorf("Expected 1 scored transaction in hook, got %d", len(scored))
			}
		},
	})

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Expected run to succeed, got %v", err)
	}
	if len(hooked) != 1 || hooked[0] != "0001234567-24-000001" {
		t.Errorf("Expected hook for the new filing, got %v", hooked)
	}
}
