// Package monitor drives the ingestion pipeline: periodic fetch of filing
// metadata, dedup filtering, document parsing, signal scoring, and event
// dispatch.
package monitor

import (
	"context"
	"sync"
	"time"

	"insider-monitor/internal/form4"
	"insider-monitor/internal/interfaces"
	"insider-monitor/internal/ledger"
	"insider-monitor/internal/logger"
	"insider-monitor/internal/signal"
	"insider-monitor/internal/trace"
	"insider-monitor/internal/types"
	"insider-monitor/internal/webhook"
)

// State is the orchestrator's current phase.
type State string

const (
	StateIdle       State = "IDLE"
	StateFetching   State = "FETCHING"
	StateProcessing State = "PROCESSING"
	StateWaiting    State = "WAITING"
	StateStopped    State = "STOPPED"
)

// Config holds orchestration behavior.
type Config struct {
	Targets        []string
	Interval       time.Duration
	ErrorBackoff   time.Duration
	OneShot        bool
	FetchDocuments bool

	// OnFiling, when set, observes every new filing after dispatch. Used by
	// the CLI to accumulate export rows.
	OnFiling func(entry types.FilingEntry, scored []types.ScoredTransaction)
}

// DefaultConfig returns the standing poll configuration.
func DefaultConfig() Config {
	return Config{
		Interval:     30 * time.Minute,
		ErrorBackoff: 60 * time.Second,
	}
}

// Monitor owns the control loop. All pipeline mutations flow through the
// ledger's serialized check-and-mark; the monitor itself holds no shared
// mutable state beyond its phase.
type Monitor struct {
	source     interfaces.FilingSource
	ledger     *ledger.Ledger
	dispatcher *webhook.Dispatcher
	cfg        Config

	mu    sync.Mutex
	state State
}

// New creates a Monitor.
func New(source interfaces.FilingSource, led *ledger.Ledger, dispatcher *webhook.Dispatcher, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 60 * time.Second
	}
	return &Monitor{
		source:     source,
		ledger:     led,
		dispatcher: dispatcher,
		cfg:        cfg,
		state:      StateIdle,
	}
}

// State reports the orchestrator's current phase.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Run executes the control loop until the context is canceled. In one-shot
// mode it returns after a single pass. Cancellation during a pass completes
// the in-flight batch; cancellation during the wait returns immediately.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.setState(StateStopped)

	for {
		stats, err := m.RunPass(ctx)

		wait := m.cfg.Interval
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.ErrorWithErr(ctx, "Pipeline pass failed, backing off", err,
				"backoff", m.cfg.ErrorBackoff.String())
			wait = m.cfg.ErrorBackoff
		} else {
			logger.Info(ctx, "Pipeline pass completed",
				"fetched", stats.Fetched,
				"new", stats.New,
				"delivered", stats.Delivered,
				"failed", stats.Failed,
			)
		}

		if m.cfg.OneShot {
			return err
		}

		m.setState(StateWaiting)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunPass executes one fetch-dedup-parse-score-dispatch pass over all
// targets. A store failure short-circuits the pass; feed and delivery
// failures degrade per-target and per-filing.
func (m *Monitor) RunPass(ctx context.Context) (types.PassStats, error) {
	ctx, span := trace.StartSpan(ctx, "monitor.Pass")
	defer span.End()

	var stats types.PassStats

	m.setState(StateFetching)
	entries, err := m.source.Fetch(ctx, m.cfg.Targets)
	if err != nil {
		return stats, err
	}
	stats.Fetched = len(entries)

	m.setState(StateProcessing)
	for _, entry := range entries {
		isNew, err := m.ledger.CheckAndMark(entry.AccessionNumber)
		if err != nil {
			// Without durable dedup state the pass cannot continue safely.
			return stats, err
		}
		if !isNew {
			continue
		}
		stats.New++

		scored := m.extract(ctx, entry)

		result, err := m.dispatcher.Dispatch(ctx, entry, scored)
		if err != nil {
			stats.Failed++
			return stats, err
		}
		if result.Delivered {
			stats.Delivered++
		} else if m.dispatcher.Delivers() {
			stats.Failed++
		}

		logger.Filing(ctx, entry.Ticker, entry.AccessionNumber,
			"delivered", result.Delivered,
			"transactions", result.Transactions,
		)

		if m.cfg.OnFiling != nil {
			m.cfg.OnFiling(entry, scored)
		}
	}

	return stats, nil
}

// extract downloads and parses the filing body when document fetching is
// enabled. Download or parse trouble degrades to a metadata-only event.
func (m *Monitor) extract(ctx context.Context, entry types.FilingEntry) []types.ScoredTransaction {
	if !m.cfg.FetchDocuments {
		return nil
	}

	doc, err := m.source.Download(ctx, entry)
	if err != nil {
		logger.Warn(ctx, "Filing body unavailable, emitting metadata only",
			"accession", entry.AccessionNumber, "error", err)
		return nil
	}

	_, txs := form4.Parse(ctx, doc)
	return signal.ScoreAll(txs)
}
