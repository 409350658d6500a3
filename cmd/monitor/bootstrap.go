package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"insider-monitor/internal/edgar"
	"insider-monitor/internal/edgar/edgarobs"
	"insider-monitor/internal/interfaces"
	"insider-monitor/internal/logger"
	"insider-monitor/internal/registry"
	"insider-monitor/internal/storage"
	"insider-monitor/internal/store"
	"insider-monitor/internal/trace"
	"insider-monitor/internal/webhook"
	"insider-monitor/internal/webhook/webhookobs"

	"github.com/joho/godotenv"
)

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration. A missing config file
// falls back to defaults so ad-hoc runs work out of the box.
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn(ctx, "Config file not found, using defaults", "path", path)
			return store.DefaultConfig(), nil
		}
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// openStorage opens the SQLite database
func openStorage(ctx context.Context, cfg *store.Config) (*storage.Storage, error) {
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open storage", err, "path", cfg.DBPath)
		return nil, err
	}
	return db, nil
}

// buildSource constructs the EDGAR filing source with observability. A
// registry load failure degrades to Atom-feed ticker resolution rather than
// blocking startup.
func buildSource(ctx context.Context, cfg *store.Config) interfaces.FilingSource {
	httpClient := &http.Client{Timeout: time.Duration(cfg.Feeds.TimeoutSeconds) * time.Second}

	var reg interfaces.Registry
	loaded, err := registry.Load(ctx, httpClient, registry.DefaultFeedURL, cfg.UserAgent)
	if err != nil {
		logger.Warn(ctx, "Ticker registry unavailable, falling back to company feeds", "error", err)
	} else {
		logger.Info(ctx, "Ticker registry loaded", "companies", loaded.Len())
		reg = loaded
	}

	client := edgar.NewClient(reg,
		edgar.WithUserAgent(cfg.UserAgent),
		edgar.WithTimeout(time.Duration(cfg.Feeds.TimeoutSeconds)*time.Second),
		edgar.WithMaxConcurrent(cfg.Feeds.MaxConcurrent),
		edgar.WithLookback(time.Duration(cfg.Feeds.LookbackDays)*24*time.Hour),
		edgar.WithRateLimiter(edgar.NewRateLimiter(cfg.Feeds.RequestsPerSec, time.Second/time.Duration(cfg.Feeds.RequestsPerSec))),
	)

	// Wrap with observability middleware
	return edgarobs.Wrap(client)
}

// buildSink constructs the webhook sink, or nil for persist-only mode
func buildSink(ctx context.Context, cfg *store.Config) interfaces.Sink {
	if cfg.WebhookURL == "" {
		logger.Warn(ctx, "No webhook_url configured - filings will be persisted without delivery")
		return nil
	}
	sink := webhook.NewClient(cfg.WebhookURL, time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second)

	// Wrap with observability middleware
	return webhookobs.Wrap(sink)
}

// resolveTargets picks the ticker set to monitor: the -tickers flag wins,
// then a watchlist file, then the config watchlist, then the stored
// watchlist, then the market-wide feed.
func resolveTargets(db *storage.Storage, cfg *store.Config, tickersFlag, watchlistFile string, all bool) ([]string, error) {
	if all {
		return []string{interfaces.TargetAll}, nil
	}

	if tickersFlag != "" {
		return splitTickers(tickersFlag), nil
	}

	if watchlistFile != "" {
		data, err := os.ReadFile(watchlistFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read watchlist file: %w", err)
		}
		targets := splitTickers(strings.ReplaceAll(string(data), "\n", ","))
		if len(targets) == 0 {
			return nil, fmt.Errorf("watchlist file %s contains no tickers", watchlistFile)
		}
		return targets, nil
	}

	if len(cfg.Watchlist) > 0 {
		targets := make([]string, 0, len(cfg.Watchlist))
		for _, t := range cfg.Watchlist {
			targets = append(targets, strings.ToUpper(strings.TrimSpace(t)))
		}
		return targets, nil
	}

	stored, err := db.Watchlist()
	if err != nil {
		return nil, fmt.Errorf("failed to read stored watchlist: %w", err)
	}
	if len(stored) > 0 {
		return stored, nil
	}

	return []string{interfaces.TargetAll}, nil
}

func splitTickers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		t := strings.ToUpper(strings.TrimSpace(part))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// printStats writes the database summary to stdout
func printStats(db *storage.Storage) error {
	stats, err := db.GetStats()
	if err != nil {
		return err
	}

	fmt.Println("Insider Monitor Statistics")
	fmt.Println("──────────────────────────────────────")
	fmt.Printf("Total filings:    %d\n", stats.TotalFilings)
	fmt.Printf("Last 24 hours:    %d\n", stats.Last24h)

	if len(stats.TopTickers) > 0 {
		type tickerCount struct {
			ticker string
			count  int
		}
		counts := make([]tickerCount, 0, len(stats.TopTickers))
		for t, c := range stats.TopTickers {
			counts = append(counts, tickerCount{t, c})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].count != counts[j].count {
				return counts[i].count > counts[j].count
			}
			return counts[i].ticker < counts[j].ticker
		})

		fmt.Println("\nMost active tickers:")
		for _, tc := range counts {
			fmt.Printf("  %-8s %d\n", tc.ticker, tc.count)
		}
	}
	return nil
}
