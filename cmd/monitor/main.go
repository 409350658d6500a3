package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"insider-monitor/internal/export"
	"insider-monitor/internal/ledger"
	"insider-monitor/internal/logger"
	"insider-monitor/internal/monitor"
	"insider-monitor/internal/trace"
	"insider-monitor/internal/types"
	"insider-monitor/internal/webhook"
)

func main() {
	// Command-line flags
	configPath := flag.String("config", "config.yaml", "path to config file")
	tickers := flag.String("tickers", "", "comma-separated tickers to monitor (overrides config watchlist)")
	watchlistFile := flag.String("watchlist", "", "file with one ticker per line")
	addTicker := flag.String("add", "", "add a ticker to the stored watchlist and exit")
	all := flag.Bool("all", false, "monitor the market-wide recent filings feed")
	interval := flag.Int("interval", 0, "poll interval in minutes (overrides config)")
	once := flag.Bool("once", false, "run a single pass and exit")
	showStats := flag.Bool("stats", false, "print database statistics and exit")
	output := flag.String("output", "", "write scored transactions to a CSV file (implies -once)")
	dbPath := flag.String("db", "", "path to the SQLite database (overrides config)")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer func() { _ = trace.Shutdown(context.Background()) }()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *interval > 0 {
		cfg.Feeds.PollMinutes = *interval
	}

	db, err := openStorage(ctx, cfg)
	if err != nil {
		os.Exit(1)
	}
	defer db.Close()

	// Maintenance commands exit before any network activity.
	if *addTicker != "" {
		symbol := strings.ToUpper(strings.TrimSpace(*addTicker))
		if err := db.AddToWatchlist(symbol); err != nil {
			logger.ErrorWithErr(ctx, "Failed to add ticker", err, "ticker", symbol)
			os.Exit(1)
		}
		fmt.Printf("Added %s to watchlist\n", symbol)
		return
	}
	if *showStats {
		if err := printStats(db); err != nil {
			logger.ErrorWithErr(ctx, "Failed to read stats", err)
			os.Exit(1)
		}
		return
	}

	targets, err := resolveTargets(db, cfg, *tickers, *watchlistFile, *all)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to resolve targets", err)
		os.Exit(1)
	}

	source := buildSource(ctx, cfg)

	led, err := ledger.Load(db)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load dedup ledger", err)
		os.Exit(1)
	}

	dispatcher := webhook.NewDispatcher(db, buildSink(ctx, cfg))

	mcfg := monitor.Config{
		Targets:        targets,
		Interval:       time.Duration(cfg.Feeds.PollMinutes) * time.Minute,
		ErrorBackoff:   time.Duration(cfg.Feeds.BackoffSeconds) * time.Second,
		OneShot:        *once || *output != "",
		FetchDocuments: cfg.Details.FetchDocuments,
	}

	var rows []export.Row
	if *output != "" {
		mcfg.FetchDocuments = true
		mcfg.OnFiling = func(entry types.FilingEntry, scored []types.ScoredTransaction) {
			rows = append(rows, export.Rows(entry, scored)...)
		}
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		logger.Info(ctx, "Shutting down...")
		cancel()
	}()

	mon := monitor.New(source, led, dispatcher, mcfg)
	logger.Info(ctx, "Insider monitor started",
		"targets", strings.Join(targets, ","),
		"interval", mcfg.Interval.String(),
		"known_filings", led.Size(),
	)

	if err := mon.Run(ctx); err != nil && ctx.Err() == nil {
		logger.ErrorWithErr(ctx, "Monitor stopped with error", err)
		os.Exit(1)
	}

	if *output != "" {
		if err := export.WriteCSV(*output, rows); err != nil {
			logger.ErrorWithErr(ctx, "Failed to write export", err, "path", *output)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d rows to %s\n", len(rows), *output)
	}
}
