package edgarobs

import (
	"context"
	"time"

	"insider-monitor/internal/interfaces"
	"insider-monitor/internal/logger"
	"insider-monitor/internal/trace"
	"insider-monitor/internal/types"
)

type observableSource struct {
	source interfaces.FilingSource
}

var _ interfaces.FilingSource = (*observableSource)(nil)

func Wrap(source interfaces.FilingSource) interfaces.FilingSource {
	return &observableSource{
		source: source,
	}
}

func (os *observableSource) Fetch(ctx context.Context, targets []string) ([]types.FilingEntry, error) {
	ctx, span := trace.StartSpan(ctx, "edgar.Fetch")
	defer span.End()

	start := time.Now()

	entries, err := os.source.Fetch(ctx, targets)
	if err != nil {
		logger.ErrorWithErr(ctx, "Feed fetch failed", err,
			"targets", len(targets),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.Info(ctx, "Feed fetch completed",
		"targets", len(targets),
		"entries", len(entries),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return entries, nil
}

func (os *observableSource) Download(ctx context.Context, entry types.FilingEntry) ([]byte, error) {
	ctx, span := trace.StartSpan(ctx, "edgar.Download")
	defer span.End()

	start := time.Now()

	body, err := os.source.Download(ctx, entry)
	if err != nil {
		logger.ErrorWithErr(ctx, "Filing download failed", err,
			"accession", entry.AccessionNumber,
			"ticker", entry.Ticker,
		)
		return nil, err
	}

	logger.Debug(ctx, "Filing downloaded",
		"accession", entry.AccessionNumber,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return body, nil
}
