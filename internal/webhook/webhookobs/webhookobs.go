package webhookobs

import (
	"context"
	"time"

	"insider-monitor/internal/interfaces"
	"insider-monitor/internal/logger"
	"insider-monitor/internal/trace"
	"insider-monitor/internal/types"
)

type observableSink struct {
	sink interfaces.Sink
}

var _ interfaces.Sink = (*observableSink)(nil)

func Wrap(sink interfaces.Sink) interfaces.Sink {
	return &observableSink{
		sink: sink,
	}
}

func (os *observableSink) Deliver(ctx context.Context, event types.WebhookEvent) error {
	ctx, span := trace.StartSpan(ctx, "webhook.Deliver")
	defer span.End()

	start := time.Now()

	err := os.sink.Deliver(ctx, event)
	if err != nil {
		logger.ErrorWithErr(ctx, "Event delivery failed", err,
			"ticker", event.Ticker,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}

	logger.Info(ctx, "Event delivered",
		"ticker", event.Ticker,
		"transactions", len(event.Transactions),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
