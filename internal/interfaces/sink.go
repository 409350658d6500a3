package interfaces

import (
	"context"

	"insider-monitor/internal/types"
)

// Sink delivers pipeline events to the downstream webhook consumer.
// Any 2xx response is success; everything else is a delivery failure.
type Sink interface {
	Deliver(ctx context.Context, event types.WebhookEvent) error
}
