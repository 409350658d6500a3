// Package webhook delivers pipeline events to the downstream HTTP consumer
// and owns the persist-then-deliver dispatch step.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"insider-monitor/internal/interfaces"
	"insider-monitor/internal/types"
)

const defaultTimeout = 10 * time.Second

// Client posts JSON events to a single webhook URL.
type Client struct {
	url        string
	httpClient *http.Client
}

var _ interfaces.Sink = (*Client)(nil)

// NewClient creates a webhook client. A zero timeout uses the 10s default.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Deliver posts one event. Any 2xx response is success; everything else is a
// delivery failure.
func (c *Client) Deliver(ctx context.Context, event types.WebhookEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
