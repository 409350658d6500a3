package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"insider-monitor/internal/types"
)

func TestDeliverPostsEvent(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	event := types.WebhookEvent{
		Type:       "insider_trading",
		Ticker:     "AAPL",
		Company:    "Apple Inc.",
		FilingDate: "2024-03-18",
		URL:        "https://www.sec.gov/Archives/edgar/data/320193/000123456724000005.txt",
		Timestamp:  "2024-03-18T16:30:00Z",
	}

	if err := c.Deliver(context.Background(), event); err != nil {
		t.Fatalf("Expected delivery to succeed, got %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Expected application/json content type, got %s", gotContentType)
	}

	var decoded map[string]any
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("Expected valid JSON body, got %v", err)
	}
	if decoded["type"] != "insider_trading" {
		t.Errorf("Expected type insider_trading, got %v", decoded["type"])
	}
	if decoded["ticker"] != "AAPL" {
		t.Errorf("Expected ticker AAPL, got %v", decoded["ticker"])
	}
	if _, present := decoded["transactions"]; present {
		t.Error("Expected transactions to be omitted when empty")
	}
}

func TestDeliverIncludesTransactions(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	event := types.WebhookEvent{
		Type:   "insider_trading",
		Ticker: "AAPL",
		Transactions: []types.ScoredTransaction{
			{
				Transaction: types.Transaction{
					InsiderName:   "Doe Jane",
					Code:          types.CodePurchase,
					Shares:        50000,
					PricePerShare: 30,
				},
				TotalValue: 1_500_000,
				Signal:     types.SignalStrongBuy,
			},
		},
	}

	if err := c.Deliver(context.Background(), event); err != nil {
		t.Fatalf("Expected delivery to succeed, got %v", err)
	}

	var decoded struct {
		Transactions []map[string]any `json:"transactions"`
	}
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("Expected valid JSON body, got %v", err)
	}
	if len(decoded.Transactions) != 1 {
		t.Fatalf("Expected 1 transaction in payload, got %d", len(decoded.Transactions))
	}
	if decoded.Transactions[0]["signal"] != "STRONG_BUY" {
		t.Errorf("Expected STRONG_BUY signal, got %v", decoded.Transactions[0]["signal"])
	}
}

func TestDeliverNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if err := c.Deliver(context.Background(), types.WebhookEvent{Type: "insider_trading"}); err == nil {
		t.Error("Expected error for 500 response")
	}
}

func TestDeliverUnreachableEndpoint(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 500*time.Millisecond)
	if err := c.Deliver(context.Background(), types.WebhookEvent{Type: "insider_trading"}); err == nil {
		t.Error("Expected error for unreachable endpoint")
	}
}
