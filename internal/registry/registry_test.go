package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const tickerFeed = `{
	"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
	"1": {"cik_str": 789019, "ticker": "MSFT", "title": "MICROSOFT CORP"},
	"2": {"cik_str": 1045810, "ticker": "NVDA", "title": "NVIDIA CORP"}
}`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(tickerFeed))
	if err != nil {
		t.Fatalf("Expected parse to succeed, got %v", err)
	}

	if r.Len() != 3 {
		t.Errorf("Expected 3 mappings, got %d", r.Len())
	}

	cik, ok := r.Lookup("AAPL")
	if !ok {
		t.Fatal("Expected AAPL to resolve")
	}
	if cik != "0000320193" {
		t.Errorf("Expected zero-padded CIK 0000320193, got %s", cik)
	}

	ticker, ok := r.Ticker("0001045810")
	if !ok || ticker != "NVDA" {
		t.Errorf("Expected NVDA for CIK 0001045810, got %s", ticker)
	}

	if name := r.CompanyName("MSFT"); name != "MICROSOFT CORP" {
		t.Errorf("Expected MICROSOFT CORP, got %s", name)
	}
}

func TestLookupCaseInsensitive(t *testing.T) {
	r, err := Parse([]byte(tickerFeed))
	if err != nil {
		t.Fatalf("Expected parse to succeed, got %v", err)
	}

	if _, ok := r.Lookup("aapl"); !ok {
		t.Error("Expected lowercase symbol to resolve")
	}
	if _, ok := r.Lookup("TSLA"); ok {
		t.Error("Expected unmapped symbol to miss")
	}
}

func TestParseInvalidPayload(t *testing.T) {
	if _, err := Parse([]byte("<html>rate limited</html>")); err == nil {
		t.Error("Expected error for non-JSON payload")
	}
}

func TestLoad(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(tickerFeed))
	}))
	defer srv.Close()

	r, err := Load(context.Background(), srv.Client(), srv.URL, "test-agent/1.0 (test@example.com)")
	if err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}
	if r.Len() != 3 {
		t.Errorf("Expected 3 mappings, got %d", r.Len())
	}
	if gotUA != "test-agent/1.0 (test@example.com)" {
		t.Errorf("Expected contact User-Agent to be sent, got %q", gotUA)
	}
}

func TestLoadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := Load(context.Background(), srv.Client(), srv.URL, "test-agent"); err == nil {
		t.Error("Expected error for non-200 response")
	}
}
