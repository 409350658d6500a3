package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"insider-monitor/internal/types"
)

func TestRowsFlattensTransactions(t *testing.T) {
	entry := types.FilingEntry{
		AccessionNumber: "0001234567-24-000001",
		Ticker:          "AAPL",
		FilingDate:      "2024-03-18",
	}
	scored := []types.ScoredTransaction{
		{
			Transaction: types.Transaction{
				InsiderName:   "Doe Jane",
				InsiderTitle:  "CEO",
				Code:          types.CodePurchase,
				Date:          "2024-03-18",
				Shares:        50000,
				PricePerShare: 30,
			},
			TotalValue: 1_500_000,
			Signal:     types.SignalStrongBuy,
		},
	}

	rows := Rows(entry, scored)
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}

	r := rows[0]
	if r.Ticker != "AAPL" || r.AccessionNumber != "0001234567-24-000001" {
		t.Errorf("Expected filing context on row, got %+v", r)
	}
	if r.Code != "P" {
		t.Errorf("Expected code P, got %s", r.Code)
	}
	if r.TotalValue != 1_500_000 {
		t.Errorf("Expected total value 1500000, got %f", r.TotalValue)
	}
	if r.Signal != "STRONG_BUY" {
		t.Errorf("Expected STRONG_BUY, got %s", r.Signal)
	}
}

func TestRowsMetadataOnlyFiling(t *testing.T) {
	entry := types.FilingEntry{
		AccessionNumber: "0001234567-24-000002",
		Ticker:          "MSFT",
		FilingDate:      "2024-03-18",
	}

	rows := Rows(entry, nil)
	if len(rows) != 1 {
		t.Fatalf("Expected placeholder row for metadata-only filing, got %d", len(rows))
	}
	if rows[0].Ticker != "MSFT" || rows[0].InsiderName != "" {
		t.Errorf("Expected bare filing row, got %+v", rows[0])
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	rows := []Row{
		{
			Ticker:          "AAPL",
			AccessionNumber: "0001234567-24-000001",
			FilingDate:      "2024-03-18",
			InsiderName:     "Doe Jane",
			Code:            "P",
			Shares:          50000,
			PricePerShare:   30,
			TotalValue:      1_500_000,
			Signal:          "STRONG_BUY",
		},
	}

	if err := WriteCSV(path, rows); err != nil {
		t.Fatalf("Expected write to succeed, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected file to exist, got %v", err)
	}

	content := string(data)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header plus 1 data line, got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "accession_number") || !strings.Contains(lines[0], "signal") {
		t.Errorf("Expected tagged header, got %s", lines[0])
	}
	if !strings.Contains(lines[1], "AAPL") || !strings.Contains(lines[1], "STRONG_BUY") {
		t.Errorf("Expected data row, got %s", lines[1])
	}
}
