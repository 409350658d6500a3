// Package export writes scored filings to CSV for offline review.
package export

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"insider-monitor/internal/types"
)

// Row is one transaction flattened with its filing context.
type Row struct {
	Ticker           string  `csv:"ticker"`
	AccessionNumber  string  `csv:"accession_number"`
	FilingDate       string  `csv:"filing_date"`
	InsiderName      string  `csv:"insider_name"`
	InsiderTitle     string  `csv:"insider_title"`
	Code             string  `csv:"transaction_code"`
	Date             string  `csv:"transaction_date"`
	Shares           float64 `csv:"shares"`
	PricePerShare    float64 `csv:"price_per_share"`
	TotalValue       float64 `csv:"total_value"`
	SharesOwnedAfter float64 `csv:"shares_owned_after"`
	Signal           string  `csv:"signal"`
}

// Rows flattens a filing and its scored transactions. A filing with no
// transactions still produces one row so the filing itself is visible.
func Rows(entry types.FilingEntry, scored []types.ScoredTransaction) []Row {
	if len(scored) == 0 {
		return []Row{{
			Ticker:          entry.Ticker,
			AccessionNumber: entry.AccessionNumber,
			FilingDate:      entry.FilingDate,
		}}
	}

	rows := make([]Row, 0, len(scored))
	for _, s := range scored {
		rows = append(rows, Row{
			Ticker:           entry.Ticker,
			AccessionNumber:  entry.AccessionNumber,
			FilingDate:       entry.FilingDate,
			InsiderName:      s.InsiderName,
			InsiderTitle:     s.InsiderTitle,
			Code:             string(s.Code),
			Date:             s.Date,
			Shares:           s.Shares,
			PricePerShare:    s.PricePerShare,
			TotalValue:       s.TotalValue,
			SharesOwnedAfter: s.SharesOwnedAfter,
			Signal:           string(s.Signal),
		})
	}
	return rows
}

// WriteCSV writes rows to path, replacing any existing file.
func WriteCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := gocsv.Marshal(&rows, f); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
