// Package storage provides SQLite-backed persistence for filings,
// transactions, the seen-set, and the watchlist.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"insider-monitor/internal/types"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/insider-monitor/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "insider-monitor", "data.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS filings (
			accession_number TEXT PRIMARY KEY,
			ticker           TEXT,
			company_name     TEXT,
			cik              TEXT,
			filing_date      TEXT,
			filed_at         TEXT,
			url              TEXT,
			created_at       INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			accession_number   TEXT NOT NULL REFERENCES filings(accession_number) ON DELETE CASCADE,
			insider_name       TEXT,
			insider_title      TEXT,
			transaction_code   TEXT,
			transaction_date   TEXT,
			shares             REAL NOT NULL DEFAULT 0,
			price_per_share    REAL NOT NULL DEFAULT 0,
			shares_owned_after REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS seen_entries (
			accession_number TEXT PRIMARY KEY,
			first_seen       INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS watchlist (
			ticker     TEXT PRIMARY KEY,
			active     INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_filings_ticker ON filings(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_accession ON transactions(accession_number)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SeenIDs bulk-loads every recorded accession number.
func (s *Storage) SeenIDs() (map[string]struct{}, error) {
	rows, err := s.db.Query(`SELECT accession_number FROM seen_entries`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen entries: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan seen entry: %w", err)
		}
		seen[id] = struct{}{}
	}
	return seen, rows.Err()
}

// RecordSeen durably marks an accession number as processed. Inserting an
// already-recorded id is a no-op.
func (s *Storage) RecordSeen(accessionNumber string, firstSeen time.Time) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO seen_entries (accession_number, first_seen) VALUES (?, ?)`,
		accessionNumber, firstSeen.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record seen entry: %w", err)
	}
	return nil
}

// UpsertFiling persists a filing and replaces its extracted transactions.
func (s *Storage) UpsertFiling(entry types.FilingEntry, txs []types.Transaction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO filings
			(accession_number, ticker, company_name, cik, filing_date, filed_at, url, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		entry.AccessionNumber, entry.Ticker, entry.CompanyName, entry.CIK,
		entry.FilingDate, entry.FiledAt, entry.URL, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert filing: %w", err)
	}

	if _, err = tx.Exec(`DELETE FROM transactions WHERE accession_number = ?`, entry.AccessionNumber); err != nil {
		return fmt.Errorf("failed to clear stale transactions: %w", err)
	}

	for _, t := range txs {
		_, err = tx.Exec(`
			INSERT INTO transactions
				(accession_number, insider_name, insider_title, transaction_code,
				 transaction_date, shares, price_per_share, shares_owned_after)
			VALUES (?,?,?,?,?,?,?,?)`,
			entry.AccessionNumber, t.InsiderName, t.InsiderTitle, string(t.Code),
			t.Date, t.Shares, t.PricePerShare, t.SharesOwnedAfter,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	return tx.Commit()
}

// GetTransactions returns the stored transactions for one filing.
func (s *Storage) GetTransactions(accessionNumber string) ([]types.Transaction, error) {
	rows, err := s.db.Query(`
		SELECT accession_number, insider_name, insider_title, transaction_code,
		       transaction_date, shares, price_per_share, shares_owned_after
		FROM transactions WHERE accession_number = ? ORDER BY id`, accessionNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []types.Transaction
	for rows.Next() {
		var t types.Transaction
		var code string
		err := rows.Scan(&t.AccessionNumber, &t.InsiderName, &t.InsiderTitle, &code,
			&t.Date, &t.Shares, &t.PricePerShare, &t.SharesOwnedAfter)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Code = types.TransactionCode(code)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// AddToWatchlist inserts a ticker; re-adding an existing ticker reactivates it.
func (s *Storage) AddToWatchlist(ticker string) error {
	_, err := s.db.Exec(`
		INSERT INTO watchlist (ticker, active, created_at) VALUES (?, 1, ?)
		ON CONFLICT(ticker) DO UPDATE SET active = 1`,
		ticker, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

// Watchlist returns all active tickers.
func (s *Storage) Watchlist() ([]string, error) {
	rows, err := s.db.Query(`SELECT ticker FROM watchlist WHERE active = 1 ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// Stats summarizes the filing history.
type Stats struct {
	TotalFilings int
	Last24h      int
	TopTickers   map[string]int
}

// GetStats reports database statistics for the CLI stats view.
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{TopTickers: make(map[string]int)}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM filings`).Scan(&stats.TotalFilings); err != nil {
		return nil, fmt.Errorf("failed to count filings: %w", err)
	}

	yesterday := time.Now().Add(-24 * time.Hour).UnixNano()
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM filings WHERE created_at > ?`, yesterday).Scan(&stats.Last24h); err != nil {
		return nil, fmt.Errorf("failed to count recent filings: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT ticker, COUNT(*) AS count FROM filings
		WHERE ticker IS NOT NULL AND ticker != ''
		GROUP BY ticker ORDER BY count DESC LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("failed to query top tickers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticker string
		var count int
		if err := rows.Scan(&ticker, &count); err != nil {
			return nil, fmt.Errorf("failed to scan ticker count: %w", err)
		}
		stats.TopTickers[ticker] = count
	}
	return stats, rows.Err()
}
