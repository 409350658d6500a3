package types

// TransactionCode is the single-letter SEC Form 4 transaction code.
type TransactionCode string

const (
	CodePurchase        TransactionCode = "P"
	CodeSale            TransactionCode = "S"
	CodeMultiple        TransactionCode = "M"
	CodeAward           TransactionCode = "A"
	CodeSaleToIssuer    TransactionCode = "D"
	CodeExercisePayment TransactionCode = "F"
	CodeGift            TransactionCode = "G"
	CodeOptionExercise  TransactionCode = "X"
)

var codeDescriptions = map[TransactionCode]string{
	CodePurchase:        "Purchase",
	CodeSale:            "Sale",
	CodeMultiple:        "Multiple transactions",
	CodeAward:           "Grant/Award",
	CodeSaleToIssuer:    "Sale to issuer",
	CodeExercisePayment: "Payment of exercise price",
	CodeGift:            "Gift",
	CodeOptionExercise:  "Option exercise",
}

// Description returns the human-readable transaction type. Unrecognized
// codes fall back to the raw code so nothing is silently lost.
func (c TransactionCode) Description() string {
	if d, ok := codeDescriptions[c]; ok {
		return d
	}
	if c == "" {
		return "Unknown"
	}
	return string(c)
}

// Signal is the heuristic directional classification of a transaction.
type Signal string

const (
	SignalStrongBuy  Signal = "STRONG_BUY"
	SignalBuy        Signal = "BUY"
	SignalNeutral    Signal = "NEUTRAL"
	SignalSell       Signal = "SELL"
	SignalStrongSell Signal = "STRONG_SELL"
)

// FilingEntry is one Form 4 disclosure as discovered from a feed. The
// accession number is the regulator-assigned identity and the sole dedup key;
// every other field may be re-enriched on a later fetch.
type FilingEntry struct {
	AccessionNumber string `json:"accession_number"`
	CIK             string `json:"cik"`
	Ticker          string `json:"ticker"`
	CompanyName     string `json:"company_name"`
	FilingDate      string `json:"filing_date"`
	FiledAt         string `json:"filed_at"`
	URL             string `json:"url"`
}

// FilerIdentity names the reporting owner of a filing.
type FilerIdentity struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Transaction is one reported non-derivative trade extracted from a filing body.
type Transaction struct {
	AccessionNumber  string          `json:"accession_number"`
	InsiderName      string          `json:"insider_name"`
	InsiderTitle     string          `json:"insider_title"`
	Code             TransactionCode `json:"transaction_code"`
	Date             string          `json:"transaction_date"`
	Shares           float64         `json:"shares"`
	PricePerShare    float64         `json:"price_per_share"`
	SharesOwnedAfter float64         `json:"shares_owned_after"`
}

// TotalValue is always computed, never trusted from the source document.
func (t Transaction) TotalValue() float64 {
	return t.Shares * t.PricePerShare
}

// ScoredTransaction pairs a transaction with its derived signal for
// webhook payloads and exports. The signal is never persisted.
type ScoredTransaction struct {
	Transaction
	TotalValue float64 `json:"total_value"`
	Signal     Signal  `json:"signal"`
}

// WebhookEvent is the JSON object posted to the downstream consumer.
type WebhookEvent struct {
	Type         string              `json:"type"`
	Ticker       string              `json:"ticker"`
	Company      string              `json:"company"`
	FilingDate   string              `json:"filing_date"`
	URL          string              `json:"url"`
	Timestamp    string              `json:"timestamp"`
	Transactions []ScoredTransaction `json:"transactions,omitempty"`
}

// DeliveryResult reports the outcome of dispatching one filing. Persisted
// and Delivered move independently: a filing stays recorded even when the
// webhook attempt fails.
type DeliveryResult struct {
	AccessionNumber string `json:"accession_number"`
	Ticker          string `json:"ticker"`
	Persisted       bool   `json:"persisted"`
	Delivered       bool   `json:"delivered"`
	Transactions    int    `json:"transactions"`
}

// PassStats summarizes one pipeline pass over the tracked targets.
type PassStats struct {
	Fetched   int `json:"fetched"`
	New       int `json:"new"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}
