package storage

import "time"

// Ledger entry statuses. An entry is MATCHED when it carries a receipt and
// UNMATCHED when the transaction has none yet.
const (
	EntryMatched   = "MATCHED"
	EntryUnmatched = "UNMATCHED"
)

// Review item statuses
const (
	ReviewAmbiguous = "AMBIGUOUS"
	ReviewUnmatched = "UNMATCHED"
	ReviewInvalid   = "INVALID"
	ReviewResolved  = "RESOLVED"
)

// Account is a bank account or card that statement lines post to.
type Account struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	CardSuffix string    `json:"card_suffix,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Vendor is a distinct merchant name as printed on receipts.
type Vendor struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Token string `json:"token"` // normalized name used for lookups
}

// Location is a vendor address taken from a receipt.
type Location struct {
	ID       int64  `json:"id"`
	VendorID int64  `json:"vendor_id"`
	Address  string `json:"address"`
}

// LedgerEntry is one version of a transaction's reconciliation record.
// Exactly one version per transaction is current (SupersededAt nil).
type LedgerEntry struct {
	ID            int64   `json:"id"`
	TransactionID string  `json:"transaction_id"`
	Version       int     `json:"version"`
	ReceiptID     string  `json:"receipt_id,omitempty"` // empty = NULL
	Status        string  `json:"status"`
	Score         float64 `json:"score"`

	AccountID   string `json:"account_id"`
	VendorID    int64  `json:"vendor_id,omitempty"`   // 0 = NULL
	LocationID  int64  `json:"location_id,omitempty"` // 0 = NULL
	VendorName  string `json:"vendor_name,omitempty"`
	Address     string `json:"address,omitempty"`
	Category    string `json:"category,omitempty"`
	Amount      int64  `json:"amount"` // signed minor units as posted
	Currency    string `json:"currency"`
	PostedDate  string `json:"posted_date"`
	Description string `json:"description"`

	MatchRunID   string     `json:"match_run_id"`
	CreatedAt    time.Time  `json:"created_at"`
	SupersededAt *time.Time `json:"superseded_at,omitempty"`
}

// IsCurrent reports whether the entry has not been superseded.
func (e *LedgerEntry) IsCurrent() bool {
	return e.SupersededAt == nil
}

// ReviewItem is a record that needs a human: an ambiguous or unmatched
// receipt, or an input record that could not be parsed.
type ReviewItem struct {
	Kind                   string    `json:"kind"` // receipt | transaction
	RecordID               string    `json:"record_id"`
	Status                 string    `json:"status"`
	CandidateTransactionID string    `json:"candidate_transaction_id,omitempty"`
	Score                  float64   `json:"score"`
	Reason                 string    `json:"reason,omitempty"`
	Vendor                 string    `json:"vendor,omitempty"`
	Amount                 string    `json:"amount,omitempty"`
	RecordDate             string    `json:"record_date,omitempty"`
	MatchRunID             string    `json:"match_run_id"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// MatchRun is the audit row written once per committed run.
type MatchRun struct {
	ID                string    `json:"id"`
	StartedAt         time.Time `json:"started_at"`
	CompletedAt       time.Time `json:"completed_at"`
	ElapsedMs         int64     `json:"elapsed_ms"`
	ReceiptsIn        int       `json:"receipts_in"`
	TransactionsIn    int       `json:"transactions_in"`
	InvalidCount      int       `json:"invalid_count"`
	Matched           int       `json:"matched"`
	Ambiguous         int       `json:"ambiguous"`
	Unmatched         int       `json:"unmatched"`
	EntriesCreated    int       `json:"entries_created"`
	EntriesSuperseded int       `json:"entries_superseded"`
	Reopened          int       `json:"reopened"`
	Policy            string    `json:"policy"`
	Status            string    `json:"status"`
}

// Match run statuses
const (
	RunCommitting = "committing"
	RunCommitted  = "committed"
)

// Stats summarizes the current ledger
type Stats struct {
	TransactionCount int                     `json:"transaction_count"`
	MatchedCount     int                     `json:"matched_count"`
	UnmatchedCount   int                     `json:"unmatched_count"`
	MatchRate        float64                 `json:"match_rate"`
	OpenReviewItems  int                     `json:"open_review_items"`
	ReviewByStatus   map[string]int          `json:"review_by_status"`
	MatchRunCount    int                     `json:"match_run_count"`
	LastRunAt        *time.Time              `json:"last_run_at,omitempty"`
	AccountStats     map[string]AccountStats `json:"account_stats"`
}

// AccountStats contains per-account statistics
type AccountStats struct {
	Transactions int   `json:"transactions"`
	Matched      int   `json:"matched"`
	TotalSpend   int64 `json:"total_spend"` // minor units, expenses as positive
}
