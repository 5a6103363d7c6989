package dto

import "time"

// Health statuses
const (
	HealthOK          = "ok"
	HealthUnavailable = "unavailable"
)

// HealthResponse is returned by the health check endpoint. SchemaVersion is
// the ledger's latest applied migration; zero means the ledger has no schema.
type HealthResponse struct {
	Status        string `json:"status"`
	SchemaVersion int64  `json:"schema_version"`
	Error         string `json:"error,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// NewHealthResponse reports the ledger state at the current time.
func NewHealthResponse(schemaVersion int64, err error) HealthResponse {
	resp := HealthResponse{
		Status:        HealthOK,
		SchemaVersion: schemaVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	switch {
	case err != nil:
		resp.Status = HealthUnavailable
		resp.Error = ErrCodeUnavailable
	case schemaVersion <= 0:
		resp.Status = HealthUnavailable
		resp.Error = "ledger schema not migrated"
	}
	return resp
}

// MatchRunResponse represents a match run in API responses.
type MatchRunResponse struct {
	ID                string `json:"id"`
	StartedAt         string `json:"started_at"`
	CompletedAt       string `json:"completed_at,omitempty"`
	ElapsedMs         int64  `json:"elapsed_ms"`
	ReceiptsIn        int    `json:"receipts_in"`
	TransactionsIn    int    `json:"transactions_in"`
	Invalid           int    `json:"invalid"`
	Matched           int    `json:"matched"`
	Ambiguous         int    `json:"ambiguous"`
	Unmatched         int    `json:"unmatched"`
	EntriesCreated    int    `json:"entries_created"`
	EntriesSuperseded int    `json:"entries_superseded"`
	Reopened          int    `json:"reopened"`
	Policy            string `json:"policy,omitempty"`
	Status            string `json:"status"`
}

// MatchRunListResponse is returned when listing match runs.
type MatchRunListResponse struct {
	Runs  []MatchRunResponse `json:"runs"`
	Count int                `json:"count"`
}

// LedgerEntryResponse represents one ledger entry version.
type LedgerEntryResponse struct {
	ID            int64   `json:"id"`
	TransactionID string  `json:"transaction_id"`
	Version       int     `json:"version"`
	Status        string  `json:"status"`
	ReceiptID     string  `json:"receipt_id,omitempty"`
	Score         float64 `json:"score"`
	AccountID     string  `json:"account_id"`
	Vendor        string  `json:"vendor,omitempty"`
	Address       string  `json:"address,omitempty"`
	Category      string  `json:"category,omitempty"`
	Amount        string  `json:"amount"` // decimal text, signed as posted
	AmountMinor   int64   `json:"amount_minor"`
	Currency      string  `json:"currency"`
	PostedDate    string  `json:"posted_date"`
	Description   string  `json:"description"`
	MatchRunID    string  `json:"match_run_id"`
	CreatedAt     string  `json:"created_at"`
	SupersededAt  string  `json:"superseded_at,omitempty"`
	Current       bool    `json:"current"`
}

// LedgerListResponse is returned when listing ledger entries.
type LedgerListResponse struct {
	Entries    []LedgerEntryResponse `json:"entries"`
	TotalCount int                   `json:"total_count"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
}

// ReviewItemResponse represents a record waiting for manual review.
type ReviewItemResponse struct {
	Kind                   string  `json:"kind"`
	RecordID               string  `json:"record_id"`
	Status                 string  `json:"status"`
	CandidateTransactionID string  `json:"candidate_transaction_id,omitempty"`
	Score                  float64 `json:"score"`
	Reason                 string  `json:"reason,omitempty"`
	Vendor                 string  `json:"vendor,omitempty"`
	Amount                 string  `json:"amount,omitempty"`
	RecordDate             string  `json:"record_date,omitempty"`
	MatchRunID             string  `json:"match_run_id"`
	UpdatedAt              string  `json:"updated_at"`
}

// ReviewListResponse is returned when listing the review queue.
type ReviewListResponse struct {
	Items []ReviewItemResponse `json:"items"`
	Count int                  `json:"count"`
}

// AccountResponse represents a known account.
type AccountResponse struct {
	ID         string `json:"id"`
	Label      string `json:"label,omitempty"`
	CardSuffix string `json:"card_suffix,omitempty"`
}

// AccountListResponse is returned when listing accounts.
type AccountListResponse struct {
	Accounts []AccountResponse `json:"accounts"`
	Count    int               `json:"count"`
}

// AccountStatsResponse holds per-account figures.
type AccountStatsResponse struct {
	AccountID    string `json:"account_id"`
	Transactions int    `json:"transactions"`
	Matched      int    `json:"matched"`
	TotalSpend   int64  `json:"total_spend_minor"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	TransactionCount int                    `json:"transaction_count"`
	MatchedCount     int                    `json:"matched_count"`
	UnmatchedCount   int                    `json:"unmatched_count"`
	MatchRate        float64                `json:"match_rate"`
	OpenReviewItems  int                    `json:"open_review_items"`
	ReviewByStatus   map[string]int         `json:"review_by_status"`
	MatchRunCount    int                    `json:"match_run_count"`
	LastRunAt        string                 `json:"last_run_at,omitempty"`
	Accounts         []AccountStatsResponse `json:"accounts"`
}
