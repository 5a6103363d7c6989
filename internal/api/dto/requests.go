package dto

// LedgerListParams represents query parameters for listing ledger entries.
type LedgerListParams struct {
	AccountID string `json:"account_id"`
	Status    string `json:"status"`
	From      string `json:"from"`
	To        string `json:"to"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

// ReviewListParams represents query parameters for listing review items.
type ReviewListParams struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
}

// MatchRunListParams represents query parameters for listing match runs.
type MatchRunListParams struct {
	Limit int `json:"limit"`
}

// DefaultLedgerListParams returns default values for ledger list params.
func DefaultLedgerListParams() LedgerListParams {
	return LedgerListParams{Limit: 50}
}

// DefaultReviewListParams returns default values for review list params.
func DefaultReviewListParams() ReviewListParams {
	return ReviewListParams{Limit: 50}
}

// DefaultMatchRunListParams returns default values for match run list params.
func DefaultMatchRunListParams() MatchRunListParams {
	return MatchRunListParams{Limit: 20}
}
