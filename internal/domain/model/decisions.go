package model

import "time"

// ScoreBreakdown explains a composite score.
type ScoreBreakdown struct {
	Amount      float64 `json:"amount"`
	Date        float64 `json:"date"`
	Vendor      float64 `json:"vendor"`
	DateGapDays int     `json:"date_gap_days"` // posted day minus purchase day
	AmountDiff  int64   `json:"amount_diff"`   // absolute, minor units
}

// AbsDateGap returns the date gap without its direction.
func (b ScoreBreakdown) AbsDateGap() int {
	if b.DateGapDays < 0 {
		return -b.DateGapDays
	}
	return b.DateGapDays
}

// ScoredCandidate is a (receipt, transaction) pair with its score.
// It only lives for the duration of one match run.
type ScoredCandidate struct {
	ReceiptID     string
	TransactionID string
	Score         float64
	Breakdown     ScoreBreakdown

	// PurchaseTime is the receipt's time of day, valid when PurchaseTimed.
	PurchaseTime  time.Duration
	PurchaseTimed bool
}

// DecisionStatus is the terminal classification of a receipt.
type DecisionStatus string

const (
	StatusMatched   DecisionStatus = "MATCHED"
	StatusAmbiguous DecisionStatus = "AMBIGUOUS"
	StatusUnmatched DecisionStatus = "UNMATCHED"
)

// MatchDecision is the matcher's verdict for one receipt. For AMBIGUOUS
// decisions TransactionID and Score describe the best candidate, kept for
// manual review; for UNMATCHED both are empty.
type MatchDecision struct {
	ReceiptID     string         `json:"receipt_id"`
	TransactionID string         `json:"transaction_id,omitempty"`
	Score         float64        `json:"score"`
	Status        DecisionStatus `json:"status"`
	RunID         string         `json:"run_id"`
	Reason        string         `json:"reason,omitempty"`
}

// Decision reasons
const (
	ReasonCommitted     = "committed"
	ReasonNoCandidates  = "no candidates within date window and amount tolerance"
	ReasonBelowMinScore = "best candidate below minimum score"
	ReasonClaimed       = "candidates claimed by better matches"
	ReasonNearTie       = "top candidates too close to auto-resolve"
	ReasonZeroScore     = "candidates share no signal with the receipt"
)
