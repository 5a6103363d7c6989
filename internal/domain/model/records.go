// Package model holds the record and decision types shared by every stage of
// the reconciliation pipeline.
//
// Receipts and transactions arrive as already-parsed records with their
// amounts and dates still in text form. The normalizer turns them into
// NormalizedRecord values, which are the only shape the candidate generator,
// scorer and matcher ever look at.
package model

import "time"

// Receipt is a parsed receipt as produced by the upstream OCR collaborator.
type Receipt struct {
	ID          string  `json:"id"`
	Vendor      string  `json:"vendor"`
	Total       string  `json:"total"`
	Currency    string  `json:"currency,omitempty"`
	PurchasedAt string  `json:"purchased_at"`
	ImageRef    string  `json:"image_ref,omitempty"`
	Confidence  float64 `json:"confidence"`
	Location    string  `json:"location,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// Transaction is a bank statement line. Amount is signed: expenses are negative.
type Transaction struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency,omitempty"`
	PostedDate  string `json:"posted_date"`
	Description string `json:"description"`
}

// RecordKind tells receipts and transactions apart after normalization.
type RecordKind string

const (
	KindReceipt     RecordKind = "receipt"
	KindTransaction RecordKind = "transaction"
)

// NormalizedRecord is the common comparison shape.
//
// Amount is in minor units and in "spend" orientation: a 5.50 purchase on a
// receipt and a -5.50 posting on a statement both normalize to 550.
type NormalizedRecord struct {
	ID          string
	Kind        RecordKind
	Amount      int64
	Currency    string
	Date        time.Time // calendar date at UTC midnight
	Day         int64     // days since the unix epoch, used for bucketing
	TimeOfDay   time.Duration
	HasTime     bool
	VendorToken string
}
