package model

import (
	"errors"
	"fmt"
)

// Sentinel causes for InvalidInputError.
var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrMissingID       = errors.New("missing id")
	ErrDuplicateID     = errors.New("duplicate id")
)

// InvalidInputError reports a single malformed record. The record is left out
// of matching; the run carries on.
type InvalidInputError struct {
	Kind     RecordKind
	RecordID string
	Field    string
	Value    string
	Err      error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s %q: %s %q: %v", e.Kind, e.RecordID, e.Field, e.Value, e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// ConfigurationError aborts a run before any matching happens.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a storage failure. The commit it interrupted was
// rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RunReplayError rejects a commit that reuses the id of a committed run but
// was built from different inputs.
type RunReplayError struct {
	RunID  string
	Reason string
}

func (e *RunReplayError) Error() string {
	return fmt.Sprintf("match run %s was already committed with different %s", e.RunID, e.Reason)
}

// ReopenConflictError is returned when a run tries to rematch ledger state
// that is already MATCHED without an explicit reopen. Either the transaction
// already holds a different receipt, or the receipt is already attached to a
// different transaction (CurrentTransactionID set).
type ReopenConflictError struct {
	TransactionID        string
	ReceiptID            string
	CurrentReceiptID     string
	CurrentTransactionID string
}

func (e *ReopenConflictError) Error() string {
	if e.CurrentTransactionID != "" {
		return fmt.Sprintf("receipt %s is already matched to transaction %s (proposed %s); reopen it first",
			e.ReceiptID, e.CurrentTransactionID, e.TransactionID)
	}
	return fmt.Sprintf("transaction %s is already matched to receipt %s (proposed %s); reopen it first",
		e.TransactionID, e.CurrentReceiptID, e.ReceiptID)
}
