package storage

import (
	"context"
	"time"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory)
// and makes testing with mocks straightforward.
type Repository interface {
	LedgerRepository
	ReviewRepository
	MatchRunRepository

	// SchemaVersion returns the latest applied migration version
	SchemaVersion(ctx context.Context) (int64, error)
	Close() error
}

// LedgerRepository handles ledger reads and the atomic write boundary
type LedgerRepository interface {
	// WithTx runs fn inside one storage transaction. The transaction commits
	// when fn returns nil and rolls back otherwise, including when ctx is
	// cancelled before the commit.
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error

	// CurrentMatches returns every current MATCHED entry
	CurrentMatches(ctx context.Context) ([]LedgerEntry, error)

	// ListLedger returns current entries matching the given filters with pagination
	ListLedger(ctx context.Context, filters LedgerFilters) (*LedgerListResult, error)

	// GetLedgerHistory returns every version of a transaction's entry, oldest first
	GetLedgerHistory(ctx context.Context, transactionID string) ([]LedgerEntry, error)

	// ListAccounts returns known accounts ordered by id
	ListAccounts(ctx context.Context) ([]Account, error)

	// GetStats returns aggregate statistics over current entries
	GetStats(ctx context.Context) (*Stats, error)
}

// LedgerTx is the typed write surface available inside WithTx.
type LedgerTx interface {
	// EnsureAccount creates the account if it does not exist. Empty label and
	// suffix never overwrite stored values.
	EnsureAccount(ctx context.Context, account Account) error

	// UpsertVendor returns the id for name, creating the vendor if needed
	UpsertVendor(ctx context.Context, name string) (int64, error)

	// UpsertLocation returns the id for a vendor address, creating it if needed
	UpsertLocation(ctx context.Context, vendorID int64, address string) (int64, error)

	// CurrentEntry returns the current entry of a transaction, or nil
	CurrentEntry(ctx context.Context, transactionID string) (*LedgerEntry, error)

	// CurrentEntryForReceipt returns the current entry holding a receipt, or nil
	CurrentEntryForReceipt(ctx context.Context, receiptID string) (*LedgerEntry, error)

	// SupersedeEntry marks an entry as no longer current
	SupersedeEntry(ctx context.Context, entryID int64, at time.Time) error

	// InsertEntry writes a new current entry and returns its id
	InsertEntry(ctx context.Context, entry *LedgerEntry) (int64, error)

	// UpsertReviewItem creates or replaces the review item for (kind, record id)
	UpsertReviewItem(ctx context.Context, item *ReviewItem) error

	// ResolveReviewItem marks an open review item resolved. It reports whether
	// an open item existed.
	ResolveReviewItem(ctx context.Context, kind, recordID, runID string, at time.Time) (bool, error)

	// MatchRun returns the run with the given id, or nil when there is none
	MatchRun(ctx context.Context, id string) (*MatchRun, error)

	// StartMatchRun inserts the run row the rest of the transaction refers to
	StartMatchRun(ctx context.Context, run *MatchRun) error

	// FinishMatchRun stores the run's final counts and status
	FinishMatchRun(ctx context.Context, run *MatchRun) error
}

// LedgerFilters defines filters for listing ledger entries
type LedgerFilters struct {
	AccountID string // Filter by account (empty = all)
	Status    string // MATCHED or UNMATCHED (empty = all)
	From      string // Posted on or after, YYYY-MM-DD (empty = no bound)
	To        string // Posted on or before, YYYY-MM-DD (empty = no bound)
	Vendor    string // Vendor name, compared by normalized token (empty = all)
	Limit     int    // Max results (0 = default 50)
	Offset    int    // Pagination offset
}

// LedgerListResult contains paginated ledger results
type LedgerListResult struct {
	Entries    []LedgerEntry `json:"entries"`
	TotalCount int           `json:"total_count"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
}

// ReviewRepository handles the manual review queue
type ReviewRepository interface {
	// ListReviewItems returns review items, optionally filtered by status
	ListReviewItems(ctx context.Context, filters ReviewFilters) ([]ReviewItem, error)
}

// ReviewFilters defines filters for listing review items
type ReviewFilters struct {
	Status string // Filter by status (empty = all open items)
	Limit  int    // Max results (0 = default 50)
}

// MatchRunRepository handles match run audit rows
type MatchRunRepository interface {
	// ListMatchRuns returns recent runs, newest first
	ListMatchRuns(ctx context.Context, limit int) ([]MatchRun, error)

	// GetMatchRun retrieves a run by id, or nil when it does not exist
	GetMatchRun(ctx context.Context, runID string) (*MatchRun, error)
}

const defaultListLimit = 50
