package ledger

import (
	"time"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
)

// Posting pairs a raw statement line with its normalized form.
type Posting struct {
	Transaction model.Transaction
	Record      model.NormalizedRecord
}

// Input is everything one commit persists.
type Input struct {
	RunID       string
	OperationID string
	StartedAt   time.Time
	Policy      string // policy fingerprint stored on the run row

	Decisions []model.MatchDecision
	Receipts  []model.Receipt
	Postings  []Posting
	Invalid   []*model.InvalidInputError

	// Reopen lists transactions whose MATCHED entry may be replaced.
	Reopen []string

	// Accounts carries labels and card suffixes for known accounts.
	Accounts map[string]AccountInfo

	// DryRun plans and validates everything inside the transaction, then
	// rolls it back.
	DryRun bool

	// ReceiptsIn and TransactionsIn count the records handed to the run,
	// before normalization.
	ReceiptsIn     int
	TransactionsIn int
}

// AccountInfo is the configured description of an account.
type AccountInfo struct {
	Label      string
	CardSuffix string
}

// CommitResult is the typed outcome of a run, returned to the caller for
// presentation.
type CommitResult struct {
	RunID string `json:"run_id"`

	Matched   int `json:"matched"`
	Ambiguous int `json:"ambiguous"`
	Unmatched int `json:"unmatched"`
	Invalid   int `json:"invalid"`

	// Skipped counts receipts left alone because the ledger already
	// matches them.
	Skipped int `json:"skipped"`

	EntriesCreated    int `json:"entries_created"`
	EntriesSuperseded int `json:"entries_superseded"`
	EntriesUnchanged  int `json:"entries_unchanged"`
	Reopened          int `json:"reopened"`
	ReviewQueued      int `json:"review_queued"`
	ReviewResolved    int `json:"review_resolved"`

	Elapsed   time.Duration `json:"elapsed"`
	DryRun    bool          `json:"dry_run"`
	Committed bool          `json:"committed"`
	// AlreadyCommitted is set when the run id was committed by an earlier
	// call with the same inputs; nothing was written this time.
	AlreadyCommitted bool `json:"already_committed"`

	Decisions      []model.MatchDecision      `json:"decisions"`
	InvalidRecords []*model.InvalidInputError `json:"-"`
}

// Processed is the number of records that made it through validation.
func (r *CommitResult) Processed() int {
	return r.Matched + r.Ambiguous + r.Unmatched
}
