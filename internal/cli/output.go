package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eshaffer321/receipt-ledger/internal/adapters/sources"
	"github.com/eshaffer321/receipt-ledger/internal/application/ledger"
	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, dryRun bool) {
	mode := "COMMIT"
	if dryRun {
		mode = "DRY-RUN"
	}
	fmt.Fprintf(w, "receipt-ledger: reconcile (%s mode)\n", mode)
}

// PrintConfiguration prints what the run is about to read
func PrintConfiguration(w io.Writer, dbPath string, receipts int, statements []*sources.Statement, reopen []string) {
	fmt.Fprintf(w, "Database: %s | Receipts: %d | Statements: %d", dbPath, receipts, len(statements))
	if len(reopen) > 0 {
		fmt.Fprintf(w, " | Reopen: %s", strings.Join(reopen, ","))
	}
	fmt.Fprintln(w)
	for _, st := range statements {
		fmt.Fprintf(w, "  %-12s %4d rows", st.AccountID, len(st.Transactions))
		if st.From != "" {
			fmt.Fprintf(w, "  %s .. %s", st.From, st.To)
		}
		if len(st.Errors) > 0 {
			fmt.Fprintf(w, "  (%d unreadable)", len(st.Errors))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

// PrintRunSummary prints the run result and, when stats is non-nil, the
// ledger totals after the run
func PrintRunSummary(w io.Writer, result *ledger.CommitResult, stats *storage.Stats) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Matched=%d Ambiguous=%d Unmatched=%d Invalid=%d Skipped=%d\n",
		result.Matched,
		result.Ambiguous,
		result.Unmatched,
		result.Invalid,
		result.Skipped)
	fmt.Fprintf(w, "Ledger: Created=%d Superseded=%d Unchanged=%d Reopened=%d | Review: Queued=%d Resolved=%d\n",
		result.EntriesCreated,
		result.EntriesSuperseded,
		result.EntriesUnchanged,
		result.Reopened,
		result.ReviewQueued,
		result.ReviewResolved)

	var review []model.MatchDecision
	for _, d := range result.Decisions {
		if d.Status != model.StatusMatched {
			review = append(review, d)
		}
	}
	if len(review) > 0 {
		fmt.Fprintln(w, "\nNeeds review:")
		for _, d := range review {
			fmt.Fprintf(w, "  - %s %s: %s", d.Status, d.ReceiptID, d.Reason)
			if d.TransactionID != "" {
				fmt.Fprintf(w, " (best %s, score %.2f)", d.TransactionID, d.Score)
			}
			fmt.Fprintln(w)
		}
	}

	if len(result.InvalidRecords) > 0 {
		fmt.Fprintln(w, "\nInvalid records:")
		for _, ie := range result.InvalidRecords {
			fmt.Fprintf(w, "  - %v\n", ie)
		}
	}

	if stats != nil && stats.TransactionCount > 0 {
		fmt.Fprintf(w, "\nLedger Stats: Transactions=%d Matched=%d (%.1f%%) Open review=%d Runs=%d\n",
			stats.TransactionCount,
			stats.MatchedCount,
			stats.MatchRate*100,
			stats.OpenReviewItems,
			stats.MatchRunCount)
	}

	switch {
	case result.DryRun:
		fmt.Fprintln(w, "\nDry run: nothing was written.")
	case result.Committed:
		fmt.Fprintf(w, "\nRun %s committed in %s.\n", result.RunID, result.Elapsed.Round(time.Millisecond))
	}
}
