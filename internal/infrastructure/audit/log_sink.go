package audit

import (
	"context"
	"log/slog"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
)

// LogSink writes audit events as structured log records.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink on logger. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("system", "audit")}
}

func (s *LogSink) RunCompleted(ctx context.Context, summary RunSummary) error {
	attrs := []any{
		"run_id", summary.RunID,
		"matched", summary.Matched,
		"ambiguous", summary.Ambiguous,
		"unmatched", summary.Unmatched,
		"invalid", summary.Invalid,
		"entries_created", summary.EntriesCreated,
		"entries_superseded", summary.EntriesSuperseded,
		"elapsed_ms", summary.Elapsed.Milliseconds(),
	}
	if summary.OperationID != "" {
		attrs = append(attrs, "operation_id", summary.OperationID)
	}
	if summary.DryRun {
		attrs = append(attrs, "dry_run", true)
	}

	if summary.Error != "" {
		s.logger.ErrorContext(ctx, "Match run failed", append(attrs, "error", summary.Error)...)
		return nil
	}
	s.logger.InfoContext(ctx, "Match run completed", attrs...)
	return nil
}

func (s *LogSink) Decision(ctx context.Context, d model.MatchDecision) error {
	s.logger.DebugContext(ctx, "Match decision",
		"run_id", d.RunID,
		"receipt_id", d.ReceiptID,
		"transaction_id", d.TransactionID,
		"status", string(d.Status),
		"score", d.Score,
		"reason", d.Reason,
	)
	return nil
}
