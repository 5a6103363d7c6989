package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/eshaffer321/receipt-ledger/internal/adapters/sources"
	"github.com/eshaffer321/receipt-ledger/internal/application/reconcile"
	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/audit"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/config"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/logging"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

// RunReconcile reads the receipt and statement files, runs one match run
// against the configured ledger and prints the outcome to out. An invalid
// matching policy is reported before any file or database is opened.
func RunReconcile(ctx context.Context, cfg *config.Config, flags *ReconcileFlags, out io.Writer) error {
	if _, err := cfg.Matching.Validate(); err != nil {
		return err
	}

	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "reconcile")
	operationID := logging.NewOperationID("reconcile")

	PrintHeader(out, flags.DryRun)

	receipts, err := sources.LoadReceiptsFile(flags.Receipts)
	if err != nil {
		return fmt.Errorf("failed to load receipts: %w", err)
	}
	statements, transactions, err := readStatements(flags.Statements, cfg, logger)
	if err != nil {
		return err
	}
	PrintConfiguration(out, cfg.Storage.DatabasePath, len(receipts), statements, flags.Reopen)

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	sink, err := newSink(cfg.Observability.Audit, logger)
	if err != nil {
		return err
	}

	svc, err := reconcile.NewService(cfg.Matching, store, sink, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()

	result, err := svc.ResolveAndCommit(ctx, receipts, transactions, flags.ToOptions(cfg, operationID))
	if err != nil {
		if result != nil {
			PrintRunSummary(out, result, nil)
		}
		return fmt.Errorf("match run failed: %w", err)
	}

	stats, err := store.GetStats(context.Background())
	if err != nil {
		logger.Warn("Failed to load ledger stats", "error", err)
	}
	PrintRunSummary(out, result, stats)
	return nil
}

func readStatements(path string, cfg *config.Config, logger *slog.Logger) ([]*sources.Statement, []model.Transaction, error) {
	files, err := sources.DiscoverStatements(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find statements: %w", err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no statement files found in %s", path)
	}

	accounts := make([]sources.Account, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		accounts = append(accounts, sources.Account{ID: a.ID, Label: a.Label, CardSuffix: a.CardSuffix})
	}

	var statements []*sources.Statement
	var transactions []model.Transaction
	for _, file := range files {
		st, err := sources.ReadStatementFile(file, accounts, cfg.Matching.DefaultCurrency)
		if err != nil {
			return nil, nil, err
		}
		for _, pe := range st.Errors {
			logger.Warn("Skipping statement row", "file", file, "row", pe.Row, "error", pe.Msg)
		}
		logger.Debug("Read statement", "file", file, "account_id", st.AccountID, "rows", len(st.Transactions))
		statements = append(statements, st)
		transactions = append(transactions, st.Transactions...)
	}
	return statements, transactions, nil
}

func newSink(cfg config.AuditConfig, logger *slog.Logger) (audit.Sink, error) {
	sinks := audit.MultiSink{audit.NewLogSink(logger)}
	if cfg.Path != "" {
		fileSink, err := audit.NewFileSink(cfg.Path)
		if err != nil {
			return nil, err
		}
		fileSink.Decisions = cfg.Decisions
		sinks = append(sinks, fileSink)
	}
	return sinks, nil
}
