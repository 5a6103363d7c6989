package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eshaffer321/receipt-ledger/internal/application/ledger"
	"github.com/eshaffer321/receipt-ledger/internal/application/reconcile"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/config"
)

// ReconcileFlags are the flags of the reconcile command
type ReconcileFlags struct {
	ConfigPath string
	// ConfigSet reports whether -config was given on the command line.
	ConfigSet  bool
	Receipts   string
	Statements string
	Reopen     []string
	DryRun     bool
	Verbose    bool
	Timeout    time.Duration
}

// ParseReconcileFlags parses reconcile flags from args
func ParseReconcileFlags(args []string, output io.Writer) (*ReconcileFlags, error) {
	var flags ReconcileFlags
	var reopen string

	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&flags.ConfigPath, "config", "config.yaml", "Configuration file path")
	fs.StringVar(&flags.Receipts, "receipts", "", "Receipts JSON file")
	fs.StringVar(&flags.Statements, "statements", "", "Statement CSV file or directory of CSV files")
	fs.StringVar(&reopen, "reopen", "", "Comma-separated transaction ids whose match may be replaced")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "Plan the run and roll it back")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	fs.DurationVar(&flags.Timeout, "timeout", 2*time.Minute, "Abort the run after this long")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	flags.ConfigSet = flagSet(fs, "config")

	if flags.Receipts == "" || flags.Statements == "" {
		return nil, fmt.Errorf("both -receipts and -statements are required")
	}
	if flags.Timeout <= 0 {
		return nil, fmt.Errorf("-timeout must be positive")
	}
	for _, id := range strings.Split(reopen, ",") {
		if id = strings.TrimSpace(id); id != "" {
			flags.Reopen = append(flags.Reopen, id)
		}
	}
	return &flags, nil
}

// ToOptions converts the flags to reconcile.Options
func (f ReconcileFlags) ToOptions(cfg *config.Config, operationID string) reconcile.Options {
	accounts := make(map[string]ledger.AccountInfo, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		accounts[a.ID] = ledger.AccountInfo{Label: a.Label, CardSuffix: a.CardSuffix}
	}
	return reconcile.Options{
		DryRun:      f.DryRun,
		Reopen:      f.Reopen,
		OperationID: operationID,
		Accounts:    accounts,
	}
}

// flagSet reports whether the named flag was given in args.
func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
