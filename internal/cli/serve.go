package cli

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/receipt-ledger/internal/api"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/config"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/logging"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	ConfigPath string
	ConfigSet  bool
	Port       string
	Verbose    bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags(args []string, output io.Writer) (*ServeFlags, error) {
	flags := &ServeFlags{}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&flags.ConfigPath, "config", "config.yaml", "Configuration file path")
	fs.StringVar(&flags.Port, "port", "", "Port to listen on (overrides config)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	flags.ConfigSet = flagSet(fs, "config")
	return flags, nil
}

// RunServe runs the review API server.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	// Set up logging
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	// Initialize storage
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server := api.NewServer(apiConfig(cfg, flags), store, logger)

	// Handle graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}

func apiConfig(cfg *config.Config, flags *ServeFlags) api.Config {
	out := api.DefaultConfig()
	if cfg.API.Port != "" {
		out.Port = cfg.API.Port
	}
	if flags.Port != "" {
		out.Port = flags.Port
	}
	if len(cfg.API.AllowedOrigins) > 0 {
		out.AllowedOrigins = cfg.API.AllowedOrigins
	}
	return out
}
