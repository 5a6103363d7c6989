package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/eshaffer321/receipt-ledger/internal/cli"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/config"
)

func main() {
	flags, err := cli.ParseServeFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	cfg, err := config.LoadOrEnvWithPath(flags.ConfigPath, flags.ConfigSet)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if err := cli.RunServe(cfg, flags); err != nil {
		log.Fatalf("❌ API server failed: %v", err)
	}
}
