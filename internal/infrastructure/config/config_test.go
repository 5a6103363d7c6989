package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
env: prod
storage:
  database_path: /var/lib/ledger/ledger.db
matching:
  amount_weight: 0.6
  date_weight: 0.2
  vendor_weight: 0.2
  date_window_days: 3
  amount_epsilon: 5
  min_score: 0.7
  default_currency: usd
accounts:
  - id: visa
    label: visa
    card_suffix: "4242"
  - id: chequing
    label: td-chequing
observability:
  logging:
    level: debug
    format: json
  audit:
    path: runs.jsonl
    decisions: true
api:
  port: "9000"
  allowed_origins: ["https://ledger.example.com"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, "/var/lib/ledger/ledger.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 0.6, cfg.Matching.AmountWeight)
	assert.Equal(t, 3, cfg.Matching.DateWindowDays)
	assert.Equal(t, int64(5), cfg.Matching.AmountEpsilon)
	assert.Equal(t, "usd", cfg.Matching.DefaultCurrency)
	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "4242", cfg.Accounts[0].CardSuffix)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.True(t, cfg.Observability.Audit.Decisions)
	assert.Equal(t, "9000", cfg.API.Port)

	p, err := cfg.Matching.Validate()
	require.NoError(t, err)
	assert.Equal(t, "USD", p.DefaultCurrency)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
matching:
  min_score: 0.75
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.Matching.MinScore)
	assert.Equal(t, 5, cfg.Matching.DateWindowDays)
	assert.Equal(t, "CAD", cfg.Matching.DefaultCurrency)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.Equal(t, "8085", cfg.API.Port)
}

func TestLoad_DatabasePathFollowsEnv(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"dev", "ledger_dev.db"},
		{"stage", "ledger_stage.db"},
		{"PROD", "ledger.db"},
		{"", "ledger_dev.db"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, "env: \""+tt.env+"\"\n"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Storage.DatabasePath)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "matching: [unclosed"))

	var cerr *model.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, "failed to parse")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LEDGER_DB_PATH", "test.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("AUDIT_LOG_PATH", "audit.jsonl")
	t.Setenv("LEDGER_DEFAULT_CURRENCY", "EUR")

	cfg := LoadFromEnv()

	assert.Equal(t, "test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
	assert.Equal(t, "audit.jsonl", cfg.Observability.Audit.Path)
	assert.Equal(t, "EUR", cfg.Matching.DefaultCurrency)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("LEDGER_DB_PATH", "")
	t.Setenv("LEDGER_ENV", "stage")

	cfg := LoadFromEnv()

	assert.Equal(t, EnvStage, cfg.Env)
	assert.Equal(t, "ledger_stage.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "CAD", cfg.Matching.DefaultCurrency)
}

func TestLoadOrEnvWithPath_FallbackToEnv(t *testing.T) {
	t.Setenv("LEDGER_DB_PATH", "fallback.db")
	t.Setenv("LEDGER_DEFAULT_CURRENCY", "eur")

	cfg, err := LoadOrEnvWithPath(filepath.Join(t.TempDir(), "config.yaml"), false)

	require.NoError(t, err)
	assert.Equal(t, "fallback.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "EUR", cfg.Matching.DefaultCurrency)
}

func TestLoadOrEnvWithPath_ExplicitMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")

	_, err := LoadOrEnvWithPath(path, true)

	var cerr *model.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, path, cerr.Field)
}

func TestLoadOrEnvWithPath_BrokenFileIsNotReplacedByEnv(t *testing.T) {
	t.Setenv("LEDGER_DB_PATH", "fallback.db")
	path := writeConfig(t, `
matching:
  amount_weight: oops
  min_score: 0.95
`)

	for _, explicit := range []bool{true, false} {
		cfg, err := LoadOrEnvWithPath(path, explicit)

		var cerr *model.ConfigurationError
		require.ErrorAs(t, err, &cerr, "explicit=%v", explicit)
		assert.Nil(t, cfg)
	}
}

func TestLoadOrEnvWithPath_ValidatesMatching(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"min score above one", "matching:\n  min_score: 1.5\n", "min_score"},
		{"all weights zero", "matching:\n  amount_weight: 0\n  date_weight: 0\n  vendor_weight: 0\n", "weights"},
		{"unknown currency", "matching:\n  default_currency: XYZ1\n", "default_currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadOrEnvWithPath(writeConfig(t, tt.yaml), true)

			var cerr *model.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestLoadOrEnvWithPath_NormalizesMatching(t *testing.T) {
	cfg, err := LoadOrEnvWithPath(writeConfig(t, `
matching:
  amount_weight: 2
  date_weight: 1
  vendor_weight: 1
  default_currency: usd
`), true)

	require.NoError(t, err)
	assert.InDelta(t, 0.5, cfg.Matching.AmountWeight, 1e-9)
	assert.Equal(t, "USD", cfg.Matching.DefaultCurrency)
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "expanded.db")
	t.Setenv("TEST_AUDIT_PATH", "expanded.jsonl")

	cfg, err := Load(writeConfig(t, `
storage:
  database_path: "${TEST_DB_PATH}"
observability:
  audit:
    path: "${TEST_AUDIT_PATH}"
`))

	require.NoError(t, err)
	assert.Equal(t, "expanded.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "expanded.jsonl", cfg.Observability.Audit.Path)
}

func TestAccount(t *testing.T) {
	cfg := &Config{Accounts: []AccountConfig{{ID: "visa", Label: "Visa"}}}

	a, ok := cfg.Account("visa")
	assert.True(t, ok)
	assert.Equal(t, "Visa", a.Label)

	_, ok = cfg.Account("amex")
	assert.False(t, ok)
}
