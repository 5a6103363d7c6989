// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg, err := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	weights := cfg.Matching.AmountWeight
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
	"github.com/eshaffer321/receipt-ledger/internal/domain/policy"
)

// Environments select the default database file
const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config represents the entire application configuration
type Config struct {
	Env           string              `yaml:"env"`
	Storage       StorageConfig       `yaml:"storage"`
	Matching      policy.Policy       `yaml:"matching"`
	Accounts      []AccountConfig     `yaml:"accounts"`
	Observability ObservabilityConfig `yaml:"observability"`
	API           APIConfig           `yaml:"api"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// AccountConfig describes one bank account or card.
// Label is matched against statement file names; CardSuffix against the
// card column of statement rows.
type AccountConfig struct {
	ID         string `yaml:"id"`
	Label      string `yaml:"label"`
	CardSuffix string `yaml:"card_suffix"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Audit   AuditConfig   `yaml:"audit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text (maven style) or json
}

// AuditConfig controls the run audit log
type AuditConfig struct {
	Path      string `yaml:"path"`      // JSON lines file; empty disables it
	Decisions bool   `yaml:"decisions"` // also write one line per decision
}

// APIConfig holds settings for the review API
type APIConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads and parses the config file. Fields the file leaves out keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${LEDGER_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	cfg := defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, &model.ConfigurationError{Field: path, Reason: fmt.Sprintf("failed to parse: %v", err)}
	}
	cfg.applyEnvDefaults()

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := defaults()
	cfg.Storage.DatabasePath = os.Getenv("LEDGER_DB_PATH")
	cfg.Matching.DefaultCurrency = getEnv("LEDGER_DEFAULT_CURRENCY", cfg.Matching.DefaultCurrency)
	cfg.Observability.Logging = LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "text"),
	}
	cfg.Observability.Audit.Path = os.Getenv("AUDIT_LOG_PATH")
	cfg.API.Port = getEnv("PORT", cfg.API.Port)
	cfg.applyEnvDefaults()
	return cfg
}

// LoadOrEnv loads config.yaml, falling back to environment variables when
// the file does not exist.
func LoadOrEnv() (*Config, error) {
	return LoadOrEnvWithPath("config.yaml", false)
}

// LoadOrEnvWithPath loads the file at path and validates its matching
// policy. Environment variables replace the file only when it does not exist
// and the caller did not name it explicitly; a file that exists but does not
// parse is always an error. On success cfg.Matching holds the normalized
// policy.
func LoadOrEnvWithPath(path string, explicit bool) (*Config, error) {
	cfg, err := Load(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		cfg = LoadFromEnv()
	default:
		var cerr *model.ConfigurationError
		if errors.As(err, &cerr) {
			return nil, err
		}
		return nil, &model.ConfigurationError{Field: path, Reason: err.Error()}
	}

	p, err := cfg.Matching.Validate()
	if err != nil {
		return nil, err
	}
	cfg.Matching = p
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Env:      getEnv("LEDGER_ENV", EnvDev),
		Matching: policy.Default(),
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
		API: APIConfig{
			Port:           "8085",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// applyEnvDefaults fills values that depend on the environment name.
func (c *Config) applyEnvDefaults() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "" {
		c.Env = EnvDev
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = DefaultDatabasePath(c.Env)
	}
}

// DefaultDatabasePath returns the database file used when none is configured
func DefaultDatabasePath(env string) string {
	switch env {
	case EnvProd:
		return "ledger.db"
	case EnvStage:
		return "ledger_stage.db"
	default:
		return "ledger_dev.db"
	}
}

// Account returns the configured account with the given id
func (c *Config) Account(id string) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return AccountConfig{}, false
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
