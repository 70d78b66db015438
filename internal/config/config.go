// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Warehouse backends.
const (
	BackendBigQuery = "bigquery"
	BackendDuckDB   = "duckdb"
)

// Defaults applied by LoadFromEnv.
const (
	DefaultPageDelay    = time.Second
	DefaultDuckDBSchema = "main"
	DefaultPricePerTiB  = 5.0
	DefaultLedgerPath   = "gscq_ledger.sqlite"
)

// ExportConfig holds object storage credentials. Each sink is optional and
// only registered when its fields are set.
type ExportConfig struct {
	S3KeyID    *string
	S3Secret   *string
	S3Endpoint *string
	S3Region   *string

	AzureAccount *string
	AzureKey     *string

	GCSCredentialsFile *string
	GCSEnabled         bool // use application default credentials for gs://
}

// HasS3Config returns true if the S3 key pair is set. Endpoint and region
// are optional.
func (e *ExportConfig) HasS3Config() bool {
	return e.S3KeyID != nil && e.S3Secret != nil
}

// HasAzureConfig returns true if the storage account and key are set.
func (e *ExportConfig) HasAzureConfig() bool {
	return e.AzureAccount != nil && e.AzureKey != nil
}

// HasGCSConfig returns true when gs:// exports are enabled.
func (e *ExportConfig) HasGCSConfig() bool {
	return e.GCSCredentialsFile != nil || e.GCSEnabled
}

// Config holds the configuration of the search analytics client, the
// warehouse engine and the spend ledger.
type Config struct {
	CredentialsFile string        // service account key for the Search Console API and BigQuery
	SiteURL         string        // default property, e.g. sc-domain:example.com
	PageDelay       time.Duration // pause before each API page request (default 1s)

	WarehouseBackend  string  // bigquery (default) or duckdb
	WarehouseDataset  string  // BigQuery project.dataset of the bulk export
	WarehouseLocation string  // BigQuery job location (optional)
	DuckDBPath        string  // DuckDB mirror file; empty means in-memory
	DuckDBSchema      string  // schema holding the mirror tables (default "main")
	PricePerTiB       float64 // on-demand scan price in USD (default 5)

	LedgerDBPath string // SQLite spend ledger (default "gscq_ledger.sqlite")
	ScheduleFile string // YAML schedule for `gscq schedule` (optional)
	LogLevel     string // log level: debug, info, warn, error (default "info")

	Export ExportConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// UsesDuckDB returns true when warehouse operations run on the local mirror.
func (c *Config) UsesDuckDB() bool {
	return c.WarehouseBackend == BackendDuckDB
}

// LoadFromEnv loads configuration from environment variables. Nothing is
// required up front; commands check for the settings they need.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		CredentialsFile:   os.Getenv("GSC_CREDENTIALS_FILE"),
		SiteURL:           os.Getenv("GSC_SITE_URL"),
		WarehouseBackend:  strings.ToLower(strings.TrimSpace(os.Getenv("WAREHOUSE_BACKEND"))),
		WarehouseDataset:  os.Getenv("WAREHOUSE_DATASET"),
		WarehouseLocation: os.Getenv("WAREHOUSE_LOCATION"),
		DuckDBPath:        os.Getenv("DUCKDB_PATH"),
		DuckDBSchema:      os.Getenv("DUCKDB_SCHEMA"),
		LedgerDBPath:      os.Getenv("LEDGER_DB_PATH"),
		ScheduleFile:      os.Getenv("SCHEDULE_FILE"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
	}

	if v := os.Getenv("GSC_PAGE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("GSC_PAGE_DELAY: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("GSC_PAGE_DELAY must not be negative")
		}
		cfg.PageDelay = d
	} else {
		cfg.PageDelay = DefaultPageDelay
	}

	if v := os.Getenv("PRICE_PER_TIB"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("PRICE_PER_TIB=%q is not a positive number, using %g", v, DefaultPricePerTiB))
		} else {
			cfg.PricePerTiB = f
		}
	}

	// Export sinks are optional, only set if present
	cfg.Export = ExportConfig{
		S3KeyID:            optionalEnv("S3_KEY_ID"),
		S3Secret:           optionalEnv("S3_SECRET"),
		S3Endpoint:         optionalEnv("S3_ENDPOINT"),
		S3Region:           optionalEnv("S3_REGION"),
		AzureAccount:       optionalEnv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:           optionalEnv("AZURE_STORAGE_KEY"),
		GCSCredentialsFile: optionalEnv("GCS_CREDENTIALS_FILE"),
		GCSEnabled:         parseBoolEnvDefault("GCS_EXPORT_ENABLED", false),
	}
	if (cfg.Export.S3KeyID == nil) != (cfg.Export.S3Secret == nil) {
		cfg.Warnings = append(cfg.Warnings, "S3_KEY_ID and S3_SECRET must be set together, s3:// exports are disabled")
	}

	// Defaults
	if cfg.WarehouseBackend == "" {
		cfg.WarehouseBackend = BackendBigQuery
	}
	if cfg.WarehouseBackend != BackendBigQuery && cfg.WarehouseBackend != BackendDuckDB {
		return nil, fmt.Errorf("WAREHOUSE_BACKEND must be %q or %q, got %q", BackendBigQuery, BackendDuckDB, cfg.WarehouseBackend)
	}
	if cfg.DuckDBSchema == "" {
		cfg.DuckDBSchema = DefaultDuckDBSchema
	}
	if cfg.PricePerTiB == 0 {
		cfg.PricePerTiB = DefaultPricePerTiB
	}
	if cfg.LedgerDBPath == "" {
		cfg.LedgerDBPath = DefaultLedgerPath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.WarehouseBackend == BackendDuckDB && cfg.DuckDBPath == "" {
		cfg.Warnings = append(cfg.Warnings, "DUCKDB_PATH not set, the warehouse mirror is in-memory and starts empty")
	}
	if cfg.CredentialsFile == "" {
		cfg.Warnings = append(cfg.Warnings, "GSC_CREDENTIALS_FILE not set, API commands will fail")
	}

	return cfg, nil
}

func optionalEnv(key string) *string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	return &v
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = stripQuotes(value)
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
