package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allVars = []string{
	"GSC_CREDENTIALS_FILE", "GSC_SITE_URL", "GSC_PAGE_DELAY",
	"WAREHOUSE_BACKEND", "WAREHOUSE_DATASET", "WAREHOUSE_LOCATION",
	"DUCKDB_PATH", "DUCKDB_SCHEMA", "PRICE_PER_TIB", "LEDGER_DB_PATH",
	"SCHEDULE_FILE", "LOG_LEVEL",
	"S3_KEY_ID", "S3_SECRET", "S3_ENDPOINT", "S3_REGION",
	"AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_KEY",
	"GCS_CREDENTIALS_FILE", "GCS_EXPORT_ENABLED",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allVars {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, BackendBigQuery, cfg.WarehouseBackend)
	assert.Equal(t, DefaultPageDelay, cfg.PageDelay)
	assert.Equal(t, "main", cfg.DuckDBSchema)
	assert.InDelta(t, 5.0, cfg.PricePerTiB, 1e-9)
	assert.Equal(t, "gscq_ledger.sqlite", cfg.LedgerDBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Export.HasS3Config())
	assert.False(t, cfg.Export.HasAzureConfig())
	assert.False(t, cfg.Export.HasGCSConfig())
	assert.Contains(t, cfg.Warnings, "GSC_CREDENTIALS_FILE not set, API commands will fail")
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("GSC_CREDENTIALS_FILE", "/secrets/sa.json")
	t.Setenv("GSC_SITE_URL", "sc-domain:example.com")
	t.Setenv("GSC_PAGE_DELAY", "250ms")
	t.Setenv("WAREHOUSE_BACKEND", "DuckDB")
	t.Setenv("DUCKDB_PATH", "/data/gsc.duckdb")
	t.Setenv("DUCKDB_SCHEMA", "gsc")
	t.Setenv("PRICE_PER_TIB", "6.25")
	t.Setenv("LEDGER_DB_PATH", "/data/ledger.sqlite")
	t.Setenv("S3_KEY_ID", "key")
	t.Setenv("S3_SECRET", "secret")
	t.Setenv("S3_ENDPOINT", "minio.local:9000")
	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("AZURE_STORAGE_KEY", "a2V5")
	t.Setenv("GCS_EXPORT_ENABLED", "yes")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sc-domain:example.com", cfg.SiteURL)
	assert.Equal(t, 250*time.Millisecond, cfg.PageDelay)
	assert.True(t, cfg.UsesDuckDB())
	assert.Equal(t, "gsc", cfg.DuckDBSchema)
	assert.InDelta(t, 6.25, cfg.PricePerTiB, 1e-9)
	assert.Equal(t, "/data/ledger.sqlite", cfg.LedgerDBPath)
	assert.True(t, cfg.Export.HasS3Config())
	require.NotNil(t, cfg.Export.S3Endpoint)
	assert.Equal(t, "minio.local:9000", *cfg.Export.S3Endpoint)
	assert.Nil(t, cfg.Export.S3Region)
	assert.True(t, cfg.Export.HasAzureConfig())
	assert.True(t, cfg.Export.HasGCSConfig())
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown backend", "WAREHOUSE_BACKEND", "snowflake"},
		{"bad delay", "GSC_PAGE_DELAY", "soon"},
		{"negative delay", "GSC_PAGE_DELAY", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadFromEnv_Warnings(t *testing.T) {
	clearEnv(t)
	t.Setenv("GSC_CREDENTIALS_FILE", "/secrets/sa.json")
	t.Setenv("PRICE_PER_TIB", "free")
	t.Setenv("S3_KEY_ID", "key")
	t.Setenv("WAREHOUSE_BACKEND", "duckdb")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.InDelta(t, DefaultPricePerTiB, cfg.PricePerTiB, 1e-9)
	assert.False(t, cfg.Export.HasS3Config(), "partial S3 config should return false")
	assert.Len(t, cfg.Warnings, 3)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, (&Config{LogLevel: tt.in}).SlogLevel())
		})
	}
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	assert.NoError(t, LoadDotEnv("/nonexistent/.env"))
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	t.Setenv("GSCQ_TEST_KEY", "")
	t.Setenv("GSCQ_TEST_QUOTED", "")
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\nGSCQ_TEST_KEY=test_value\nGSCQ_TEST_QUOTED=\"sc-domain:example.com\"\nnot a pair\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "test_value", os.Getenv("GSCQ_TEST_KEY"))
	assert.Equal(t, "sc-domain:example.com", os.Getenv("GSCQ_TEST_QUOTED"))
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("GSCQ_TEST_PRECEDENCE", "from_env")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GSCQ_TEST_PRECEDENCE=from_file\n"), 0o600))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "from_env", os.Getenv("GSCQ_TEST_PRECEDENCE"))
}
