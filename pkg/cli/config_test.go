package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsc-insights/internal/config"
)

func TestActiveProfile(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "work",
		Profiles: map[string]Profile{
			"work":     {Site: "sc-domain:work.com", Output: "json"},
			"personal": {Site: "https://me.dev/"},
		},
	}

	p, err := cfg.ActiveProfile("")
	require.NoError(t, err)
	assert.Equal(t, "sc-domain:work.com", p.Site)

	p, err = cfg.ActiveProfile("personal")
	require.NoError(t, err)
	assert.Equal(t, "https://me.dev/", p.Site)

	_, err = cfg.ActiveProfile("missing")
	assert.ErrorContains(t, err, `profile "missing" not found`)

	empty := &UserConfig{CurrentProfile: "default"}
	p, err = empty.ActiveProfile("")
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)
}

func TestUserConfig_SaveLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, err := LoadUserConfig()
	require.Error(t, err)

	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Site: "sc-domain:example.com", WarehouseBackend: "duckdb", DuckDBPath: "/data/gsc.duckdb"},
		},
	}
	require.NoError(t, SaveUserConfig(cfg))
	assert.Equal(t, filepath.Join(home, ".gscq", "config.yaml"), ConfigPath())

	info, err := os.Stat(ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	data, err := os.ReadFile(ConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "duckdb-path: /data/gsc.duckdb")
}

func TestApplyProfile(t *testing.T) {
	t.Setenv("WAREHOUSE_BACKEND", "")

	cfg := &config.Config{
		WarehouseBackend: config.BackendBigQuery,
		DuckDBPath:       "/env/gsc.duckdb",
		Warnings:         []string{"GSC_CREDENTIALS_FILE not set, API commands will fail", "other"},
	}
	applyProfile(cfg, Profile{
		CredentialsFile:  "/keys/sa.json",
		WarehouseBackend: "duckdb",
		WarehouseDataset: "proj.searchconsole",
		DuckDBPath:       "/profile/gsc.duckdb",
	})

	assert.Equal(t, "/keys/sa.json", cfg.CredentialsFile)
	assert.Equal(t, config.BackendDuckDB, cfg.WarehouseBackend)
	assert.Equal(t, "proj.searchconsole", cfg.WarehouseDataset)
	assert.Equal(t, "/env/gsc.duckdb", cfg.DuckDBPath)
	assert.Equal(t, []string{"other"}, cfg.Warnings)
}
