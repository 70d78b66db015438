package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UserConfig represents ~/.gscq/config.yaml.
type UserConfig struct {
	CurrentProfile string             `json:"current_profile" yaml:"current-profile"`
	Profiles       map[string]Profile `json:"profiles" yaml:"profiles"`
}

// Profile represents a single named configuration profile. Every field is
// a fallback for the matching flag or environment variable.
type Profile struct {
	Site             string `json:"site,omitempty" yaml:"site,omitempty"`
	Output           string `json:"output,omitempty" yaml:"output,omitempty"`
	CredentialsFile  string `json:"credentials_file,omitempty" yaml:"credentials-file,omitempty"`
	WarehouseBackend string `json:"warehouse_backend,omitempty" yaml:"warehouse-backend,omitempty"`
	WarehouseDataset string `json:"warehouse_dataset,omitempty" yaml:"warehouse-dataset,omitempty"`
	DuckDBPath       string `json:"duckdb_path,omitempty" yaml:"duckdb-path,omitempty"`
}

// ActiveProfile returns the profile to use based on the override or
// current-profile. An explicit override must exist; a missing current
// profile yields the empty profile.
func (c *UserConfig) ActiveProfile(override string) (Profile, error) {
	name := c.CurrentProfile
	if override != "" {
		name = override
	}
	if p, ok := c.Profiles[name]; ok {
		return p, nil
	}
	if override != "" {
		return Profile{}, fmt.Errorf("profile %q not found", override)
	}
	return Profile{}, nil
}

// ConfigDir returns the path to ~/.gscq/.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".gscq")
}

// ConfigPath returns the path to ~/.gscq/config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadUserConfig reads ~/.gscq/config.yaml.
func LoadUserConfig() (*UserConfig, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path) //nolint:gosec // fixed path under the home directory
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return &cfg, nil
}

// SaveUserConfig writes ~/.gscq/config.yaml.
func SaveUserConfig(cfg *UserConfig) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}
