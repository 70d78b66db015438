package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"gsc-insights/internal/config"
)

func newConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration profiles",
	}

	cmd.AddCommand(newConfigShowCmd(env))
	cmd.AddCommand(newConfigSetProfileCmd(env))
	cmd.AddCommand(newConfigUseProfileCmd(env))

	return cmd
}

func newConfigShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display configured profiles",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "No configuration found at %s\n", ConfigPath())
				return err
			}
			if env.Output == "json" {
				return PrintJSON(os.Stdout, cfg)
			}
			names := make([]string, 0, len(cfg.Profiles))
			for name := range cfg.Profiles {
				names = append(names, name)
			}
			slices.Sort(names)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				p := cfg.Profiles[name]
				active := ""
				if name == cfg.CurrentProfile {
					active = "*"
				}
				rows = append(rows, []string{name, active, p.Site, p.Output, p.WarehouseBackend, p.WarehouseDataset})
			}
			PrintTable(os.Stdout, []string{"profile", "active", "site", "output", "backend", "dataset"}, rows)
			return nil
		},
	}
}

func newConfigSetProfileCmd(env *Env) *cobra.Command {
	var (
		name string
		p    Profile
	)

	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Create or update a configuration profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if cmd.Flags().Changed("default-output") {
				if err := validateOutputFormat(p.Output); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("warehouse-backend") &&
				p.WarehouseBackend != config.BackendBigQuery && p.WarehouseBackend != config.BackendDuckDB {
				return fmt.Errorf("unsupported warehouse backend %q: use %q or %q", p.WarehouseBackend, config.BackendBigQuery, config.BackendDuckDB)
			}

			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = &UserConfig{
					CurrentProfile: "default",
					Profiles:       map[string]Profile{},
				}
			}

			cur := cfg.Profiles[name]
			if cmd.Flags().Changed("site-url") {
				cur.Site = p.Site
			}
			if cmd.Flags().Changed("default-output") {
				cur.Output = p.Output
			}
			if cmd.Flags().Changed("credentials-file") {
				cur.CredentialsFile = p.CredentialsFile
			}
			if cmd.Flags().Changed("warehouse-backend") {
				cur.WarehouseBackend = p.WarehouseBackend
			}
			if cmd.Flags().Changed("warehouse-dataset") {
				cur.WarehouseDataset = p.WarehouseDataset
			}
			if cmd.Flags().Changed("duckdb-path") {
				cur.DuckDBPath = p.DuckDBPath
			}
			cfg.Profiles[name] = cur

			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			if env.Output == "json" {
				return PrintJSON(os.Stdout, map[string]string{
					"status":  "ok",
					"profile": name,
					"path":    ConfigPath(),
				})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Profile %q saved to %s\n", name, ConfigPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Profile name (required)")
	cmd.Flags().StringVar(&p.Site, "site-url", "", "Default Search Console property")
	cmd.Flags().StringVar(&p.Output, "default-output", "", "Default output format")
	cmd.Flags().StringVar(&p.CredentialsFile, "credentials-file", "", "Service account key file")
	cmd.Flags().StringVar(&p.WarehouseBackend, "warehouse-backend", "", "Warehouse backend (bigquery, duckdb)")
	cmd.Flags().StringVar(&p.WarehouseDataset, "warehouse-dataset", "", "BigQuery project.dataset of the bulk export")
	cmd.Flags().StringVar(&p.DuckDBPath, "duckdb-path", "", "DuckDB mirror file")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newConfigUseProfileCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile <name>",
		Short: "Set the active configuration profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return fmt.Errorf("no config found: %w", err)
			}
			name := args[0]
			if _, ok := cfg.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			cfg.CurrentProfile = name
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			if env.Output == "json" {
				return PrintJSON(os.Stdout, map[string]string{
					"status":         "ok",
					"active_profile": name,
				})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Active profile set to %q\n", name)
			return nil
		},
	}
}
