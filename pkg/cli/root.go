package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"gsc-insights/internal/app"
	"gsc-insights/internal/config"
	"gsc-insights/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
				"kind":  errorKind(err),
			}
			_ = PrintJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// errorKind names the domain error class for JSON error output.
func errorKind(err error) string {
	var (
		notFound   *domain.NotFoundError
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		empty      *domain.EmptyResultError
	)
	switch {
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &empty):
		return "empty_result"
	}
	return "internal"
}

// AppFactory builds the application for commands that need engines or the
// ledger.
type AppFactory func(ctx context.Context, env *Env) (*app.App, error)

// Env is the resolved global state shared by every command.
type Env struct {
	Output  string
	Site    string
	Profile Profile

	factory AppFactory
	app     *app.App
}

// App returns the application, creating it on first use.
func (e *Env) App(ctx context.Context) (*app.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	a, err := e.factory(ctx, e)
	if err != nil {
		return nil, err
	}
	e.app = a
	return a, nil
}

// RequireSite returns the resolved site or an error naming how to set one.
func (e *Env) RequireSite() (string, error) {
	if e.Site == "" {
		return "", domain.ErrValidation("no site: pass --site, set GSC_SITE_URL or add site to the profile")
	}
	return e.Site, nil
}

func (e *Env) close() {
	if e.app != nil {
		_ = e.app.Close()
		e.app = nil
	}
}

// defaultAppFactory loads .env and the environment, fills unset values from
// the profile, and wires the app with a stderr logger.
func defaultAppFactory(ctx context.Context, env *Env) (*app.App, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	applyProfile(cfg, env.Profile)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	return app.New(ctx, app.Deps{Cfg: cfg, Logger: logger})
}

// applyProfile fills settings the environment left unset.
func applyProfile(cfg *config.Config, p Profile) {
	if cfg.CredentialsFile == "" && p.CredentialsFile != "" {
		cfg.CredentialsFile = p.CredentialsFile
		cfg.Warnings = slices.DeleteFunc(cfg.Warnings, func(w string) bool {
			return strings.HasPrefix(w, "GSC_CREDENTIALS_FILE")
		})
	}
	if os.Getenv("WAREHOUSE_BACKEND") == "" && p.WarehouseBackend != "" {
		cfg.WarehouseBackend = p.WarehouseBackend
	}
	if cfg.WarehouseDataset == "" {
		cfg.WarehouseDataset = p.WarehouseDataset
	}
	if cfg.DuckDBPath == "" {
		cfg.DuckDBPath = p.DuckDBPath
	}
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(defaultAppFactory)
}

func newRootCmdWith(factory AppFactory) *cobra.Command {
	var (
		output  string
		profile string
		site    string
	)
	env := &Env{factory: factory}

	rootCmd := &cobra.Command{
		Use:           "gscq",
		Short:         "Search Console analytics from the API or the bulk export",
		Long:          "Fetch Search Console performance data through the search analytics API or the BigQuery bulk export, and run SEO analyses on it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load config from profile if flags/env not set
			cfg, err := LoadUserConfig()
			if err != nil {
				// Config file is optional
				cfg = &UserConfig{
					CurrentProfile: "default",
					Profiles:       map[string]Profile{},
				}
			}
			p, err := cfg.ActiveProfile(profile)
			if err != nil {
				return err
			}
			env.Profile = p

			// Apply precedence: flag > env > profile > default
			if !cmd.Flags().Changed("site") {
				if v := os.Getenv("GSC_SITE_URL"); v != "" {
					site = v
				} else if p.Site != "" {
					site = p.Site
				}
			}
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("GSCQ_OUTPUT"); v != "" {
					output = v
				} else if p.Output != "" {
					output = p.Output
				} else {
					output = defaultOutputFormat()
				}
			}
			if err := validateOutputFormat(output); err != nil {
				return err
			}
			env.Output = output
			env.Site = site
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			env.close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().StringVar(&site, "site", "", "Search Console property, e.g. sc-domain:example.com")

	rootCmd.AddCommand(newFetchCmd(env))
	rootCmd.AddCommand(newAnalyzeCmd(env))
	rootCmd.AddCommand(newWarehouseCmd(env))
	rootCmd.AddCommand(newSitesCmd(env))
	rootCmd.AddCommand(newSpendCmd(env))
	rootCmd.AddCommand(newScheduleCmd(env))
	rootCmd.AddCommand(newConfigCmd(env))
	rootCmd.AddCommand(newVersionCmd(env))

	// Shell completions
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
