// Package app provides application-level wiring for gscq: it turns a
// Config into engines, the spend ledger and export sinks.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver for the warehouse mirror

	"gsc-insights/internal/config"
	"gsc-insights/internal/db"
	"gsc-insights/internal/db/repository"
	"gsc-insights/internal/engine/rest"
	"gsc-insights/internal/engine/warehouse"
	"gsc-insights/internal/export"
)

// Deps holds what main() provides. SearchAPI, Sites and DuckDB are optional
// overrides; when nil they are built from Cfg on first use.
type Deps struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	SearchAPI rest.API
	Sites     rest.SiteLister
	DuckDB    *sql.DB
	Warehouse warehouse.Backend
}

// App holds the wired application. Engines are created lazily so commands
// that only read the ledger never need API credentials.
type App struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Ledger   *repository.SpendRepo
	Exporter *export.Exporter

	deps    Deps
	ledger  *sql.DB
	duck    *sql.DB
	closers []func() error
}

// New opens the spend ledger and registers every configured export sink.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ledger, err := db.OpenLedger(cfg.LedgerDBPath)
	if err != nil {
		return nil, fmt.Errorf("open spend ledger: %w", err)
	}
	a := &App{
		Cfg:     cfg,
		Logger:  logger,
		Ledger:  repository.NewSpendRepo(ledger),
		deps:    deps,
		ledger:  ledger,
		closers: []func() error{ledger.Close},
	}

	a.Exporter, err = newExporter(ctx, cfg.Export, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func newExporter(ctx context.Context, cfg config.ExportConfig, logger *slog.Logger) (*export.Exporter, error) {
	e := export.NewExporter(logger)

	if cfg.HasS3Config() {
		s3cfg := export.S3Config{KeyID: *cfg.S3KeyID, Secret: *cfg.S3Secret}
		if cfg.S3Endpoint != nil {
			s3cfg.Endpoint = *cfg.S3Endpoint
		}
		if cfg.S3Region != nil {
			s3cfg.Region = *cfg.S3Region
		}
		sink, err := export.NewS3Sink(s3cfg)
		if err != nil {
			return nil, err
		}
		e.Register(export.SchemeS3, sink)
	}
	if cfg.HasAzureConfig() {
		sink, err := export.NewAzureSink(*cfg.AzureAccount, *cfg.AzureKey)
		if err != nil {
			return nil, err
		}
		e.Register(export.SchemeAzure, sink)
	}
	if cfg.HasGCSConfig() {
		var file string
		if cfg.GCSCredentialsFile != nil {
			file = *cfg.GCSCredentialsFile
		}
		sink, err := export.NewGCSSink(ctx, file)
		if err != nil {
			return nil, err
		}
		e.Register(export.SchemeGCS, sink)
	}
	return e, nil
}

// Close releases every handle the app opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// === REST ===

func (a *App) serviceAPI(ctx context.Context) (*rest.ServiceAPI, error) {
	if a.Cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("GSC_CREDENTIALS_FILE is not set")
	}
	return rest.NewAPIFromCredentials(ctx, a.Cfg.CredentialsFile)
}

// REST returns a search analytics engine.
func (a *App) REST(ctx context.Context) (*rest.Engine, error) {
	api := a.deps.SearchAPI
	if api == nil {
		svc, err := a.serviceAPI(ctx)
		if err != nil {
			return nil, err
		}
		api = svc
	}
	return rest.NewEngine(api, a.Logger, rest.WithDelay(a.Cfg.PageDelay)), nil
}

// Sites returns the property lister.
func (a *App) Sites(ctx context.Context) (rest.SiteLister, error) {
	if a.deps.Sites != nil {
		return a.deps.Sites, nil
	}
	return a.serviceAPI(ctx)
}

// === Warehouse ===

// Warehouse returns an engine in estimation mode, recording spend in the
// ledger.
func (a *App) Warehouse(ctx context.Context) (*warehouse.Engine, error) {
	var (
		backend warehouse.Backend
		dialect warehouse.Dialect
		err     error
	)
	if a.Cfg.UsesDuckDB() {
		dialect, err = warehouse.NewDuckDB(a.Cfg.DuckDBSchema)
		if err != nil {
			return nil, err
		}
		backend = a.deps.Warehouse
		if backend == nil {
			duck, err := a.Mirror(ctx)
			if err != nil {
				return nil, err
			}
			backend = warehouse.NewDuckDBBackend(duck)
		}
	} else {
		dialect, err = warehouse.NewBigQuery(a.Cfg.WarehouseDataset)
		if err != nil {
			return nil, fmt.Errorf("WAREHOUSE_DATASET: %w", err)
		}
		backend = a.deps.Warehouse
		if backend == nil {
			project, _, _ := strings.Cut(a.Cfg.WarehouseDataset, ".")
			client, err := warehouse.NewBigQueryClient(ctx, project, a.Cfg.CredentialsFile)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, client.Close)
			backend = warehouse.NewBigQueryBackend(client, a.Cfg.WarehouseLocation)
		}
	}

	e := warehouse.NewEngine(backend, dialect, a.Logger)
	e.SetPricePerTiB(a.Cfg.PricePerTiB)
	e.SetLedger(a.Ledger)
	return e, nil
}

// Mirror opens the DuckDB mirror database and makes sure its tables exist.
func (a *App) Mirror(ctx context.Context) (*sql.DB, error) {
	if a.duck != nil {
		return a.duck, nil
	}
	duck := a.deps.DuckDB
	if duck == nil {
		var err error
		duck, err = sql.Open("duckdb", a.Cfg.DuckDBPath)
		if err != nil {
			return nil, fmt.Errorf("open duckdb: %w", err)
		}
		a.closers = append(a.closers, duck.Close)
	}
	if err := warehouse.EnsureMirror(ctx, duck, a.Cfg.DuckDBSchema); err != nil {
		return nil, err
	}
	a.duck = duck
	return duck, nil
}
