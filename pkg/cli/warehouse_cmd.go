package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/engine/warehouse"
)

// warehouseFlags are shared by every warehouse operation.
type warehouseFlags struct {
	spec    specFlags
	where   filterList
	execute bool
}

func (f *warehouseFlags) register(fs *pflag.FlagSet, withDimensions bool) {
	f.spec.register(fs, withDimensions)
	fs.Var(&f.where, "where", "Filter on a raw export column as column[:operator]=value; repeatable")
	fs.BoolVar(&f.execute, "execute", false, "Run the query and pay for the scan instead of estimating it")
}

// query builds the warehouse query from the spec flags and --where.
func (f *warehouseFlags) query(site string) (warehouse.Query, error) {
	spec, err := f.spec.build(site)
	if err != nil {
		return warehouse.Query{}, err
	}
	q, err := warehouse.FromSpec(spec)
	if err != nil {
		return q, err
	}
	for _, w := range f.where {
		if q, err = q.WithFilter(w.Dimension, w.Expression, w.Operator); err != nil {
			return q, err
		}
	}
	return q, nil
}

// engine returns a warehouse engine in the requested mode. Executions are
// first checked against the days the export holds.
func (f *warehouseFlags) engine(ctx context.Context, env *Env, q warehouse.Query, needsURL bool) (*warehouse.Engine, error) {
	a, err := env.App(ctx)
	if err != nil {
		return nil, err
	}
	e, err := a.Warehouse(ctx)
	if err != nil {
		return nil, err
	}
	e.SetEstimateCost(!f.execute)
	if f.execute {
		if err := e.CheckRange(ctx, q, q.Table(needsURL)); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func newWarehouseCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warehouse <operation>",
		Short: "Run analyses as SQL on the bulk export (estimates cost unless --execute)",
	}
	cmd.AddCommand(newWarehouseReportCmd(env))
	for _, op := range operations() {
		cmd.AddCommand(newWarehouseOpCmd(env, op))
	}
	cmd.AddCommand(newWarehouseCoverageCmd(env))
	cmd.AddCommand(newMirrorCmd(env))
	return cmd
}

func newWarehouseOpCmd(env *Env, op operation) *cobra.Command {
	var (
		wf warehouseFlags
		of opFlags
	)
	cmd := &cobra.Command{
		Use:   op.name,
		Short: op.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := fillSpan(&wf.spec, op, &of); err != nil {
				return err
			}
			q, err := wf.query(env.Site)
			if err != nil {
				return err
			}
			e, err := wf.engine(ctx, env, q, slices.Contains(op.dims(&of), string(domain.DimensionPage)))
			if err != nil {
				return err
			}
			rows, est, err := op.warehouse(ctx, e, q, &of)
			if err != nil {
				return err
			}
			if est != nil {
				return printEstimate(env.Output, est)
			}
			return printRows(env.Output, rows)
		},
	}
	wf.register(cmd.Flags(), false)
	if op.flags != nil {
		op.flags(cmd.Flags(), &of)
	}
	return cmd
}

func newWarehouseReportCmd(env *Env) *cobra.Command {
	var (
		wf      warehouseFlags
		exports []string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate the export like an API report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			dims := wf.spec.dimensions
			if len(dims) == 0 {
				return fmt.Errorf("--dimensions is required")
			}
			q, err := wf.query(env.Site)
			if err != nil {
				return err
			}
			e, err := wf.engine(ctx, env, q, slices.Contains(dims, string(domain.DimensionPage)))
			if err != nil {
				return err
			}
			res, err := e.Report(ctx, q, dims...)
			if err != nil {
				return err
			}
			if res.Estimated() {
				return printEstimate(env.Output, res.Estimate)
			}
			t := res.Rows.Table()
			if len(exports) > 0 {
				a, err := env.App(ctx)
				if err != nil {
					return err
				}
				return a.Exporter.Export(ctx, t, exports...)
			}
			return printTable(env.Output, t)
		},
	}
	wf.register(cmd.Flags(), true)
	cmd.Flags().StringSliceVar(&exports, "export", nil, "Write the report to these destinations (path, gs://, s3://, az://) instead of printing")
	return cmd
}

func newWarehouseCoverageCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "coverage",
		Short: "Show the days present in each export table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := env.App(ctx)
			if err != nil {
				return err
			}
			e, err := a.Warehouse(ctx)
			if err != nil {
				return err
			}
			cov, err := e.Coverage(ctx)
			if err != nil {
				return err
			}
			return printRows(env.Output, cov)
		},
	}
}

func newMirrorCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Manage the local DuckDB copy of the export",
	}
	var reset bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the export tables in the DuckDB mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := env.App(ctx)
			if err != nil {
				return err
			}
			db, err := a.Mirror(ctx)
			if err != nil {
				return err
			}
			if reset {
				if err := warehouse.ResetMirror(ctx, db, a.Cfg.DuckDBSchema); err != nil {
					return err
				}
			}
			_, _ = fmt.Fprintf(os.Stdout, "Mirror tables ready in schema %q\n", a.Cfg.DuckDBSchema)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&reset, "reset", false, "Drop existing mirror tables and their rows first")
	cmd.AddCommand(initCmd)

	var table string
	load := &cobra.Command{
		Use:   "load <source>",
		Short: "Append exported Parquet or CSV files to a mirror table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := mirrorTable(table)
			if err != nil {
				return err
			}
			a, err := env.App(ctx)
			if err != nil {
				return err
			}
			db, err := a.Mirror(ctx)
			if err != nil {
				return err
			}
			n, err := warehouse.LoadMirror(ctx, db, a.Cfg.DuckDBSchema, t, args[0])
			if err != nil {
				return err
			}
			if env.Output == "json" {
				return PrintJSON(os.Stdout, map[string]any{"table": t, "rows": n})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Loaded %d rows into %s\n", n, t)
			return nil
		},
	}
	load.Flags().StringVar(&table, "table", "site", "Target table (site, url)")
	cmd.AddCommand(load)
	return cmd
}

func mirrorTable(name string) (warehouse.Table, error) {
	switch name {
	case "site", string(warehouse.SiteTable):
		return warehouse.SiteTable, nil
	case "url", string(warehouse.URLTable):
		return warehouse.URLTable, nil
	}
	return "", domain.ErrValidation("unknown table %q: use site or url", name)
}
