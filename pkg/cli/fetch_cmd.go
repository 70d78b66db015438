package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newFetchCmd(env *Env) *cobra.Command {
	var (
		sf      specFlags
		exports []string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a performance report through the search analytics API",
		Long: `Fetch a performance report through the search analytics API.

The report is described by flags or by a YAML spec file (--spec); flags
override the file. Every page of results is fetched up to --limit.`,
		Example: `  gscq fetch --site sc-domain:example.com --start 2024-01-01 --end 2024-01-31 -d query,page
  gscq fetch --spec specs/blog.yaml --filter page:contains=/blog/ --export gs://reports/blog.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			site, err := apiSite(env, &sf)
			if err != nil {
				return err
			}
			spec, err := sf.build(site)
			if err != nil {
				return err
			}
			a, err := env.App(ctx)
			if err != nil {
				return err
			}
			eng, err := a.REST(ctx)
			if err != nil {
				return err
			}
			r, err := eng.Execute(ctx, spec)
			if err != nil {
				return err
			}
			t := r.Table()
			if len(exports) > 0 {
				if err := a.Exporter.Export(ctx, t, exports...); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(os.Stderr, "Exported %d rows to %d destination(s)\n", t.Len(), len(exports))
				return nil
			}
			return printTable(env.Output, t)
		},
	}
	sf.register(cmd.Flags(), true)
	cmd.Flags().StringSliceVar(&exports, "export", nil, "Write the report to these destinations (path, gs://, s3://, az://) instead of printing")
	return cmd
}
