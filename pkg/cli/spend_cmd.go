package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gsc-insights/internal/domain"
)

func newSpendCmd(env *Env) *cobra.Command {
	var (
		operation  string
		mode       string
		since      string
		maxResults int
		pageToken  string
	)
	cmd := &cobra.Command{
		Use:   "spend",
		Short: "List warehouse dry runs and executions with their cost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			filter := domain.SpendFilter{
				Operation: operation,
				Mode:      mode,
				Page:      domain.PageRequest{MaxResults: maxResults, PageToken: pageToken},
			}
			if mode != "" && mode != domain.SpendModeEstimate && mode != domain.SpendModeExecute {
				return domain.ErrValidation("invalid mode %q: use %s or %s", mode, domain.SpendModeEstimate, domain.SpendModeExecute)
			}
			if since != "" {
				t, err := time.Parse(time.DateOnly, since)
				if err != nil {
					return domain.ErrValidation("invalid --since %q: expected YYYY-MM-DD", since)
				}
				filter.Since = &t
			}

			a, err := env.App(ctx)
			if err != nil {
				return err
			}
			entries, total, err := a.Ledger.List(ctx, filter)
			if err != nil {
				return err
			}
			totals, err := a.Ledger.Totals(ctx, filter.Since)
			if err != nil {
				return err
			}
			next := domain.NextPageToken(filter.Page.Offset(), filter.Page.Limit(), total)

			if env.Output == "json" {
				return PrintJSON(os.Stdout, map[string]any{
					"entries":         entries,
					"total":           total,
					"next_page_token": next,
					"totals":          totals,
				})
			}
			if err := printRows(env.Output, entries); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout)
			PrintDetail(os.Stdout, map[string]any{
				"estimates":         totals.Estimates,
				"executions":        totals.Executions,
				"bytes_executed":    totals.BytesExecuted,
				"cost_executed_usd": totals.CostExecuted,
			})
			if next != "" {
				_, _ = fmt.Fprintf(os.Stderr, "\nMore entries: --page-token %s\n", next)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "Only this operation")
	cmd.Flags().StringVar(&mode, "mode", "", "Only estimate or execute entries")
	cmd.Flags().StringVar(&since, "since", "", "Only entries on or after this day, YYYY-MM-DD")
	cmd.Flags().IntVar(&maxResults, "max-results", domain.DefaultMaxResults, "Entries per page")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Token of the page to show")
	return cmd
}
