package cli

import (
	"github.com/spf13/cobra"

	"gsc-insights/internal/engine/rest"
)

func newSitesCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "sites [filter]",
		Short: "List the properties the credentials can query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var filter string
			if len(args) == 1 {
				filter = args[0]
			}
			a, err := env.App(ctx)
			if err != nil {
				return err
			}
			lister, err := a.Sites(ctx)
			if err != nil {
				return err
			}
			props, err := rest.ListProperties(ctx, lister, filter)
			if err != nil {
				return err
			}
			return printRows(env.Output, props)
		},
	}
}
