package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <operation>",
		Short: "Fetch a report through the API and run an analysis on it",
	}
	for _, op := range operations() {
		cmd.AddCommand(newAnalyzeOpCmd(env, op))
	}
	return cmd
}

func newAnalyzeOpCmd(env *Env, op operation) *cobra.Command {
	var (
		sf specFlags
		of opFlags
	)
	cmd := &cobra.Command{
		Use:   op.name,
		Short: op.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := fillSpan(&sf, op, &of); err != nil {
				return err
			}
			site, err := apiSite(env, &sf)
			if err != nil {
				return err
			}
			spec, err := sf.build(site, op.dims(&of)...)
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
			rows, err := op.rest(r, &of)
			if err != nil {
				return fmt.Errorf("%s: %w", op.name, err)
			}
			return printRows(env.Output, rows)
		},
	}
	sf.register(cmd.Flags(), false)
	if op.flags != nil {
		op.flags(cmd.Flags(), &of)
	}
	return cmd
}

// fillSpan uses the operation's own span when no range was given.
func fillSpan(sf *specFlags, op operation, of *opFlags) error {
	if op.span == nil || sf.specFile != "" || sf.start != "" || sf.end != "" || sf.days > 0 {
		return nil
	}
	start, end, err := op.span(of)
	if err != nil {
		return err
	}
	sf.start, sf.end = start, end
	return nil
}

// apiSite is the resolved site; a spec file may carry its own instead.
func apiSite(env *Env, sf *specFlags) (string, error) {
	if sf.specFile != "" {
		return env.Site, nil
	}
	return env.RequireSite()
}
