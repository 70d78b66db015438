package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gsc-insights/internal/app"
	"gsc-insights/internal/scheduler"
)

func newScheduleCmd(env *Env) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run saved report exports on cron schedules",
	}
	cmd.PersistentFlags().StringVar(&file, "file", "", "Schedule file (default $SCHEDULE_FILE)")

	load := func(ctx context.Context) (*app.App, []scheduler.Job, error) {
		a, err := env.App(ctx)
		if err != nil {
			return nil, nil, err
		}
		path := file
		if path == "" {
			path = a.Cfg.ScheduleFile
		}
		if path == "" {
			return nil, nil, fmt.Errorf("no schedule file: pass --file or set SCHEDULE_FILE")
		}
		jobs, err := scheduler.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return a, jobs, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, jobs, err := load(cmd.Context())
			if err != nil {
				return err
			}
			return printRows(env.Output, jobs)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "exec <job>",
		Short: "Run one job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, jobs, err := load(ctx)
			if err != nil {
				return err
			}
			s := scheduler.New(a, a.Logger)
			if err := s.Reload(jobs); err != nil {
				return err
			}
			return s.RunNow(ctx, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run jobs on their schedules until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a, jobs, err := load(ctx)
			if err != nil {
				return err
			}
			s := scheduler.New(a, a.Logger)
			if err := s.Start(ctx, jobs); err != nil {
				return err
			}
			<-ctx.Done()
			s.Stop()
			return nil
		},
	})
	return cmd
}
