package app

import (
	"context"
	"fmt"

	"gsc-insights/internal/query"
	"gsc-insights/internal/scheduler"
)

var _ scheduler.Runner = (*App)(nil)

// RunJob fetches the job's report through the API and exports it to every
// destination of the job.
func (a *App) RunJob(ctx context.Context, job scheduler.Job) error {
	spec, err := query.LoadFile(job.Spec)
	if err != nil {
		return fmt.Errorf("job %q: %w", job.Name, err)
	}
	if job.Site != "" {
		spec = spec.WithSite(job.Site)
	} else if spec.Site() == "" && a.Cfg.SiteURL != "" {
		spec = spec.WithSite(a.Cfg.SiteURL)
	}

	eng, err := a.REST(ctx)
	if err != nil {
		return fmt.Errorf("job %q: %w", job.Name, err)
	}
	r, err := eng.Execute(ctx, spec)
	if err != nil {
		return fmt.Errorf("job %q: %w", job.Name, err)
	}
	if err := a.Exporter.Export(ctx, r.Table(), job.Export...); err != nil {
		return fmt.Errorf("job %q: %w", job.Name, err)
	}
	a.Logger.Info("job finished", "job", job.Name, "rows", r.Len())
	return nil
}
