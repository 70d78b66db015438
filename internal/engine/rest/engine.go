package rest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/query"
	"gsc-insights/internal/report"
)

// DefaultPageDelay is the courtesy pause before every page request.
const DefaultPageDelay = time.Second

// Metrics returned for every row, in column order.
var Metrics = []string{domain.MetricClicks, domain.MetricImpressions, domain.MetricCTR, domain.MetricPosition}

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Engine pages through the search analytics API. An Engine holds no
// per-execution state and may run any number of specs.
type Engine struct {
	api      API
	logger   *slog.Logger
	delay    time.Duration
	pageSize int
	sleep    Sleeper
}

// Option configures an Engine.
type Option func(*Engine)

// WithDelay overrides the pause before each page request.
func WithDelay(d time.Duration) Option {
	return func(e *Engine) { e.delay = d }
}

// WithPageSize overrides the rows requested per page, clamped to
// [1, query.MaxRowLimit].
func WithPageSize(n int) Option {
	return func(e *Engine) { e.pageSize = min(max(n, 1), query.MaxRowLimit) }
}

// WithSleeper replaces the pause implementation.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) { e.sleep = s }
}

// NewEngine creates an engine over api.
func NewEngine(api API, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		api:      api,
		logger:   logger,
		delay:    DefaultPageDelay,
		pageSize: query.MaxRowLimit,
		sleep:    SleepContext,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute fetches every row of spec, up to its limit.
//
// Each page is requested after the courtesy delay. The loop stops after a
// page shorter than requested or once the limit is reached; the API gives no
// total count up front.
func (e *Engine) Execute(ctx context.Context, spec query.Spec) (*report.Report, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	dims := spec.Dimensions()
	limit := spec.Limit()

	var rows []report.Row
	offset := 0
	for page := 1; ; page++ {
		rowLimit := e.pageSize
		if limit > 0 {
			rowLimit = min(limit-len(rows), e.pageSize)
		}
		if err := e.sleep(ctx, e.delay); err != nil {
			return nil, err
		}
		resp, err := e.api.Query(ctx, spec.Site(), BuildRequest(spec, offset, rowLimit))
		if err != nil {
			return nil, fmt.Errorf("query %s page %d: %w", spec.Site(), page, err)
		}
		var n int
		if resp != nil {
			n = len(resp.Rows)
			for _, r := range resp.Rows {
				if len(r.Keys) != len(dims) {
					return nil, fmt.Errorf("row has %d keys, want %d", len(r.Keys), len(dims))
				}
				rows = append(rows, report.Row{
					Dims:    r.Keys,
					Metrics: []float64{r.Clicks, r.Impressions, r.Ctr, r.Position},
				})
			}
		}
		e.logger.Debug("fetched page", "site", spec.Site(), "page", page, "start_row", offset, "rows", n)

		if n < rowLimit || (limit > 0 && len(rows) >= limit) {
			break
		}
		offset += rowLimit
	}

	if len(rows) == 0 {
		return nil, domain.ErrEmptyResult("no rows for %s between %s and %s", spec.Site(), spec.Start(), spec.End())
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = string(d)
	}
	meta := report.Meta{Site: spec.Site(), Start: spec.Start(), End: spec.End()}
	return report.New(meta, names, Metrics, rows)
}
