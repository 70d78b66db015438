package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// Result is the outcome of an operation: a cost estimate while estimation
// is on, the rows otherwise.
type Result[T any] struct {
	Estimate *domain.CostEstimate `json:"estimate,omitempty"`
	Rows     T                    `json:"rows,omitempty"`
}

// Estimated reports whether the result holds an estimate instead of rows.
func (r Result[T]) Estimated() bool { return r.Estimate != nil }

// Engine compiles operations for one dialect and runs them on a backend.
// New engines only estimate; SetEstimateCost(false) is required before any
// statement is executed.
type Engine struct {
	backend     Backend
	dialect     Dialect
	logger      *slog.Logger
	estimate    bool
	pricePerTiB float64
	ledger      domain.SpendRepository
	now         func() time.Time
}

// NewEngine creates an engine in estimation mode.
func NewEngine(backend Backend, dialect Dialect, logger *slog.Logger) *Engine {
	return &Engine{
		backend:     backend,
		dialect:     dialect,
		logger:      logger,
		estimate:    true,
		pricePerTiB: domain.DefaultPricePerTiB,
		now:         time.Now,
	}
}

// SetEstimateCost switches between dry runs (true) and execution (false).
func (e *Engine) SetEstimateCost(on bool) { e.estimate = on }

// EstimateCost reports whether the engine only estimates.
func (e *Engine) EstimateCost() bool { return e.estimate }

// SetPricePerTiB overrides the scan price used for estimates.
func (e *Engine) SetPricePerTiB(usd float64) {
	if usd > 0 {
		e.pricePerTiB = usd
	}
}

// SetLedger records every dry run and execution in l. nil disables
// recording.
func (e *Engine) SetLedger(l domain.SpendRepository) { e.ledger = l }

// Dialect returns the engine's dialect.
func (e *Engine) Dialect() Dialect { return e.dialect }

// run estimates or executes st and decodes the rows. Executions are priced
// by a dry run first so the ledger carries their bytes.
func run[T any](ctx context.Context, e *Engine, st Statement, decode func(*report.Table) (T, error)) (Result[T], error) {
	var zero Result[T]
	bytes, err := e.backend.DryRun(ctx, st)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", st.Operation, err)
	}
	est := &domain.CostEstimate{
		Operation: st.Operation,
		Table:     string(st.Table),
		Bytes:     bytes,
		USD:       domain.EstimateCost(bytes, e.pricePerTiB),
	}
	e.logger.Debug("warehouse statement",
		"operation", st.Operation, "table", st.Table, "bytes", bytes, "estimate_only", e.estimate)

	if e.estimate {
		if err := e.record(ctx, est, domain.SpendModeEstimate); err != nil {
			return zero, err
		}
		return Result[T]{Estimate: est}, nil
	}

	t, err := e.backend.Query(ctx, st)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", st.Operation, err)
	}
	if err := e.record(ctx, est, domain.SpendModeExecute); err != nil {
		return zero, err
	}
	rows, err := decode(t)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", st.Operation, err)
	}
	return Result[T]{Rows: rows}, nil
}

func (e *Engine) record(ctx context.Context, est *domain.CostEstimate, mode string) error {
	if e.ledger == nil {
		return nil
	}
	entry := &domain.SpendEntry{
		ID:        domain.NewID(),
		Operation: est.Operation,
		Backend:   e.dialect.Name(),
		TableName: est.Table,
		Mode:      mode,
		Bytes:     est.Bytes,
		CostUSD:   est.USD,
		CreatedAt: e.now().UTC(),
	}
	if err := e.ledger.Insert(ctx, entry); err != nil {
		return fmt.Errorf("record spend: %w", err)
	}
	return nil
}

// decodeAs is the default decode step: json tags of T name the columns.
func decodeAs[T any](t *report.Table) ([]T, error) {
	return report.Decode[T](t)
}

// then chains Go post-processing after decoding.
func then[R, T any](f func([]R) (T, error)) func(*report.Table) (T, error) {
	return func(t *report.Table) (T, error) {
		rows, err := report.Decode[R](t)
		if err != nil {
			var zero T
			return zero, err
		}
		return f(rows)
	}
}
