package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gsc-insights/internal/domain"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var _ domain.SpendRepository = (*SpendRepo)(nil)

// SpendRepo stores warehouse dry runs and executions in SQLite.
type SpendRepo struct {
	db *sql.DB
}

// NewSpendRepo creates a new SpendRepo.
func NewSpendRepo(db *sql.DB) *SpendRepo {
	return &SpendRepo{db: db}
}

// Insert records one ledger entry. A missing ID or timestamp is filled in.
func (r *SpendRepo) Insert(ctx context.Context, e *domain.SpendEntry) error {
	if e == nil {
		return domain.ErrValidation("spend entry is required")
	}
	if e.Operation == "" {
		return domain.ErrValidation("spend entry has no operation")
	}
	if e.Mode != domain.SpendModeEstimate && e.Mode != domain.SpendModeExecute {
		return domain.ErrValidation("invalid spend mode %q", e.Mode)
	}
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO spend_ledger (id, operation, backend, table_name, mode, bytes, cost_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Operation, e.Backend, e.TableName, e.Mode, e.Bytes, e.CostUSD, e.CreatedAt.Format(timeLayout))
	if err != nil {
		return mapDBError(err)
	}
	return nil
}

// List returns matching entries, newest first, with the total match count.
func (r *SpendRepo) List(ctx context.Context, filter domain.SpendFilter) ([]domain.SpendEntry, int64, error) {
	var where []string
	var args []any
	if filter.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, filter.Operation)
	}
	if filter.Mode != "" {
		where = append(where, "mode = ?")
		args = append(args, filter.Mode)
	}
	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spend_ledger "+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count spend: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, operation, backend, table_name, mode, bytes, cost_usd, created_at
		FROM spend_ledger `+clause+`
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, append(args, filter.Page.Limit(), filter.Page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list spend: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.SpendEntry
	for rows.Next() {
		var e domain.SpendEntry
		var created string
		if err := rows.Scan(&e.ID, &e.Operation, &e.Backend, &e.TableName, &e.Mode, &e.Bytes, &e.CostUSD, &created); err != nil {
			return nil, 0, fmt.Errorf("scan spend: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, 0, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list spend: %w", err)
	}
	return out, total, nil
}

// Totals counts estimates and executions and sums what was executed.
func (r *SpendRepo) Totals(ctx context.Context, since *time.Time) (*domain.SpendTotals, error) {
	clause := ""
	var args []any
	if since != nil {
		clause = "WHERE created_at >= ?"
		args = append(args, since.UTC().Format(timeLayout))
	}
	var t domain.SpendTotals
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN mode = 'estimate' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN mode = 'execute' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN mode = 'execute' THEN bytes ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN mode = 'execute' THEN cost_usd ELSE 0 END), 0)
		FROM spend_ledger `+clause, args...).
		Scan(&t.Estimates, &t.Executions, &t.BytesExecuted, &t.CostExecuted)
	if err != nil {
		return nil, fmt.Errorf("spend totals: %w", err)
	}
	return &t, nil
}
