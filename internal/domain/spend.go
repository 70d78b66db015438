package domain

import (
	"context"
	"time"
)

// Spend modes recorded in the ledger.
const (
	SpendModeEstimate = "estimate"
	SpendModeExecute  = "execute"
)

// SpendEntry is one warehouse round-trip recorded in the ledger.
type SpendEntry struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Backend   string    `json:"backend"`
	TableName string    `json:"table_name"`
	Mode      string    `json:"mode"` // estimate or execute
	Bytes     int64     `json:"bytes"`
	CostUSD   float64   `json:"cost_usd"`
	CreatedAt time.Time `json:"created_at"`
}

// SpendFilter narrows a ledger listing.
type SpendFilter struct {
	Operation string
	Mode      string
	Since     *time.Time
	Page      PageRequest
}

// SpendTotals aggregates the ledger.
type SpendTotals struct {
	Estimates     int64   `json:"estimates"`
	Executions    int64   `json:"executions"`
	BytesExecuted int64   `json:"bytes_executed"`
	CostExecuted  float64 `json:"cost_executed_usd"`
}

// SpendRepository persists warehouse spend.
type SpendRepository interface {
	Insert(ctx context.Context, e *SpendEntry) error
	List(ctx context.Context, filter SpendFilter) ([]SpendEntry, int64, error)
	Totals(ctx context.Context, since *time.Time) (*SpendTotals, error)
}
