package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"gsc-insights/internal/report"
)

// Backend runs compiled statements.
type Backend interface {
	// DryRun validates st and returns the bytes it would scan.
	DryRun(ctx context.Context, st Statement) (int64, error)
	Query(ctx context.Context, st Statement) (*report.Table, error)
}

// === BigQuery ===

// BigQueryBackend runs statements as BigQuery jobs.
type BigQueryBackend struct {
	client   *bigquery.Client
	location string
}

var _ Backend = (*BigQueryBackend)(nil)

// NewBigQueryClient opens a client billed to project. An empty
// credentialsFile falls back to application default credentials.
func NewBigQueryClient(ctx context.Context, project, credentialsFile string) (*bigquery.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	return client, nil
}

// NewBigQueryBackend wraps client. location pins jobs to the dataset
// region; empty lets BigQuery infer it.
func NewBigQueryBackend(client *bigquery.Client, location string) *BigQueryBackend {
	return &BigQueryBackend{client: client, location: location}
}

func (b *BigQueryBackend) job(st Statement) *bigquery.Query {
	q := b.client.Query(st.SQL)
	q.Location = b.location
	q.Parameters = make([]bigquery.QueryParameter, len(st.Params))
	for i, p := range st.Params {
		q.Parameters[i] = bigquery.QueryParameter{Name: p.Name, Value: p.Value}
	}
	return q
}

// DryRun submits the job with DryRun set; BigQuery validates and prices it
// without running it.
func (b *BigQueryBackend) DryRun(ctx context.Context, st Statement) (int64, error) {
	q := b.job(st)
	q.DryRun = true
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("bigquery dry run: %w", err)
	}
	status := job.LastStatus()
	if status == nil {
		return 0, nil
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("bigquery dry run: %w", err)
	}
	if status.Statistics == nil {
		return 0, nil
	}
	return status.Statistics.TotalBytesProcessed, nil
}

// Query runs st and materializes every row.
func (b *BigQueryBackend) Query(ctx context.Context, st Statement) (*report.Table, error) {
	it, err := b.job(st).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery query: %w", err)
	}
	t := &report.Table{}
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery read: %w", err)
		}
		vals := make([]any, len(row))
		for i, v := range row {
			vals[i] = bigQueryValue(v)
		}
		t.Rows = append(t.Rows, vals)
	}
	for _, f := range it.Schema {
		t.Columns = append(t.Columns, f.Name)
	}
	return t, nil
}

// bigQueryValue maps civil types onto the strings the rest of the module
// expects.
func bigQueryValue(v bigquery.Value) any {
	switch x := v.(type) {
	case civil.Date:
		return x.String()
	case civil.DateTime:
		return x.String()
	case *big.Rat:
		f, _ := x.Float64()
		return f
	}
	return v
}

// === DuckDB ===

// DuckDBBackend runs statements on a DuckDB mirror through database/sql.
type DuckDBBackend struct {
	db *sql.DB
}

var _ Backend = (*DuckDBBackend)(nil)

// NewDuckDBBackend wraps an open DuckDB handle.
func NewDuckDBBackend(db *sql.DB) *DuckDBBackend {
	return &DuckDBBackend{db: db}
}

func namedArgs(st Statement) []any {
	args := make([]any, len(st.Params))
	for i, p := range st.Params {
		args[i] = sql.Named(p.Name, p.Value)
	}
	return args
}

// DryRun prepares st. A local mirror has no scan price, so the byte count
// is always 0.
func (b *DuckDBBackend) DryRun(ctx context.Context, st Statement) (int64, error) {
	stmt, err := b.db.PrepareContext(ctx, st.SQL)
	if err != nil {
		return 0, fmt.Errorf("duckdb prepare: %w", err)
	}
	return 0, stmt.Close()
}

// Query runs st and materializes every row.
func (b *DuckDBBackend) Query(ctx context.Context, st Statement) (*report.Table, error) {
	rows, err := b.db.QueryContext(ctx, st.SQL, namedArgs(st)...)
	if err != nil {
		return nil, fmt.Errorf("duckdb query: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("duckdb columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("duckdb column types: %w", err)
	}
	t := &report.Table{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("duckdb scan: %w", err)
		}
		for i, v := range vals {
			vals[i] = duckDBValue(v, types[i].DatabaseTypeName())
		}
		t.Rows = append(t.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duckdb rows: %w", err)
	}
	return t, nil
}

// duckDBValue renders DATE columns as YYYY-MM-DD and widens HUGEINT sums.
func duckDBValue(v any, dbType string) any {
	switch x := v.(type) {
	case time.Time:
		if dbType == "DATE" {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case []byte:
		return string(x)
	}
	return v
}
