package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gsc-insights/internal/ddl"
	"gsc-insights/internal/domain"
)

// EnsureMirror creates schema and both export tables in a DuckDB database.
// Existing tables are left untouched.
func EnsureMirror(ctx context.Context, db *sql.DB, schema string) error {
	stmt, err := ddl.CreateSchema(schema)
	if err != nil {
		return domain.ErrValidation("%v", err)
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create schema %q: %w", schema, err)
	}
	for _, t := range Tables() {
		stmt, err := ddl.CreateTable(schema, string(t), Schema(t))
		if err != nil {
			return fmt.Errorf("build %s: %w", t, err)
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", t, err)
		}
	}
	return nil
}

// ResetMirror drops both export tables and creates them empty.
func ResetMirror(ctx context.Context, db *sql.DB, schema string) error {
	for _, t := range Tables() {
		stmt, err := ddl.DropTable(schema, string(t))
		if err != nil {
			return domain.ErrValidation("%v", err)
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	return EnsureMirror(ctx, db, schema)
}

// LoadMirror appends the rows of exported files to a mirror table. source
// is a path or glob of Parquet (.parquet) or CSV files; columns are matched
// by name. It returns the number of rows inserted.
func LoadMirror(ctx context.Context, db *sql.DB, schema string, t Table, source string) (int64, error) {
	if t != SiteTable && t != URLTable {
		return 0, domain.ErrValidation("unknown table %q", t)
	}
	if err := ddl.ValidateIdentifier(schema); err != nil {
		return 0, domain.ErrValidation("invalid mirror schema: %v", err)
	}
	if source == "" {
		return 0, domain.ErrValidation("a source path is required")
	}
	reader := "read_parquet"
	if strings.HasSuffix(strings.ToLower(source), ".csv") {
		reader = "read_csv_auto"
	}
	stmt := fmt.Sprintf("INSERT INTO %s.%s BY NAME SELECT * FROM %s(%s)",
		ddl.QuoteIdentifier(schema), ddl.QuoteIdentifier(string(t)), reader, ddl.QuoteLiteral(source))
	res, err := db.ExecContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("load %s from %s: %w", t, source, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
