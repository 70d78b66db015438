package warehouse

import (
	"fmt"
	"strings"

	"gsc-insights/internal/ddl"
	"gsc-insights/internal/domain"
)

// Dialect renders the engine-specific parts of a statement. Everything else
// the compiler emits is shared SQL.
type Dialect interface {
	Name() string
	TableRef(t Table) string
	Param(name string) string
	Float(expr string) string
	Int(expr string) string
	Text(expr string) string
	// Like matches col against a bound pattern whose wildcards are escaped
	// with backslashes.
	Like(col, param string) string
	Regex(col, param string) string
	WordCount(expr string) string
	// TruncDate returns the first day of the period holding the DATE expr.
	TruncDate(expr string, period domain.Period) string
	// FormatDate formats a DATE with a strftime layout.
	FormatDate(expr, layout string) string
	// CoverageSQL returns the statement listing table_name, first_date,
	// last_date and days for both tables.
	CoverageSQL() string
}

// BigQuery renders GoogleSQL against the bulk export dataset.
type BigQuery struct {
	Project string
	Dataset string
}

var _ Dialect = (*BigQuery)(nil)

// NewBigQuery parses a "project.dataset" reference.
func NewBigQuery(datasetRef string) (*BigQuery, error) {
	project, dataset, err := ddl.ParseDataset(datasetRef)
	if err != nil {
		return nil, domain.ErrValidation("invalid warehouse dataset: %v", err)
	}
	return &BigQuery{Project: project, Dataset: dataset}, nil
}

func (d *BigQuery) Name() string { return "bigquery" }

func (d *BigQuery) TableRef(t Table) string {
	return ddl.QuoteBigQuery(d.Project, d.Dataset, string(t))
}

func (d *BigQuery) Param(name string) string { return "@" + name }

func (d *BigQuery) Float(expr string) string { return "CAST(" + expr + " AS FLOAT64)" }

func (d *BigQuery) Int(expr string) string { return "CAST(" + expr + " AS INT64)" }

func (d *BigQuery) Text(expr string) string { return "CAST(" + expr + " AS STRING)" }

// Like relies on the default backslash escape of GoogleSQL LIKE.
func (d *BigQuery) Like(col, param string) string { return col + " LIKE " + param }

func (d *BigQuery) Regex(col, param string) string {
	return "REGEXP_CONTAINS(" + col + ", " + param + ")"
}

func (d *BigQuery) WordCount(expr string) string {
	return "ARRAY_LENGTH(SPLIT(" + expr + ", ' '))"
}

func (d *BigQuery) TruncDate(expr string, period domain.Period) string {
	switch period.Canonical() {
	case domain.PeriodWeek:
		return "DATE_TRUNC(" + expr + ", WEEK(MONDAY))"
	case domain.PeriodMonth:
		return "DATE_TRUNC(" + expr + ", MONTH)"
	case domain.PeriodQuarter:
		return "DATE_TRUNC(" + expr + ", QUARTER)"
	case domain.PeriodYear:
		return "DATE_TRUNC(" + expr + ", YEAR)"
	}
	return expr
}

func (d *BigQuery) FormatDate(expr, layout string) string {
	return "FORMAT_DATE(" + ddl.QuoteLiteral(layout) + ", " + expr + ")"
}

// CoverageSQL reads partition metadata, which costs nothing to scan.
// Partition ids are YYYYMMDD.
func (d *BigQuery) CoverageSQL() string {
	return fmt.Sprintf(`SELECT table_name, MIN(partition_id) AS first_date, MAX(partition_id) AS last_date, COUNT(*) AS days
FROM %s
WHERE table_name IN ('%s', '%s') AND partition_id NOT IN ('__NULL__', '__UNPARTITIONED__')
GROUP BY table_name
ORDER BY table_name`,
		ddl.QuoteBigQuery(d.Project, d.Dataset, "INFORMATION_SCHEMA", "PARTITIONS"), SiteTable, URLTable)
}

// DuckDB renders SQL for a local mirror of the export tables.
type DuckDB struct {
	Schema string
}

var _ Dialect = (*DuckDB)(nil)

// NewDuckDB validates the mirror schema name.
func NewDuckDB(schema string) (*DuckDB, error) {
	if err := ddl.ValidateIdentifier(schema); err != nil {
		return nil, domain.ErrValidation("invalid mirror schema: %v", err)
	}
	return &DuckDB{Schema: schema}, nil
}

func (d *DuckDB) Name() string { return "duckdb" }

func (d *DuckDB) TableRef(t Table) string {
	return ddl.QuoteIdentifier(d.Schema) + "." + ddl.QuoteIdentifier(string(t))
}

func (d *DuckDB) Param(name string) string { return "$" + name }

func (d *DuckDB) Float(expr string) string { return "CAST(" + expr + " AS DOUBLE)" }

func (d *DuckDB) Int(expr string) string { return "CAST(" + expr + " AS BIGINT)" }

func (d *DuckDB) Text(expr string) string { return "CAST(" + expr + " AS VARCHAR)" }

func (d *DuckDB) Like(col, param string) string {
	return col + " LIKE " + param + ` ESCAPE '\'`
}

func (d *DuckDB) Regex(col, param string) string {
	return "regexp_matches(" + col + ", " + param + ")"
}

func (d *DuckDB) WordCount(expr string) string {
	return "len(string_split(" + expr + ", ' '))"
}

func (d *DuckDB) TruncDate(expr string, period domain.Period) string {
	var part string
	switch period.Canonical() {
	case domain.PeriodWeek:
		part = "week"
	case domain.PeriodMonth:
		part = "month"
	case domain.PeriodQuarter:
		part = "quarter"
	case domain.PeriodYear:
		part = "year"
	default:
		return expr
	}
	return "CAST(date_trunc('" + part + "', " + expr + ") AS DATE)"
}

func (d *DuckDB) FormatDate(expr, layout string) string {
	return "strftime(" + expr + ", " + ddl.QuoteLiteral(layout) + ")"
}

func (d *DuckDB) CoverageSQL() string {
	parts := make([]string, 0, 2)
	for _, t := range Tables() {
		parts = append(parts, fmt.Sprintf(
			"SELECT '%s' AS table_name, MIN(%s) AS first_date, MAX(%s) AS last_date, COUNT(DISTINCT %s) AS days FROM %s",
			t, colDate, colDate, colDate, d.TableRef(t)))
	}
	return strings.Join(parts, "\nUNION ALL\n") + "\nORDER BY table_name"
}
