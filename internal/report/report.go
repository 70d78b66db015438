// Package report holds materialized query results.
package report

import (
	"fmt"
	"slices"

	"gsc-insights/internal/domain"
)

// Meta describes where a report came from.
type Meta struct {
	Site  string
	Start string
	End   string
}

// Row is one materialized result row. Dims and Metrics are positionally
// aligned with the owning report's Dimensions and Metrics.
type Row struct {
	Dims    []string
	Metrics []float64
}

// Report is an immutable table whose columns are split into dimension
// columns (members of the dimension vocabulary) and metric columns.
// Transforms return new Reports that share untouched rows with the original.
type Report struct {
	meta      Meta
	dims      []string
	metrics   []string
	dimIdx    map[string]int
	metricIdx map[string]int
	rows      []Row
}

// New builds a report. Every dimension must belong to the vocabulary, no
// metric may, and each row must match the column counts.
func New(meta Meta, dims, metrics []string, rows []Row) (*Report, error) {
	r := &Report{
		meta:      meta,
		dims:      slices.Clone(dims),
		metrics:   slices.Clone(metrics),
		dimIdx:    make(map[string]int, len(dims)),
		metricIdx: make(map[string]int, len(metrics)),
		rows:      rows,
	}
	for i, d := range dims {
		if !domain.IsDimension(d) {
			return nil, domain.ErrValidation("column %q is not a dimension", d)
		}
		if _, dup := r.dimIdx[d]; dup {
			return nil, domain.ErrValidation("duplicate column %q", d)
		}
		r.dimIdx[d] = i
	}
	for i, m := range metrics {
		if domain.IsDimension(m) {
			return nil, domain.ErrValidation("column %q is a dimension, not a metric", m)
		}
		if _, dup := r.metricIdx[m]; dup {
			return nil, domain.ErrValidation("duplicate column %q", m)
		}
		r.metricIdx[m] = i
	}
	for i, row := range rows {
		if len(row.Dims) != len(dims) || len(row.Metrics) != len(metrics) {
			return nil, fmt.Errorf("row %d has %d dimensions and %d metrics, want %d and %d",
				i, len(row.Dims), len(row.Metrics), len(dims), len(metrics))
		}
	}
	return r, nil
}

// derive returns a report with the same columns over a different row set.
func (r *Report) derive(rows []Row) *Report {
	return &Report{
		meta:      r.meta,
		dims:      r.dims,
		metrics:   r.metrics,
		dimIdx:    r.dimIdx,
		metricIdx: r.metricIdx,
		rows:      rows,
	}
}

// Meta returns the report provenance.
func (r *Report) Meta() Meta { return r.meta }

// Dimensions returns the dimension column names in order.
func (r *Report) Dimensions() []string { return slices.Clone(r.dims) }

// Metrics returns the metric column names in order.
func (r *Report) Metrics() []string { return slices.Clone(r.metrics) }

// Len returns the number of rows.
func (r *Report) Len() int { return len(r.rows) }

// HasDimension reports whether name is a dimension column.
func (r *Report) HasDimension(name string) bool {
	_, ok := r.dimIdx[name]
	return ok
}

// HasMetric reports whether name is a metric column.
func (r *Report) HasMetric(name string) bool {
	_, ok := r.metricIdx[name]
	return ok
}

// Dim returns dimension name of row i, or "" when the column is absent.
func (r *Report) Dim(i int, name string) string {
	j, ok := r.dimIdx[name]
	if !ok {
		return ""
	}
	return r.rows[i].Dims[j]
}

// Metric returns metric name of row i, or 0 when the column is absent.
func (r *Report) Metric(i int, name string) float64 {
	j, ok := r.metricIdx[name]
	if !ok {
		return 0
	}
	return r.rows[i].Metrics[j]
}

// Require fails with a ValidationError naming the first missing column.
func (r *Report) Require(dims []string, metrics []string) error {
	for _, d := range dims {
		if !r.HasDimension(d) {
			return domain.ErrValidation("report needs a %s dimension", d)
		}
	}
	for _, m := range metrics {
		if !r.HasMetric(m) {
			return domain.ErrValidation("report needs a %s metric", m)
		}
	}
	return nil
}

// DateSpan returns the first and last value of the date column. ok is false
// when the report has no date dimension or no rows.
func (r *Report) DateSpan() (first, last string, ok bool) {
	j, has := r.dimIdx[string(domain.DimensionDate)]
	if !has || len(r.rows) == 0 {
		return "", "", false
	}
	first, last = r.rows[0].Dims[j], r.rows[0].Dims[j]
	for _, row := range r.rows[1:] {
		d := row.Dims[j]
		// ISO dates order lexically.
		if d < first {
			first = d
		}
		if d > last {
			last = d
		}
	}
	return first, last, true
}

// Filter returns a report holding the rows for which keep returns true.
// Rows are shared with the receiver.
func (r *Report) Filter(keep func(i int) bool) *Report {
	rows := make([]Row, 0, len(r.rows))
	for i, row := range r.rows {
		if keep(i) {
			rows = append(rows, row)
		}
	}
	return r.derive(rows)
}

// WithRedirects returns a report whose page values are rewritten through
// mapping (old URL to new URL). Rows without a redirected page are shared
// with the receiver; the receiver is left untouched.
func (r *Report) WithRedirects(mapping map[string]string) (*Report, error) {
	if err := r.Require([]string{string(domain.DimensionPage)}, nil); err != nil {
		return nil, err
	}
	j := r.dimIdx[string(domain.DimensionPage)]
	rows := make([]Row, len(r.rows))
	for i, row := range r.rows {
		to, ok := mapping[row.Dims[j]]
		if !ok {
			rows[i] = row
			continue
		}
		dims := slices.Clone(row.Dims)
		dims[j] = to
		rows[i] = Row{Dims: dims, Metrics: row.Metrics}
	}
	return r.derive(rows), nil
}

// Table renders the report as a generic table, dimensions first.
func (r *Report) Table() *Table {
	cols := make([]string, 0, len(r.dims)+len(r.metrics))
	cols = append(cols, r.dims...)
	cols = append(cols, r.metrics...)
	out := &Table{Columns: cols, Rows: make([][]any, len(r.rows))}
	for i, row := range r.rows {
		vals := make([]any, 0, len(cols))
		for _, d := range row.Dims {
			vals = append(vals, d)
		}
		for _, m := range row.Metrics {
			vals = append(vals, m)
		}
		out.Rows[i] = vals
	}
	return out
}

// FromTable classifies the columns of t into dimensions and metrics and
// builds a report. Dimension values are rendered as strings; metric values
// must be numeric, NULL becomes 0.
func FromTable(meta Meta, t *Table) (*Report, error) {
	var dims, metrics []string
	var dimCols, metricCols []int
	for i, c := range t.Columns {
		if domain.IsDimension(c) {
			dims = append(dims, c)
			dimCols = append(dimCols, i)
		} else {
			metrics = append(metrics, c)
			metricCols = append(metricCols, i)
		}
	}
	rows := make([]Row, len(t.Rows))
	for i, vals := range t.Rows {
		row := Row{Dims: make([]string, len(dimCols)), Metrics: make([]float64, len(metricCols))}
		for k, c := range dimCols {
			row.Dims[k] = FormatValue(vals[c])
		}
		for k, c := range metricCols {
			f, err := ToFloat(vals[c])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, t.Columns[c], err)
			}
			row.Metrics[k] = f
		}
		rows[i] = row
	}
	return New(meta, dims, metrics, rows)
}
