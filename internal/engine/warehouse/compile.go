package warehouse

import (
	"fmt"
	"strings"

	"gsc-insights/internal/ddl"
	"gsc-insights/internal/domain"
)

// Param is a named statement parameter. Name carries no dialect prefix.
type Param struct {
	Name  string
	Value any
}

// Statement is compiled SQL with its parameters. User supplied values only
// ever travel in Params.
type Statement struct {
	Operation string
	Table     Table
	SQL       string
	Params    []Param
}

// builder accumulates the parameters of one statement.
type builder struct {
	d      Dialect
	table  Table
	params []Param
	next   int
}

func newBuilder(d Dialect, t Table) *builder {
	return &builder{d: d, table: t}
}

// bind adds an anonymous parameter and returns its placeholder.
func (b *builder) bind(v any) string {
	b.next++
	return b.named(fmt.Sprintf("p%d", b.next), v)
}

// named adds a parameter under name and returns its placeholder.
func (b *builder) named(name string, v any) string {
	b.params = append(b.params, Param{Name: name, Value: v})
	return b.d.Param(name)
}

// from is the quoted table reference.
func (b *builder) from() string { return b.d.TableRef(b.table) }

// position is the average one-based position over the grouped rows.
func (b *builder) position() string {
	return fmt.Sprintf("SUM(%s) / NULLIF(SUM(%s), 0) + 1", positionColumn(b.table), colImpressions)
}

// sum casts the sum of col to a float.
func (b *builder) sum(col string) string {
	return b.d.Float("SUM(" + col + ")")
}

// dateBetween is an inclusive range predicate over data_date.
func (b *builder) dateBetween(startParam, endParam string) string {
	return fmt.Sprintf("%s BETWEEN CAST(%s AS DATE) AND CAST(%s AS DATE)", colDate, startParam, endParam)
}

// where renders the range and filter predicates of q followed by extra.
func (b *builder) where(q Query, extra ...string) string {
	preds := []string{b.dateBetween(b.named("start_date", q.start), b.named("end_date", q.end))}
	for _, f := range q.filters {
		preds = append(preds, b.predicate(f))
	}
	preds = append(preds, extra...)
	return "WHERE " + strings.Join(preds, "\n  AND ")
}

func (b *builder) predicate(f Filter) string {
	col := f.Column
	if isBoolColumn(col) {
		v := b.bind(f.Expression == "true")
		if f.Operator == domain.OperatorNotEquals {
			return col + " != " + v
		}
		return col + " = " + v
	}
	switch f.Operator {
	case domain.OperatorNotEquals:
		return col + " != " + b.bind(f.Expression)
	case domain.OperatorContains:
		return b.contains(col, f.Expression)
	case domain.OperatorNotContains:
		return "NOT (" + b.contains(col, f.Expression) + ")"
	case domain.OperatorIncludingRegex:
		return b.d.Regex(col, b.bind(f.Expression))
	case domain.OperatorExcludingRegex:
		return "NOT (" + b.d.Regex(col, b.bind(f.Expression)) + ")"
	}
	return col + " = " + b.bind(f.Expression)
}

// contains matches value literally anywhere in col.
func (b *builder) contains(col, value string) string {
	return b.d.Like(col, b.bind("%"+ddl.EscapeLike(value)+"%"))
}

func (b *builder) statement(op, sql string) Statement {
	return Statement{Operation: op, Table: b.table, SQL: sql, Params: b.params}
}
