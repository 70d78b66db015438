package warehouse

import (
	"slices"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/query"
)

// Filter restricts one export column.
type Filter struct {
	Column     string          `json:"column"`
	Operator   domain.Operator `json:"operator"`
	Expression string          `json:"expression"`
}

// Query is the warehouse counterpart of query.Spec: a date range plus
// AND-combined column filters. Like Spec it is a value; setters return a
// modified copy.
type Query struct {
	start   string
	end     string
	filters []Filter
}

// NewQuery returns an empty query.
func NewQuery() Query { return Query{} }

// Start returns the first day of the range.
func (q Query) Start() string { return q.start }

// End returns the last day of the range (inclusive).
func (q Query) End() string { return q.end }

// Filters returns a copy of the filters.
func (q Query) Filters() []Filter { return slices.Clone(q.filters) }

// WithRange sets the inclusive date range.
func (q Query) WithRange(start, end string) (Query, error) {
	if err := query.ValidateDate(start); err != nil {
		return q, err
	}
	if err := query.ValidateDate(end); err != nil {
		return q, err
	}
	q.start, q.end = start, end
	return q, nil
}

// WithFilter appends a filter on an export column. Boolean columns only take
// equals or notEquals against true or false. An empty operator means equals.
func (q Query) WithFilter(column, expression, operator string) (Query, error) {
	if !isFilterColumn(column) {
		return q, domain.ErrValidation("invalid filter column %q", column)
	}
	op, err := domain.ParseOperator(operator)
	if err != nil {
		return q, err
	}
	if isBoolColumn(column) {
		if op != domain.OperatorEquals && op != domain.OperatorNotEquals {
			return q, domain.ErrValidation("column %q only supports equals and notEquals", column)
		}
		if expression != "true" && expression != "false" {
			return q, domain.ErrValidation("column %q only accepts true or false, got %q", column, expression)
		}
	}
	filters := make([]Filter, len(q.filters), len(q.filters)+1)
	copy(filters, q.filters)
	q.filters = append(filters, Filter{Column: column, Operator: op, Expression: expression})
	return q, nil
}

// Validate checks the query is ready to compile.
func (q Query) Validate() error {
	if q.start == "" || q.end == "" {
		return domain.ErrValidation("date range is required")
	}
	if q.start > q.end {
		return domain.ErrValidation("start date %s is after end date %s", q.start, q.end)
	}
	return nil
}

// Table returns the narrowest table able to serve the filters. needsURL
// forces the URL table for operations that read the url column.
func (q Query) Table(needsURL bool) Table {
	if needsURL {
		return URLTable
	}
	cols := make([]string, len(q.filters))
	for i, f := range q.filters {
		cols[i] = f.Column
	}
	return ChooseTable(cols)
}

// site returns the site_url equality filter value, if any.
func (q Query) site() string {
	for _, f := range q.filters {
		if f.Column == colSiteURL && f.Operator == domain.OperatorEquals {
			return f.Expression
		}
	}
	return ""
}

// exportSearchTypes maps API search types to export values.
var exportSearchTypes = map[domain.SearchType]string{
	domain.SearchTypeWeb:        "WEB",
	domain.SearchTypeImage:      "IMAGE",
	domain.SearchTypeVideo:      "VIDEO",
	domain.SearchTypeNews:       "NEWS",
	domain.SearchTypeDiscover:   "DISCOVER",
	domain.SearchTypeGoogleNews: "GOOGLE_NEWS",
}

// dimensionColumns maps API dimensions to export columns.
var dimensionColumns = map[domain.Dimension]string{
	domain.DimensionQuery:   colQuery,
	domain.DimensionPage:    colURL,
	domain.DimensionCountry: colCountry,
	domain.DimensionDevice:  colDevice,
	domain.DimensionDate:    colDate,
}

// ColumnFor returns the export column of an API dimension.
// searchAppearance has no single column and is rejected.
func ColumnFor(d domain.Dimension) (string, error) {
	c, ok := dimensionColumns[d]
	if !ok {
		return "", domain.ErrValidation("dimension %q has no warehouse column", d)
	}
	return c, nil
}

// FromSpec translates a REST spec: the range, the site, the search type and
// the filters on query, page, country and device. The spec's dimensions and
// limit do not carry over.
func FromSpec(s query.Spec) (Query, error) {
	q, err := NewQuery().WithRange(s.Start(), s.End())
	if err != nil {
		return q, err
	}
	if s.Site() != "" {
		if q, err = q.WithFilter(colSiteURL, s.Site(), string(domain.OperatorEquals)); err != nil {
			return q, err
		}
	}
	if st, ok := exportSearchTypes[s.SearchType()]; ok {
		if q, err = q.WithFilter(colSearchType, st, string(domain.OperatorEquals)); err != nil {
			return q, err
		}
	}
	for _, f := range s.Filters() {
		if f.Dimension == domain.DimensionDate {
			return q, domain.ErrValidation("date filters are expressed through the range")
		}
		col, err := ColumnFor(f.Dimension)
		if err != nil {
			return q, err
		}
		if q, err = q.WithFilter(col, f.Expression, string(f.Operator)); err != nil {
			return q, err
		}
	}
	return q, nil
}
