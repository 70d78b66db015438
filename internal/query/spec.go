// Package query defines the immutable search analytics query specification.
package query

import (
	"fmt"
	"regexp"
	"slices"

	"gsc-insights/internal/domain"
)

// MaxRowLimit is the largest page the search analytics API returns per call.
const MaxRowLimit = 25000

// GroupTypeAnd is the only filter group combinator the API supports.
const GroupTypeAnd = "and"

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Filter restricts one dimension.
type Filter struct {
	Dimension  domain.Dimension `json:"dimension" yaml:"dimension"`
	Operator   domain.Operator  `json:"operator" yaml:"operator"`
	Expression string           `json:"expression" yaml:"expression"`
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %q", f.Dimension, f.Operator, f.Expression)
}

// Spec describes what to fetch. It is a value: every With* method returns a
// modified copy and leaves the receiver untouched, so one Spec can be executed
// any number of times.
type Spec struct {
	site       string
	start      string
	end        string
	dimensions []domain.Dimension
	filters    []Filter
	searchType domain.SearchType
	dataState  domain.DataState
	limit      int
}

// New returns a Spec for site with the API defaults (web, final, no limit).
func New(site string) Spec {
	return Spec{
		site:       site,
		searchType: domain.SearchTypeWeb,
		dataState:  domain.DataStateFinal,
	}
}

// Site returns the property the spec targets.
func (s Spec) Site() string { return s.site }

// Start returns the first day of the range.
func (s Spec) Start() string { return s.start }

// End returns the last day of the range (inclusive).
func (s Spec) End() string { return s.end }

// Dimensions returns a copy of the requested dimensions in declared order.
func (s Spec) Dimensions() []domain.Dimension { return slices.Clone(s.dimensions) }

// Filters returns a copy of the AND-combined filters.
func (s Spec) Filters() []Filter { return slices.Clone(s.filters) }

// SearchType returns the search surface.
func (s Spec) SearchType() domain.SearchType { return s.searchType }

// DataState returns the data freshness state.
func (s Spec) DataState() domain.DataState { return s.dataState }

// Limit returns the caller row limit, 0 when unlimited.
func (s Spec) Limit() int { return s.limit }

// HasDimension reports whether d was requested.
func (s Spec) HasDimension(d domain.Dimension) bool {
	return slices.Contains(s.dimensions, d)
}

// WithSite targets another property.
func (s Spec) WithSite(site string) Spec {
	s.site = site
	return s
}

// WithRange sets the inclusive date range. Only the YYYY-MM-DD shape is
// checked here; the backend decides whether the dates exist.
func (s Spec) WithRange(start, end string) (Spec, error) {
	if err := ValidateDate(start); err != nil {
		return s, err
	}
	if err := ValidateDate(end); err != nil {
		return s, err
	}
	s.start, s.end = start, end
	return s, nil
}

// WithDimensions replaces the requested dimensions.
func (s Spec) WithDimensions(names ...string) (Spec, error) {
	if len(names) == 0 {
		return s, domain.ErrValidation("at least one dimension is required")
	}
	dims := make([]domain.Dimension, 0, len(names))
	for _, name := range names {
		d, err := domain.ParseDimension(name)
		if err != nil {
			return s, err
		}
		dims = append(dims, d)
	}
	s.dimensions = dims
	return s, nil
}

// WithFilter appends a filter to the single AND group. An empty operator
// means equals.
func (s Spec) WithFilter(dimension, expression, operator string) (Spec, error) {
	return s.WithFilterGroup(dimension, expression, operator, GroupTypeAnd)
}

// WithFilterGroup is WithFilter with an explicit group type, kept for
// callers mirroring the API payload. Only "and" is accepted.
func (s Spec) WithFilterGroup(dimension, expression, operator, groupType string) (Spec, error) {
	if groupType != "" && groupType != GroupTypeAnd {
		return s, domain.ErrValidation("invalid group type %q: filters can only be combined with %q", groupType, GroupTypeAnd)
	}
	d, err := domain.ParseDimension(dimension)
	if err != nil {
		return s, err
	}
	op, err := domain.ParseOperator(operator)
	if err != nil {
		return s, err
	}
	filters := make([]Filter, len(s.filters), len(s.filters)+1)
	copy(filters, s.filters)
	s.filters = append(filters, Filter{Dimension: d, Operator: op, Expression: expression})
	return s, nil
}

// WithSearchType sets the search surface.
func (s Spec) WithSearchType(name string) (Spec, error) {
	st, err := domain.ParseSearchType(name)
	if err != nil {
		return s, err
	}
	s.searchType = st
	return s, nil
}

// WithDataState sets the data freshness state.
func (s Spec) WithDataState(name string) (Spec, error) {
	ds, err := domain.ParseDataState(name)
	if err != nil {
		return s, err
	}
	s.dataState = ds
	return s, nil
}

// WithLimit caps the number of rows returned. The cap is independent of the
// per-request page size.
func (s Spec) WithLimit(n int) (Spec, error) {
	if n <= 0 {
		return s, domain.ErrValidation("limit must be a positive integer, got %d", n)
	}
	s.limit = n
	return s, nil
}

// Validate checks the spec is ready to execute.
func (s Spec) Validate() error {
	if s.site == "" {
		return domain.ErrValidation("site is required")
	}
	if s.start == "" || s.end == "" {
		return domain.ErrValidation("date range is required")
	}
	if len(s.dimensions) == 0 {
		return domain.ErrValidation("at least one dimension is required")
	}
	return nil
}

// ValidateDate checks value has the YYYY-MM-DD shape.
func ValidateDate(value string) error {
	if !dateRe.MatchString(value) {
		return domain.ErrValidation("invalid date %q: expected YYYY-MM-DD", value)
	}
	return nil
}
