package domain

import (
	"slices"
	"strings"
)

// Dimension is a categorical axis of Search Console data.
type Dimension string

// Dimension values accepted by the search analytics API.
const (
	DimensionCountry          Dimension = "country"
	DimensionDevice           Dimension = "device"
	DimensionPage             Dimension = "page"
	DimensionQuery            Dimension = "query"
	DimensionSearchAppearance Dimension = "searchAppearance"
	DimensionDate             Dimension = "date"
)

var dimensions = []Dimension{
	DimensionCountry,
	DimensionDevice,
	DimensionPage,
	DimensionQuery,
	DimensionSearchAppearance,
	DimensionDate,
}

// Dimensions returns the fixed dimension vocabulary in canonical order.
func Dimensions() []Dimension {
	return slices.Clone(dimensions)
}

// IsDimension reports whether name belongs to the dimension vocabulary.
func IsDimension(name string) bool {
	return slices.Contains(dimensions, Dimension(name))
}

// ParseDimension validates name against the dimension vocabulary.
func ParseDimension(name string) (Dimension, error) {
	if !IsDimension(name) {
		return "", ErrValidation("invalid dimension %q: must be one of %s", name, joinValues(dimensions))
	}
	return Dimension(name), nil
}

// Operator is a dimension filter match operator.
type Operator string

// Filter operators.
const (
	OperatorEquals         Operator = "equals"
	OperatorNotEquals      Operator = "notEquals"
	OperatorContains       Operator = "contains"
	OperatorNotContains    Operator = "notContains"
	OperatorIncludingRegex Operator = "includingRegex"
	OperatorExcludingRegex Operator = "excludingRegex"
)

var operators = []Operator{
	OperatorEquals,
	OperatorNotEquals,
	OperatorContains,
	OperatorNotContains,
	OperatorIncludingRegex,
	OperatorExcludingRegex,
}

// ParseOperator validates name against the operator enumeration.
// An empty name defaults to equals.
func ParseOperator(name string) (Operator, error) {
	if name == "" {
		return OperatorEquals, nil
	}
	if !slices.Contains(operators, Operator(name)) {
		return "", ErrValidation("invalid operator %q: must be one of %s", name, joinValues(operators))
	}
	return Operator(name), nil
}

// SearchType selects the search surface the data comes from.
type SearchType string

// Search types.
const (
	SearchTypeWeb        SearchType = "web"
	SearchTypeImage      SearchType = "image"
	SearchTypeVideo      SearchType = "video"
	SearchTypeDiscover   SearchType = "discover"
	SearchTypeGoogleNews SearchType = "googleNews"
	SearchTypeNews       SearchType = "news"
)

var searchTypes = []SearchType{
	SearchTypeWeb,
	SearchTypeImage,
	SearchTypeVideo,
	SearchTypeDiscover,
	SearchTypeGoogleNews,
	SearchTypeNews,
}

// ParseSearchType validates name against the search type enumeration.
func ParseSearchType(name string) (SearchType, error) {
	if !slices.Contains(searchTypes, SearchType(name)) {
		return "", ErrValidation("invalid search type %q: must be one of %s", name, joinValues(searchTypes))
	}
	return SearchType(name), nil
}

// DataState selects whether fresh (incomplete) data is included.
type DataState string

// Data states.
const (
	DataStateAll   DataState = "all"
	DataStateFinal DataState = "final"
)

// ParseDataState validates name against the data state enumeration.
func ParseDataState(name string) (DataState, error) {
	switch DataState(name) {
	case DataStateAll, DataStateFinal:
		return DataState(name), nil
	}
	return "", ErrValidation("invalid data state %q: must be one of all, final", name)
}

// Period is a calendar bucket used to resample date series.
type Period string

// Calendar periods. ME and QE are the period-end aliases of M and Q.
const (
	PeriodDay        Period = "D"
	PeriodWeek       Period = "W"
	PeriodMonth      Period = "M"
	PeriodQuarter    Period = "Q"
	PeriodYear       Period = "Y"
	PeriodMonthEnd   Period = "ME"
	PeriodQuarterEnd Period = "QE"
)

var periods = []Period{
	PeriodDay,
	PeriodWeek,
	PeriodMonth,
	PeriodQuarter,
	PeriodYear,
	PeriodMonthEnd,
	PeriodQuarterEnd,
}

// ParsePeriod validates name against the period enumeration.
func ParsePeriod(name string) (Period, error) {
	if !slices.Contains(periods, Period(name)) {
		return "", ErrValidation("invalid period %q: must be one of %s", name, joinValues(periods))
	}
	return Period(name), nil
}

// Canonical folds the period-end aliases into their base period.
func (p Period) Canonical() Period {
	switch p {
	case PeriodMonthEnd:
		return PeriodMonth
	case PeriodQuarterEnd:
		return PeriodQuarter
	}
	return p
}

// Metric names produced by both backends.
const (
	MetricClicks      = "clicks"
	MetricImpressions = "impressions"
	MetricCTR         = "ctr"
	MetricPosition    = "position"
)

// ParseMetric accepts the additive metrics analytics can sum.
func ParseMetric(name string) (string, error) {
	switch name {
	case MetricClicks, MetricImpressions:
		return name, nil
	}
	return "", ErrValidation("invalid metric %q: must be clicks or impressions", name)
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
