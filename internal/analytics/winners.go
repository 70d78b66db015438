package analytics

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// DateRange is an inclusive [Start, End] pair of calendar dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r DateRange) String() string { return r.Start + ".." + r.End }

// ParseRange builds a range from a two element list of YYYY-MM-DD dates.
func ParseRange(values []string) (DateRange, error) {
	if len(values) != 2 {
		return DateRange{}, domain.ErrValidation("a period must be a list of two dates, got %d", len(values))
	}
	start, err := parseDate(values[0])
	if err != nil {
		return DateRange{}, err
	}
	end, err := parseDate(values[1])
	if err != nil {
		return DateRange{}, err
	}
	if end.Before(start) {
		return DateRange{}, domain.ErrValidation("period %s..%s ends before it starts", values[0], values[1])
	}
	return DateRange{Start: values[0], End: values[1]}, nil
}

// ValidatePeriods checks that both ranges are well formed and that from
// ends strictly before to starts.
func ValidatePeriods(from, to DateRange) error {
	if _, err := ParseRange([]string{from.Start, from.End}); err != nil {
		return err
	}
	if _, err := ParseRange([]string{to.Start, to.End}); err != nil {
		return err
	}
	if from.End >= to.Start {
		return domain.ErrValidation("periods must not overlap and must be in order: %s then %s", from, to)
	}
	return nil
}

// CheckCoverage rejects periods that reach outside the available data span.
func CheckCoverage(first, last string, from, to DateRange) error {
	if first > from.Start {
		return domain.ErrValidation("data starts on %s, after the first period starts (%s)", first, from.Start)
	}
	if last < to.End {
		return domain.ErrValidation("data ends on %s, before the second period ends (%s)", last, to.End)
	}
	return nil
}

// WinnersOptions selects what WinnersLosers compares.
type WinnersOptions struct {
	Entity string // page or query
	Metric string // clicks or impressions
}

// Validate checks the options.
func (o WinnersOptions) Validate() error {
	if o.Entity != colPage && o.Entity != colQuery {
		return domain.ErrValidation("invalid entity %q: must be page or query", o.Entity)
	}
	_, err := domain.ParseMetric(o.Metric)
	return err
}

// WinnerLoser is an entity's metric in both periods.
type WinnerLoser struct {
	Entity string  `json:"entity"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
	Diff   float64 `json:"diff"`
	Winner bool    `json:"winner"`
}

// WinnersLosers sums the metric per entity in each period and ranks the
// entities by the change from the first period to the second.
func WinnersLosers(r *report.Report, from, to DateRange, opts WinnersOptions) ([]WinnerLoser, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := r.Require([]string{opts.Entity, colDate}, []string{opts.Metric}); err != nil {
		return nil, err
	}
	if err := ValidatePeriods(from, to); err != nil {
		return nil, err
	}
	first, last, ok := r.DateSpan()
	if !ok {
		return nil, domain.ErrEmptyResult("report has no dates")
	}
	if err := CheckCoverage(first, last, from, to); err != nil {
		return nil, err
	}

	before := map[string]float64{}
	after := map[string]float64{}
	for i := 0; i < r.Len(); i++ {
		d := r.Dim(i, colDate)
		e := r.Dim(i, opts.Entity)
		switch {
		case d >= from.Start && d <= from.End:
			before[e] += r.Metric(i, opts.Metric)
		case d >= to.Start && d <= to.End:
			after[e] += r.Metric(i, opts.Metric)
		}
	}
	return WinnersFromTotals(before, after), nil
}

// WinnersFromTotals outer-joins per entity totals of two periods.
func WinnersFromTotals(before, after map[string]float64) []WinnerLoser {
	entities := map[string]bool{}
	for e := range before {
		entities[e] = true
	}
	for e := range after {
		entities[e] = true
	}
	out := make([]WinnerLoser, 0, len(entities))
	for e := range entities {
		diff := after[e] - before[e]
		out = append(out, WinnerLoser{
			Entity: e,
			Before: before[e],
			After:  after[e],
			Diff:   diff,
			Winner: diff > 0,
		})
	}
	slices.SortFunc(out, func(a, b WinnerLoser) int {
		if c := cmp.Compare(b.Diff, a.Diff); c != 0 {
			return c
		}
		return strings.Compare(a.Entity, b.Entity)
	})
	return out
}

// spanDays is the number of days in the inclusive range.
func spanDays(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}
