package analytics

import (
	"cmp"
	"slices"
	"strings"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// ABCD class boundaries on the cumulative percentage.
const (
	ClassABound = 50
	ClassBBound = 75
	ClassCBound = 90
)

// KeySeparator joins multi-dimension ABCD keys.
const KeySeparator = " | "

// ABCDRow is one group with its cumulative share of the metric total.
type ABCDRow struct {
	Key           string  `json:"key"`
	Value         float64 `json:"value"`
	CumulativePct float64 `json:"metric_pct"`
	Class         string  `json:"abcd"`
}

// Classify maps a cumulative percentage onto A [0,50), B [50,75),
// C [75,90) or D [90,100].
func Classify(pct float64) string {
	switch {
	case pct < ClassABound:
		return "A"
	case pct < ClassBBound:
		return "B"
	case pct < ClassCBound:
		return "C"
	}
	return "D"
}

// ABCD groups the report by dims, sorts the groups by metric descending and
// classes each one by its cumulative share of the total.
func ABCD(r *report.Report, metric string, dims ...string) ([]ABCDRow, error) {
	if _, err := domain.ParseMetric(metric); err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		return nil, domain.ErrValidation("abcd needs at least one dimension")
	}
	if err := r.Require(dims, []string{metric}); err != nil {
		return nil, err
	}
	idx := map[string]int{}
	var groups []ABCDRow
	parts := make([]string, len(dims))
	for i := 0; i < r.Len(); i++ {
		for j, d := range dims {
			parts[j] = r.Dim(i, d)
		}
		key := strings.Join(parts, KeySeparator)
		k, ok := idx[key]
		if !ok {
			k = len(groups)
			idx[key] = k
			groups = append(groups, ABCDRow{Key: key})
		}
		groups[k].Value += r.Metric(i, metric)
	}
	return ABCDOf(groups), nil
}

// ABCDOf sorts grouped values and fills in the cumulative share and class.
func ABCDOf(groups []ABCDRow) []ABCDRow {
	out := slices.Clone(groups)
	slices.SortFunc(out, func(a, b ABCDRow) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	var total float64
	for _, g := range out {
		total += g.Value
	}
	var running float64
	for i := range out {
		running += out[i].Value
		pct := 100.0
		if total != 0 {
			pct = 100 * running / total
		}
		out[i].CumulativePct = Round(pct, 2)
		out[i].Class = Classify(out[i].CumulativePct)
	}
	return out
}
