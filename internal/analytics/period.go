package analytics

import (
	"slices"
	"strings"
	"time"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// PeriodTotal is clicks and impressions summed over one calendar bucket.
// Buckets are labelled by their last day.
type PeriodTotal struct {
	Period      string  `json:"period"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
}

// GroupByPeriod resamples the report's daily clicks and impressions into
// calendar buckets.
func GroupByPeriod(r *report.Report, period domain.Period) ([]PeriodTotal, error) {
	if err := r.Require([]string{colDate}, []string{colClicks, colImpressions}); err != nil {
		return nil, err
	}
	return Resample(dailyTotals(r), period)
}

// Resample sums daily totals per calendar bucket. Every bucket between the
// first and the last one is emitted, empty buckets with zeros. Weeks run
// Monday to Sunday.
func Resample(daily []DailyTotal, period domain.Period) ([]PeriodTotal, error) {
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return nil, err
	}
	period = period.Canonical()

	sums := map[string]*PeriodTotal{}
	var first, last time.Time
	for i, d := range daily {
		t, err := parseDate(d.Date)
		if err != nil {
			return nil, err
		}
		end := PeriodEnd(t, period)
		if i == 0 || end.Before(first) {
			first = end
		}
		if i == 0 || end.After(last) {
			last = end
		}
		key := formatDate(end)
		pt, ok := sums[key]
		if !ok {
			pt = &PeriodTotal{Period: key}
			sums[key] = pt
		}
		pt.Clicks += d.Clicks
		pt.Impressions += d.Impressions
	}
	if len(daily) == 0 {
		return nil, nil
	}

	var out []PeriodTotal
	for end := first; !end.After(last); end = PeriodEnd(end.AddDate(0, 0, 1), period) {
		key := formatDate(end)
		if pt, ok := sums[key]; ok {
			out = append(out, *pt)
		} else {
			out = append(out, PeriodTotal{Period: key})
		}
	}
	slices.SortFunc(out, func(a, b PeriodTotal) int { return strings.Compare(a.Period, b.Period) })
	return out, nil
}

// PeriodStart returns the first day of the bucket holding t.
func PeriodStart(t time.Time, period domain.Period) time.Time {
	y, m, d := t.Date()
	switch period.Canonical() {
	case domain.PeriodWeek:
		// Monday based: Sunday is the seventh day.
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
	case domain.PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case domain.PeriodQuarter:
		qm := time.Month((int(m)-1)/3*3 + 1)
		return time.Date(y, qm, 1, 0, 0, 0, 0, time.UTC)
	case domain.PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PeriodEnd returns the last day of the bucket holding t.
func PeriodEnd(t time.Time, period domain.Period) time.Time {
	start := PeriodStart(t, period)
	switch period.Canonical() {
	case domain.PeriodWeek:
		return start.AddDate(0, 0, 6)
	case domain.PeriodMonth:
		return start.AddDate(0, 1, -1)
	case domain.PeriodQuarter:
		return start.AddDate(0, 3, -1)
	case domain.PeriodYear:
		return start.AddDate(1, 0, -1)
	}
	return start
}
