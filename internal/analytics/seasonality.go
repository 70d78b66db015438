package analytics

import (
	"slices"
	"time"

	"gsc-insights/internal/report"
)

// Weekdays lists day names Monday first.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekdayTotal is the traffic of every date falling on one day of the week.
type WeekdayTotal struct {
	Day         string  `json:"day"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
}

// SeasonalityPerDay sums clicks and impressions per day of the week, Monday
// first. Days without data are omitted.
func SeasonalityPerDay(r *report.Report) ([]WeekdayTotal, error) {
	if err := r.Require([]string{colDate}, []string{colClicks, colImpressions}); err != nil {
		return nil, err
	}
	var sums [7]WeekdayTotal
	var seen [7]bool
	for _, d := range dailyTotals(r) {
		t, err := parseDate(d.Date)
		if err != nil {
			return nil, err
		}
		k := weekdayIndex(t.Weekday())
		sums[k].Clicks += d.Clicks
		sums[k].Impressions += d.Impressions
		seen[k] = true
	}
	var out []WeekdayTotal
	for k, s := range sums {
		if !seen[k] {
			continue
		}
		s.Day = Weekdays[k]
		out = append(out, s)
	}
	return out, nil
}

// WeekdayOrder returns the Monday based position of a day name, or -1.
func WeekdayOrder(day string) int {
	return slices.Index(Weekdays, day)
}

func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
