// Package analytics derives decision-support tables from search reports.
//
// The result row types declared here are the contract shared by both
// execution paths: the functions in this package compute them from a
// materialized *report.Report, and the warehouse engine computes the same
// rows in SQL. Column names are the json tags.
package analytics

import (
	"cmp"
	"math"
	"regexp"
	"strings"
	"time"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// Column names used throughout the package.
const (
	colQuery       = string(domain.DimensionQuery)
	colPage        = string(domain.DimensionPage)
	colDate        = string(domain.DimensionDate)
	colClicks      = domain.MetricClicks
	colImpressions = domain.MetricImpressions
	colPosition    = domain.MetricPosition
)

// Thresholds of the top-10 window used by the position based analyses.
const (
	MinPosition = 1
	MaxPosition = 10
)

// Round rounds x to places decimals, halves away from zero.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// CTR returns round(100*clicks/impressions, 2), or 0 without impressions.
func CTR(clicks, impressions float64) float64 {
	if impressions == 0 {
		return 0
	}
	return Round(100*clicks/impressions, 2)
}

// RoundPosition maps an average position to its integer bucket.
func RoundPosition(p float64) int {
	return int(math.Round(p))
}

// BrandPattern builds the case-insensitive RE2 alternation used to detect
// branded queries. Terms are matched literally. It returns "" for no terms.
func BrandPattern(terms []string) string {
	var quoted []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return ""
	}
	return "(?i)(" + strings.Join(quoted, "|") + ")"
}

// brandMatcher reports whether a query is branded. A nil matcher matches
// nothing.
type brandMatcher struct {
	re *regexp.Regexp
}

func newBrandMatcher(terms []string) brandMatcher {
	p := BrandPattern(terms)
	if p == "" {
		return brandMatcher{}
	}
	return brandMatcher{re: regexp.MustCompile(p)}
}

func (b brandMatcher) match(q string) bool {
	return b.re != nil && b.re.MatchString(q)
}

// QueryTotal is clicks and impressions summed per query.
type QueryTotal struct {
	Query       string  `json:"query"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
}

// PageTotal is clicks and impressions summed per page.
type PageTotal struct {
	Page        string  `json:"page"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
}

// DailyTotal is clicks and impressions summed per day.
type DailyTotal struct {
	Date        string  `json:"date"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
}

func queryTotals(r *report.Report) []QueryTotal {
	idx := map[string]int{}
	var out []QueryTotal
	for i := 0; i < r.Len(); i++ {
		q := r.Dim(i, colQuery)
		k, ok := idx[q]
		if !ok {
			k = len(out)
			idx[q] = k
			out = append(out, QueryTotal{Query: q})
		}
		out[k].Clicks += r.Metric(i, colClicks)
		out[k].Impressions += r.Metric(i, colImpressions)
	}
	return out
}

func pageTotals(r *report.Report) []PageTotal {
	idx := map[string]int{}
	var out []PageTotal
	for i := 0; i < r.Len(); i++ {
		p := r.Dim(i, colPage)
		k, ok := idx[p]
		if !ok {
			k = len(out)
			idx[p] = k
			out = append(out, PageTotal{Page: p})
		}
		out[k].Clicks += r.Metric(i, colClicks)
		out[k].Impressions += r.Metric(i, colImpressions)
	}
	return out
}

func dailyTotals(r *report.Report) []DailyTotal {
	idx := map[string]int{}
	var out []DailyTotal
	for i := 0; i < r.Len(); i++ {
		d := r.Dim(i, colDate)
		k, ok := idx[d]
		if !ok {
			k = len(out)
			idx[d] = k
			out = append(out, DailyTotal{Date: d})
		}
		out[k].Clicks += r.Metric(i, colClicks)
		out[k].Impressions += r.Metric(i, colImpressions)
	}
	return out
}

// byClicksDesc orders totals by clicks descending then key ascending.
func byClicksDesc(ca, cb float64, ka, kb string) int {
	if c := cmp.Compare(cb, ca); c != 0 {
		return c
	}
	return strings.Compare(ka, kb)
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, domain.ErrValidation("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

func formatDate(t time.Time) string { return t.Format(time.DateOnly) }

// RequireURLs dedupes urls, dropping empty entries, and fails when nothing
// is left.
func RequireURLs(urls []string) ([]string, error) {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	if len(out) == 0 {
		return nil, domain.ErrValidation("a non-empty list of URLs is required")
	}
	return out, nil
}
