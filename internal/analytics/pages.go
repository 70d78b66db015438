package analytics

import (
	"cmp"
	"slices"
	"strings"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// PageActivity tells whether a reference URL shows up in search.
type PageActivity struct {
	Page             string  `json:"page"`
	Clicks           float64 `json:"clicks"`
	Impressions      float64 `json:"impressions"`
	ActiveImpression bool    `json:"active_impression"`
	ActiveClicks     bool    `json:"active_clicks"`
}

// ActivePages checks every reference URL (typically a sitemap) against the
// report's pages. A page is active on impressions when it appears at all and
// active on clicks when it earned at least one.
func ActivePages(r *report.Report, urls []string) ([]PageActivity, error) {
	if err := r.Require([]string{colPage}, []string{colClicks, colImpressions}); err != nil {
		return nil, err
	}
	return ActivePagesFromTotals(pageTotals(r), urls)
}

// ActivePagesFromTotals joins reference URLs with per page totals.
func ActivePagesFromTotals(totals []PageTotal, urls []string) ([]PageActivity, error) {
	urls, err := RequireURLs(urls)
	if err != nil {
		return nil, err
	}
	byPage := indexPages(totals)
	out := make([]PageActivity, 0, len(urls))
	for _, u := range urls {
		row := PageActivity{Page: u}
		if t, ok := byPage[u]; ok {
			row.Clicks = t.Clicks
			row.Impressions = t.Impressions
			row.ActiveImpression = true
			row.ActiveClicks = t.Clicks > 0
		}
		out = append(out, row)
	}
	return out, nil
}

// ContentsToKill returns the reference URLs whose clicks and impressions
// are both at or below the thresholds. URLs absent from the report count
// as zero.
func ContentsToKill(r *report.Report, urls []string, maxClicks, maxImpressions float64) ([]PageTotal, error) {
	if err := r.Require([]string{colPage}, []string{colClicks, colImpressions}); err != nil {
		return nil, err
	}
	return ContentsToKillFromTotals(pageTotals(r), urls, maxClicks, maxImpressions)
}

// ContentsToKillFromTotals applies the thresholds to per page totals.
func ContentsToKillFromTotals(totals []PageTotal, urls []string, maxClicks, maxImpressions float64) ([]PageTotal, error) {
	if err := ValidateKillThresholds(maxClicks, maxImpressions); err != nil {
		return nil, err
	}
	urls, err := RequireURLs(urls)
	if err != nil {
		return nil, err
	}
	byPage := indexPages(totals)
	var out []PageTotal
	for _, u := range urls {
		t := byPage[u]
		t.Page = u
		if t.Clicks <= maxClicks && t.Impressions <= maxImpressions {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b PageTotal) int {
		if c := cmp.Compare(a.Impressions, b.Impressions); c != 0 {
			return c
		}
		return strings.Compare(a.Page, b.Page)
	})
	return out, nil
}

// ValidateKillThresholds rejects negative thresholds.
func ValidateKillThresholds(maxClicks, maxImpressions float64) error {
	if maxClicks < 0 || maxImpressions < 0 {
		return domain.ErrValidation("thresholds must not be negative")
	}
	return nil
}

// PagesNotInSitemap returns the pages earning impressions that are missing
// from the reference URLs.
func PagesNotInSitemap(r *report.Report, urls []string) ([]PageTotal, error) {
	if err := r.Require([]string{colPage}, []string{colClicks, colImpressions}); err != nil {
		return nil, err
	}
	return PagesNotInSitemapFromTotals(pageTotals(r), urls)
}

// PagesNotInSitemapFromTotals filters per page totals against the URLs.
func PagesNotInSitemapFromTotals(totals []PageTotal, urls []string) ([]PageTotal, error) {
	urls, err := RequireURLs(urls)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(urls))
	for _, u := range urls {
		known[u] = true
	}
	var out []PageTotal
	for _, t := range totals {
		if !known[t.Page] {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b PageTotal) int { return byClicksDesc(a.Clicks, b.Clicks, a.Page, b.Page) })
	return out, nil
}

func indexPages(totals []PageTotal) map[string]PageTotal {
	m := make(map[string]PageTotal, len(totals))
	for _, t := range totals {
		prev := m[t.Page]
		prev.Page = t.Page
		prev.Clicks += t.Clicks
		prev.Impressions += t.Impressions
		m[t.Page] = prev
	}
	return m
}

// QueryCount is the number of distinct queries a page ranks for.
type QueryCount struct {
	Page string `json:"page"`
	UQC  int    `json:"uqc"`
}

// UniqueQueryCount counts distinct non-empty queries per page.
func UniqueQueryCount(r *report.Report) ([]QueryCount, error) {
	if err := r.Require([]string{colPage, colQuery}, nil); err != nil {
		return nil, err
	}
	counts := distinctPer(r, colPage, colQuery)
	out := make([]QueryCount, 0, len(counts))
	for p, n := range counts {
		out = append(out, QueryCount{Page: p, UQC: n})
	}
	slices.SortFunc(out, func(a, b QueryCount) int {
		if c := cmp.Compare(b.UQC, a.UQC); c != 0 {
			return c
		}
		return strings.Compare(a.Page, b.Page)
	})
	return out, nil
}

// DayPages is the number of distinct pages seen on a day.
type DayPages struct {
	Date  string `json:"date"`
	Pages int    `json:"pages"`
}

// PagesPerDay counts distinct pages per day.
func PagesPerDay(r *report.Report) ([]DayPages, error) {
	if err := r.Require([]string{colDate, colPage}, nil); err != nil {
		return nil, err
	}
	counts := distinctPer(r, colDate, colPage)
	out := make([]DayPages, 0, len(counts))
	for d, n := range counts {
		out = append(out, DayPages{Date: d, Pages: n})
	}
	slices.SortFunc(out, func(a, b DayPages) int { return strings.Compare(a.Date, b.Date) })
	return out, nil
}

// Lifespan is the number of pages visible for exactly DurationDays days.
type Lifespan struct {
	DurationDays int `json:"duration_days"`
	Pages        int `json:"pages"`
}

// PagesLifespan histograms pages by the number of distinct days they appear.
// It is mostly useful on Discover data where pages live briefly.
func PagesLifespan(r *report.Report) ([]Lifespan, error) {
	if err := r.Require([]string{colPage, colDate}, nil); err != nil {
		return nil, err
	}
	hist := map[int]int{}
	for _, days := range distinctPer(r, colPage, colDate) {
		hist[days]++
	}
	out := make([]Lifespan, 0, len(hist))
	for d, n := range hist {
		out = append(out, Lifespan{DurationDays: d, Pages: n})
	}
	slices.SortFunc(out, func(a, b Lifespan) int { return cmp.Compare(b.DurationDays, a.DurationDays) })
	return out, nil
}

// distinctPer counts distinct non-empty values of col per value of key.
func distinctPer(r *report.Report, key, col string) map[string]int {
	seen := map[[2]string]bool{}
	counts := map[string]int{}
	for i := 0; i < r.Len(); i++ {
		k, v := r.Dim(i, key), r.Dim(i, col)
		if v == "" || seen[[2]string{k, v}] {
			continue
		}
		seen[[2]string{k, v}] = true
		counts[k]++
	}
	return counts
}
