package analytics

import (
	"cmp"
	"slices"
	"strings"

	"gsc-insights/internal/report"
)

// ShareThreshold is the minimum share of clicks a query/page pair needs on
// both sides to count as cannibalization.
const ShareThreshold = 0.1

// OpportunityLabel tags the pairs worth consolidating.
const OpportunityLabel = "Potential Opportunity"

// CannibalizationRow is a page competing with at least one other page of the
// site for the same non-branded query.
type CannibalizationRow struct {
	Query        string  `json:"query"`
	Page         string  `json:"page"`
	Clicks       float64 `json:"clicks"`
	Impressions  float64 `json:"impressions"`
	QueryClicks  float64 `json:"query_clicks"`
	PageClicks   float64 `json:"page_clicks"`
	ClickPct     float64 `json:"click_pct"`
	ClickPctPage float64 `json:"click_pct_page"`
	Opportunity  string  `json:"opportunity"`
}

// QueryPage is clicks and impressions summed per query and page.
type QueryPage struct {
	Query       string  `json:"query"`
	Page        string  `json:"page"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
}

// Cannibalization finds non-branded queries served by two or more pages
// where each page takes at least 10% of the query's clicks and the query
// brings at least 10% of each page's clicks.
func Cannibalization(r *report.Report, brandTerms []string) ([]CannibalizationRow, error) {
	if err := r.Require([]string{colQuery, colPage}, []string{colClicks, colImpressions}); err != nil {
		return nil, err
	}
	brand := newBrandMatcher(brandTerms)

	idx := map[[2]string]int{}
	var pairs []QueryPage
	for i := 0; i < r.Len(); i++ {
		q := r.Dim(i, colQuery)
		if brand.match(q) {
			continue
		}
		key := [2]string{q, r.Dim(i, colPage)}
		k, ok := idx[key]
		if !ok {
			k = len(pairs)
			idx[key] = k
			pairs = append(pairs, QueryPage{Query: key[0], Page: key[1]})
		}
		pairs[k].Clicks += r.Metric(i, colClicks)
		pairs[k].Impressions += r.Metric(i, colImpressions)
	}
	return CannibalizationFrom(pairs), nil
}

// CannibalizationFrom applies the share thresholds to non-branded
// query/page totals.
func CannibalizationFrom(pairs []QueryPage) []CannibalizationRow {
	pageClicks := map[string]float64{}
	queryClicks := map[string]float64{}
	queryPages := map[string]int{}
	for _, p := range pairs {
		pageClicks[p.Page] += p.Clicks
		queryClicks[p.Query] += p.Clicks
		queryPages[p.Query]++
	}

	var candidates []CannibalizationRow
	qualifying := map[string]int{}
	for _, p := range pairs {
		qc := queryClicks[p.Query]
		if queryPages[p.Query] < 2 || qc < 1 {
			continue
		}
		pc := pageClicks[p.Page]
		row := CannibalizationRow{
			Query:       p.Query,
			Page:        p.Page,
			Clicks:      p.Clicks,
			Impressions: p.Impressions,
			QueryClicks: qc,
			PageClicks:  pc,
			ClickPct:    p.Clicks / qc,
		}
		if pc > 0 {
			row.ClickPctPage = p.Clicks / pc
		}
		if row.ClickPct >= ShareThreshold {
			qualifying[p.Query]++
		}
		candidates = append(candidates, row)
	}

	var kept []CannibalizationRow
	remaining := map[string]int{}
	for _, c := range candidates {
		if qualifying[c.Query] < 2 {
			continue
		}
		if c.ClickPct < ShareThreshold || c.ClickPctPage < ShareThreshold {
			continue
		}
		kept = append(kept, c)
		remaining[c.Query]++
	}

	var out []CannibalizationRow
	for _, c := range kept {
		if remaining[c.Query] < 2 {
			continue
		}
		c.ClickPct = Round(100*c.ClickPct, 2)
		c.ClickPctPage = Round(100*c.ClickPctPage, 2)
		c.Opportunity = OpportunityLabel
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b CannibalizationRow) int {
		if c := strings.Compare(a.Query, b.Query); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Clicks, a.Clicks); c != 0 {
			return c
		}
		return strings.Compare(a.Page, b.Page)
	})
	return out
}
