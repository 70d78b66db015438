package analytics

import (
	"cmp"
	"slices"
	"strings"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// BrandDay splits one day's traffic into branded and non-branded queries.
type BrandDay struct {
	Date               string  `json:"date"`
	ClicksBrand        float64 `json:"clicks_brand"`
	ImpressionsBrand   float64 `json:"impressions_brand"`
	ClicksNoBrand      float64 `json:"clicks_no_brand"`
	ImpressionsNoBrand float64 `json:"impressions_no_brand"`
}

// BrandSplit sums daily clicks and impressions of branded and non-branded
// queries side by side.
func BrandSplit(r *report.Report, brandTerms []string) ([]BrandDay, error) {
	if BrandPattern(brandTerms) == "" {
		return nil, domain.ErrValidation("at least one brand term is required")
	}
	if err := r.Require([]string{colQuery, colDate}, []string{colClicks, colImpressions}); err != nil {
		return nil, err
	}
	brand := newBrandMatcher(brandTerms)
	idx := map[string]int{}
	var out []BrandDay
	for i := 0; i < r.Len(); i++ {
		d := r.Dim(i, colDate)
		k, ok := idx[d]
		if !ok {
			k = len(out)
			idx[d] = k
			out = append(out, BrandDay{Date: d})
		}
		c, imp := r.Metric(i, colClicks), r.Metric(i, colImpressions)
		if brand.match(r.Dim(i, colQuery)) {
			out[k].ClicksBrand += c
			out[k].ImpressionsBrand += imp
		} else {
			out[k].ClicksNoBrand += c
			out[k].ImpressionsNoBrand += imp
		}
	}
	slices.SortFunc(out, func(a, b BrandDay) int { return strings.Compare(a.Date, b.Date) })
	return out, nil
}

// Keyword is a candidate keyword the site does not rank for.
type Keyword struct {
	Keyword string `json:"keyword"`
}

// KeywordGap returns the keywords that never appear as a query in the
// report, in input order.
func KeywordGap(r *report.Report, keywords []string) ([]Keyword, error) {
	if err := r.Require([]string{colQuery}, nil); err != nil {
		return nil, err
	}
	queries := make(map[string]bool, r.Len())
	for i := 0; i < r.Len(); i++ {
		queries[r.Dim(i, colQuery)] = true
	}
	return KeywordGapFrom(queries, keywords)
}

// KeywordGapFrom diffs keywords against a set of known queries.
func KeywordGapFrom(queries map[string]bool, keywords []string) ([]Keyword, error) {
	if len(keywords) == 0 {
		return nil, domain.ErrValidation("a non-empty list of keywords is required")
	}
	seen := map[string]bool{}
	var out []Keyword
	for _, k := range keywords {
		if k == "" || seen[k] || queries[k] {
			continue
		}
		seen[k] = true
		out = append(out, Keyword{Keyword: k})
	}
	return out, nil
}

// LongTailKeyword is a query of at least the requested number of words.
type LongTailKeyword struct {
	Query       string  `json:"query"`
	Words       int     `json:"n_words"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
}

// WordCount counts the space separated words of a query.
func WordCount(q string) int {
	return len(strings.Split(q, " "))
}

// LongTailKeywords keeps the queries with at least minWords words.
func LongTailKeywords(r *report.Report, minWords int) ([]LongTailKeyword, error) {
	if minWords < 1 {
		return nil, domain.ErrValidation("the number of words must be greater than 0, got %d", minWords)
	}
	if err := r.Require([]string{colQuery}, []string{colClicks, colImpressions}); err != nil {
		return nil, err
	}
	var out []LongTailKeyword
	for _, q := range queryTotals(r) {
		n := WordCount(q.Query)
		if n < minWords {
			continue
		}
		out = append(out, LongTailKeyword{Query: q.Query, Words: n, Clicks: q.Clicks, Impressions: q.Impressions})
	}
	slices.SortFunc(out, func(a, b LongTailKeyword) int { return byClicksDesc(a.Clicks, b.Clicks, a.Query, b.Query) })
	return out, nil
}

// PositionCount is the number of rows ranking at a position in a month.
type PositionCount struct {
	Month    string `json:"month"`
	Position int    `json:"position"`
	Queries  int    `json:"queries"`
}

// PositionOverTime counts query rows per month and rounded top-10 position.
func PositionOverTime(r *report.Report) ([]PositionCount, error) {
	if err := r.Require([]string{colQuery, colDate}, []string{colPosition}); err != nil {
		return nil, err
	}
	counts := map[PositionCount]int{}
	for i := 0; i < r.Len(); i++ {
		p := RoundPosition(r.Metric(i, colPosition))
		if p < MinPosition || p > MaxPosition {
			continue
		}
		d := r.Dim(i, colDate)
		if len(d) < 7 {
			return nil, domain.ErrValidation("invalid date %q: expected YYYY-MM-DD", d)
		}
		counts[PositionCount{Month: d[:7], Position: p}]++
	}
	out := make([]PositionCount, 0, len(counts))
	for k, n := range counts {
		k.Queries = n
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b PositionCount) int {
		if c := strings.Compare(a.Month, b.Month); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	return out, nil
}
