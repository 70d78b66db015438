package analytics

import (
	"slices"
	"strings"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// NGram is a word sequence with the traffic of the queries containing it.
type NGram struct {
	Gram         string  `json:"n_gram"`
	Clicks       float64 `json:"clicks"`
	Impressions  float64 `json:"impressions"`
	KeywordCount int     `json:"kw_count"`
}

// Grams returns the distinct n-word sequences of text, in order of first
// appearance. Words are separated by runs of whitespace.
func Grams(text string, n int) []string {
	words := strings.Fields(text)
	if n < 1 || len(words) < n {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for i := 0; i+n <= len(words); i++ {
		g := strings.Join(words[i:i+n], " ")
		if seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}

// NGrams splits every query into n-word sequences and sums clicks and
// impressions per sequence.
func NGrams(r *report.Report, n int) ([]NGram, error) {
	if n < 1 {
		return nil, domain.ErrValidation("n must be at least 1, got %d", n)
	}
	if err := r.Require([]string{colQuery}, []string{colClicks, colImpressions}); err != nil {
		return nil, err
	}
	return NGramsFromTotals(queryTotals(r), n), nil
}

// NGramsFromTotals computes n-grams from per query totals.
func NGramsFromTotals(totals []QueryTotal, n int) []NGram {
	idx := map[string]int{}
	var out []NGram
	for _, q := range totals {
		for _, g := range Grams(q.Query, n) {
			k, ok := idx[g]
			if !ok {
				k = len(out)
				idx[g] = k
				out = append(out, NGram{Gram: g})
			}
			out[k].Clicks += q.Clicks
			out[k].Impressions += q.Impressions
			out[k].KeywordCount++
		}
	}
	slices.SortFunc(out, func(a, b NGram) int { return byClicksDesc(a.Clicks, b.Clicks, a.Gram, b.Gram) })
	return out
}
