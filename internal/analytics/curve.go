package analytics

import (
	"cmp"
	"slices"
	"strings"

	"gsc-insights/internal/report"
)

// CurvePoint is one position bucket of the CTR yield curve.
type CurvePoint struct {
	Position     int     `json:"position"`
	CTR          float64 `json:"ctr"`
	Clicks       float64 `json:"clicks"`
	Impressions  float64 `json:"impressions"`
	KeywordCount int     `json:"kw_count"`
}

// CTRYieldCurve buckets rows by rounded position, keeps positions 1 to 10,
// and computes the click-through rate of each bucket.
func CTRYieldCurve(r *report.Report) ([]CurvePoint, error) {
	if err := r.Require([]string{colQuery, colDate}, []string{colClicks, colImpressions, colPosition}); err != nil {
		return nil, err
	}
	var buckets [MaxPosition + 1]CurvePoint
	for i := 0; i < r.Len(); i++ {
		p := RoundPosition(r.Metric(i, colPosition))
		if p < MinPosition || p > MaxPosition {
			continue
		}
		b := &buckets[p]
		b.Clicks += r.Metric(i, colClicks)
		b.Impressions += r.Metric(i, colImpressions)
		b.KeywordCount++
	}
	var out []CurvePoint
	for p := MinPosition; p <= MaxPosition; p++ {
		if buckets[p].KeywordCount == 0 {
			continue
		}
		buckets[p].Position = p
		out = append(out, buckets[p])
	}
	return CurveFrom(out), nil
}

// CurveFrom fills in the CTR of pre-summed position buckets and orders them
// by position. Buckets outside the top-10 window are dropped.
func CurveFrom(buckets []CurvePoint) []CurvePoint {
	out := make([]CurvePoint, 0, len(buckets))
	for _, b := range buckets {
		if b.Position < MinPosition || b.Position > MaxPosition {
			continue
		}
		b.CTR = CTR(b.Clicks, b.Impressions)
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b CurvePoint) int { return cmp.Compare(a.Position, b.Position) })
	return out
}

// CTROutlier is a query whose CTR is below the curve at its position.
type CTROutlier struct {
	Query       string  `json:"query"`
	Position    int     `json:"position"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
	RealCTR     float64 `json:"real_ctr"`
	ExpectedCTR float64 `json:"expected_ctr"`
	Loss        float64 `json:"loss"`
}

// CTROutliers compares each query's CTR with the site's own yield curve at
// the query's impression-weighted position and ranks the queries by the
// clicks they lose.
func CTROutliers(r *report.Report) ([]CTROutlier, error) {
	curve, err := CTRYieldCurve(r)
	if err != nil {
		return nil, err
	}
	type acc struct {
		clicks, impressions, weighted float64
	}
	idx := map[string]int{}
	var queries []string
	var accs []acc
	for i := 0; i < r.Len(); i++ {
		q := r.Dim(i, colQuery)
		k, ok := idx[q]
		if !ok {
			k = len(accs)
			idx[q] = k
			queries = append(queries, q)
			accs = append(accs, acc{})
		}
		imp := r.Metric(i, colImpressions)
		accs[k].clicks += r.Metric(i, colClicks)
		accs[k].impressions += imp
		accs[k].weighted += r.Metric(i, colPosition) * imp
	}

	positions := make([]QueryPosition, 0, len(accs))
	for k, a := range accs {
		if a.impressions == 0 {
			continue
		}
		positions = append(positions, QueryPosition{
			Query:       queries[k],
			Clicks:      a.clicks,
			Impressions: a.impressions,
			Position:    a.weighted / a.impressions,
		})
	}
	return OutliersFrom(curve, positions), nil
}

// QueryPosition is a query's totals with its impression weighted average
// position.
type QueryPosition struct {
	Query       string  `json:"query"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
	Position    float64 `json:"position"`
}

// OutliersFrom scores every query against the curve and keeps the ones
// losing clicks, largest loss first.
func OutliersFrom(curve []CurvePoint, queries []QueryPosition) []CTROutlier {
	expected := make(map[int]float64, len(curve))
	for _, c := range curve {
		expected[c.Position] = c.CTR
	}
	var out []CTROutlier
	for _, q := range queries {
		pos := RoundPosition(q.Position)
		exp, ok := expected[pos]
		if !ok || q.Impressions == 0 {
			continue
		}
		observed := CTR(q.Clicks, q.Impressions)
		loss := Round(q.Impressions*(exp-observed)/100, 0)
		if loss <= 0 {
			continue
		}
		out = append(out, CTROutlier{
			Query:       q.Query,
			Position:    pos,
			Clicks:      q.Clicks,
			Impressions: q.Impressions,
			RealCTR:     observed,
			ExpectedCTR: exp,
			Loss:        loss,
		})
	}
	slices.SortFunc(out, func(a, b CTROutlier) int {
		if c := cmp.Compare(b.Loss, a.Loss); c != 0 {
			return c
		}
		return strings.Compare(a.Query, b.Query)
	})
	return out
}
