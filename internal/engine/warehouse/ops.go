package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gsc-insights/internal/analytics"
	"gsc-insights/internal/ddl"
	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// prepare validates q and starts a statement on the table it needs.
func (e *Engine) prepare(q Query, needsURL bool) (*builder, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return newBuilder(e.dialect, q.Table(needsURL)), nil
}

// entityColumn maps a page or query entity to its column.
func entityColumn(entity string) (col string, needsURL bool) {
	if entity == string(domain.DimensionPage) {
		return colURL, true
	}
	return colQuery, false
}

// queryDaily is the per query and day aggregate every position based
// operation starts from. It reproduces the rows of a REST report grouped by
// query and date.
func (b *builder) queryDaily(q Query) string {
	return fmt.Sprintf(`SELECT %s, %s, SUM(%s) AS clicks, SUM(%s) AS impressions, %s AS avg_position
FROM %s
%s
GROUP BY %s, %s`,
		colQuery, colDate, colClicks, colImpressions, b.position(),
		b.from(),
		b.where(q, colQuery+" IS NOT NULL"),
		colQuery, colDate)
}

// topPositions keeps rounded positions inside the top-10 window.
func topPositions(expr string) string {
	return fmt.Sprintf("ROUND(%s) BETWEEN %d AND %d", expr, analytics.MinPosition, analytics.MaxPosition)
}

// Report aggregates clicks, impressions, ctr and position over dims, named
// and shaped like a REST report. An empty result is an EmptyResultError.
func (e *Engine) Report(ctx context.Context, q Query, dims ...string) (Result[*report.Report], error) {
	if len(dims) == 0 {
		return Result[*report.Report]{}, domain.ErrValidation("at least one dimension is required")
	}
	needsURL := false
	selects := make([]string, 0, len(dims)+4)
	var extra []string
	for _, name := range dims {
		d, err := domain.ParseDimension(name)
		if err != nil {
			return Result[*report.Report]{}, err
		}
		col, err := ColumnFor(d)
		if err != nil {
			return Result[*report.Report]{}, err
		}
		if col == colURL {
			needsURL = true
		}
		if col == colQuery {
			extra = append(extra, colQuery+" IS NOT NULL")
		}
		selects = append(selects, col+" AS "+string(d))
	}
	b, err := e.prepare(q, needsURL)
	if err != nil {
		return Result[*report.Report]{}, err
	}
	selects = append(selects,
		b.sum(colClicks)+" AS "+domain.MetricClicks,
		b.sum(colImpressions)+" AS "+domain.MetricImpressions,
		b.d.Float(fmt.Sprintf("SUM(%s) / NULLIF(SUM(%s), 0)", colClicks, colImpressions))+" AS "+domain.MetricCTR,
		b.position()+" AS "+domain.MetricPosition,
	)
	groups := make([]string, len(dims))
	for i := range dims {
		groups[i] = fmt.Sprint(i + 1)
	}
	sql := fmt.Sprintf("SELECT %s\nFROM %s\n%s\nGROUP BY %s\nORDER BY %d DESC, %s",
		strings.Join(selects, ",\n  "), b.from(), b.where(q, extra...),
		strings.Join(groups, ", "), len(dims)+1, strings.Join(groups, ", "))

	meta := report.Meta{Site: q.site(), Start: q.start, End: q.end}
	return run(ctx, e, b.statement("report", sql), func(t *report.Table) (*report.Report, error) {
		if t.Len() == 0 {
			return nil, domain.ErrEmptyResult("no rows between %s and %s", q.start, q.end)
		}
		return report.FromTable(meta, t)
	})
}

// CTRYieldCurve computes the site's CTR per rounded position.
func (e *Engine) CTRYieldCurve(ctx context.Context, q Query) (Result[[]analytics.CurvePoint], error) {
	b, err := e.prepare(q, false)
	if err != nil {
		return Result[[]analytics.CurvePoint]{}, err
	}
	sql := fmt.Sprintf(`WITH qd AS (
%s
)
SELECT %s AS position, %s AS clicks, %s AS impressions, COUNT(*) AS kw_count
FROM qd
WHERE %s
GROUP BY 1
ORDER BY 1`,
		b.queryDaily(q), b.d.Int("ROUND(avg_position)"), b.sum("clicks"), b.sum("impressions"),
		topPositions("avg_position"))
	return run(ctx, e, b.statement("ctr_yield_curve", sql), then(func(rows []analytics.CurvePoint) ([]analytics.CurvePoint, error) {
		return analytics.CurveFrom(rows), nil
	}))
}

type outlierRow struct {
	Query            string  `json:"query"`
	Clicks           float64 `json:"clicks"`
	Impressions      float64 `json:"impressions"`
	Position         float64 `json:"position"`
	Bucket           int     `json:"bucket"`
	CurveClicks      float64 `json:"curve_clicks"`
	CurveImpressions float64 `json:"curve_impressions"`
}

// CTROutliers ranks queries by the clicks they lose against the site's own
// yield curve.
func (e *Engine) CTROutliers(ctx context.Context, q Query) (Result[[]analytics.CTROutlier], error) {
	b, err := e.prepare(q, false)
	if err != nil {
		return Result[[]analytics.CTROutlier]{}, err
	}
	sql := fmt.Sprintf(`WITH qd AS (
%s
),
curve AS (
  SELECT ROUND(avg_position) AS bucket, SUM(clicks) AS clicks, SUM(impressions) AS impressions
  FROM qd
  WHERE %s
  GROUP BY 1
),
per_query AS (
  SELECT query, SUM(clicks) AS clicks, SUM(impressions) AS impressions,
    SUM(avg_position * impressions) / NULLIF(SUM(impressions), 0) AS avg_position
  FROM qd
  GROUP BY query
)
SELECT pq.query AS query, %s AS clicks, %s AS impressions, pq.avg_position AS position,
  %s AS bucket, %s AS curve_clicks, %s AS curve_impressions
FROM per_query pq
JOIN curve c ON ROUND(pq.avg_position) = c.bucket`,
		b.queryDaily(q), topPositions("avg_position"),
		b.d.Float("pq.clicks"), b.d.Float("pq.impressions"),
		b.d.Int("c.bucket"), b.d.Float("c.clicks"), b.d.Float("c.impressions"))
	return run(ctx, e, b.statement("ctr_outliers", sql), then(func(rows []outlierRow) ([]analytics.CTROutlier, error) {
		seen := map[int]bool{}
		var curve []analytics.CurvePoint
		positions := make([]analytics.QueryPosition, 0, len(rows))
		for _, r := range rows {
			if !seen[r.Bucket] {
				seen[r.Bucket] = true
				curve = append(curve, analytics.CurvePoint{Position: r.Bucket, Clicks: r.CurveClicks, Impressions: r.CurveImpressions})
			}
			positions = append(positions, analytics.QueryPosition{
				Query: r.Query, Clicks: r.Clicks, Impressions: r.Impressions, Position: r.Position,
			})
		}
		return analytics.OutliersFrom(analytics.CurveFrom(curve), positions), nil
	}))
}

// dailyTotals sums clicks and impressions per day.
func (b *builder) dailyTotals(q Query) string {
	return fmt.Sprintf("SELECT %s AS date, %s AS clicks, %s AS impressions\nFROM %s\n%s\nGROUP BY 1\nORDER BY 1",
		colDate, b.sum(colClicks), b.sum(colImpressions), b.from(), b.where(q))
}

// GroupByPeriod resamples daily totals into calendar buckets.
func (e *Engine) GroupByPeriod(ctx context.Context, q Query, period domain.Period) (Result[[]analytics.PeriodTotal], error) {
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return Result[[]analytics.PeriodTotal]{}, err
	}
	b, err := e.prepare(q, false)
	if err != nil {
		return Result[[]analytics.PeriodTotal]{}, err
	}
	return run(ctx, e, b.statement("group_by_period", b.dailyTotals(q)), then(func(rows []analytics.DailyTotal) ([]analytics.PeriodTotal, error) {
		return analytics.Resample(rows, period)
	}))
}

// Cannibalization finds non-branded queries split across several pages.
func (e *Engine) Cannibalization(ctx context.Context, q Query, brandTerms []string) (Result[[]analytics.CannibalizationRow], error) {
	b, err := e.prepare(q, true)
	if err != nil {
		return Result[[]analytics.CannibalizationRow]{}, err
	}
	extra := []string{colQuery + " IS NOT NULL", colURL + " IS NOT NULL"}
	if p := analytics.BrandPattern(brandTerms); p != "" {
		extra = append(extra, "NOT ("+b.d.Regex(colQuery, b.named("brand_pattern", p))+")")
	}
	sql := fmt.Sprintf("SELECT %s AS query, %s AS page, %s AS clicks, %s AS impressions\nFROM %s\n%s\nGROUP BY 1, 2",
		colQuery, colURL, b.sum(colClicks), b.sum(colImpressions), b.from(), b.where(q, extra...))
	return run(ctx, e, b.statement("cannibalization", sql), then(func(rows []analytics.QueryPage) ([]analytics.CannibalizationRow, error) {
		return analytics.CannibalizationFrom(rows), nil
	}))
}

type decayBucket struct {
	Entity      string  `json:"entity"`
	PeriodStart string  `json:"period_start"`
	Value       float64 `json:"value"`
	FirstDate   string  `json:"first_date"`
	LastDate    string  `json:"last_date"`
}

// ContentDecay compares every entity's latest complete period with its
// best one. Periods are summed in SQL; the complete-period window is
// derived from the first and last day the statement saw.
func (e *Engine) ContentDecay(ctx context.Context, q Query, opts analytics.DecayOptions) (Result[[]analytics.DecayRow], error) {
	if err := opts.Validate(); err != nil {
		return Result[[]analytics.DecayRow]{}, err
	}
	col, needsURL := entityColumn(opts.Entity)
	b, err := e.prepare(q, needsURL)
	if err != nil {
		return Result[[]analytics.DecayRow]{}, err
	}
	sql := fmt.Sprintf(`SELECT %s AS entity, %s AS period_start, %s AS value,
  MIN(%s) AS first_date, MAX(%s) AS last_date
FROM %s
%s
GROUP BY 1, 2`,
		col, b.d.TruncDate(colDate, opts.Period.Period()), b.sum(opts.Metric),
		colDate, colDate,
		b.from(), b.where(q, col+" IS NOT NULL"))
	return run(ctx, e, b.statement("content_decay", sql), then(func(rows []decayBucket) ([]analytics.DecayRow, error) {
		return decayFromBuckets(rows, opts)
	}))
}

func decayFromBuckets(rows []decayBucket, opts analytics.DecayOptions) ([]analytics.DecayRow, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	firstS, lastS := rows[0].FirstDate, rows[0].LastDate
	for _, r := range rows[1:] {
		firstS = min(firstS, r.FirstDate)
		lastS = max(lastS, r.LastDate)
	}
	first, err := time.Parse(time.DateOnly, firstS)
	if err != nil {
		return nil, fmt.Errorf("first date %q: %w", firstS, err)
	}
	last, err := time.Parse(time.DateOnly, lastS)
	if err != nil {
		return nil, fmt.Errorf("last date %q: %w", lastS, err)
	}
	start, end, ok := analytics.CompleteWindow(first, last, opts.Period)
	if !ok {
		return nil, nil
	}
	series := make([]analytics.EntityPeriod, 0, len(rows))
	for _, r := range rows {
		ps, err := time.Parse(time.DateOnly, r.PeriodStart)
		if err != nil {
			return nil, fmt.Errorf("period start %q: %w", r.PeriodStart, err)
		}
		if ps.Before(start) || ps.After(end) {
			continue
		}
		series = append(series, analytics.EntityPeriod{Entity: r.Entity, Period: opts.Period.Label(ps), Value: r.Value})
	}
	return analytics.DecayFrom(series, opts), nil
}

type periodTotals struct {
	Entity string  `json:"entity"`
	Before float64 `json:"metric_before"`
	After  float64 `json:"metric_after"`
}

// WinnersLosers compares every entity's metric between two periods. The
// query range must cover both periods.
func (e *Engine) WinnersLosers(ctx context.Context, q Query, from, to analytics.DateRange, opts analytics.WinnersOptions) (Result[[]analytics.WinnerLoser], error) {
	if err := opts.Validate(); err != nil {
		return Result[[]analytics.WinnerLoser]{}, err
	}
	if err := analytics.ValidatePeriods(from, to); err != nil {
		return Result[[]analytics.WinnerLoser]{}, err
	}
	col, needsURL := entityColumn(opts.Entity)
	b, err := e.prepare(q, needsURL)
	if err != nil {
		return Result[[]analytics.WinnerLoser]{}, err
	}
	if err := analytics.CheckCoverage(q.start, q.end, from, to); err != nil {
		return Result[[]analytics.WinnerLoser]{}, err
	}
	inFrom := b.dateBetween(b.named("from_start", from.Start), b.named("from_end", from.End))
	inTo := b.dateBetween(b.named("to_start", to.Start), b.named("to_end", to.End))
	sql := fmt.Sprintf(`SELECT %s AS entity,
  %s AS metric_before,
  %s AS metric_after
FROM %s
%s
GROUP BY 1`,
		col,
		b.d.Float(fmt.Sprintf("SUM(CASE WHEN %s THEN %s ELSE 0 END)", inFrom, opts.Metric)),
		b.d.Float(fmt.Sprintf("SUM(CASE WHEN %s THEN %s ELSE 0 END)", inTo, opts.Metric)),
		b.from(),
		b.where(q, col+" IS NOT NULL", "("+inFrom+" OR "+inTo+")"))
	return run(ctx, e, b.statement("winners_losers", sql), then(func(rows []periodTotals) ([]analytics.WinnerLoser, error) {
		before := make(map[string]float64, len(rows))
		after := make(map[string]float64, len(rows))
		for _, r := range rows {
			before[r.Entity] = r.Before
			after[r.Entity] = r.After
		}
		return analytics.WinnersFromTotals(before, after), nil
	}))
}

type abcdGroup struct {
	Key   string   `json:"key"`
	Value float64  `json:"value"`
	Pct   *float64 `json:"metric_pct"`
}

// ABCD classes groups of dims by their cumulative share of metric. The
// running share is a window over the groups sorted by value.
func (e *Engine) ABCD(ctx context.Context, q Query, metric string, dims ...string) (Result[[]analytics.ABCDRow], error) {
	if _, err := domain.ParseMetric(metric); err != nil {
		return Result[[]analytics.ABCDRow]{}, err
	}
	if len(dims) == 0 {
		return Result[[]analytics.ABCDRow]{}, domain.ErrValidation("abcd needs at least one dimension")
	}
	needsURL := false
	var parts, notNull []string
	for _, name := range dims {
		d, err := domain.ParseDimension(name)
		if err != nil {
			return Result[[]analytics.ABCDRow]{}, err
		}
		col, err := ColumnFor(d)
		if err != nil {
			return Result[[]analytics.ABCDRow]{}, err
		}
		needsURL = needsURL || col == colURL
		parts = append(parts, e.dialect.Text(col))
		notNull = append(notNull, col+" IS NOT NULL")
	}
	b, err := e.prepare(q, needsURL)
	if err != nil {
		return Result[[]analytics.ABCDRow]{}, err
	}
	key := parts[0]
	if len(parts) > 1 {
		key = "CONCAT(" + strings.Join(parts, ", "+ddl.QuoteLiteral(analytics.KeySeparator)+", ") + ")"
	}
	sql := fmt.Sprintf(`WITH g AS (
  SELECT %s AS group_key, %s AS group_value
  FROM %s
  %s
  GROUP BY 1
)
SELECT group_key AS key, group_value AS value,
  100 * SUM(group_value) OVER (ORDER BY group_value DESC, group_key ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW)
    / NULLIF(SUM(group_value) OVER (), 0) AS metric_pct
FROM g
ORDER BY 2 DESC, 1`,
		key, b.sum(metric), b.from(), b.where(q, notNull...))
	return run(ctx, e, b.statement("abcd", sql), then(func(rows []abcdGroup) ([]analytics.ABCDRow, error) {
		out := make([]analytics.ABCDRow, len(rows))
		for i, r := range rows {
			pct := 100.0
			if r.Pct != nil {
				pct = *r.Pct
			}
			pct = analytics.Round(pct, 2)
			out[i] = analytics.ABCDRow{
				Key:           r.Key,
				Value:         r.Value,
				CumulativePct: pct,
				Class:         analytics.Classify(pct),
			}
		}
		return out, nil
	}))
}
