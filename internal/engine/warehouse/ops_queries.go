package warehouse

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"gsc-insights/internal/analytics"
	"gsc-insights/internal/domain"
)

// pageTotals sums clicks and impressions per URL.
func (b *builder) pageTotals(q Query) string {
	return fmt.Sprintf("SELECT %s AS page, %s AS clicks, %s AS impressions\nFROM %s\n%s\nGROUP BY 1",
		colURL, b.sum(colClicks), b.sum(colImpressions), b.from(), b.where(q, colURL+" IS NOT NULL"))
}

// queryTotals sums clicks and impressions per query.
func (b *builder) queryTotals(q Query) string {
	return fmt.Sprintf("SELECT %s AS query, %s AS clicks, %s AS impressions\nFROM %s\n%s\nGROUP BY 1",
		colQuery, b.sum(colClicks), b.sum(colImpressions), b.from(), b.where(q, colQuery+" IS NOT NULL"))
}

// ActivePages reports which reference URLs earned impressions and clicks.
func (e *Engine) ActivePages(ctx context.Context, q Query, urls []string) (Result[[]analytics.PageActivity], error) {
	if _, err := analytics.RequireURLs(urls); err != nil {
		return Result[[]analytics.PageActivity]{}, err
	}
	b, err := e.prepare(q, true)
	if err != nil {
		return Result[[]analytics.PageActivity]{}, err
	}
	return run(ctx, e, b.statement("active_pages", b.pageTotals(q)), then(func(rows []analytics.PageTotal) ([]analytics.PageActivity, error) {
		return analytics.ActivePagesFromTotals(rows, urls)
	}))
}

// ContentsToKill returns the reference URLs at or below both thresholds.
func (e *Engine) ContentsToKill(ctx context.Context, q Query, urls []string, maxClicks, maxImpressions float64) (Result[[]analytics.PageTotal], error) {
	if err := analytics.ValidateKillThresholds(maxClicks, maxImpressions); err != nil {
		return Result[[]analytics.PageTotal]{}, err
	}
	if _, err := analytics.RequireURLs(urls); err != nil {
		return Result[[]analytics.PageTotal]{}, err
	}
	b, err := e.prepare(q, true)
	if err != nil {
		return Result[[]analytics.PageTotal]{}, err
	}
	return run(ctx, e, b.statement("contents_to_kill", b.pageTotals(q)), then(func(rows []analytics.PageTotal) ([]analytics.PageTotal, error) {
		return analytics.ContentsToKillFromTotals(rows, urls, maxClicks, maxImpressions)
	}))
}

// PagesNotInSitemap returns the pages with impressions missing from urls.
func (e *Engine) PagesNotInSitemap(ctx context.Context, q Query, urls []string) (Result[[]analytics.PageTotal], error) {
	if _, err := analytics.RequireURLs(urls); err != nil {
		return Result[[]analytics.PageTotal]{}, err
	}
	b, err := e.prepare(q, true)
	if err != nil {
		return Result[[]analytics.PageTotal]{}, err
	}
	return run(ctx, e, b.statement("pages_not_in_sitemap", b.pageTotals(q)), then(func(rows []analytics.PageTotal) ([]analytics.PageTotal, error) {
		return analytics.PagesNotInSitemapFromTotals(rows, urls)
	}))
}

// BrandSplit sums daily traffic of branded and non-branded queries.
func (e *Engine) BrandSplit(ctx context.Context, q Query, brandTerms []string) (Result[[]analytics.BrandDay], error) {
	pattern := analytics.BrandPattern(brandTerms)
	if pattern == "" {
		return Result[[]analytics.BrandDay]{}, domain.ErrValidation("at least one brand term is required")
	}
	b, err := e.prepare(q, false)
	if err != nil {
		return Result[[]analytics.BrandDay]{}, err
	}
	brand := b.d.Regex(colQuery, b.named("brand_pattern", pattern))
	split := func(col string, branded bool) string {
		if branded {
			return b.d.Float(fmt.Sprintf("SUM(CASE WHEN %s THEN %s ELSE 0 END)", brand, col))
		}
		return b.d.Float(fmt.Sprintf("SUM(CASE WHEN %s THEN 0 ELSE %s END)", brand, col))
	}
	sql := fmt.Sprintf(`SELECT %s AS date,
  %s AS clicks_brand,
  %s AS impressions_brand,
  %s AS clicks_no_brand,
  %s AS impressions_no_brand
FROM %s
%s
GROUP BY 1
ORDER BY 1`,
		colDate,
		split(colClicks, true), split(colImpressions, true),
		split(colClicks, false), split(colImpressions, false),
		b.from(), b.where(q, colQuery+" IS NOT NULL"))
	return run(ctx, e, b.statement("brand_split", sql), decodeAs[analytics.BrandDay])
}

// LongTailKeywords keeps the queries of at least minWords words.
func (e *Engine) LongTailKeywords(ctx context.Context, q Query, minWords int) (Result[[]analytics.LongTailKeyword], error) {
	if minWords < 1 {
		return Result[[]analytics.LongTailKeyword]{}, domain.ErrValidation("the number of words must be greater than 0, got %d", minWords)
	}
	b, err := e.prepare(q, false)
	if err != nil {
		return Result[[]analytics.LongTailKeyword]{}, err
	}
	words := b.d.WordCount(colQuery)
	minParam := b.named("min_words", minWords)
	sql := fmt.Sprintf(`SELECT %s AS query, %s AS n_words, %s AS clicks, %s AS impressions
FROM %s
%s
GROUP BY 1, 2
ORDER BY 3 DESC, 1`,
		colQuery, b.d.Int(words), b.sum(colClicks), b.sum(colImpressions),
		b.from(), b.where(q, colQuery+" IS NOT NULL", words+" >= "+minParam))
	return run(ctx, e, b.statement("long_tail_keywords", sql), decodeAs[analytics.LongTailKeyword])
}

// PositionOverTime counts query days per month and rounded top-10 position.
func (e *Engine) PositionOverTime(ctx context.Context, q Query) (Result[[]analytics.PositionCount], error) {
	b, err := e.prepare(q, false)
	if err != nil {
		return Result[[]analytics.PositionCount]{}, err
	}
	sql := fmt.Sprintf(`WITH qd AS (
%s
)
SELECT %s AS month, %s AS position, COUNT(*) AS queries
FROM qd
WHERE %s
GROUP BY 1, 2
ORDER BY 1, 2`,
		b.queryDaily(q), b.d.FormatDate(colDate, "%Y-%m"), b.d.Int("ROUND(avg_position)"),
		topPositions("avg_position"))
	return run(ctx, e, b.statement("position_over_time", sql), decodeAs[analytics.PositionCount])
}

// KeywordGap returns the keywords the site never ranked for. Only the
// candidate keywords are looked up.
func (e *Engine) KeywordGap(ctx context.Context, q Query, keywords []string) (Result[[]analytics.Keyword], error) {
	var candidates []string
	for _, k := range keywords {
		if k != "" && !slices.Contains(candidates, k) {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return Result[[]analytics.Keyword]{}, domain.ErrValidation("a non-empty list of keywords is required")
	}
	b, err := e.prepare(q, false)
	if err != nil {
		return Result[[]analytics.Keyword]{}, err
	}
	placeholders := make([]string, len(candidates))
	for i, k := range candidates {
		placeholders[i] = b.bind(k)
	}
	sql := fmt.Sprintf("SELECT DISTINCT %s AS query\nFROM %s\n%s",
		colQuery, b.from(), b.where(q, colQuery+" IN ("+strings.Join(placeholders, ", ")+")"))
	return run(ctx, e, b.statement("keyword_gap", sql), then(func(rows []analytics.QueryTotal) ([]analytics.Keyword, error) {
		seen := make(map[string]bool, len(rows))
		for _, r := range rows {
			seen[r.Query] = true
		}
		return analytics.KeywordGapFrom(seen, keywords)
	}))
}

// NGrams sums query traffic per n-word sequence.
func (e *Engine) NGrams(ctx context.Context, q Query, n int) (Result[[]analytics.NGram], error) {
	if n < 1 {
		return Result[[]analytics.NGram]{}, domain.ErrValidation("n must be at least 1, got %d", n)
	}
	b, err := e.prepare(q, false)
	if err != nil {
		return Result[[]analytics.NGram]{}, err
	}
	return run(ctx, e, b.statement("ngrams", b.queryTotals(q)), then(func(rows []analytics.QueryTotal) ([]analytics.NGram, error) {
		return analytics.NGramsFromTotals(rows, n), nil
	}))
}

// Categorize labels every value of dim with the first matching rule and
// sums traffic per label. Patterns and labels are bound parameters.
func (e *Engine) Categorize(ctx context.Context, q Query, dim string, rules []analytics.Rule) (Result[[]analytics.CategoryTotal], error) {
	c, err := analytics.NewClassifier(rules)
	if err != nil {
		return Result[[]analytics.CategoryTotal]{}, err
	}
	d, err := domain.ParseDimension(dim)
	if err != nil {
		return Result[[]analytics.CategoryTotal]{}, err
	}
	col, err := ColumnFor(d)
	if err != nil {
		return Result[[]analytics.CategoryTotal]{}, err
	}
	b, err := e.prepare(q, col == colURL)
	if err != nil {
		return Result[[]analytics.CategoryTotal]{}, err
	}
	ref := col
	if col == colDate {
		ref = b.d.Text(col)
	}
	var whens strings.Builder
	var fallback string
	for _, r := range c.Rules() {
		switch r.Match.Kind {
		case analytics.MatchEquals:
			fmt.Fprintf(&whens, " WHEN %s = %s", ref, b.bind(r.Match.Value))
		case analytics.MatchContains:
			fmt.Fprintf(&whens, " WHEN %s", b.contains(ref, r.Match.Value))
		case analytics.MatchRegex:
			fmt.Fprintf(&whens, " WHEN %s", b.d.Regex(ref, b.bind(r.Match.Value)))
		case analytics.MatchAny:
			fallback = b.bind(r.Label)
			continue
		}
		fmt.Fprintf(&whens, " THEN %s", b.bind(r.Label))
	}
	label := fallback
	if whens.Len() > 0 {
		label = "CASE" + whens.String() + " ELSE " + fallback + " END"
	}
	sql := fmt.Sprintf(`SELECT category, %s AS clicks, %s AS impressions
FROM (
  SELECT %s AS category, %s, %s
  FROM %s
  %s
) labelled
GROUP BY category`,
		b.sum(colClicks), b.sum(colImpressions),
		label, colClicks, colImpressions,
		b.from(), b.where(q, col+" IS NOT NULL"))
	return run(ctx, e, b.statement("categorize", sql), then(func(rows []analytics.CategoryTotal) ([]analytics.CategoryTotal, error) {
		sums := make(map[string]*analytics.CategoryTotal, len(rows))
		for i := range rows {
			sums[rows[i].Category] = &rows[i]
		}
		return c.Order(sums), nil
	}))
}

// UniqueQueryCount counts distinct non-empty queries per page.
func (e *Engine) UniqueQueryCount(ctx context.Context, q Query) (Result[[]analytics.QueryCount], error) {
	b, err := e.prepare(q, true)
	if err != nil {
		return Result[[]analytics.QueryCount]{}, err
	}
	sql := fmt.Sprintf("SELECT %s AS page, COUNT(DISTINCT %s) AS uqc\nFROM %s\n%s\nGROUP BY 1\nORDER BY 2 DESC, 1",
		colURL, colQuery, b.from(),
		b.where(q, colURL+" IS NOT NULL", colQuery+" IS NOT NULL", colQuery+" != ''"))
	return run(ctx, e, b.statement("unique_query_count", sql), decodeAs[analytics.QueryCount])
}

// PagesPerDay counts distinct pages per day.
func (e *Engine) PagesPerDay(ctx context.Context, q Query) (Result[[]analytics.DayPages], error) {
	b, err := e.prepare(q, true)
	if err != nil {
		return Result[[]analytics.DayPages]{}, err
	}
	sql := fmt.Sprintf("SELECT %s AS date, COUNT(DISTINCT %s) AS pages\nFROM %s\n%s\nGROUP BY 1\nORDER BY 1",
		colDate, colURL, b.from(), b.where(q, colURL+" IS NOT NULL", colURL+" != ''"))
	return run(ctx, e, b.statement("pages_per_day", sql), decodeAs[analytics.DayPages])
}

// PagesLifespan histograms pages by the number of days they were seen.
func (e *Engine) PagesLifespan(ctx context.Context, q Query) (Result[[]analytics.Lifespan], error) {
	b, err := e.prepare(q, true)
	if err != nil {
		return Result[[]analytics.Lifespan]{}, err
	}
	sql := fmt.Sprintf(`WITH p AS (
  SELECT %s, COUNT(DISTINCT %s) AS days
  FROM %s
  %s
  GROUP BY 1
)
SELECT days AS duration_days, COUNT(*) AS pages
FROM p
GROUP BY 1
ORDER BY 1 DESC`,
		colURL, colDate, b.from(), b.where(q, colURL+" IS NOT NULL"))
	return run(ctx, e, b.statement("pages_lifespan", sql), decodeAs[analytics.Lifespan])
}

// SeasonalityPerDay sums traffic per day of the week, Monday first.
func (e *Engine) SeasonalityPerDay(ctx context.Context, q Query) (Result[[]analytics.WeekdayTotal], error) {
	b, err := e.prepare(q, false)
	if err != nil {
		return Result[[]analytics.WeekdayTotal]{}, err
	}
	sql := fmt.Sprintf("SELECT %s AS day, %s AS clicks, %s AS impressions\nFROM %s\n%s\nGROUP BY 1",
		b.d.FormatDate(colDate, "%A"), b.sum(colClicks), b.sum(colImpressions), b.from(), b.where(q))
	return run(ctx, e, b.statement("seasonality_per_day", sql), then(func(rows []analytics.WeekdayTotal) ([]analytics.WeekdayTotal, error) {
		slices.SortFunc(rows, func(a, b analytics.WeekdayTotal) int {
			return analytics.WeekdayOrder(a.Day) - analytics.WeekdayOrder(b.Day)
		})
		return rows, nil
	}))
}

// DailySeries sums metric per day for forecasting and impact estimation.
func (e *Engine) DailySeries(ctx context.Context, q Query, metric string) (Result[[]analytics.SeriesPoint], error) {
	if _, err := domain.ParseMetric(metric); err != nil {
		return Result[[]analytics.SeriesPoint]{}, err
	}
	b, err := e.prepare(q, false)
	if err != nil {
		return Result[[]analytics.SeriesPoint]{}, err
	}
	sql := fmt.Sprintf("SELECT %s AS ds, %s AS y\nFROM %s\n%s\nGROUP BY 1\nORDER BY 1",
		colDate, b.sum(metric), b.from(), b.where(q))
	return run(ctx, e, b.statement("daily_series", sql), decodeAs[analytics.SeriesPoint])
}
