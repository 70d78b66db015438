package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"gsc-insights/internal/analytics"
	"gsc-insights/internal/domain"
	"gsc-insights/internal/engine/warehouse"
	"gsc-insights/internal/report"
)

// opFlags holds every operation parameter; each operation registers only
// the flags it reads.
type opFlags struct {
	period          string
	brand           []string
	entity          string
	metric          string
	decayPeriod     string
	thresholdDecay  float64
	thresholdMetric float64
	from            []string
	to              []string
	groupBy         []string
	n               int
	minWords        int
	urls            []string
	urlsFile        string
	maxClicks       float64
	maxImpressions  float64
	keywords        []string
	dimension       string
	rules           []string
}

// operation is one analysis runnable on a fetched report or in the
// warehouse.
type operation struct {
	name  string
	short string
	flags func(fs *pflag.FlagSet, o *opFlags)
	// dims are the report dimensions the API fetch needs.
	dims func(o *opFlags) []string
	// span, when set, supplies the date range if none was given.
	span      func(o *opFlags) (start, end string, err error)
	rest      func(r *report.Report, o *opFlags) (any, error)
	warehouse func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error)
}

func fixed(dims ...string) func(*opFlags) []string {
	return func(*opFlags) []string { return dims }
}

// settle turns a warehouse result into rows or an estimate.
func settle[T any](res warehouse.Result[T], err error) (any, *domain.CostEstimate, error) {
	if err != nil {
		return nil, nil, err
	}
	if res.Estimated() {
		return nil, res.Estimate, nil
	}
	return res.Rows, nil, nil
}

// === flag groups ===

func brandFlag(fs *pflag.FlagSet, o *opFlags) {
	fs.StringSliceVar(&o.brand, "brand", nil, "Brand terms; queries matching any are branded")
}

func urlFlags(fs *pflag.FlagSet, o *opFlags) {
	fs.StringSliceVar(&o.urls, "urls", nil, "Site URLs to compare against")
	fs.StringVar(&o.urlsFile, "urls-file", "", "File with one URL per line, or an XML sitemap")
}

func decayFlags(fs *pflag.FlagSet, o *opFlags) {
	d := analytics.DefaultDecayOptions()
	fs.StringVar(&o.entity, "entity", d.Entity, "Entity to track (page, query)")
	fs.StringVar(&o.decayPeriod, "period", string(d.Period), "Bucket (week, month)")
	fs.StringVar(&o.metric, "metric", d.Metric, "Metric (clicks, impressions)")
	fs.Float64Var(&o.thresholdDecay, "threshold-decay", d.ThresholdDecay, "Minimum relative drop from the peak, 0.01 to 1")
	fs.Float64Var(&o.thresholdMetric, "threshold-metric", d.ThresholdMetric, "Minimum peak value")
}

func winnersFlags(fs *pflag.FlagSet, o *opFlags) {
	fs.StringSliceVar(&o.from, "from", nil, "First period as start,end")
	fs.StringSliceVar(&o.to, "to", nil, "Second period as start,end")
	fs.StringVar(&o.entity, "entity", "query", "Entity to compare (page, query)")
	fs.StringVar(&o.metric, "metric", domain.MetricClicks, "Metric (clicks, impressions)")
}

// === option builders ===

func (o *opFlags) decayOptions() (analytics.DecayOptions, error) {
	opts := analytics.DecayOptions{
		Entity:          o.entity,
		Period:          analytics.DecayPeriod(o.decayPeriod),
		Metric:          o.metric,
		ThresholdDecay:  o.thresholdDecay,
		ThresholdMetric: o.thresholdMetric,
	}
	return opts, opts.Validate()
}

func (o *opFlags) winners() (from, to analytics.DateRange, opts analytics.WinnersOptions, err error) {
	if from, err = analytics.ParseRange(o.from); err != nil {
		return from, to, opts, fmt.Errorf("--from: %w", err)
	}
	if to, err = analytics.ParseRange(o.to); err != nil {
		return from, to, opts, fmt.Errorf("--to: %w", err)
	}
	opts = analytics.WinnersOptions{Entity: o.entity, Metric: o.metric}
	if err = opts.Validate(); err != nil {
		return from, to, opts, err
	}
	return from, to, opts, analytics.ValidatePeriods(from, to)
}

func (o *opFlags) parsedRules() ([]analytics.Rule, error) {
	rules := make([]analytics.Rule, 0, len(o.rules))
	for _, s := range o.rules {
		r, err := analytics.ParseRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// siteURLs merges --urls with --urls-file.
func (o *opFlags) siteURLs() ([]string, error) {
	urls := append([]string(nil), o.urls...)
	if o.urlsFile != "" {
		more, err := readURLFile(o.urlsFile)
		if err != nil {
			return nil, err
		}
		urls = append(urls, more...)
	}
	return analytics.RequireURLs(urls)
}

type sitemap struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// readURLFile reads an XML sitemap or a plain list with one URL per line.
// Blank lines and # comments are skipped.
func readURLFile(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("read urls: %w", err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("<")) {
		var sm sitemap
		if err := xml.Unmarshal(data, &sm); err != nil {
			return nil, fmt.Errorf("parse sitemap %s: %w", path, err)
		}
		out := make([]string, 0, len(sm.URLs))
		for _, u := range sm.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				out = append(out, loc)
			}
		}
		return out, nil
	}
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// === registry ===

func operations() []operation {
	return []operation{
		{
			name:  "ctr-curve",
			short: "Site CTR per rounded position (1 to 10)",
			dims:  fixed("query", "date"),
			rest: func(r *report.Report, _ *opFlags) (any, error) {
				return analytics.CTRYieldCurve(r)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, _ *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.CTRYieldCurve(ctx, q))
			},
		},
		{
			name:  "ctr-outliers",
			short: "Queries whose CTR is far from the site curve",
			dims:  fixed("query", "date"),
			rest: func(r *report.Report, _ *opFlags) (any, error) {
				return analytics.CTROutliers(r)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, _ *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.CTROutliers(ctx, q))
			},
		},
		{
			name:  "period",
			short: "Clicks and impressions per day, week, month, quarter or year",
			flags: func(fs *pflag.FlagSet, o *opFlags) {
				fs.StringVar(&o.period, "period", string(domain.PeriodWeek), "Period (D, W, M, Q, Y, ME, QE)")
			},
			dims: fixed("date"),
			rest: func(r *report.Report, o *opFlags) (any, error) {
				p, err := domain.ParsePeriod(o.period)
				if err != nil {
					return nil, err
				}
				return analytics.GroupByPeriod(r, p)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				p, err := domain.ParsePeriod(o.period)
				if err != nil {
					return nil, nil, err
				}
				return settle(e.GroupByPeriod(ctx, q, p))
			},
		},
		{
			name:  "cannibalization",
			short: "Queries split across several ranking pages",
			flags: brandFlag,
			dims:  fixed("query", "page"),
			rest: func(r *report.Report, o *opFlags) (any, error) {
				return analytics.Cannibalization(r, o.brand)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.Cannibalization(ctx, q, o.brand))
			},
		},
		{
			name:  "decay",
			short: "Pages or queries that lost traffic since their peak",
			flags: decayFlags,
			dims: func(o *opFlags) []string {
				return []string{o.entity, "date"}
			},
			rest: func(r *report.Report, o *opFlags) (any, error) {
				opts, err := o.decayOptions()
				if err != nil {
					return nil, err
				}
				return analytics.ContentDecay(r, opts)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				opts, err := o.decayOptions()
				if err != nil {
					return nil, nil, err
				}
				return settle(e.ContentDecay(ctx, q, opts))
			},
		},
		{
			name:  "winners-losers",
			short: "Biggest gains and losses between two periods",
			flags: winnersFlags,
			dims: func(o *opFlags) []string {
				return []string{o.entity, "date"}
			},
			span: func(o *opFlags) (string, string, error) {
				from, to, _, err := o.winners()
				if err != nil {
					return "", "", err
				}
				return from.Start, to.End, nil
			},
			rest: func(r *report.Report, o *opFlags) (any, error) {
				from, to, opts, err := o.winners()
				if err != nil {
					return nil, err
				}
				return analytics.WinnersLosers(r, from, to, opts)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				from, to, opts, err := o.winners()
				if err != nil {
					return nil, nil, err
				}
				return settle(e.WinnersLosers(ctx, q, from, to, opts))
			},
		},
		{
			name:  "abcd",
			short: "ABCD classification by cumulative share of a metric",
			flags: func(fs *pflag.FlagSet, o *opFlags) {
				fs.StringVar(&o.metric, "metric", domain.MetricClicks, "Metric (clicks, impressions)")
				fs.StringSliceVar(&o.groupBy, "group-by", []string{"query"}, "Dimensions to classify")
			},
			dims: func(o *opFlags) []string { return o.groupBy },
			rest: func(r *report.Report, o *opFlags) (any, error) {
				return analytics.ABCD(r, o.metric, o.groupBy...)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.ABCD(ctx, q, o.metric, o.groupBy...))
			},
		},
		{
			name:  "ngrams",
			short: "Clicks and impressions per n-word sequence of queries",
			flags: func(fs *pflag.FlagSet, o *opFlags) {
				fs.IntVarP(&o.n, "n", "n", 2, "Words per sequence")
			},
			dims: fixed("query"),
			rest: func(r *report.Report, o *opFlags) (any, error) {
				return analytics.NGrams(r, o.n)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.NGrams(ctx, q, o.n))
			},
		},
		{
			name:  "brand-split",
			short: "Daily branded and non-branded traffic",
			flags: brandFlag,
			dims:  fixed("query", "date"),
			rest: func(r *report.Report, o *opFlags) (any, error) {
				return analytics.BrandSplit(r, o.brand)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.BrandSplit(ctx, q, o.brand))
			},
		},
		{
			name:  "long-tail",
			short: "Queries with at least a number of words",
			flags: func(fs *pflag.FlagSet, o *opFlags) {
				fs.IntVar(&o.minWords, "min-words", 4, "Minimum words per query")
			},
			dims: fixed("query"),
			rest: func(r *report.Report, o *opFlags) (any, error) {
				return analytics.LongTailKeywords(r, o.minWords)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.LongTailKeywords(ctx, q, o.minWords))
			},
		},
		{
			name:  "position-over-time",
			short: "Daily count of queries per rounded position",
			dims:  fixed("query", "date"),
			rest: func(r *report.Report, _ *opFlags) (any, error) {
				return analytics.PositionOverTime(r)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, _ *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.PositionOverTime(ctx, q))
			},
		},
		{
			name:  "uqc",
			short: "Unique queries per page",
			dims:  fixed("page", "query"),
			rest: func(r *report.Report, _ *opFlags) (any, error) {
				return analytics.UniqueQueryCount(r)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, _ *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.UniqueQueryCount(ctx, q))
			},
		},
		{
			name:  "pages-per-day",
			short: "Pages with impressions per day",
			dims:  fixed("date", "page"),
			rest: func(r *report.Report, _ *opFlags) (any, error) {
				return analytics.PagesPerDay(r)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, _ *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.PagesPerDay(ctx, q))
			},
		},
		{
			name:  "lifespan",
			short: "Pages per number of days with impressions",
			dims:  fixed("page", "date"),
			rest: func(r *report.Report, _ *opFlags) (any, error) {
				return analytics.PagesLifespan(r)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, _ *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.PagesLifespan(ctx, q))
			},
		},
		{
			name:  "seasonality",
			short: "Clicks and impressions per weekday",
			dims:  fixed("date"),
			rest: func(r *report.Report, _ *opFlags) (any, error) {
				return analytics.SeasonalityPerDay(r)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, _ *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.SeasonalityPerDay(ctx, q))
			},
		},
		{
			name:  "series",
			short: "Daily series of a metric, ready for forecasting",
			flags: func(fs *pflag.FlagSet, o *opFlags) {
				fs.StringVar(&o.metric, "metric", domain.MetricClicks, "Metric (clicks, impressions)")
			},
			dims: fixed("date"),
			rest: func(r *report.Report, o *opFlags) (any, error) {
				return analytics.DailySeries(r, o.metric)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.DailySeries(ctx, q, o.metric))
			},
		},
		{
			name:  "active-pages",
			short: "Whether each site URL had impressions",
			flags: urlFlags,
			dims:  fixed("page"),
			rest: func(r *report.Report, o *opFlags) (any, error) {
				urls, err := o.siteURLs()
				if err != nil {
					return nil, err
				}
				return analytics.ActivePages(r, urls)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				urls, err := o.siteURLs()
				if err != nil {
					return nil, nil, err
				}
				return settle(e.ActivePages(ctx, q, urls))
			},
		},
		{
			name:  "contents-to-kill",
			short: "Site URLs at or below click and impression thresholds",
			flags: func(fs *pflag.FlagSet, o *opFlags) {
				urlFlags(fs, o)
				fs.Float64Var(&o.maxClicks, "max-clicks", 0, "Maximum clicks")
				fs.Float64Var(&o.maxImpressions, "max-impressions", 0, "Maximum impressions")
			},
			dims: fixed("page"),
			rest: func(r *report.Report, o *opFlags) (any, error) {
				urls, err := o.siteURLs()
				if err != nil {
					return nil, err
				}
				return analytics.ContentsToKill(r, urls, o.maxClicks, o.maxImpressions)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				urls, err := o.siteURLs()
				if err != nil {
					return nil, nil, err
				}
				return settle(e.ContentsToKill(ctx, q, urls, o.maxClicks, o.maxImpressions))
			},
		},
		{
			name:  "not-in-sitemap",
			short: "Pages with impressions that are not site URLs",
			flags: urlFlags,
			dims:  fixed("page"),
			rest: func(r *report.Report, o *opFlags) (any, error) {
				urls, err := o.siteURLs()
				if err != nil {
					return nil, err
				}
				return analytics.PagesNotInSitemap(r, urls)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				urls, err := o.siteURLs()
				if err != nil {
					return nil, nil, err
				}
				return settle(e.PagesNotInSitemap(ctx, q, urls))
			},
		},
		{
			name:  "keyword-gap",
			short: "Whether each keyword appears among the site's queries",
			flags: func(fs *pflag.FlagSet, o *opFlags) {
				fs.StringSliceVar(&o.keywords, "keywords", nil, "Keywords to check")
			},
			dims: fixed("query"),
			rest: func(r *report.Report, o *opFlags) (any, error) {
				return analytics.KeywordGap(r, o.keywords)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				return settle(e.KeywordGap(ctx, q, o.keywords))
			},
		},
		{
			name:  "categorize",
			short: "Totals per label of ordered matching rules",
			flags: func(fs *pflag.FlagSet, o *opFlags) {
				fs.StringVar(&o.dimension, "dimension", "query", "Dimension to categorize (query, page)")
				fs.StringArrayVar(&o.rules, "rule", nil, "Rule as label=kind:value (equals, contains, regex) or label=any; repeatable, last must be any")
			},
			dims: func(o *opFlags) []string { return []string{o.dimension} },
			rest: func(r *report.Report, o *opFlags) (any, error) {
				rules, err := o.parsedRules()
				if err != nil {
					return nil, err
				}
				return analytics.Categorize(r, o.dimension, rules)
			},
			warehouse: func(ctx context.Context, e *warehouse.Engine, q warehouse.Query, o *opFlags) (any, *domain.CostEstimate, error) {
				rules, err := o.parsedRules()
				if err != nil {
					return nil, nil, err
				}
				return settle(e.Categorize(ctx, q, o.dimension, rules))
			},
		},
	}
}
