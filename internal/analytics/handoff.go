package analytics

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// SeriesPoint is one day of a metric, shaped the way forecasting libraries
// expect it.
type SeriesPoint struct {
	DS string  `json:"ds"`
	Y  float64 `json:"y"`
}

// ForecastPoint is one predicted day.
type ForecastPoint struct {
	DS        string  `json:"ds"`
	YHat      float64 `json:"yhat"`
	YHatLower float64 `json:"yhat_lower"`
	YHatUpper float64 `json:"yhat_upper"`
}

// Forecaster predicts horizon days past the end of a daily series.
type Forecaster interface {
	Forecast(ctx context.Context, series []SeriesPoint, horizon int) ([]ForecastPoint, error)
}

// Impact is the causal effect estimated for an intervention.
type Impact struct {
	Pre            DateRange `json:"pre_period"`
	Post           DateRange `json:"post_period"`
	Actual         float64   `json:"actual"`
	Predicted      float64   `json:"predicted"`
	AbsoluteEffect float64   `json:"abs_effect"`
	RelativeEffect float64   `json:"rel_effect"`
	PValue         float64   `json:"p_value"`
}

// ImpactEstimator estimates the effect of an intervention on a series given
// matching pre and post windows.
type ImpactEstimator interface {
	EstimateImpact(ctx context.Context, series []SeriesPoint, pre, post DateRange) (*Impact, error)
}

// DailySeries sums metric per date, ordered by date.
func DailySeries(r *report.Report, metric string) ([]SeriesPoint, error) {
	if _, err := domain.ParseMetric(metric); err != nil {
		return nil, err
	}
	if err := r.Require([]string{colDate}, []string{metric}); err != nil {
		return nil, err
	}
	idx := map[string]int{}
	var out []SeriesPoint
	for i := 0; i < r.Len(); i++ {
		d := r.Dim(i, colDate)
		k, ok := idx[d]
		if !ok {
			k = len(out)
			idx[d] = k
			out = append(out, SeriesPoint{DS: d})
		}
		out[k].Y += r.Metric(i, metric)
	}
	slices.SortFunc(out, func(a, b SeriesPoint) int { return strings.Compare(a.DS, b.DS) })
	return out, nil
}

// Forecast validates the series and hands it to f.
func Forecast(ctx context.Context, f Forecaster, series []SeriesPoint, horizon int) ([]ForecastPoint, error) {
	if horizon < 1 {
		return nil, domain.ErrValidation("forecast horizon must be positive, got %d", horizon)
	}
	if len(series) == 0 {
		return nil, domain.ErrEmptyResult("cannot forecast an empty series")
	}
	out, err := f.Forecast(ctx, series, horizon)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	return out, nil
}

// InterventionWindows splits a sorted series around an intervention date.
// The post window runs from the intervention to the last day; the pre
// window is the same length and ends the day before the intervention.
func InterventionWindows(series []SeriesPoint, date string) (pre, post DateRange, err error) {
	if len(series) == 0 {
		return pre, post, domain.ErrEmptyResult("cannot split an empty series")
	}
	at, err := parseDate(date)
	if err != nil {
		return pre, post, err
	}
	first, err := parseDate(series[0].DS)
	if err != nil {
		return pre, post, err
	}
	last, err := parseDate(series[len(series)-1].DS)
	if err != nil {
		return pre, post, err
	}
	if !at.After(first) || at.After(last) {
		return pre, post, domain.ErrValidation("intervention date %s must fall after %s and on or before %s",
			date, series[0].DS, series[len(series)-1].DS)
	}
	days := spanDays(at, last)
	preEnd := at.AddDate(0, 0, -1)
	preStart := preEnd.AddDate(0, 0, -(days - 1))
	if preStart.Before(first) {
		return pre, post, domain.ErrValidation("not enough history before %s: the pre-period would start on %s, data starts on %s",
			date, formatDate(preStart), series[0].DS)
	}
	pre = DateRange{Start: formatDate(preStart), End: formatDate(preEnd)}
	post = DateRange{Start: date, End: formatDate(last)}
	return pre, post, nil
}

// EstimateImpact computes the windows around date and hands the series to e.
func EstimateImpact(ctx context.Context, e ImpactEstimator, series []SeriesPoint, date string) (*Impact, error) {
	pre, post, err := InterventionWindows(series, date)
	if err != nil {
		return nil, err
	}
	out, err := e.EstimateImpact(ctx, series, pre, post)
	if err != nil {
		return nil, fmt.Errorf("estimate impact: %w", err)
	}
	return out, nil
}
