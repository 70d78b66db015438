package analytics

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// DecayPeriod is the bucket content decay compares.
type DecayPeriod string

// Decay periods.
const (
	DecayWeek  DecayPeriod = "week"
	DecayMonth DecayPeriod = "month"
)

// Period maps the decay bucket onto the calendar period vocabulary.
func (p DecayPeriod) Period() domain.Period {
	if p == DecayWeek {
		return domain.PeriodWeek
	}
	return domain.PeriodMonth
}

// Label formats the bucket starting at start.
func (p DecayPeriod) Label(start time.Time) string {
	if p == DecayWeek {
		return start.Format(time.DateOnly)
	}
	return start.Format("2006-01")
}

// DecayOptions configures ContentDecay.
type DecayOptions struct {
	Entity          string      // page or query
	Period          DecayPeriod // week or month
	Metric          string      // clicks or impressions
	ThresholdDecay  float64     // minimum relative drop, 0.01 to 1
	ThresholdMetric float64     // minimum peak value
}

// DefaultDecayOptions mirrors the usual monthly page analysis.
func DefaultDecayOptions() DecayOptions {
	return DecayOptions{
		Entity:          colPage,
		Period:          DecayMonth,
		Metric:          colClicks,
		ThresholdDecay:  0.25,
		ThresholdMetric: 100,
	}
}

// Validate checks the options.
func (o DecayOptions) Validate() error {
	if o.Entity != colPage && o.Entity != colQuery {
		return domain.ErrValidation("invalid decay entity %q: must be page or query", o.Entity)
	}
	if o.Period != DecayWeek && o.Period != DecayMonth {
		return domain.ErrValidation("invalid decay period %q: must be week or month", o.Period)
	}
	if _, err := domain.ParseMetric(o.Metric); err != nil {
		return err
	}
	if o.ThresholdDecay < 0.01 || o.ThresholdDecay > 1 {
		return domain.ErrValidation("decay threshold must be between 0.01 and 1, got %v", o.ThresholdDecay)
	}
	if o.ThresholdMetric < 0 {
		return domain.ErrValidation("metric threshold must not be negative, got %v", o.ThresholdMetric)
	}
	return nil
}

// DecayRow is an entity whose latest complete period fell from its peak.
type DecayRow struct {
	Entity     string  `json:"entity"`
	LastPeriod string  `json:"last_period"`
	MetricLast float64 `json:"metric_last_period"`
	MetricMax  float64 `json:"metric_max"`
	PeriodMax  string  `json:"period_max"`
	Decay      float64 `json:"decay"`
	DecayAbs   float64 `json:"decay_abs"`
}

// CompleteWindow trims [first, last] to whole periods. ok is false when no
// complete period fits.
func CompleteWindow(first, last time.Time, p DecayPeriod) (start, end time.Time, ok bool) {
	period := p.Period()
	start = PeriodStart(first, period)
	if !start.Equal(first) {
		start = PeriodEnd(first, period).AddDate(0, 0, 1)
	}
	end = PeriodEnd(last, period)
	if !end.Equal(last) {
		end = PeriodStart(last, period).AddDate(0, 0, -1)
	}
	return start, end, !start.After(end)
}

// ContentDecay compares each entity's most recent complete period with its
// best one.
func ContentDecay(r *report.Report, opts DecayOptions) ([]DecayRow, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := r.Require([]string{opts.Entity, colDate}, []string{opts.Metric}); err != nil {
		return nil, err
	}
	firstS, lastS, ok := r.DateSpan()
	if !ok {
		return nil, nil
	}
	first, err := parseDate(firstS)
	if err != nil {
		return nil, err
	}
	last, err := parseDate(lastS)
	if err != nil {
		return nil, err
	}
	start, end, ok := CompleteWindow(first, last, opts.Period)
	if !ok {
		return nil, nil
	}

	buckets := map[[2]string]float64{}
	for i := 0; i < r.Len(); i++ {
		d, err := parseDate(r.Dim(i, colDate))
		if err != nil {
			return nil, err
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		label := opts.Period.Label(PeriodStart(d, opts.Period.Period()))
		buckets[[2]string{r.Dim(i, opts.Entity), label}] += r.Metric(i, opts.Metric)
	}

	series := make([]EntityPeriod, 0, len(buckets))
	for k, v := range buckets {
		series = append(series, EntityPeriod{Entity: k[0], Period: k[1], Value: v})
	}
	return DecayFrom(series, opts), nil
}

// EntityPeriod is the metric of one entity summed over one labelled period.
type EntityPeriod struct {
	Entity string  `json:"entity"`
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// DecayFrom ranks entities by how far their latest period fell from their
// peak. Only entities present in the latest period are considered.
func DecayFrom(series []EntityPeriod, opts DecayOptions) []DecayRow {
	latest := ""
	for _, s := range series {
		if s.Period > latest {
			latest = s.Period
		}
	}
	type peak struct {
		value       float64
		period      string
		last        float64
		hasLatest   bool
		initialized bool
	}
	peaks := map[string]*peak{}
	for _, s := range series {
		e, p, v := s.Entity, s.Period, s.Value
		pk, ok := peaks[e]
		if !ok {
			pk = &peak{}
			peaks[e] = pk
		}
		if !pk.initialized || v > pk.value || (v == pk.value && p < pk.period) {
			pk.value, pk.period, pk.initialized = v, p, true
		}
		if p == latest {
			pk.last, pk.hasLatest = v, true
		}
	}

	var out []DecayRow
	for e, pk := range peaks {
		if !pk.hasLatest {
			continue
		}
		var decay float64
		if pk.value != 0 {
			decay = 1 - pk.last/pk.value
		}
		if decay < opts.ThresholdDecay || pk.value < opts.ThresholdMetric {
			continue
		}
		out = append(out, DecayRow{
			Entity:     e,
			LastPeriod: latest,
			MetricLast: pk.last,
			MetricMax:  pk.value,
			PeriodMax:  pk.period,
			Decay:      Round(decay, 3),
			DecayAbs:   pk.value - pk.last,
		})
	}
	slices.SortFunc(out, func(a, b DecayRow) int {
		if c := cmp.Compare(b.DecayAbs, a.DecayAbs); c != 0 {
			return c
		}
		return strings.Compare(a.Entity, b.Entity)
	})
	return out
}
