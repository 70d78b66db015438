package warehouse

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsc-insights/internal/analytics"
	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
	"gsc-insights/internal/testutil"
)

// fakeBackend records every statement it sees.
type fakeBackend struct {
	DryRunFn   func(ctx context.Context, st Statement) (int64, error)
	QueryFn    func(ctx context.Context, st Statement) (*report.Table, error)
	DryRuns    []Statement
	Statements []Statement
}

func (f *fakeBackend) DryRun(ctx context.Context, st Statement) (int64, error) {
	f.DryRuns = append(f.DryRuns, st)
	if f.DryRunFn != nil {
		return f.DryRunFn(ctx, st)
	}
	return 0, nil
}

func (f *fakeBackend) Query(ctx context.Context, st Statement) (*report.Table, error) {
	f.Statements = append(f.Statements, st)
	if f.QueryFn != nil {
		return f.QueryFn(ctx, st)
	}
	return &report.Table{}, nil
}

func newTestEngine(t *testing.T, backend Backend) *Engine {
	t.Helper()
	d, err := NewBigQuery("my-project.searchconsole")
	require.NoError(t, err)
	return NewEngine(backend, d, slog.New(slog.DiscardHandler))
}

func januaryQuery(t *testing.T) Query {
	t.Helper()
	q, err := NewQuery().WithRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	return q
}

func TestEngine_EstimatesByDefault(t *testing.T) {
	backend := &fakeBackend{
		DryRunFn: func(_ context.Context, _ Statement) (int64, error) { return 2 << 40, nil },
	}
	e := newTestEngine(t, backend)
	require.True(t, e.EstimateCost())

	res, err := e.CTRYieldCurve(context.Background(), januaryQuery(t))
	require.NoError(t, err)

	require.True(t, res.Estimated())
	assert.Equal(t, "ctr_yield_curve", res.Estimate.Operation)
	assert.Equal(t, string(SiteTable), res.Estimate.Table)
	assert.Equal(t, int64(2<<40), res.Estimate.Bytes)
	assert.InDelta(t, 10.0, res.Estimate.USD, 1e-9)
	assert.Nil(t, res.Rows)
	assert.Len(t, backend.DryRuns, 1)
	assert.Empty(t, backend.Statements, "estimation must never execute")
}

func TestEngine_Execute(t *testing.T) {
	backend := &fakeBackend{
		QueryFn: func(_ context.Context, _ Statement) (*report.Table, error) {
			return &report.Table{
				Columns: []string{"ds", "y"},
				Rows: [][]any{
					{"2024-01-01", float64(3)},
					{"2024-01-02", nil},
				},
			}, nil
		},
	}
	e := newTestEngine(t, backend)
	e.SetEstimateCost(false)

	res, err := e.DailySeries(context.Background(), januaryQuery(t), "clicks")
	require.NoError(t, err)

	assert.False(t, res.Estimated())
	assert.Equal(t, []analytics.SeriesPoint{{DS: "2024-01-01", Y: 3}, {DS: "2024-01-02", Y: 0}}, res.Rows)
	assert.Len(t, backend.DryRuns, 1)
	require.Len(t, backend.Statements, 1)
	assert.Equal(t, "daily_series", backend.Statements[0].Operation)
}

func TestEngine_Ledger(t *testing.T) {
	backend := &fakeBackend{
		DryRunFn: func(_ context.Context, _ Statement) (int64, error) { return 1 << 40, nil },
	}
	ledger := &testutil.MockSpendRepo{}
	e := newTestEngine(t, backend)
	e.SetLedger(ledger)
	e.SetPricePerTiB(6.25)
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	e.now = func() time.Time { return now }

	_, err := e.PagesPerDay(context.Background(), januaryQuery(t))
	require.NoError(t, err)

	e.SetEstimateCost(false)
	_, err = e.PagesPerDay(context.Background(), januaryQuery(t))
	require.NoError(t, err)

	require.Len(t, ledger.Entries, 2)
	first := ledger.Entries[0]
	assert.Equal(t, domain.SpendModeEstimate, first.Mode)
	assert.Equal(t, "pages_per_day", first.Operation)
	assert.Equal(t, "bigquery", first.Backend)
	assert.Equal(t, string(URLTable), first.TableName)
	assert.Equal(t, int64(1<<40), first.Bytes)
	assert.InDelta(t, 6.25, first.CostUSD, 1e-9)
	assert.Equal(t, now.UTC(), first.CreatedAt)
	assert.NotEmpty(t, first.ID)

	last := ledger.LastEntry()
	assert.Equal(t, domain.SpendModeExecute, last.Mode)
	assert.NotEqual(t, first.ID, last.ID)
}

func TestEngine_SetPricePerTiBIgnoresNonPositive(t *testing.T) {
	backend := &fakeBackend{
		DryRunFn: func(_ context.Context, _ Statement) (int64, error) { return 1 << 40, nil },
	}
	e := newTestEngine(t, backend)
	e.SetPricePerTiB(0)
	e.SetPricePerTiB(-1)

	res, err := e.UniqueQueryCount(context.Background(), januaryQuery(t))
	require.NoError(t, err)
	assert.InDelta(t, domain.DefaultPricePerTiB, res.Estimate.USD, 1e-9)
}

func TestEngine_Errors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("dry run", func(t *testing.T) {
		e := newTestEngine(t, &fakeBackend{
			DryRunFn: func(_ context.Context, _ Statement) (int64, error) { return 0, boom },
		})
		_, err := e.NGrams(context.Background(), januaryQuery(t), 2)
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "ngrams")
	})

	t.Run("query", func(t *testing.T) {
		e := newTestEngine(t, &fakeBackend{
			QueryFn: func(_ context.Context, _ Statement) (*report.Table, error) { return nil, boom },
		})
		e.SetEstimateCost(false)
		_, err := e.NGrams(context.Background(), januaryQuery(t), 2)
		require.ErrorIs(t, err, boom)
	})

	t.Run("ledger", func(t *testing.T) {
		e := newTestEngine(t, &fakeBackend{})
		e.SetLedger(&testutil.MockSpendRepo{
			InsertFn: func(_ context.Context, _ *domain.SpendEntry) error { return boom },
		})
		_, err := e.NGrams(context.Background(), januaryQuery(t), 2)
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "record spend")
	})

	t.Run("validation happens before the backend", func(t *testing.T) {
		backend := &fakeBackend{}
		e := newTestEngine(t, backend)

		_, err := e.NGrams(context.Background(), NewQuery(), 2)
		require.Error(t, err)
		_, err = e.NGrams(context.Background(), januaryQuery(t), 0)
		require.Error(t, err)
		_, err = e.LongTailKeywords(context.Background(), januaryQuery(t), 0)
		require.Error(t, err)
		_, err = e.BrandSplit(context.Background(), januaryQuery(t), nil)
		require.Error(t, err)
		_, err = e.ActivePages(context.Background(), januaryQuery(t), nil)
		require.Error(t, err)
		_, err = e.ContentsToKill(context.Background(), januaryQuery(t), []string{"https://example.com/"}, -1, 0)
		require.Error(t, err)
		_, err = e.KeywordGap(context.Background(), januaryQuery(t), []string{"", ""})
		require.Error(t, err)
		_, err = e.Report(context.Background(), januaryQuery(t))
		require.Error(t, err)
		_, err = e.Report(context.Background(), januaryQuery(t), "searchAppearance")
		require.Error(t, err)
		_, err = e.ABCD(context.Background(), januaryQuery(t), "clicks")
		require.Error(t, err)
		_, err = e.ABCD(context.Background(), januaryQuery(t), "bogus", "query")
		require.Error(t, err)
		_, err = e.GroupByPeriod(context.Background(), januaryQuery(t), "fortnight")
		require.Error(t, err)

		assert.Empty(t, backend.DryRuns)
	})
}

func TestEngine_WinnersLosersNeedsCoveringRange(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestEngine(t, backend)
	from := analytics.DateRange{Start: "2023-12-01", End: "2023-12-31"}
	to := analytics.DateRange{Start: "2024-01-01", End: "2024-01-31"}
	opts := analytics.WinnersOptions{Entity: "query", Metric: "clicks"}

	_, err := e.WinnersLosers(context.Background(), januaryQuery(t), from, to, opts)
	require.Error(t, err)
	assert.Empty(t, backend.DryRuns)

	q, err := NewQuery().WithRange("2023-12-01", "2024-01-31")
	require.NoError(t, err)
	res, err := e.WinnersLosers(context.Background(), q, from, to, opts)
	require.NoError(t, err)
	require.True(t, res.Estimated())

	st := backend.DryRuns[0]
	names := make([]string, len(st.Params))
	for i, p := range st.Params {
		names[i] = p.Name
	}
	assert.ElementsMatch(t, []string{"start_date", "end_date", "from_start", "from_end", "to_start", "to_end"}, names)
}

// Every user supplied value must travel as a parameter, never in the SQL.
func TestEngine_ValuesNeverInSQL(t *testing.T) {
	const hostile = `x' OR 1=1; --`
	backend := &fakeBackend{}
	e := newTestEngine(t, backend)
	ctx := context.Background()

	q := januaryQuery(t)
	q, err := q.WithFilter("query", hostile, "contains")
	require.NoError(t, err)
	q, err = q.WithFilter("country", hostile, "")
	require.NoError(t, err)

	rules := []analytics.Rule{
		{Label: hostile, Match: analytics.Equals(hostile)},
		{Label: "rest", Match: analytics.Any()},
	}
	calls := []func() error{
		func() error { _, err := e.Report(ctx, q, "query", "date"); return err },
		func() error { _, err := e.CTRYieldCurve(ctx, q); return err },
		func() error { _, err := e.CTROutliers(ctx, q); return err },
		func() error { _, err := e.Cannibalization(ctx, q, []string{hostile}); return err },
		func() error { _, err := e.BrandSplit(ctx, q, []string{hostile}); return err },
		func() error { _, err := e.KeywordGap(ctx, q, []string{hostile}); return err },
		func() error { _, err := e.Categorize(ctx, q, "query", rules); return err },
		func() error { _, err := e.ActivePages(ctx, q, []string{hostile}); return err },
		func() error { _, err := e.ABCD(ctx, q, "clicks", "query", "country"); return err },
	}
	for _, call := range calls {
		require.NoError(t, call())
	}

	require.Len(t, backend.DryRuns, len(calls))
	for _, st := range backend.DryRuns {
		assert.NotContains(t, st.SQL, "1=1", st.Operation)
		found := false
		for _, p := range st.Params {
			if s, ok := p.Value.(string); ok && strings.Contains(s, "1=1") {
				found = true
			}
		}
		assert.True(t, found, "%s: value missing from params", st.Operation)
	}
}

func TestEngine_Coverage(t *testing.T) {
	backend := &fakeBackend{
		QueryFn: func(_ context.Context, _ Statement) (*report.Table, error) {
			return &report.Table{
				Columns: []string{"table_name", "first_date", "last_date", "days"},
				Rows: [][]any{
					{"searchdata_site_impression", "20240101", "20240131", int64(31)},
					{"searchdata_url_impression", nil, nil, int64(0)},
				},
			}, nil
		},
	}
	e := newTestEngine(t, backend)

	cov, err := e.Coverage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Coverage{
		{Table: SiteTable, FirstDate: "2024-01-01", LastDate: "2024-01-31", Days: 31},
		{Table: URLTable},
	}, cov)
	assert.Empty(t, backend.DryRuns, "metadata reads are not cost gated")

	early, err := NewQuery().WithRange("2023-12-01", "2024-01-31")
	require.NoError(t, err)

	assert.NoError(t, e.CheckRange(context.Background(), januaryQuery(t), SiteTable))

	err = e.CheckRange(context.Background(), early, SiteTable)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	err = e.CheckRange(context.Background(), januaryQuery(t), URLTable)
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
