package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsc-insights/internal/db"
	"gsc-insights/internal/domain"
)

func seedSpend(t *testing.T, repo *SpendRepo) time.Time {
	t.Helper()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := []domain.SpendEntry{
		{Operation: "ngrams", Backend: "bigquery", TableName: "searchdata_site_impression", Mode: domain.SpendModeEstimate, Bytes: 1 << 30, CostUSD: 0.0049, CreatedAt: base},
		{Operation: "ngrams", Backend: "bigquery", TableName: "searchdata_site_impression", Mode: domain.SpendModeExecute, Bytes: 1 << 30, CostUSD: 0.0049, CreatedAt: base.Add(time.Minute)},
		{Operation: "abcd", Backend: "bigquery", TableName: "searchdata_url_impression", Mode: domain.SpendModeExecute, Bytes: 2 << 30, CostUSD: 0.0098, CreatedAt: base.Add(48 * time.Hour)},
		{Operation: "abcd", Backend: "duckdb", TableName: "searchdata_url_impression", Mode: domain.SpendModeEstimate, CreatedAt: base.Add(72 * time.Hour)},
	}
	for i := range entries {
		require.NoError(t, repo.Insert(context.Background(), &entries[i]))
	}
	return base
}

func TestSpendRepo_Insert(t *testing.T) {
	t.Parallel()

	repo := NewSpendRepo(db.OpenTestLedger(t))
	ctx := context.Background()

	e := &domain.SpendEntry{Operation: "report", Backend: "bigquery", Mode: domain.SpendModeEstimate}
	require.NoError(t, repo.Insert(ctx, e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
	assert.Equal(t, time.UTC, e.CreatedAt.Location())

	dup := *e
	err := repo.Insert(ctx, &dup)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestSpendRepo_InsertValidation(t *testing.T) {
	t.Parallel()

	repo := NewSpendRepo(db.OpenTestLedger(t))
	tests := []struct {
		name  string
		entry *domain.SpendEntry
	}{
		{"nil", nil},
		{"no operation", &domain.SpendEntry{Mode: domain.SpendModeEstimate}},
		{"bad mode", &domain.SpendEntry{Operation: "report", Mode: "refund"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Insert(context.Background(), tt.entry)
			var ve *domain.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestSpendRepo_List(t *testing.T) {
	t.Parallel()

	repo := NewSpendRepo(db.OpenTestLedger(t))
	base := seedSpend(t, repo)
	ctx := context.Background()

	all, total, err := repo.List(ctx, domain.SpendFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, all, 4)
	assert.Equal(t, "duckdb", all[0].Backend, "newest first")
	assert.Equal(t, base, all[3].CreatedAt)

	executed, total, err := repo.List(ctx, domain.SpendFilter{Mode: domain.SpendModeExecute})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, executed, 2)

	since := base.Add(24 * time.Hour)
	recent, total, err := repo.List(ctx, domain.SpendFilter{Operation: "abcd", Since: &since})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, recent, 2)

	page, total, err := repo.List(ctx, domain.SpendFilter{Page: domain.PageRequest{MaxResults: 3}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, page, 3)

	next := domain.NextPageToken(0, 3, total)
	require.NotEmpty(t, next)
	rest, _, err := repo.List(ctx, domain.SpendFilter{Page: domain.PageRequest{MaxResults: 3, PageToken: next}})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "ngrams", rest[0].Operation)
}

func TestSpendRepo_Totals(t *testing.T) {
	t.Parallel()

	repo := NewSpendRepo(db.OpenTestLedger(t))
	ctx := context.Background()

	empty, err := repo.Totals(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SpendTotals{}, *empty)

	base := seedSpend(t, repo)

	totals, err := repo.Totals(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Estimates)
	assert.Equal(t, int64(2), totals.Executions)
	assert.Equal(t, int64(3<<30), totals.BytesExecuted)
	assert.InDelta(t, 0.0147, totals.CostExecuted, 1e-9)

	since := base.Add(24 * time.Hour)
	recent, err := repo.Totals(ctx, &since)
	require.NoError(t, err)
	assert.Equal(t, int64(1), recent.Estimates)
	assert.Equal(t, int64(1), recent.Executions)
	assert.Equal(t, int64(2<<30), recent.BytesExecuted)
}
