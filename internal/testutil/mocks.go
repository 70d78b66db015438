// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"sync"
	"time"

	"google.golang.org/api/searchconsole/v1"

	"gsc-insights/internal/domain"
)

// === Search Analytics API Mock ===

// MockSearchAPI implements the REST engine's API interface for testing.
type MockSearchAPI struct {
	QueryFn  func(ctx context.Context, siteURL string, req *searchconsole.SearchAnalyticsQueryRequest) (*searchconsole.SearchAnalyticsQueryResponse, error)
	Requests []*searchconsole.SearchAnalyticsQueryRequest // collected requests for assertions
}

// Query implements the interface method for testing.
func (m *MockSearchAPI) Query(ctx context.Context, siteURL string, req *searchconsole.SearchAnalyticsQueryRequest) (*searchconsole.SearchAnalyticsQueryResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.QueryFn != nil {
		return m.QueryFn(ctx, siteURL, req)
	}
	panic("unexpected call to MockSearchAPI.Query")
}

// Pages returns a QueryFn serving the given pages in order, then empty
// responses.
func Pages(pages ...[]*searchconsole.ApiDataRow) func(context.Context, string, *searchconsole.SearchAnalyticsQueryRequest) (*searchconsole.SearchAnalyticsQueryResponse, error) {
	var mu sync.Mutex
	next := 0
	return func(context.Context, string, *searchconsole.SearchAnalyticsQueryRequest) (*searchconsole.SearchAnalyticsQueryResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(pages) {
			return &searchconsole.SearchAnalyticsQueryResponse{}, nil
		}
		p := pages[next]
		next++
		return &searchconsole.SearchAnalyticsQueryResponse{Rows: p}, nil
	}
}

// DataRow builds an API row.
func DataRow(clicks, impressions, position float64, keys ...string) *searchconsole.ApiDataRow {
	row := &searchconsole.ApiDataRow{
		Keys:        keys,
		Clicks:      clicks,
		Impressions: impressions,
		Position:    position,
	}
	if impressions > 0 {
		row.Ctr = clicks / impressions
	}
	return row
}

// === Site Lister Mock ===

// MockSiteLister implements the REST engine's SiteLister for testing.
type MockSiteLister struct {
	ListSitesFn func(ctx context.Context) ([]*searchconsole.WmxSite, error)
}

// ListSites implements the interface method for testing.
func (m *MockSiteLister) ListSites(ctx context.Context) ([]*searchconsole.WmxSite, error) {
	if m.ListSitesFn != nil {
		return m.ListSitesFn(ctx)
	}
	panic("unexpected call to MockSiteLister.ListSites")
}

// === Sleeper ===

// RecordingSleeper records requested pauses without waiting.
type RecordingSleeper struct {
	Calls []time.Duration
}

// Sleep records d and returns the context error, if any.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.Calls = append(s.Calls, d)
	return ctx.Err()
}

// === Spend Repository Mock ===

// MockSpendRepo implements domain.SpendRepository for testing.
type MockSpendRepo struct {
	InsertFn func(ctx context.Context, e *domain.SpendEntry) error
	ListFn   func(ctx context.Context, filter domain.SpendFilter) ([]domain.SpendEntry, int64, error)
	TotalsFn func(ctx context.Context, since *time.Time) (*domain.SpendTotals, error)
	Entries  []*domain.SpendEntry // collected entries for assertions
}

// Insert implements the interface method for testing.
func (m *MockSpendRepo) Insert(ctx context.Context, e *domain.SpendEntry) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, e); err != nil {
			return err
		}
	}
	m.Entries = append(m.Entries, e)
	return nil
}

// List implements the interface method for testing.
func (m *MockSpendRepo) List(ctx context.Context, filter domain.SpendFilter) ([]domain.SpendEntry, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	panic("unexpected call to MockSpendRepo.List")
}

// Totals implements the interface method for testing.
func (m *MockSpendRepo) Totals(ctx context.Context, since *time.Time) (*domain.SpendTotals, error) {
	if m.TotalsFn != nil {
		return m.TotalsFn(ctx, since)
	}
	panic("unexpected call to MockSpendRepo.Totals")
}

// LastEntry returns the last collected spend entry, or nil if none.
func (m *MockSpendRepo) LastEntry() *domain.SpendEntry {
	if len(m.Entries) == 0 {
		return nil
	}
	return m.Entries[len(m.Entries)-1]
}

var _ domain.SpendRepository = (*MockSpendRepo)(nil)
