package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivePages(t *testing.T) {
	r := build(t,
		[]string{"page", "date"},
		[]string{"clicks", "impressions"},
		[]any{"/a", "2024-01-01", 2, 20},
		[]any{"/a", "2024-01-02", 1, 10},
		[]any{"/b", "2024-01-01", 0, 7},
	)
	got, err := ActivePages(r, []string{"/a", "/b", "/c", "/a"})
	require.NoError(t, err)
	assert.Equal(t, []PageActivity{
		{Page: "/a", Clicks: 3, Impressions: 30, ActiveImpression: true, ActiveClicks: true},
		{Page: "/b", Clicks: 0, Impressions: 7, ActiveImpression: true},
		{Page: "/c"},
	}, got)

	_, err = ActivePages(r, nil)
	assertValidation(t, err)
}

func TestContentsToKill(t *testing.T) {
	r := build(t,
		[]string{"page"},
		[]string{"clicks", "impressions"},
		[]any{"/a", 10, 100},
		[]any{"/b", 0, 3},
	)
	got, err := ContentsToKill(r, []string{"/a", "/b", "/c"}, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []PageTotal{
		{Page: "/c"},
		{Page: "/b", Impressions: 3},
	}, got)

	_, err = ContentsToKill(r, []string{"/a"}, -1, 0)
	assertValidation(t, err)
}

func TestPagesNotInSitemap(t *testing.T) {
	r := build(t,
		[]string{"page"},
		[]string{"clicks", "impressions"},
		[]any{"/a", 10, 100},
		[]any{"/orphan", 1, 5},
		[]any{"/old", 4, 9},
	)
	got, err := PagesNotInSitemap(r, []string{"/a"})
	require.NoError(t, err)
	assert.Equal(t, []PageTotal{
		{Page: "/old", Clicks: 4, Impressions: 9},
		{Page: "/orphan", Clicks: 1, Impressions: 5},
	}, got)
}

func TestUniqueQueryCount(t *testing.T) {
	r := build(t,
		[]string{"page", "query"},
		[]string{"clicks"},
		[]any{"/a", "x", 1},
		[]any{"/a", "y", 1},
		[]any{"/a", "x", 1},
		[]any{"/a", "", 1},
		[]any{"/b", "x", 1},
	)
	got, err := UniqueQueryCount(r)
	require.NoError(t, err)
	assert.Equal(t, []QueryCount{{Page: "/a", UQC: 2}, {Page: "/b", UQC: 1}}, got)
}

func TestPagesPerDayAndLifespan(t *testing.T) {
	r := build(t,
		[]string{"page", "date"},
		[]string{"clicks"},
		[]any{"/a", "2024-01-01", 1},
		[]any{"/a", "2024-01-02", 1},
		[]any{"/a", "2024-01-03", 1},
		[]any{"/b", "2024-01-01", 1},
		[]any{"/c", "2024-01-01", 1},
		[]any{"/c", "2024-01-01", 1},
	)
	perDay, err := PagesPerDay(r)
	require.NoError(t, err)
	assert.Equal(t, []DayPages{
		{Date: "2024-01-01", Pages: 3},
		{Date: "2024-01-02", Pages: 1},
		{Date: "2024-01-03", Pages: 1},
	}, perDay)

	life, err := PagesLifespan(r)
	require.NoError(t, err)
	assert.Equal(t, []Lifespan{{DurationDays: 3, Pages: 1}, {DurationDays: 1, Pages: 2}}, life)
}

func TestBrandSplit(t *testing.T) {
	r := build(t,
		[]string{"query", "date"},
		[]string{"clicks", "impressions"},
		[]any{"Acme shoes", "2024-01-02", 5, 50},
		[]any{"shoes", "2024-01-02", 1, 10},
		[]any{"acme", "2024-01-01", 2, 20},
	)
	got, err := BrandSplit(r, []string{"acme"})
	require.NoError(t, err)
	assert.Equal(t, []BrandDay{
		{Date: "2024-01-01", ClicksBrand: 2, ImpressionsBrand: 20},
		{Date: "2024-01-02", ClicksBrand: 5, ImpressionsBrand: 50, ClicksNoBrand: 1, ImpressionsNoBrand: 10},
	}, got)

	_, err = BrandSplit(r, nil)
	assertValidation(t, err)
}

func TestKeywordGap(t *testing.T) {
	r := build(t, []string{"query"}, []string{"clicks"}, []any{"shoes", 1})
	got, err := KeywordGap(r, []string{"boots", "shoes", "hats", "boots"})
	require.NoError(t, err)
	assert.Equal(t, []Keyword{{Keyword: "boots"}, {Keyword: "hats"}}, got)

	_, err = KeywordGap(r, nil)
	assertValidation(t, err)
}

func TestLongTailKeywords(t *testing.T) {
	r := build(t,
		[]string{"query", "date"},
		[]string{"clicks", "impressions"},
		[]any{"best running shoes for men", "2024-01-01", 1, 10},
		[]any{"best running shoes for men", "2024-01-02", 2, 10},
		[]any{"shoes", "2024-01-01", 50, 500},
		[]any{"cheap red shoes", "2024-01-01", 4, 40},
	)
	got, err := LongTailKeywords(r, 3)
	require.NoError(t, err)
	assert.Equal(t, []LongTailKeyword{
		{Query: "cheap red shoes", Words: 3, Clicks: 4, Impressions: 40},
		{Query: "best running shoes for men", Words: 5, Clicks: 3, Impressions: 20},
	}, got)

	_, err = LongTailKeywords(r, 0)
	assertValidation(t, err)
}

func TestPositionOverTime(t *testing.T) {
	r := build(t,
		[]string{"query", "date"},
		[]string{"position"},
		[]any{"a", "2024-01-01", 1.2},
		[]any{"b", "2024-01-20", 0.8},
		[]any{"c", "2024-01-20", 3.0},
		[]any{"d", "2024-02-01", 1.0},
		[]any{"e", "2024-02-01", 11.0},
	)
	got, err := PositionOverTime(r)
	require.NoError(t, err)
	assert.Equal(t, []PositionCount{
		{Month: "2024-01", Position: 1, Queries: 2},
		{Month: "2024-01", Position: 3, Queries: 1},
		{Month: "2024-02", Position: 1, Queries: 1},
	}, got)
}

func TestSeasonalityPerDay(t *testing.T) {
	r := build(t,
		[]string{"date"},
		[]string{"clicks", "impressions"},
		[]any{"2024-01-07", 1, 10}, // Sunday
		[]any{"2024-01-01", 2, 20}, // Monday
		[]any{"2024-01-08", 3, 30}, // Monday
	)
	got, err := SeasonalityPerDay(r)
	require.NoError(t, err)
	assert.Equal(t, []WeekdayTotal{
		{Day: "Monday", Clicks: 5, Impressions: 50},
		{Day: "Sunday", Clicks: 1, Impressions: 10},
	}, got)
	assert.Equal(t, 6, WeekdayOrder("Sunday"))
	assert.Equal(t, -1, WeekdayOrder("Funday"))
}
