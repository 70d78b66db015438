package warehouse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/query"
)

func TestChooseTable(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    Table
	}{
		{"no filters", nil, SiteTable},
		{"site columns", []string{"query", "country", "device", "is_anonymized_query"}, SiteTable},
		{"url column", []string{"query", "url"}, URLTable},
		{"rich result flag", []string{"is_recipe_feature"}, URLTable},
		{"discover flag", []string{"is_anonymized_discover"}, URLTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseTable(tt.columns))
		})
	}
}

func TestSchema(t *testing.T) {
	site := Schema(SiteTable)
	url := Schema(URLTable)

	assert.Equal(t, "data_date", site[0].Name)
	assert.Equal(t, "sum_top_position", site[len(site)-1].Name)
	assert.Equal(t, "sum_position", url[len(url)-1].Name)
	assert.Len(t, url, len(site)+2+len(richResultFlags))
	for _, c := range url {
		assert.NotEmpty(t, c.Type, c.Name)
	}
}

func TestQuery_WithFilter(t *testing.T) {
	tests := []struct {
		name       string
		column     string
		expression string
		operator   string
		wantErr    string
	}{
		{"equals by default", "country", "usa", "", ""},
		{"contains", "query", "shoes", "contains", ""},
		{"regex", "url", "^/blog/", "includingRegex", ""},
		{"bool equals", "is_anonymized_query", "false", "equals", ""},
		{"bool not equals", "is_recipe_feature", "true", "notEquals", ""},
		{"unknown column", "clicks", "1", "", "invalid filter column"},
		{"unknown operator", "query", "x", "startsWith", "invalid operator"},
		{"bool contains", "is_anonymized_query", "true", "contains", "only supports equals"},
		{"bool value", "is_video", "yes", "equals", "only accepts true or false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuery().WithFilter(tt.column, tt.expression, tt.operator)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				var ve *domain.ValidationError
				assert.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			require.Len(t, q.Filters(), 1)
			assert.Equal(t, tt.column, q.Filters()[0].Column)
		})
	}
}

func TestQuery_IsImmutable(t *testing.T) {
	base, err := NewQuery().WithRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	a, err := base.WithFilter("country", "usa", "")
	require.NoError(t, err)
	b, err := base.WithFilter("device", "MOBILE", "")
	require.NoError(t, err)

	assert.Empty(t, base.Filters())
	assert.Equal(t, "country", a.Filters()[0].Column)
	assert.Equal(t, "device", b.Filters()[0].Column)
	assert.Equal(t, SiteTable, a.Table(false))
	assert.Equal(t, URLTable, a.Table(true))
}

func TestQuery_Validate(t *testing.T) {
	_, err := NewQuery().WithRange("2024-1-01", "2024-01-31")
	require.Error(t, err)

	assert.Error(t, NewQuery().Validate())

	q, err := NewQuery().WithRange("2024-02-01", "2024-01-01")
	require.NoError(t, err)
	err = q.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after end date")

	q, err = NewQuery().WithRange("2024-01-01", "2024-01-01")
	require.NoError(t, err)
	assert.NoError(t, q.Validate())
}

func TestFromSpec(t *testing.T) {
	s := query.New("sc-domain:example.com")
	s, err := s.WithRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	s, err = s.WithSearchType("news")
	require.NoError(t, err)
	s, err = s.WithFilter("page", "/blog/", "contains")
	require.NoError(t, err)
	s, err = s.WithFilter("country", "usa", "")
	require.NoError(t, err)

	q, err := FromSpec(s)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", q.Start())
	assert.Equal(t, "2024-01-31", q.End())
	assert.Equal(t, []Filter{
		{Column: "site_url", Operator: domain.OperatorEquals, Expression: "sc-domain:example.com"},
		{Column: "search_type", Operator: domain.OperatorEquals, Expression: "NEWS"},
		{Column: "url", Operator: domain.OperatorContains, Expression: "/blog/"},
		{Column: "country", Operator: domain.OperatorEquals, Expression: "usa"},
	}, q.Filters())
	assert.Equal(t, URLTable, q.Table(false))
	assert.Equal(t, "sc-domain:example.com", q.site())
}

func TestFromSpec_Rejects(t *testing.T) {
	base, err := query.New("sc-domain:example.com").WithRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	t.Run("date filter", func(t *testing.T) {
		s, err := base.WithFilter("date", "2024-01-05", "")
		require.NoError(t, err)
		_, err = FromSpec(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "range")
	})

	t.Run("search appearance filter", func(t *testing.T) {
		s, err := base.WithFilter("searchAppearance", "VIDEO", "")
		require.NoError(t, err)
		_, err = FromSpec(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no warehouse column")
	})
}

func TestColumnFor(t *testing.T) {
	col, err := ColumnFor(domain.DimensionPage)
	require.NoError(t, err)
	assert.Equal(t, "url", col)

	col, err = ColumnFor(domain.DimensionDate)
	require.NoError(t, err)
	assert.Equal(t, "data_date", col)

	_, err = ColumnFor(domain.DimensionSearchAppearance)
	assert.Error(t, err)
}

func TestDialects(t *testing.T) {
	bq, err := NewBigQuery("my-project.searchconsole")
	require.NoError(t, err)
	dk, err := NewDuckDB("gsc")
	require.NoError(t, err)

	assert.Equal(t, "`my-project.searchconsole.searchdata_site_impression`", bq.TableRef(SiteTable))
	assert.Equal(t, `"gsc"."searchdata_url_impression"`, dk.TableRef(URLTable))

	assert.Equal(t, "@start_date", bq.Param("start_date"))
	assert.Equal(t, "$start_date", dk.Param("start_date"))

	assert.Equal(t, "DATE_TRUNC(data_date, WEEK(MONDAY))", bq.TruncDate("data_date", domain.PeriodWeek))
	assert.Equal(t, "CAST(date_trunc('month', data_date) AS DATE)", dk.TruncDate("data_date", domain.PeriodMonth))

	assert.Equal(t, "FORMAT_DATE('%A', data_date)", bq.FormatDate("data_date", "%A"))
	assert.Equal(t, "strftime(data_date, '%Y-%m')", dk.FormatDate("data_date", "%Y-%m"))

	assert.Contains(t, bq.CoverageSQL(), "`my-project.searchconsole.INFORMATION_SCHEMA.PARTITIONS`")
	assert.Contains(t, dk.CoverageSQL(), "UNION ALL")
}

func TestDialects_RejectBadNames(t *testing.T) {
	_, err := NewBigQuery("no-dataset")
	assert.Error(t, err)
	_, err = NewBigQuery("project.bad-dataset")
	assert.Error(t, err)
	_, err = NewDuckDB(`gsc"; DROP TABLE x; --`)
	assert.Error(t, err)
}

func TestBuilder_Where(t *testing.T) {
	q, err := NewQuery().WithRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	q, err = q.WithFilter("query", "50% off", "contains")
	require.NoError(t, err)
	q, err = q.WithFilter("device", "MOBILE", "notEquals")
	require.NoError(t, err)
	q, err = q.WithFilter("is_anonymized_query", "false", "")
	require.NoError(t, err)
	q, err = q.WithFilter("query", "^buy", "excludingRegex")
	require.NoError(t, err)

	d, err := NewDuckDB("gsc")
	require.NoError(t, err)
	b := newBuilder(d, SiteTable)
	where := b.where(q, "query IS NOT NULL")

	assert.True(t, strings.HasPrefix(where, "WHERE data_date BETWEEN CAST($start_date AS DATE) AND CAST($end_date AS DATE)"))
	assert.Contains(t, where, `query LIKE $p1 ESCAPE '\'`)
	assert.Contains(t, where, "device != $p2")
	assert.Contains(t, where, "is_anonymized_query = $p3")
	assert.Contains(t, where, "NOT (regexp_matches(query, $p4))")
	assert.True(t, strings.HasSuffix(where, "AND query IS NOT NULL"))
	for _, expr := range []string{"50%", "MOBILE", "^buy", "2024-01-01"} {
		assert.NotContains(t, where, expr)
	}

	assert.Equal(t, []Param{
		{Name: "start_date", Value: "2024-01-01"},
		{Name: "end_date", Value: "2024-01-31"},
		{Name: "p1", Value: `%50\% off%`},
		{Name: "p2", Value: "MOBILE"},
		{Name: "p3", Value: false},
		{Name: "p4", Value: "^buy"},
	}, b.params)
}
