package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/query"
)

func TestParseFilterArg(t *testing.T) {
	tests := []struct {
		in      string
		want    filterArg
		wantErr bool
	}{
		{in: "query=shoes", want: filterArg{Dimension: "query", Expression: "shoes"}},
		{in: "page:contains=/blog/", want: filterArg{Dimension: "page", Operator: "contains", Expression: "/blog/"}},
		{in: "query:includingRegex=a=b", want: filterArg{Dimension: "query", Operator: "includingRegex", Expression: "a=b"}},
		{in: "query", wantErr: true},
		{in: "=shoes", wantErr: true},
		{in: "query=", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFilterArg(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterList_Flag(t *testing.T) {
	var l filterList
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&l, "filter", "")

	require.NoError(t, fs.Parse([]string{"--filter", "query=shoes", "--filter", "page:contains=/blog/"}))
	require.Len(t, l, 2)
	assert.Equal(t, "[query=shoes,page:contains=/blog/]", l.String())
	assert.Equal(t, "filter", l.Type())

	assert.Error(t, fs.Parse([]string{"--filter", "bogus"}))
}

func TestSpecFlags_DateRange(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC) }

	t.Run("days window ends two days ago", func(t *testing.T) {
		f := specFlags{days: 7, now: now}
		start, end, err := f.dateRange()
		require.NoError(t, err)
		assert.Equal(t, "2024-03-02", start)
		assert.Equal(t, "2024-03-08", end)
	})

	t.Run("explicit range", func(t *testing.T) {
		f := specFlags{start: "2024-01-01", end: "2024-01-31", now: now}
		start, end, err := f.dateRange()
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01", start)
		assert.Equal(t, "2024-01-31", end)
	})

	t.Run("days conflicts with start", func(t *testing.T) {
		f := specFlags{days: 7, start: "2024-01-01", now: now}
		_, _, err := f.dateRange()
		assert.Error(t, err)
	})
}

func TestSpecFlags_Build(t *testing.T) {
	t.Run("flags", func(t *testing.T) {
		f := specFlags{
			start:      "2024-01-01",
			end:        "2024-01-31",
			dimensions: []string{"query", "page"},
			filters:    filterList{{Dimension: "country", Expression: "usa"}},
			searchType: "image",
			dataState:  "all",
			limit:      500,
		}
		s, err := f.build("sc-domain:example.com")
		require.NoError(t, err)
		require.NoError(t, s.Validate())

		assert.Equal(t, "sc-domain:example.com", s.Site())
		assert.Equal(t, []domain.Dimension{domain.DimensionQuery, domain.DimensionPage}, s.Dimensions())
		assert.Equal(t, []query.Filter{{Dimension: domain.DimensionCountry, Operator: domain.OperatorEquals, Expression: "usa"}}, s.Filters())
		assert.Equal(t, domain.SearchType("image"), s.SearchType())
		assert.Equal(t, domain.DataState("all"), s.DataState())
		assert.Equal(t, 500, s.Limit())
	})

	t.Run("operation dimensions replace requested ones", func(t *testing.T) {
		f := specFlags{start: "2024-01-01", end: "2024-01-31", dimensions: []string{"country"}}
		s, err := f.build("sc-domain:example.com", "query", "date")
		require.NoError(t, err)
		assert.Equal(t, []domain.Dimension{domain.DimensionQuery, domain.DimensionDate}, s.Dimensions())
	})

	t.Run("spec file with overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "spec.yaml")
		data := "site: https://example.com/\nstart_date: 2024-01-01\nend_date: 2024-01-31\ndimensions: [page]\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

		f := specFlags{specFile: path, start: "2024-02-01", end: "2024-02-29"}
		s, err := f.build("sc-domain:other.com")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/", s.Site())
		assert.Equal(t, "2024-02-01", s.Start())
		assert.Equal(t, "2024-02-29", s.End())
		assert.Equal(t, []domain.Dimension{domain.DimensionPage}, s.Dimensions())
	})

	t.Run("errors", func(t *testing.T) {
		bad := []specFlags{
			{start: "2024-01-01"},
			{start: "2024/01/01", end: "2024-01-31"},
			{dimensions: []string{"browser"}},
			{filters: filterList{{Dimension: "query", Operator: "startsWith", Expression: "x"}}},
			{searchType: "maps"},
			{specFile: filepath.Join(t.TempDir(), "missing.yaml")},
		}
		for _, f := range bad {
			_, err := f.build("sc-domain:example.com")
			assert.Error(t, err, "%+v", f)
		}
	})
}
