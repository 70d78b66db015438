package query

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsc-insights/internal/domain"
)

func TestSpec_Defaults(t *testing.T) {
	s := New("sc-domain:example.com")

	assert.Equal(t, "sc-domain:example.com", s.Site())
	assert.Equal(t, domain.SearchTypeWeb, s.SearchType())
	assert.Equal(t, domain.DataStateFinal, s.DataState())
	assert.Zero(t, s.Limit())
	assert.Empty(t, s.Filters())
}

func TestSpec_SettersDoNotMutateReceiver(t *testing.T) {
	base, err := New("https://example.com/").WithDimensions("query")
	require.NoError(t, err)

	withPage, err := base.WithFilter("page", "/blog/", "contains")
	require.NoError(t, err)
	withBoth, err := withPage.WithFilter("country", "fra", "")
	require.NoError(t, err)
	withLimit, err := withBoth.WithLimit(10)
	require.NoError(t, err)

	assert.Empty(t, base.Filters())
	assert.Len(t, withPage.Filters(), 1)
	assert.Len(t, withBoth.Filters(), 2)
	assert.Zero(t, withBoth.Limit())
	assert.Equal(t, 10, withLimit.Limit())

	// Branching from the same parent must not share backing arrays.
	other, err := withPage.WithFilter("device", "MOBILE", "equals")
	require.NoError(t, err)
	assert.Equal(t, domain.DimensionCountry, withBoth.Filters()[1].Dimension)
	assert.Equal(t, domain.DimensionDevice, other.Filters()[1].Dimension)
}

func TestSpec_FilterOperatorDefaultsToEquals(t *testing.T) {
	s, err := New("s").WithFilter("country", "usa", "")
	require.NoError(t, err)
	assert.Equal(t, domain.OperatorEquals, s.Filters()[0].Operator)
}

func TestSpec_Validation(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(Spec) (Spec, error)
		wantErr string
	}{
		{
			name:    "empty_dimensions",
			apply:   func(s Spec) (Spec, error) { return s.WithDimensions() },
			wantErr: "at least one dimension",
		},
		{
			name:    "unknown_dimension",
			apply:   func(s Spec) (Spec, error) { return s.WithDimensions("query", "keyword") },
			wantErr: `"keyword"`,
		},
		{
			name:    "unknown_operator",
			apply:   func(s Spec) (Spec, error) { return s.WithFilter("query", "x", "startsWith") },
			wantErr: `invalid operator "startsWith"`,
		},
		{
			name:    "or_group",
			apply:   func(s Spec) (Spec, error) { return s.WithFilterGroup("query", "x", "equals", "or") },
			wantErr: "invalid group type",
		},
		{
			name:    "bad_search_type",
			apply:   func(s Spec) (Spec, error) { return s.WithSearchType("shopping") },
			wantErr: "invalid search type",
		},
		{
			name:    "bad_data_state",
			apply:   func(s Spec) (Spec, error) { return s.WithDataState("fresh") },
			wantErr: "invalid data state",
		},
		{
			name:    "zero_limit",
			apply:   func(s Spec) (Spec, error) { return s.WithLimit(0) },
			wantErr: "positive integer",
		},
		{
			name:    "negative_limit",
			apply:   func(s Spec) (Spec, error) { return s.WithLimit(-5) },
			wantErr: "positive integer",
		},
		{
			name:    "malformed_date",
			apply:   func(s Spec) (Spec, error) { return s.WithRange("2024/01/01", "2024-01-31") },
			wantErr: "expected YYYY-MM-DD",
		},
		{
			name:  "format_only_date_check",
			apply: func(s Spec) (Spec, error) { return s.WithRange("2024-02-30", "2024-02-31") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.apply(New("s"))
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			var valErr *domain.ValidationError
			assert.True(t, errors.As(err, &valErr))
		})
	}
}

func TestSpec_Validate(t *testing.T) {
	s := New("s")
	assert.ErrorContains(t, s.Validate(), "date range")

	s, err := s.WithRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.ErrorContains(t, s.Validate(), "dimension")

	s, err = s.WithDimensions("date")
	require.NoError(t, err)
	assert.NoError(t, s.Validate())

	assert.ErrorContains(t, s.WithSite("").Validate(), "site")
}

func TestParse_File(t *testing.T) {
	data := []byte(`
site: "sc-domain:example.com"
start_date: "2024-01-01"
end_date: "2024-03-31"
dimensions: [query, page]
filters:
  - dimension: page
    operator: contains
    expression: /blog/
  - dimension: country
    expression: fra
search_type: image
limit: 500
`)
	s, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "sc-domain:example.com", s.Site())
	assert.Equal(t, "2024-01-01", s.Start())
	assert.Equal(t, "2024-03-31", s.End())
	assert.Equal(t, []domain.Dimension{domain.DimensionQuery, domain.DimensionPage}, s.Dimensions())
	require.Len(t, s.Filters(), 2)
	assert.Equal(t, domain.OperatorEquals, s.Filters()[1].Operator)
	assert.Equal(t, domain.SearchTypeImage, s.SearchType())
	assert.Equal(t, domain.DataStateFinal, s.DataState())
	assert.Equal(t, 500, s.Limit())

	roundTrip, err := s.ToFile().Spec()
	require.NoError(t, err)
	assert.Equal(t, s, roundTrip)
}

func TestParse_RejectsUnknownKeysAndBadValues(t *testing.T) {
	_, err := Parse([]byte("site: s\ndimension: [query]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")

	_, err = Parse([]byte("site: s\ndimensions: [keyword]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyword")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site: s\ndimensions: [date]\n"), 0o600))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, s.HasDimension(domain.DimensionDate))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read spec file")
}
