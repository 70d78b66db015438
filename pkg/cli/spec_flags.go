package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"gsc-insights/internal/query"
)

// filterArg is one --filter value: dimension[:operator]=expression.
type filterArg struct {
	Dimension  string
	Operator   string
	Expression string
}

func parseFilterArg(s string) (filterArg, error) {
	key, expr, ok := strings.Cut(s, "=")
	if !ok || key == "" || expr == "" {
		return filterArg{}, fmt.Errorf("invalid filter %q: expected dimension[:operator]=expression", s)
	}
	dim, op, _ := strings.Cut(key, ":")
	return filterArg{Dimension: dim, Operator: op, Expression: expr}, nil
}

// filterList is a repeatable pflag.Value.
type filterList []filterArg

var _ pflag.Value = (*filterList)(nil)

func (l *filterList) String() string {
	parts := make([]string, len(*l))
	for i, f := range *l {
		key := f.Dimension
		if f.Operator != "" {
			key += ":" + f.Operator
		}
		parts[i] = key + "=" + f.Expression
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (l *filterList) Set(s string) error {
	f, err := parseFilterArg(s)
	if err != nil {
		return err
	}
	*l = append(*l, f)
	return nil
}

func (l *filterList) Type() string { return "filter" }

// specFlags are the flags that describe what to fetch.
type specFlags struct {
	specFile   string
	start      string
	end        string
	days       int
	dimensions []string
	filters    filterList
	searchType string
	dataState  string
	limit      int

	now func() time.Time
}

func (f *specFlags) register(fs *pflag.FlagSet, withDimensions bool) {
	fs.StringVar(&f.specFile, "spec", "", "YAML spec file; flags override its values")
	fs.StringVar(&f.start, "start", "", "First day, YYYY-MM-DD")
	fs.StringVar(&f.end, "end", "", "Last day (inclusive), YYYY-MM-DD")
	fs.IntVar(&f.days, "days", 0, "Use the last N complete days instead of --start/--end")
	if withDimensions {
		fs.StringSliceVarP(&f.dimensions, "dimensions", "d", nil, "Dimensions to group by (query, page, country, device, date, searchAppearance)")
	}
	fs.Var(&f.filters, "filter", "Filter as dimension[:operator]=expression; repeatable")
	fs.StringVar(&f.searchType, "search-type", "", "Search type (web, image, video, news, discover, googleNews)")
	fs.StringVar(&f.dataState, "data-state", "", "Data state (final, all)")
	fs.IntVar(&f.limit, "limit", 0, "Maximum rows to fetch (0 for all)")
}

// dateRange resolves --start/--end or --days. The last day of a --days
// window is two days ago since the newest data is still incomplete.
func (f *specFlags) dateRange() (start, end string, err error) {
	if f.days > 0 {
		if f.start != "" || f.end != "" {
			return "", "", fmt.Errorf("--days cannot be combined with --start or --end")
		}
		now := time.Now
		if f.now != nil {
			now = f.now
		}
		last := now().UTC().AddDate(0, 0, -2)
		first := last.AddDate(0, 0, -(f.days - 1))
		return first.Format(time.DateOnly), last.Format(time.DateOnly), nil
	}
	return f.start, f.end, nil
}

// build assembles the spec. dims, when set, replace any requested
// dimensions.
func (f *specFlags) build(site string, dims ...string) (query.Spec, error) {
	s := query.New(site)
	if f.specFile != "" {
		loaded, err := query.LoadFile(f.specFile)
		if err != nil {
			return s, err
		}
		s = loaded
		if s.Site() == "" {
			s = s.WithSite(site)
		}
	}

	start, end, err := f.dateRange()
	if err != nil {
		return s, err
	}
	if start != "" || end != "" {
		if start == "" || end == "" {
			return s, fmt.Errorf("--start and --end must be set together")
		}
		if s, err = s.WithRange(start, end); err != nil {
			return s, err
		}
	}
	if len(dims) == 0 {
		dims = f.dimensions
	}
	if len(dims) > 0 {
		if s, err = s.WithDimensions(dims...); err != nil {
			return s, err
		}
	}
	for _, flt := range f.filters {
		if s, err = s.WithFilter(flt.Dimension, flt.Expression, flt.Operator); err != nil {
			return s, err
		}
	}
	if f.searchType != "" {
		if s, err = s.WithSearchType(f.searchType); err != nil {
			return s, err
		}
	}
	if f.dataState != "" {
		if s, err = s.WithDataState(f.dataState); err != nil {
			return s, err
		}
	}
	if f.limit > 0 {
		if s, err = s.WithLimit(f.limit); err != nil {
			return s, err
		}
	}
	return s, nil
}
