package rest

import (
	"google.golang.org/api/searchconsole/v1"

	"gsc-insights/internal/query"
)

// BuildRequest renders the page of spec starting at startRow. It reads the
// spec and never changes it.
func BuildRequest(spec query.Spec, startRow, rowLimit int) *searchconsole.SearchAnalyticsQueryRequest {
	req := &searchconsole.SearchAnalyticsQueryRequest{
		StartDate: spec.Start(),
		EndDate:   spec.End(),
		Type:      string(spec.SearchType()),
		DataState: string(spec.DataState()),
		StartRow:  int64(startRow),
		RowLimit:  int64(rowLimit),
	}
	for _, d := range spec.Dimensions() {
		req.Dimensions = append(req.Dimensions, string(d))
	}
	if filters := spec.Filters(); len(filters) > 0 {
		group := &searchconsole.ApiDimensionFilterGroup{GroupType: query.GroupTypeAnd}
		for _, f := range filters {
			group.Filters = append(group.Filters, &searchconsole.ApiDimensionFilter{
				Dimension:  string(f.Dimension),
				Operator:   string(f.Operator),
				Expression: f.Expression,
			})
		}
		req.DimensionFilterGroups = []*searchconsole.ApiDimensionFilterGroup{group}
	}
	return req
}
