// Package warehouse compiles search analytics operations to SQL over the bulk
// export tables and runs them on BigQuery or on a DuckDB mirror, behind a
// dry-run cost gate.
package warehouse

import (
	"slices"

	"gsc-insights/internal/ddl"
)

// Table is one of the two bulk export tables.
type Table string

// Export tables.
const (
	SiteTable Table = "searchdata_site_impression"
	URLTable  Table = "searchdata_url_impression"
)

// Tables lists both tables, site first.
func Tables() []Table { return []Table{SiteTable, URLTable} }

// Columns shared by both tables.
const (
	colDate          = "data_date"
	colSiteURL       = "site_url"
	colQuery         = "query"
	colURL           = "url"
	colCountry       = "country"
	colSearchType    = "search_type"
	colDevice        = "device"
	colClicks        = "clicks"
	colImpressions   = "impressions"
	colAnonQuery     = "is_anonymized_query"
	colAnonDiscover  = "is_anonymized_discover"
	colSitePosition  = "sum_top_position"
	colURLPosition   = "sum_position"
	boolColumnType   = "BOOLEAN"
	stringColumnType = "VARCHAR"
)

// richResultFlags are the search appearance booleans of the URL table.
var richResultFlags = []string{
	"is_amp_top_stories",
	"is_amp_blue_link",
	"is_job_listing",
	"is_job_details",
	"is_tpf_qa",
	"is_tpf_faq",
	"is_tpf_howto",
	"is_weblite",
	"is_action",
	"is_events_listing",
	"is_events_details",
	"is_search_appearance_android_app",
	"is_amp_story",
	"is_amp_image_result",
	"is_video",
	"is_organic_shopping",
	"is_review_snippet",
	"is_special_announcement",
	"is_recipe_feature",
	"is_recipe_rich_snippet",
	"is_subscribed_content",
	"is_page_experience",
	"is_practice_problems",
	"is_math_solvers",
	"is_translated_result",
	"is_edu_q_and_a",
	"is_product_snippets",
	"is_merchant_listings",
	"is_learning_videos",
}

// siteFilterColumns can be filtered on in the site table.
var siteFilterColumns = []string{colSiteURL, colQuery, colAnonQuery, colCountry, colSearchType, colDevice}

// urlFilterColumns can be filtered on in the URL table.
var urlFilterColumns = append(append(slices.Clone(siteFilterColumns), colURL, colAnonDiscover), richResultFlags...)

// Schema returns the mirror column layout of t, in export order.
func Schema(t Table) []ddl.ColumnDef {
	cols := []ddl.ColumnDef{
		{Name: colDate, Type: "DATE"},
		{Name: colSiteURL, Type: stringColumnType},
	}
	if t == URLTable {
		cols = append(cols, ddl.ColumnDef{Name: colURL, Type: stringColumnType})
	}
	cols = append(cols,
		ddl.ColumnDef{Name: colQuery, Type: stringColumnType},
		ddl.ColumnDef{Name: colAnonQuery, Type: boolColumnType},
	)
	if t == URLTable {
		cols = append(cols, ddl.ColumnDef{Name: colAnonDiscover, Type: boolColumnType})
	}
	cols = append(cols,
		ddl.ColumnDef{Name: colCountry, Type: stringColumnType},
		ddl.ColumnDef{Name: colSearchType, Type: stringColumnType},
		ddl.ColumnDef{Name: colDevice, Type: stringColumnType},
	)
	if t == URLTable {
		for _, f := range richResultFlags {
			cols = append(cols, ddl.ColumnDef{Name: f, Type: boolColumnType})
		}
	}
	cols = append(cols,
		ddl.ColumnDef{Name: colImpressions, Type: "BIGINT"},
		ddl.ColumnDef{Name: colClicks, Type: "BIGINT"},
		ddl.ColumnDef{Name: positionColumn(t), Type: "DOUBLE"},
	)
	return cols
}

// positionColumn is the zero-based position sum of t.
func positionColumn(t Table) string {
	if t == URLTable {
		return colURLPosition
	}
	return colSitePosition
}

// isFilterColumn reports whether column may be filtered in any table.
func isFilterColumn(column string) bool {
	return slices.Contains(urlFilterColumns, column)
}

// isBoolColumn reports whether column holds booleans.
func isBoolColumn(column string) bool {
	return column == colAnonQuery || column == colAnonDiscover || slices.Contains(richResultFlags, column)
}

// ChooseTable returns the site table when every filtered column exists
// there, and the URL table otherwise.
func ChooseTable(filterColumns []string) Table {
	for _, c := range filterColumns {
		if !slices.Contains(siteFilterColumns, c) {
			return URLTable
		}
	}
	return SiteTable
}
