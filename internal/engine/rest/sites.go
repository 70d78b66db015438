package rest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
)

// PermissionUnverified marks sites the account cannot read.
const PermissionUnverified = "siteUnverifiedUser"

// Property is a Search Console property the credentials can query.
type Property struct {
	SiteURL         string `json:"site_url"`
	PermissionLevel string `json:"permission_level"`
}

// ListProperties returns the verified properties whose URL contains filter
// (case-insensitive), sorted by URL. An empty filter keeps everything.
func ListProperties(ctx context.Context, lister SiteLister, filter string) ([]Property, error) {
	sites, err := lister.ListSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	filter = strings.ToLower(filter)
	var out []Property
	for _, s := range sites {
		if s == nil || s.PermissionLevel == PermissionUnverified {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(s.SiteUrl), filter) {
			continue
		}
		out = append(out, Property{SiteURL: s.SiteUrl, PermissionLevel: s.PermissionLevel})
	}
	slices.SortFunc(out, func(a, b Property) int { return cmp.Compare(a.SiteURL, b.SiteURL) })
	return out, nil
}
