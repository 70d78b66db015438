// Package rest executes query specs against the Search Console search
// analytics API.
package rest

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/searchconsole/v1"
)

// API is the slice of the search analytics API the engine needs.
type API interface {
	Query(ctx context.Context, siteURL string, req *searchconsole.SearchAnalyticsQueryRequest) (*searchconsole.SearchAnalyticsQueryResponse, error)
}

// SiteLister lists the properties the credentials can see.
type SiteLister interface {
	ListSites(ctx context.Context) ([]*searchconsole.WmxSite, error)
}

// ServiceAPI adapts a *searchconsole.Service to API and SiteLister.
type ServiceAPI struct {
	svc *searchconsole.Service
}

var (
	_ API        = (*ServiceAPI)(nil)
	_ SiteLister = (*ServiceAPI)(nil)
)

// NewServiceAPI wraps an authenticated service handle.
func NewServiceAPI(svc *searchconsole.Service) *ServiceAPI {
	return &ServiceAPI{svc: svc}
}

// NewAPIFromCredentials builds a read-only service from a service account
// key file.
func NewAPIFromCredentials(ctx context.Context, credentialsFile string) (*ServiceAPI, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("credentials file is required")
	}
	svc, err := searchconsole.NewService(ctx,
		option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile),
		option.WithScopes(searchconsole.WebmastersReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create search console service: %w", err)
	}
	return NewServiceAPI(svc), nil
}

// Query runs one search analytics request.
func (a *ServiceAPI) Query(ctx context.Context, siteURL string, req *searchconsole.SearchAnalyticsQueryRequest) (*searchconsole.SearchAnalyticsQueryResponse, error) {
	return a.svc.Searchanalytics.Query(siteURL, req).Context(ctx).Do()
}

// ListSites returns every site entry of the account.
func (a *ServiceAPI) ListSites(ctx context.Context) ([]*searchconsole.WmxSite, error) {
	resp, err := a.svc.Sites.List().Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.SiteEntry, nil
}
