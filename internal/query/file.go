package query

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML form of a Spec.
//
//	site: sc-domain:example.com
//	start_date: 2024-01-01
//	end_date: 2024-03-31
//	dimensions: [query, page, date]
//	filters:
//	  - dimension: page
//	    operator: contains
//	    expression: /blog/
//	search_type: web
//	data_state: final
//	limit: 50000
type File struct {
	Site       string       `yaml:"site"`
	StartDate  string       `yaml:"start_date"`
	EndDate    string       `yaml:"end_date"`
	Dimensions []string     `yaml:"dimensions"`
	Filters    []FileFilter `yaml:"filters,omitempty"`
	SearchType string       `yaml:"search_type,omitempty"`
	DataState  string       `yaml:"data_state,omitempty"`
	Limit      int          `yaml:"limit,omitempty"`
}

// FileFilter is one filter entry of a spec file.
type FileFilter struct {
	Dimension  string `yaml:"dimension"`
	Operator   string `yaml:"operator,omitempty"`
	Expression string `yaml:"expression"`
	GroupType  string `yaml:"group_type,omitempty"`
}

// LoadFile reads and validates a YAML spec file.
func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return Spec{}, fmt.Errorf("read spec file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML spec. Unknown keys are rejected so typos do not
// silently widen a query.
func Parse(data []byte) (Spec, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Spec{}, fmt.Errorf("parse spec file: %w", err)
	}
	return f.Spec()
}

// Spec converts the file into a validated Spec. Fields left empty keep the
// API defaults.
func (f File) Spec() (Spec, error) {
	s := New(f.Site)
	var err error
	if f.StartDate != "" || f.EndDate != "" {
		if s, err = s.WithRange(f.StartDate, f.EndDate); err != nil {
			return Spec{}, err
		}
	}
	if len(f.Dimensions) > 0 {
		if s, err = s.WithDimensions(f.Dimensions...); err != nil {
			return Spec{}, err
		}
	}
	for _, ff := range f.Filters {
		if s, err = s.WithFilterGroup(ff.Dimension, ff.Expression, ff.Operator, ff.GroupType); err != nil {
			return Spec{}, err
		}
	}
	if f.SearchType != "" {
		if s, err = s.WithSearchType(f.SearchType); err != nil {
			return Spec{}, err
		}
	}
	if f.DataState != "" {
		if s, err = s.WithDataState(f.DataState); err != nil {
			return Spec{}, err
		}
	}
	if f.Limit != 0 {
		if s, err = s.WithLimit(f.Limit); err != nil {
			return Spec{}, err
		}
	}
	return s, nil
}

// ToFile is the inverse of File.Spec.
func (s Spec) ToFile() File {
	f := File{
		Site:       s.site,
		StartDate:  s.start,
		EndDate:    s.end,
		SearchType: string(s.searchType),
		DataState:  string(s.dataState),
		Limit:      s.limit,
	}
	for _, d := range s.dimensions {
		f.Dimensions = append(f.Dimensions, string(d))
	}
	for _, flt := range s.filters {
		f.Filters = append(f.Filters, FileFilter{
			Dimension:  string(flt.Dimension),
			Operator:   string(flt.Operator),
			Expression: flt.Expression,
		})
	}
	return f
}
