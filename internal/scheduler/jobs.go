// Package scheduler runs saved report exports on cron schedules.
package scheduler

import (
	"bytes"
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Job is one scheduled export.
//
//	jobs:
//	  - name: weekly-queries
//	    cron: "0 6 * * 1"
//	    spec: specs/queries.yaml
//	    site: sc-domain:example.com
//	    export: [gs://reports/queries.csv]
type Job struct {
	Name   string   `json:"name" yaml:"name"`
	Cron   string   `json:"cron" yaml:"cron"`
	Spec   string   `json:"spec" yaml:"spec"`                     // path of a query spec file
	Site   string   `json:"site,omitempty" yaml:"site,omitempty"` // overrides the spec's site
	Export []string `json:"export" yaml:"export"`
}

// File is the YAML schedule.
type File struct {
	Jobs []Job `yaml:"jobs"`
}

// Validate checks the job can be scheduled. The spec file itself is read at
// run time so edits take effect without a restart.
func (j Job) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if _, err := cron.ParseStandard(j.Cron); err != nil {
		return fmt.Errorf("job %q: invalid cron %q: %w", j.Name, j.Cron, err)
	}
	if j.Spec == "" {
		return fmt.Errorf("job %q: spec is required", j.Name)
	}
	if len(j.Export) == 0 {
		return fmt.Errorf("job %q: at least one export destination is required", j.Name)
	}
	return nil
}

// LoadFile reads and validates a schedule file.
func LoadFile(path string) ([]Job, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	return Parse(data)
}

// Parse decodes a schedule. Job names must be unique.
func Parse(data []byte) ([]Job, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	seen := make(map[string]bool, len(f.Jobs))
	for _, j := range f.Jobs {
		if err := j.Validate(); err != nil {
			return nil, err
		}
		if seen[j.Name] {
			return nil, fmt.Errorf("duplicate job name %q", j.Name)
		}
		seen[j.Name] = true
	}
	return f.Jobs, nil
}
