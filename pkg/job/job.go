// Package job defines profiling jobs: the components to run over a data set
// and the keys that pair their partial results across partitions.
package job

import (
	"fmt"
	"strconv"

	"github.com/ajitpratap0/nebula-profiler/pkg/analyzer"
	"github.com/ajitpratap0/nebula-profiler/pkg/config"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/registry"
)

// OptionMaxColumns splits a component into one component per group of at
// most that many columns
const OptionMaxColumns = "max_columns_per_job"

// Component is one analyzer of a job
type Component struct {
	Type    string                 `yaml:"type" json:"type"`
	Name    string                 `yaml:"name,omitempty" json:"name,omitempty"`
	Columns []string               `yaml:"columns" json:"columns"`
	Options map[string]interface{} `yaml:"options,omitempty" json:"options,omitempty"`
}

// DisplayName returns the name, or the type when the component is unnamed
func (c Component) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Type
}

// Job is a profiling job definition
type Job struct {
	Name string `yaml:"name" json:"name"`
	// Columns lists the columns of the data set; when set, components may
	// only reference these
	Columns    []string    `yaml:"columns,omitempty" json:"columns,omitempty"`
	Components []Component `yaml:"components" json:"components"`
}

// Planned is a component ready to run, identified by its component key
type Planned struct {
	Key        string
	Index      int
	Partition  int
	Component  Component
	Descriptor analyzer.Descriptor
}

// Load reads a YAML job definition. ${VAR} and ${VAR:-default} references
// are substituted from the environment.
func Load(path string) (*Job, error) {
	var j Job
	if err := config.Load(path, &j); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load job definition").
			WithDetail("path", path)
	}
	return &j, nil
}

// Parse decodes a YAML job definition
func Parse(data []byte) (*Job, error) {
	var j Job
	if err := config.Parse(data, &j); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse job definition")
	}
	return &j, nil
}

// ComponentKey returns the key of the component at index. A non-negative
// partition is the index of the column group the component was split into.
func ComponentKey(index, partition int) string {
	key := strconv.Itoa(index)
	if partition >= 0 {
		key += "." + strconv.Itoa(partition)
	}
	return key
}

// Validate checks the job against the registry. With more than one
// partition every component must be reducible.
func (j *Job) Validate(reg *registry.Registry, partitions int) error {
	if j.Name == "" {
		return errors.New(errors.ErrorTypeValidation, "job name is required")
	}
	if len(j.Components) == 0 {
		return errors.New(errors.ErrorTypeValidation, "job has no components")
	}
	known := make(map[string]bool, len(j.Columns))
	for _, c := range j.Columns {
		known[c] = true
	}

	for i, c := range j.Components {
		d, err := reg.Descriptor(c.Type)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("component %d", i)).
				WithDetail("component", c.DisplayName())
		}
		if len(c.Columns) == 0 {
			return errors.New(errors.ErrorTypeValidation, "component has no columns").
				WithDetail("component", c.DisplayName())
		}
		for _, col := range c.Columns {
			if len(known) > 0 && !known[col] {
				return errors.New(errors.ErrorTypeValidation, "component references an unknown column").
					WithDetail("component", c.DisplayName()).
					WithDetail("column", col)
			}
		}
		if partitions > 1 && !d.Reducible() {
			return errors.New(errors.ErrorTypeNonReducible,
				fmt.Sprintf("component %s cannot be merged across %d partitions", c.DisplayName(), partitions)).
				WithDetail("component", c.DisplayName()).
				WithDetail("component_type", c.Type)
		}
	}
	return nil
}

// Plan resolves descriptors and assigns component keys. Components with
// more columns than their limit are split into column groups keyed
// "<index>.<group>".
func (j *Job) Plan(reg *registry.Registry) ([]Planned, error) {
	var planned []Planned
	for i, c := range j.Components {
		d, err := reg.Descriptor(c.Type)
		if err != nil {
			return nil, err
		}

		limit := d.MaxColumns
		if v, ok := c.Options[OptionMaxColumns]; ok {
			n, err := strconv.Atoi(fmt.Sprint(v))
			if err != nil || n < 0 {
				return nil, errors.New(errors.ErrorTypeConfig, "invalid column limit").
					WithDetail("component", c.DisplayName()).
					WithDetail(OptionMaxColumns, v)
			}
			if d.MaxColumns == 0 || (n > 0 && n < d.MaxColumns) {
				limit = n
			}
		}

		if limit == 0 || len(c.Columns) <= limit {
			planned = append(planned, Planned{Key: ComponentKey(i, -1), Index: i, Partition: -1, Component: c, Descriptor: d})
			continue
		}
		for group, start := 0, 0; start < len(c.Columns); group, start = group+1, start+limit {
			end := min(start+limit, len(c.Columns))
			part := c
			part.Columns = append([]string(nil), c.Columns[start:end]...)
			planned = append(planned, Planned{
				Key:        ComponentKey(i, group),
				Index:      i,
				Partition:  group,
				Component:  part,
				Descriptor: d,
			})
		}
	}
	return planned, nil
}
