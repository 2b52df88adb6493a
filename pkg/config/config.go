// Package config provides the unified configuration for profiling runs.
// A single BaseConfig covers every part of a run and is organized into
// logical sections:
//   - Performance: partitions and concurrency
//   - Sampling: row-sample store backend and sample cap
//   - Reduction: crosstab layout policy and render limits
//   - Observability: logging, metrics, tracing
//   - Output: report and archive destinations
//
// Example usage:
//
//	cfg := config.NewBaseConfig("nightly-profile")
//	cfg.Performance.Partitions = 8
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"runtime"
)

// Store backends for row samples
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Crosstab layout policies used when partial results disagree on categories
const (
	LayoutUnion  = "union"
	LayoutStrict = "strict"
)

// BaseConfig is the configuration of a profiling run
type BaseConfig struct {
	// Name identifies the run
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`

	Performance   PerformanceConfig   `yaml:"performance" json:"performance"`
	Sampling      SamplingConfig      `yaml:"sampling" json:"sampling"`
	Reduction     ReductionConfig     `yaml:"reduction" json:"reduction"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
	Output        OutputConfig        `yaml:"output" json:"output"`
}

// PerformanceConfig controls how data is split and processed in parallel.
type PerformanceConfig struct {
	// Partitions is the number of disjoint row partitions
	Partitions int `yaml:"partitions" json:"partitions"`
	// Workers bounds concurrently processed partitions
	Workers int `yaml:"workers" json:"workers"`
	// MergeConcurrency bounds concurrently merged component keys
	MergeConcurrency int `yaml:"merge_concurrency" json:"merge_concurrency"`
}

// SamplingConfig controls the row-sample store.
type SamplingConfig struct {
	// MaxSampleRows caps the sample rows kept per annotation
	MaxSampleRows int    `yaml:"max_sample_rows" json:"max_sample_rows"`
	Backend       string `yaml:"backend" json:"backend"`
	// BadgerPath is the database directory; empty means in-memory
	BadgerPath  string `yaml:"badger_path" json:"badger_path"`
	Compression string `yaml:"compression" json:"compression"`
}

// ReductionConfig controls partial result reduction.
type ReductionConfig struct {
	LayoutPolicy string `yaml:"layout_policy" json:"layout_policy"`
	// RenderLimit bounds the cells rendered per crosstab; negative is unbounded
	RenderLimit int `yaml:"render_limit" json:"render_limit"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	EnableMetrics bool   `yaml:"enable_metrics" json:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing" json:"enable_tracing"`
	LogLevel      string `yaml:"log_level" json:"log_level"`
	LogEncoding   string `yaml:"log_encoding" json:"log_encoding"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
	MetricsAddr       string  `yaml:"metrics_addr" json:"metrics_addr"`
}

// OutputConfig names where reports go.
type OutputConfig struct {
	ReportPath         string `yaml:"report_path" json:"report_path"`
	ArchivePath        string `yaml:"archive_path" json:"archive_path"`
	ArchiveCompression string `yaml:"archive_compression" json:"archive_compression"`
}

// NewBaseConfig creates a new BaseConfig with sensible defaults.
func NewBaseConfig(name string) *BaseConfig {
	return &BaseConfig{
		Name:    name,
		Version: "1.0.0",
		Performance: PerformanceConfig{
			Partitions:       1,
			Workers:          runtime.NumCPU(),
			MergeConcurrency: runtime.NumCPU(),
		},
		Sampling: SamplingConfig{
			MaxSampleRows: 20,
			Backend:       BackendMemory,
			Compression:   "lz4",
		},
		Reduction: ReductionConfig{
			LayoutPolicy: LayoutUnion,
			RenderLimit:  -1,
		},
		Observability: ObservabilityConfig{
			EnableMetrics:     true,
			EnableTracing:     false,
			LogLevel:          "info",
			LogEncoding:       "json",
			TracingSampleRate: 1.0,
		},
		Output: OutputConfig{
			ArchiveCompression: "zstd",
		},
	}
}

// Validate validates the configuration for correctness.
func (bc *BaseConfig) Validate() error {
	if bc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if bc.Performance.Partitions <= 0 {
		return fmt.Errorf("partitions must be positive")
	}
	if bc.Performance.MergeConcurrency < 0 {
		return fmt.Errorf("merge_concurrency cannot be negative")
	}
	if bc.Sampling.MaxSampleRows < 0 {
		return fmt.Errorf("max_sample_rows cannot be negative")
	}
	switch bc.Sampling.Backend {
	case BackendMemory, BackendBadger:
	default:
		return fmt.Errorf("unknown sampling backend %q", bc.Sampling.Backend)
	}
	switch bc.Reduction.LayoutPolicy {
	case LayoutUnion, LayoutStrict:
	default:
		return fmt.Errorf("unknown layout policy %q", bc.Reduction.LayoutPolicy)
	}
	if r := bc.Observability.TracingSampleRate; r < 0 || r > 1 {
		return fmt.Errorf("tracing_sample_rate must be within [0, 1]")
	}
	return nil
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (p *PerformanceConfig) GetWorkers() int {
	if p.Workers <= 0 {
		return runtime.NumCPU()
	}
	return p.Workers
}

// IsPersistent returns true if samples are written to disk
func (s *SamplingConfig) IsPersistent() bool {
	return s.Backend == BackendBadger && s.BadgerPath != ""
}
