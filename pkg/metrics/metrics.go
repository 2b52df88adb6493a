// Package metrics provides Prometheus metrics for profiling runs: partitions
// and rows processed, merges of partial results, crosstab sizes, sampled rows
// and process memory.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("profile")
//	timer := metrics.NewTimer("partition")
//	processPartition(rows)
//	collector.RecordPartition(metrics.StatusSuccess, timer.Stop())
package metrics

import (
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/process"
)

// Status label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// PartitionsProcessed counts finished partitions.
	// Labels: status (success/failure)
	PartitionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_profiler_partitions_processed_total",
			Help: "Total number of data partitions processed",
		},
		[]string{"status"},
	)

	// PartitionLatency tracks the wall time of one partition in seconds.
	PartitionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nebula_profiler_partition_duration_seconds",
			Help:    "Duration of partition processing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	// RowsProcessed counts rows fed into analyzers.
	// Labels: component_type
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_profiler_rows_processed_total",
			Help: "Total number of rows fed into analyzers",
		},
		[]string{"component_type"},
	)

	// MergesPerformed counts pairwise reductions of partial results.
	// Labels: component_type, status
	MergesPerformed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_profiler_merges_total",
			Help: "Total number of pairwise partial result merges",
		},
		[]string{"component_type", "status"},
	)

	// MergeLatency tracks the duration of one pairwise reduction in seconds.
	// Labels: component_type
	MergeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebula_profiler_merge_duration_seconds",
			Help:    "Duration of a pairwise merge in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"component_type"},
	)

	// ResultCells reports the number of cells of each final crosstab.
	// Labels: component_key
	ResultCells = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nebula_profiler_result_cells",
			Help: "Number of cells in a final crosstab result",
		},
		[]string{"component_key"},
	)

	// AnnotatedRows counts rows recorded in the row-sample store.
	// Labels: backend (memory/badger)
	AnnotatedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_profiler_annotated_rows_total",
			Help: "Total number of rows annotated in the row-sample store",
		},
		[]string{"backend"},
	)

	// ProcessMemory reports the resident set size of the process in bytes.
	ProcessMemory = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nebula_profiler_process_rss_bytes",
			Help: "Resident set size of the profiler process",
		},
	)
)

// Collector records run metrics on behalf of one named run. A nil
// *Collector is valid and records nothing.
type Collector struct {
	name      string
	startTime time.Time

	mu   sync.Mutex
	proc *process.Process
}

// NewCollector creates a new metrics collector for a run.
func NewCollector(name string) *Collector {
	c := &Collector{
		name:      name,
		startTime: time.Now(),
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil { //nolint:gosec // pid fits int32
		c.proc = proc
	}
	return c
}

// Name returns the run name the collector was created for
func (c *Collector) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.startTime
}

// RecordPartition records a finished partition
func (c *Collector) RecordPartition(status string, d time.Duration) {
	if c == nil {
		return
	}
	PartitionsProcessed.WithLabelValues(status).Inc()
	PartitionLatency.Observe(d.Seconds())
}

// RecordRows records rows fed into a component type
func (c *Collector) RecordRows(componentType string, n int) {
	if c == nil || n == 0 {
		return
	}
	RowsProcessed.WithLabelValues(componentType).Add(float64(n))
}

// RecordMerge records one pairwise merge
func (c *Collector) RecordMerge(componentType, status string, d time.Duration) {
	if c == nil {
		return
	}
	MergesPerformed.WithLabelValues(componentType, status).Inc()
	MergeLatency.WithLabelValues(componentType).Observe(d.Seconds())
}

// RecordCells records the size of a final crosstab
func (c *Collector) RecordCells(componentKey string, n int) {
	if c == nil {
		return
	}
	ResultCells.WithLabelValues(componentKey).Set(float64(n))
}

// RecordAnnotated records rows written to the row-sample store
func (c *Collector) RecordAnnotated(backend string, n int) {
	if c == nil || n == 0 {
		return
	}
	AnnotatedRows.WithLabelValues(backend).Add(float64(n))
}

// SampleMemory reads the process RSS and publishes it. It returns the value
// in bytes, or 0 when the process cannot be inspected.
func (c *Collector) SampleMemory() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc == nil {
		return 0
	}
	info, err := c.proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	ProcessMemory.Set(float64(info.RSS))
	return info.RSS
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	name  string
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Name returns the timed operation name
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed time since the timer was created.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
