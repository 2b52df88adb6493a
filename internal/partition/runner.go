// Package partition runs a profiling job over disjoint row partitions and
// merges the keyed partial results into one result per component.
//
// A run has two phases:
//
//  1. Partition phase: every partition gets fresh analyzer instances for
//     each planned component. Rows are fed in order, the partial result of
//     each component is collected under its component key and any future is
//     awaited before the analyzers are closed. Partitions share no analyzer
//     state and run concurrently, bounded by Config.Workers.
//  2. Merge phase: partials with the same component key are folded pairwise
//     by the component's reducer in a balanced binary tree. Different keys
//     merge concurrently, bounded by Config.MergeConcurrency; a single
//     accumulator is only ever touched by one goroutine.
//
// With a single partition the partials are returned as they are and no
// reducer is needed. With more than one partition the job is validated
// before any row is read so that a component without a reducer fails the
// run up front.
package partition

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/nebula-profiler/pkg/analyzer"
	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/config"
	"github.com/ajitpratap0/nebula-profiler/pkg/crosstab"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/job"
	"github.com/ajitpratap0/nebula-profiler/pkg/logger"
	"github.com/ajitpratap0/nebula-profiler/pkg/metrics"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
	"github.com/ajitpratap0/nebula-profiler/pkg/observability"
	"github.com/ajitpratap0/nebula-profiler/pkg/reduce"
	"github.com/ajitpratap0/nebula-profiler/pkg/registry"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// Config controls parallelism and reduction of a run
type Config struct {
	// Workers bounds the partitions processed at the same time
	Workers int
	// MergeConcurrency bounds the component keys merged at the same time
	MergeConcurrency int
	// Reduce is passed to every reducer
	Reduce reduce.Options
}

// DefaultConfig returns a configuration using all CPUs and the union
// layout policy
func DefaultConfig() Config {
	return Config{
		Workers:          runtime.NumCPU(),
		MergeConcurrency: runtime.NumCPU(),
		Reduce:           reduce.Options{Policy: reduce.Union},
	}
}

// ConfigFrom derives a runner configuration from the run configuration
func ConfigFrom(bc *config.BaseConfig) (Config, error) {
	policy, err := reduce.ParseLayoutPolicy(bc.Reduction.LayoutPolicy)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Workers:          bc.Performance.GetWorkers(),
		MergeConcurrency: bc.Performance.MergeConcurrency,
		Reduce:           reduce.Options{Policy: policy},
	}, nil
}

// KeyedResult is the result of one planned component
type KeyedResult struct {
	Key     string
	Name    string
	Type    string
	Columns []string
	Result  result.AnalyzerResult
}

// Outcome is what a run produced
type Outcome struct {
	RunID      string
	Partitions int
	Rows       int
	Duration   time.Duration
	// Results are in job order; split components follow their column groups
	Results []KeyedResult
}

// Result returns the result stored under key
func (o *Outcome) Result(key string) (KeyedResult, bool) {
	for _, r := range o.Results {
		if r.Key == key {
			return r, true
		}
	}
	return KeyedResult{}, false
}

// Runner executes jobs. It is safe to run several jobs concurrently as long
// as the store is.
type Runner struct {
	registry *registry.Registry
	store    annotation.Store
	config   Config

	metrics *metrics.Collector
	tracer  *observability.Tracer
	logger  *zap.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithMetrics records run metrics on c
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Runner) {
		r.metrics = c
	}
}

// WithTracer wraps the job, every partition and every merge group in spans
func WithTracer(t *observability.Tracer) Option {
	return func(r *Runner) {
		r.tracer = t
	}
}

// NewRunner creates a runner that resolves components from reg and records
// row samples in store
func NewRunner(reg *registry.Registry, store annotation.Store, cfg Config, log *zap.Logger, opts ...Option) *Runner {
	if log == nil {
		log = logger.Get()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MergeConcurrency <= 0 {
		cfg.MergeConcurrency = runtime.NumCPU()
	}
	r := &Runner{
		registry: reg,
		store:    store,
		config:   cfg,
		logger:   log.With(zap.String("component", "partition_runner")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run profiles the given partitions. No partitions is treated as one empty
// partition.
func (r *Runner) Run(ctx context.Context, j *job.Job, partitions [][]models.Row) (out *Outcome, err error) {
	if len(partitions) == 0 {
		partitions = [][]models.Row{nil}
	}
	if err := j.Validate(r.registry, len(partitions)); err != nil {
		return nil, err
	}
	planned, err := j.Plan(r.registry)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = logger.WithJobID(ctx, runID)
	log := logger.FromContext(ctx, r.logger)

	ctx, span := r.tracer.Start(ctx, "profile.job",
		attribute.String("job", j.Name),
		attribute.Int("partitions", len(partitions)),
		attribute.Int("components", len(planned)))
	defer func() { span.End(err) }()

	rows := 0
	for _, p := range partitions {
		rows += len(p)
	}
	log.Info("starting profiling run",
		zap.String("job", j.Name),
		zap.Int("partitions", len(partitions)),
		zap.Int("components", len(planned)),
		zap.Int("rows", rows))
	timer := metrics.NewTimer("profile.job")

	partials, err := r.runPartitions(ctx, planned, partitions)
	if err != nil {
		log.Error("partition phase failed", zap.Error(err))
		return nil, err
	}

	var results []KeyedResult
	if len(partitions) == 1 {
		results = compact(partials[0])
	} else {
		results, err = r.mergeAll(ctx, planned, partials)
		if err != nil {
			log.Error("merge phase failed", zap.Error(err))
			return nil, err
		}
	}
	for _, kr := range results {
		if cr, ok := kr.Result.(crosstab.Result); ok && cr.Crosstab() != nil {
			r.metrics.RecordCells(kr.Key, cr.Crosstab().Len())
		}
	}

	out = &Outcome{
		RunID:      runID,
		Partitions: len(partitions),
		Rows:       rows,
		Duration:   timer.Stop(),
		Results:    results,
	}
	span.SetAttribute("results", len(results))
	log.Info("profiling run completed",
		zap.Int("results", len(results)),
		zap.Duration("duration", out.Duration))
	return out, nil
}

// runPartitions returns, per partition, one slot per planned component.
// A slot is empty when the component produced no result.
func (r *Runner) runPartitions(ctx context.Context, planned []job.Planned, partitions [][]models.Row) ([][]KeyedResult, error) {
	partials := make([][]KeyedResult, len(partitions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)
	for i := range partitions {
		i := i
		g.Go(func() error {
			res, err := r.runPartition(gctx, i, planned, partitions[i])
			if err != nil {
				return err
			}
			partials[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}

func (r *Runner) runPartition(ctx context.Context, index int, planned []job.Planned, rows []models.Row) (out []KeyedResult, err error) {
	ctx = logger.WithPartition(ctx, index)
	log := logger.FromContext(ctx, r.logger)
	ctx, span := r.tracer.Start(ctx, "profile.partition",
		attribute.Int("partition", index),
		attribute.Int("rows", len(rows)))
	timer := metrics.NewTimer("profile.partition")
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusFailure
		}
		r.metrics.RecordPartition(status, timer.Stop())
		r.metrics.SampleMemory()
		span.End(err)
	}()

	analyzers := make([]analyzer.Analyzer, 0, len(planned))
	defer func() {
		for i, a := range analyzers {
			if a == nil {
				continue
			}
			if cerr := a.Close(); cerr != nil {
				log.Warn("failed to close analyzer",
					zap.String("component_key", planned[i].Key),
					zap.Error(cerr))
			}
		}
	}()

	for _, p := range planned {
		a, err := p.Descriptor.New(ctx, analyzer.Context{
			Columns: p.Component.Columns,
			Options: p.Component.Options,
			Store:   r.store,
			Logger:  logger.FromContext(logger.WithComponent(ctx, p.Key), r.logger),
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create analyzer").
				WithDetail("component", p.Component.DisplayName()).
				WithDetail("component_key", p.Key)
		}
		analyzers = append(analyzers, a)
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "partition interrupted")
		}
		for i, a := range analyzers {
			if a == nil {
				continue
			}
			if err := a.Process(ctx, row); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to process row").
					WithDetail("component_key", planned[i].Key).
					WithDetail("row", row.ID)
			}
		}
	}

	out = make([]KeyedResult, len(planned))
	for i, a := range analyzers {
		p := planned[i]
		r.metrics.RecordRows(p.Component.Type, len(rows))
		if a == nil {
			continue
		}
		res, err := a.Result(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to produce result").
				WithDetail("component_key", p.Key)
		}
		if res, err = result.Resolve(ctx, res); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to await result").
				WithDetail("component_key", p.Key)
		}
		if res == nil {
			continue
		}
		out[i] = KeyedResult{
			Key:     p.Key,
			Name:    p.Component.DisplayName(),
			Type:    p.Component.Type,
			Columns: p.Component.Columns,
			Result:  res,
		}
	}

	log.Debug("partition processed", zap.Int("rows", len(rows)))
	return out, nil
}

func compact(slots []KeyedResult) []KeyedResult {
	out := make([]KeyedResult, 0, len(slots))
	for _, s := range slots {
		if s.Result != nil {
			out = append(out, s)
		}
	}
	return out
}
