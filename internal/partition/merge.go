package partition

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/job"
	"github.com/ajitpratap0/nebula-profiler/pkg/logger"
	"github.com/ajitpratap0/nebula-profiler/pkg/metrics"
	"github.com/ajitpratap0/nebula-profiler/pkg/reduce"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// mergeAll groups the partials of every planned component and reduces each
// group. The returned results keep the plan order.
func (r *Runner) mergeAll(ctx context.Context, planned []job.Planned, partials [][]KeyedResult) ([]KeyedResult, error) {
	merged := make([]KeyedResult, len(planned))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.MergeConcurrency)
	for i, p := range planned {
		i, p := i, p
		group := make([]result.AnalyzerResult, 0, len(partials))
		var first KeyedResult
		for _, slots := range partials {
			if s := slots[i]; s.Result != nil {
				if len(group) == 0 {
					first = s
				}
				group = append(group, s.Result)
			}
		}
		if len(group) == 0 {
			continue
		}

		g.Go(func() error {
			res, err := r.mergeGroup(gctx, p, group)
			if err != nil {
				return err
			}
			first.Result = res
			merged[i] = first
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compact(merged), nil
}

// mergeGroup folds the partials of one component key pairwise, level by
// level, until one result is left
func (r *Runner) mergeGroup(ctx context.Context, p job.Planned, partials []result.AnalyzerResult) (out result.AnalyzerResult, err error) {
	ctx = logger.WithComponent(ctx, p.Key)
	log := logger.FromContext(ctx, r.logger)
	ctx, span := r.tracer.Start(ctx, "profile.merge",
		attribute.String("component_key", p.Key),
		attribute.String("component_type", p.Component.Type),
		attribute.Int("partials", len(partials)))
	defer func() { span.End(err) }()

	if len(partials) == 1 {
		return partials[0], nil
	}
	reducer, err := r.reducerFor(p, partials[0])
	if err != nil {
		return nil, err
	}

	level := partials
	for len(level) > 1 {
		next := make([]result.AnalyzerResult, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			m, err := r.reducePair(ctx, p, reducer, level[i], level[i+1])
			if err != nil {
				return nil, err
			}
			next = append(next, m)
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}

	log.Debug("component merged", zap.Int("partials", len(partials)))
	return level[0], nil
}

func (r *Runner) reducePair(ctx context.Context, p job.Planned, reducer reduce.ResultReducer, a, b result.AnalyzerResult) (result.AnalyzerResult, error) {
	timer := metrics.NewTimer("profile.merge")
	merged, err := reducer.Reduce(ctx, []result.AnalyzerResult{a, b})
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailure
	}
	r.metrics.RecordMerge(p.Component.Type, status, timer.Stop())
	if err != nil {
		return nil, errors.Wrap(err, errors.TypeOf(err), "failed to merge partial results").
			WithDetail("component", p.Component.DisplayName()).
			WithDetail("component_key", p.Key)
	}
	return merged, nil
}

// reducerFor resolves the reducer by component type and falls back to the
// result type of the partials
func (r *Runner) reducerFor(p job.Planned, sample result.AnalyzerResult) (reduce.ResultReducer, error) {
	reducer, err := r.registry.ReducerFor(p.Component.Type, r.config.Reduce)
	if err == nil {
		return reducer, nil
	}
	if fallback, ferr := r.registry.ReducerForResult(sample.ResultType(), r.config.Reduce); ferr == nil {
		return fallback, nil
	}
	return nil, errors.Wrap(err, errors.ErrorTypeNonReducible, "component cannot be merged").
		WithDetail("component", p.Component.DisplayName()).
		WithDetail("component_key", p.Key)
}
