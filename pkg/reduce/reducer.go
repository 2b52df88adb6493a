// Package reduce merges partial analyzer results computed over disjoint
// partitions into one result. Every reducer must be associative and
// commutative so that the merged result does not depend on how the data was
// partitioned or in which order partials are combined.
package reduce

import (
	"context"

	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// Reducer merges a non-empty list of partial results of the same type
type Reducer[R any] interface {
	Reduce(ctx context.Context, partials []R) (R, error)
}

// Func adapts a function to Reducer
type Func[R any] func(ctx context.Context, partials []R) (R, error)

// Reduce calls f
func (f Func[R]) Reduce(ctx context.Context, partials []R) (R, error) {
	return f(ctx, partials)
}

// ResultReducer reduces untyped analyzer results. It is the form stored in
// the component registry.
type ResultReducer = Reducer[result.AnalyzerResult]

// Adapt turns a typed reducer into a ResultReducer. Partials that are not of
// type R are rejected with a type mismatch.
func Adapt[R result.AnalyzerResult](r Reducer[R]) ResultReducer {
	return Func[result.AnalyzerResult](func(ctx context.Context, partials []result.AnalyzerResult) (result.AnalyzerResult, error) {
		typed := make([]R, len(partials))
		for i, p := range partials {
			v, ok := p.(R)
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeTypeMismatch, "partial result %d has unexpected type %T", i, p)
			}
			typed[i] = v
		}
		merged, err := r.Reduce(ctx, typed)
		if err != nil {
			return nil, err
		}
		return merged, nil
	})
}

// checkPartials rejects an empty partial list
func checkPartials(n int) error {
	if n == 0 {
		return errors.New(errors.ErrorTypeValidation, "nothing to reduce: no partial results")
	}
	return nil
}
