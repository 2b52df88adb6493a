package result

import (
	"context"
	"sync"

	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
)

// FutureResultType is the result type reported by an unresolved Future
const FutureResultType = "future"

// Future is a result that becomes available later. Await blocks until
// Complete has been called or the context ends.
type Future struct {
	done   chan struct{}
	once   sync.Once
	result AnalyzerResult
	err    error
}

// NewFuture returns an incomplete future
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Go runs fn in a new goroutine and completes the future with its outcome
func Go(fn func() (AnalyzerResult, error)) *Future {
	f := NewFuture()
	go func() {
		f.Complete(fn())
	}()
	return f
}

// Completed returns a future that is already resolved to r
func Completed(r AnalyzerResult) *Future {
	f := NewFuture()
	f.Complete(r, nil)
	return f
}

// ResultType implements AnalyzerResult
func (f *Future) ResultType() string {
	return FutureResultType
}

// Complete resolves the future. Only the first call has an effect.
func (f *Future) Complete(r AnalyzerResult, err error) {
	f.once.Do(func() {
		f.result = r
		f.err = err
		close(f.done)
	})
}

// IsReady reports whether the future has been completed
func (f *Future) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future completes or ctx is done
func (f *Future) Await(ctx context.Context) (AnalyzerResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "interrupted while awaiting result")
	}
}

// Resolve returns r, awaiting it first if it is a future. Futures that
// resolve to futures are awaited in turn.
func Resolve(ctx context.Context, r AnalyzerResult) (AnalyzerResult, error) {
	for {
		f, ok := r.(*Future)
		if !ok || f == nil {
			return r, nil
		}
		var err error
		r, err = f.Await(ctx)
		if err != nil {
			return nil, err
		}
	}
}
