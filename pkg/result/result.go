// Package result defines analyzer results and the producers that hand out
// drill-down results lazily.
package result

import (
	"context"

	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
)

// AnalyzerResult is the outcome of one analyzer. ResultType is used to find
// a reducer when the component type does not name one.
type AnalyzerResult interface {
	ResultType() string
}

// Resolver materializes a stored result by key
type Resolver interface {
	Resolve(ctx context.Context, key string) (AnalyzerResult, error)
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc func(ctx context.Context, key string) (AnalyzerResult, error)

// Resolve calls f
func (f ResolverFunc) Resolve(ctx context.Context, key string) (AnalyzerResult, error) {
	return f(ctx, key)
}

type producerKind int

const (
	inlineProducer producerKind = iota
	storedProducer
)

// Producer owns a drill-down result or knows how to resolve it. It is
// either inline (the result is held directly) or stored (a key into an
// external store plus the resolver for it).
type Producer struct {
	kind     producerKind
	inline   AnalyzerResult
	key      string
	resolver Resolver
}

// Inline returns a producer holding r. A nil r yields a nil producer.
func Inline(r AnalyzerResult) *Producer {
	if r == nil {
		return nil
	}
	return &Producer{kind: inlineProducer, inline: r}
}

// Stored returns a producer resolving key through resolver on demand
func Stored(key string, resolver Resolver) *Producer {
	return &Producer{kind: storedProducer, key: key, resolver: resolver}
}

// IsInline reports whether the result is held directly
func (p *Producer) IsInline() bool {
	return p.kind == inlineProducer
}

// Key returns the store key of a stored producer
func (p *Producer) Key() string {
	return p.key
}

// Result returns the produced result, resolving stored results and
// awaiting futures.
func (p *Producer) Result(ctx context.Context) (AnalyzerResult, error) {
	if p == nil {
		return nil, nil
	}
	switch p.kind {
	case inlineProducer:
		return Resolve(ctx, p.inline)
	default:
		if p.resolver == nil {
			return nil, errors.New(errors.ErrorTypeInternal, "stored result has no resolver").
				WithDetail("key", p.key)
		}
		r, err := p.resolver.Resolve(ctx, p.key)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to resolve drill-down result").
				WithDetail("key", p.key)
		}
		return Resolve(ctx, r)
	}
}
