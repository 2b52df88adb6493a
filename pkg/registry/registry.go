// Package registry maps component types to their analyzer descriptors and
// resolves the reducer used to merge their partial results.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-profiler/pkg/analyzer"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/logger"
	"github.com/ajitpratap0/nebula-profiler/pkg/reduce"
)

// Registry manages component registration
type Registry struct {
	descriptors map[string]analyzer.Descriptor
	mu          sync.RWMutex
	logger      *zap.Logger
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// New creates an empty registry
func New() *Registry {
	return &Registry{
		descriptors: make(map[string]analyzer.Descriptor),
		logger:      logger.Get().With(zap.String("component", "component_registry")),
	}
}

// Default returns the process-wide registry holding the built-in analyzers
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New()
		for _, d := range analyzer.Builtin() {
			if err := defaultRegistry.Register(d); err != nil {
				panic(err)
			}
		}
	})
	return defaultRegistry
}

// Register adds a descriptor. Registering a type twice is a config error.
func (r *Registry) Register(d analyzer.Descriptor) error {
	if d.Type == "" || d.New == nil {
		return errors.New(errors.ErrorTypeConfig, "descriptor needs a type and a factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[d.Type]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("component type %s already registered", d.Type))
	}
	r.descriptors[d.Type] = d
	r.logger.Debug("component registered",
		zap.String("type", d.Type),
		zap.Bool("reducible", d.Reducible()))
	return nil
}

// Descriptor returns the descriptor of a component type
func (r *Registry) Descriptor(componentType string) (analyzer.Descriptor, error) {
	r.mu.RLock()
	d, exists := r.descriptors[componentType]
	r.mu.RUnlock()

	if !exists {
		return analyzer.Descriptor{}, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("component type %s not found", componentType))
	}
	return d, nil
}

// ReducerFor returns the reducer of a component type. A registered type
// without a reducer yields a non-reducible error.
func (r *Registry) ReducerFor(componentType string, opts reduce.Options) (reduce.ResultReducer, error) {
	d, err := r.Descriptor(componentType)
	if err != nil {
		return nil, err
	}
	if !d.Reducible() {
		return nil, errors.New(errors.ErrorTypeNonReducible, "component has no reducer").
			WithDetail("component_type", componentType)
	}
	return d.NewReducer(opts), nil
}

// ReducerForResult finds a reducer by the result type its component
// produces. It is the fallback for results whose component type is unknown.
func (r *Registry) ReducerForResult(resultType string, opts reduce.Options) (reduce.ResultReducer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.sortedTypes() {
		d := r.descriptors[name]
		if d.ResultType == resultType && d.Reducible() {
			return d.NewReducer(opts), nil
		}
	}
	return nil, errors.New(errors.ErrorTypeNonReducible, "no reducer for result type").
		WithDetail("result_type", resultType)
}

// List returns the registered descriptors sorted by type
func (r *Registry) List() []analyzer.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]analyzer.Descriptor, 0, len(r.descriptors))
	for _, name := range r.sortedTypes() {
		out = append(out, r.descriptors[name])
	}
	return out
}

// Has reports whether a component type is registered
func (r *Registry) Has(componentType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.descriptors[componentType]
	return exists
}

// sortedTypes must be called with the lock held
func (r *Registry) sortedTypes() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
