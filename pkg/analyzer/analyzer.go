// Package analyzer contains the profiling components that consume rows of a
// partition and produce an analyzer result, together with the reducers that
// merge their partial results.
package analyzer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
	"github.com/ajitpratap0/nebula-profiler/pkg/reduce"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// Shared dimension and measure names
const (
	DimensionColumn  = "Column"
	DimensionMeasure = "Measure"

	MeasureRowCount  = "Row count"
	MeasureNullCount = "Null count"
)

// Analyzer consumes the rows of one partition. Instances are used by a
// single goroutine.
type Analyzer interface {
	// Process feeds one row
	Process(ctx context.Context, row models.Row) error
	// Result returns the partial result for the rows seen so far. It may be
	// a *result.Future.
	Result(ctx context.Context) (result.AnalyzerResult, error)
	// Close releases resources held by the analyzer
	Close() error
}

// Context carries what an analyzer is configured with
type Context struct {
	Columns []string
	Options map[string]interface{}
	Store   annotation.Store
	Logger  *zap.Logger
}

// Factory creates an analyzer instance
type Factory func(ctx context.Context, c Context) (Analyzer, error)

// ReducerFactory creates the reducer of a component's partial results
type ReducerFactory func(opts reduce.Options) reduce.ResultReducer

// Descriptor describes a component type
type Descriptor struct {
	Type        string
	Description string
	ResultType  string
	// MaxColumns splits components with more columns into several
	// independently keyed components; zero means no limit
	MaxColumns int
	New        Factory
	// NewReducer is nil when partial results cannot be merged
	NewReducer ReducerFactory
}

// Reducible reports whether partial results of the component can be merged
func (d Descriptor) Reducible() bool {
	return d.NewReducer != nil
}

// Builtin returns the descriptors of every built-in analyzer
func Builtin() []Descriptor {
	return []Descriptor{
		NumberDescriptor(),
		StringDescriptor(),
		BooleanDescriptor(),
		CompletenessDescriptor(),
		PatternDescriptor(),
		ValueDistributionDescriptor(),
	}
}

func (c Context) validate(component string) error {
	if len(c.Columns) == 0 {
		return errors.New(errors.ErrorTypeValidation, "analyzer needs at least one column").
			WithDetail("component", component)
	}
	if c.Store == nil {
		return errors.New(errors.ErrorTypeValidation, "analyzer needs a row-sample store").
			WithDetail("component", component)
	}
	return nil
}

func (c Context) logger(component string) *zap.Logger {
	l := c.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return l.With(zap.String("analyzer", component))
}

// StringOption returns a string option or def when unset
func (c Context) StringOption(name, def string) string {
	v, ok := c.Options[name]
	if !ok || v == nil {
		return def
	}
	return fmt.Sprint(v)
}

// BoolOption returns a boolean option or def when unset or unparsable
func (c Context) BoolOption(name string, def bool) bool {
	switch v := c.Options[name].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// IntOption returns an integer option or def when unset or unparsable
func (c Context) IntOption(name string, def int) int {
	switch v := c.Options[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// textOf returns the string form of a non-null value
func textOf(v interface{}) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return fmt.Sprint(v), true
	}
}

// missing reports whether a value is null or blank text
func missing(v interface{}) bool {
	s, ok := textOf(v)
	return !ok || strings.TrimSpace(s) == ""
}

// annotateAll creates one annotation per name
func annotateAll(ctx context.Context, store annotation.Store, n int) ([]annotation.ID, error) {
	ids := make([]annotation.ID, n)
	for i := range ids {
		id, err := store.NewAnnotation(ctx)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// attachSamples attaches an annotated-rows drill-down when the annotation
// holds sample rows
func attachSamples(ctx context.Context, nav interface {
	AttachProducer(*result.Producer) error
}, store annotation.Store, id annotation.ID, columns ...string) error {
	p, err := result.AnnotationProducer(ctx, store, id, columns...)
	if err != nil || p == nil {
		return err
	}
	return nav.AttachProducer(p)
}
