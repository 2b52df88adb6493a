package result

import (
	"context"

	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
)

// AnnotatedRowsResultType is the result type of AnnotatedRows
const AnnotatedRowsResultType = "annotated_rows"

// AnnotatedRows is a drill-down result listing the sample rows of one
// annotation. It reads from the store on every call.
type AnnotatedRows struct {
	store   annotation.Store
	id      annotation.ID
	columns []string
}

// NewAnnotatedRows returns a drill-down over id
func NewAnnotatedRows(store annotation.Store, id annotation.ID, columns ...string) *AnnotatedRows {
	return &AnnotatedRows{store: store, id: id, columns: columns}
}

// NewAnnotatedRowsIfSampled returns a drill-down over id, or nil when the
// annotation holds no sample rows.
func NewAnnotatedRowsIfSampled(ctx context.Context, store annotation.Store, id annotation.ID, columns ...string) (*AnnotatedRows, error) {
	has, err := store.HasSampleRows(ctx, id)
	if err != nil || !has {
		return nil, err
	}
	return NewAnnotatedRows(store, id, columns...), nil
}

// ResultType implements AnalyzerResult
func (a *AnnotatedRows) ResultType() string {
	return AnnotatedRowsResultType
}

// AnnotationID returns the annotation the rows come from
func (a *AnnotatedRows) AnnotationID() annotation.ID {
	return a.id
}

// Columns returns the columns highlighted by the drill-down
func (a *AnnotatedRows) Columns() []string {
	return a.columns
}

// Count returns the number of rows annotated
func (a *AnnotatedRows) Count(ctx context.Context) (int64, error) {
	return a.store.Count(ctx, a.id)
}

// HasSampleRows reports whether the annotation holds any sampled row
func (a *AnnotatedRows) HasSampleRows(ctx context.Context) (bool, error) {
	return a.store.HasSampleRows(ctx, a.id)
}

// SampleRows returns the sampled rows
func (a *AnnotatedRows) SampleRows(ctx context.Context) ([]models.Row, error) {
	return a.store.SampleRows(ctx, a.id)
}

// AnnotationResolver resolves annotation IDs into AnnotatedRows
type AnnotationResolver struct {
	Store   annotation.Store
	Columns []string
}

// Resolve implements Resolver
func (r AnnotationResolver) Resolve(ctx context.Context, key string) (AnalyzerResult, error) {
	rows, err := NewAnnotatedRowsIfSampled(ctx, r.Store, annotation.ID(key), r.Columns...)
	if err != nil || rows == nil {
		return nil, err
	}
	return rows, nil
}

// AnnotationProducer returns a stored producer for id when the annotation
// has sample rows, or nil otherwise.
func AnnotationProducer(ctx context.Context, store annotation.Store, id annotation.ID, columns ...string) (*Producer, error) {
	has, err := store.HasSampleRows(ctx, id)
	if err != nil || !has {
		return nil, err
	}
	return Stored(string(id), AnnotationResolver{Store: store, Columns: columns}), nil
}
