package result

import (
	"context"

	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
)

// Categorized is a category-membership result: every category owns an
// annotation in a row-sample store holding the rows that fell into it.
// Categories keep the order in which they were registered.
type Categorized struct {
	resultType  string
	store       annotation.Store
	columns     []string
	categories  []string
	annotations map[string]annotation.ID
}

// NewCategorized creates an empty result of the given type
func NewCategorized(resultType string, store annotation.Store, columns ...string) *Categorized {
	return &Categorized{
		resultType:  resultType,
		store:       store,
		columns:     columns,
		annotations: make(map[string]annotation.ID),
	}
}

// ResultType implements AnalyzerResult
func (c *Categorized) ResultType() string {
	return c.resultType
}

// Store returns the row-sample store holding the annotations
func (c *Categorized) Store() annotation.Store {
	return c.store
}

// Columns returns the profiled columns
func (c *Categorized) Columns() []string {
	return c.columns
}

// Register binds category to id, replacing any previous binding
func (c *Categorized) Register(category string, id annotation.ID) {
	if _, ok := c.annotations[category]; !ok {
		c.categories = append(c.categories, category)
	}
	c.annotations[category] = id
}

// Categories returns the categories in registration order
func (c *Categorized) Categories() []string {
	out := make([]string, len(c.categories))
	copy(out, c.categories)
	return out
}

// Annotation returns the annotation of category
func (c *Categorized) Annotation(category string) (annotation.ID, bool) {
	id, ok := c.annotations[category]
	return id, ok
}

// Count returns the row count of category; unknown categories count 0
func (c *Categorized) Count(ctx context.Context, category string) (int64, error) {
	id, ok := c.annotations[category]
	if !ok {
		return 0, nil
	}
	return c.store.Count(ctx, id)
}

// Counts returns the row count of every category
func (c *Categorized) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(c.categories))
	for _, category := range c.categories {
		n, err := c.store.Count(ctx, c.annotations[category])
		if err != nil {
			return nil, err
		}
		counts[category] = n
	}
	return counts, nil
}

// SampleRows returns the sample rows of category
func (c *Categorized) SampleRows(ctx context.Context, category string) ([]models.Row, error) {
	id, ok := c.annotations[category]
	if !ok {
		return nil, nil
	}
	return c.store.SampleRows(ctx, id)
}

// DrillDown returns the annotated rows of category, or nil without samples
func (c *Categorized) DrillDown(ctx context.Context, category string) (*AnnotatedRows, error) {
	id, ok := c.annotations[category]
	if !ok {
		return nil, nil
	}
	return NewAnnotatedRowsIfSampled(ctx, c.store, id, c.columns...)
}
