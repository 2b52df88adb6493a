// Package annotation provides the row-sample store. An annotation is a named
// bucket that counts the rows recorded into it and keeps a bounded sample of
// those rows for drill-down.
package annotation

import (
	"context"

	"github.com/google/uuid"

	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
)

// DefaultMaxSampleRows is the sample cap used when none is configured
const DefaultMaxSampleRows = 20

// ID identifies an annotation within a store
type ID string

// NewID returns a random annotation ID
func NewID() ID {
	return ID(uuid.NewString())
}

// Store records annotated rows. Implementations are safe for concurrent use.
type Store interface {
	// NewAnnotation creates an empty annotation
	NewAnnotation(ctx context.Context) (ID, error)
	// Annotate counts rows against id and samples them up to the store's cap
	Annotate(ctx context.Context, id ID, rows ...models.Row) error
	// Count returns the number of rows annotated, including unsampled ones
	Count(ctx context.Context, id ID) (int64, error)
	// HasSampleRows reports whether id holds at least one sample row
	HasSampleRows(ctx context.Context, id ID) (bool, error)
	// SampleRows returns the sampled rows of id in annotation order
	SampleRows(ctx context.Context, id ID) ([]models.Row, error)
	// Transfer adds the count of from to to and appends the samples of from
	// to those of to, up to the cap. from is left unchanged.
	Transfer(ctx context.Context, from, to ID) error
	// MaxSampleRows returns the sample cap
	MaxSampleRows() int
	// Backend names the implementation for metrics and logs
	Backend() string
	Close() error
}

func notFound(id ID) error {
	return errors.New(errors.ErrorTypeNotFound, "annotation does not exist").
		WithDetail("annotation_id", string(id))
}

// appendSamples appends src to dst while dst is shorter than limit
func appendSamples(dst, src []models.Row, limit int) []models.Row {
	for _, row := range src {
		if len(dst) >= limit {
			break
		}
		dst = append(dst, row)
	}
	return dst
}
