package partition

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/compression"
	"github.com/ajitpratap0/nebula-profiler/pkg/config"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/metrics"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
)

// OpenStore opens the row-sample store selected by cfg. Rows written to it
// are counted on collector, which may be nil.
func OpenStore(cfg config.SamplingConfig, collector *metrics.Collector, log *zap.Logger) (annotation.Store, error) {
	maxSample := cfg.MaxSampleRows
	if maxSample <= 0 {
		maxSample = annotation.DefaultMaxSampleRows
	}

	var store annotation.Store
	switch cfg.Backend {
	case "", config.BackendMemory:
		store = annotation.NewMemoryStore(maxSample)
	case config.BackendBadger:
		algorithm, err := compression.ParseAlgorithm(cfg.Compression)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid sample compression")
		}
		bs, err := annotation.OpenBadger(annotation.BadgerConfig{
			Path:          cfg.BadgerPath,
			InMemory:      !cfg.IsPersistent(),
			MaxSampleRows: maxSample,
			Compression:   algorithm,
			Logger:        log,
		})
		if err != nil {
			return nil, err
		}
		store = bs
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "unknown sampling backend").
			WithDetail("backend", cfg.Backend)
	}

	if collector == nil {
		return store, nil
	}
	return &instrumentedStore{Store: store, metrics: collector}, nil
}

// instrumentedStore counts annotated rows per backend
type instrumentedStore struct {
	annotation.Store
	metrics *metrics.Collector
}

func (s *instrumentedStore) Annotate(ctx context.Context, id annotation.ID, rows ...models.Row) error {
	if err := s.Store.Annotate(ctx, id, rows...); err != nil {
		return err
	}
	s.metrics.RecordAnnotated(s.Store.Backend(), len(rows))
	return nil
}
