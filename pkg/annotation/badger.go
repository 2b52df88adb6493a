package annotation

import (
	"context"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-profiler/pkg/compression"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
)

// BadgerConfig holds configuration for a BadgerDB backed store.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	SyncWrites bool

	MaxSampleRows int

	// Compression is applied to the encoded sample rows
	Compression compression.Algorithm

	// Logger receives BadgerDB's internal logs. If nil they are discarded.
	Logger *zap.Logger
}

// InMemoryBadgerConfig returns configuration for an in-memory database
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory:      true,
		MaxSampleRows: DefaultMaxSampleRows,
		Compression:   compression.LZ4,
	}
}

// badgerLogger adapts zap to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// BadgerStore keeps annotations in BadgerDB. Each annotation is stored as two
// keys: the row count as a big-endian uint64 and the sample rows as
// compressed JSON.
type BadgerStore struct {
	db         *badger.DB
	compressor compression.Compressor
	maxSample  int

	// serializes read-modify-write transactions so they never conflict
	mu sync.Mutex
}

// OpenBadger opens a BadgerDB store with the given configuration.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "path is required for persistent sample store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create sample store directory").
				WithDetail("path", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	comp, err := compression.NewCompressor(&compression.Config{Algorithm: cfg.Compression, Level: compression.Fastest})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid sample store compression")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open badger database")
	}

	maxSample := cfg.MaxSampleRows
	if maxSample <= 0 {
		maxSample = DefaultMaxSampleRows
	}

	return &BadgerStore{db: db, compressor: comp, maxSample: maxSample}, nil
}

func countKey(id ID) []byte { return []byte(fmt.Sprintf("ann/%s/count", id)) }
func rowsKey(id ID) []byte  { return []byte(fmt.Sprintf("ann/%s/rows", id)) }

// NewAnnotation creates an empty annotation
func (s *BadgerStore) NewAnnotation(_ context.Context) (ID, error) {
	id := NewID()
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(countKey(id), encodeCount(0))
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeStorage, "failed to create annotation")
	}
	return id, nil
}

// Annotate counts and samples rows
func (s *BadgerStore) Annotate(_ context.Context, id ID, rows ...models.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		count, err := s.readCount(txn, id)
		if err != nil {
			return err
		}
		samples, err := s.readRows(txn, id)
		if err != nil {
			return err
		}
		return s.write(txn, id, count+int64(len(rows)), samples, rows)
	})
}

// Count returns the number of annotated rows
func (s *BadgerStore) Count(_ context.Context, id ID) (int64, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		count, err = s.readCount(txn, id)
		return err
	})
	return count, err
}

// HasSampleRows reports whether samples exist
func (s *BadgerStore) HasSampleRows(ctx context.Context, id ID) (bool, error) {
	rows, err := s.SampleRows(ctx, id)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// SampleRows returns the sampled rows
func (s *BadgerStore) SampleRows(_ context.Context, id ID) ([]models.Row, error) {
	var rows []models.Row
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := s.readCount(txn, id); err != nil {
			return err
		}
		var err error
		rows, err = s.readRows(txn, id)
		return err
	})
	return rows, err
}

// Transfer merges from into to
func (s *BadgerStore) Transfer(_ context.Context, from, to ID) error {
	if from == to {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		srcCount, err := s.readCount(txn, from)
		if err != nil {
			return err
		}
		srcRows, err := s.readRows(txn, from)
		if err != nil {
			return err
		}
		dstCount, err := s.readCount(txn, to)
		if err != nil {
			return err
		}
		dstRows, err := s.readRows(txn, to)
		if err != nil {
			return err
		}
		return s.write(txn, to, dstCount+srcCount, dstRows, srcRows)
	})
}

// MaxSampleRows returns the sample cap
func (s *BadgerStore) MaxSampleRows() int { return s.maxSample }

// Backend returns "badger"
func (s *BadgerStore) Backend() string { return "badger" }

// Close closes the database
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to close badger database")
	}
	return nil
}

func (s *BadgerStore) readCount(txn *badger.Txn, id ID) (int64, error) {
	item, err := txn.Get(countKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return 0, notFound(id)
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read annotation count")
	}
	var count int64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return errors.New(errors.ErrorTypeStorage, "corrupt annotation count").
				WithDetail("annotation_id", string(id))
		}
		count = int64(binary.BigEndian.Uint64(val)) //nolint:gosec // counts are never negative
		return nil
	})
	return count, err
}

func (s *BadgerStore) readRows(txn *badger.Txn, id ID) ([]models.Row, error) {
	item, err := txn.Get(rowsKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read sample rows")
	}

	packed, err := item.ValueCopy(nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read sample rows")
	}
	data, err := s.compressor.Decompress(packed)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to decompress sample rows")
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to decode sample rows")
	}
	return rows, nil
}

// write stores count and the samples of existing followed by added, capped
func (s *BadgerStore) write(txn *badger.Txn, id ID, count int64, existing, added []models.Row) error {
	if err := txn.Set(countKey(id), encodeCount(count)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write annotation count")
	}

	if len(existing) >= s.maxSample || len(added) == 0 {
		return nil
	}
	samples := appendSamples(existing, added, s.maxSample)

	data, err := encodeRows(samples)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to encode sample rows")
	}
	packed, err := s.compressor.Compress(data)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to compress sample rows")
	}
	if err := txn.Set(rowsKey(id), packed); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write sample rows")
	}
	return nil
}

func encodeCount(n int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n)) //nolint:gosec // counts are never negative
	return buf
}
