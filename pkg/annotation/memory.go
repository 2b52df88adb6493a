package annotation

import (
	"context"
	"sync"

	"github.com/ajitpratap0/nebula-profiler/pkg/models"
)

type memoryEntry struct {
	count int64
	rows  []models.Row
}

// MemoryStore keeps annotations in process memory
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[ID]*memoryEntry
	maxSample int
}

// NewMemoryStore creates an in-memory store. A non-positive maxSampleRows
// selects DefaultMaxSampleRows.
func NewMemoryStore(maxSampleRows int) *MemoryStore {
	if maxSampleRows <= 0 {
		maxSampleRows = DefaultMaxSampleRows
	}
	return &MemoryStore{
		entries:   make(map[ID]*memoryEntry),
		maxSample: maxSampleRows,
	}
}

// NewAnnotation creates an empty annotation
func (s *MemoryStore) NewAnnotation(_ context.Context) (ID, error) {
	id := NewID()
	s.mu.Lock()
	s.entries[id] = &memoryEntry{}
	s.mu.Unlock()
	return id, nil
}

// Annotate counts and samples rows
func (s *MemoryStore) Annotate(_ context.Context, id ID, rows ...models.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return notFound(id)
	}
	e.count += int64(len(rows))
	e.rows = appendSamples(e.rows, rows, s.maxSample)
	return nil
}

// Count returns the number of annotated rows
func (s *MemoryStore) Count(_ context.Context, id ID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return 0, notFound(id)
	}
	return e.count, nil
}

// HasSampleRows reports whether samples exist
func (s *MemoryStore) HasSampleRows(_ context.Context, id ID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return false, notFound(id)
	}
	return len(e.rows) > 0, nil
}

// SampleRows returns a copy of the sampled rows
func (s *MemoryStore) SampleRows(_ context.Context, id ID) ([]models.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, notFound(id)
	}
	rows := make([]models.Row, len(e.rows))
	copy(rows, e.rows)
	return rows, nil
}

// Transfer merges from into to
func (s *MemoryStore) Transfer(_ context.Context, from, to ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.entries[from]
	if !ok {
		return notFound(from)
	}
	dst, ok := s.entries[to]
	if !ok {
		return notFound(to)
	}
	if from == to {
		return nil
	}
	dst.count += src.count
	dst.rows = appendSamples(dst.rows, src.rows, s.maxSample)
	return nil
}

// MaxSampleRows returns the sample cap
func (s *MemoryStore) MaxSampleRows() int { return s.maxSample }

// Backend returns "memory"
func (s *MemoryStore) Backend() string { return "memory" }

// Close releases all annotations
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.entries = make(map[ID]*memoryEntry)
	s.mu.Unlock()
	return nil
}
