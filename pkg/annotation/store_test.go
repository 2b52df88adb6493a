package annotation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-profiler/pkg/compression"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
	"github.com/ajitpratap0/nebula-profiler/pkg/testutil"
)

func row(id string) models.Row {
	r := models.NewRow(id)
	r.Values["name"] = "row-" + id
	return r
}

func rowIDs(rows []models.Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

// stores returns every Store implementation configured with the given cap.
func stores(t *testing.T, maxSample int) map[string]Store {
	t.Helper()

	cfg := InMemoryBadgerConfig()
	cfg.MaxSampleRows = maxSample
	cfg.Logger = testutil.TestLogger(t)
	bs, err := OpenBadger(cfg)
	require.NoError(t, err)

	return map[string]Store{
		"memory": NewMemoryStore(maxSample),
		"badger": bs,
	}
}

func TestAnnotateAndCount(t *testing.T) {
	for name, store := range stores(t, 3) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()

			id, err := store.NewAnnotation(ctx)
			require.NoError(t, err)

			has, err := store.HasSampleRows(ctx, id)
			require.NoError(t, err)
			assert.False(t, has)

			require.NoError(t, store.Annotate(ctx, id, row("1"), row("2")))
			require.NoError(t, store.Annotate(ctx, id, row("3"), row("4")))

			count, err := store.Count(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, int64(4), count)

			rows, err := store.SampleRows(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, []string{"1", "2", "3"}, rowIDs(rows))
			assert.Equal(t, "row-1", rows[0].Values["name"])

			has, err = store.HasSampleRows(ctx, id)
			require.NoError(t, err)
			assert.True(t, has)
			assert.Equal(t, 3, store.MaxSampleRows())
			assert.Equal(t, name, store.Backend())
		})
	}
}

func TestTransfer(t *testing.T) {
	for name, store := range stores(t, 4) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()

			to, err := store.NewAnnotation(ctx)
			require.NoError(t, err)
			from, err := store.NewAnnotation(ctx)
			require.NoError(t, err)

			require.NoError(t, store.Annotate(ctx, to, row("a1"), row("a2")))
			require.NoError(t, store.Annotate(ctx, from, row("b1"), row("b2"), row("b3")))

			require.NoError(t, store.Transfer(ctx, from, to))

			count, err := store.Count(ctx, to)
			require.NoError(t, err)
			assert.Equal(t, int64(5), count)

			rows, err := store.SampleRows(ctx, to)
			require.NoError(t, err)
			assert.Equal(t, []string{"a1", "a2", "b1", "b2"}, rowIDs(rows))

			// the source is untouched
			count, err = store.Count(ctx, from)
			require.NoError(t, err)
			assert.Equal(t, int64(3), count)

			// self transfer is a no-op
			require.NoError(t, store.Transfer(ctx, to, to))
			count, err = store.Count(ctx, to)
			require.NoError(t, err)
			assert.Equal(t, int64(5), count)
		})
	}
}

func TestSampleRowsKeepValueTypes(t *testing.T) {
	typed := models.NewRow("42")
	typed.Values["big"] = int64(9007199254740993)
	typed.Values["negative"] = int64(-17)
	typed.Values["whole"] = 2.0
	typed.Values["ratio"] = -0.5
	typed.Values["active"] = true
	typed.Values["name"] = "Émile"
	typed.Values["email"] = nil

	for name, store := range stores(t, 3) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()

			id, err := store.NewAnnotation(ctx)
			require.NoError(t, err)
			require.NoError(t, store.Annotate(ctx, id, typed))

			rows, err := store.SampleRows(ctx, id)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, typed, rows[0])
		})
	}
}

func TestUnknownAnnotation(t *testing.T) {
	for name, store := range stores(t, 2) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()
			missing := ID("does-not-exist")

			_, err := store.Count(ctx, missing)
			assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

			err = store.Annotate(ctx, missing, row("1"))
			assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

			known, err := store.NewAnnotation(ctx)
			require.NoError(t, err)
			err = store.Transfer(ctx, missing, known)
			assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

			_, err = store.SampleRows(ctx, missing)
			assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
		})
	}
}

func TestConcurrentAnnotate(t *testing.T) {
	for name, store := range stores(t, 5) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()

			id, err := store.NewAnnotation(ctx)
			require.NoError(t, err)

			done := make(chan error, 10)
			for i := 0; i < 10; i++ {
				go func(i int) {
					done <- store.Annotate(ctx, id, row(fmt.Sprint(i)))
				}(i)
			}
			for i := 0; i < 10; i++ {
				require.NoError(t, <-done)
			}

			count, err := store.Count(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, int64(10), count)

			rows, err := store.SampleRows(ctx, id)
			require.NoError(t, err)
			assert.Len(t, rows, 5)
		})
	}
}

func TestBadgerCompressionAlgorithms(t *testing.T) {
	for _, alg := range []compression.Algorithm{compression.None, compression.Snappy, compression.Zstd, compression.S2} {
		t.Run(string(alg), func(t *testing.T) {
			cfg := InMemoryBadgerConfig()
			cfg.Compression = alg
			store, err := OpenBadger(cfg)
			require.NoError(t, err)
			defer store.Close()

			ctx := context.Background()
			id, err := store.NewAnnotation(ctx)
			require.NoError(t, err)
			require.NoError(t, store.Annotate(ctx, id, row("x")))

			rows, err := store.SampleRows(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, []string{"x"}, rowIDs(rows))
		})
	}
}

func TestBadgerPersistentRequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := BadgerConfig{Path: dir, MaxSampleRows: 2, Compression: compression.LZ4}
	ctx := context.Background()

	store, err := OpenBadger(cfg)
	require.NoError(t, err)
	id, err := store.NewAnnotation(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Annotate(ctx, id, row("p1"), row("p2"), row("p3")))
	require.NoError(t, store.Close())

	reopened, err := OpenBadger(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	rows, err := reopened.SampleRows(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, rowIDs(rows))
}

func TestMemoryStoreDefaultCap(t *testing.T) {
	assert.Equal(t, DefaultMaxSampleRows, NewMemoryStore(0).MaxSampleRows())
}
