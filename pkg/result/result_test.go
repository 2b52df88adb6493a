package result

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
)

type textResult string

func (t textResult) ResultType() string { return "text" }

func TestInlineProducer(t *testing.T) {
	p := Inline(textResult("hello"))
	require.NotNil(t, p)
	assert.True(t, p.IsInline())

	r, err := p.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, textResult("hello"), r)

	assert.Nil(t, Inline(nil))

	var none *Producer
	r, err = none.Result(context.Background())
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestStoredProducer(t *testing.T) {
	calls := 0
	resolver := ResolverFunc(func(_ context.Context, key string) (AnalyzerResult, error) {
		calls++
		return textResult("resolved " + key), nil
	})

	p := Stored("k1", resolver)
	assert.False(t, p.IsInline())
	assert.Equal(t, "k1", p.Key())
	assert.Zero(t, calls)

	r, err := p.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, textResult("resolved k1"), r)
	assert.Equal(t, 1, calls)

	_, err = Stored("k2", nil).Result(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestFutureAwait(t *testing.T) {
	f := NewFuture()
	assert.False(t, f.IsReady())
	assert.Equal(t, FutureResultType, f.ResultType())

	go func() {
		time.Sleep(5 * time.Millisecond)
		f.Complete(textResult("late"), nil)
	}()

	r, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, textResult("late"), r)
	assert.True(t, f.IsReady())

	// later completions are ignored
	f.Complete(textResult("ignored"), nil)
	r, _ = f.Await(context.Background())
	assert.Equal(t, textResult("late"), r)
}

func TestFutureAwaitCancelled(t *testing.T) {
	f := NewFuture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Await(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
}

func TestResolveNestedFutures(t *testing.T) {
	inner := Go(func() (AnalyzerResult, error) { return textResult("deep"), nil })
	outer := Completed(inner)

	r, err := Resolve(context.Background(), outer)
	require.NoError(t, err)
	assert.Equal(t, textResult("deep"), r)

	r, err = Resolve(context.Background(), textResult("plain"))
	require.NoError(t, err)
	assert.Equal(t, textResult("plain"), r)

	failing := Go(func() (AnalyzerResult, error) {
		return nil, errors.New(errors.ErrorTypeData, "analyzer failed")
	})
	_, err = Resolve(context.Background(), failing)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestProducerAwaitsInlineFuture(t *testing.T) {
	p := Inline(Completed(textResult("from future")))
	r, err := p.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, textResult("from future"), r)
}

func TestAnnotatedRowsOnlyWhenSampled(t *testing.T) {
	ctx := context.Background()
	store := annotation.NewMemoryStore(5)

	empty, err := store.NewAnnotation(ctx)
	require.NoError(t, err)
	rows, err := NewAnnotatedRowsIfSampled(ctx, store, empty, "age")
	require.NoError(t, err)
	assert.Nil(t, rows)

	p, err := AnnotationProducer(ctx, store, empty, "age")
	require.NoError(t, err)
	assert.Nil(t, p)

	filled, err := store.NewAnnotation(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Annotate(ctx, filled, models.NewRow("7")))

	p, err = AnnotationProducer(ctx, store, filled, "age")
	require.NoError(t, err)
	require.NotNil(t, p)

	r, err := p.Result(ctx)
	require.NoError(t, err)
	annotated, ok := r.(*AnnotatedRows)
	require.True(t, ok)
	assert.Equal(t, filled, annotated.AnnotationID())
	assert.Equal(t, []string{"age"}, annotated.Columns())

	sample, err := annotated.SampleRows(ctx)
	require.NoError(t, err)
	require.Len(t, sample, 1)
	assert.Equal(t, "7", sample[0].ID)

	count, err := annotated.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCategorized(t *testing.T) {
	ctx := context.Background()
	store := annotation.NewMemoryStore(5)
	res := NewCategorized("completeness", store, "name")

	valid, err := store.NewAnnotation(ctx)
	require.NoError(t, err)
	invalid, err := store.NewAnnotation(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Annotate(ctx, valid, models.NewRow("1"), models.NewRow("2")))

	res.Register("VALID", valid)
	res.Register("INVALID", invalid)
	res.Register("VALID", valid)

	assert.Equal(t, "completeness", res.ResultType())
	assert.Equal(t, []string{"VALID", "INVALID"}, res.Categories())

	counts, err := res.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"VALID": 2, "INVALID": 0}, counts)

	n, err := res.Count(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.Zero(t, n)

	drill, err := res.DrillDown(ctx, "VALID")
	require.NoError(t, err)
	require.NotNil(t, drill)

	drill, err = res.DrillDown(ctx, "INVALID")
	require.NoError(t, err)
	assert.Nil(t, drill)
}
