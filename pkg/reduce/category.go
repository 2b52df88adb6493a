package reduce

import (
	"context"

	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// CategoryReducer merges category-membership results. Every category of
// the merged result gets a fresh annotation into which the annotations of
// all partials are transferred, so counts add up and samples accumulate up
// to the store's cap. Partials are left unchanged.
type CategoryReducer struct{}

// Reduce implements Reducer
func (CategoryReducer) Reduce(ctx context.Context, partials []*result.Categorized) (*result.Categorized, error) {
	if err := checkPartials(len(partials)); err != nil {
		return nil, err
	}
	first := partials[0]
	store := first.Store()
	master := result.NewCategorized(first.ResultType(), store, first.Columns()...)

	for i, p := range partials {
		if p.Store() != store {
			return nil, errors.Newf(errors.ErrorTypeConflict, "partial %d uses a different row-sample store", i)
		}
		for _, category := range p.Categories() {
			from, _ := p.Annotation(category)
			to, seen := master.Annotation(category)
			if !seen {
				var err error
				to, err = store.NewAnnotation(ctx)
				if err != nil {
					return nil, err
				}
				master.Register(category, to)
			}
			if err := store.Transfer(ctx, from, to); err != nil {
				return nil, errors.Wrap(err, errors.TypeOf(err), "failed to merge category").
					WithDetail("category", category)
			}
		}
	}
	return master, nil
}
