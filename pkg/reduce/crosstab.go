package reduce

import (
	"context"
	"sort"

	"github.com/ajitpratap0/nebula-profiler/pkg/crosstab"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// LayoutPolicy decides what happens when partials disagree on the
// categories of a dimension
type LayoutPolicy int

const (
	// Union adds categories missing from the first partial, in the order
	// they are first seen
	Union LayoutPolicy = iota
	// Strict requires every partial to hold the same categories
	Strict
)

func (p LayoutPolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "union"
}

// ParseLayoutPolicy converts "union" or "strict"; empty means union
func ParseLayoutPolicy(s string) (LayoutPolicy, error) {
	switch s {
	case "", "union":
		return Union, nil
	case "strict":
		return Strict, nil
	default:
		return Union, errors.New(errors.ErrorTypeConfig, "unknown layout policy").WithDetail("policy", s)
	}
}

// Options tune MergeCrosstabs
type Options struct {
	Policy LayoutPolicy
	// StrictDimensions must match exactly whatever the policy
	StrictDimensions []string
}

func (o Options) strict(dimension string) bool {
	if o.Policy == Strict {
		return true
	}
	for _, d := range o.StrictDimensions {
		if d == dimension {
			return true
		}
	}
	return false
}

// ValueMerger combines the values one cell holds across partials. values
// holds only the non-nil values of partials that have the cell, in partial
// order, and is never empty.
type ValueMerger func(categories []string, values []interface{}) (interface{}, error)

// SumValues is the default ValueMerger
func SumValues(_ []string, values []interface{}) (interface{}, error) {
	return Sum(values...)
}

// MergeCrosstabs builds a master crosstab from the dimensions of the first
// partial, extended according to opts, and fills it cell by cell. Cells
// missing from a partial are skipped. The first partial with a non-empty
// drill-down for a cell provides the drill-down of the master cell.
func MergeCrosstabs(ctx context.Context, partials []*crosstab.Crosstab, merge ValueMerger, opts Options) (*crosstab.Crosstab, error) {
	if err := checkPartials(len(partials)); err != nil {
		return nil, err
	}
	if merge == nil {
		merge = SumValues
	}

	master, err := masterLayout(partials, opts)
	if err != nil {
		return nil, err
	}

	type group struct {
		categories []string
		values     []interface{}
		producer   *result.Producer
	}
	groups := make(map[string]*group)
	for _, p := range partials {
		for _, c := range p.Cells() {
			key := crosstab.Key(c.Categories)
			g, ok := groups[key]
			if !ok {
				g = &group{categories: c.Categories}
				groups[key] = g
			}
			if c.Value != nil {
				g.values = append(g.values, c.Value)
			}
			if g.producer == nil && c.Producer != nil {
				ok, err := nonEmpty(ctx, c.Producer)
				if err != nil {
					return nil, err
				}
				if ok {
					g.producer = c.Producer
				}
			}
		}
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return crosstab.CompareTuples(ordered[i].categories, ordered[j].categories) < 0
	})

	for _, g := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "crosstab merge interrupted")
		}
		if len(g.values) > 0 {
			merged, err := merge(g.categories, g.values)
			if err != nil {
				return nil, errors.Wrap(err, errors.TypeOf(err), "failed to merge cell values").
					WithDetail("categories", g.categories)
			}
			if err := master.Put(g.categories, merged, false); err != nil {
				return nil, err
			}
		}
		if g.producer != nil {
			if err := master.AttachResultProducer(g.categories, g.producer); err != nil {
				return nil, err
			}
		}
	}
	return master, nil
}

// sampled is implemented by drill-down results backed by row samples
type sampled interface {
	HasSampleRows(ctx context.Context) (bool, error)
}

// nonEmpty reports whether p produces a result worth drilling into: a
// result at all and, for sampled results, at least one row.
func nonEmpty(ctx context.Context, p *result.Producer) (bool, error) {
	r, err := p.Result(ctx)
	if err != nil {
		return false, err
	}
	if r == nil {
		return false, nil
	}
	if s, ok := r.(sampled); ok {
		return s.HasSampleRows(ctx)
	}
	return true, nil
}

// masterLayout creates the empty master crosstab
func masterLayout(partials []*crosstab.Crosstab, opts Options) (*crosstab.Crosstab, error) {
	first := partials[0]
	names := first.DimensionNames()
	dims := first.Dimensions()

	for i, p := range partials[1:] {
		other := p.DimensionNames()
		if len(other) != len(names) {
			return nil, errors.Newf(errors.ErrorTypeDimensionMismatch,
				"partial %d has %d dimensions, expected %d", i+1, len(other), len(names))
		}
		for j, name := range names {
			if other[j] != name {
				return nil, errors.New(errors.ErrorTypeDimensionMismatch, "partials have different dimensions").
					WithDetail("expected", name).
					WithDetail("actual", other[j])
			}
		}
		if p.ValueType() != first.ValueType() {
			return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
				"partial %d holds %s values, expected %s", i+1, p.ValueType(), first.ValueType())
		}

		for j, d := range p.Dimensions() {
			if opts.strict(d.Name()) {
				if !sameCategories(dims[j], d) {
					return nil, errors.New(errors.ErrorTypeDimensionMismatch, "partials disagree on the categories of a strict dimension").
						WithDetail("dimension", d.Name()).
						WithDetail("expected", dims[j].Categories()).
						WithDetail("actual", d.Categories())
				}
				continue
			}
			for _, c := range d.Categories() {
				dims[j].AddCategory(c)
			}
		}
	}
	return crosstab.New(first.ValueType(), dims...)
}

// sameCategories compares category sets regardless of order
func sameCategories(a, b *crosstab.Dimension) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, c := range b.Categories() {
		if !a.ContainsCategory(c) {
			return false
		}
	}
	return true
}

// Finalizer recomputes derived cells of a merged crosstab, for example
// averages from merged sums and counts
type Finalizer func(ctx context.Context, master *crosstab.Crosstab) error

// CrosstabReducer reduces crosstab-backed results with MergeCrosstabs
type CrosstabReducer struct {
	// ResultType of the merged result; empty keeps the first partial's type
	ResultType string
	Merge      ValueMerger
	Options    Options
	Finalize   Finalizer
}

// Reduce implements Reducer
func (r *CrosstabReducer) Reduce(ctx context.Context, partials []crosstab.Result) (crosstab.Result, error) {
	if err := checkPartials(len(partials)); err != nil {
		return nil, err
	}
	tables := make([]*crosstab.Crosstab, len(partials))
	for i, p := range partials {
		if p == nil || p.Crosstab() == nil {
			return nil, errors.Newf(errors.ErrorTypeValidation, "partial result %d has no crosstab", i)
		}
		tables[i] = p.Crosstab()
	}

	master, err := MergeCrosstabs(ctx, tables, r.Merge, r.Options)
	if err != nil {
		return nil, err
	}
	if r.Finalize != nil {
		if err := r.Finalize(ctx, master); err != nil {
			return nil, err
		}
	}

	resultType := r.ResultType
	if resultType == "" {
		resultType = partials[0].ResultType()
	}
	return crosstab.NewResult(resultType, master), nil
}
