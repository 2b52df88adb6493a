package analyzer

import (
	"context"
	"sort"

	"github.com/ajitpratap0/nebula-profiler/pkg/crosstab"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
	"github.com/ajitpratap0/nebula-profiler/pkg/reduce"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// Value distribution constants
const (
	ValueDistributionType = "value_distribution"

	// OptionGroupColumn splits the distribution by the values of another
	// column
	OptionGroupColumn = "group_column"
	// OptionTopValues bounds the values listed as top values
	OptionTopValues  = "top_values"
	DefaultTopValues = 10

	DimensionGroup = "Group"

	MeasureDistinctCount = "Distinct count"
	MeasureUniqueCount   = "Unique count"

	// NullGroup names the group of rows whose group column is null or empty
	NullGroup = "<null>"
)

// ValueDistributionDescriptor describes the value distribution analyzer. It
// profiles one column per component.
func ValueDistributionDescriptor() Descriptor {
	return Descriptor{
		Type:        ValueDistributionType,
		Description: "Counts the occurrences of every value of a column, optionally per group",
		ResultType:  ValueDistributionType,
		MaxColumns:  1,
		New:         NewValueDistributionAnalyzer,
		NewReducer:  ValueDistributionReducer,
	}
}

// ValueCount is the number of occurrences of one value
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// ValueGroup holds the value counts of one group
type ValueGroup struct {
	name   string
	counts map[string]int64
	nulls  int64
	total  int64
}

func newValueGroup(name string) *ValueGroup {
	return &ValueGroup{name: name, counts: make(map[string]int64)}
}

// Name returns the group name; ungrouped distributions use the column name
func (g *ValueGroup) Name() string { return g.name }

// Total returns the number of rows in the group, nulls included
func (g *ValueGroup) Total() int64 { return g.total }

// Nulls returns the number of null values
func (g *ValueGroup) Nulls() int64 { return g.nulls }

// Count returns the occurrences of value
func (g *ValueGroup) Count(value string) int64 { return g.counts[value] }

// Distinct returns the number of different non-null values
func (g *ValueGroup) Distinct() int { return len(g.counts) }

// UniqueValues returns the values occurring exactly once, sorted
func (g *ValueGroup) UniqueValues() []string {
	var out []string
	for v, n := range g.counts {
		if n == 1 {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// TopValues returns up to n values by descending count, ties by value. A
// non-positive n returns every value.
func (g *ValueGroup) TopValues(n int) []ValueCount {
	out := make([]ValueCount, 0, len(g.counts))
	for v, c := range g.counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (g *ValueGroup) add(other *ValueGroup) {
	for v, n := range other.counts {
		g.counts[v] += n
	}
	g.nulls += other.nulls
	g.total += other.total
}

// ValueDistributionResult holds the value counts of a column per group
type ValueDistributionResult struct {
	column      string
	groupColumn string
	topValues   int
	groups      map[string]*ValueGroup
}

func newValueDistributionResult(column, groupColumn string, topValues int) *ValueDistributionResult {
	return &ValueDistributionResult{
		column:      column,
		groupColumn: groupColumn,
		topValues:   topValues,
		groups:      make(map[string]*ValueGroup),
	}
}

// ResultType implements AnalyzerResult
func (r *ValueDistributionResult) ResultType() string { return ValueDistributionType }

// Column returns the profiled column
func (r *ValueDistributionResult) Column() string { return r.column }

// GroupColumn returns the grouping column, or "" when ungrouped
func (r *ValueDistributionResult) GroupColumn() string { return r.groupColumn }

// TopValues returns the configured number of top values
func (r *ValueDistributionResult) TopValues() int { return r.topValues }

// Groups returns the group names, sorted
func (r *ValueDistributionResult) Groups() []string {
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Group returns the named group
func (r *ValueDistributionResult) Group(name string) (*ValueGroup, bool) {
	g, ok := r.groups[name]
	return g, ok
}

func (r *ValueDistributionResult) group(name string) *ValueGroup {
	g, ok := r.groups[name]
	if !ok {
		g = newValueGroup(name)
		r.groups[name] = g
	}
	return g
}

// Crosstab summarizes every group as Group x Measure counts
func (r *ValueDistributionResult) Crosstab() *crosstab.Crosstab {
	ct := crosstab.MustNew(crosstab.NumberValue,
		crosstab.NewDimension(DimensionGroup),
		crosstab.NewDimension(DimensionMeasure, MeasureRowCount, MeasureNullCount, MeasureDistinctCount, MeasureUniqueCount))
	for _, name := range r.Groups() {
		g := r.groups[name]
		nav := ct.Where(DimensionGroup, name)
		// categories are valid by construction
		_ = nav.Where(DimensionMeasure, MeasureRowCount).Put(g.total, true)
		_ = nav.Where(DimensionMeasure, MeasureNullCount).Put(g.nulls, true)
		_ = nav.Where(DimensionMeasure, MeasureDistinctCount).Put(int64(g.Distinct()), true)
		_ = nav.Where(DimensionMeasure, MeasureUniqueCount).Put(int64(len(g.UniqueValues())), true)
	}
	return ct
}

// ValueDistributionAnalyzer counts values per group
type ValueDistributionAnalyzer struct {
	res *ValueDistributionResult
}

// NewValueDistributionAnalyzer creates a value distribution analyzer
func NewValueDistributionAnalyzer(_ context.Context, c Context) (Analyzer, error) {
	if err := c.validate(ValueDistributionType); err != nil {
		return nil, err
	}
	if len(c.Columns) != 1 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "value distribution analyzer takes one column, got %d", len(c.Columns))
	}
	top := c.IntOption(OptionTopValues, DefaultTopValues)
	if top < 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "top values must not be negative").
			WithDetail(OptionTopValues, top)
	}
	return &ValueDistributionAnalyzer{
		res: newValueDistributionResult(c.Columns[0], c.StringOption(OptionGroupColumn, ""), top),
	}, nil
}

// Process implements Analyzer
func (a *ValueDistributionAnalyzer) Process(_ context.Context, row models.Row) error {
	name := a.res.column
	if a.res.groupColumn != "" {
		gv, _ := row.Get(a.res.groupColumn)
		name = NullGroup
		if text, ok := textOf(gv); ok && text != "" {
			name = text
		}
	}

	g := a.res.group(name)
	g.total++
	v, _ := row.Get(a.res.column)
	text, ok := textOf(v)
	if !ok {
		g.nulls++
		return nil
	}
	g.counts[text]++
	return nil
}

// Result implements Analyzer
func (a *ValueDistributionAnalyzer) Result(context.Context) (result.AnalyzerResult, error) {
	return a.res, nil
}

// Close implements Analyzer
func (a *ValueDistributionAnalyzer) Close() error {
	return nil
}

// ValueDistributionReducer sums the value counts group by group. Unique
// and distinct values follow from the merged counts, so a value unique in
// two partials is not unique in the merged result.
func ValueDistributionReducer(reduce.Options) reduce.ResultReducer {
	return reduce.Adapt[*ValueDistributionResult](reduce.Func[*ValueDistributionResult](
		func(ctx context.Context, partials []*ValueDistributionResult) (*ValueDistributionResult, error) {
			if len(partials) == 0 {
				return nil, errors.New(errors.ErrorTypeValidation, "nothing to reduce: no partial results")
			}
			first := partials[0]
			out := newValueDistributionResult(first.column, first.groupColumn, first.topValues)
			for _, p := range partials {
				if p.column != first.column || p.groupColumn != first.groupColumn {
					return nil, errors.New(errors.ErrorTypeConflict, "partials distribute different columns").
						WithDetail("expected", first.column+"/"+first.groupColumn).
						WithDetail("actual", p.column+"/"+p.groupColumn)
				}
				if err := ctx.Err(); err != nil {
					return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "value distribution merge interrupted")
				}
				for name, g := range p.groups {
					out.group(name).add(g)
				}
			}
			return out, nil
		}))
}
