package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/crosstab"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
	"github.com/ajitpratap0/nebula-profiler/pkg/reduce"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// Boolean analyzer measures
const (
	BooleanType = "boolean"

	MeasureTrueCount  = "True count"
	MeasureFalseCount = "False count"

	MeasureMostFrequent  = "Most frequent"
	MeasureLeastFrequent = "Least frequent"
	CombinationPrefix    = "Combination "
	ColumnFrequency      = "Frequency"

	combinationSeparator = "|"
	combinationNull      = "null"
)

var booleanMeasures = []string{MeasureRowCount, MeasureNullCount, MeasureTrueCount, MeasureFalseCount}

// BooleanDescriptor describes the boolean analyzer
func BooleanDescriptor() Descriptor {
	return Descriptor{
		Type:        BooleanType,
		Description: "True, false and null distribution of boolean columns and their value combinations",
		ResultType:  BooleanType,
		New:         NewBooleanAnalyzer,
		NewReducer:  BooleanReducer,
	}
}

// BooleanResult holds per-column statistics and, with more than one column,
// the rows of each observed value combination
type BooleanResult struct {
	stats        *crosstab.Crosstab
	combinations *result.Categorized
}

// ResultType implements result.AnalyzerResult
func (r *BooleanResult) ResultType() string {
	return BooleanType
}

// Crosstab returns the column statistics
func (r *BooleanResult) Crosstab() *crosstab.Crosstab {
	return r.stats
}

// Combinations returns the value combination buckets, or nil for a single
// column
func (r *BooleanResult) Combinations() *result.Categorized {
	return r.combinations
}

// ValueCombinations ranks the value combinations by frequency. Rows are
// "Most frequent", "Combination 1".. and "Least frequent"; columns are the
// analyzed columns holding 1, 0 or nothing for null, plus "Frequency" which
// carries the row sample drill-down.
func (r *BooleanResult) ValueCombinations(ctx context.Context) (*crosstab.Crosstab, error) {
	if r.combinations == nil {
		return nil, nil
	}
	columns := r.combinations.Columns()
	counts, err := r.combinations.Counts(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]string, 0, len(counts))
	for combination := range counts {
		ranked = append(ranked, combination)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	columnDim := crosstab.NewDimension(DimensionColumn, columns...).AddCategory(ColumnFrequency)
	ct := crosstab.MustNew(crosstab.NumberValue, columnDim, crosstab.NewDimension(DimensionMeasure))
	for i, combination := range ranked {
		var measure string
		switch {
		case i == 0:
			measure = MeasureMostFrequent
		case i == len(ranked)-1:
			measure = MeasureLeastFrequent
		default:
			measure = CombinationPrefix + strconv.Itoa(i)
		}

		nav := ct.Where(DimensionMeasure, measure)
		for c, value := range strings.Split(combination, combinationSeparator) {
			if value == combinationNull {
				continue
			}
			flag := int64(0)
			if value == "true" {
				flag = 1
			}
			if err := nav.Where(DimensionColumn, columns[c]).Put(flag, true); err != nil {
				return nil, err
			}
		}
		nav.Where(DimensionColumn, ColumnFrequency)
		if err := nav.Put(counts[combination], true); err != nil {
			return nil, err
		}
		drill, err := r.combinations.DrillDown(ctx, combination)
		if err != nil {
			return nil, err
		}
		if drill != nil {
			if err := nav.Attach(drill); err != nil {
				return nil, err
			}
		}
	}
	return ct, nil
}

type booleanColumn struct {
	name                    string
	rows, nulls             int64
	trues, falses           int64
	nullID, trueID, falseID annotation.ID
}

// BooleanAnalyzer counts boolean values per column. Text is parsed with
// strconv.ParseBool; anything unparsable counts as null.
type BooleanAnalyzer struct {
	store        annotation.Store
	columns      []*booleanColumn
	combinations *result.Categorized
}

// NewBooleanAnalyzer creates a boolean analyzer
func NewBooleanAnalyzer(ctx context.Context, c Context) (Analyzer, error) {
	if err := c.validate(BooleanType); err != nil {
		return nil, err
	}
	a := &BooleanAnalyzer{store: c.Store}
	for _, name := range c.Columns {
		ids, err := annotateAll(ctx, c.Store, 3)
		if err != nil {
			return nil, err
		}
		a.columns = append(a.columns, &booleanColumn{name: name, nullID: ids[0], trueID: ids[1], falseID: ids[2]})
	}
	if len(c.Columns) > 1 {
		a.combinations = result.NewCategorized(BooleanType, c.Store, c.Columns...)
	}
	return a, nil
}

// Process implements Analyzer
func (a *BooleanAnalyzer) Process(ctx context.Context, row models.Row) error {
	combination := make([]string, len(a.columns))
	for i, col := range a.columns {
		col.rows++
		raw, _ := row.Get(col.name)
		value, ok := parseBool(raw)

		var id annotation.ID
		switch {
		case !ok:
			col.nulls++
			id = col.nullID
			combination[i] = combinationNull
		case value:
			col.trues++
			id = col.trueID
			combination[i] = "true"
		default:
			col.falses++
			id = col.falseID
			combination[i] = "false"
		}
		if err := a.store.Annotate(ctx, id, row); err != nil {
			return err
		}
	}

	if a.combinations == nil {
		return nil
	}
	key := strings.Join(combination, combinationSeparator)
	id, ok := a.combinations.Annotation(key)
	if !ok {
		var err error
		if id, err = a.store.NewAnnotation(ctx); err != nil {
			return err
		}
		a.combinations.Register(key, id)
	}
	return a.store.Annotate(ctx, id, row)
}

// Result implements Analyzer
func (a *BooleanAnalyzer) Result(ctx context.Context) (result.AnalyzerResult, error) {
	ct := newMeasureCrosstab(booleanMeasures)
	for _, col := range a.columns {
		nav := ct.Where(DimensionColumn, col.name)
		cells := []struct {
			measure string
			count   int64
			id      annotation.ID
		}{
			{MeasureRowCount, col.rows, ""},
			{MeasureNullCount, col.nulls, col.nullID},
			{MeasureTrueCount, col.trues, col.trueID},
			{MeasureFalseCount, col.falses, col.falseID},
		}
		for _, cell := range cells {
			if err := nav.Where(DimensionMeasure, cell.measure).Put(cell.count, true); err != nil {
				return nil, err
			}
			if cell.id != "" && cell.count > 0 {
				if err := attachSamples(ctx, nav, a.store, cell.id, col.name); err != nil {
					return nil, err
				}
			}
		}
	}
	return &BooleanResult{stats: ct, combinations: a.combinations}, nil
}

// Close implements Analyzer
func (a *BooleanAnalyzer) Close() error {
	return nil
}

// BooleanReducer merges boolean results. The Column dimension must hold the
// same columns in every partial; value combinations are merged bucket by
// bucket.
func BooleanReducer(opts reduce.Options) reduce.ResultReducer {
	opts.StrictDimensions = append(append([]string(nil), opts.StrictDimensions...), DimensionColumn)
	stats := &reduce.CrosstabReducer{ResultType: BooleanType, Options: opts}

	return reduce.Adapt[*BooleanResult](reduce.Func[*BooleanResult](
		func(ctx context.Context, partials []*BooleanResult) (*BooleanResult, error) {
			tables := make([]crosstab.Result, len(partials))
			var combinations []*result.Categorized
			for i, p := range partials {
				tables[i] = p
				if p.combinations != nil {
					combinations = append(combinations, p.combinations)
				}
			}
			if len(combinations) != 0 && len(combinations) != len(partials) {
				return nil, errors.New(errors.ErrorTypeConflict, "partials disagree on the number of boolean columns")
			}

			merged, err := stats.Reduce(ctx, tables)
			if err != nil {
				return nil, err
			}
			out := &BooleanResult{stats: merged.Crosstab()}
			if len(combinations) == 0 {
				return out, nil
			}

			first := strings.Join(combinations[0].Columns(), ",")
			for _, c := range combinations[1:] {
				if got := strings.Join(c.Columns(), ","); got != first {
					return nil, errors.New(errors.ErrorTypeConflict, "partials combine different columns").
						WithDetail("expected", first).
						WithDetail("actual", got)
				}
			}
			if out.combinations, err = (reduce.CategoryReducer{}).Reduce(ctx, combinations); err != nil {
				return nil, err
			}
			return out, nil
		}))
}

func parseBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case nil:
		return false, false
	case bool:
		return b, true
	}
	if i, ok := reduce.ToInt64(v); ok {
		if i == 0 || i == 1 {
			return i == 1, true
		}
		return false, false
	}
	text, _ := textOf(v)
	parsed, err := strconv.ParseBool(strings.TrimSpace(text))
	if err != nil {
		return false, false
	}
	return parsed, true
}

// String renders the statistics and the ranked combinations
func (r *BooleanResult) String() string {
	s := r.stats.String()
	if r.combinations == nil {
		return s
	}
	combos, err := r.ValueCombinations(context.Background())
	if err != nil || combos == nil {
		return s
	}
	return fmt.Sprintf("%s\n%s", s, combos.String())
}
