package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/crosstab"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
	"github.com/ajitpratap0/nebula-profiler/pkg/reduce"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
	"github.com/ajitpratap0/nebula-profiler/pkg/testutil"
)

// run feeds every part to a fresh analyzer and returns the resolved partial
// results
func run(t *testing.T, d Descriptor, c Context, parts ...[]models.Row) []result.AnalyzerResult {
	t.Helper()
	ctx := testutil.TestContext(t)
	if c.Store == nil {
		c.Store = annotation.NewMemoryStore(10)
	}
	c.Logger = testutil.TestLogger(t)

	out := make([]result.AnalyzerResult, 0, len(parts))
	for _, rows := range parts {
		a, err := d.New(ctx, c)
		require.NoError(t, err)
		for _, row := range rows {
			require.NoError(t, a.Process(ctx, row))
		}
		r, err := a.Result(ctx)
		require.NoError(t, err)
		r, err = result.Resolve(ctx, r)
		require.NoError(t, err)
		require.NoError(t, a.Close())
		out = append(out, r)
	}
	return out
}

func merge(t *testing.T, d Descriptor, partials []result.AnalyzerResult) result.AnalyzerResult {
	t.Helper()
	require.True(t, d.Reducible())
	merged, err := d.NewReducer(reduce.Options{}).Reduce(context.Background(), partials)
	require.NoError(t, err)
	return merged
}

func values(ct *crosstab.Crosstab) map[string]interface{} {
	out := map[string]interface{}{}
	for _, c := range ct.Cells() {
		if c.Value != nil {
			out[c.Categories[0]+"/"+c.Categories[1]] = c.Value
		}
	}
	return out
}

func tableOf(t *testing.T, r result.AnalyzerResult) *crosstab.Crosstab {
	t.Helper()
	ct, ok := r.(crosstab.Result)
	require.True(t, ok, "result %T has no crosstab", r)
	return ct.Crosstab()
}

func sampleIDs(t *testing.T, p *result.Producer) []string {
	t.Helper()
	require.NotNil(t, p)
	r, err := p.Result(context.Background())
	require.NoError(t, err)
	rows, ok := r.(*result.AnnotatedRows)
	require.True(t, ok)
	sample, err := rows.SampleRows(context.Background())
	require.NoError(t, err)
	ids := make([]string, len(sample))
	for i, row := range sample {
		ids[i] = row.ID
	}
	return ids
}

func TestBuiltin(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range Builtin() {
		assert.False(t, seen[d.Type], "duplicate type %s", d.Type)
		seen[d.Type] = true
		assert.NotNil(t, d.New)
		assert.True(t, d.Reducible())
		assert.NotEmpty(t, d.ResultType)
	}
	assert.Len(t, seen, 6)
	assert.False(t, Descriptor{Type: "x"}.Reducible())
}

func TestContextOptions(t *testing.T) {
	c := Context{Options: map[string]interface{}{
		"mode":   "all",
		"flag":   "true",
		"strict": true,
		"limit":  3,
		"text":   "7",
		"bad":    "nope",
	}}
	assert.Equal(t, "all", c.StringOption("mode", "any"))
	assert.Equal(t, "any", c.StringOption("missing", "any"))
	assert.True(t, c.BoolOption("flag", false))
	assert.True(t, c.BoolOption("strict", false))
	assert.True(t, c.BoolOption("bad", true))
	assert.Equal(t, 3, c.IntOption("limit", 0))
	assert.Equal(t, 7, c.IntOption("text", 0))
	assert.Equal(t, 9, c.IntOption("bad", 9))
}

func TestAnalyzerRequiresColumnsAndStore(t *testing.T) {
	for _, d := range Builtin() {
		t.Run(d.Type, func(t *testing.T) {
			_, err := d.New(context.Background(), Context{Store: annotation.NewMemoryStore(1)})
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

			_, err = d.New(context.Background(), Context{Columns: []string{"a"}})
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		})
	}
}

var numberRows = testutil.Rows([]string{"age"},
	[]interface{}{10},
	[]interface{}{"20"},
	[]interface{}{nil},
	[]interface{}{"x"},
	[]interface{}{2.5},
	[]interface{}{"7.25"},
	[]interface{}{"  "},
	[]interface{}{-3},
)

func TestNumberAnalyzer(t *testing.T) {
	r := run(t, NumberDescriptor(), Context{Columns: []string{"age"}}, numberRows)[0]
	assert.Equal(t, NumberType, r.ResultType())
	ct := tableOf(t, r)

	got := values(ct)
	assert.Equal(t, int64(8), got["age/Row count"])
	assert.Equal(t, int64(3), got["age/Null count"])
	assert.Equal(t, int64(20), got["age/Highest value"])
	assert.Equal(t, int64(-3), got["age/Lowest value"])
	assert.Equal(t, 36.75, got["age/Sum"])
	assert.Equal(t, 567.8125, got["age/Sum of squares"])
	assert.InDelta(t, 7.35, got["age/Mean"], 1e-9)

	// sample variance of 10, 20, 2.5, 7.25, -3
	assert.InDelta(t, 74.425, got["age/Variance"], 1e-9)
	assert.InDelta(t, 8.626992523, got["age/Standard deviation"], 1e-6)

	p, err := ct.Where(DimensionColumn, "age").Where(DimensionMeasure, MeasureNullCount).Explore()
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4", "7"}, sampleIDs(t, p))
}

func TestNumberAnalyzerIntegerSums(t *testing.T) {
	rows := testutil.Rows([]string{"n"}, []interface{}{1}, []interface{}{int64(2)}, []interface{}{"3"})
	got := values(tableOf(t, run(t, NumberDescriptor(), Context{Columns: []string{"n"}}, rows)[0]))

	assert.Equal(t, int64(6), got["n/Sum"])
	assert.Equal(t, int64(14), got["n/Sum of squares"])
	assert.InDelta(t, 2.0, got["n/Mean"], 1e-12)
	assert.InDelta(t, 1.0, got["n/Variance"], 1e-12)
}

func TestNumberAnalyzerAllNulls(t *testing.T) {
	rows := testutil.Rows([]string{"n"}, []interface{}{nil}, []interface{}{"abc"})
	ct := tableOf(t, run(t, NumberDescriptor(), Context{Columns: []string{"n"}}, rows)[0])

	assert.Equal(t, map[string]interface{}{"n/Row count": int64(2), "n/Null count": int64(2)}, values(ct))
}

func TestNumberReducerMatchesSinglePass(t *testing.T) {
	d := NumberDescriptor()
	c := Context{Columns: []string{"age"}}

	whole := values(tableOf(t, run(t, d, c, numberRows)[0]))
	for _, split := range [][]int{{4}, {1, 5}, {2, 3, 6, 7}} {
		parts := splitRows(numberRows, split...)
		merged := values(tableOf(t, merge(t, d, run(t, d, c, parts...))))
		assert.Equal(t, whole, merged, "split at %v", split)
	}
}

func TestNumberReducerKeepsNullDrillDown(t *testing.T) {
	d := NumberDescriptor()
	partials := run(t, d, Context{Columns: []string{"age"}}, numberRows[:4], numberRows[4:])
	ct := tableOf(t, merge(t, d, partials))

	p, err := ct.Where(DimensionColumn, "age").Where(DimensionMeasure, MeasureNullCount).Explore()
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4"}, sampleIDs(t, p))
}

func splitRows(rows []models.Row, at ...int) [][]models.Row {
	var parts [][]models.Row
	start := 0
	for _, i := range at {
		parts = append(parts, rows[start:i])
		start = i
	}
	return append(parts, rows[start:])
}

var stringRows = testutil.Rows([]string{"name"},
	[]interface{}{"Alice"},
	[]interface{}{"BOB"},
	[]interface{}{"  "},
	[]interface{}{nil},
	[]interface{}{"hello world"},
	[]interface{}{"Émile 2"},
)

func TestStringAnalyzer(t *testing.T) {
	ct := tableOf(t, run(t, StringDescriptor(), Context{Columns: []string{"name"}}, stringRows)[0])
	got := values(ct)

	expected := map[string]interface{}{
		"name/Row count":                int64(6),
		"name/Null count":               int64(1),
		"name/Blank count":              int64(1),
		"name/Entirely uppercase count": int64(1),
		"name/Entirely lowercase count": int64(1),
		"name/Total char count":         int64(28),
		"name/Max chars":                int64(11),
		"name/Min chars":                int64(2),
		"name/Word count":               int64(6),
		"name/Max words":                int64(2),
		"name/Min words":                int64(0),
		"name/Uppercase chars":          int64(5),
		"name/Digit chars":              int64(1),
		"name/Diacritic chars":          int64(1),
		"name/White spaces":             int64(4),
	}
	for key, want := range expected {
		assert.Equal(t, want, got[key], key)
	}
	assert.InDelta(t, 5.6, got["name/Avg chars"], 1e-9)
	assert.InDelta(t, 0.8, got["name/Avg white spaces"], 1e-9)

	p, err := ct.Where(DimensionColumn, "name").Where(DimensionMeasure, MeasureBlankCount).Explore()
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, sampleIDs(t, p))
}

func TestStringReducerMatchesSinglePass(t *testing.T) {
	d := StringDescriptor()
	c := Context{Columns: []string{"name"}}

	whole := values(tableOf(t, run(t, d, c, stringRows)[0]))
	merged := values(tableOf(t, merge(t, d, run(t, d, c, splitRows(stringRows, 2, 4)...))))
	assert.Equal(t, whole, merged)
}

var booleanRows = testutil.Rows([]string{"flag1", "flag2"},
	[]interface{}{true, false},
	[]interface{}{"true", "0"},
	[]interface{}{"F", nil},
	[]interface{}{"maybe", true},
	[]interface{}{false, "false"},
)

func TestBooleanAnalyzer(t *testing.T) {
	r := run(t, BooleanDescriptor(), Context{Columns: []string{"flag1", "flag2"}}, booleanRows)[0]
	res, ok := r.(*BooleanResult)
	require.True(t, ok)

	assert.Equal(t, map[string]interface{}{
		"flag1/Row count":   int64(5),
		"flag1/Null count":  int64(1),
		"flag1/True count":  int64(2),
		"flag1/False count": int64(2),
		"flag2/Row count":   int64(5),
		"flag2/Null count":  int64(1),
		"flag2/True count":  int64(1),
		"flag2/False count": int64(3),
	}, values(res.Crosstab()))

	combos, err := res.ValueCombinations(context.Background())
	require.NoError(t, err)
	measure, _ := combos.Dimension(DimensionMeasure)
	assert.Equal(t, []string{MeasureMostFrequent, "Combination 1", "Combination 2", MeasureLeastFrequent}, measure.Categories())

	most := combos.Where(DimensionMeasure, MeasureMostFrequent)
	assert.Equal(t, int64(1), most.Clone().Where(DimensionColumn, "flag1").SafeGet(nil))
	assert.Equal(t, int64(0), most.Clone().Where(DimensionColumn, "flag2").SafeGet(nil))
	assert.Equal(t, int64(2), most.Clone().Where(DimensionColumn, ColumnFrequency).SafeGet(nil))

	least := combos.Where(DimensionMeasure, MeasureLeastFrequent)
	assert.Nil(t, least.Clone().Where(DimensionColumn, "flag1").SafeGet(nil))
	assert.Equal(t, int64(1), least.Clone().Where(DimensionColumn, "flag2").SafeGet(nil))

	p, err := most.Where(DimensionColumn, ColumnFrequency).Explore()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, sampleIDs(t, p))
	assert.Contains(t, res.String(), "Frequency^Most frequent: 2")
}

func TestBooleanSingleColumnHasNoCombinations(t *testing.T) {
	res := run(t, BooleanDescriptor(), Context{Columns: []string{"flag1"}}, booleanRows)[0].(*BooleanResult)
	assert.Nil(t, res.Combinations())

	combos, err := res.ValueCombinations(context.Background())
	require.NoError(t, err)
	assert.Nil(t, combos)
}

func TestBooleanReducerMatchesSinglePass(t *testing.T) {
	d := BooleanDescriptor()
	c := Context{Columns: []string{"flag1", "flag2"}}

	whole := run(t, d, c, booleanRows)[0].(*BooleanResult)
	merged := merge(t, d, run(t, d, c, splitRows(booleanRows, 2)...)).(*BooleanResult)

	assert.Equal(t, values(whole.Crosstab()), values(merged.Crosstab()))

	wholeCombos, err := whole.ValueCombinations(context.Background())
	require.NoError(t, err)
	mergedCombos, err := merged.ValueCombinations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wholeCombos.String(), mergedCombos.String())
}

func TestBooleanReducerRejectsDifferentColumns(t *testing.T) {
	d := BooleanDescriptor()
	store := annotation.NewMemoryStore(5)
	p1 := run(t, d, Context{Columns: []string{"flag1"}, Store: store}, booleanRows)
	p2 := run(t, d, Context{Columns: []string{"flag2"}, Store: store}, booleanRows)

	_, err := d.NewReducer(reduce.Options{}).Reduce(context.Background(), append(p1, p2...))
	assert.True(t, errors.IsDimensionMismatch(err))
}

var completenessRows = testutil.Rows([]string{"a", "b"},
	[]interface{}{"x", "y"},
	[]interface{}{nil, "y"},
	[]interface{}{"  ", nil},
	[]interface{}{"x", 0},
)

func TestCompletenessAnalyzer(t *testing.T) {
	tests := []struct {
		mode    string
		valid   int64
		invalid int64
	}{
		{mode: EvaluationAnyField, valid: 2, invalid: 2},
		{mode: EvaluationAllFields, valid: 3, invalid: 1},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			c := Context{Columns: []string{"a", "b"}, Options: map[string]interface{}{OptionEvaluationMode: tt.mode}}
			res := run(t, CompletenessDescriptor(), c, completenessRows)[0].(*result.Categorized)

			counts, err := res.Counts(context.Background())
			require.NoError(t, err)
			assert.Equal(t, map[string]int64{CategoryValid: tt.valid, CategoryInvalid: tt.invalid}, counts)
		})
	}

	_, err := NewCompletenessAnalyzer(context.Background(), Context{
		Columns: []string{"a"},
		Store:   annotation.NewMemoryStore(1),
		Options: map[string]interface{}{OptionEvaluationMode: "some"},
	})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestCompletenessReducer(t *testing.T) {
	d := CompletenessDescriptor()
	c := Context{Columns: []string{"a", "b"}, Store: annotation.NewMemoryStore(10)}
	partials := run(t, d, c, completenessRows[:1], completenessRows[1:])

	merged := merge(t, d, partials).(*result.Categorized)
	counts, err := merged.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{CategoryValid: 2, CategoryInvalid: 2}, counts)

	rows, err := merged.SampleRows(context.Background(), CategoryValid)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].ID)
	assert.Equal(t, "4", rows[1].ID)
}

func TestPatternOf(t *testing.T) {
	tests := []struct {
		value        interface{}
		discriminate bool
		want         string
	}{
		{value: "Hello World", want: "a a"},
		{value: "AB-123", want: "a-9"},
		{value: "a1b2", want: "a9a9"},
		{value: 42, want: "9"},
		{value: nil, want: PatternNull},
		{value: "   ", want: PatternBlank},
		{value: "Hello", discriminate: true, want: "Aa"},
		{value: "ABC def", discriminate: true, want: "A a"},
		{value: "jane.doe@mail.com", want: "a.a@a.a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PatternOf(tt.value, tt.discriminate), "%v", tt.value)
	}
}

var patternRows = testutil.Rows([]string{"code"},
	[]interface{}{"AB-12"},
	[]interface{}{"cd-3"},
	[]interface{}{"123"},
	[]interface{}{nil},
	[]interface{}{"x-9"},
	[]interface{}{"77"},
)

func TestPatternAnalyzerReturnsFuture(t *testing.T) {
	ctx := context.Background()
	store := annotation.NewMemoryStore(10)
	a, err := NewPatternAnalyzer(ctx, Context{Columns: []string{"code"}, Store: store})
	require.NoError(t, err)
	for _, row := range patternRows {
		require.NoError(t, a.Process(ctx, row))
	}

	r, err := a.Result(ctx)
	require.NoError(t, err)
	_, isFuture := r.(*result.Future)
	assert.True(t, isFuture)

	resolved, err := result.Resolve(ctx, r)
	require.NoError(t, err)
	res := resolved.(*result.Categorized)
	assert.Equal(t, []string{"a-9", "9", PatternNull}, res.Categories())

	counts, err := res.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a-9": 3, "9": 2, PatternNull: 1}, counts)
}

func TestPatternAnalyzerTakesOneColumn(t *testing.T) {
	_, err := NewPatternAnalyzer(context.Background(), Context{Columns: []string{"a", "b"}, Store: annotation.NewMemoryStore(1)})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestPatternReducerAdoptsUnseenPatterns(t *testing.T) {
	d := PatternDescriptor()
	c := Context{Columns: []string{"code"}, Store: annotation.NewMemoryStore(10)}
	partials := run(t, d, c, patternRows[:2], patternRows[2:])

	merged := merge(t, d, partials).(*result.Categorized)
	assert.Equal(t, []string{"a-9", "9", PatternNull}, merged.Categories())

	counts, err := merged.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a-9": 3, "9": 2, PatternNull: 1}, counts)
}

var distributionRows = testutil.Rows([]string{"city", "country"},
	[]interface{}{"Oslo", "NO"},
	[]interface{}{"Bergen", "NO"},
	[]interface{}{"Oslo", "NO"},
	[]interface{}{nil, "SE"},
	[]interface{}{"Malmo", "SE"},
	[]interface{}{"Oslo", nil},
	[]interface{}{"Lund", "SE"},
	[]interface{}{"Bergen", "NO"},
)

func TestValueDistributionAnalyzer(t *testing.T) {
	d := ValueDistributionDescriptor()
	res := run(t, d, Context{Columns: []string{"city"}}, distributionRows)[0].(*ValueDistributionResult)

	assert.Equal(t, []string{"city"}, res.Groups())
	g, ok := res.Group("city")
	require.True(t, ok)
	assert.EqualValues(t, 8, g.Total())
	assert.EqualValues(t, 1, g.Nulls())
	assert.Equal(t, 4, g.Distinct())
	assert.Equal(t, []string{"Lund", "Malmo"}, g.UniqueValues())
	assert.Equal(t, []ValueCount{{Value: "Oslo", Count: 3}, {Value: "Bergen", Count: 2}}, g.TopValues(2))
	assert.Len(t, g.TopValues(0), 4)

	assert.Equal(t, map[string]interface{}{
		"city/" + MeasureRowCount:      int64(8),
		"city/" + MeasureNullCount:     int64(1),
		"city/" + MeasureDistinctCount: int64(4),
		"city/" + MeasureUniqueCount:   int64(2),
	}, values(res.Crosstab()))
}

func TestValueDistributionGrouped(t *testing.T) {
	d := ValueDistributionDescriptor()
	c := Context{Columns: []string{"city"}, Options: map[string]interface{}{OptionGroupColumn: "country"}}
	res := run(t, d, c, distributionRows)[0].(*ValueDistributionResult)

	assert.Equal(t, "country", res.GroupColumn())
	assert.Equal(t, []string{NullGroup, "NO", "SE"}, res.Groups())
	no, ok := res.Group("NO")
	require.True(t, ok)
	assert.EqualValues(t, 4, no.Total())
	assert.EqualValues(t, 2, no.Count("Oslo"))
	assert.Empty(t, no.UniqueValues())
	se, _ := res.Group("SE")
	assert.EqualValues(t, 1, se.Nulls())
	assert.Equal(t, []string{"Lund", "Malmo"}, se.UniqueValues())
}

func TestValueDistributionReducerMatchesSinglePass(t *testing.T) {
	d := ValueDistributionDescriptor()
	for _, options := range []map[string]interface{}{nil, {OptionGroupColumn: "country"}} {
		c := Context{Columns: []string{"city"}, Options: options}
		whole := run(t, d, c, distributionRows)[0].(*ValueDistributionResult)
		merged := merge(t, d, run(t, d, c, splitRows(distributionRows, 2, 5)...)).(*ValueDistributionResult)

		assert.Equal(t, values(whole.Crosstab()), values(merged.Crosstab()))
		for _, name := range whole.Groups() {
			wg, _ := whole.Group(name)
			mg, ok := merged.Group(name)
			require.True(t, ok, name)
			assert.Equal(t, wg.TopValues(0), mg.TopValues(0))
			assert.Equal(t, wg.UniqueValues(), mg.UniqueValues())
		}
	}
}

func TestValueDistributionReducerDropsValuesUniqueInSeveralPartials(t *testing.T) {
	d := ValueDistributionDescriptor()
	c := Context{Columns: []string{"city"}}
	rows := testutil.Rows([]string{"city"}, []interface{}{"Oslo"}, []interface{}{"Lund"}, []interface{}{"Oslo"})
	merged := merge(t, d, run(t, d, c, rows[:2], rows[2:])).(*ValueDistributionResult)

	g, _ := merged.Group("city")
	assert.Equal(t, []string{"Lund"}, g.UniqueValues())
	assert.EqualValues(t, 2, g.Count("Oslo"))
}

func TestValueDistributionReducerRejectsDifferentColumns(t *testing.T) {
	d := ValueDistributionDescriptor()
	p1 := run(t, d, Context{Columns: []string{"city"}}, distributionRows)
	p2 := run(t, d, Context{Columns: []string{"country"}}, distributionRows)

	_, err := d.NewReducer(reduce.Options{}).Reduce(context.Background(), append(p1, p2...))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
}

func TestValueDistributionOptions(t *testing.T) {
	store := annotation.NewMemoryStore(1)
	_, err := NewValueDistributionAnalyzer(context.Background(), Context{Columns: []string{"a", "b"}, Store: store})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = NewValueDistributionAnalyzer(context.Background(), Context{
		Columns: []string{"a"},
		Store:   store,
		Options: map[string]interface{}{OptionTopValues: -1},
	})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
