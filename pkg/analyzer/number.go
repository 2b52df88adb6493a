package analyzer

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/crosstab"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
	"github.com/ajitpratap0/nebula-profiler/pkg/reduce"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// Number analyzer measures
const (
	NumberType = "number"

	MeasureHighestValue      = "Highest value"
	MeasureLowestValue       = "Lowest value"
	MeasureSum               = "Sum"
	MeasureMean              = "Mean"
	MeasureStandardDeviation = "Standard deviation"
	MeasureVariance          = "Variance"
	MeasureSumOfSquares      = "Sum of squares"
)

var numberMeasures = []string{
	MeasureRowCount,
	MeasureNullCount,
	MeasureHighestValue,
	MeasureLowestValue,
	MeasureSum,
	MeasureMean,
	MeasureStandardDeviation,
	MeasureVariance,
	MeasureSumOfSquares,
}

// NumberDescriptor describes the number analyzer
func NumberDescriptor() Descriptor {
	return Descriptor{
		Type:        NumberType,
		Description: "Row, null and extreme values plus sum, mean and spread of numeric columns",
		ResultType:  NumberType,
		New:         NewNumberAnalyzer,
		NewReducer:  NumberReducer,
	}
}

type numberColumn struct {
	name     string
	rows     int64
	nulls    int64
	nullID   annotation.ID
	highest  interface{}
	lowest   interface{}
	sum      decimal.Decimal
	sumSq    decimal.Decimal
	integral bool
}

// NumberAnalyzer computes numeric statistics per column. Values that are
// neither numbers nor numeric text count as nulls.
type NumberAnalyzer struct {
	store   annotation.Store
	logger  *zap.Logger
	columns []*numberColumn
}

// NewNumberAnalyzer creates a number analyzer
func NewNumberAnalyzer(ctx context.Context, c Context) (Analyzer, error) {
	if err := c.validate(NumberType); err != nil {
		return nil, err
	}
	ids, err := annotateAll(ctx, c.Store, len(c.Columns))
	if err != nil {
		return nil, err
	}
	a := &NumberAnalyzer{store: c.Store, logger: c.logger(NumberType)}
	for i, name := range c.Columns {
		a.columns = append(a.columns, &numberColumn{name: name, nullID: ids[i], integral: true})
	}
	return a, nil
}

// Process implements Analyzer
func (a *NumberAnalyzer) Process(ctx context.Context, row models.Row) error {
	for _, col := range a.columns {
		col.rows++
		raw, _ := row.Get(col.name)
		v, ok := parseNumber(raw)
		if !ok {
			if raw != nil {
				a.logger.Debug("non-numeric value counted as null",
					zap.String("column", col.name), zap.String("row_id", row.ID))
			}
			col.nulls++
			if err := a.store.Annotate(ctx, col.nullID, row); err != nil {
				return err
			}
			continue
		}

		if col.highest == nil {
			col.highest, col.lowest = v, v
		} else {
			if c, _ := reduce.Compare(v, col.highest); c > 0 {
				col.highest = v
			}
			if c, _ := reduce.Compare(v, col.lowest); c < 0 {
				col.lowest = v
			}
		}

		d := decimalOf(v)
		col.sum = col.sum.Add(d)
		col.sumSq = col.sumSq.Add(d.Mul(d))
		if _, isInt := reduce.ToInt64(v); !isInt {
			col.integral = false
		}
	}
	return nil
}

// Result implements Analyzer
func (a *NumberAnalyzer) Result(ctx context.Context) (result.AnalyzerResult, error) {
	ct := newMeasureCrosstab(numberMeasures)
	for _, col := range a.columns {
		nav := ct.Where(DimensionColumn, col.name)
		if err := nav.Where(DimensionMeasure, MeasureRowCount).Put(col.rows, true); err != nil {
			return nil, err
		}
		if err := nav.Where(DimensionMeasure, MeasureNullCount).Put(col.nulls, true); err != nil {
			return nil, err
		}
		if col.nulls > 0 {
			if err := attachSamples(ctx, nav, a.store, col.nullID, col.name); err != nil {
				return nil, err
			}
		}
		if col.highest == nil {
			continue
		}
		values := map[string]interface{}{
			MeasureHighestValue: col.highest,
			MeasureLowestValue:  col.lowest,
			MeasureSum:          decimalValue(col.sum, col.integral),
			MeasureSumOfSquares: decimalValue(col.sumSq, col.integral),
		}
		for _, measure := range numberMeasures {
			if v, ok := values[measure]; ok {
				if err := nav.Where(DimensionMeasure, measure).Put(v, true); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := deriveNumberMeasures(ctx, ct); err != nil {
		return nil, err
	}
	return crosstab.NewResult(NumberType, ct), nil
}

// Close implements Analyzer
func (a *NumberAnalyzer) Close() error {
	return nil
}

// NumberReducer merges number results. Counts and sums add up, extremes
// are compared and the mean, variance and standard deviation are derived
// again from the merged sums.
func NumberReducer(opts reduce.Options) reduce.ResultReducer {
	return reduce.Adapt[crosstab.Result](&reduce.CrosstabReducer{
		ResultType: NumberType,
		Options:    opts,
		Merge:      mergeNumberValues,
		Finalize:   deriveNumberMeasures,
	})
}

func mergeNumberValues(categories []string, values []interface{}) (interface{}, error) {
	switch categories[1] {
	case MeasureHighestValue:
		return reduce.Max(values...)
	case MeasureLowestValue:
		return reduce.Min(values...)
	case MeasureMean, MeasureVariance, MeasureStandardDeviation:
		return nil, nil
	default:
		return reduce.Sum(values...)
	}
}

// deriveNumberMeasures fills mean, variance and standard deviation from the
// row count, null count, sum and sum of squares of every column. Variance is
// the sample variance.
func deriveNumberMeasures(_ context.Context, ct *crosstab.Crosstab) error {
	column, ok := ct.Dimension(DimensionColumn)
	if !ok {
		return nil
	}
	for _, name := range column.Categories() {
		nav := ct.Where(DimensionColumn, name)
		rows := reduce.ToFloat64(nav.Where(DimensionMeasure, MeasureRowCount).SafeGet(int64(0)))
		nulls := reduce.ToFloat64(nav.Where(DimensionMeasure, MeasureNullCount).SafeGet(int64(0)))
		sum := nav.Where(DimensionMeasure, MeasureSum).SafeGet(nil)
		sumSq := nav.Where(DimensionMeasure, MeasureSumOfSquares).SafeGet(nil)

		n := rows - nulls
		if n <= 0 || sum == nil || sumSq == nil {
			continue
		}
		s, sq := reduce.ToFloat64(sum), reduce.ToFloat64(sumSq)
		mean := s / n
		variance := 0.0
		if n > 1 {
			variance = (sq - s*s/n) / (n - 1)
			if variance < 0 {
				variance = 0
			}
		}
		derived := []struct {
			measure string
			value   float64
		}{
			{MeasureMean, mean},
			{MeasureVariance, variance},
			{MeasureStandardDeviation, math.Sqrt(variance)},
		}
		for _, d := range derived {
			if err := nav.Where(DimensionMeasure, d.measure).Put(d.value, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func newMeasureCrosstab(measures []string) *crosstab.Crosstab {
	return crosstab.MustNew(crosstab.NumberValue,
		crosstab.NewDimension(DimensionColumn),
		crosstab.NewDimension(DimensionMeasure, measures...))
}

// parseNumber converts numbers and numeric text to int64 or float64.
// Non-finite floats are rejected.
func parseNumber(v interface{}) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if i, ok := reduce.ToInt64(v); ok {
		return i, true
	}
	switch n := v.(type) {
	case float64, float32, decimal.Decimal:
		f := reduce.ToFloat64(n)
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	text, ok := textOf(v)
	if !ok {
		return nil, false
	}
	text = strings.TrimSpace(text)
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

func decimalOf(v interface{}) decimal.Decimal {
	if i, ok := reduce.ToInt64(v); ok {
		return decimal.NewFromInt(i)
	}
	return decimal.NewFromFloat(reduce.ToFloat64(v))
}

func decimalValue(d decimal.Decimal, integral bool) interface{} {
	if integral {
		return d.IntPart()
	}
	return d.InexactFloat64()
}
