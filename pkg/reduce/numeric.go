package reduce

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/nebula-profiler/pkg/crosstab"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
)

// Sum adds values. Nils count as zero. The result is an int64 when every
// non-nil value is of an integer kind and a float64 otherwise. Floating
// point addition is done on decimals so one call does not depend on the
// order of its values. The float64 result is rounded, so sums of sums agree
// with a flat sum only while every intermediate total fits float64
// precision.
func Sum(values ...interface{}) (interface{}, error) {
	allIntegers := true
	var intSum int64
	dec := decimal.Zero
	plain := 0.0
	special := false

	for _, v := range values {
		if v == nil {
			continue
		}
		if !crosstab.IsNumber(v) {
			return nil, errors.Newf(errors.ErrorTypeTypeMismatch, "cannot sum value of type %T", v)
		}
		if i, ok := toInt64(v); ok {
			intSum += i
			dec = dec.Add(decimal.NewFromInt(i))
			plain += float64(i)
			continue
		}
		allIntegers = false
		f := ToFloat64(v)
		plain += f
		if math.IsNaN(f) || math.IsInf(f, 0) {
			special = true
			continue
		}
		if d, ok := v.(decimal.Decimal); ok {
			dec = dec.Add(d)
		} else {
			dec = dec.Add(decimal.NewFromFloat(f))
		}
	}

	switch {
	case allIntegers:
		return intSum, nil
	case special:
		return plain, nil
	default:
		return dec.InexactFloat64(), nil
	}
}

// Max returns the greatest non-nil value. The first non-nil value seeds the
// comparison and ties keep the earlier value. All nils yield nil.
func Max(values ...interface{}) (interface{}, error) {
	return extreme(values, 1)
}

// Min returns the smallest non-nil value with the same rules as Max.
func Min(values ...interface{}) (interface{}, error) {
	return extreme(values, -1)
}

func extreme(values []interface{}, sign int) (interface{}, error) {
	var best interface{}
	for _, v := range values {
		if v == nil {
			continue
		}
		if best == nil {
			if !crosstab.IsNumber(v) {
				return nil, errors.Newf(errors.ErrorTypeTypeMismatch, "cannot compare value of type %T", v)
			}
			best = v
			continue
		}
		c, err := Compare(v, best)
		if err != nil {
			return nil, err
		}
		if c*sign > 0 {
			best = v
		}
	}
	return best, nil
}

// Compare orders two numbers: -1 when a < b, 0 when equal, 1 when a > b.
// NaN compares below every other number.
func Compare(a, b interface{}) (int, error) {
	if !crosstab.IsNumber(a) || !crosstab.IsNumber(b) {
		return 0, errors.Newf(errors.ErrorTypeTypeMismatch, "cannot compare %T with %T", a, b)
	}
	ai, aInt := toInt64(a)
	bi, bInt := toInt64(b)
	if aInt && bInt {
		switch {
		case ai < bi:
			return -1, nil
		case ai > bi:
			return 1, nil
		default:
			return 0, nil
		}
	}

	af, bf := ToFloat64(a), ToFloat64(b)
	switch {
	case math.IsNaN(af) && math.IsNaN(bf):
		return 0, nil
	case math.IsNaN(af):
		return -1, nil
	case math.IsNaN(bf):
		return 1, nil
	case math.IsInf(af, 0) || math.IsInf(bf, 0):
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return toDecimal(a).Cmp(toDecimal(b)), nil
}

// ToFloat64 converts any numeric kind to float64; other values yield NaN
func ToFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case decimal.Decimal:
		return n.InexactFloat64()
	}
	if i, ok := toInt64(v); ok {
		return float64(i)
	}
	return math.NaN()
}

func toDecimal(v interface{}) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case float64:
		return decimal.NewFromFloat(n)
	case float32:
		return decimal.NewFromFloat32(n)
	}
	i, _ := toInt64(v)
	return decimal.NewFromInt(i)
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true //nolint:gosec // counts fit in int64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true //nolint:gosec // counts fit in int64
	default:
		return 0, false
	}
}

// ToInt64 converts integer kinds to int64
func ToInt64(v interface{}) (int64, bool) {
	return toInt64(v)
}
