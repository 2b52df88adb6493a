package crosstab

import (
	"github.com/shopspring/decimal"
)

// ValueType constrains the values a crosstab accepts
type ValueType int

const (
	// AnyValue accepts every value
	AnyValue ValueType = iota
	// NumberValue accepts Go integer and floating point kinds and decimals
	NumberValue
	// StringValue accepts strings
	StringValue
	// BoolValue accepts booleans
	BoolValue
)

func (v ValueType) String() string {
	switch v {
	case NumberValue:
		return "number"
	case StringValue:
		return "string"
	case BoolValue:
		return "bool"
	default:
		return "any"
	}
}

// Accepts reports whether value fits the type. nil always fits.
func (v ValueType) Accepts(value interface{}) bool {
	if value == nil {
		return true
	}
	switch v {
	case NumberValue:
		return IsNumber(value)
	case StringValue:
		_, ok := value.(string)
		return ok
	case BoolValue:
		_, ok := value.(bool)
		return ok
	default:
		return true
	}
}

// IsNumber reports whether value is a Go numeric kind or a decimal
func IsNumber(value interface{}) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, decimal.Decimal:
		return true
	default:
		return false
	}
}

// IsInteger reports whether value is a Go integer kind
func IsInteger(value interface{}) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}
