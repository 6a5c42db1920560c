package types

import (
	"errors"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

var errDivByZero = errors.New("division by zero")

// Integer is the FHIRPath Integer primitive, a signed 64-bit value.
type Integer struct {
	value int64
}

func NewInteger(v int64) Integer {
	return Integer{value: v}
}

func (i Integer) Value() int64 {
	return i.value
}

func (Integer) Type() string {
	return "Integer"
}

// Equal treats an Integer and a numerically-equal Decimal as equal,
// comparing both through their Decimal form.
func (i Integer) Equal(other Value) bool {
	switch o := other.(type) {
	case Integer:
		return i.value == o.value
	case Decimal:
		return i.ToDecimal().Equal(o)
	default:
		return false
	}
}

func (i Integer) Equivalent(other Value) bool {
	return i.Equal(other)
}

func (i Integer) String() string {
	return strconv.FormatInt(i.value, 10)
}

func (Integer) IsEmpty() bool {
	return false
}

func (i Integer) ToDecimal() Decimal {
	return Decimal{value: decimal.NewFromInt(i.value)}
}

func (i Integer) Compare(other Value) (int, error) {
	switch o := other.(type) {
	case Integer:
		switch {
		case i.value < o.value:
			return -1, nil
		case i.value > o.value:
			return 1, nil
		default:
			return 0, nil
		}
	case Decimal:
		return i.ToDecimal().Compare(o)
	default:
		return 0, NewTypeError("Integer", other.Type(), "comparison")
	}
}

func (i Integer) Add(other Integer) Integer {
	return NewInteger(i.value + other.value)
}

func (i Integer) Subtract(other Integer) Integer {
	return NewInteger(i.value - other.value)
}

func (i Integer) Multiply(other Integer) Integer {
	return NewInteger(i.value * other.value)
}

// Divide always produces a Decimal, per FHIRPath's "/" operator.
func (i Integer) Divide(other Integer) (Decimal, error) {
	if other.value == 0 {
		return Decimal{}, errDivByZero
	}
	return i.ToDecimal().Divide(other.ToDecimal())
}

// Div implements FHIRPath's "div" truncating integer division.
func (i Integer) Div(other Integer) (Integer, error) {
	if other.value == 0 {
		return Integer{}, errDivByZero
	}
	return NewInteger(i.value / other.value), nil
}

func (i Integer) Mod(other Integer) (Integer, error) {
	if other.value == 0 {
		return Integer{}, errDivByZero
	}
	return NewInteger(i.value % other.value), nil
}

func (i Integer) Negate() Integer {
	return NewInteger(-i.value)
}

func (i Integer) Abs() Integer {
	if i.value < 0 {
		return NewInteger(-i.value)
	}
	return i
}

func (i Integer) Power(exp Integer) Decimal {
	return i.ToDecimal().Power(exp.ToDecimal())
}

func (i Integer) Sqrt() (Decimal, error) {
	if i.value < 0 {
		return Decimal{}, errors.New("cannot take square root of negative number")
	}
	return NewDecimalFromFloat(math.Sqrt(float64(i.value))), nil
}
