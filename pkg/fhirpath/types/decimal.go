package types

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// TypeNameDecimal is the FHIRPath type name for decimal values.
const TypeNameDecimal = "Decimal"

var (
	errNonPositiveLog = errors.New("cannot take logarithm of non-positive number")
	errInvalidLogBase = errors.New("invalid logarithm base")
	errNegativeSqrt   = errors.New("cannot take square root of negative number")
)

// Decimal is the FHIRPath Decimal primitive, backed by shopspring/decimal
// for arbitrary-precision arithmetic.
type Decimal struct {
	value decimal.Decimal
}

func NewDecimal(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal: %s", s)
	}
	return Decimal{value: d}, nil
}

func NewDecimalFromInt(v int64) Decimal {
	return Decimal{value: decimal.NewFromInt(v)}
}

func NewDecimalFromFloat(v float64) Decimal {
	return Decimal{value: decimal.NewFromFloat(v)}
}

// MustDecimal is NewDecimal for callers holding a statically-known-valid
// literal; it panics on a malformed string.
func MustDecimal(s string) Decimal {
	d, err := NewDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Decimal) Value() decimal.Decimal {
	return d.value
}

func (Decimal) Type() string {
	return TypeNameDecimal
}

// Equal compares numerically against another Decimal or an Integer.
func (d Decimal) Equal(other Value) bool {
	switch o := other.(type) {
	case Decimal:
		return d.value.Equal(o.value)
	case Integer:
		return d.value.Equal(decimal.NewFromInt(o.value))
	default:
		return false
	}
}

func (d Decimal) Equivalent(other Value) bool {
	return d.Equal(other)
}

func (d Decimal) String() string {
	return d.value.String()
}

func (Decimal) IsEmpty() bool {
	return false
}

func (d Decimal) ToDecimal() Decimal {
	return d
}

func (d Decimal) Compare(other Value) (int, error) {
	switch o := other.(type) {
	case Decimal:
		return d.value.Cmp(o.value), nil
	case Integer:
		return d.value.Cmp(decimal.NewFromInt(o.value)), nil
	default:
		return 0, NewTypeError(TypeNameDecimal, other.Type(), "comparison")
	}
}

func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{value: d.value.Add(other.value)}
}

func (d Decimal) Subtract(other Decimal) Decimal {
	return Decimal{value: d.value.Sub(other.value)}
}

func (d Decimal) Multiply(other Decimal) Decimal {
	return Decimal{value: d.value.Mul(other.value)}
}

// Divide rounds to 16 decimal places, matching the precision FHIRPath
// implementations conventionally use for "/" on decimals.
func (d Decimal) Divide(other Decimal) (Decimal, error) {
	if other.value.IsZero() {
		return Decimal{}, errDivByZero
	}
	return Decimal{value: d.value.DivRound(other.value, 16)}, nil
}

func (d Decimal) Negate() Decimal {
	return Decimal{value: d.value.Neg()}
}

func (d Decimal) Abs() Decimal {
	return Decimal{value: d.value.Abs()}
}

func (d Decimal) Ceiling() Integer {
	return NewInteger(d.value.Ceil().IntPart())
}

func (d Decimal) Floor() Integer {
	return NewInteger(d.value.Floor().IntPart())
}

func (d Decimal) Truncate() Integer {
	return NewInteger(d.value.Truncate(0).IntPart())
}

func (d Decimal) Round(precision int32) Decimal {
	return Decimal{value: d.value.Round(precision)}
}

// Power goes through float64 since shopspring/decimal has no native
// exponentiation for non-integer exponents.
func (d Decimal) Power(exp Decimal) Decimal {
	base, _ := d.value.Float64()
	exponent, _ := exp.value.Float64()
	return NewDecimalFromFloat(math.Pow(base, exponent))
}

func (d Decimal) Sqrt() (Decimal, error) {
	if d.value.IsNegative() {
		return Decimal{}, errNegativeSqrt
	}
	f, _ := d.value.Float64()
	return NewDecimalFromFloat(math.Sqrt(f)), nil
}

func (d Decimal) Exp() Decimal {
	f, _ := d.value.Float64()
	return NewDecimalFromFloat(math.Exp(f))
}

func (d Decimal) Ln() (Decimal, error) {
	if !d.value.IsPositive() {
		return Decimal{}, errNonPositiveLog
	}
	f, _ := d.value.Float64()
	return NewDecimalFromFloat(math.Log(f)), nil
}

func (d Decimal) Log(base Decimal) (Decimal, error) {
	if !d.value.IsPositive() {
		return Decimal{}, errNonPositiveLog
	}
	if !base.value.IsPositive() || base.value.Equal(decimal.NewFromInt(1)) {
		return Decimal{}, errInvalidLogBase
	}
	f, _ := d.value.Float64()
	b, _ := base.value.Float64()
	return NewDecimalFromFloat(math.Log(f) / math.Log(b)), nil
}

func (d Decimal) IsInteger() bool {
	return d.value.Equal(d.value.Truncate(0))
}

func (d Decimal) ToInteger() (Integer, bool) {
	if !d.IsInteger() {
		return Integer{}, false
	}
	return NewInteger(d.value.IntPart()), true
}
