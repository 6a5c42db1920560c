package types

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fhirlang/gofhir/pkg/ucum"
)

// Quantity is the FHIRPath Quantity primitive: a decimal magnitude plus an
// optional UCUM (or calendar-duration) unit string.
type Quantity struct {
	value decimal.Decimal
	unit  string
}

var quantityPattern = regexp.MustCompile(`^([+-]?\d+\.?\d*)\s*(?:'([^']+)'|(\S+))?$`)

var errIncompatibleQuantityUnits = errors.New("incompatible units")

// NewQuantity parses a FHIRPath quantity literal: a decimal number
// followed by an optional unit, either bare (e.g. "kg") or single-quoted
// UCUM code (e.g. "'mg'").
func NewQuantity(s string) (Quantity, error) {
	matches := quantityPattern.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return Quantity{}, fmt.Errorf("invalid quantity format: %s", s)
	}

	val, err := decimal.NewFromString(matches[1])
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity value: %s", matches[1])
	}

	unit := matches[2]
	if unit == "" {
		unit = matches[3]
	}

	return Quantity{value: val, unit: unit}, nil
}

func NewQuantityFromDecimal(value decimal.Decimal, unit string) Quantity {
	return Quantity{value: value, unit: unit}
}

func (Quantity) Type() string {
	return "Quantity"
}

// commonUnit reports whether q and o can be compared by their raw values
// without going through UCUM normalization: same unit, or either side
// lacking a unit entirely.
func (q Quantity) commonUnit(o Quantity, foldCase bool) bool {
	if q.unit == "" || o.unit == "" {
		return true
	}
	if foldCase {
		return strings.EqualFold(q.unit, o.unit)
	}
	return q.unit == o.unit
}

// normalizedCmp normalizes both quantities via UCUM and compares the
// results, failing if their canonical units don't match.
func (q Quantity) normalizedCmp(o Quantity) (ucum.NormalizedQuantity, ucum.NormalizedQuantity, bool) {
	n1, n2 := q.Normalize(), o.Normalize()
	return n1, n2, n1.Code == n2.Code
}

func (q Quantity) Equal(other Value) bool {
	o, ok := other.(Quantity)
	if !ok {
		return false
	}
	if q.commonUnit(o, false) {
		return q.value.Equal(o.value)
	}
	n1, n2, ok := q.normalizedCmp(o)
	if !ok {
		return false
	}
	return decimal.NewFromFloat(n1.Value).Equal(decimal.NewFromFloat(n2.Value))
}

// Equivalent is Equal but unit-case-insensitive and, for cross-unit
// comparisons, tolerant of floating-point drift from the UCUM conversion.
func (q Quantity) Equivalent(other Value) bool {
	o, ok := other.(Quantity)
	if !ok {
		return false
	}
	if q.commonUnit(o, true) {
		return q.value.Equal(o.value)
	}
	n1, n2, ok := q.normalizedCmp(o)
	if !ok {
		return false
	}

	diff := n1.Value - n2.Value
	if diff < 0 {
		diff = -diff
	}
	maxVal := n1.Value
	if n2.Value > maxVal {
		maxVal = n2.Value
	}
	if maxVal == 0 {
		return diff == 0
	}
	return diff/maxVal < 1e-10
}

func (q Quantity) String() string {
	if q.unit == "" {
		return q.value.String()
	}
	if strings.Contains(q.unit, " ") {
		return fmt.Sprintf("%s '%s'", q.value.String(), q.unit)
	}
	return fmt.Sprintf("%s %s", q.value.String(), q.unit)
}

func (Quantity) IsEmpty() bool {
	return false
}

func (q Quantity) Value() decimal.Decimal {
	return q.value
}

func (q Quantity) Unit() string {
	return q.unit
}

// Compare implements Comparable for Quantity, normalizing through UCUM
// when the two operands carry different, non-empty units.
func (q Quantity) Compare(other Value) (int, error) {
	o, ok := other.(Quantity)
	if !ok {
		return 0, fmt.Errorf("cannot compare Quantity with %s", other.Type())
	}

	if q.commonUnit(o, false) {
		return q.value.Cmp(o.value), nil
	}

	n1, n2, ok := q.normalizedCmp(o)
	if !ok {
		return 0, fmt.Errorf("%w: %s and %s", errIncompatibleQuantityUnits, q.unit, o.unit)
	}
	return decimal.NewFromFloat(n1.Value).Cmp(decimal.NewFromFloat(n2.Value)), nil
}

func (q Quantity) Normalize() ucum.NormalizedQuantity {
	f, _ := q.value.Float64()
	return ucum.Normalize(f, q.unit)
}

// resolvedUnit picks the unit to carry on the result of an Add/Subtract:
// whichever operand actually has one, preferring q's.
func resolvedUnit(q, o Quantity) (string, error) {
	if q.unit != o.unit && q.unit != "" && o.unit != "" {
		return "", fmt.Errorf("%w: %s and %s", errIncompatibleQuantityUnits, q.unit, o.unit)
	}
	if q.unit != "" {
		return q.unit, nil
	}
	return o.unit, nil
}

func (q Quantity) Add(o Quantity) (Quantity, error) {
	unit, err := resolvedUnit(q, o)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{value: q.value.Add(o.value), unit: unit}, nil
}

func (q Quantity) Subtract(o Quantity) (Quantity, error) {
	unit, err := resolvedUnit(q, o)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{value: q.value.Sub(o.value), unit: unit}, nil
}

func (q Quantity) Multiply(factor decimal.Decimal) Quantity {
	return Quantity{value: q.value.Mul(factor), unit: q.unit}
}

func (q Quantity) Divide(divisor decimal.Decimal) (Quantity, error) {
	if divisor.IsZero() {
		return Quantity{}, errDivByZero
	}
	return Quantity{value: q.value.Div(divisor), unit: q.unit}, nil
}
