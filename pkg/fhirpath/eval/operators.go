package eval

import (
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

// Arithmetic operators

// numericBinOp dispatches an Integer/Decimal pair through whichever of ii
// (both Integer) or id (at least one Decimal, promoting the Integer side)
// applies, reporting ok=false when either operand is of some other type so
// the caller can fall through to its own type-specific cases.
func numericBinOp(left, right types.Value, ii func(a, b types.Integer) types.Value, id func(a, b types.Decimal) types.Value) (types.Value, bool) {
	switch l := left.(type) {
	case types.Integer:
		switch r := right.(type) {
		case types.Integer:
			return ii(l, r), true
		case types.Decimal:
			return id(l.ToDecimal(), r), true
		}
	case types.Decimal:
		switch r := right.(type) {
		case types.Integer:
			return id(l, r.ToDecimal()), true
		case types.Decimal:
			return id(l, r), true
		}
	}
	return nil, false
}

// Add implements the "+" operator: numeric addition, string concatenation,
// and Date/DateTime plus a duration Quantity.
func Add(left, right types.Value) (types.Value, error) {
	if v, ok := numericBinOp(left, right, func(a, b types.Integer) types.Value { return a.Add(b) }, func(a, b types.Decimal) types.Value { return a.Add(b) }); ok {
		return v, nil
	}

	switch l := left.(type) {
	case types.String:
		if r, ok := right.(types.String); ok {
			return types.NewString(l.Value() + r.Value()), nil
		}
	case types.Date:
		if q, ok := right.(types.Quantity); ok {
			return l.AddDuration(int(q.Value().IntPart()), q.Unit()), nil
		}
	case types.DateTime:
		if q, ok := right.(types.Quantity); ok {
			return l.AddDuration(int(q.Value().IntPart()), q.Unit()), nil
		}
	case types.Quantity:
		if r, ok := right.(types.Quantity); ok {
			return l.Add(r)
		}
	}
	return nil, InvalidOperationError("+", left.Type(), right.Type())
}

// Subtract implements the "-" operator.
func Subtract(left, right types.Value) (types.Value, error) {
	if v, ok := numericBinOp(left, right, func(a, b types.Integer) types.Value { return a.Subtract(b) }, func(a, b types.Decimal) types.Value { return a.Subtract(b) }); ok {
		return v, nil
	}

	switch l := left.(type) {
	case types.Date:
		if q, ok := right.(types.Quantity); ok {
			return l.SubtractDuration(int(q.Value().IntPart()), q.Unit()), nil
		}
	case types.DateTime:
		if q, ok := right.(types.Quantity); ok {
			return l.SubtractDuration(int(q.Value().IntPart()), q.Unit()), nil
		}
	case types.Quantity:
		if r, ok := right.(types.Quantity); ok {
			return l.Subtract(r)
		}
	}
	return nil, InvalidOperationError("-", left.Type(), right.Type())
}

// Multiply implements the "*" operator for Integer/Decimal operands.
func Multiply(left, right types.Value) (types.Value, error) {
	if v, ok := numericBinOp(left, right, func(a, b types.Integer) types.Value { return a.Multiply(b) }, func(a, b types.Decimal) types.Value { return a.Multiply(b) }); ok {
		return v, nil
	}
	return nil, InvalidOperationError("*", left.Type(), right.Type())
}

// asDecimal coerces an Integer or Decimal to Decimal for "/", which always
// produces a Decimal result regardless of operand types.
func asDecimal(v types.Value) (types.Decimal, bool) {
	switch n := v.(type) {
	case types.Integer:
		return n.ToDecimal(), true
	case types.Decimal:
		return n, true
	default:
		return types.Decimal{}, false
	}
}

// Divide implements the "/" operator.
func Divide(left, right types.Value) (types.Value, error) {
	lDec, ok := asDecimal(left)
	if !ok {
		return nil, InvalidOperationError("/", left.Type(), right.Type())
	}
	rDec, ok := asDecimal(right)
	if !ok {
		return nil, InvalidOperationError("/", left.Type(), right.Type())
	}
	return lDec.Divide(rDec)
}

// IntegerDivide implements the "div" operator.
func IntegerDivide(left, right types.Value) (types.Value, error) {
	l, ok := left.(types.Integer)
	if !ok {
		return nil, InvalidOperationError("div", left.Type(), right.Type())
	}
	r, ok := right.(types.Integer)
	if !ok {
		return nil, InvalidOperationError("div", left.Type(), right.Type())
	}
	return l.Div(r)
}

// Modulo implements the "mod" operator.
func Modulo(left, right types.Value) (types.Value, error) {
	l, ok := left.(types.Integer)
	if !ok {
		return nil, InvalidOperationError("mod", left.Type(), right.Type())
	}
	r, ok := right.(types.Integer)
	if !ok {
		return nil, InvalidOperationError("mod", left.Type(), right.Type())
	}
	return l.Mod(r)
}

// Negate implements unary "-".
func Negate(value types.Value) (types.Value, error) {
	switch v := value.(type) {
	case types.Integer:
		return v.Negate(), nil
	case types.Decimal:
		return v.Negate(), nil
	}
	return nil, NewEvalError(ErrType, "cannot negate "+value.Type())
}

// Comparison operators

// Compare orders two values, routing through Quantity conversion when one
// side is a Quantity-shaped ObjectValue (e.g. a FHIR Quantity resource
// element) and the other is an already-typed Quantity.
func Compare(left, right types.Value) (int, error) {
	if obj, ok := left.(*types.ObjectValue); ok {
		if _, isQty := right.(types.Quantity); isQty {
			if q, ok := obj.ToQuantity(); ok {
				return q.Compare(right)
			}
		}
	}
	if obj, ok := right.(*types.ObjectValue); ok {
		if _, isQty := left.(types.Quantity); isQty {
			if q, ok := obj.ToQuantity(); ok {
				if comp, ok := left.(types.Comparable); ok {
					return comp.Compare(q)
				}
			}
		}
	}

	if comp, ok := left.(types.Comparable); ok {
		return comp.Compare(right)
	}
	return 0, InvalidOperationError("compare", left.Type(), right.Type())
}

// compareBool runs Compare and reports its verdict as a FHIRPath boolean
// collection, backing the four ordering operators below.
func compareBool(left, right types.Value, keep func(cmp int) bool) (types.Collection, error) {
	cmp, err := Compare(left, right)
	if err != nil {
		return nil, err
	}
	if keep(cmp) {
		return types.TrueCollection, nil
	}
	return types.FalseCollection, nil
}

func LessThan(left, right types.Value) (types.Collection, error) {
	return compareBool(left, right, func(c int) bool { return c < 0 })
}

func LessOrEqual(left, right types.Value) (types.Collection, error) {
	return compareBool(left, right, func(c int) bool { return c <= 0 })
}

func GreaterThan(left, right types.Value) (types.Collection, error) {
	return compareBool(left, right, func(c int) bool { return c > 0 })
}

func GreaterOrEqual(left, right types.Value) (types.Collection, error) {
	return compareBool(left, right, func(c int) bool { return c >= 0 })
}

// Equality operators

// Equal implements "=": empty propagates, and both sides must be
// singletons to produce a verdict.
func Equal(left, right types.Collection) types.Collection {
	if left.Empty() || right.Empty() {
		return types.EmptyCollection
	}
	if len(left) != 1 || len(right) != 1 {
		return types.EmptyCollection
	}
	if left[0].Equal(right[0]) {
		return types.TrueCollection
	}
	return types.FalseCollection
}

// NotEqual implements "!=" as the negation of Equal, preserving empty
// propagation.
func NotEqual(left, right types.Collection) types.Collection {
	result := Equal(left, right)
	if result.Empty() {
		return result
	}
	if result[0].(types.Boolean).Bool() {
		return types.FalseCollection
	}
	return types.TrueCollection
}

// Equivalent implements "~", which unlike "=" treats empty~empty as true.
func Equivalent(left, right types.Collection) types.Collection {
	if left.Empty() && right.Empty() {
		return types.TrueCollection
	}
	if left.Empty() || right.Empty() {
		return types.FalseCollection
	}
	if len(left) != 1 || len(right) != 1 {
		return types.FalseCollection
	}
	if left[0].Equivalent(right[0]) {
		return types.TrueCollection
	}
	return types.FalseCollection
}

func NotEquivalent(left, right types.Collection) types.Collection {
	result := Equivalent(left, right)
	if result[0].(types.Boolean).Bool() {
		return types.FalseCollection
	}
	return types.TrueCollection
}

// Boolean operators (three-valued logic)

// firstBool returns c's first element as a Boolean, so long as c is
// non-empty and that element actually is one; it does not require c to be
// a singleton (extra elements beyond the first are ignored, matching how
// And/Or/Xor/Implies read their operands).
func firstBool(c types.Collection) (types.Boolean, bool) {
	if c.Empty() {
		return types.Boolean{}, false
	}
	b, ok := c[0].(types.Boolean)
	return b, ok
}

// And implements FHIRPath's three-valued "and": a known false on either
// side short-circuits to false even if the other side is empty.
func And(left, right types.Collection) types.Collection {
	if lb, ok := firstBool(left); ok && !lb.Bool() {
		return types.FalseCollection
	}
	if rb, ok := firstBool(right); ok && !rb.Bool() {
		return types.FalseCollection
	}
	if left.Empty() || right.Empty() {
		return types.EmptyCollection
	}

	lBool, lOk := firstBool(left)
	rBool, rOk := firstBool(right)
	if !lOk || !rOk {
		return types.EmptyCollection
	}
	if lBool.Bool() && rBool.Bool() {
		return types.TrueCollection
	}
	return types.FalseCollection
}

// Or implements FHIRPath's three-valued "or": a known true on either side
// short-circuits to true even if the other side is empty.
func Or(left, right types.Collection) types.Collection {
	if lb, ok := firstBool(left); ok && lb.Bool() {
		return types.TrueCollection
	}
	if rb, ok := firstBool(right); ok && rb.Bool() {
		return types.TrueCollection
	}
	if left.Empty() || right.Empty() {
		return types.EmptyCollection
	}

	lBool, lOk := firstBool(left)
	rBool, rOk := firstBool(right)
	if !lOk || !rOk {
		return types.EmptyCollection
	}
	if lBool.Bool() || rBool.Bool() {
		return types.TrueCollection
	}
	return types.FalseCollection
}

func Xor(left, right types.Collection) types.Collection {
	if left.Empty() || right.Empty() {
		return types.EmptyCollection
	}
	lBool, lOk := firstBool(left)
	rBool, rOk := firstBool(right)
	if !lOk || !rOk {
		return types.EmptyCollection
	}
	if lBool.Bool() != rBool.Bool() {
		return types.TrueCollection
	}
	return types.FalseCollection
}

// Implies implements "implies": a false left, or a true right, settles the
// result even when the other operand is empty.
func Implies(left, right types.Collection) types.Collection {
	if lb, ok := firstBool(left); ok && !lb.Bool() {
		return types.TrueCollection
	}
	if rb, ok := firstBool(right); ok && rb.Bool() {
		return types.TrueCollection
	}
	if left.Empty() || right.Empty() {
		return types.EmptyCollection
	}
	return types.FalseCollection
}

// Not requires an actual singleton, unlike its sibling boolean operators.
func Not(value types.Collection) types.Collection {
	if len(value) != 1 {
		return types.EmptyCollection
	}
	b, ok := value[0].(types.Boolean)
	if !ok {
		return types.EmptyCollection
	}
	if b.Bool() {
		return types.FalseCollection
	}
	return types.TrueCollection
}

// String operators

// Concatenate implements "&", which treats an empty or non-string operand
// as an empty string rather than propagating empty the way "+" does.
func Concatenate(left, right types.Collection) types.Collection {
	strOf := func(c types.Collection) string {
		if c.Empty() {
			return ""
		}
		if s, ok := c[0].(types.String); ok {
			return s.Value()
		}
		return ""
	}
	return types.Collection{types.NewString(strOf(left) + strOf(right))}
}

// Collection operators

func Union(left, right types.Collection) types.Collection {
	return left.Union(right)
}

func In(left, right types.Collection) types.Collection {
	if len(left) != 1 {
		return types.EmptyCollection
	}
	if right.Contains(left[0]) {
		return types.TrueCollection
	}
	return types.FalseCollection
}

func Contains(left, right types.Collection) types.Collection {
	if len(right) != 1 {
		return types.EmptyCollection
	}
	if left.Contains(right[0]) {
		return types.TrueCollection
	}
	return types.FalseCollection
}
