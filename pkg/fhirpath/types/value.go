// Package types implements the FHIRPath value model: the primitive and
// compound types an expression evaluates over (Boolean, String, Integer,
// Decimal, Date, DateTime, Time, Quantity, and FHIR object/collection
// wrappers), plus the equality, ordering, and conversion rules between them.
package types

// Value is satisfied by every FHIRPath runtime value.
type Value interface {
	// Type names the FHIRPath type, e.g. "Boolean" or "Quantity".
	Type() string

	// Equal implements the "=" operator: exact equality.
	Equal(other Value) bool

	// Equivalent implements the "~" operator: a looser match than Equal —
	// case/whitespace-insensitive for strings, precision-insensitive for
	// decimals and temporals.
	Equivalent(other Value) bool

	String() string

	// IsEmpty reports whether this value stands in for FHIRPath's empty
	// collection rather than a concrete value.
	IsEmpty() bool
}

// Comparable is implemented by ordered types (numbers, strings, temporals).
type Comparable interface {
	Value
	// Compare returns -1/0/1, or an error when other's type can't be
	// ordered against the receiver.
	Compare(other Value) (int, error)
}

// Numeric is implemented by Integer and Decimal.
type Numeric interface {
	Value
	ToDecimal() Decimal
}
