package types

import "strconv"

// Boolean is the FHIRPath Boolean primitive.
type Boolean struct {
	b bool
}

func NewBoolean(v bool) Boolean {
	return Boolean{b: v}
}

func (b Boolean) Bool() bool {
	return b.b
}

func (Boolean) Type() string {
	return "Boolean"
}

func (b Boolean) Equal(other Value) bool {
	o, ok := other.(Boolean)
	return ok && b.b == o.b
}

// Equivalent has no special rule for Boolean beyond exact equality.
func (b Boolean) Equivalent(other Value) bool {
	return b.Equal(other)
}

func (b Boolean) String() string {
	return strconv.FormatBool(b.b)
}

func (Boolean) IsEmpty() bool {
	return false
}

func (b Boolean) Not() Boolean {
	return Boolean{b: !b.b}
}
