package types

import (
	"fmt"
	"strings"
)

// Collection is an ordered sequence of Values — the universal result type
// every FHIRPath expression evaluates to, including singletons (a
// one-element Collection) and the empty result ({}).
type Collection []Value

func (c Collection) Empty() bool {
	return len(c) == 0
}

func (c Collection) Count() int {
	return len(c)
}

func (c Collection) First() (Value, bool) {
	if len(c) == 0 {
		return nil, false
	}
	return c[0], true
}

func (c Collection) Last() (Value, bool) {
	if len(c) == 0 {
		return nil, false
	}
	return c[len(c)-1], true
}

// Single unwraps a one-element Collection, erroring on any other length.
func (c Collection) Single() (Value, error) {
	switch len(c) {
	case 0:
		return nil, fmt.Errorf("expected single value, got empty collection")
	case 1:
		return c[0], nil
	default:
		return nil, fmt.Errorf("expected single value, got %d elements", len(c))
	}
}

func (c Collection) Tail() Collection {
	if len(c) <= 1 {
		return Collection{}
	}
	return c[1:]
}

func (c Collection) Skip(n int) Collection {
	switch {
	case n >= len(c):
		return Collection{}
	case n <= 0:
		return c
	default:
		return c[n:]
	}
}

func (c Collection) Take(n int) Collection {
	switch {
	case n <= 0:
		return Collection{}
	case n >= len(c):
		return c
	default:
		return c[:n]
	}
}

func (c Collection) Contains(v Value) bool {
	for _, item := range c {
		if item.Equal(v) {
			return true
		}
	}
	return false
}

// Distinct drops later duplicates, keeping each value's first occurrence.
func (c Collection) Distinct() Collection {
	if len(c) <= 1 {
		return c
	}
	out := make(Collection, 0, len(c))
	for _, item := range c {
		if !out.Contains(item) {
			out = append(out, item)
		}
	}
	return out
}

func (c Collection) IsDistinct() bool {
	return len(c) == len(c.Distinct())
}

// filterAgainst builds a new collection from c's items selected by keep,
// which is told whether the item is also present in other. It backs
// Union, Intersect, and Exclude, which differ only in that predicate.
func (c Collection) filterAgainst(other Collection, dedupe bool, keep func(inOther bool) bool) Collection {
	out := make(Collection, 0, len(c))
	for _, item := range c {
		if keep(other.Contains(item)) && (!dedupe || !out.Contains(item)) {
			out = append(out, item)
		}
	}
	return out
}

// Union concatenates c and other with duplicates removed.
func (c Collection) Union(other Collection) Collection {
	out := make(Collection, 0, len(c)+len(other))
	out = append(out, c...)
	for _, item := range other {
		if !out.Contains(item) {
			out = append(out, item)
		}
	}
	return out
}

// Combine concatenates c and other, duplicates included.
func (c Collection) Combine(other Collection) Collection {
	out := make(Collection, 0, len(c)+len(other))
	out = append(out, c...)
	out = append(out, other...)
	return out
}

// Intersect returns c's items that also appear in other.
func (c Collection) Intersect(other Collection) Collection {
	return c.filterAgainst(other, true, func(inOther bool) bool { return inOther })
}

// Exclude returns c's items that don't appear in other.
func (c Collection) Exclude(other Collection) Collection {
	return c.filterAgainst(other, false, func(inOther bool) bool { return !inOther })
}

func (c Collection) String() string {
	if len(c) == 0 {
		return "[]"
	}
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ToBoolean unwraps a singleton Boolean collection, erroring on any other
// shape or element type.
func (c Collection) ToBoolean() (bool, error) {
	switch len(c) {
	case 0:
		return false, fmt.Errorf("cannot convert empty collection to boolean")
	case 1:
		b, ok := c[0].(Boolean)
		if !ok {
			return false, fmt.Errorf("cannot convert %s to boolean", c[0].Type())
		}
		return b.Bool(), nil
	default:
		return false, fmt.Errorf("cannot convert collection with %d elements to boolean", len(c))
	}
}

func (c Collection) AllTrue() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); !ok || !b.Bool() {
			return false
		}
	}
	return true
}

func (c Collection) AnyTrue() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); ok && b.Bool() {
			return true
		}
	}
	return false
}

func (c Collection) AllFalse() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); !ok || b.Bool() {
			return false
		}
	}
	return true
}

func (c Collection) AnyFalse() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); ok && !b.Bool() {
			return true
		}
	}
	return false
}
