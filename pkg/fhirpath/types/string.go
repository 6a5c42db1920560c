package types

import "strings"

// String is the FHIRPath String primitive.
type String struct {
	value string
}

func NewString(v string) String {
	return String{value: v}
}

func (s String) Value() string {
	return s.value
}

func (String) Type() string {
	return "String"
}

func (s String) Equal(other Value) bool {
	o, ok := other.(String)
	return ok && s.value == o.value
}

// Equivalent matches strings case-insensitively and collapses runs of
// whitespace, ignoring leading/trailing whitespace entirely.
func (s String) Equivalent(other Value) bool {
	o, ok := other.(String)
	return ok && normalizeForEquivalence(s.value) == normalizeForEquivalence(o.value)
}

func normalizeForEquivalence(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (s String) String() string {
	return s.value
}

func (s String) IsEmpty() bool {
	return s.value == ""
}

func (s String) Length() int {
	return len([]rune(s.value))
}

func (s String) Contains(substr string) bool {
	return strings.Contains(s.value, substr)
}

func (s String) StartsWith(prefix string) bool {
	return strings.HasPrefix(s.value, prefix)
}

func (s String) EndsWith(suffix string) bool {
	return strings.HasSuffix(s.value, suffix)
}

func (s String) Upper() String {
	return NewString(strings.ToUpper(s.value))
}

func (s String) Lower() String {
	return NewString(strings.ToLower(s.value))
}

func (s String) Compare(other Value) (int, error) {
	o, ok := other.(String)
	if !ok {
		return 0, NewTypeError("String", other.Type(), "comparison")
	}
	return strings.Compare(s.value, o.value), nil
}

func (s String) IndexOf(substr string) int {
	return strings.Index(s.value, substr)
}

// Substring returns the length runes of s starting at start, clamped to
// the string's bounds; start outside the string yields "".
func (s String) Substring(start, length int) String {
	runes := []rune(s.value)
	if start < 0 || start >= len(runes) {
		return NewString("")
	}
	end := start + length
	if end > len(runes) {
		end = len(runes)
	}
	return NewString(string(runes[start:end]))
}

func (s String) Replace(old, replacement string) String {
	return NewString(strings.ReplaceAll(s.value, old, replacement))
}

func (s String) ToChars() Collection {
	runes := []rune(s.value)
	out := make(Collection, len(runes))
	for i, r := range runes {
		out[i] = NewString(string(r))
	}
	return out
}
