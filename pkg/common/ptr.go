package common

// Pointer helpers for the optional scalar fields FHIR resources are full
// of. Named per-type rather than a single generic Ptr/Deref pair so call
// sites (common.String("x"), common.BoolVal(active)) read naturally without
// type arguments.

func String(s string) *string { return &s }

func StringVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func Bool(b bool) *bool { return &b }

func BoolVal(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

func Int(i int) *int { return &i }

func IntVal(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func Int64(i int64) *int64 { return &i }

func Int64Val(i *int64) int64 {
	if i == nil {
		return 0
	}
	return *i
}

func Uint32(i uint32) *uint32 { return &i }

func Uint32Val(i *uint32) uint32 {
	if i == nil {
		return 0
	}
	return *i
}

func Float64(f float64) *float64 { return &f }

func Float64Val(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
