package common

import "encoding/json"

// jsonRoundTrip is the shared deep-copy mechanism behind Clone/CloneSlice/
// CloneMap: marshal then unmarshal into a fresh value of the same type.
// Reliable for anything JSON-tagged (which every FHIR resource type is),
// at the cost of losing unexported fields and types json can't represent.
func jsonRoundTrip[T any](v T) (T, error) {
	var clone T
	data, err := json.Marshal(v)
	if err != nil {
		return clone, err
	}
	err = json.Unmarshal(data, &clone)
	return clone, err
}

// Clone deep-copies v via JSON round-trip.
//
//	patient2 := common.Clone(patient)
//	patient2.ID = common.String("new-id") // doesn't affect original
func Clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	clone, err := jsonRoundTrip(*v)
	if err != nil {
		return nil
	}
	return &clone
}

// CloneSlice deep-copies a slice of values via JSON round-trip.
func CloneSlice[T any](slice []T) []T {
	if slice == nil {
		return nil
	}
	if len(slice) == 0 {
		return []T{}
	}
	clone, err := jsonRoundTrip(slice)
	if err != nil {
		return nil
	}
	return clone
}

// CloneMap deep-copies a map via JSON round-trip.
func CloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	if len(m) == 0 {
		return make(map[K]V)
	}
	clone, err := jsonRoundTrip(m)
	if err != nil {
		return nil
	}
	return clone
}
