package funcs

import (
	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

func init() {
	register([]FuncDef{
		{Name: "where", MinArgs: 1, MaxArgs: 1, Fn: whereFn},
		{Name: "select", MinArgs: 1, MaxArgs: 1, Fn: selectFn},
		{Name: "repeat", MinArgs: 1, MaxArgs: 1, Fn: repeatFn},
		{Name: "ofType", MinArgs: 1, MaxArgs: 1, Fn: ofTypeFn},
	})
}

// whereFn is the registry fallback for "where"; the evaluator always
// special-cases the single-argument call through evaluateWhere, but if it
// instead hands this Fn an already-evaluated per-item boolean collection
// (args[0]), filter input against it directly.
func whereFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	criteria, ok := args[0].(types.Collection)
	if !ok {
		return input, nil
	}
	var kept types.Collection
	for i, item := range input {
		if i >= len(criteria) {
			break
		}
		if b, ok := criteria[i].(types.Boolean); ok && b.Bool() {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

// selectFn is the registry fallback for "select"; reachable only if args[0]
// arrives as an already-flattened projection collection.
func selectFn(_ *eval.Context, _ types.Collection, args []interface{}) (types.Collection, error) {
	if results, ok := args[0].(types.Collection); ok {
		return results, nil
	}
	return types.Collection{}, nil
}

// repeatFn is not special-cased by the evaluator, so it always runs
// exactly as registered here; it passes its input through unchanged
// rather than performing the repeated-application semantics `repeat`
// documents.
func repeatFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return input, nil
}

// ofTypeFn is the registry fallback for "ofType"; reachable only if the
// evaluator hands it an already-resolved type name instead of dispatching
// through evaluateOfType.
func ofTypeFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	typeName := argTypeName(args[0])
	if typeName == "" {
		return types.Collection{}, nil
	}
	var kept types.Collection
	for _, item := range input {
		if item.Type() == typeName {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

// argTypeName extracts a type-name string from a function argument that
// may arrive as a raw string, a String value, or a singleton collection
// wrapping either.
func argTypeName(arg interface{}) string {
	switch v := arg.(type) {
	case types.Collection:
		if len(v) == 0 {
			return ""
		}
		if s, ok := v[0].(types.String); ok {
			return s.Value()
		}
		return ""
	case types.String:
		return v.Value()
	case string:
		return v
	default:
		return ""
	}
}
