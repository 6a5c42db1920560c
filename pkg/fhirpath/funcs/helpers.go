package funcs

import (
	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

// boolCollection wraps b as the cached singleton boolean collection, so
// callers never allocate a fresh Collection just to report true/false.
func boolCollection(b bool) types.Collection {
	if b {
		return types.TrueCollection
	}
	return types.FalseCollection
}

// requireArg returns the function's first argument, or an arity error
// naming fn if none was supplied.
func requireArg(fn string, args []interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError(fn, 1, 0)
	}
	return args[0], nil
}

// requireCollection returns the function's first argument as a
// types.Collection, failing with fn's name on arity or type mismatch.
func requireCollection(fn string, args []interface{}) (types.Collection, error) {
	arg, err := requireArg(fn, args)
	if err != nil {
		return nil, err
	}
	coll, ok := arg.(types.Collection)
	if !ok {
		return nil, eval.TypeError("Collection", "unknown", fn)
	}
	return coll, nil
}

// toInteger coerces a function argument to int64: a bare Integer, a
// singleton collection holding one, or a Go int/int64 literal.
func toInteger(arg interface{}) (int64, error) {
	switch v := arg.(type) {
	case types.Collection:
		if v.Empty() {
			return 0, eval.NewEvalError(eval.ErrType, "expected integer, got empty collection")
		}
		if i, ok := v[0].(types.Integer); ok {
			return i.Value(), nil
		}
		return 0, eval.TypeError("Integer", v[0].Type(), "argument")
	case types.Integer:
		return v.Value(), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, eval.NewEvalError(eval.ErrType, "expected integer")
	}
}
