package funcs

import (
	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

func init() {
	register([]FuncDef{
		{Name: "aggregate", MinArgs: 1, MaxArgs: 2, Fn: aggregateFn},
		{Name: "children", MinArgs: 0, MaxArgs: 0, Fn: childrenFn},
		{Name: "descendants", MinArgs: 0, MaxArgs: 0, Fn: descendantsFn},
		{Name: "not", MinArgs: 0, MaxArgs: 0, Fn: notFn},
		{Name: "hasValue", MinArgs: 0, MaxArgs: 0, Fn: hasValueFn},
		{Name: "getValue", MinArgs: 0, MaxArgs: 0, Fn: getValueFn},
		{Name: "combine", MinArgs: 1, MaxArgs: 1, Fn: combineFn},
		{Name: "union", MinArgs: 1, MaxArgs: 1, Fn: unionFn},
		{Name: "as", MinArgs: 1, MaxArgs: 1, Fn: asFn},
	})
}

// isPrimitive reports whether v is one of FHIRPath's primitive value
// kinds, the set hasValue/getValue operate over.
func isPrimitive(v types.Value) bool {
	switch v.(type) {
	case types.Boolean, types.String, types.Integer, types.Decimal,
		types.Date, types.DateTime, types.Time:
		return true
	default:
		return false
	}
}

// aggregateFn is a stub: full aggregate(aggregator, init?) semantics need
// $total/$this binding per iteration, which only the evaluator can supply.
// Until that lambda wiring exists this just echoes an explicit init value,
// or an empty collection with none.
func aggregateFn(_ *eval.Context, _ types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) > 1 {
		if init, ok := args[1].(types.Collection); ok {
			return init, nil
		}
	}
	return types.Collection{}, nil
}

func childrenFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	var out types.Collection
	for _, item := range input {
		if obj, ok := item.(*types.ObjectValue); ok {
			out = append(out, obj.Children()...)
		}
	}
	return out, nil
}

// descendantsFn walks the object tree breadth-first-ish via recursion,
// deduping by identity so a diamond-shaped reference graph doesn't repeat
// a node.
func descendantsFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	var out types.Collection
	seen := make(map[types.Value]bool)

	var walk func(items types.Collection)
	walk = func(items types.Collection) {
		for _, item := range items {
			if seen[item] {
				continue
			}
			seen[item] = true
			obj, ok := item.(*types.ObjectValue)
			if !ok {
				continue
			}
			children := obj.Children()
			out = append(out, children...)
			walk(children)
		}
	}
	walk(input)
	return out, nil
}

func notFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	b, ok := input[0].(types.Boolean)
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewBoolean(!b.Bool())}, nil
}

func hasValueFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	for _, item := range input {
		if isPrimitive(item) {
			return types.Collection{types.NewBoolean(true)}, nil
		}
	}
	return types.Collection{types.NewBoolean(false)}, nil
}

func getValueFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	var out types.Collection
	for _, item := range input {
		if isPrimitive(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func combineFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	out := make(types.Collection, len(input))
	copy(out, input)
	if other, ok := args[0].(types.Collection); ok {
		out = append(out, other...)
	}
	return out, nil
}

func unionFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	arg, err := requireArg("union", args)
	if err != nil {
		return nil, err
	}
	other, ok := arg.(types.Collection)
	if !ok {
		return input, nil
	}
	return input.Union(other), nil
}

// asFn implements the registry fallback for the "as" type-cast operator:
// keep only items whose runtime type name matches the requested one.
func asFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	typeName := argTypeName(args[0])
	if typeName == "" || input.Empty() {
		return types.Collection{}, nil
	}
	var out types.Collection
	for _, item := range input {
		if item.Type() == typeName {
			out = append(out, item)
		}
	}
	return out, nil
}
