package funcs

import (
	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

func init() {
	register([]FuncDef{
		{Name: "empty", MinArgs: 0, MaxArgs: 0, Fn: emptyFn},
		{Name: "exists", MinArgs: 0, MaxArgs: 1, Fn: existsFn},
		{Name: "all", MinArgs: 1, MaxArgs: 1, Fn: allFn},
		{Name: "allTrue", MinArgs: 0, MaxArgs: 0, Fn: allTrueFn},
		{Name: "anyTrue", MinArgs: 0, MaxArgs: 0, Fn: anyTrueFn},
		{Name: "allFalse", MinArgs: 0, MaxArgs: 0, Fn: allFalseFn},
		{Name: "anyFalse", MinArgs: 0, MaxArgs: 0, Fn: anyFalseFn},
		{Name: "count", MinArgs: 0, MaxArgs: 0, Fn: countFn},
		{Name: "distinct", MinArgs: 0, MaxArgs: 0, Fn: distinctFn},
		{Name: "isDistinct", MinArgs: 0, MaxArgs: 0, Fn: isDistinctFn},
		{Name: "subsetOf", MinArgs: 1, MaxArgs: 1, Fn: subsetOfFn},
		{Name: "supersetOf", MinArgs: 1, MaxArgs: 1, Fn: supersetOfFn},
	})
}

func emptyFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolCollection(input.Empty()), nil
}

// existsFn handles the no-argument form, reporting whether input is
// non-empty. The one-argument form (`exists(criteria)`) never reaches
// here: the evaluator special-cases it through evaluateExists.
func existsFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolCollection(!input.Empty()), nil
}

// allFn is unreachable in practice: "all" requires exactly one argument,
// and the evaluator always special-cases that call through evaluateAll
// before consulting the registry's Fn. It's kept registered so Has("all")
// and List() still report the function as known.
func allFn(_ *eval.Context, _ types.Collection, _ []interface{}) (types.Collection, error) {
	return types.TrueCollection, nil
}

func allTrueFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolCollection(input.Empty() || input.AllTrue()), nil
}

func anyTrueFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolCollection(!input.Empty() && input.AnyTrue()), nil
}

func allFalseFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolCollection(input.Empty() || input.AllFalse()), nil
}

func anyFalseFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolCollection(!input.Empty() && input.AnyFalse()), nil
}

func countFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return types.Collection{types.GetInteger(int64(input.Count()))}, nil
}

func distinctFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return input.Distinct(), nil
}

func isDistinctFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolCollection(input.IsDistinct()), nil
}

// subsetOfFn reports whether every item of input also occurs in other.
func subsetOfFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	other, err := requireCollection("subsetOf", args)
	if err != nil {
		return nil, err
	}
	for _, item := range input {
		if !other.Contains(item) {
			return types.FalseCollection, nil
		}
	}
	return types.TrueCollection, nil
}

// supersetOfFn reports whether every item of other also occurs in input.
func supersetOfFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	other, err := requireCollection("supersetOf", args)
	if err != nil {
		return nil, err
	}
	for _, item := range other {
		if !input.Contains(item) {
			return types.FalseCollection, nil
		}
	}
	return types.TrueCollection, nil
}
