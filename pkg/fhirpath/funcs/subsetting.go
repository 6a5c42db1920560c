package funcs

import (
	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

func init() {
	register([]FuncDef{
		{Name: "first", MinArgs: 0, MaxArgs: 0, Fn: firstFn},
		{Name: "last", MinArgs: 0, MaxArgs: 0, Fn: lastFn},
		{Name: "tail", MinArgs: 0, MaxArgs: 0, Fn: tailFn},
		{Name: "skip", MinArgs: 1, MaxArgs: 1, Fn: skipFn},
		{Name: "take", MinArgs: 1, MaxArgs: 1, Fn: takeFn},
		{Name: "single", MinArgs: 0, MaxArgs: 0, Fn: singleFn},
		{Name: "intersect", MinArgs: 1, MaxArgs: 1, Fn: intersectFn},
		{Name: "exclude", MinArgs: 1, MaxArgs: 1, Fn: excludeFn},
	})
}

func firstFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	first, ok := input.First()
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{first}, nil
}

func lastFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	last, ok := input.Last()
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{last}, nil
}

func tailFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return input.Tail(), nil
}

// skipFn drops the first n items of input.
func skipFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	n, err := toInteger(args[0])
	if err != nil {
		return nil, err
	}
	return input.Skip(int(n)), nil
}

// takeFn keeps only the first n items of input.
func takeFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	n, err := toInteger(args[0])
	if err != nil {
		return nil, err
	}
	return input.Take(int(n)), nil
}

func singleFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	item, err := input.Single()
	if err != nil {
		return nil, eval.NewEvalError(eval.ErrSingletonExpected, err.Error())
	}
	return types.Collection{item}, nil
}

func intersectFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	other, err := requireCollection("intersect", args)
	if err != nil {
		return nil, err
	}
	return input.Intersect(other), nil
}

func excludeFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	other, err := requireCollection("exclude", args)
	if err != nil {
		return nil, err
	}
	return input.Exclude(other), nil
}
