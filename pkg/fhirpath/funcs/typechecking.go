// Package funcs provides FHIRPath function implementations.
package funcs

import (
	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

// is(type) and as(type) are ordinarily intercepted by the evaluator
// directly off the call's AST, since a bare type name like Patient or
// HumanName must be read as a literal, not evaluated as a path expression.
// isTypeFn is registered as the fallback for callers that reach the
// registry anyway.
func init() {
	register([]FuncDef{
		{Name: "is", MinArgs: 1, MaxArgs: 1, Fn: isTypeFn},
	})
}

func isTypeFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if len(input) != 1 {
		return nil, eval.SingletonError(len(input))
	}

	typeName := argTypeName(args[0])
	if typeName == "" {
		return types.Collection{}, nil
	}

	return boolCollection(eval.TypeMatches(input[0].Type(), typeName)), nil
}
