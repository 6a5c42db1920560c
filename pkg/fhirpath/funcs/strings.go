package funcs

import (
	"strings"

	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

func init() {
	register([]FuncDef{
		{Name: "startsWith", MinArgs: 1, MaxArgs: 1, Fn: startsWithFn},
		{Name: "endsWith", MinArgs: 1, MaxArgs: 1, Fn: endsWithFn},
		{Name: "contains", MinArgs: 1, MaxArgs: 1, Fn: containsFn},
		{Name: "replace", MinArgs: 2, MaxArgs: 2, Fn: replaceFn},
		{Name: "matches", MinArgs: 1, MaxArgs: 1, Fn: matchesFn},
		{Name: "replaceMatches", MinArgs: 2, MaxArgs: 2, Fn: replaceMatchesFn},
		{Name: "indexOf", MinArgs: 1, MaxArgs: 1, Fn: indexOfFn},
		{Name: "substring", MinArgs: 1, MaxArgs: 2, Fn: substringFn},
		{Name: "lower", MinArgs: 0, MaxArgs: 0, Fn: lowerFn},
		{Name: "upper", MinArgs: 0, MaxArgs: 0, Fn: upperFn},
		{Name: "toChars", MinArgs: 0, MaxArgs: 0, Fn: toCharsFn},
		{Name: "split", MinArgs: 1, MaxArgs: 1, Fn: splitFn},
		{Name: "join", MinArgs: 0, MaxArgs: 1, Fn: joinFn},
		{Name: "trim", MinArgs: 0, MaxArgs: 0, Fn: trimFn},
		{Name: "length", MinArgs: 0, MaxArgs: 0, Fn: lengthFn},
	})
}

// singletonString reads a string out of a collection's first element,
// stringifying non-String values rather than rejecting them; further
// elements are ignored.
func singletonString(col types.Collection) (string, bool) {
	if col.Empty() {
		return "", false
	}
	if s, ok := col[0].(types.String); ok {
		return s.Value(), true
	}
	return col[0].String(), true
}

// toStringArg reads a string from a function argument, whichever shape it
// arrived in: a bare Go string, a types.String, or a singleton collection.
func toStringArg(arg interface{}) (string, bool) {
	switch v := arg.(type) {
	case types.Collection:
		return singletonString(v)
	case types.String:
		return v.Value(), true
	case string:
		return v, true
	default:
		return "", false
	}
}

// stringBinaryOp covers the startsWith/endsWith/contains family: a single
// string argument compared against input via cmp.
func stringBinaryOp(input types.Collection, args []interface{}, cmp func(s, arg string) bool) (types.Collection, error) {
	str, ok := singletonString(input)
	if !ok {
		return types.Collection{}, nil
	}
	arg, ok := toStringArg(args[0])
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewBoolean(cmp(str, arg))}, nil
}

func startsWithFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	return stringBinaryOp(input, args, strings.HasPrefix)
}

func endsWithFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	return stringBinaryOp(input, args, strings.HasSuffix)
}

func containsFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	return stringBinaryOp(input, args, strings.Contains)
}

func replaceFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	str, ok := singletonString(input)
	if !ok {
		return types.Collection{}, nil
	}
	pattern, ok := toStringArg(args[0])
	if !ok {
		return types.Collection{}, nil
	}
	substitution, ok := toStringArg(args[1])
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewString(strings.ReplaceAll(str, pattern, substitution))}, nil
}

// matchesFn reports whether input matches the regex in args[0], compiled
// and run through DefaultRegexCache so a pathological pattern or a very
// long subject can't hang the evaluation.
func matchesFn(ctx *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	str, ok := singletonString(input)
	if !ok {
		return types.Collection{}, nil
	}
	pattern, ok := toStringArg(args[0])
	if !ok {
		return types.Collection{}, nil
	}
	matched, err := DefaultRegexCache.MatchWithTimeout(ctx.Context(), pattern, str)
	if err != nil {
		return nil, err
	}
	return types.Collection{types.NewBoolean(matched)}, nil
}

func replaceMatchesFn(ctx *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	str, ok := singletonString(input)
	if !ok {
		return types.Collection{}, nil
	}
	pattern, ok := toStringArg(args[0])
	if !ok {
		return types.Collection{}, nil
	}
	substitution, ok := toStringArg(args[1])
	if !ok {
		return types.Collection{}, nil
	}
	result, err := DefaultRegexCache.ReplaceWithTimeout(ctx.Context(), pattern, str, substitution)
	if err != nil {
		return nil, err
	}
	return types.Collection{types.NewString(result)}, nil
}

func indexOfFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	str, ok := singletonString(input)
	if !ok {
		return types.Collection{}, nil
	}
	substr, ok := toStringArg(args[0])
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewInteger(int64(strings.Index(str, substr)))}, nil
}

func substringFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	str, ok := singletonString(input)
	if !ok {
		return types.Collection{}, nil
	}
	start, err := toInteger(args[0])
	if err != nil {
		return nil, err
	}
	if start < 0 || int(start) >= len(str) {
		return types.Collection{}, nil
	}

	if len(args) <= 1 {
		return types.Collection{types.NewString(str[start:])}, nil
	}
	length, err := toInteger(args[1])
	if err != nil {
		return nil, err
	}
	end := int(start + length)
	if end > len(str) {
		end = len(str)
	}
	return types.Collection{types.NewString(str[start:end])}, nil
}

func lowerFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	str, ok := singletonString(input)
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewString(strings.ToLower(str))}, nil
}

func upperFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	str, ok := singletonString(input)
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewString(strings.ToUpper(str))}, nil
}

func toCharsFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	str, ok := singletonString(input)
	if !ok {
		return types.Collection{}, nil
	}
	out := types.Collection{}
	for _, ch := range str {
		out = append(out, types.NewString(string(ch)))
	}
	return out, nil
}

func splitFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	str, ok := singletonString(input)
	if !ok {
		return types.Collection{}, nil
	}
	separator, ok := toStringArg(args[0])
	if !ok {
		return types.Collection{}, nil
	}
	out := types.Collection{}
	for _, part := range strings.Split(str, separator) {
		out = append(out, types.NewString(part))
	}
	return out, nil
}

func joinFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewString("")}, nil
	}
	separator := ""
	if len(args) > 0 {
		if sep, ok := toStringArg(args[0]); ok {
			separator = sep
		}
	}
	parts := make([]string, 0, len(input))
	for _, item := range input {
		if s, ok := item.(types.String); ok {
			parts = append(parts, s.Value())
		} else {
			parts = append(parts, item.String())
		}
	}
	return types.Collection{types.NewString(strings.Join(parts, separator))}, nil
}

func trimFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	str, ok := singletonString(input)
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewString(strings.TrimSpace(str))}, nil
}

func lengthFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	str, ok := singletonString(input)
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewInteger(int64(len(str)))}, nil
}
