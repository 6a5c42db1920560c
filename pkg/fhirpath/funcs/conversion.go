package funcs

import (
	"strconv"
	"strings"

	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
	"github.com/shopspring/decimal"
)

func init() {
	register([]FuncDef{
		{Name: "iif", MinArgs: 2, MaxArgs: 3, Fn: iifFn},
		{Name: "toBoolean", MinArgs: 0, MaxArgs: 0, Fn: toBooleanFn},
		{Name: "convertsToBoolean", MinArgs: 0, MaxArgs: 0, Fn: convertsToBooleanFn},
		{Name: "toInteger", MinArgs: 0, MaxArgs: 0, Fn: toIntegerFn},
		{Name: "convertsToInteger", MinArgs: 0, MaxArgs: 0, Fn: convertsToIntegerFn},
		{Name: "toDecimal", MinArgs: 0, MaxArgs: 0, Fn: toDecimalFn},
		{Name: "convertsToDecimal", MinArgs: 0, MaxArgs: 0, Fn: convertsToDecimalFn},
		{Name: "toString", MinArgs: 0, MaxArgs: 0, Fn: toStringFn},
		{Name: "convertsToString", MinArgs: 0, MaxArgs: 0, Fn: convertsToStringFn},
		{Name: "toDate", MinArgs: 0, MaxArgs: 0, Fn: toDateFn},
		{Name: "convertsToDate", MinArgs: 0, MaxArgs: 0, Fn: convertsToDateFn},
		{Name: "toDateTime", MinArgs: 0, MaxArgs: 0, Fn: toDateTimeFn},
		{Name: "convertsToDateTime", MinArgs: 0, MaxArgs: 0, Fn: convertsToDateTimeFn},
		{Name: "toTime", MinArgs: 0, MaxArgs: 0, Fn: toTimeFn},
		{Name: "convertsToTime", MinArgs: 0, MaxArgs: 0, Fn: convertsToTimeFn},
		{Name: "toQuantity", MinArgs: 0, MaxArgs: 1, Fn: toQuantityFn},
		{Name: "convertsToQuantity", MinArgs: 0, MaxArgs: 1, Fn: convertsToQuantityFn},
	})
}

// iifFn implements the registry fallback for iif(condition, true-result,
// false-result?): the evaluator ordinarily special-cases iif so that the
// unchosen branch is never evaluated, but a caller reaching this directly
// (both branches already materialized as collections) still gets correct
// selection.
func iifFn(_ *eval.Context, _ types.Collection, args []interface{}) (types.Collection, error) {
	condition := false
	if cond, ok := args[0].(types.Collection); ok && !cond.Empty() {
		if b, ok := cond[0].(types.Boolean); ok {
			condition = b.Bool()
		}
	}

	branch := args[1]
	if !condition {
		if len(args) < 3 {
			return types.Collection{}, nil
		}
		branch = args[2]
	}
	if result, ok := branch.(types.Collection); ok {
		return result, nil
	}
	return types.Collection{}, nil
}

// trueWords and falseWords are the string forms FHIRPath accepts for
// toBoolean()/convertsToBoolean() string conversion, per the spec's
// boolean-equivalent literal table.
var trueWords = map[string]bool{"true": true, "t": true, "yes": true, "y": true, "1": true, "1.0": true}
var falseWords = map[string]bool{"false": true, "f": true, "no": true, "n": true, "0": true, "0.0": true}

func toBooleanFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Boolean:
		return types.Collection{v}, nil
	case types.String:
		word := strings.ToLower(v.Value())
		switch {
		case trueWords[word]:
			return types.Collection{types.NewBoolean(true)}, nil
		case falseWords[word]:
			return types.Collection{types.NewBoolean(false)}, nil
		default:
			return types.Collection{}, nil
		}
	case types.Integer:
		switch v.Value() {
		case 1:
			return types.Collection{types.NewBoolean(true)}, nil
		case 0:
			return types.Collection{types.NewBoolean(false)}, nil
		default:
			return types.Collection{}, nil
		}
	case types.Decimal:
		switch {
		case v.Value().Equal(decimal.NewFromInt(1)):
			return types.Collection{types.NewBoolean(true)}, nil
		case v.Value().Equal(decimal.NewFromInt(0)):
			return types.Collection{types.NewBoolean(false)}, nil
		default:
			return types.Collection{}, nil
		}
	default:
		return types.Collection{}, nil
	}
}

func convertsToBooleanFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewBoolean(false)}, nil
	}
	switch v := input[0].(type) {
	case types.Boolean:
		return types.Collection{types.NewBoolean(true)}, nil
	case types.String:
		word := strings.ToLower(v.Value())
		return boolCollection(trueWords[word] || falseWords[word]), nil
	case types.Integer:
		return boolCollection(v.Value() == 0 || v.Value() == 1), nil
	case types.Decimal:
		return boolCollection(v.Value().Equal(decimal.NewFromInt(0)) || v.Value().Equal(decimal.NewFromInt(1))), nil
	default:
		return types.Collection{types.NewBoolean(false)}, nil
	}
}

func toIntegerFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Integer:
		return types.Collection{v}, nil
	case types.Boolean:
		return types.Collection{types.NewInteger(boolToInt(v.Bool()))}, nil
	case types.String:
		i, err := strconv.ParseInt(v.Value(), 10, 64)
		if err != nil {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(i)}, nil
	case types.Decimal:
		return types.Collection{types.NewInteger(v.Value().IntPart())}, nil
	default:
		return types.Collection{}, nil
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func convertsToIntegerFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewBoolean(false)}, nil
	}
	switch v := input[0].(type) {
	case types.Integer, types.Boolean, types.Decimal:
		return types.Collection{types.NewBoolean(true)}, nil
	case types.String:
		_, err := strconv.ParseInt(v.Value(), 10, 64)
		return boolCollection(err == nil), nil
	default:
		return types.Collection{types.NewBoolean(false)}, nil
	}
}

func toDecimalFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Decimal:
		return types.Collection{v}, nil
	case types.Integer:
		return types.Collection{types.NewDecimalFromInt(v.Value())}, nil
	case types.Boolean:
		return types.Collection{types.NewDecimalFromInt(boolToInt(v.Bool()))}, nil
	case types.String:
		d, err := types.NewDecimal(v.Value())
		if err != nil {
			return types.Collection{}, nil
		}
		return types.Collection{d}, nil
	default:
		return types.Collection{}, nil
	}
}

func convertsToDecimalFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewBoolean(false)}, nil
	}
	switch v := input[0].(type) {
	case types.Decimal, types.Integer, types.Boolean:
		return types.Collection{types.NewBoolean(true)}, nil
	case types.String:
		_, err := decimal.NewFromString(v.Value())
		return boolCollection(err == nil), nil
	default:
		return types.Collection{types.NewBoolean(false)}, nil
	}
}

func toStringFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewString(input[0].String())}, nil
}

func convertsToStringFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewBoolean(false)}, nil
	}
	switch input[0].(type) {
	case types.String, types.Boolean, types.Integer, types.Decimal:
		return types.Collection{types.NewBoolean(true)}, nil
	default:
		return types.Collection{types.NewBoolean(false)}, nil
	}
}

func toDateFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Date:
		return types.Collection{v}, nil
	case types.DateTime:
		d, _ := types.NewDate(v.String()[:10])
		return types.Collection{d}, nil
	case types.String:
		d, err := types.NewDate(v.Value())
		if err != nil {
			return types.Collection{}, nil
		}
		return types.Collection{d}, nil
	default:
		return types.Collection{}, nil
	}
}

// convertsToDateFn only checks that the input is a String: it doesn't
// attempt the parse toDateFn does, so a malformed date string reports
// convertible here yet converts to empty via toDate.
func convertsToDateFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewBoolean(false)}, nil
	}
	_, ok := input[0].(types.String)
	return boolCollection(ok), nil
}

func toDateTimeFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if s, ok := input[0].(types.String); ok {
		return types.Collection{s}, nil
	}
	return types.Collection{}, nil
}

func convertsToDateTimeFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewBoolean(false)}, nil
	}
	_, ok := input[0].(types.String)
	return boolCollection(ok), nil
}

func toTimeFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if s, ok := input[0].(types.String); ok {
		return types.Collection{s}, nil
	}
	return types.Collection{}, nil
}

func convertsToTimeFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewBoolean(false)}, nil
	}
	_, ok := input[0].(types.String)
	return boolCollection(ok), nil
}

// quantityUnitArg reads the optional unit string passed to
// toQuantity()/convertsToQuantity().
func quantityUnitArg(args []interface{}) string {
	if len(args) == 0 {
		return ""
	}
	col, ok := args[0].(types.Collection)
	if !ok || col.Empty() {
		return ""
	}
	s, ok := col[0].(types.String)
	if !ok {
		return ""
	}
	return s.Value()
}

func toQuantityFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	unit := quantityUnitArg(args)

	switch v := input[0].(type) {
	case types.Quantity:
		return types.Collection{v}, nil
	case types.Integer:
		return types.Collection{types.NewQuantityFromDecimal(decimal.NewFromInt(v.Value()), unit)}, nil
	case types.Decimal:
		return types.Collection{types.NewQuantityFromDecimal(v.Value(), unit)}, nil
	case types.String:
		q, err := types.NewQuantity(v.Value())
		if err != nil {
			return types.Collection{}, nil
		}
		return types.Collection{q}, nil
	default:
		return types.Collection{}, nil
	}
}

func convertsToQuantityFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewBoolean(false)}, nil
	}
	switch v := input[0].(type) {
	case types.Quantity, types.Integer, types.Decimal:
		return types.Collection{types.NewBoolean(true)}, nil
	case types.String:
		_, err := types.NewQuantity(v.Value())
		return boolCollection(err == nil), nil
	default:
		return types.Collection{types.NewBoolean(false)}, nil
	}
}
