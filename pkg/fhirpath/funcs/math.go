package funcs

import (
	"math"

	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
	"github.com/shopspring/decimal"
)

func init() {
	register([]FuncDef{
		{Name: "abs", MinArgs: 0, MaxArgs: 0, Fn: absFn},
		{Name: "ceiling", MinArgs: 0, MaxArgs: 0, Fn: ceilingFn},
		{Name: "exp", MinArgs: 0, MaxArgs: 0, Fn: expFn},
		{Name: "floor", MinArgs: 0, MaxArgs: 0, Fn: floorFn},
		{Name: "ln", MinArgs: 0, MaxArgs: 0, Fn: lnFn},
		{Name: "log", MinArgs: 1, MaxArgs: 1, Fn: logFn},
		{Name: "power", MinArgs: 1, MaxArgs: 1, Fn: powerFn},
		{Name: "round", MinArgs: 0, MaxArgs: 1, Fn: roundFn},
		{Name: "sqrt", MinArgs: 0, MaxArgs: 0, Fn: sqrtFn},
		{Name: "truncate", MinArgs: 0, MaxArgs: 0, Fn: truncateFn},
		{Name: "sum", MinArgs: 0, MaxArgs: 0, Fn: sumFn},
		{Name: "min", MinArgs: 0, MaxArgs: 0, Fn: minFn},
		{Name: "max", MinArgs: 0, MaxArgs: 0, Fn: maxFn},
		{Name: "avg", MinArgs: 0, MaxArgs: 0, Fn: avgFn},
	})
}

// asFloat reads the numeric value out of an Integer or Decimal, reporting
// ok=false for anything else.
func asFloat(v types.Value) (float64, bool) {
	switch n := v.(type) {
	case types.Integer:
		return float64(n.Value()), true
	case types.Decimal:
		return n.Value().InexactFloat64(), true
	default:
		return 0, false
	}
}

// unaryNumeric applies compute to input[0]'s float value and wraps the
// result as a Decimal, covering the single-argument real-valued functions
// (exp, ln, sqrt, ...) that share the same empty/type-mismatch handling.
func unaryNumeric(input types.Collection, compute func(float64) (float64, bool)) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	val, ok := asFloat(input[0])
	if !ok {
		return types.Collection{}, nil
	}
	result, ok := compute(val)
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewDecimalFromFloat(result)}, nil
}

func absFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Integer:
		n := v.Value()
		if n < 0 {
			n = -n
		}
		return types.Collection{types.NewInteger(n)}, nil
	case types.Decimal:
		return types.Collection{types.NewDecimalFromFloat(math.Abs(v.Value().InexactFloat64()))}, nil
	default:
		return types.Collection{}, nil
	}
}

func ceilingFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Integer:
		return types.Collection{v}, nil
	case types.Decimal:
		return types.Collection{types.NewInteger(int64(math.Ceil(v.Value().InexactFloat64())))}, nil
	default:
		return types.Collection{}, nil
	}
}

func floorFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Integer:
		return types.Collection{v}, nil
	case types.Decimal:
		return types.Collection{types.NewInteger(int64(math.Floor(v.Value().InexactFloat64())))}, nil
	default:
		return types.Collection{}, nil
	}
}

func truncateFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Integer:
		return types.Collection{v}, nil
	case types.Decimal:
		return types.Collection{types.NewInteger(int64(math.Trunc(v.Value().InexactFloat64())))}, nil
	default:
		return types.Collection{}, nil
	}
}

func expFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return unaryNumeric(input, func(v float64) (float64, bool) { return math.Exp(v), true })
}

func lnFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return unaryNumeric(input, func(v float64) (float64, bool) {
		if v <= 0 {
			return 0, false
		}
		return math.Log(v), true
	})
}

func sqrtFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return unaryNumeric(input, func(v float64) (float64, bool) {
		if v < 0 {
			return 0, false
		}
		return math.Sqrt(v), true
	})
}

func logFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() || len(args) == 0 {
		return types.Collection{}, nil
	}
	val, ok := asFloat(input[0])
	if !ok {
		return types.Collection{}, nil
	}
	base, err := toFloat(args[0])
	if err != nil {
		return types.Collection{}, nil
	}
	if val <= 0 || base <= 0 || base == 1 {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewDecimalFromFloat(math.Log(val) / math.Log(base))}, nil
}

func powerFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() || len(args) == 0 {
		return types.Collection{}, nil
	}
	base, ok := asFloat(input[0])
	if !ok {
		return types.Collection{}, nil
	}
	exp, err := toFloat(args[0])
	if err != nil {
		return types.Collection{}, nil
	}
	result := math.Pow(base, exp)
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewDecimalFromFloat(result)}, nil
}

func roundFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	precision := int32(0)
	if len(args) > 0 {
		p, err := toInteger(args[0])
		if err != nil {
			return types.Collection{}, nil
		}
		precision = int32(p)
	}
	switch v := input[0].(type) {
	case types.Integer:
		return types.Collection{v}, nil
	case types.Decimal:
		d, _ := types.NewDecimal(v.Value().Round(precision).String())
		return types.Collection{d}, nil
	default:
		return types.Collection{}, nil
	}
}

// toFloat coerces a function argument to float64, recursing through a
// singleton collection if needed.
func toFloat(arg interface{}) (float64, error) {
	switch v := arg.(type) {
	case types.Collection:
		if v.Empty() {
			return 0, eval.NewEvalError(eval.ErrType, "expected number, got empty collection")
		}
		return toFloat(v[0])
	case types.Integer:
		return float64(v.Value()), nil
	case types.Decimal:
		return v.Value().InexactFloat64(), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case decimal.Decimal:
		return v.InexactFloat64(), nil
	default:
		return 0, eval.NewEvalError(eval.ErrType, "expected number")
	}
}

func sumFn(ctx *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewInteger(0)}, nil
	}
	if err := ctx.CheckCancellation(); err != nil {
		return nil, err
	}

	var sum decimal.Decimal
	hasDecimal := false
	for _, item := range input {
		switch v := item.(type) {
		case types.Integer:
			sum = sum.Add(decimal.NewFromInt(v.Value()))
		case types.Decimal:
			sum = sum.Add(v.Value())
			hasDecimal = true
		default:
			return types.Collection{}, nil
		}
	}
	if hasDecimal {
		d, _ := types.NewDecimal(sum.String())
		return types.Collection{d}, nil
	}
	return types.Collection{types.NewInteger(sum.IntPart())}, nil
}

func avgFn(ctx *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if err := ctx.CheckCancellation(); err != nil {
		return nil, err
	}

	var sum decimal.Decimal
	count := 0
	for _, item := range input {
		switch v := item.(type) {
		case types.Integer:
			sum = sum.Add(decimal.NewFromInt(v.Value()))
			count++
		case types.Decimal:
			sum = sum.Add(v.Value())
			count++
		default:
			return types.Collection{}, nil
		}
	}
	if count == 0 {
		return types.Collection{}, nil
	}
	d, _ := types.NewDecimal(sum.Div(decimal.NewFromInt(int64(count))).String())
	return types.Collection{d}, nil
}

// extremum walks input tracking the running min (higher=false) or max
// (higher=true). Numeric items (Integer/Decimal, compared interchangeably
// as float64) and same-typed String/Date/DateTime/Time items update the
// running value; an item whose type the running value can't be compared
// against is silently skipped rather than aborting the scan. An item
// outside this whole supported set ends the scan with an empty result,
// matching how min()/max() are specified over unordered/unsupported types.
func extremum(ctx *eval.Context, input types.Collection, higher bool) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if err := ctx.CheckCancellation(); err != nil {
		return nil, err
	}

	numBetter := func(val, cur float64) bool {
		if higher {
			return val > cur
		}
		return val < cur
	}
	strBetter := func(val, cur string) bool {
		if higher {
			return val > cur
		}
		return val < cur
	}
	ordBetter := func(cmp int) bool {
		if higher {
			return cmp > 0
		}
		return cmp < 0
	}

	var best types.Value
	var bestFloat float64
	first := true
	isNumeric := false

	for _, item := range input {
		switch v := item.(type) {
		case types.Integer:
			val := float64(v.Value())
			if first {
				bestFloat, best, first, isNumeric = val, item, false, true
			} else if isNumeric && numBetter(val, bestFloat) {
				bestFloat, best = val, item
			}
		case types.Decimal:
			val := v.Value().InexactFloat64()
			if first {
				bestFloat, best, first, isNumeric = val, item, false, true
			} else if isNumeric && numBetter(val, bestFloat) {
				bestFloat, best = val, item
			}
		case types.String:
			if first {
				best, first = v, false
			} else if cur, ok := best.(types.String); ok && strBetter(v.Value(), cur.Value()) {
				best = v
			}
		case types.Date:
			if first {
				best, first = v, false
			} else if cur, ok := best.(types.Date); ok {
				if cmp, _ := v.Compare(cur); ordBetter(cmp) {
					best = v
				}
			}
		case types.DateTime:
			if first {
				best, first = v, false
			} else if cur, ok := best.(types.DateTime); ok {
				if cmp, _ := v.Compare(cur); ordBetter(cmp) {
					best = v
				}
			}
		case types.Time:
			if first {
				best, first = v, false
			} else if cur, ok := best.(types.Time); ok {
				if cmp, _ := v.Compare(cur); ordBetter(cmp) {
					best = v
				}
			}
		default:
			return types.Collection{}, nil
		}
	}

	if best == nil {
		return types.Collection{}, nil
	}
	return types.Collection{best}, nil
}

func minFn(ctx *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return extremum(ctx, input, false)
}

func maxFn(ctx *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return extremum(ctx, input, true)
}
