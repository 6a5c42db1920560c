package main

import (
	"encoding/json"
	"math"

	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

// projectValue renders a single FHIRPath value to the JSON projection used
// by `fhirpath eval --format json` and the `fhirpath test` runner:
// Integer/Long -> number, Decimal -> number or null if non-finite,
// temporals -> string, Quantity -> {value,unit?}, Object -> pass-through.
func projectValue(v types.Value) interface{} {
	switch val := v.(type) {
	case types.Boolean:
		return val.Bool()
	case types.Integer:
		return val.Value()
	case types.Decimal:
		f, _ := val.Value().Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case types.String:
		return val.Value()
	case types.Quantity:
		out := map[string]interface{}{"value": val.Value().String()}
		if u := val.Unit(); u != "" {
			out["unit"] = u
		}
		return out
	case types.Date:
		return val.String()
	case types.DateTime:
		return val.String()
	case types.Time:
		return val.String()
	case *types.ObjectValue:
		var raw interface{}
		if err := json.Unmarshal(val.Data(), &raw); err == nil {
			return raw
		}
		return val.String()
	default:
		return v.String()
	}
}

// projectCollection renders a Collection to the array/null projection:
// empty collections project to JSON null, otherwise a JSON array.
func projectCollection(c types.Collection) interface{} {
	if c.Empty() {
		return nil
	}
	out := make([]interface{}, len(c))
	for i, v := range c {
		out[i] = projectValue(v)
	}
	return out
}
