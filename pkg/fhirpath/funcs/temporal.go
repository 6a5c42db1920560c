package funcs

import (
	"time"

	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

func init() {
	register([]FuncDef{
		{Name: "year", MinArgs: 0, MaxArgs: 0, Fn: yearFn},
		{Name: "month", MinArgs: 0, MaxArgs: 0, Fn: monthFn},
		{Name: "day", MinArgs: 0, MaxArgs: 0, Fn: dayFn},
		{Name: "hour", MinArgs: 0, MaxArgs: 0, Fn: hourFn},
		{Name: "minute", MinArgs: 0, MaxArgs: 0, Fn: minuteFn},
		{Name: "second", MinArgs: 0, MaxArgs: 0, Fn: secondFn},
		{Name: "millisecond", MinArgs: 0, MaxArgs: 0, Fn: millisecondFn},
		{Name: "now", MinArgs: 0, MaxArgs: 0, Fn: nowFn},
		{Name: "today", MinArgs: 0, MaxArgs: 0, Fn: todayFn},
		{Name: "timeOfDay", MinArgs: 0, MaxArgs: 0, Fn: timeOfDayFn},
	})
}

// hasYMD is satisfied by types.Date and types.DateTime, the values "year",
// "month" and "day" can be extracted from.
type hasYMD interface {
	Year() int
	Month() int
	Day() int
}

// hasHMS is satisfied by types.DateTime and types.Time, the values "hour"
// through "millisecond" can be extracted from.
type hasHMS interface {
	Hour() int
	Minute() int
	Second() int
	Millisecond() int
}

// ymdComponent extracts a date component from input[0] via extract, which
// reports ok=false when the component is unset (e.g. a year-precision Date
// has no month).
func ymdComponent(input types.Collection, extract func(hasYMD) (int, bool)) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	v, ok := input[0].(hasYMD)
	if !ok {
		return types.Collection{}, nil
	}
	n, ok := extract(v)
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewInteger(int64(n))}, nil
}

func hmsComponent(input types.Collection, extract func(hasHMS) int) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	v, ok := input[0].(hasHMS)
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewInteger(int64(extract(v)))}, nil
}

func yearFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return ymdComponent(input, func(v hasYMD) (int, bool) { return v.Year(), true })
}

func monthFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return ymdComponent(input, func(v hasYMD) (int, bool) { m := v.Month(); return m, m != 0 })
}

func dayFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return ymdComponent(input, func(v hasYMD) (int, bool) { d := v.Day(); return d, d != 0 })
}

func hourFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return hmsComponent(input, hasHMS.Hour)
}

func minuteFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return hmsComponent(input, hasHMS.Minute)
}

func secondFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return hmsComponent(input, hasHMS.Second)
}

func millisecondFn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return hmsComponent(input, hasHMS.Millisecond)
}

func nowFn(_ *eval.Context, _ types.Collection, _ []interface{}) (types.Collection, error) {
	return types.Collection{types.NewDateTimeFromTime(time.Now())}, nil
}

func todayFn(_ *eval.Context, _ types.Collection, _ []interface{}) (types.Collection, error) {
	return types.Collection{types.NewDateFromTime(time.Now())}, nil
}

func timeOfDayFn(_ *eval.Context, _ types.Collection, _ []interface{}) (types.Collection, error) {
	return types.Collection{types.NewTimeFromGoTime(time.Now())}, nil
}
