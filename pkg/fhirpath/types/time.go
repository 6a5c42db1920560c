package types

import (
	"fmt"
	"regexp"
	"strconv"
	gotime "time"
)

// Time is the FHIRPath Time primitive, with hour/minute/second/millisecond
// precision levels.
type Time struct {
	hour      int
	minute    int
	second    int
	millis    int
	precision TimePrecision
}

type TimePrecision int

const (
	HourPrecision TimePrecision = iota
	MinutePrecision
	SecondPrecision
	MillisPrecision
)

var timePattern = regexp.MustCompile(`^T?(\d{2})(?::(\d{2})(?::(\d{2})(?:\.(\d+))?)?)?$`)

// NewTime parses a FHIRPath time literal, an optional leading "T" followed
// by HH, HH:MM, HH:MM:SS, or HH:MM:SS.sss.
func NewTime(s string) (Time, error) {
	matches := timePattern.FindStringSubmatch(s)
	if matches == nil {
		return Time{}, fmt.Errorf("invalid time format: %s", s)
	}

	var t Time
	t.precision = HourPrecision

	hour, err := strconv.Atoi(matches[1])
	if err != nil {
		return Time{}, fmt.Errorf("invalid hour in time: %s", s)
	}
	t.hour = hour

	if matches[2] != "" {
		if t.minute, err = strconv.Atoi(matches[2]); err != nil {
			return Time{}, fmt.Errorf("invalid minute in time: %s", s)
		}
		t.precision = MinutePrecision
	}
	if matches[3] != "" {
		if t.second, err = strconv.Atoi(matches[3]); err != nil {
			return Time{}, fmt.Errorf("invalid second in time: %s", s)
		}
		t.precision = SecondPrecision
	}
	if matches[4] != "" {
		t.millis, err = strconv.Atoi(padMillis(matches[4]))
		if err != nil {
			return Time{}, fmt.Errorf("invalid milliseconds in time: %s", s)
		}
		t.precision = MillisPrecision
	}

	return t, nil
}

// padMillis normalizes a fractional-seconds digit string to exactly 3
// digits, padding with trailing zeros or truncating, so ".5" and ".5001"
// both map to a millisecond count (500 and 500, respectively).
func padMillis(digits string) string {
	for len(digits) < 3 {
		digits += "0"
	}
	return digits[:3]
}

func NewTimeFromGoTime(t gotime.Time) Time {
	return Time{
		hour:      t.Hour(),
		minute:    t.Minute(),
		second:    t.Second(),
		millis:    t.Nanosecond() / 1000000,
		precision: MillisPrecision,
	}
}

func (Time) Type() string {
	return "Time"
}

func (t Time) Equal(other Value) bool {
	o, ok := other.(Time)
	if !ok || t.precision != o.precision || t.hour != o.hour {
		return false
	}
	if t.precision >= MinutePrecision && t.minute != o.minute {
		return false
	}
	if t.precision >= SecondPrecision && t.second != o.second {
		return false
	}
	if t.precision >= MillisPrecision && t.millis != o.millis {
		return false
	}
	return true
}

func (t Time) Equivalent(other Value) bool {
	return t.Equal(other)
}

func (t Time) String() string {
	out := fmt.Sprintf("%02d", t.hour)
	if t.precision >= MinutePrecision {
		out += fmt.Sprintf(":%02d", t.minute)
	}
	if t.precision >= SecondPrecision {
		out += fmt.Sprintf(":%02d", t.second)
	}
	if t.precision >= MillisPrecision {
		out += fmt.Sprintf(".%03d", t.millis)
	}
	return out
}

func (Time) IsEmpty() bool {
	return false
}

func (t Time) Hour() int        { return t.hour }
func (t Time) Minute() int      { return t.minute }
func (t Time) Second() int      { return t.second }
func (t Time) Millisecond() int { return t.millis }

// timeFields lists the comparable components in precision order; Compare
// walks this list up to the relevant precision ceiling for both the
// same-precision and cross-precision cases.
func (t Time) timeFields(o Time) []struct {
	precision TimePrecision
	cmp       func() int
} {
	return []struct {
		precision TimePrecision
		cmp       func() int
	}{
		{HourPrecision, func() int { return cmpInt(t.hour, o.hour) }},
		{MinutePrecision, func() int { return cmpInt(t.minute, o.minute) }},
		{SecondPrecision, func() int { return cmpInt(t.second, o.second) }},
		{MillisPrecision, func() int { return cmpInt(t.millis, o.millis) }},
	}
}

// Compare implements Comparable for Time. As with Date, comparing two
// times at different precisions is only well-defined down to their shared
// precision; if every shared component ties, the comparison is ambiguous
// and reports an error rather than a verdict.
func (t Time) Compare(other Value) (int, error) {
	o, ok := other.(Time)
	if !ok {
		return 0, fmt.Errorf("cannot compare Time with %s", other.Type())
	}

	ambiguous := t.precision != o.precision
	limit := t.precision
	if ambiguous {
		limit = minPrecision(t.precision, o.precision)
	}

	for _, f := range t.timeFields(o) {
		if f.precision > limit {
			break
		}
		if c := f.cmp(); c != 0 {
			return c, nil
		}
	}
	if ambiguous {
		return 0, fmt.Errorf("ambiguous comparison between times with different precisions")
	}
	return 0, nil
}
