package types

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DateTime is the FHIRPath DateTime primitive: a Date and an optional
// Time, each independently precision-limited, plus an optional timezone
// offset.
type DateTime struct {
	year      int
	month     int
	day       int
	hour      int
	minute    int
	second    int
	millis    int
	tzOffset  int // minutes east of UTC
	hasTZ     bool
	precision DateTimePrecision
}

type DateTimePrecision int

const (
	DTYearPrecision DateTimePrecision = iota
	DTMonthPrecision
	DTDayPrecision
	DTHourPrecision
	DTMinutePrecision
	DTSecondPrecision
	DTMillisPrecision
)

var dateTimePattern = regexp.MustCompile(
	`^(\d{4})(?:-(\d{2})(?:-(\d{2})(?:T(\d{2})(?::(\d{2})(?::(\d{2})(?:\.(\d+))?)?)?)?)?)?(Z|[+-]\d{2}:\d{2})?$`,
)

// NewDateTime parses a FHIRPath datetime literal. Every component past the
// year is optional, but each one present raises the resulting precision by
// one level; a trailing "Z" or "+hh:mm"/"-hh:mm" offset may follow at any
// precision.
func NewDateTime(s string) (DateTime, error) {
	matches := dateTimePattern.FindStringSubmatch(s)
	if matches == nil {
		return DateTime{}, fmt.Errorf("invalid datetime format: %s", s)
	}

	var dt DateTime
	precision := DTYearPrecision

	year, err := strconv.Atoi(matches[1])
	if err != nil {
		return DateTime{}, fmt.Errorf("invalid year in datetime: %s", s)
	}
	dt.year = year

	intField := func(group string, dst *int, label string, p DateTimePrecision) error {
		if group == "" {
			return nil
		}
		v, err := strconv.Atoi(group)
		if err != nil {
			return fmt.Errorf("invalid %s in datetime: %s", label, s)
		}
		*dst = v
		precision = p
		return nil
	}

	if err := intField(matches[2], &dt.month, "month", DTMonthPrecision); err != nil {
		return DateTime{}, err
	}
	if err := intField(matches[3], &dt.day, "day", DTDayPrecision); err != nil {
		return DateTime{}, err
	}
	if err := intField(matches[4], &dt.hour, "hour", DTHourPrecision); err != nil {
		return DateTime{}, err
	}
	if err := intField(matches[5], &dt.minute, "minute", DTMinutePrecision); err != nil {
		return DateTime{}, err
	}
	if err := intField(matches[6], &dt.second, "second", DTSecondPrecision); err != nil {
		return DateTime{}, err
	}

	if matches[7] != "" {
		millis, err := strconv.Atoi(padMillis(matches[7]))
		if err != nil {
			return DateTime{}, fmt.Errorf("invalid milliseconds in datetime: %s", s)
		}
		dt.millis = millis
		precision = DTMillisPrecision
	}

	if matches[8] != "" {
		dt.hasTZ = true
		if matches[8] != "Z" {
			offset, err := parseTZOffset(matches[8])
			if err != nil {
				return DateTime{}, fmt.Errorf("invalid timezone in datetime: %s", s)
			}
			dt.tzOffset = offset
		}
	}

	dt.precision = precision
	return dt, nil
}

// parseTZOffset parses a "+hh:mm" or "-hh:mm" offset into signed minutes.
func parseTZOffset(s string) (int, error) {
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	hours, err := strconv.Atoi(s[1:3])
	if err != nil {
		return 0, err
	}
	mins, err := strconv.Atoi(s[4:6])
	if err != nil {
		return 0, err
	}
	return sign * (hours*60 + mins), nil
}

func NewDateTimeFromTime(t time.Time) DateTime {
	_, offset := t.Zone()
	return DateTime{
		year:      t.Year(),
		month:     int(t.Month()),
		day:       t.Day(),
		hour:      t.Hour(),
		minute:    t.Minute(),
		second:    t.Second(),
		millis:    t.Nanosecond() / 1000000,
		tzOffset:  offset / 60,
		hasTZ:     true,
		precision: DTMillisPrecision,
	}
}

func (DateTime) Type() string {
	return "DateTime"
}

func (dt DateTime) Equal(other Value) bool {
	o, ok := other.(DateTime)
	if !ok {
		return false
	}
	return dt.ToTime().Equal(o.ToTime())
}

func (dt DateTime) Equivalent(other Value) bool {
	return dt.Equal(other)
}

func (dt DateTime) String() string {
	out := fmt.Sprintf("%04d", dt.year)
	if dt.precision >= DTMonthPrecision {
		out += fmt.Sprintf("-%02d", dt.month)
	}
	if dt.precision >= DTDayPrecision {
		out += fmt.Sprintf("-%02d", dt.day)
	}
	if dt.precision >= DTHourPrecision {
		out += fmt.Sprintf("T%02d", dt.hour)
	}
	if dt.precision >= DTMinutePrecision {
		out += fmt.Sprintf(":%02d", dt.minute)
	}
	if dt.precision >= DTSecondPrecision {
		out += fmt.Sprintf(":%02d", dt.second)
	}
	if dt.precision >= DTMillisPrecision {
		out += fmt.Sprintf(".%03d", dt.millis)
	}

	if dt.hasTZ {
		if dt.tzOffset == 0 {
			out += "Z"
		} else {
			sign, offset := "+", dt.tzOffset
			if offset < 0 {
				sign, offset = "-", -offset
			}
			out += fmt.Sprintf("%s%02d:%02d", sign, offset/60, offset%60)
		}
	}

	return out
}

func (DateTime) IsEmpty() bool {
	return false
}

func (dt DateTime) ToTime() time.Time {
	month := dt.month
	if month == 0 {
		month = 1
	}
	day := dt.day
	if day == 0 {
		day = 1
	}

	loc := time.UTC
	if dt.hasTZ {
		loc = time.FixedZone("", dt.tzOffset*60)
	}

	return time.Date(dt.year, time.Month(month), day, dt.hour, dt.minute, dt.second, dt.millis*1000000, loc)
}

func (dt DateTime) Year() int        { return dt.year }
func (dt DateTime) Month() int       { return dt.month }
func (dt DateTime) Day() int         { return dt.day }
func (dt DateTime) Hour() int        { return dt.hour }
func (dt DateTime) Minute() int      { return dt.minute }
func (dt DateTime) Second() int      { return dt.second }
func (dt DateTime) Millisecond() int { return dt.millis }

// AddDuration adds value of the given calendar or clock unit (singular,
// plural, or FHIRPath-quoted forms), returning dt unchanged for any other
// unit. The result keeps dt's precision, zeroing any component precision
// doesn't carry.
func (dt DateTime) AddDuration(value int, unit string) DateTime {
	t := dt.ToTime()

	months := 0
	switch unit {
	case "year", "years", "'year'", "'years'":
		months = 12 * value
	case "month", "months", "'month'", "'months'":
		months = value
	case "week", "weeks", "'week'", "'weeks'":
		t = t.AddDate(0, 0, value*7)
	case "day", "days", "'day'", "'days'":
		t = t.AddDate(0, 0, value)
	case "hour", "hours", "'hour'", "'hours'":
		t = t.Add(time.Duration(value) * time.Hour)
	case "minute", "minutes", "'minute'", "'minutes'":
		t = t.Add(time.Duration(value) * time.Minute)
	case "second", "seconds", "'second'", "'seconds'":
		t = t.Add(time.Duration(value) * time.Second)
	case "millisecond", "milliseconds", "'millisecond'", "'milliseconds'", "ms":
		t = t.Add(time.Duration(value) * time.Millisecond)
	default:
		return dt
	}
	if months != 0 {
		// Clamp the day to the target month's last day (Jan 31 + 1 month = Feb 29 in 2024).
		first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
		day := t.Day()
		if last := first.AddDate(0, 1, -1).Day(); day > last {
			day = last
		}
		t = time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	}

	result := DateTime{
		year:      t.Year(),
		month:     int(t.Month()),
		day:       t.Day(),
		hour:      t.Hour(),
		minute:    t.Minute(),
		second:    t.Second(),
		millis:    t.Nanosecond() / 1000000,
		tzOffset:  dt.tzOffset,
		hasTZ:     dt.hasTZ,
		precision: dt.precision,
	}

	if dt.precision < DTMonthPrecision {
		result.month = 0
	}
	if dt.precision < DTDayPrecision {
		result.day = 0
	}
	if dt.precision < DTHourPrecision {
		result.hour = 0
	}
	if dt.precision < DTMinutePrecision {
		result.minute = 0
	}
	if dt.precision < DTSecondPrecision {
		result.second = 0
	}
	if dt.precision < DTMillisPrecision {
		result.millis = 0
	}

	return result
}

func (dt DateTime) SubtractDuration(value int, unit string) DateTime {
	return dt.AddDuration(-value, unit)
}

// dateTimeFields lists the comparable components in precision order, used
// by Compare to walk both the same-precision and cross-precision cases
// with a single loop (see Date.Compare and Time.Compare for the same
// pattern at fewer precision levels).
func (dt DateTime) dateTimeFields(o DateTime) []struct {
	precision DateTimePrecision
	cmp       func() int
} {
	return []struct {
		precision DateTimePrecision
		cmp       func() int
	}{
		{DTYearPrecision, func() int { return cmpInt(dt.year, o.year) }},
		{DTMonthPrecision, func() int { return cmpInt(dt.month, o.month) }},
		{DTDayPrecision, func() int { return cmpInt(dt.day, o.day) }},
		{DTHourPrecision, func() int { return cmpInt(dt.hour, o.hour) }},
		{DTMinutePrecision, func() int { return cmpInt(dt.minute, o.minute) }},
		{DTSecondPrecision, func() int { return cmpInt(dt.second, o.second) }},
		{DTMillisPrecision, func() int { return cmpInt(dt.millis, o.millis) }},
	}
}

// Compare implements Comparable for DateTime. When both operands share a
// precision, their full wall-clock instants are compared via time.Time
// (which also accounts for differing timezone offsets correctly). When
// precisions differ, the comparison proceeds component by component down
// to the shared precision; if every shared component ties, the result is
// ambiguous rather than equal, since the unknown lower-precision
// components could break the tie in either direction.
func (dt DateTime) Compare(other Value) (int, error) {
	o, ok := other.(DateTime)
	if !ok {
		return 0, fmt.Errorf("cannot compare DateTime with %s", other.Type())
	}

	if dt.precision == o.precision {
		t1, t2 := dt.ToTime(), o.ToTime()
		switch {
		case t1.Before(t2):
			return -1, nil
		case t1.After(t2):
			return 1, nil
		default:
			return 0, nil
		}
	}

	limit := minPrecision(dt.precision, o.precision)
	for _, f := range dt.dateTimeFields(o) {
		if f.precision > limit {
			break
		}
		if c := f.cmp(); c != 0 {
			return c, nil
		}
	}
	return 0, fmt.Errorf("ambiguous comparison between datetimes with different precisions")
}
