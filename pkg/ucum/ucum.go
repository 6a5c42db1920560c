// Package ucum provides UCUM (Unified Code for Units of Measure) normalization
// for FHIR quantity comparisons.
//
// UCUM is the standard unit system used in FHIR for quantities. This package
// normalizes units to canonical base units so quantities in different but
// compatible units can be compared (e.g., 10mg = 0.01g).
//
// Reference: https://ucum.org/ucum.html
package ucum

import "strings"

// NormalizedQuantity is a quantity expressed in its dimension's canonical
// UCUM unit.
type NormalizedQuantity struct {
	Value float64
	Code  string
}

// UnitConversion is the linear conversion from one UCUM unit to its
// dimension's canonical unit: canonical = original * Factor.
type UnitConversion struct {
	CanonicalCode string
	Factor        float64
}

// canonicalUnits maps known UCUM codes to their canonical conversions,
// grouped by dimension (mass, length, volume, ...).
var canonicalUnits = map[string]UnitConversion{
	// mass (canonical: g)
	"kg": {"g", 1000}, "g": {"g", 1}, "mg": {"g", 0.001},
	"ug": {"g", 0.000001}, "ng": {"g", 0.000000001}, "pg": {"g", 0.000000000001},
	"lb": {"g", 453.59237}, "oz": {"g", 28.349523125}, // avoirdupois
	"[lb_av]": {"g", 453.59237}, "[oz_av]": {"g", 28.349523125},

	// length (canonical: m)
	"km": {"m", 1000}, "m": {"m", 1}, "dm": {"m", 0.1}, "cm": {"m", 0.01},
	"mm": {"m", 0.001}, "um": {"m", 0.000001}, "nm": {"m", 0.000000001},
	"[in_i]": {"m", 0.0254}, "[ft_i]": {"m", 0.3048}, // international
	"[yd_i]": {"m", 0.9144}, "[mi_i]": {"m", 1609.344},
	"in": {"m", 0.0254}, "ft": {"m", 0.3048},

	// volume (canonical: L)
	"L": {"L", 1}, "l": {"L", 1}, "dL": {"L", 0.1}, "dl": {"L", 0.1},
	"cL": {"L", 0.01}, "cl": {"L", 0.01}, "mL": {"L", 0.001}, "ml": {"L", 0.001},
	"uL": {"L", 0.000001}, "ul": {"L", 0.000001},
	"[gal_us]": {"L", 3.785411784}, "[qt_us]": {"L", 0.946352946},
	"[pt_us]": {"L", 0.473176473}, "[foz_us]": {"L", 0.0295735295625},

	// time (canonical: s)
	"a": {"s", 31557600}, "mo": {"s", 2629800}, "wk": {"s", 604800}, "d": {"s", 86400},
	"h": {"s", 3600}, "min": {"s", 60}, "s": {"s", 1},
	"ms": {"s", 0.001}, "us": {"s", 0.000001}, "ns": {"s", 0.000000001},

	// temperature: K, Cel and [degF] each normalize only to themselves;
	// conversions between them are affine, not handled by this linear table
	"K": {"K", 1}, "Cel": {"Cel", 1}, "[degF]": {"[degF]", 1},

	// mass/volume concentration (canonical: g/L)
	"g/L": {"g/L", 1}, "mg/L": {"g/L", 0.001}, "ug/L": {"g/L", 0.000001}, "ng/L": {"g/L", 0.000000001},
	"g/dL": {"g/L", 10}, "mg/dL": {"g/L", 0.01}, "ug/dL": {"g/L", 0.00001},
	"g/mL": {"g/L", 1000}, "mg/mL": {"g/L", 1}, "ug/mL": {"g/L", 0.001},

	// molar concentration (canonical: mol/L)
	"mol/L": {"mol/L", 1}, "mmol/L": {"mol/L", 0.001},
	"umol/L": {"mol/L", 0.000001}, "nmol/L": {"mol/L", 0.000000001}, "pmol/L": {"mol/L", 0.000000000001},

	// pressure (canonical: Pa)
	"Pa": {"Pa", 1}, "kPa": {"Pa", 1000}, "mm[Hg]": {"Pa", 133.322387415}, "[psi]": {"Pa", 6894.757293168},

	// cell counts (canonical: 10*9/L)
	"10*9/L": {"10*9/L", 1}, "10*12/L": {"10*9/L", 1000}, "10*6/L": {"10*9/L", 0.001},
	"10*3/uL": {"10*9/L", 1}, "/uL": {"10*9/L", 0.001},

	"%": {"%", 1},

	// rate (canonical: /min)
	"/min": {"/min", 1}, "/h": {"/min", 1.0 / 60.0},

	// international units (canonical: [IU]/L)
	"[IU]": {"[IU]", 1},
	"[IU]/L": {"[IU]/L", 1}, "[IU]/mL": {"[IU]/L", 1000},
	"m[IU]/L": {"[IU]/L", 0.001}, "m[IU]/mL": {"[IU]/L", 1}, "u[IU]/mL": {"[IU]/L", 0.001},

	// energy (canonical: J)
	"J": {"J", 1}, "kJ": {"J", 1000}, "cal": {"J", 4.184}, "kcal": {"J", 4184}, "[Cal]": {"J", 4184},
}

// lookupUnit resolves code against canonicalUnits, trying an exact match
// first and falling back to a case-insensitive scan for common casing
// variations (e.g. "L" vs "l" is already distinct in the table, but
// caller-supplied codes like "MG" should still resolve to "mg").
func lookupUnit(code string) (UnitConversion, bool) {
	if conv, ok := canonicalUnits[code]; ok {
		return conv, true
	}
	for ucumCode, conv := range canonicalUnits {
		if strings.EqualFold(ucumCode, code) {
			return conv, true
		}
	}
	return UnitConversion{}, false
}

// Normalize converts a quantity to its dimension's canonical UCUM form,
// returning it unchanged if code isn't recognized.
func Normalize(value float64, code string) NormalizedQuantity {
	conv, ok := lookupUnit(code)
	if !ok {
		return NormalizedQuantity{Value: value, Code: code}
	}
	return NormalizedQuantity{Value: value * conv.Factor, Code: conv.CanonicalCode}
}

// NormalizeWithSystem is Normalize, but only for the UCUM system
// (http://unitsofmeasure.org); quantities from any other system pass
// through unchanged since their codes aren't UCUM units.
func NormalizeWithSystem(value float64, system, code string) NormalizedQuantity {
	if system != "" && system != "http://unitsofmeasure.org" {
		return NormalizedQuantity{Value: value, Code: code}
	}
	return Normalize(value, code)
}

// IsKnownUnit reports whether code has a canonical conversion registered.
func IsKnownUnit(code string) bool {
	_, ok := lookupUnit(code)
	return ok
}

// GetCanonicalUnit returns code's canonical unit, or code itself if
// unrecognized.
func GetCanonicalUnit(code string) string {
	conv, ok := lookupUnit(code)
	if !ok {
		return code
	}
	return conv.CanonicalCode
}
