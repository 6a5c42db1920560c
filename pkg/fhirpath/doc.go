// Package fhirpath implements a FHIRPath expression parser and evaluator
// for navigating and extracting data from FHIR resources.
//
// Supported surface area:
//   - Path navigation and polymorphic (choice-type) traversal
//   - Filtering, projection and subsetting functions
//   - Boolean and three-valued logic
//   - String, math and aggregate functions
//   - Date, time and quantity arithmetic
//   - Type testing and conversion (is/as/ofType)
//   - FHIR-specific extensions (extension(), resolve(), etc.)
//
// Typical usage:
//
//	result, err := fhirpath.Evaluate(patient, "name.given.first()")
//	ok, err := fhirpath.EvaluateToBoolean(patient, "active.exists()")
//
// For repeated evaluation of the same expression against many resources,
// compile once with Compile (or go through ExpressionCache) and reuse the
// result.
package fhirpath
