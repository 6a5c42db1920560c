// Package validator checks FHIR resources against StructureDefinitions.
//
// Validation covers several layers:
//   - structural shape (cardinality, element types)
//   - FHIRPath invariants declared on a StructureDefinition
//   - primitive value formats (dates, URIs, codes, and the like)
//   - terminology bindings, when a TerminologyService is configured
//   - reference resolvability, when a ReferenceResolver is configured
//
// Basic usage:
//
//	v := validator.NewValidator(registry, validator.ValidatorOptions{
//	    ValidateConstraints: true,
//	})
//	result, err := v.Validate(ctx, patientJSON)
package validator
