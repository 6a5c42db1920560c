// Package validator checks FHIR resources against base specs and custom
// Implementation Guide profiles.
package validator

import (
	"context"
)

// ReferenceResolver looks up the resource a reference string points at.
// Implementations back external-reference checks in tests and FHIR server
// integrations.
type ReferenceResolver interface {
	// Resolve returns nil, nil (not an error) when the reference cannot be
	// resolved locally.
	Resolve(ctx context.Context, reference string) (interface{}, error)
}

// TerminologyService validates codes against ValueSets and CodeSystems.
// LocalTerminologyService and NoopTerminologyService both satisfy this.
type TerminologyService interface {
	ValidateCode(ctx context.Context, system, code, valueSetURL string) (bool, error)
	ExpandValueSet(ctx context.Context, valueSetURL string) ([]CodeInfo, error)
	LookupCode(ctx context.Context, system, code string) (*CodeInfo, error)
}

// CodeInfo describes a single terminology code.
type CodeInfo struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
	Active  bool   `json:"active"`
}

// StructureDefinitionProvider loads StructureDefinitions from whatever
// backing store an implementation wraps (embedded files, a package cache,
// a terminology server, ...). The returned StructureDef is version-neutral
// across R4, R4B, and R5.
type StructureDefinitionProvider interface {
	Get(ctx context.Context, url string) (*StructureDef, error)
	GetByType(ctx context.Context, resourceType string) (*StructureDef, error)
	List(ctx context.Context) ([]string, error)
}

// NoopReferenceResolver resolves nothing, for validation runs that don't
// need reference checking.
type NoopReferenceResolver struct{}

func (*NoopReferenceResolver) Resolve(context.Context, string) (interface{}, error) {
	return nil, nil
}

// NoopTerminologyService accepts every code, for validation runs that skip
// terminology checking.
type NoopTerminologyService struct{}

func (*NoopTerminologyService) ValidateCode(context.Context, string, string, string) (bool, error) {
	return true, nil
}

func (*NoopTerminologyService) ExpandValueSet(context.Context, string) ([]CodeInfo, error) {
	return nil, nil
}

func (*NoopTerminologyService) LookupCode(context.Context, string, string) (*CodeInfo, error) {
	return nil, nil
}
