// Package validator provides FHIR resource validation.
package validator

import (
	"context"
	"fmt"
	"sync"
)

// embeddedValueSetRegistry holds the ValueSet->code sets compiled into the
// binary for each FHIR version, populated by init() in generated
// terminology_embedded_*.go files.
var (
	embeddedValueSetRegistry = make(map[string]map[string]map[string]bool)
	embeddedRegistryMu       sync.RWMutex
)

func registerEmbeddedValueSets(fhirVersion string, valueSets map[string]map[string]bool) {
	embeddedRegistryMu.Lock()
	defer embeddedRegistryMu.Unlock()
	embeddedValueSetRegistry[fhirVersion] = valueSets
}

// EmbeddedTerminologyService validates codes against ValueSets compiled into
// the binary, avoiding the file I/O LocalTerminologyService needs. It only
// knows which codes belong to a ValueSet, not their display text or
// originating CodeSystem.
type EmbeddedTerminologyService struct {
	fhirVersion string
	valueSets   map[string]map[string]bool
}

// NewEmbeddedTerminologyService looks up the embedded ValueSets for a FHIR
// version string ("4.0.1", "4.3.0", "5.0.0"); prefer the NewEmbeddedTerminologyServiceR4/R4B/R5
// constructors unless the version is only known at runtime.
func NewEmbeddedTerminologyService(fhirVersion string) (*EmbeddedTerminologyService, error) {
	embeddedRegistryMu.RLock()
	defer embeddedRegistryMu.RUnlock()

	valueSets, ok := embeddedValueSetRegistry[fhirVersion]
	if !ok {
		available := make([]string, 0, len(embeddedValueSetRegistry))
		for v := range embeddedValueSetRegistry {
			available = append(available, v)
		}
		return nil, fmt.Errorf("no embedded ValueSets for FHIR version %s (available: %v)", fhirVersion, available)
	}

	return &EmbeddedTerminologyService{fhirVersion: fhirVersion, valueSets: valueSets}, nil
}

func mustEmbedded(version string) *EmbeddedTerminologyService {
	svc, err := NewEmbeddedTerminologyService(version)
	if err != nil {
		panic(fmt.Sprintf("failed to create embedded terminology service for %s: %v", version, err))
	}
	return svc
}

func NewEmbeddedTerminologyServiceR4() *EmbeddedTerminologyService  { return mustEmbedded("4.0.1") }
func NewEmbeddedTerminologyServiceR4B() *EmbeddedTerminologyService { return mustEmbedded("4.3.0") }
func NewEmbeddedTerminologyServiceR5() *EmbeddedTerminologyService  { return mustEmbedded("5.0.0") }

func (s *EmbeddedTerminologyService) ValidateCode(_ context.Context, _, code, valueSetURL string) (bool, error) {
	codes, ok := s.valueSets[normalizeValueSetURL(valueSetURL)]
	if !ok {
		return false, fmt.Errorf("ValueSet not found: %s", valueSetURL)
	}
	return codes[code], nil
}

func (s *EmbeddedTerminologyService) ExpandValueSet(_ context.Context, valueSetURL string) ([]CodeInfo, error) {
	codes, ok := s.valueSets[normalizeValueSetURL(valueSetURL)]
	if !ok {
		return nil, fmt.Errorf("ValueSet not found: %s", valueSetURL)
	}

	result := make([]CodeInfo, 0, len(codes))
	for code := range codes {
		result = append(result, CodeInfo{Code: code, Active: true})
	}
	return result, nil
}

// LookupCode always returns nil, nil: the embedded service tracks only
// which codes belong to a ValueSet, not per-code display/system metadata.
func (s *EmbeddedTerminologyService) LookupCode(_ context.Context, _, _ string) (*CodeInfo, error) {
	return nil, nil
}

func (s *EmbeddedTerminologyService) HasValueSet(url string) bool {
	_, ok := s.valueSets[normalizeValueSetURL(url)]
	return ok
}

func (s *EmbeddedTerminologyService) FHIRVersion() string {
	return s.fhirVersion
}

func (s *EmbeddedTerminologyService) Stats() (valueSets, totalCodes int) {
	valueSets = len(s.valueSets)
	for _, codes := range s.valueSets {
		totalCodes += len(codes)
	}
	return
}

// AvailableEmbeddedVersions lists the FHIR versions with embedded ValueSets
// linked into the binary.
func AvailableEmbeddedVersions() []string {
	embeddedRegistryMu.RLock()
	defer embeddedRegistryMu.RUnlock()

	versions := make([]string, 0, len(embeddedValueSetRegistry))
	for v := range embeddedValueSetRegistry {
		versions = append(versions, v)
	}
	return versions
}
