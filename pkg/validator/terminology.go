// Package validator provides FHIR resource validation based on StructureDefinitions.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalTerminologyService validates codes against ValueSets and CodeSystems
// loaded from FHIR specification bundles (specs/{version}/valuesets.json).
// It supports required/extensible/preferred/example bindings, resolves
// ValueSets composed from CodeSystem references, and normalizes versioned
// ValueSet URLs (".../address-use|4.0.1").
//
//	termService := NewLocalTerminologyService()
//	err := termService.LoadFromFile("specs/r4/valuesets.json")
//	v := NewValidator(registry, opts).WithTerminologyService(termService)
type LocalTerminologyService struct {
	mu sync.RWMutex

	codeSystems map[string]map[string]*CodeInfo // CodeSystem URL -> code -> CodeInfo
	valueSets   map[string][]*CodeInfo           // ValueSet URL -> expanded codes

	// valueSetSystems records the systems each compose-derived ValueSet
	// draws from; ValidateCode does not consult it.
	valueSetSystems map[string][]string
}

func NewLocalTerminologyService() *LocalTerminologyService {
	return &LocalTerminologyService{
		codeSystems:     make(map[string]map[string]*CodeInfo),
		valueSets:       make(map[string][]*CodeInfo),
		valueSetSystems: make(map[string][]string),
	}
}

func (s *LocalTerminologyService) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return s.LoadFromBundle(data)
}

// LoadFromDirectory loads specsDir/{r4,r4b,r5}/valuesets.json for whichever
// versions are present.
func (s *LocalTerminologyService) LoadFromDirectory(specsDir string) error {
	for _, version := range []string{"r4", "r4b", "r5"} {
		path := filepath.Join(specsDir, version, "valuesets.json")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := s.LoadFromFile(path); err != nil {
			return fmt.Errorf("failed to load %s valuesets: %w", version, err)
		}
	}
	return nil
}

func bundleResourceType(raw json.RawMessage) string {
	var base struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(raw, &base); err != nil {
		return ""
	}
	return base.ResourceType
}

// LoadFromBundle loads every CodeSystem and ValueSet entry from a FHIR
// Bundle. CodeSystems are loaded first so the second pass can resolve
// ValueSet.compose.include entries that reference one by system URL.
func (s *LocalTerminologyService) LoadFromBundle(data []byte) error {
	var bundle struct {
		ResourceType string `json:"resourceType"`
		Entry        []struct {
			Resource json.RawMessage `json:"resource"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("failed to parse bundle: %w", err)
	}
	if bundle.ResourceType != "Bundle" {
		return fmt.Errorf("expected Bundle, got %s", bundle.ResourceType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range bundle.Entry {
		if entry.Resource != nil && bundleResourceType(entry.Resource) == "CodeSystem" {
			_ = s.loadCodeSystem(entry.Resource)
		}
	}
	for _, entry := range bundle.Entry {
		if entry.Resource != nil && bundleResourceType(entry.Resource) == "ValueSet" {
			_ = s.loadValueSet(entry.Resource)
		}
	}

	return nil
}

type codeSystemResource struct {
	ResourceType string              `json:"resourceType"`
	URL          string              `json:"url"`
	Name         string              `json:"name"`
	Status       string              `json:"status"`
	Content      string              `json:"content"`
	Concept      []codeSystemConcept `json:"concept,omitempty"`
}

type codeSystemConcept struct {
	Code       string              `json:"code"`
	Display    string              `json:"display,omitempty"`
	Definition string              `json:"definition,omitempty"`
	Concept    []codeSystemConcept `json:"concept,omitempty"`
}

// loadCodeSystem indexes a CodeSystem's concepts by code, skipping ones
// whose content isn't actually enumerated in the resource ("not-present"
// or "example" content means the codes live elsewhere).
func (s *LocalTerminologyService) loadCodeSystem(data []byte) error {
	var cs codeSystemResource
	if err := json.Unmarshal(data, &cs); err != nil {
		return err
	}
	if cs.URL == "" {
		return nil
	}
	if cs.Content != "complete" && cs.Content != "fragment" {
		return nil
	}

	codes := make(map[string]*CodeInfo)
	s.flattenConcepts(cs.URL, cs.Concept, codes)
	if len(codes) > 0 {
		s.codeSystems[cs.URL] = codes
	}

	return nil
}

func (s *LocalTerminologyService) flattenConcepts(system string, concepts []codeSystemConcept, codes map[string]*CodeInfo) {
	for _, c := range concepts {
		codes[c.Code] = &CodeInfo{System: system, Code: c.Code, Display: c.Display, Active: true}
		if len(c.Concept) > 0 {
			s.flattenConcepts(system, c.Concept, codes)
		}
	}
}

type valueSetResource struct {
	ResourceType string             `json:"resourceType"`
	URL          string             `json:"url"`
	Name         string             `json:"name"`
	Status       string             `json:"status"`
	Compose      *valueSetCompose   `json:"compose,omitempty"`
	Expansion    *valueSetExpansion `json:"expansion,omitempty"`
}

type valueSetCompose struct {
	Include []valueSetInclude `json:"include,omitempty"`
	Exclude []valueSetInclude `json:"exclude,omitempty"`
}

type valueSetInclude struct {
	System  string            `json:"system,omitempty"`
	Version string            `json:"version,omitempty"`
	Concept []valueSetConcept `json:"concept,omitempty"`
	Filter  []valueSetFilter  `json:"filter,omitempty"`
}

type valueSetConcept struct {
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

type valueSetFilter struct {
	Property string `json:"property"`
	Op       string `json:"op"`
	Value    string `json:"value"`
}

type valueSetExpansion struct {
	Contains []expansionContains `json:"contains,omitempty"`
}

type expansionContains struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// loadValueSet stores a ValueSet's expanded codes, preferring its
// pre-computed expansion over re-deriving one from compose.
func (s *LocalTerminologyService) loadValueSet(data []byte) error {
	var vs valueSetResource
	if err := json.Unmarshal(data, &vs); err != nil {
		return err
	}
	if vs.URL == "" {
		return nil
	}

	var codes []*CodeInfo
	var systems []string

	switch {
	case vs.Expansion != nil && len(vs.Expansion.Contains) > 0:
		codes = s.expandFromExpansion(vs.Expansion)
	case vs.Compose != nil:
		codes, systems = s.expandFromCompose(vs.Compose)
	}

	if len(codes) > 0 {
		s.valueSets[vs.URL] = codes
		if len(systems) > 0 {
			s.valueSetSystems[vs.URL] = systems
		}
	}

	return nil
}

func (s *LocalTerminologyService) expandFromExpansion(expansion *valueSetExpansion) []*CodeInfo {
	codes := make([]*CodeInfo, 0, len(expansion.Contains))
	for _, c := range expansion.Contains {
		codes = append(codes, &CodeInfo{System: c.System, Code: c.Code, Display: c.Display, Active: true})
	}
	return codes
}

func (s *LocalTerminologyService) expandFromCompose(compose *valueSetCompose) (codes []*CodeInfo, systems []string) {
	systemSet := make(map[string]bool)

	for _, include := range compose.Include {
		if include.System == "" {
			continue
		}
		systemSet[include.System] = true
		codes = append(codes, s.expandInclude(include)...)
	}

	systems = make([]string, 0, len(systemSet))
	for system := range systemSet {
		systems = append(systems, system)
	}
	return codes, systems
}

// expandInclude resolves one compose.include clause: explicit concepts
// take precedence, then the referenced CodeSystem's codes, filtered if the
// include specifies filters.
func (s *LocalTerminologyService) expandInclude(include valueSetInclude) []*CodeInfo {
	if len(include.Concept) > 0 {
		codes := make([]*CodeInfo, 0, len(include.Concept))
		for _, c := range include.Concept {
			codes = append(codes, &CodeInfo{System: include.System, Code: c.Code, Display: c.Display, Active: true})
		}
		return codes
	}

	csCodes, ok := s.codeSystems[include.System]
	if !ok {
		return nil
	}
	if len(include.Filter) == 0 {
		codes := make([]*CodeInfo, 0, len(csCodes))
		for _, code := range csCodes {
			codes = append(codes, code)
		}
		return codes
	}

	return s.applyFilters(csCodes, include.Filter)
}

// applyFilters is a deliberately partial ValueSet filter implementation:
// it supports "=" and "in" on the "code" property, which covers the common
// spec ValueSets; hierarchy-based filters ("is-a", "descendent-of", ...)
// would need a concept hierarchy this service doesn't track, so every code
// passes them unfiltered.
func (s *LocalTerminologyService) applyFilters(codes map[string]*CodeInfo, filters []valueSetFilter) []*CodeInfo {
	matches := func(code *CodeInfo, filter valueSetFilter) bool {
		switch filter.Op {
		case "=":
			return filter.Property != "code" || code.Code == filter.Value
		case "in":
			if filter.Property != "code" {
				return true
			}
			for _, v := range strings.Split(filter.Value, ",") {
				if strings.TrimSpace(v) == code.Code {
					return true
				}
			}
			return false
		default:
			return true
		}
	}

	var result []*CodeInfo
	for _, code := range codes {
		include := true
		for _, filter := range filters {
			if !matches(code, filter) {
				include = false
				break
			}
		}
		if include {
			result = append(result, code)
		}
	}
	return result
}

func (s *LocalTerminologyService) ValidateCode(_ context.Context, system, code, valueSetURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes, ok := s.valueSets[normalizeValueSetURL(valueSetURL)]
	if !ok {
		return false, fmt.Errorf("ValueSet not found: %s", valueSetURL)
	}

	for _, c := range codes {
		if system != "" && c.System != system {
			continue
		}
		if c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *LocalTerminologyService) ExpandValueSet(_ context.Context, valueSetURL string) ([]CodeInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes, ok := s.valueSets[normalizeValueSetURL(valueSetURL)]
	if !ok {
		return nil, fmt.Errorf("ValueSet not found: %s", valueSetURL)
	}

	result := make([]CodeInfo, len(codes))
	for i, c := range codes {
		result[i] = *c
	}
	return result, nil
}

func (s *LocalTerminologyService) LookupCode(_ context.Context, system, code string) (*CodeInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes, ok := s.codeSystems[system]
	if !ok {
		return nil, fmt.Errorf("CodeSystem not found: %s", system)
	}

	codeInfo, ok := codes[code]
	if !ok {
		return nil, nil
	}

	copied := *codeInfo
	return &copied, nil
}

// Stats reports how much terminology data is currently loaded.
func (s *LocalTerminologyService) Stats() (codeSystems, valueSets, totalCodes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codeSystems = len(s.codeSystems)
	valueSets = len(s.valueSets)
	for _, codes := range s.codeSystems {
		totalCodes += len(codes)
	}
	return
}

func (s *LocalTerminologyService) HasValueSet(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.valueSets[normalizeValueSetURL(url)]
	return ok
}

func (s *LocalTerminologyService) HasCodeSystem(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.codeSystems[url]
	return ok
}

// normalizeValueSetURL drops a "|version" suffix, e.g.
// "http://hl7.org/fhir/ValueSet/address-use|4.0.1" -> ".../address-use".
func normalizeValueSetURL(url string) string {
	if idx := strings.Index(url, "|"); idx != -1 {
		return url[:idx]
	}
	return url
}
