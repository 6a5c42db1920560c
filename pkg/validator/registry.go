// Package validator provides FHIR resource validation based on StructureDefinitions.
package validator

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

// FHIRVersion names a FHIR specification release.
type FHIRVersion string

const (
	FHIRVersionR4  FHIRVersion = "R4"
	FHIRVersionR4B FHIRVersion = "R4B"
	FHIRVersionR5  FHIRVersion = "R5"

	resourceTypeStructureDefinition = "StructureDefinition"
)

// Registry is a StructureDefinitionProvider backed by an in-memory index,
// populated from embedded specs or external files. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	byURL   map[string]*StructureDef
	byType  map[string]*StructureDef
	version FHIRVersion
}

func NewRegistry(version FHIRVersion) *Registry {
	return &Registry{
		byURL:   make(map[string]*StructureDef),
		byType:  make(map[string]*StructureDef),
		version: version,
	}
}

func (r *Registry) Get(_ context.Context, url string) (*StructureDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if sd, ok := r.byURL[url]; ok {
		return sd, nil
	}
	return nil, fmt.Errorf("StructureDefinition not found: %s", url)
}

func (r *Registry) GetByType(_ context.Context, resourceType string) (*StructureDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if sd, ok := r.byType[resourceType]; ok {
		return sd, nil
	}
	return nil, fmt.Errorf("StructureDefinition not found for type: %s", resourceType)
}

// List returns every registered canonical URL, sorted for deterministic
// output (map iteration order isn't, and callers diff or display this
// directly).
func (r *Registry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	urls := make([]string, 0, len(r.byURL))
	for url := range r.byURL {
		urls = append(urls, url)
	}
	slices.Sort(urls)
	return urls, nil
}

// Register indexes sd by URL, and additionally by resource type when it's a
// non-profile base resource definition, preferring the canonical HL7 URL
// over any other URL that happens to register first for that type.
func (r *Registry) Register(sd *StructureDef) error {
	if sd == nil {
		return fmt.Errorf("cannot register nil StructureDefinition")
	}
	if sd.URL == "" {
		return fmt.Errorf("StructureDefinition must have a URL")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byURL[sd.URL] = sd

	if sd.Type != "" && sd.Kind == "resource" && !strings.Contains(sd.URL, "/profile/") {
		if _, exists := r.byType[sd.Type]; !exists || isCanonicalURL(sd.URL, sd.Type) {
			r.byType[sd.Type] = sd
		}
	}

	return nil
}

func isCanonicalURL(url, resourceType string) bool {
	return url == "http://hl7.org/fhir/StructureDefinition/"+resourceType
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byURL)
}

// LoadFromBundle registers every StructureDefinition entry in a FHIR Bundle
// JSON document, the format used by profiles-resources.json and similar
// spec bundles. Non-StructureDefinition and malformed entries are skipped.
func (r *Registry) LoadFromBundle(data []byte) (int, error) {
	var bundle struct {
		Entry []struct {
			Resource json.RawMessage `json:"resource"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(data, &bundle); err != nil {
		return 0, fmt.Errorf("failed to parse bundle: %w", err)
	}

	count := 0
	for _, entry := range bundle.Entry {
		var probe struct {
			ResourceType string `json:"resourceType"`
		}
		if err := json.Unmarshal(entry.Resource, &probe); err != nil {
			continue
		}
		if probe.ResourceType != resourceTypeStructureDefinition {
			continue
		}

		sd, err := ParseStructureDefinition(entry.Resource)
		if err != nil {
			continue
		}
		if err := r.Register(sd); err != nil {
			continue
		}
		count++
	}

	return count, nil
}

func (r *Registry) LoadFromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return r.LoadFromJSON(data)
}

// LoadFromJSON registers either a single StructureDefinition document or a
// Bundle of them, detected from resourceType.
func (r *Registry) LoadFromJSON(data []byte) (int, error) {
	var probe struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, fmt.Errorf("invalid JSON: %w", err)
	}

	switch probe.ResourceType {
	case "Bundle":
		return r.LoadFromBundle(data)
	case resourceTypeStructureDefinition:
		sd, err := ParseStructureDefinition(data)
		if err != nil {
			return 0, err
		}
		if err := r.Register(sd); err != nil {
			return 0, err
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("unsupported resourceType: %s", probe.ResourceType)
	}
}

func (r *Registry) LoadFromDirectory(dirPath string) (int, error) {
	total := 0
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		if count, err := r.LoadFromFile(path); err == nil {
			total += count
		}
		return nil
	})
	return total, err
}

// LoadFromFS is LoadFromDirectory for an embedded filesystem.
func (r *Registry) LoadFromFS(fsys embed.FS, root string) (int, error) {
	total := 0
	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		data, err := fsys.ReadFile(path)
		if err != nil {
			return nil
		}
		if count, err := r.LoadFromJSON(data); err == nil {
			total += count
		}
		return nil
	})
	return total, err
}

// rawStr extracts a string field, defaulting to "" for a missing or
// wrong-typed key, which is the common case across the ad hoc JSON maps
// StructureDefinitions are parsed from below.
func rawStr(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// ParseStructureDefinition extracts the fields validation needs from a raw
// StructureDefinition document, working across FHIR versions by reading a
// generic map rather than an exact struct.
func ParseStructureDefinition(data []byte) (*StructureDef, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse StructureDefinition: %w", err)
	}
	if rt := rawStr(raw, "resourceType"); rt != resourceTypeStructureDefinition {
		return nil, fmt.Errorf("not a StructureDefinition: %s", rt)
	}

	sd := &StructureDef{
		URL:            rawStr(raw, "url"),
		Name:           rawStr(raw, "name"),
		Type:           rawStr(raw, "type"),
		Kind:           rawStr(raw, "kind"),
		BaseDefinition: rawStr(raw, "baseDefinition"),
		FHIRVersion:    rawStr(raw, "fhirVersion"),
	}
	sd.Abstract, _ = raw["abstract"].(bool)

	if snapshot, ok := raw["snapshot"].(map[string]interface{}); ok {
		if elements, ok := snapshot["element"].([]interface{}); ok {
			sd.Snapshot = parseElements(elements)
		}
	}
	if differential, ok := raw["differential"].(map[string]interface{}); ok {
		if elements, ok := differential["element"].([]interface{}); ok {
			sd.Differential = parseElements(elements)
		}
	}

	return sd, nil
}

// parseList runs parse over every map-shaped element of items, discarding
// entries that aren't objects; it backs every raw-JSON-to-struct-slice
// conversion below.
func parseList[T any](items []interface{}, parse func(map[string]interface{}) T) []T {
	result := make([]T, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		result = append(result, parse(m))
	}
	return result
}

func parseElements(elements []interface{}) []ElementDef {
	return parseList(elements, func(m map[string]interface{}) ElementDef {
		ed := ElementDef{
			ID:         rawStr(m, "id"),
			Path:       rawStr(m, "path"),
			SliceName:  rawStr(m, "sliceName"),
			Max:        rawStr(m, "max"),
			Short:      rawStr(m, "short"),
			Definition: rawStr(m, "definition"),
		}
		if minVal, ok := m["min"].(float64); ok {
			ed.Min = int(minVal)
		}
		ed.MustSupport, _ = m["mustSupport"].(bool)
		ed.IsModifier, _ = m["isModifier"].(bool)
		ed.IsSummary, _ = m["isSummary"].(bool)

		if types, ok := m["type"].([]interface{}); ok {
			ed.Types = parseTypes(types)
		}
		if binding, ok := m["binding"].(map[string]interface{}); ok {
			ed.Binding = parseBinding(binding)
		}
		if constraints, ok := m["constraint"].([]interface{}); ok {
			ed.Constraints = parseConstraints(constraints)
		}

		// fixed[x]/pattern[x]: the concrete suffix (fixedString, patternCodeableConcept, ...)
		// varies by element type, so match on prefix rather than an exact key.
		for key, val := range m {
			if strings.HasPrefix(key, "fixed") {
				ed.Fixed = val
			}
			if strings.HasPrefix(key, "pattern") {
				ed.Pattern = val
			}
		}

		return ed
	})
}

func stringsOf(items []interface{}) []string {
	var result []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

func parseTypes(types []interface{}) []TypeRef {
	return parseList(types, func(m map[string]interface{}) TypeRef {
		tr := TypeRef{Code: rawStr(m, "code")}
		if targets, ok := m["targetProfile"].([]interface{}); ok {
			tr.TargetProfile = stringsOf(targets)
		}
		if profiles, ok := m["profile"].([]interface{}); ok {
			tr.Profile = stringsOf(profiles)
		}
		return tr
	})
}

func parseBinding(binding map[string]interface{}) *ElementBinding {
	return &ElementBinding{
		Strength:    rawStr(binding, "strength"),
		ValueSet:    rawStr(binding, "valueSet"),
		Description: rawStr(binding, "description"),
	}
}

func parseConstraints(constraints []interface{}) []ElementConstraint {
	return parseList(constraints, func(m map[string]interface{}) ElementConstraint {
		return ElementConstraint{
			Key:        rawStr(m, "key"),
			Severity:   rawStr(m, "severity"),
			Human:      rawStr(m, "human"),
			Expression: rawStr(m, "expression"),
			XPath:      rawStr(m, "xpath"),
			Source:     rawStr(m, "source"),
		}
	})
}

// LoadR4Specs loads the three standard R4 spec bundles (resources, types,
// extensions) from specsDir, tolerating any of them being absent.
func (r *Registry) LoadR4Specs(specsDir string) (int, error) {
	total := 0
	for _, name := range []string{"profiles-resources.json", "profiles-types.json", "extension-definitions.json"} {
		if count, err := r.LoadFromFile(filepath.Join(specsDir, name)); err == nil {
			total += count
		}
	}
	return total, nil
}
