// Package metadata provides the Metadata Index: a canonical-URL-keyed
// store of FHIR StructureDefinitions and terminology resources, with
// differential-to-snapshot materialization and package-directory loading.
// It implements validator.StructureDefinitionProvider so a *validator.
// Validator can consume it as a drop-in profile source.
package metadata

import (
	"context"
	"fmt"

	"github.com/fhirlang/gofhir/pkg/validator"
)

// snapshotCacheSize and invariantCacheSize bound the two LRU caches the
// Index keeps, both keyed on canonical URL plus version.
const (
	snapshotCacheSize  = 256
	invariantCacheSize = 512
)

// Index is the shared, immutable-after-load view of FHIR conformance
// resources (StructureDefinitions and terminology) that the FHIRPath
// evaluator, the CQL builder, and the validator all read from. It is safe
// for concurrent use once loading has completed; loading itself is
// synchronous, per the single bootstrap pass described for a Metadata
// Index.
type Index struct {
	registry    *validator.Registry
	terminology *validator.LocalTerminologyService

	snapshots  *lruCache
	invariants *lruCache
}

// NewIndex creates an empty Index for the given FHIR version.
func NewIndex(version validator.FHIRVersion) *Index {
	return &Index{
		registry:    validator.NewRegistry(version),
		terminology: validator.NewLocalTerminologyService(),
		snapshots:   newLRUCache(snapshotCacheSize),
		invariants:  newLRUCache(invariantCacheSize),
	}
}

// Registry exposes the underlying StructureDefinition registry for bulk
// loading (LoadFromDirectory, LoadFromFS, LoadFromBundle, ...).
func (idx *Index) Registry() *validator.Registry { return idx.registry }

// Terminology exposes the underlying terminology service for bulk loading
// and for wiring into a Validator as its TerminologyService.
func (idx *Index) Terminology() *validator.LocalTerminologyService { return idx.terminology }

// Get implements validator.StructureDefinitionProvider: it returns the
// StructureDefinition for url with its snapshot materialized if the stored
// definition carries only a differential.
func (idx *Index) Get(ctx context.Context, url string) (*validator.StructureDef, error) {
	raw, err := idx.registry.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return idx.Snapshot(ctx, raw)
}

// GetByType implements validator.StructureDefinitionProvider.
func (idx *Index) GetByType(ctx context.Context, resourceType string) (*validator.StructureDef, error) {
	raw, err := idx.registry.GetByType(ctx, resourceType)
	if err != nil {
		return nil, err
	}
	return idx.Snapshot(ctx, raw)
}

// List implements validator.StructureDefinitionProvider.
func (idx *Index) List(ctx context.Context) ([]string, error) {
	return idx.registry.List(ctx)
}

// cacheKey combines canonical URL and version, per the documented
// "both caches are keyed on canonical URL plus version" rule.
func cacheKey(sd *validator.StructureDef) string {
	return sd.URL + "|" + sd.FHIRVersion
}

// Snapshot returns sd unchanged if it already carries a snapshot;
// otherwise it materializes one by splicing sd's differential onto its
// base definition's snapshot, resolved transitively through
// baseDefinition, with cycle detection. Results are cached.
func (idx *Index) Snapshot(ctx context.Context, sd *validator.StructureDef) (*validator.StructureDef, error) {
	if len(sd.Snapshot) > 0 {
		return sd, nil
	}
	if cached, ok := idx.snapshots.get(cacheKey(sd)); ok {
		return cached.(*validator.StructureDef), nil
	}

	resolved, err := idx.materialize(ctx, sd, map[string]bool{})
	if err != nil {
		return nil, err
	}
	idx.snapshots.put(cacheKey(sd), resolved)
	return resolved, nil
}

// materialize builds sd's snapshot by recursively resolving its base
// chain. visited guards against a baseDefinition cycle; encountering a URL
// already on the current resolution path is an error rather than an
// infinite loop.
func (idx *Index) materialize(ctx context.Context, sd *validator.StructureDef, visited map[string]bool) (*validator.StructureDef, error) {
	if visited[sd.URL] {
		return nil, fmt.Errorf("metadata: cycle detected in baseDefinition chain at %s", sd.URL)
	}
	visited[sd.URL] = true

	if sd.BaseDefinition == "" {
		// Root definition (e.g. the abstract Element/Resource root); its
		// differential, if any, is its whole snapshot.
		out := *sd
		if len(out.Snapshot) == 0 {
			out.Snapshot = out.Differential
		}
		return &out, nil
	}

	base, err := idx.registry.Get(ctx, sd.BaseDefinition)
	if err != nil {
		return nil, fmt.Errorf("metadata: resolving base %q for %q: %w", sd.BaseDefinition, sd.URL, err)
	}

	var baseSnapshot []validator.ElementDef
	if len(base.Snapshot) > 0 {
		baseSnapshot = base.Snapshot
	} else {
		resolvedBase, err := idx.materialize(ctx, base, visited)
		if err != nil {
			return nil, err
		}
		baseSnapshot = resolvedBase.Snapshot
	}

	merged := spliceDifferential(baseSnapshot, sd.Differential)
	out := *sd
	out.Snapshot = merged
	return &out, nil
}

// spliceDifferential overlays differential elements onto the base
// snapshot by path: an element present in both narrows cardinality and
// tightens type/binding on the base copy; an element new to the
// differential is appended in differential order.
func spliceDifferential(base []validator.ElementDef, diff []validator.ElementDef) []validator.ElementDef {
	byPath := make(map[string]int, len(base))
	result := make([]validator.ElementDef, len(base))
	copy(result, base)
	for i, e := range result {
		byPath[e.Path] = i
	}

	for _, d := range diff {
		if i, ok := byPath[d.Path]; ok {
			result[i] = overlay(result[i], d)
			continue
		}
		byPath[d.Path] = len(result)
		result = append(result, d)
	}
	return result
}

// overlay applies a differential element d onto a base element, narrowing
// cardinality (never widening), tightening the type list when the
// differential restates it, and overlaying a binding at least as strong.
func overlay(base, d validator.ElementDef) validator.ElementDef {
	out := base
	out.SliceName = firstNonEmpty(d.SliceName, base.SliceName)
	if d.Min > out.Min {
		out.Min = d.Min
	}
	if d.Max != "" && narrowsMax(out.Max, d.Max) {
		out.Max = d.Max
	}
	if len(d.Types) > 0 {
		out.Types = d.Types
	}
	out.Short = firstNonEmpty(d.Short, base.Short)
	out.Definition = firstNonEmpty(d.Definition, base.Definition)
	if d.Fixed != nil {
		out.Fixed = d.Fixed
	}
	if d.Pattern != nil {
		out.Pattern = d.Pattern
	}
	if d.Binding != nil && bindingIsStronger(d.Binding, base.Binding) {
		out.Binding = d.Binding
	}
	if len(d.Constraints) > 0 {
		out.Constraints = append(append([]validator.ElementConstraint{}, base.Constraints...), d.Constraints...)
	}
	out.MustSupport = out.MustSupport || d.MustSupport
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// narrowsMax reports whether candidate is a narrower cardinality ceiling
// than current ("*" is widest; smaller integers are narrower than "*" or
// larger integers).
func narrowsMax(current, candidate string) bool {
	if current == "" {
		return true
	}
	if candidate == current {
		return false
	}
	if current == "*" {
		return true
	}
	if candidate == "*" {
		return false
	}
	var curN, candN int
	if _, err := fmt.Sscanf(current, "%d", &curN); err != nil {
		return true
	}
	if _, err := fmt.Sscanf(candidate, "%d", &candN); err != nil {
		return false
	}
	return candN < curN
}

var bindingStrengthRank = map[string]int{
	"example":   0,
	"preferred": 1,
	"extensible": 2,
	"required":  3,
}

// bindingIsStronger reports whether candidate binds at least as strictly as
// current (nil current is weakest possible).
func bindingIsStronger(candidate, current *validator.ElementBinding) bool {
	if current == nil {
		return true
	}
	return bindingStrengthRank[candidate.Strength] >= bindingStrengthRank[current.Strength]
}
