package metadata

import (
	"github.com/fhirlang/gofhir/pkg/fhirpath"
)

// CompiledInvariant is a cached, ready-to-evaluate FHIRPath invariant
// expression plus the diagnostic metadata needed to report a violation.
type CompiledInvariant struct {
	Key        string
	Severity   string
	Human      string
	Expression *fhirpath.Expression
}

// CompileInvariant compiles expression (caching the result under
// profileURL|version|key, per the documented "both caches are keyed on
// canonical URL plus version" rule extended with the constraint key to
// disambiguate multiple invariants on one profile) and returns it, or an
// error if the expression fails to parse. A compile failure is not cached,
// so a later call with the same key compiles the expression again.
func (idx *Index) CompileInvariant(profileURL, profileVersion, key, severity, human, expression string) (*CompiledInvariant, error) {
	cacheKey := profileURL + "|" + profileVersion + "|" + key
	if cached, ok := idx.invariants.get(cacheKey); ok {
		if ci, ok := cached.(*CompiledInvariant); ok {
			return ci, nil
		}
	}

	compiled, err := fhirpath.Compile(expression)
	if err != nil {
		return nil, err
	}
	ci := &CompiledInvariant{Key: key, Severity: severity, Human: human, Expression: compiled}
	idx.invariants.put(cacheKey, ci)
	return ci, nil
}
