package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadPackageDir loads StructureDefinitions, CodeSystems, and ValueSets
// from a FHIR package directory laid out per the conventional package
// cache: `$HOME/.fhir/packages/<pkg>#<ver>/package`. Every JSON file in
// that directory is probed and routed by resourceType.
func (idx *Index) LoadPackageDir(dir string) (structureDefs, terminology int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("metadata: reading package dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		path := filepath.Join(dir, name)
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}

		if n, loadErr := idx.registry.LoadFromJSON(data); loadErr == nil && n > 0 {
			structureDefs += n
			continue
		}
		// A standalone CodeSystem or ValueSet file is wrapped as a one-entry
		// Bundle, the only shape the terminology loader reads.
		var probe struct {
			ResourceType string `json:"resourceType"`
		}
		if json.Unmarshal(data, &probe) == nil && (probe.ResourceType == "CodeSystem" || probe.ResourceType == "ValueSet") {
			data = append(append([]byte(`{"resourceType":"Bundle","entry":[{"resource":`), data...), `}]}`...)
		}
		if loadErr := idx.terminology.LoadFromBundle(data); loadErr == nil {
			terminology++
		}
	}
	return structureDefs, terminology, nil
}

// PackageCacheDir returns the conventional on-disk location of a package
// version within the user's FHIR package cache:
// $HOME/.fhir/packages/<name>#<version>/package.
func PackageCacheDir(home, name, version string) string {
	return filepath.Join(home, ".fhir", "packages", name+"#"+version, "package")
}

// LoadPackage loads a package by name/version from the user's conventional
// FHIR package cache directory.
func (idx *Index) LoadPackage(home, name, version string) (structureDefs, terminology int, err error) {
	return idx.LoadPackageDir(PackageCacheDir(home, name, version))
}
