// Package funcs implements the standard library of FHIRPath functions
// (existence, filtering, string, math, date/time, FHIR-specific, ...) and
// the registry the evaluator dispatches through.
package funcs

import (
	"sort"
	"sync"

	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
)

// FuncDef describes one registrable FHIRPath function: its name, arity
// bounds, and implementation.
type FuncDef = eval.FuncDef

// Registry is a concurrency-safe name -> FuncDef lookup table. Every funcs
// file populates the package-level globalRegistry from its own init(); a
// caller embedding the engine can build an independent Registry to add or
// override functions without touching package state.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]eval.FuncDef
}

var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]eval.FuncDef)}
}

func (r *Registry) Register(def eval.FuncDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[def.Name] = def
}

func (r *Registry) Get(name string) (eval.FuncDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.funcs[name]
	return def, ok
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.funcs[name]
	return ok
}

// List returns every registered function name, sorted for reproducible
// output (error messages, CLI listings, diffable snapshots).
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// register bulk-loads def into the global registry; every funcs file's
// init() calls this once with its own function table.
func register(defs []FuncDef) {
	for _, d := range defs {
		Register(d)
	}
}

func Register(def eval.FuncDef) { globalRegistry.Register(def) }

func Get(name string) (eval.FuncDef, bool) { return globalRegistry.Get(name) }

func Has(name string) bool { return globalRegistry.Has(name) }

func List() []string { return globalRegistry.List() }

// GetRegistry returns the process-wide function registry the evaluator
// dispatches against by default.
func GetRegistry() *Registry { return globalRegistry }
