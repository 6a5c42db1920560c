// Package cql compiles CQL source to ELM, the language-neutral intermediate
// representation, and provides a few introspection helpers used by the
// CLI's `cql info` and REPL commands.
package cql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fhirlang/gofhir/pkg/cql/ast"
	"github.com/fhirlang/gofhir/pkg/cql/builder"
	"github.com/fhirlang/gofhir/pkg/cql/elm"
	"github.com/fhirlang/gofhir/pkg/cql/parser"
)

// Options re-exports builder.Options so callers need only import this
// package for ordinary compilation.
type Options = builder.Options

// Diagnostic re-exports builder.Diagnostic.
type Diagnostic = builder.Diagnostic

// SignatureLevel re-exports builder.SignatureLevel.
type SignatureLevel = builder.SignatureLevel

// SignatureAll re-exports builder.SignatureAll, the highest signature
// level. The builder emits no overload signatures at any level.
const SignatureAll = builder.SignatureAll

// DefaultOptions returns the documented compiler-option defaults.
func DefaultOptions() Options { return builder.DefaultOptions() }

// Result is the outcome of compiling one CQL source file.
type Result struct {
	Library     *elm.Library
	Diagnostics []Diagnostic
}

// HasErrors reports whether any diagnostic is error severity.
func (r Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == builder.SeverityError {
			return true
		}
	}
	return false
}

// Compile parses and lowers CQL source to an ELM library.
func Compile(source string, opts Options) (Result, error) {
	lib, parseDiags := parser.Parse(source)
	var diags []Diagnostic
	for _, d := range parseDiags {
		diags = append(diags, builder.Diagnostic{Severity: builder.SeverityError, Message: d.Error()})
	}
	if len(parseDiags) > 0 {
		return Result{Diagnostics: diags}, fmt.Errorf("parse errors: %d", len(parseDiags))
	}

	out, buildDiags := builder.Build(lib, opts)
	diags = append(diags, buildDiags...)
	return Result{Library: out, Diagnostics: diags}, nil
}

// CompileToJSON compiles source and serializes the resulting library as
// JSON. pretty selects indented vs compact output; both forms decode to an
// identical logical tree.
func CompileToJSON(source string, opts Options, pretty bool) ([]byte, Result, error) {
	res, err := Compile(source, opts)
	if err != nil {
		return nil, res, err
	}
	if res.Library == nil {
		return nil, res, nil
	}
	if pretty {
		b, jerr := json.MarshalIndent(res.Library, "", "  ")
		return b, res, jerr
	}
	b, jerr := json.Marshal(res.Library)
	return b, res, jerr
}

// Validate compiles source purely for diagnostics, discarding the library
// (equivalent to Options.VerifyOnly).
func Validate(source string, opts Options) []Diagnostic {
	opts.VerifyOnly = true
	res, err := Compile(source, opts)
	if err != nil {
		return res.Diagnostics
	}
	return res.Diagnostics
}

// LibrarySummary is a compact description of a library's public surface,
// used by the `cql info` subcommand.
type LibrarySummary struct {
	Name          string
	Version       string
	Usings        []string
	Includes      []string
	Parameters    []string
	ValueSets     []string
	CodeSystems   []string
	PublicDefines []string
	Context       string
}

// Info parses source (without full ELM lowering) and summarizes its public
// surface.
func Info(source string) (LibrarySummary, []*parser.Diagnostic) {
	lib, diags := parser.Parse(source)
	var s LibrarySummary
	if lib.Identifier != nil {
		s.Name = lib.Identifier.Name
		s.Version = lib.Identifier.Version
	}
	for _, u := range lib.Usings {
		s.Usings = append(s.Usings, u.Model)
	}
	for _, inc := range lib.Includes {
		s.Includes = append(s.Includes, inc.Alias)
	}
	for _, p := range lib.Parameters {
		s.Parameters = append(s.Parameters, p.Name)
	}
	for _, vs := range lib.ValueSets {
		s.ValueSets = append(s.ValueSets, vs.Name)
	}
	for _, cs := range lib.CodeSystems {
		s.CodeSystems = append(s.CodeSystems, cs.Name)
	}
	for _, def := range lib.Statements {
		if def.Access == ast.Public {
			s.PublicDefines = append(s.PublicDefines, def.Name)
		}
		if s.Context == "" {
			s.Context = def.Context
		}
	}
	return s, diags
}

// String renders a human-readable summary, one field per line.
func (s LibrarySummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "library: %s %s\n", s.Name, s.Version)
	fmt.Fprintf(&sb, "context: %s\n", s.Context)
	if len(s.Usings) > 0 {
		fmt.Fprintf(&sb, "using: %s\n", strings.Join(s.Usings, ", "))
	}
	if len(s.Includes) > 0 {
		fmt.Fprintf(&sb, "include: %s\n", strings.Join(s.Includes, ", "))
	}
	if len(s.Parameters) > 0 {
		fmt.Fprintf(&sb, "parameters: %s\n", strings.Join(s.Parameters, ", "))
	}
	if len(s.ValueSets) > 0 {
		fmt.Fprintf(&sb, "valuesets: %s\n", strings.Join(s.ValueSets, ", "))
	}
	if len(s.CodeSystems) > 0 {
		fmt.Fprintf(&sb, "codesystems: %s\n", strings.Join(s.CodeSystems, ", "))
	}
	fmt.Fprintf(&sb, "defines: %s\n", strings.Join(s.PublicDefines, ", "))
	return sb.String()
}
