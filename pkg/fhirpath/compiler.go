package fhirpath

import (
	"fmt"
	"strings"

	"github.com/fhirlang/gofhir/pkg/fhirpath/parser"
)

// compile parses a FHIRPath expression into a compiled Expression.
func compile(expr string) (*Expression, error) {
	if expr == "" {
		return nil, fmt.Errorf("empty expression")
	}

	tree, diags := parser.Parse(expr)
	if len(diags) > 0 {
		msgs := make([]string, len(diags))
		for i, d := range diags {
			msgs[i] = d.Error()
		}
		return nil, fmt.Errorf("parse errors: %s", strings.Join(msgs, "; "))
	}

	return &Expression{
		source: expr,
		tree:   tree,
	}, nil
}
