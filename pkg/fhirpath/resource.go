package fhirpath

import (
	"encoding/json"
	"fmt"

	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

// Collection is an alias for types.Collection for easier external use.
type Collection = types.Collection

// Value is an alias for types.Value for easier external use.
type Value = types.Value

// Resource represents any FHIR resource that can be evaluated.
type Resource interface {
	GetResourceType() string
}

// marshalResource serializes a Go resource, wrapping json's error with
// enough context to tell it apart from a FHIRPath evaluation failure.
func marshalResource(resource Resource) ([]byte, error) {
	jsonBytes, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return jsonBytes, nil
}

// EvaluateResource evaluates a FHIRPath expression against a Go struct.
// The resource is serialized to JSON first, then evaluated.
// For better performance with multiple evaluations, cache the JSON bytes.
func EvaluateResource(resource Resource, expr string) (Collection, error) {
	jsonBytes, err := marshalResource(resource)
	if err != nil {
		return nil, err
	}
	return Evaluate(jsonBytes, expr)
}

// EvaluateResourceCached is like EvaluateResource but uses the expression cache.
func EvaluateResourceCached(resource Resource, expr string) (Collection, error) {
	jsonBytes, err := marshalResource(resource)
	if err != nil {
		return nil, err
	}
	return EvaluateCached(jsonBytes, expr)
}

// ResourceJSON wraps a resource with its pre-serialized JSON for efficient repeated evaluation.
type ResourceJSON struct {
	resource Resource
	json     []byte
}

// NewResourceJSON creates a ResourceJSON from a Go resource.
func NewResourceJSON(resource Resource) (*ResourceJSON, error) {
	jsonBytes, err := marshalResource(resource)
	if err != nil {
		return nil, err
	}
	return &ResourceJSON{
		resource: resource,
		json:     jsonBytes,
	}, nil
}

// MustNewResourceJSON is like NewResourceJSON but panics on error.
func MustNewResourceJSON(resource Resource) *ResourceJSON {
	return must(NewResourceJSON(resource))
}

// Evaluate evaluates a FHIRPath expression against this resource.
func (r *ResourceJSON) Evaluate(expr string) (Collection, error) {
	return Evaluate(r.json, expr)
}

// EvaluateCached evaluates using the expression cache.
func (r *ResourceJSON) EvaluateCached(expr string) (Collection, error) {
	return EvaluateCached(r.json, expr)
}

// JSON returns the pre-serialized JSON bytes.
func (r *ResourceJSON) JSON() []byte {
	return r.json
}

// Resource returns the original Go resource.
func (r *ResourceJSON) Resource() Resource {
	return r.resource
}

// singleValue evaluates expr and returns its lone result, reporting ok=false
// (not an error) when the collection is empty, and an error when it holds
// more than one value.
func singleValue(resource []byte, expr string) (value Value, ok bool, err error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return nil, false, err
	}
	if result.Empty() {
		return nil, false, nil
	}
	if len(result) != 1 {
		return nil, false, fmt.Errorf("expected single value, got %d", len(result))
	}
	return result[0], true, nil
}

// EvaluateToBoolean evaluates an expression and returns a boolean result.
// Returns false with no error if the result is empty, and an error if it
// holds more than one value or a non-Boolean value.
func EvaluateToBoolean(resource []byte, expr string) (bool, error) {
	value, ok, err := singleValue(resource, expr)
	if err != nil || !ok {
		return false, err
	}
	b, ok := value.(types.Boolean)
	if !ok {
		return false, fmt.Errorf("expected Boolean, got %s", value.Type())
	}
	return b.Bool(), nil
}

// EvaluateToString evaluates an expression and returns a string result.
func EvaluateToString(resource []byte, expr string) (string, error) {
	value, ok, err := singleValue(resource, expr)
	if err != nil || !ok {
		return "", err
	}
	if s, ok := value.(types.String); ok {
		return s.Value(), nil
	}
	// Try to convert to string
	return value.String(), nil
}

// EvaluateToStrings evaluates an expression and returns all results as strings.
func EvaluateToStrings(resource []byte, expr string) ([]string, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return nil, err
	}
	strings := make([]string, len(result))
	for i, v := range result {
		if s, ok := v.(types.String); ok {
			strings[i] = s.Value()
		} else {
			strings[i] = v.String()
		}
	}
	return strings, nil
}

// Exists evaluates an expression and returns true if any results exist.
func Exists(resource []byte, expr string) (bool, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return false, err
	}
	return !result.Empty(), nil
}

// Count evaluates an expression and returns the number of results.
func Count(resource []byte, expr string) (int, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return 0, err
	}
	return len(result), nil
}
