package common

import (
	"errors"
	"fmt"
)

// PathError attaches a FHIR element path to an internal error, for
// parsing/serialization failures — not for validation findings, which are
// reported as OperationOutcome issues by the validator package.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("at %s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// WrapPath wraps err with path context, or returns nil if err is nil.
func WrapPath(path string, err error) error {
	if err == nil {
		return nil
	}
	return &PathError{Path: path, Err: err}
}

func WrapPathf(path, format string, args ...any) error {
	return &PathError{Path: path, Err: fmt.Errorf(format, args...)}
}

// Sentinel errors for internal programming/system conditions, distinct
// from FHIR validation findings.
var (
	ErrNilResource = errors.New("resource is nil")
	ErrUnknownType = errors.New("unknown resource type")

	ErrInvalidJSON     = errors.New("invalid JSON")
	ErrMarshalFailed   = errors.New("marshal failed")
	ErrUnmarshalFailed = errors.New("unmarshal failed")

	ErrInvalidSpec     = errors.New("invalid specification")
	ErrMissingRequired = errors.New("missing required field in spec")

	ErrInvalidExpression = errors.New("invalid FHIRPath expression")
	ErrEvaluationFailed   = errors.New("FHIRPath evaluation failed")
)

func IsPathError(err error) bool {
	var pathErr *PathError
	return errors.As(err, &pathErr)
}

// GetPath extracts the path from a wrapped PathError, or "" if err isn't one.
func GetPath(err error) string {
	var pathErr *PathError
	if errors.As(err, &pathErr) {
		return pathErr.Path
	}
	return ""
}
