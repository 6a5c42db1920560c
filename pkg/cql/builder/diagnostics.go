package builder

import "fmt"

// Severity classifies a build diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic reports a semantic issue found while lowering CQL AST to ELM:
// unresolved identifiers, ambiguous references, unknown types, and
// terminology warnings.
type Diagnostic struct {
	Severity Severity
	Message  string
	Locator  string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

func errorf(locator, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Severity: SeverityError, Message: fmt.Sprintf(format, args...), Locator: locator}
}

func warnf(locator, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...), Locator: locator}
}
