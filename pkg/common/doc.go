// Package common provides small shared utilities used across the GoFHIR
// toolkit: pointer helpers for optional scalar fields, a generic JSON-based
// deep-copy, and path-annotated internal errors.
package common
