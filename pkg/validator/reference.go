// Package validator provides FHIR resource validation based on StructureDefinitions.
package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Reference string formats, per https://www.hl7.org/fhir/references.html.
var (
	relativeRefPattern = regexp.MustCompile(`^([A-Za-z]+)/([A-Za-z0-9\-.]+)$`)
	absoluteRefPattern = regexp.MustCompile(`^https?://[^/]+/.*/([A-Za-z]+)/([A-Za-z0-9\-.]+)$`)
	containedRefPattern = regexp.MustCompile(`^#([A-Za-z0-9\-.]+)$`)
	urnUUIDPattern       = regexp.MustCompile(`^urn:uuid:[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	urnOIDPattern        = regexp.MustCompile(`^urn:oid:[012](\.\d+)+$`)
	arrayIndexPattern    = regexp.MustCompile(`\[\d+\]`)
)

// ParsedReference is the decomposed form of a FHIR reference string.
type ParsedReference struct {
	Type         string // relative | absolute | contained | urn-uuid | urn-oid | canonical | unknown
	ResourceType string
	ID           string
	Raw          string
	Valid        bool
	Version      string // canonical references only
}

const (
	RefTypeRelative  = "relative"
	RefTypeAbsolute  = "absolute"
	RefTypeContained = "contained"
	RefTypeUrnUUID   = "urn-uuid"
	RefTypeUrnOID    = "urn-oid"
	RefTypeCanonical = "canonical"
	RefTypeUnknown   = "unknown"
)

// ParseReference classifies a FHIR reference string and extracts whatever
// components that format carries. Order matters: URN forms are checked
// before the absolute-URL pattern so "urn:uuid:..." isn't mistaken for one,
// and canonical URLs are only considered once every more specific shape has
// failed to match.
func ParseReference(ref string) *ParsedReference {
	if ref == "" {
		return &ParsedReference{Raw: ref, Valid: false, Type: RefTypeUnknown}
	}

	if matches := containedRefPattern.FindStringSubmatch(ref); matches != nil {
		return &ParsedReference{Type: RefTypeContained, ID: matches[1], Raw: ref, Valid: true}
	}

	if matches := relativeRefPattern.FindStringSubmatch(ref); matches != nil {
		return &ParsedReference{Type: RefTypeRelative, ResourceType: matches[1], ID: matches[2], Raw: ref, Valid: true}
	}

	if urnUUIDPattern.MatchString(ref) {
		return &ParsedReference{Type: RefTypeUrnUUID, ID: strings.TrimPrefix(ref, "urn:uuid:"), Raw: ref, Valid: true}
	}

	if urnOIDPattern.MatchString(ref) {
		return &ParsedReference{Type: RefTypeUrnOID, ID: strings.TrimPrefix(ref, "urn:oid:"), Raw: ref, Valid: true}
	}

	if matches := absoluteRefPattern.FindStringSubmatch(ref); matches != nil {
		return &ParsedReference{Type: RefTypeAbsolute, ResourceType: matches[1], ID: matches[2], Raw: ref, Valid: true}
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		parsed := &ParsedReference{Type: RefTypeCanonical, Raw: ref, Valid: true}
		if idx := strings.LastIndex(ref, "|"); idx != -1 {
			parsed.Version = ref[idx+1:]
		}
		return parsed
	}

	return &ParsedReference{Raw: ref, Valid: false, Type: RefTypeUnknown}
}

func (v *Validator) validateReferences(ctx context.Context, vctx *validationContext, result *ValidationResult) {
	containedIDs := v.extractContainedIDs(vctx.parsed)
	v.validateReferencesInNode(ctx, vctx, vctx.parsed, vctx.resourceType, containedIDs, result)
}

func (v *Validator) extractContainedIDs(resource map[string]interface{}) map[string]string {
	contained := make(map[string]string)

	containedArr, ok := resource["contained"].([]interface{})
	if !ok {
		return contained
	}
	for _, item := range containedArr {
		res, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id, hasID := res["id"].(string)
		rt, hasType := res["resourceType"].(string)
		if hasID && hasType {
			contained[id] = rt
		}
	}
	return contained
}

// validateReferencesInNode walks the resource tree depth-first, validating
// every "reference" string it finds and recursing into objects and arrays;
// the "contained" array is skipped since its IDs were already extracted.
func (v *Validator) validateReferencesInNode(ctx context.Context, vctx *validationContext, node interface{}, path string, containedIDs map[string]string, result *ValidationResult) {
	if v.options.MaxErrors > 0 && result.ErrorCount() >= v.options.MaxErrors {
		return
	}

	switch val := node.(type) {
	case map[string]interface{}:
		if refStr, ok := val["reference"].(string); ok {
			v.validateSingleReference(ctx, vctx, refStr, path, containedIDs, result)
		}
		for key, child := range val {
			if key == "contained" {
				continue
			}
			v.validateReferencesInNode(ctx, vctx, child, path+"."+key, containedIDs, result)
		}

	case []interface{}:
		for i, item := range val {
			v.validateReferencesInNode(ctx, vctx, item, fmt.Sprintf("%s[%d]", path, i), containedIDs, result)
		}
	}
}

// refIssue builds a ValidationIssue anchored at path+".reference", the
// shape every reference-validation failure below reports.
func refIssue(severity, code, diagnostics, path string) ValidationIssue {
	return ValidationIssue{
		Severity:    severity,
		Code:        code,
		Diagnostics: diagnostics,
		Expression:  []string{path + ".reference"},
	}
}

func (v *Validator) validateSingleReference(ctx context.Context, vctx *validationContext, refStr, path string, containedIDs map[string]string, result *ValidationResult) {
	parsed := ParseReference(refStr)

	if !parsed.Valid {
		result.AddIssue(refIssue(SeverityError, IssueCodeValue, fmt.Sprintf("Invalid reference format: '%s'", refStr), path))
		return
	}

	if parsed.Type == RefTypeContained {
		if _, exists := containedIDs[parsed.ID]; !exists {
			result.AddIssue(refIssue(SeverityError, IssueCodeNotFound, fmt.Sprintf("Contained resource not found: '%s'", refStr), path))
		}
		return
	}

	if parsed.ResourceType != "" {
		v.validateReferenceTargetType(vctx, parsed, path, result)
	}

	// Resolution is skipped by default (NoopReferenceResolver).
	if _, isNoop := v.refResolver.(*NoopReferenceResolver); !isNoop {
		if _, err := v.refResolver.Resolve(ctx, refStr); err != nil {
			result.AddIssue(refIssue(SeverityWarning, IssueCodeNotFound, fmt.Sprintf("Could not resolve reference '%s': %v", refStr, err), path))
		}
	}
}

// validateReferenceTargetType reports an issue if refStr's resource type
// isn't among the allowed targetProfile types for the Reference-typed
// element at path.
func (v *Validator) validateReferenceTargetType(vctx *validationContext, parsed *ParsedReference, path string, result *ValidationResult) {
	elemDef := v.findElementDef(vctx.index, pathWithoutArrayIndices(path), vctx.resourceType)
	if elemDef == nil {
		return
	}

	for _, typeRef := range elemDef.Types {
		if typeRef.Code != "Reference" {
			continue
		}
		if len(typeRef.TargetProfile) == 0 {
			return
		}
		for _, profile := range typeRef.TargetProfile {
			allowedType := extractResourceTypeFromProfile(profile)
			if allowedType == parsed.ResourceType || allowedType == "Resource" {
				return
			}
		}
		result.AddIssue(refIssue(SeverityError, IssueCodeValue,
			fmt.Sprintf("Reference to '%s' not allowed; expected one of: %s", parsed.ResourceType, formatAllowedTypes(typeRef.TargetProfile)),
			path))
		return
	}
}

// pathWithoutArrayIndices drops "[n]" segments, e.g.
// "Patient.contact[0].reference" -> "Patient.contact.reference".
func pathWithoutArrayIndices(path string) string {
	return arrayIndexPattern.ReplaceAllString(path, "")
}

// extractResourceTypeFromProfile pulls the resource type name out of a
// StructureDefinition profile URL, a bare type name, or any URL (falling
// back to its last path segment).
func extractResourceTypeFromProfile(profile string) string {
	if strings.Contains(profile, "/StructureDefinition/") {
		parts := strings.Split(profile, "/StructureDefinition/")
		if len(parts) == 2 {
			return strings.Split(parts[1], "|")[0]
		}
	}
	if !strings.Contains(profile, "/") {
		return profile
	}
	parts := strings.Split(profile, "/")
	return parts[len(parts)-1]
}

func formatAllowedTypes(profiles []string) string {
	types := make([]string, 0, len(profiles))
	for _, p := range profiles {
		types = append(types, extractResourceTypeFromProfile(p))
	}
	return strings.Join(types, ", ")
}
