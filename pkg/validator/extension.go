// Package validator provides FHIR resource validation based on StructureDefinitions.
package validator

import (
	"context"
	"fmt"
	"strings"
)

const hl7ExtensionPrefix = "http://hl7.org/fhir/StructureDefinition/"

// ParsedExtension is a decomposed FHIR extension: either a single value[x]
// or, for complex extensions, a set of nested extensions (never both).
type ParsedExtension struct {
	URL              string
	Value            interface{}
	NestedExtensions []ParsedExtension
	Valid            bool
	IsComplex        bool
}

func extIssue(severity, code, diagnostics, path string) ValidationIssue {
	return ValidationIssue{Severity: severity, Code: code, Diagnostics: diagnostics, Expression: []string{path}}
}

func (v *Validator) validateExtensions(ctx context.Context, vctx *validationContext, result *ValidationResult) {
	v.validateExtensionsInNode(ctx, vctx, vctx.parsed, vctx.resourceType, result)
}

// validateExtensionsInNode walks the resource tree looking for "extension"
// and "modifierExtension" arrays, recursing into every other field.
func (v *Validator) validateExtensionsInNode(ctx context.Context, vctx *validationContext, node interface{}, path string, result *ValidationResult) {
	if v.options.MaxErrors > 0 && result.ErrorCount() >= v.options.MaxErrors {
		return
	}

	switch val := node.(type) {
	case map[string]interface{}:
		if extensions, ok := val["extension"].([]interface{}); ok {
			v.validateExtensionArray(ctx, vctx, extensions, path+".extension", result)
		}
		if modExtensions, ok := val["modifierExtension"].([]interface{}); ok {
			v.validateExtensionArray(ctx, vctx, modExtensions, path+".modifierExtension", result)
		}
		for key, child := range val {
			if key == "extension" || key == "modifierExtension" {
				continue
			}
			v.validateExtensionsInNode(ctx, vctx, child, path+"."+key, result)
		}

	case []interface{}:
		for i, item := range val {
			v.validateExtensionsInNode(ctx, vctx, item, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}

func (v *Validator) validateExtensionArray(ctx context.Context, vctx *validationContext, extensions []interface{}, path string, result *ValidationResult) {
	for i, ext := range extensions {
		extPath := fmt.Sprintf("%s[%d]", path, i)
		extMap, ok := ext.(map[string]interface{})
		if !ok {
			result.AddIssue(extIssue(SeverityError, IssueCodeStructure, "Extension must be an object", extPath))
			continue
		}
		v.validateSingleExtension(ctx, vctx, extMap, extPath, result)
	}
}

// validateSingleExtension checks an extension's url, its exactly-one-of
// value[x]/nested-extensions shape, and (when its StructureDefinition is
// registered) the value against that definition.
func (v *Validator) validateSingleExtension(ctx context.Context, vctx *validationContext, ext map[string]interface{}, path string, result *ValidationResult) {
	url, hasURL := ext["url"].(string)
	if !hasURL || url == "" {
		result.AddIssue(extIssue(SeverityError, IssueCodeRequired, "Extension must have a 'url' field", path))
		return
	}
	if !isValidExtensionURL(url) {
		result.AddIssue(extIssue(SeverityError, IssueCodeValue, fmt.Sprintf("Invalid extension URL format: '%s'", url), path+".url"))
	}

	hasValue := hasExtensionValue(ext)
	hasNestedExt := hasNestedExtensions(ext)
	switch {
	case hasValue && hasNestedExt:
		result.AddIssue(extIssue(SeverityError, IssueCodeStructure, "Extension cannot have both a value and nested extensions", path))
	case !hasValue && !hasNestedExt:
		result.AddIssue(extIssue(SeverityError, IssueCodeRequired, "Extension must have either a value[x] or nested extensions", path))
	}

	if nestedExts, ok := ext["extension"].([]interface{}); ok {
		for i, nested := range nestedExts {
			if nestedMap, ok := nested.(map[string]interface{}); ok {
				v.validateSingleExtension(ctx, vctx, nestedMap, fmt.Sprintf("%s.extension[%d]", path, i), result)
			}
		}
	}

	v.validateExtensionAgainstDefinition(ctx, vctx, ext, url, path, result)
}

// validateExtensionAgainstDefinition looks up url's StructureDefinition.
// Unregistered extensions are tolerated (FHIR allows unknown extensions) and
// only reported under StrictMode; their value still gets a basic type check.
func (v *Validator) validateExtensionAgainstDefinition(ctx context.Context, vctx *validationContext, ext map[string]interface{}, url, path string, result *ValidationResult) {
	sd, err := v.registry.Get(ctx, url)
	if err != nil || sd == nil {
		if v.options.StrictMode {
			result.AddIssue(extIssue(SeverityWarning, IssueCodeExtension, fmt.Sprintf("Extension definition not found: '%s'", url), path))
		}
		v.validateExtensionValueBasicType(ctx, ext, path, result)
		return
	}

	if sd.Type != "Extension" {
		result.AddIssue(extIssue(SeverityError, IssueCodeExtension, fmt.Sprintf("URL '%s' does not define an Extension (type: %s)", url, sd.Type), path))
		return
	}

	v.validateExtensionValueType(ctx, ext, sd, path, result)
}

// validateExtensionValueBasicType checks a value[x]'s Go-JSON kind against
// its FHIR primitive type when no StructureDefinition is available to check
// against.
func (v *Validator) validateExtensionValueBasicType(ctx context.Context, ext map[string]interface{}, path string, result *ValidationResult) {
	actualValueType := getExtensionValueType(ext)
	if actualValueType == "" {
		return
	}
	valueKey := "value" + actualValueType
	if value, ok := ext[valueKey]; ok {
		v.validateExtensionValueContent(ctx, value, actualValueType, path+"."+valueKey, result)
	}
}

// validateExtensionValueType finds Extension.value[x] in sd's snapshot and
// checks the extension's actual value type against its allowed types.
func (v *Validator) validateExtensionValueType(ctx context.Context, ext map[string]interface{}, sd *StructureDef, path string, result *ValidationResult) {
	var valueElement *ElementDef
	for i := range sd.Snapshot {
		if strings.HasPrefix(sd.Snapshot[i].Path, "Extension.value") {
			valueElement = &sd.Snapshot[i]
			break
		}
	}
	if valueElement == nil {
		return // complex extension, no single value[x] to check
	}

	actualValueType := getExtensionValueType(ext)
	if actualValueType == "" {
		return
	}

	if len(valueElement.Types) > 0 {
		allowedTypes := make([]string, len(valueElement.Types))
		allowed := false
		for i, t := range valueElement.Types {
			allowedTypes[i] = t.Code
			if strings.EqualFold(t.Code, actualValueType) {
				allowed = true
			}
		}
		if !allowed {
			result.AddIssue(extIssue(SeverityError, IssueCodeValue,
				fmt.Sprintf("Extension value type '%s' not allowed; expected one of: %s", actualValueType, strings.Join(allowedTypes, ", ")), path))
			return
		}
	}

	valueKey := "value" + actualValueType
	if value, ok := ext[valueKey]; ok {
		v.validateExtensionValueContent(ctx, value, actualValueType, path+"."+valueKey, result)
	}
}

// validateExtensionValueContent validates value against typeName: primitives
// get a Go-kind check, complex types get their fields walked recursively
// against the type's own StructureDefinition.
func (v *Validator) validateExtensionValueContent(ctx context.Context, value interface{}, typeName, path string, result *ValidationResult) {
	typeDef, err := v.registry.Get(ctx, hl7ExtensionPrefix+typeName)
	if err != nil || typeDef == nil {
		checkPrimitiveKind(strings.ToLower(typeName), value, typeName, path, result)
		return
	}

	valueMap, ok := value.(map[string]interface{})
	if !ok {
		result.AddIssue(extIssue(SeverityError, IssueCodeStructure, fmt.Sprintf("Expected object for type '%s', got %T", typeName, value), path))
		return
	}

	index := make(map[string]*ElementDef, len(typeDef.Snapshot))
	for i := range typeDef.Snapshot {
		index[typeDef.Snapshot[i].Path] = &typeDef.Snapshot[i]
	}

	v.validateExtensionFields(ctx, valueMap, typeName, path, index, result)
	v.validateExtensionRequiredFields(typeDef, valueMap, typeName, path, result)
}

func (v *Validator) validateExtensionFields(ctx context.Context, valueMap map[string]interface{}, typeName, path string, index map[string]*ElementDef, result *ValidationResult) {
	for fieldName, fieldValue := range valueMap {
		if fieldName == "extension" || fieldName == "id" || fieldName == "_"+fieldName {
			continue
		}

		elemDef := v.findElementDefForType(index, typeName+"."+fieldName)
		if elemDef == nil {
			if v.options.StrictMode {
				result.AddIssue(extIssue(SeverityError, IssueCodeStructure, fmt.Sprintf("Unknown element '%s' in type '%s'", fieldName, typeName), path+"."+fieldName))
			}
			continue
		}
		v.validateExtensionFieldType(ctx, fieldValue, elemDef, path+"."+fieldName, result)
	}
}

// validateExtensionRequiredFields reports a required (min>0) direct child of
// typeName missing from valueMap.
func (v *Validator) validateExtensionRequiredFields(typeDef *StructureDef, valueMap map[string]interface{}, typeName, path string, result *ValidationResult) {
	for i := range typeDef.Snapshot {
		elem := &typeDef.Snapshot[i]
		if elem.Min == 0 || elem.Path == typeName {
			continue
		}
		fieldName := strings.TrimPrefix(elem.Path, typeName+".")
		if strings.Contains(fieldName, ".") {
			continue // only direct children
		}
		if _, ok := valueMap[fieldName]; !ok {
			result.AddIssue(extIssue(SeverityError, IssueCodeRequired, fmt.Sprintf("Missing required element '%s' in type '%s'", fieldName, typeName), path))
		}
	}
}

// primitiveKindChecks maps a lowercased FHIR primitive type name to a
// predicate on its expected Go JSON representation.
var primitiveKindChecks = map[string]struct {
	expect string
	ok     func(interface{}) bool
}{
	"string":       {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"code":         {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"id":           {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"markdown":     {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"uri":          {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"url":          {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"canonical":    {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"oid":          {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"uuid":         {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"date":         {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"datetime":     {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"time":         {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"instant":      {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"base64binary": {"string", func(v interface{}) bool { _, ok := v.(string); return ok }},
	"boolean":      {"boolean", func(v interface{}) bool { _, ok := v.(bool); return ok }},
	"decimal":      {"number", func(v interface{}) bool { _, ok := v.(float64); return ok }},
	"integer": {"integer", func(v interface{}) bool {
		n, ok := v.(float64)
		return ok && n == float64(int(n))
	}},
	"positiveint": {"integer", func(v interface{}) bool {
		n, ok := v.(float64)
		return ok && n == float64(int(n))
	}},
	"unsignedint": {"integer", func(v interface{}) bool {
		n, ok := v.(float64)
		return ok && n == float64(int(n))
	}},
}

// checkPrimitiveKind reports a mismatch between value's Go JSON kind and
// lowerTypeName's expected one; unknown type names (complex types handled
// elsewhere) are silently accepted.
func checkPrimitiveKind(lowerTypeName string, value interface{}, typeName, path string, result *ValidationResult) {
	check, known := primitiveKindChecks[lowerTypeName]
	if !known || check.ok(value) {
		return
	}
	msg := fmt.Sprintf("Expected %s for '%s', got %T", check.expect, typeName, value)
	if check.expect == "integer" {
		if _, isFloat := value.(float64); isFloat {
			msg = fmt.Sprintf("Expected integer for '%s', got decimal", typeName)
		}
	}
	result.AddIssue(extIssue(SeverityError, IssueCodeValue, msg, path))
}

// findElementDefForType resolves path in index, falling back to the choice
// ([x]) element when path names one of its concrete type suffixes (e.g.
// "Extension.valueString" -> "Extension.value[x]").
func (v *Validator) findElementDefForType(index map[string]*ElementDef, path string) *ElementDef {
	if elem, ok := index[path]; ok {
		return elem
	}

	parts := strings.Split(path, ".")
	if len(parts) < 2 {
		return nil
	}
	lastPart := parts[len(parts)-1]
	for _, suffix := range choiceTypeSuffixes {
		if !strings.HasSuffix(lastPart, suffix) {
			continue
		}
		baseName := strings.TrimSuffix(lastPart, suffix)
		choicePath := strings.Join(parts[:len(parts)-1], ".") + "." + baseName + "[x]"
		if elem, ok := index[choicePath]; ok {
			return elem
		}
	}
	return nil
}

var choiceTypeSuffixes = []string{
	"String", "Boolean", "Integer", "Decimal", "DateTime", "Date", "Time",
	"Code", "Uri", "Url", "Canonical", "Reference", "CodeableConcept", "Coding", "Quantity",
	"Period", "Range", "Ratio", "Identifier", "HumanName", "Address", "ContactPoint",
	"Attachment", "Annotation", "Signature", "Money", "Age", "Duration", "Count", "Distance",
}

// validateExtensionFieldType checks fieldValue against the first declared
// type of elemDef, recursing into complex types via validateExtensionValueContent.
func (v *Validator) validateExtensionFieldType(ctx context.Context, value interface{}, elemDef *ElementDef, path string, result *ValidationResult) {
	if len(elemDef.Types) == 0 {
		return
	}
	expectedType := elemDef.Types[0].Code

	if _, known := primitiveKindChecks[strings.ToLower(expectedType)]; known {
		checkPrimitiveKind(strings.ToLower(expectedType), value, path, path, result)
		return
	}

	switch typedValue := value.(type) {
	case map[string]interface{}:
		v.validateExtensionValueContent(ctx, typedValue, expectedType, path, result)
	case []interface{}:
		// arrays are handled by the caller iterating elements
	default:
		if expectedType != "" && !isPrimitiveType(expectedType) {
			result.AddIssue(extIssue(SeverityError, IssueCodeStructure, fmt.Sprintf("Expected object for '%s' of type '%s', got %T", path, expectedType, value), path))
		}
	}
}

var fhirPrimitiveTypes = map[string]bool{
	"boolean": true, "integer": true, "string": true, "decimal": true,
	"uri": true, "url": true, "canonical": true, "base64Binary": true,
	"instant": true, "date": true, "dateTime": true, "time": true,
	"code": true, "oid": true, "id": true, "markdown": true,
	"unsignedInt": true, "positiveInt": true, "uuid": true,
}

func isPrimitiveType(typeName string) bool {
	return fhirPrimitiveTypes[typeName]
}

// isValidExtensionURL accepts an absolute http(s)/urn URL or a bare name of
// letters, digits, '-' and '_' (the form nested extensions use). It does not
// check whether the extension is top-level or nested, so a bare name is
// accepted at any level.
func isValidExtensionURL(url string) bool {
	if url == "" {
		return false
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "urn:") {
		return true
	}
	return isSimpleExtensionName(url)
}

func isSimpleExtensionName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_') {
			return false
		}
	}
	return true
}

func hasExtensionValue(ext map[string]interface{}) bool {
	return getExtensionValueType(ext) != ""
}

func hasNestedExtensions(ext map[string]interface{}) bool {
	nested, ok := ext["extension"].([]interface{})
	return ok && len(nested) > 0
}

// getExtensionValueType returns "String" for a "valueString" key, "" if ext
// has no value[x] field at all.
func getExtensionValueType(ext map[string]interface{}) string {
	for key := range ext {
		if strings.HasPrefix(key, "value") && key != "value" {
			return key[len("value"):]
		}
	}
	return ""
}

func IsHL7Extension(url string) bool {
	return strings.HasPrefix(url, hl7ExtensionPrefix)
}

// ExtractExtensionName returns the trailing name of an extension URL, e.g.
// "http://hl7.org/fhir/StructureDefinition/patient-birthPlace" -> "patient-birthPlace".
func ExtractExtensionName(url string) string {
	if strings.HasPrefix(url, hl7ExtensionPrefix) {
		return strings.TrimPrefix(url, hl7ExtensionPrefix)
	}
	if idx := strings.LastIndex(url, "/"); idx != -1 {
		return url[idx+1:]
	}
	return url
}
