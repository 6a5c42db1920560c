// Package validator provides FHIR resource validation based on StructureDefinitions.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const ResourceTypeBundle = "Bundle"

const (
	BundleTypeDocument            = "document"
	BundleTypeMessage             = "message"
	BundleTypeTransaction         = "transaction"
	BundleTypeTransactionResponse = "transaction-response"
	BundleTypeBatch               = "batch"
	BundleTypeBatchResponse       = "batch-response"
	BundleTypeHistory             = "history"
	BundleTypeSearchset           = "searchset"
	BundleTypeCollection          = "collection"
)

var validBundleTypes = map[string]bool{
	BundleTypeDocument: true, BundleTypeMessage: true, BundleTypeTransaction: true,
	BundleTypeTransactionResponse: true, BundleTypeBatch: true, BundleTypeBatchResponse: true,
	BundleTypeHistory: true, BundleTypeSearchset: true, BundleTypeCollection: true,
}

var bundleTypesRequiringRequest = map[string]bool{
	BundleTypeTransaction: true, BundleTypeBatch: true, BundleTypeHistory: true,
}

var bundleTypesRequiringResponse = map[string]bool{
	BundleTypeTransactionResponse: true, BundleTypeBatchResponse: true, BundleTypeHistory: true,
}

var bundleTypesAllowingTotal = map[string]bool{
	BundleTypeSearchset: true, BundleTypeHistory: true,
}

var bundleTypesAllowingSearch = map[string]bool{
	BundleTypeSearchset: true,
}

// bdlIssue builds an error-severity ValidationIssue with the given issue code
// at path; bdlInvariant is its invariant-coded form used for the Bundle
// constraints (bdl-1, bdl-2, ...).
func bdlIssue(code, diagnostics, path string) ValidationIssue {
	return ValidationIssue{Severity: SeverityError, Code: code, Diagnostics: diagnostics, Expression: []string{path}}
}

func bdlInvariant(diagnostics, path string) ValidationIssue {
	return bdlIssue(IssueCodeInvariant, diagnostics, path)
}

// validateBundle applies the Bundle-specific constraints (bdl-*) on top of
// the generic structure validation already run by Validate().
func (v *Validator) validateBundle(ctx context.Context, vctx *validationContext, result *ValidationResult) {
	bundle := vctx.parsed

	bundleType, _ := bundle["type"].(string)
	if bundleType == "" {
		return // required-field violation already reported by structure validation
	}
	if !validBundleTypes[bundleType] {
		result.AddIssue(bdlIssue(IssueCodeCodeInvalid, fmt.Sprintf("Invalid Bundle.type: '%s'", bundleType), "Bundle.type"))
		return
	}

	v.validateBundleConstraints(bundle, bundleType, result)
	v.validateBundleEntries(ctx, vctx, bundle, bundleType, result)
}

func (v *Validator) validateBundleConstraints(bundle map[string]interface{}, bundleType string, result *ValidationResult) {
	if _, hasTotal := bundle["total"]; hasTotal && !bundleTypesAllowingTotal[bundleType] {
		result.AddIssue(bdlInvariant(
			fmt.Sprintf("Constraint bdl-1 violated: Bundle.total is only allowed for searchset or history bundles, not '%s'", bundleType),
			"Bundle.total"))
	}

	if bundleType == BundleTypeDocument {
		v.validateDocumentIdentifier(bundle, result)
		if _, hasTimestamp := bundle["timestamp"]; !hasTimestamp {
			result.AddIssue(bdlInvariant("Constraint bdl-10 violated: A document Bundle must have a timestamp", "Bundle.timestamp"))
		}
	}
}

func (v *Validator) validateDocumentIdentifier(bundle map[string]interface{}, result *ValidationResult) {
	identifier, hasIdentifier := bundle["identifier"]
	if !hasIdentifier {
		result.AddIssue(bdlInvariant("Constraint bdl-9 violated: A document Bundle must have an identifier", "Bundle.identifier"))
		return
	}

	identifierMap, ok := identifier.(map[string]interface{})
	if !ok {
		return
	}

	if system, ok := identifierMap["system"].(string); !ok || system == "" {
		result.AddIssue(bdlInvariant("Constraint bdl-9 violated: A document Bundle identifier must have a system", "Bundle.identifier.system"))
	}
	if value, ok := identifierMap["value"].(string); !ok || value == "" {
		result.AddIssue(bdlInvariant("Constraint bdl-9 violated: A document Bundle identifier must have a value", "Bundle.identifier.value"))
	}
}

func (v *Validator) validateBundleEntries(ctx context.Context, vctx *validationContext, bundle map[string]interface{}, bundleType string, result *ValidationResult) {
	entries, ok := bundle["entry"].([]interface{})
	if !ok || len(entries) == 0 {
		return
	}

	fullURLSet := make(map[string]bool)
	for i, entry := range entries {
		entryMap, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		v.validateBundleEntry(ctx, vctx, entryMap, fmt.Sprintf("Bundle.entry[%d]", i), bundleType, fullURLSet, result)
	}

	v.validateFirstEntryType(entries[0], bundleType, result)
}

// validateFirstEntryType checks bdl-11/bdl-12: document and message bundles
// require a specific resource type in their first entry.
func (v *Validator) validateFirstEntryType(firstEntry interface{}, bundleType string, result *ValidationResult) {
	constraint, wantType := "", ""
	switch bundleType {
	case BundleTypeDocument:
		constraint, wantType = "bdl-11", "Composition"
	case BundleTypeMessage:
		constraint, wantType = "bdl-12", "MessageHeader"
	default:
		return
	}

	entry, ok := firstEntry.(map[string]interface{})
	if !ok {
		return
	}
	resource, ok := entry["resource"].(map[string]interface{})
	if !ok {
		result.AddIssue(bdlInvariant(
			fmt.Sprintf("Constraint %s violated: %s Bundle first entry must have a resource", constraint, strings.ToLower(bundleType)),
			"Bundle.entry[0].resource"))
		return
	}

	resourceType, _ := resource["resourceType"].(string)
	if resourceType != wantType {
		result.AddIssue(bdlInvariant(
			fmt.Sprintf("Constraint %s violated: %s Bundle first entry must be a %s, got '%s'", constraint, strings.ToLower(bundleType), wantType, resourceType),
			"Bundle.entry[0].resource"))
	}
}

func (v *Validator) validateBundleEntry(ctx context.Context, vctx *validationContext, entry map[string]interface{}, entryPath, bundleType string, fullURLSet map[string]bool, result *ValidationResult) {
	resource, hasResource := entry["resource"].(map[string]interface{})
	request, hasRequest := entry["request"].(map[string]interface{})
	response, hasResponse := entry["response"].(map[string]interface{})
	search, hasSearch := entry["search"].(map[string]interface{})
	fullURL, hasFullURL := entry["fullUrl"].(string)

	if !hasResource && !hasRequest && !hasResponse {
		result.AddIssue(bdlInvariant("Constraint bdl-5 violated: Bundle entry must have a resource, request, or response", entryPath))
	}

	if hasFullURL && bundleType != BundleTypeHistory {
		v.validateFullURLUniqueness(entry, entryPath, fullURL, fullURLSet, result)
	}
	if hasFullURL && strings.Contains(fullURL, "/_history/") {
		result.AddIssue(bdlInvariant("Constraint bdl-8 violated: fullUrl cannot be a version specific reference (contains /_history/)", entryPath+".fullUrl"))
	}

	if hasSearch && !bundleTypesAllowingSearch[bundleType] {
		result.AddIssue(bdlInvariant(
			fmt.Sprintf("Constraint bdl-2 violated: entry.search is only allowed in searchset bundles, not '%s'", bundleType),
			entryPath+".search"))
	}

	v.validateEntryPresence("bdl-3", "request", bundleTypesRequiringRequest[bundleType], hasRequest, bundleType, entryPath, result)
	if hasRequest && request != nil {
		v.validateRequestContent(request, entryPath, result)
	}

	v.validateEntryPresence("bdl-4", "response", bundleTypesRequiringResponse[bundleType], hasResponse, bundleType, entryPath, result)
	if hasResponse && response != nil {
		v.validateResponseContent(response, entryPath, result)
	}

	if hasSearch {
		v.validateEntrySearch(search, entryPath, result)
	}
	if hasResource {
		v.validateEntryResource(ctx, vctx, resource, entryPath, result)
	}
}

// validateEntryPresence checks bdl-3/bdl-4: field must be present when
// required is true, and (history bundles excepted) absent otherwise.
func (v *Validator) validateEntryPresence(constraint, field string, required, has bool, bundleType, entryPath string, result *ValidationResult) {
	switch {
	case required && !has:
		result.AddIssue(bdlInvariant(fmt.Sprintf("Constraint %s violated: entry.%s is required for '%s' bundles", constraint, field, bundleType), entryPath+"."+field))
	case !required && has && bundleType != BundleTypeHistory:
		result.AddIssue(bdlInvariant(fmt.Sprintf("Constraint %s violated: entry.%s is not allowed for '%s' bundles", constraint, field, bundleType), entryPath+"."+field))
	}
}

func (v *Validator) validateFullURLUniqueness(entry map[string]interface{}, entryPath, fullURL string, fullURLSet map[string]bool, result *ValidationResult) {
	uniqueKey := fullURL
	if resource, ok := entry["resource"].(map[string]interface{}); ok {
		if meta, ok := resource["meta"].(map[string]interface{}); ok {
			if versionID, ok := meta["versionId"].(string); ok && versionID != "" {
				uniqueKey = fullURL + "&" + versionID
			}
		}
	}

	if fullURLSet[uniqueKey] {
		result.AddIssue(bdlInvariant(fmt.Sprintf("Constraint bdl-7 violated: duplicate fullUrl '%s' in bundle", fullURL), entryPath+".fullUrl"))
	}
	fullURLSet[uniqueKey] = true
}

var validHTTPMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "DELETE": true, "PATCH": true,
}

func (v *Validator) validateRequestContent(request map[string]interface{}, entryPath string, result *ValidationResult) {
	method, hasMethod := request["method"].(string)
	if !hasMethod || method == "" {
		result.AddIssue(ValidationIssue{Severity: SeverityError, Code: IssueCodeRequired, Diagnostics: "Bundle.entry.request.method is required", Expression: []string{entryPath + ".request.method"}})
	} else if !validHTTPMethods[method] {
		result.AddIssue(ValidationIssue{Severity: SeverityError, Code: IssueCodeCodeInvalid, Diagnostics: fmt.Sprintf("Invalid request method: '%s'", method), Expression: []string{entryPath + ".request.method"}})
	}

	if requestURL, ok := request["url"].(string); !ok || requestURL == "" {
		result.AddIssue(ValidationIssue{Severity: SeverityError, Code: IssueCodeRequired, Diagnostics: "Bundle.entry.request.url is required", Expression: []string{entryPath + ".request.url"}})
	}
}

func (v *Validator) validateResponseContent(response map[string]interface{}, entryPath string, result *ValidationResult) {
	if status, ok := response["status"].(string); !ok || status == "" {
		result.AddIssue(ValidationIssue{Severity: SeverityError, Code: IssueCodeRequired, Diagnostics: "Bundle.entry.response.status is required", Expression: []string{entryPath + ".response.status"}})
	}
}

var validSearchModes = map[string]bool{"match": true, "include": true, "outcome": true}

func (v *Validator) validateEntrySearch(search map[string]interface{}, entryPath string, result *ValidationResult) {
	if mode, hasMode := search["mode"].(string); hasMode && !validSearchModes[mode] {
		result.AddIssue(ValidationIssue{Severity: SeverityError, Code: IssueCodeCodeInvalid, Diagnostics: fmt.Sprintf("Invalid search mode: '%s'", mode), Expression: []string{entryPath + ".search.mode"}})
	}

	if score, hasScore := search["score"]; hasScore {
		if scoreFloat, ok := score.(float64); ok && (scoreFloat < 0 || scoreFloat > 1) {
			result.AddIssue(ValidationIssue{Severity: SeverityError, Code: IssueCodeValue, Diagnostics: "search.score must be between 0 and 1", Expression: []string{entryPath + ".search.score"}})
		}
	}
}

// validateEntryResource re-runs the validation pipeline against a nested
// resource inside a Bundle entry, including recursing into any nested
// Bundle. Its references are checked by the enclosing resource's reference
// walk, not here.
func (v *Validator) validateEntryResource(ctx context.Context, vctx *validationContext, resource map[string]interface{}, entryPath string, result *ValidationResult) {
	resourceType, ok := resource["resourceType"].(string)
	if !ok || resourceType == "" {
		result.AddIssue(ValidationIssue{Severity: SeverityError, Code: IssueCodeRequired, Diagnostics: "Bundle entry resource must have a resourceType", Expression: []string{entryPath + ".resource.resourceType"}})
		return
	}

	sd, err := v.registry.GetByType(ctx, resourceType)
	if err != nil {
		result.AddIssue(ValidationIssue{Severity: SeverityError, Code: IssueCodeNotFound, Diagnostics: fmt.Sprintf("Unknown resource type in entry: %s", resourceType), Expression: []string{entryPath + ".resource"}})
		return
	}

	nestedIndex := v.buildElementIndex(sd)
	nestedVctx := &validationContext{
		raw:          vctx.raw,
		parsed:       resource,
		resourceType: resourceType,
		sd:           sd,
		index:        nestedIndex,
	}

	v.validateStructure(ctx, nestedVctx, result)
	v.validatePrimitiveNode(ctx, resource, nestedIndex, resourceType, result)
	v.checkEle1Recursive(resource, entryPath+".resource", result)

	if v.options.ValidateConstraints {
		v.validateNestedConstraints(nestedVctx, entryPath, result)
	}
	if v.options.ValidateTerminology {
		v.validateTerminology(ctx, nestedVctx, result)
	}
	if v.options.ValidateExtensions {
		v.validateExtensions(ctx, nestedVctx, result)
	}
	if resourceType == ResourceTypeBundle {
		v.validateBundle(ctx, nestedVctx, result)
	}
}

// validateNestedConstraints evaluates the FHIRPath invariants declared on
// vctx's StructureDefinition against the already-parsed resource map,
// re-marshaling to JSON since the FHIRPath engine works on JSON bytes.
func (v *Validator) validateNestedConstraints(vctx *validationContext, basePath string, result *ValidationResult) {
	for _, elem := range vctx.sd.Snapshot {
		for _, constraint := range elem.Constraints {
			if constraint.Expression == "" {
				continue
			}
			if constraint.Source != "" && constraint.Source != vctx.sd.URL {
				continue
			}
			if elem.Path != vctx.resourceType && !elementExistsInResource(vctx.parsed, elem.Path, vctx.resourceType) {
				continue
			}

			elemPath := basePath + "." + elem.Path
			valid, err := v.evaluateConstraintOnParsed(vctx.parsed, elem.Path, vctx.resourceType, constraint)
			if err != nil {
				result.AddIssue(ValidationIssue{
					Severity:    SeverityWarning,
					Code:        IssueCodeProcessing,
					Diagnostics: fmt.Sprintf("Failed to evaluate constraint %s on %s: %v", constraint.Key, elemPath, err),
					Expression:  []string{elemPath},
				})
				continue
			}
			if !valid {
				severity := SeverityError
				if constraint.Severity == "warning" {
					severity = SeverityWarning
				}
				result.AddIssue(ValidationIssue{
					Severity:    severity,
					Code:        IssueCodeInvariant,
					Diagnostics: fmt.Sprintf("Constraint %s violated: %s", constraint.Key, constraint.Human),
					Expression:  []string{elemPath},
				})
			}
		}
	}
}

func (v *Validator) evaluateConstraintOnParsed(resource map[string]interface{}, elementPath, resourceType string, constraint ElementConstraint) (bool, error) {
	jsonBytes, err := json.Marshal(resource)
	if err != nil {
		return false, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return v.evaluateConstraint(jsonBytes, elementPath, resourceType, constraint)
}
