package funcs

import (
	"strings"

	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

func init() {
	register([]FuncDef{
		{Name: "resolve", MinArgs: 0, MaxArgs: 0, Fn: resolveFn},
		{Name: "extension", MinArgs: 1, MaxArgs: 1, Fn: extensionFn},
		{Name: "hasExtension", MinArgs: 1, MaxArgs: 1, Fn: hasExtensionFn},
		{Name: "getExtensionValue", MinArgs: 1, MaxArgs: 1, Fn: getExtensionValueFn},
		{Name: "getReferenceKey", MinArgs: 0, MaxArgs: 1, Fn: getReferenceKeyFn},
	})
}

// referenceOf returns the "reference" string of item, whether item is a
// bare string or a Reference-shaped object.
func referenceOf(item types.Value) string {
	switch v := item.(type) {
	case types.String:
		return v.Value()
	case *types.ObjectValue:
		if ref, ok := v.Get("reference"); ok {
			if refStr, ok := ref.(types.String); ok {
				return refStr.Value()
			}
		}
	}
	return ""
}

// singleString reads arg as a lone string from a collection whose first
// element is a types.String; any other shape, including a bare
// types.String, reports ok=false.
func singleString(arg interface{}) (string, bool) {
	col, ok := arg.(types.Collection)
	if !ok || col.Empty() {
		return "", false
	}
	str, ok := col[0].(types.String)
	if !ok {
		return "", false
	}
	return str.Value(), true
}

// resolveFn dereferences each Reference in input against the context's
// resolver, returning an empty collection when no resolver is configured
// (per the FHIRPath resolve() contract) or when a given reference can't be
// fetched or parsed.
func resolveFn(ctx *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	resolver := ctx.GetResolver()
	if resolver == nil {
		return types.Collection{}, nil
	}

	var out types.Collection
	for _, item := range input {
		reference := referenceOf(item)
		if reference == "" {
			continue
		}
		resourceJSON, err := resolver.Resolve(ctx.Context(), reference)
		if err != nil {
			continue
		}
		resolved, err := types.JSONToCollection(resourceJSON)
		if err != nil {
			continue
		}
		out = append(out, resolved...)
	}
	return out, nil
}

// extensionFn returns the extensions on each input object whose url matches
// args[0].
func extensionFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	url, ok := singleString(args[0])
	if !ok || url == "" {
		return types.Collection{}, nil
	}

	var out types.Collection
	for _, item := range input {
		obj, ok := item.(*types.ObjectValue)
		if !ok {
			continue
		}
		for _, ext := range obj.GetCollection("extension") {
			extObj, ok := ext.(*types.ObjectValue)
			if !ok {
				continue
			}
			extURL, ok := extObj.Get("url")
			if !ok {
				continue
			}
			if urlStr, ok := extURL.(types.String); ok && urlStr.Value() == url {
				out = append(out, extObj)
			}
		}
	}
	return out, nil
}

func hasExtensionFn(ctx *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	extensions, err := extensionFn(ctx, input, args)
	if err != nil {
		return nil, err
	}
	return boolCollection(!extensions.Empty()), nil
}

// valueFields lists every FHIR value[x] choice-type field name, in the
// order checked by getExtensionValue.
var valueFields = []string{
	"valueString", "valueBoolean", "valueInteger", "valueDecimal",
	"valueDate", "valueDateTime", "valueTime", "valueCode",
	"valueCoding", "valueCodeableConcept", "valueQuantity",
	"valueReference", "valueIdentifier", "valuePeriod",
	"valueRange", "valueRatio", "valueAttachment",
	"valueUri", "valueUrl", "valueCanonical",
}

func getExtensionValueFn(ctx *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	extensions, err := extensionFn(ctx, input, args)
	if err != nil {
		return nil, err
	}

	var out types.Collection
	for _, ext := range extensions {
		extObj, ok := ext.(*types.ObjectValue)
		if !ok {
			continue
		}
		for _, field := range valueFields {
			if val, ok := extObj.Get(field); ok {
				out = append(out, val)
				break
			}
		}
	}
	return out, nil
}

// canonicalizeReference strips a leading URL from a reference, keeping at
// most "ResourceType/id": "http://example.org/fhir/Patient/123" becomes
// "Patient/123".
func canonicalizeReference(reference string) string {
	idx := strings.LastIndex(reference, "/")
	if idx <= 0 {
		return reference
	}
	beforeSlash := reference[:idx]
	lastSlashBefore := strings.LastIndex(beforeSlash, "/")
	if lastSlashBefore < 0 {
		return reference
	}
	return beforeSlash[lastSlashBefore+1:] + "/" + reference[idx+1:]
}

// getReferenceKeyFn extracts the resource type and/or id from each input
// reference. The optional argument selects "type", "id", or the default
// "key" (the full "ResourceType/id" form).
func getReferenceKeyFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	part := "key"
	if len(args) > 0 {
		if p, ok := singleString(args[0]); ok {
			part = p
		}
	}

	var out types.Collection
	for _, item := range input {
		reference := referenceOf(item)
		if reference == "" {
			continue
		}
		reference = canonicalizeReference(reference)

		switch part {
		case "type":
			if idx := strings.Index(reference, "/"); idx > 0 {
				out = append(out, types.NewString(reference[:idx]))
			}
		case "id":
			if idx := strings.LastIndex(reference, "/"); idx >= 0 {
				out = append(out, types.NewString(reference[idx+1:]))
			} else {
				out = append(out, types.NewString(reference))
			}
		default:
			out = append(out, types.NewString(reference))
		}
	}
	return out, nil
}
