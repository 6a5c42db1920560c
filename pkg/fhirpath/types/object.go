package types

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"
)

// ObjectValue is a FHIR resource or complex-type value, backed directly by
// its JSON encoding rather than an unmarshaled struct; fields are parsed
// lazily and cached on first access.
type ObjectValue struct {
	data   []byte
	fields map[string]Value
}

func NewObjectValue(data []byte) *ObjectValue {
	return &ObjectValue{
		data:   data,
		fields: make(map[string]Value),
	}
}

const (
	typeQuantity        = "Quantity"
	typeCoding          = "Coding"
	typeCodeableConcept = "CodeableConcept"
	typeReference       = "Reference"
	typePeriod          = "Period"
	typeIdentifier      = "Identifier"
	typeRange           = "Range"
	typeRatio           = "Ratio"
	typeAttachment      = "Attachment"
	typeHumanName       = "HumanName"
	typeAddress         = "Address"
	typeContactPoint    = "ContactPoint"
	typeAnnotation      = "Annotation"
	typeObject          = "Object"
)

// shapeRules infers a FHIR complex-type name from field presence when no
// explicit resourceType is available, most specific shape first. Order
// matters: a Quantity ("value" plus a unit-ish field) would otherwise also
// satisfy looser rules further down the list.
func (o *ObjectValue) shapeRules() []struct {
	name  string
	match func() bool
} {
	return []struct {
		name  string
		match func() bool
	}{
		{typeQuantity, func() bool {
			return o.hasField("value") && (o.hasField("unit") || o.hasField("code") || o.hasField("system"))
		}},
		{typeCoding, func() bool {
			return o.hasField("system") && o.hasField("code") && !o.hasField("value")
		}},
		{typeCodeableConcept, func() bool { return o.hasArrayField("coding") }},
		{typeReference, func() bool { return o.hasField("reference") }},
		{typePeriod, func() bool { return o.hasField("start") || o.hasField("end") }},
		{typeIdentifier, func() bool { return o.hasField("system") && o.hasStringField("value") }},
		{typeRange, func() bool { return o.hasField("low") || o.hasField("high") }},
		{typeRatio, func() bool { return o.hasField("numerator") || o.hasField("denominator") }},
		{typeAttachment, func() bool { return o.hasField("contentType") }},
		{typeHumanName, func() bool { return o.hasField("family") || o.hasArrayField("given") }},
		{typeAddress, func() bool { return o.hasField("city") || o.hasField("postalCode") }},
		{typeContactPoint, func() bool { return o.hasField("system") && o.hasField("use") }},
		{typeAnnotation, func() bool {
			return o.hasField("text") && (o.hasField("time") || o.hasField("authorReference") || o.hasField("authorString"))
		}},
	}
}

// Type returns resourceType when present, else a best-effort guess at the
// FHIR complex type from the object's field shape, else "Object".
func (o *ObjectValue) Type() string {
	if rt, err := jsonparser.GetString(o.data, "resourceType"); err == nil {
		return rt
	}
	for _, rule := range o.shapeRules() {
		if rule.match() {
			return rule.name
		}
	}
	return typeObject
}

func (o *ObjectValue) hasField(name string) bool {
	_, _, _, err := jsonparser.Get(o.data, name)
	return err == nil
}

func (o *ObjectValue) hasArrayField(name string) bool {
	_, dataType, _, err := jsonparser.Get(o.data, name)
	return err == nil && dataType == jsonparser.Array
}

func (o *ObjectValue) hasStringField(name string) bool {
	_, dataType, _, err := jsonparser.Get(o.data, name)
	return err == nil && dataType == jsonparser.String
}

func (o *ObjectValue) Equal(other Value) bool {
	ov, ok := other.(*ObjectValue)
	if !ok {
		return false
	}
	return bytes.Equal(o.data, ov.data)
}

func (o *ObjectValue) Equivalent(other Value) bool {
	return o.Equal(other)
}

func (o *ObjectValue) String() string {
	return string(o.data)
}

func (*ObjectValue) IsEmpty() bool {
	return false
}

func (o *ObjectValue) Data() []byte {
	return o.data
}

// Get retrieves a single field value, caching the parsed result.
func (o *ObjectValue) Get(field string) (Value, bool) {
	if v, ok := o.fields[field]; ok {
		return v, true
	}

	raw, dataType, _, err := jsonparser.Get(o.data, field)
	if err != nil {
		return nil, false
	}

	v := jsonValueToFHIRValue(raw, dataType)
	o.fields[field] = v
	return v, true
}

// GetCollection retrieves a field as a Collection: every element if the
// field is an array, or a singleton collection otherwise.
func (o *ObjectValue) GetCollection(field string) Collection {
	raw, dataType, _, err := jsonparser.Get(o.data, field)
	if err != nil {
		return Collection{}
	}
	if dataType == jsonparser.Array {
		return jsonArrayToCollection(raw)
	}
	if v := jsonValueToFHIRValue(raw, dataType); v != nil {
		return Collection{v}
	}
	return Collection{}
}

func (o *ObjectValue) Keys() []string {
	var keys []string
	//nolint:errcheck // ObjectEach only errors for non-objects; o.data is always a valid object
	jsonparser.ObjectEach(o.data, func(key []byte, _ []byte, _ jsonparser.ValueType, _ int) error {
		keys = append(keys, string(key))
		return nil
	})
	return keys
}

// Children returns every child value, flattening array-valued fields.
func (o *ObjectValue) Children() Collection {
	var result Collection
	//nolint:errcheck // ObjectEach only errors for non-objects; o.data is always a valid object
	jsonparser.ObjectEach(o.data, func(_ []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		if dataType == jsonparser.Array {
			result = append(result, jsonArrayToCollection(value)...)
			return nil
		}
		if v := jsonValueToFHIRValue(value, dataType); v != nil {
			result = append(result, v)
		}
		return nil
	})
	return result
}

func jsonValueToFHIRValue(data []byte, dataType jsonparser.ValueType) Value {
	switch dataType {
	case jsonparser.String:
		var s string
		if err := json.Unmarshal(append([]byte{'"'}, append(data, '"')...), &s); err != nil {
			s = string(data)
		}
		return NewString(s)

	case jsonparser.Number:
		s := string(data)
		if !strings.ContainsAny(s, ".eE") {
			if i, err := jsonparser.ParseInt(data); err == nil {
				return NewInteger(i)
			}
		}
		d, err := NewDecimal(s)
		if err != nil {
			return nil
		}
		return d

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(data)
		if err != nil {
			return nil
		}
		return NewBoolean(b)

	case jsonparser.Object:
		return NewObjectValue(data)

	default: // Array, Null
		return nil
	}
}

func jsonArrayToCollection(data []byte) Collection {
	var result Collection
	//nolint:errcheck // ArrayEach only errors for non-arrays; data is already validated as an array
	jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if v := jsonValueToFHIRValue(value, dataType); v != nil {
			result = append(result, v)
		}
	})
	return result
}

// JSONToCollection converts a raw JSON document (object, array, or scalar)
// into the Collection it represents.
func JSONToCollection(data []byte) (Collection, error) {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, err
	}

	switch dataType {
	case jsonparser.Object:
		return Collection{NewObjectValue(value)}, nil
	case jsonparser.Array:
		return jsonArrayToCollection(value), nil
	case jsonparser.Null:
		return Collection{}, nil
	default:
		if v := jsonValueToFHIRValue(value, dataType); v != nil {
			return Collection{v}, nil
		}
		return Collection{}, nil
	}
}

// ToQuantity converts an ObjectValue shaped like a FHIR Quantity into a
// Quantity. The unit comes from "unit", else "code", else stays empty;
// only a missing or non-numeric "value" reports false.
func (o *ObjectValue) ToQuantity() (Quantity, bool) {
	raw, dataType, _, err := jsonparser.Get(o.data, "value")
	if err != nil || dataType != jsonparser.Number {
		return Quantity{}, false
	}

	val, err := decimal.NewFromString(string(raw))
	if err != nil {
		return Quantity{}, false
	}

	unit := ""
	if unitBytes, _, _, err := jsonparser.Get(o.data, "unit"); err == nil {
		unit = string(unitBytes)
	} else if codeBytes, _, _, err := jsonparser.Get(o.data, "code"); err == nil {
		unit = string(codeBytes)
	}

	return NewQuantityFromDecimal(val, unit), true
}
