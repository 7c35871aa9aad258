package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/roach88/dynquery/internal/ir"
)

// JSONSchema derives a JSON Schema document describing records of rt.
// Fields that are non-nullable or required must be present and non-null;
// unknown properties are rejected.
func JSONSchema(rt *RecordType) map[string]any {
	properties := make(map[string]any, len(rt.Fields))
	required := make([]any, 0, len(rt.Fields))

	for _, f := range rt.Fields {
		prop := map[string]any{}
		var jsonType string
		switch f.Type {
		case TypeString:
			jsonType = "string"
		case TypeInt:
			jsonType = "integer"
		case TypeDecimal:
			jsonType = "number"
		case TypeBool:
			jsonType = "boolean"
		case TypeDateTime:
			jsonType = "string"
			prop["format"] = "date-time"
		case TypeEnum:
			jsonType = "integer"
			prop["minimum"] = 0
			prop["maximum"] = len(f.EnumValues) - 1
		}

		if f.Nullable && !f.Required {
			prop["type"] = []any{jsonType, "null"}
		} else {
			prop["type"] = jsonType
			required = append(required, f.Name)
		}
		properties[f.Name] = prop
	}

	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"title":                rt.Name,
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// RecordValidator checks records against the schema derived from a type.
// It is safe for concurrent use.
type RecordValidator struct {
	record string
	schema *gojsonschema.Schema
}

// NewRecordValidator compiles the JSON Schema for rt.
func NewRecordValidator(rt *RecordType) (*RecordValidator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(JSONSchema(rt)))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", rt.Name, err)
	}
	return &RecordValidator{record: rt.Name, schema: compiled}, nil
}

// Validate returns a *RecordValidationError listing every violation.
func (v *RecordValidator) Validate(rec ir.IRObject) error {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(Document(rec)))
	if err != nil {
		return fmt.Errorf("validate %s record: %w", v.record, err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, re.String())
	}
	return &RecordValidationError{Record: v.record, Problems: problems}
}

// ValidateRecord is a one-shot convenience around NewRecordValidator.
func ValidateRecord(rt *RecordType, rec ir.IRObject) error {
	v, err := NewRecordValidator(rt)
	if err != nil {
		return err
	}
	return v.Validate(rec)
}

// Document converts a record into plain JSON-compatible Go values:
// decimals become json.Number, datetimes RFC 3339 strings and enums their
// ordinal.
func Document(rec ir.IRObject) map[string]any {
	doc := make(map[string]any, len(rec))
	for k, v := range rec {
		doc[k] = documentValue(v)
	}
	return doc
}

func documentValue(v ir.IRValue) any {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return nil
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return int64(val)
	case ir.IRBool:
		return bool(val)
	case ir.IRDecimal:
		return json.Number(val.String())
	case ir.IRTime:
		return val.String()
	case ir.IREnum:
		return val.Ordinal
	case ir.IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = documentValue(elem)
		}
		return out
	case ir.IRObject:
		return Document(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}
