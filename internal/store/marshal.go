package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/schema"
)

// definition is the stored form of a record type.
type definition struct {
	Name     string            `json:"name"`
	Abstract bool              `json:"abstract"`
	Fields   []fieldDefinition `json:"fields"`
}

type fieldDefinition struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Nullable bool     `json:"nullable"`
	Required bool     `json:"required"`
	Values   []string `json:"values,omitempty"`
}

// marshalDefinition converts a record type to canonical JSON TEXT.
// Uses RFC 8785 canonical JSON so equal definitions hash equally.
func marshalDefinition(rt *schema.RecordType) (string, error) {
	fields := make([]any, len(rt.Fields))
	for i, f := range rt.Fields {
		field := map[string]any{
			"name":     f.Name,
			"type":     string(f.Type),
			"nullable": f.Nullable,
			"required": f.Required,
		}
		if len(f.EnumValues) > 0 {
			values := make([]any, len(f.EnumValues))
			for j, v := range f.EnumValues {
				values[j] = v
			}
			field["values"] = values
		}
		fields[i] = field
	}
	data, err := ir.MarshalCanonical(map[string]any{
		"name":     rt.Name,
		"abstract": rt.Abstract,
		"fields":   fields,
	})
	if err != nil {
		return "", fmt.Errorf("marshal definition: %w", err)
	}
	return string(data), nil
}

// unmarshalDefinition parses a stored definition back into a record type.
func unmarshalDefinition(data string) (schema.RecordType, error) {
	var def definition
	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return schema.RecordType{}, fmt.Errorf("unmarshal definition: %w", err)
	}
	rt := schema.RecordType{Name: def.Name, Abstract: def.Abstract}
	for _, f := range def.Fields {
		typ, err := schema.ParseFieldType(f.Type)
		if err != nil {
			return schema.RecordType{}, fmt.Errorf("unmarshal definition %s.%s: %w", def.Name, f.Name, err)
		}
		rt.Fields = append(rt.Fields, schema.FieldDescriptor{
			Name:       f.Name,
			Type:       typ,
			Nullable:   f.Nullable,
			Required:   f.Required,
			EnumValues: f.Values,
		})
	}
	return rt, nil
}

// definitionHash identifies a definition by content.
func definitionHash(data string) string {
	h, err := ir.Hash(ir.DomainShape, ir.IRString(data))
	if err != nil {
		// Hashing a string cannot fail.
		panic(err)
	}
	return h
}
