package schema

import (
	"fmt"
	"strings"
)

// FieldType is the semantic tag of a field's underlying value type.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeInt      FieldType = "int"
	TypeDecimal  FieldType = "decimal"
	TypeBool     FieldType = "bool"
	TypeDateTime FieldType = "datetime"
	TypeEnum     FieldType = "enum"
)

// ParseFieldType accepts the canonical tags plus common aliases.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text":
		return TypeString, nil
	case "int", "integer", "number", "long":
		return TypeInt, nil
	case "decimal", "numeric", "money":
		return TypeDecimal, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "datetime", "timestamp", "time":
		return TypeDateTime, nil
	case "enum":
		return TypeEnum, nil
	default:
		return "", fmt.Errorf("unknown field type %q", s)
	}
}

// Valid reports whether t is one of the declared tags.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeInt, TypeDecimal, TypeBool, TypeDateTime, TypeEnum:
		return true
	}
	return false
}

// FieldDescriptor describes one public field of a record type.
// Descriptors are immutable once registered.
type FieldDescriptor struct {
	Name     string
	Type     FieldType
	Nullable bool
	// Required marks a field that must always carry a value even when its
	// type admits null. Null checks are rejected on required fields.
	Required bool
	// EnumValues lists member names in ordinal order. Only for TypeEnum.
	EnumValues []string
}

// IsString reports whether string-manipulation methods apply to the field.
func (f FieldDescriptor) IsString() bool {
	return f.Type == TypeString
}

// AcceptsNullCheck reports whether IsNull/IsNotNull may target the field.
func (f FieldDescriptor) AcceptsNullCheck() bool {
	return f.Nullable && !f.Required
}

// EnumOrdinal returns the ordinal of a member name, matched case-insensitively.
func (f FieldDescriptor) EnumOrdinal(name string) (int64, bool) {
	for i, v := range f.EnumValues {
		if strings.EqualFold(v, name) {
			return int64(i), true
		}
	}
	return 0, false
}

// EnumName returns the member name at ordinal, if in range.
func (f FieldDescriptor) EnumName(ordinal int64) (string, bool) {
	if ordinal < 0 || ordinal >= int64(len(f.EnumValues)) {
		return "", false
	}
	return f.EnumValues[ordinal], true
}

// AssignableTo reports whether a value of f can be stored in target:
// same type, same enum members, and target nullable or f non-nullable.
func (f FieldDescriptor) AssignableTo(target FieldDescriptor) bool {
	if f.Type != target.Type {
		return false
	}
	if f.Type == TypeEnum && !sameMembers(f.EnumValues, target.EnumValues) {
		return false
	}
	return target.Nullable || !f.Nullable
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RecordType is a named, ordered set of field descriptors.
type RecordType struct {
	Name   string
	Fields []FieldDescriptor
	// Abstract marks a type that cannot be instantiated without arguments,
	// so it cannot serve as a projection result shape.
	Abstract bool
}

// Field returns the descriptor whose name matches exactly.
func (rt *RecordType) Field(name string) (FieldDescriptor, bool) {
	for _, f := range rt.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// FieldNames returns field names in declaration order.
func (rt *RecordType) FieldNames() []string {
	names := make([]string, len(rt.Fields))
	for i, f := range rt.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks the structural rules every registered type must satisfy.
func (rt *RecordType) Validate() error {
	if strings.TrimSpace(rt.Name) == "" {
		return &SchemaError{Field: "name", Message: "record type name is required"}
	}
	if len(rt.Fields) == 0 {
		return &SchemaError{Field: rt.Name, Message: "record type has no fields"}
	}
	seen := make(map[string]string, len(rt.Fields))
	for _, f := range rt.Fields {
		path := rt.Name + "." + f.Name
		if strings.TrimSpace(f.Name) == "" {
			return &SchemaError{Field: rt.Name, Message: "field name is required"}
		}
		folded := Fold(f.Name)
		if prev, ok := seen[folded]; ok {
			return &SchemaError{Field: path, Message: fmt.Sprintf("field name collides with %q ignoring case", prev)}
		}
		seen[folded] = f.Name
		if !f.Type.Valid() {
			return &SchemaError{Field: path, Message: fmt.Sprintf("invalid field type %q", f.Type)}
		}
		if f.Type == TypeEnum && len(f.EnumValues) == 0 {
			return &SchemaError{Field: path, Message: "enum field needs at least one member"}
		}
		if f.Type != TypeEnum && len(f.EnumValues) > 0 {
			return &SchemaError{Field: path, Message: "enum members on a non-enum field"}
		}
	}
	return nil
}
