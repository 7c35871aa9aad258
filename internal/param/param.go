// Package param converts caller-supplied literals into typed query
// parameters.
//
// Every literal that reaches a predicate passes through Make, which converts
// it to the target field's type and wraps it in a *queryir.Parameter. Because
// the value lives behind the parameter rather than in the predicate's
// structure, predicates that differ only in values render to identical query
// text and share a cached plan.
package param

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

// Make converts value to fd's type and returns it as an operand.
//
// A nil or IRNull value yields a queryir.NullLiteral of fd's type without
// indirection. Any other value is converted with Convert and wrapped in a
// fresh *queryir.Parameter.
func Make(value ir.IRValue, fd schema.FieldDescriptor) (queryir.Operand, error) {
	if ir.IsNull(value) {
		return queryir.NullLiteral{FieldType: fd.Type}, nil
	}
	converted, err := Convert(value, fd)
	if err != nil {
		return nil, err
	}
	return queryir.NewParameter(fd.Type, converted), nil
}

// Convert converts value to the IR kind representing fd's type:
//   - int widens to decimal; a decimal with no fractional part narrows to int
//   - enums come from a member name (case-insensitive), an ordinal, or an
//     IREnum whose ordinal is in range
//   - datetimes come from IRTime or an RFC 3339 string
//   - everything else must already be of the target kind
//
// Null passes through unchanged.
func Convert(value ir.IRValue, fd schema.FieldDescriptor) (ir.IRValue, error) {
	if ir.IsNull(value) {
		return ir.IRNull{}, nil
	}
	fail := func(reason string) error {
		return &TypeConversionError{Field: fd.Name, From: value.Kind().String(), To: fd.Type, Reason: reason}
	}

	switch fd.Type {
	case schema.TypeString:
		if v, ok := value.(ir.IRString); ok {
			return v, nil
		}
	case schema.TypeInt:
		switch v := value.(type) {
		case ir.IRInt:
			return v, nil
		case ir.IRDecimal:
			n, ok := v.Int64()
			if !ok {
				return nil, fail(fmt.Sprintf("%s has a fractional part or overflows", v))
			}
			return ir.IRInt(n), nil
		}
	case schema.TypeDecimal:
		switch v := value.(type) {
		case ir.IRDecimal:
			return v, nil
		case ir.IRInt:
			return ir.DecimalFromInt(int64(v)), nil
		}
	case schema.TypeBool:
		if v, ok := value.(ir.IRBool); ok {
			return v, nil
		}
	case schema.TypeDateTime:
		switch v := value.(type) {
		case ir.IRTime:
			return v, nil
		case ir.IRString:
			t, err := ir.ParseTime(string(v))
			if err != nil {
				return nil, fail(err.Error())
			}
			return t, nil
		}
	case schema.TypeEnum:
		switch v := value.(type) {
		case ir.IRString:
			ordinal, ok := fd.EnumOrdinal(strings.TrimSpace(string(v)))
			if !ok {
				return nil, fail(fmt.Sprintf("%q is not a member of %s", string(v), strings.Join(fd.EnumValues, "|")))
			}
			return enumValue(fd, ordinal), nil
		case ir.IRInt:
			return enumFromOrdinal(fd, int64(v), fail)
		case ir.IREnum:
			return enumFromOrdinal(fd, v.Ordinal, fail)
		}
	default:
		return nil, fail("unknown field type")
	}
	return nil, fail("")
}

func enumFromOrdinal(fd schema.FieldDescriptor, ordinal int64, fail func(string) error) (ir.IRValue, error) {
	if _, ok := fd.EnumName(ordinal); !ok {
		return nil, fail(fmt.Sprintf("ordinal %d out of range", ordinal))
	}
	return enumValue(fd, ordinal), nil
}

func enumValue(fd schema.FieldDescriptor, ordinal int64) ir.IREnum {
	name, _ := fd.EnumName(ordinal)
	return ir.IREnum{Ordinal: ordinal, Name: name}
}

// ParseText converts textual input (command-line flags, YAML scalars) into a
// value of fd's type. The empty string and "null" yield IRNull for nullable
// fields.
func ParseText(text string, fd schema.FieldDescriptor) (ir.IRValue, error) {
	trimmed := strings.TrimSpace(text)
	if fd.Nullable && (trimmed == "null" || (trimmed == "" && fd.Type != schema.TypeString)) {
		return ir.IRNull{}, nil
	}
	fail := func(reason string) error {
		return &TypeConversionError{Field: fd.Name, From: "text", To: fd.Type, Reason: reason}
	}

	switch fd.Type {
	case schema.TypeString:
		return ir.IRString(text), nil
	case schema.TypeInt:
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fail(fmt.Sprintf("%q is not an integer", text))
		}
		return ir.IRInt(n), nil
	case schema.TypeDecimal:
		d, err := ir.ParseDecimal(trimmed)
		if err != nil {
			return nil, fail(fmt.Sprintf("%q is not a decimal", text))
		}
		return d, nil
	case schema.TypeBool:
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return nil, fail(fmt.Sprintf("%q is not a boolean", text))
		}
		return ir.IRBool(b), nil
	case schema.TypeDateTime:
		return Convert(ir.IRString(trimmed), fd)
	case schema.TypeEnum:
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return Convert(ir.IRInt(n), fd)
		}
		return Convert(ir.IRString(trimmed), fd)
	default:
		return nil, fail("unknown field type")
	}
}

// Record converts loosely typed input (decoded YAML or JSON) into a record
// of rt. Strings are parsed according to the target field; other values
// are converted with ir.FromGo and Convert. Keys are matched to fields
// case-insensitively and stored under the declared name; unknown keys are
// an error.
func Record(rt *schema.RecordType, raw map[string]any) (ir.IRObject, error) {
	rec := make(ir.IRObject, len(raw))
	for key, val := range raw {
		fd, ok := fieldFor(rt, key)
		if !ok {
			return nil, fmt.Errorf("%s has no field %q", rt.Name, key)
		}
		v, err := Value(val, fd)
		if err != nil {
			return nil, err
		}
		rec[fd.Name] = v
	}
	return rec, nil
}

// CoerceRecord converts every declared field of rec to its field type,
// storing it under the declared name. Undeclared keys are kept unchanged
// so that schema validation can report them.
func CoerceRecord(rt *schema.RecordType, rec ir.IRObject) (ir.IRObject, error) {
	out := make(ir.IRObject, len(rec))
	for key, v := range rec {
		fd, ok := rt.Field(key)
		if !ok {
			out[key] = v
			continue
		}
		converted, err := Convert(v, fd)
		if err != nil {
			return nil, err
		}
		out[fd.Name] = converted
	}
	return out, nil
}

// Value converts one loosely typed input into fd's type.
func Value(raw any, fd schema.FieldDescriptor) (ir.IRValue, error) {
	if s, ok := raw.(string); ok && fd.Type != schema.TypeString {
		return ParseText(s, fd)
	}
	v, err := ir.FromGo(raw)
	if err != nil {
		return nil, &TypeConversionError{Field: fd.Name, From: fmt.Sprintf("%T", raw), To: fd.Type, Reason: err.Error()}
	}
	return Convert(v, fd)
}

func fieldFor(rt *schema.RecordType, key string) (schema.FieldDescriptor, bool) {
	folded := schema.Fold(key)
	for _, f := range rt.Fields {
		if schema.Fold(f.Name) == folded {
			return f, true
		}
	}
	return schema.FieldDescriptor{}, false
}
