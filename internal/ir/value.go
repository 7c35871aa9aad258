package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"
	"unicode/utf16"

	"github.com/cockroachdb/apd/v3"
)

// Kind identifies the concrete variant behind an IRValue.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindDecimal
	KindBool
	KindTime
	KindEnum
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindNull:    "null",
	KindString:  "string",
	KindInt:     "int",
	KindDecimal: "decimal",
	KindBool:    "bool",
	KindTime:    "datetime",
	KindEnum:    "enum",
	KindArray:   "array",
	KindObject:  "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IRValue is a sealed interface over the literal kinds a query or a record
// may carry. There is no float variant: fractional numbers are IRDecimal.
type IRValue interface {
	irValue() // Sealed - only the types in this file implement it
	Kind() Kind
}

// IRNull represents an absent value.
type IRNull struct{}

func (IRNull) irValue()   {}
func (IRNull) Kind() Kind { return KindNull }

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRString represents a string value.
type IRString string

func (IRString) irValue()   {}
func (IRString) Kind() Kind { return KindString }

// IRInt represents a 64-bit integer value.
type IRInt int64

func (IRInt) irValue()   {}
func (IRInt) Kind() Kind { return KindInt }

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue()   {}
func (IRBool) Kind() Kind { return KindBool }

// IRDecimal represents an arbitrary-precision decimal value.
// The zero IRDecimal is 0.
type IRDecimal struct {
	d *apd.Decimal
}

func (IRDecimal) irValue()   {}
func (IRDecimal) Kind() Kind { return KindDecimal }

// NewIRDecimal copies d into a new IRDecimal.
func NewIRDecimal(d *apd.Decimal) IRDecimal {
	c := new(apd.Decimal)
	if d != nil {
		c.Set(d)
	}
	return IRDecimal{d: c}
}

// ParseDecimal parses a decimal literal such as "12.50" or "-3".
func ParseDecimal(s string) (IRDecimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return IRDecimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return IRDecimal{}, fmt.Errorf("parse decimal %q: only finite values allowed", s)
	}
	return IRDecimal{d: d}, nil
}

// MustDecimal is like ParseDecimal but panics on error.
// Use only in tests or with literal input.
func MustDecimal(s string) IRDecimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromInt returns the decimal form of n.
func DecimalFromInt(n int64) IRDecimal {
	return IRDecimal{d: apd.New(n, 0)}
}

// DecimalFromFloat converts f through its shortest decimal representation.
func DecimalFromFloat(f float64) (IRDecimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return IRDecimal{}, fmt.Errorf("decimal from float: %v is not finite", f)
	}
	d := new(apd.Decimal)
	if _, err := d.SetFloat64(f); err != nil {
		return IRDecimal{}, fmt.Errorf("decimal from float: %w", err)
	}
	return IRDecimal{d: d}, nil
}

// Decimal returns a copy of the underlying decimal.
func (v IRDecimal) Decimal() *apd.Decimal {
	c := new(apd.Decimal)
	if v.d != nil {
		c.Set(v.d)
	}
	return c
}

func (v IRDecimal) String() string {
	if v.d == nil {
		return "0"
	}
	return v.d.Text('f')
}

// Float64 returns the nearest float64. Used only at storage boundaries
// whose column type is binary floating point.
func (v IRDecimal) Float64() float64 {
	if v.d == nil {
		return 0
	}
	f, _ := v.d.Float64()
	return f
}

// Int64 returns the value as an integer when it has no fractional part.
func (v IRDecimal) Int64() (int64, bool) {
	var reduced apd.Decimal
	reduced.Reduce(v.Decimal())
	if reduced.Exponent < 0 {
		return 0, false
	}
	n, err := reduced.Int64()
	if err != nil {
		return 0, false
	}
	return n, true
}

// Cmp compares two decimals numerically.
func (v IRDecimal) Cmp(other IRDecimal) int {
	return v.Decimal().Cmp(other.Decimal())
}

// IRTime represents an instant. Values are kept in UTC.
type IRTime struct {
	t time.Time
}

func (IRTime) irValue()   {}
func (IRTime) Kind() Kind { return KindTime }

// NewIRTime creates an IRTime normalized to UTC.
func NewIRTime(t time.Time) IRTime {
	return IRTime{t: t.UTC()}
}

// ParseTime accepts RFC 3339 timestamps and bare dates (2006-01-02).
func ParseTime(s string) (IRTime, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewIRTime(t), nil
		}
	}
	return IRTime{}, fmt.Errorf("parse datetime %q: expected RFC 3339 or YYYY-MM-DD", s)
}

// Time returns the instant in UTC.
func (v IRTime) Time() time.Time { return v.t }

func (v IRTime) String() string { return v.t.Format(time.RFC3339Nano) }

// IREnum is a member of a closed enumeration, identified by ordinal.
// Name is informational and does not take part in comparisons.
type IREnum struct {
	Ordinal int64
	Name    string
}

func (IREnum) irValue()   {}
func (IREnum) Kind() Kind { return KindEnum }

// IRArray represents an array of IRValue elements.
type IRArray []IRValue

func (IRArray) irValue()   {}
func (IRArray) Kind() Kind { return KindArray }

// IRObject represents a map of string keys to IRValue elements.
// Records are IRObjects keyed by field name.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue()   {}
func (IRObject) Kind() Kind { return KindObject }

// Get returns the value under key, or IRNull when the key is absent.
func (obj IRObject) Get(key string) IRValue {
	if v, ok := obj[key]; ok && v != nil {
		return v
	}
	return IRNull{}
}

// IsNull reports whether v is absent or IRNull.
func IsNull(v IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(IRNull)
	return ok
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs outside the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// FromGo converts a Go native value into an IRValue.
// Floats become decimals through their shortest representation.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case *string:
		if val == nil {
			return IRNull{}, nil
		}
		return IRString(*val), nil
	case bool:
		return IRBool(val), nil
	case *bool:
		if val == nil {
			return IRNull{}, nil
		}
		return IRBool(*val), nil
	case int:
		return IRInt(val), nil
	case *int:
		if val == nil {
			return IRNull{}, nil
		}
		return IRInt(*val), nil
	case int8:
		return IRInt(val), nil
	case int16:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case *int64:
		if val == nil {
			return IRNull{}, nil
		}
		return IRInt(*val), nil
	case uint8:
		return IRInt(val), nil
	case uint16:
		return IRInt(val), nil
	case uint32:
		return IRInt(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return IRInt(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return IRInt(val), nil
	case float32:
		return DecimalFromFloat(float64(val))
	case float64:
		return DecimalFromFloat(val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return IRInt(n), nil
		}
		return ParseDecimal(val.String())
	case *apd.Decimal:
		if val == nil {
			return IRNull{}, nil
		}
		return NewIRDecimal(val), nil
	case apd.Decimal:
		return NewIRDecimal(&val), nil
	case time.Time:
		return NewIRTime(val), nil
	case *time.Time:
		if val == nil {
			return IRNull{}, nil
		}
		return NewIRTime(*val), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// MustFromGo is like FromGo but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFromGo(v any) IRValue {
	irv, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return irv
}

// MarshalJSON implements json.Marshaler for IRObject with sorted keys.
// This is display output, not the canonical form used for hashing.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalIRValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalIRValue marshals an IRValue to JSON for display.
// Decimals are emitted as JSON numbers, datetimes as RFC 3339 strings and
// enums by name when known.
func MarshalIRValue(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case nil, IRNull:
		return []byte("null"), nil
	case IRString:
		return json.Marshal(string(val))
	case IRInt:
		return json.Marshal(int64(val))
	case IRBool:
		return json.Marshal(bool(val))
	case IRDecimal:
		return []byte(val.String()), nil
	case IRTime:
		return json.Marshal(val.String())
	case IREnum:
		if val.Name != "" {
			return json.Marshal(val.Name)
		}
		return json.Marshal(val.Ordinal)
	case IRArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			elemBytes, err := MarshalIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(elemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case IRObject:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown IRValue type: %T", v)
	}
}

// Format renders v for diagnostics and text output.
func Format(v IRValue) string {
	switch val := v.(type) {
	case nil, IRNull:
		return "null"
	case IRString:
		return fmt.Sprintf("%q", string(val))
	case IRInt:
		return fmt.Sprintf("%d", int64(val))
	case IRBool:
		return fmt.Sprintf("%t", bool(val))
	case IRDecimal:
		return val.String()
	case IRTime:
		return val.String()
	case IREnum:
		if val.Name != "" {
			return val.Name
		}
		return fmt.Sprintf("#%d", val.Ordinal)
	default:
		b, err := MarshalIRValue(v)
		if err != nil {
			return fmt.Sprintf("<%T>", v)
		}
		return string(b)
	}
}
