package querysql

import (
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/schema"
)

// sqliteTimeLayout is fixed-width so that text comparison orders instants.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// EncodeValue converts v, already of fd's type, into a driver argument for
// the dialect. Null becomes nil.
func EncodeValue(d Dialect, fd schema.FieldDescriptor, v ir.IRValue) (any, error) {
	if ir.IsNull(v) {
		return nil, nil
	}
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		if fd.Type == schema.TypeDecimal {
			return float64(val), nil
		}
		return int64(val), nil
	case ir.IRDecimal:
		return val.Float64(), nil
	case ir.IRBool:
		if d == SQLite {
			if val {
				return int64(1), nil
			}
			return int64(0), nil
		}
		return bool(val), nil
	case ir.IRTime:
		if d == SQLite {
			return val.Time().Format(sqliteTimeLayout), nil
		}
		return val.Time(), nil
	case ir.IREnum:
		return val.Ordinal, nil
	default:
		return nil, fmt.Errorf("field %q: %s value cannot be a SQL argument", fd.Name, v.Kind())
	}
}

// DecodeValue converts a scanned column value into an IRValue of fd's type.
func DecodeValue(fd schema.FieldDescriptor, raw any) (ir.IRValue, error) {
	if raw == nil {
		return ir.IRNull{}, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	fail := func() error {
		return fmt.Errorf("field %q: cannot decode %T as %s", fd.Name, raw, fd.Type)
	}

	switch fd.Type {
	case schema.TypeString:
		if s, ok := raw.(string); ok {
			return ir.IRString(s), nil
		}
	case schema.TypeInt:
		if n, ok := toInt64(raw); ok {
			return ir.IRInt(n), nil
		}
	case schema.TypeDecimal:
		switch v := raw.(type) {
		case float64:
			return ir.DecimalFromFloat(v)
		case float32:
			return ir.DecimalFromFloat(float64(v))
		case string:
			return ir.ParseDecimal(v)
		}
		if n, ok := toInt64(raw); ok {
			return ir.DecimalFromInt(n), nil
		}
	case schema.TypeBool:
		switch v := raw.(type) {
		case bool:
			return ir.IRBool(v), nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fail()
			}
			return ir.IRBool(b), nil
		}
		if n, ok := toInt64(raw); ok {
			return ir.IRBool(n != 0), nil
		}
	case schema.TypeDateTime:
		switch v := raw.(type) {
		case time.Time:
			return ir.NewIRTime(v), nil
		case string:
			return ir.ParseTime(v)
		}
	case schema.TypeEnum:
		if n, ok := toInt64(raw); ok {
			name, ok := fd.EnumName(n)
			if !ok {
				return nil, fmt.Errorf("field %q: enum ordinal %d out of range", fd.Name, n)
			}
			return ir.IREnum{Ordinal: n, Name: name}, nil
		}
	}
	return nil, fail()
}

func toInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// DecodeRow builds a record from one scanned row.
func DecodeRow(columns []schema.FieldDescriptor, raw []any) (ir.IRObject, error) {
	if len(raw) != len(columns) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(raw), len(columns))
	}
	rec := make(ir.IRObject, len(columns))
	for i, fd := range columns {
		v, err := DecodeValue(fd, raw[i])
		if err != nil {
			return nil, err
		}
		rec[fd.Name] = v
	}
	return rec, nil
}

// EncodeRecord returns the INSERT arguments for rec in rt's field order.
// rec must already be coerced to rt's field types.
func EncodeRecord(d Dialect, rt *schema.RecordType, rec ir.IRObject) ([]any, error) {
	args := make([]any, len(rt.Fields))
	for i, f := range rt.Fields {
		v, err := EncodeValue(d, f, rec.Get(f.Name))
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}
