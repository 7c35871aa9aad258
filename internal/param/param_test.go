package param

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

var (
	idField     = schema.FieldDescriptor{Name: "Id", Type: schema.TypeInt}
	codeField   = schema.FieldDescriptor{Name: "Code", Type: schema.TypeInt, Nullable: true}
	nameField   = schema.FieldDescriptor{Name: "Name", Type: schema.TypeString, Nullable: true}
	priceField  = schema.FieldDescriptor{Name: "Price", Type: schema.TypeDecimal}
	activeField = schema.FieldDescriptor{Name: "Active", Type: schema.TypeBool}
	whenField   = schema.FieldDescriptor{Name: "CreatedAt", Type: schema.TypeDateTime}
	statusField = schema.FieldDescriptor{Name: "Status", Type: schema.TypeEnum, EnumValues: []string{"Pending", "Active", "Closed"}}
)

func TestMake_WrapsInParameter(t *testing.T) {
	op, err := Make(ir.IRInt(5), idField)
	require.NoError(t, err)

	p, ok := op.(*queryir.Parameter)
	require.True(t, ok, "expected *queryir.Parameter, got %T", op)
	assert.Equal(t, schema.TypeInt, p.Type())
	assert.Equal(t, ir.IRInt(5), p.Value())
}

func TestMake_FreshParameterPerCall(t *testing.T) {
	a, err := Make(ir.IRInt(5), idField)
	require.NoError(t, err)
	b, err := Make(ir.IRInt(5), idField)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}

func TestMake_NullYieldsTypedLiteral(t *testing.T) {
	for _, v := range []ir.IRValue{nil, ir.IRNull{}} {
		op, err := Make(v, codeField)
		require.NoError(t, err)
		assert.Equal(t, queryir.NullLiteral{FieldType: schema.TypeInt}, op)
	}
}

func TestConvert(t *testing.T) {
	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	tests := []struct {
		name  string
		value ir.IRValue
		field schema.FieldDescriptor
		want  ir.IRValue
	}{
		{"string", ir.IRString("Ann"), nameField, ir.IRString("Ann")},
		{"int", ir.IRInt(3), idField, ir.IRInt(3)},
		{"integral decimal to int", ir.MustDecimal("3.00"), idField, ir.IRInt(3)},
		{"int widens to decimal", ir.IRInt(3), priceField, ir.DecimalFromInt(3)},
		{"decimal", ir.MustDecimal("9.99"), priceField, ir.MustDecimal("9.99")},
		{"bool", ir.IRBool(true), activeField, ir.IRBool(true)},
		{"time", ir.NewIRTime(when), whenField, ir.NewIRTime(when)},
		{"time from rfc3339", ir.IRString("2024-05-06T07:08:09Z"), whenField, ir.NewIRTime(when)},
		{"enum by name", ir.IRString("closed"), statusField, ir.IREnum{Ordinal: 2, Name: "Closed"}},
		{"enum by ordinal", ir.IRInt(1), statusField, ir.IREnum{Ordinal: 1, Name: "Active"}},
		{"enum passthrough", ir.IREnum{Ordinal: 0}, statusField, ir.IREnum{Ordinal: 0, Name: "Pending"}},
		{"null passes", ir.IRNull{}, codeField, ir.IRNull{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.value, tt.field)
			require.NoError(t, err)
			if d, ok := tt.want.(ir.IRDecimal); ok {
				gd, ok := got.(ir.IRDecimal)
				require.True(t, ok)
				assert.Zero(t, d.Cmp(gd))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvert_Failures(t *testing.T) {
	tests := []struct {
		name  string
		value ir.IRValue
		field schema.FieldDescriptor
		want  string
	}{
		{"string to int", ir.IRString("5"), idField, `cannot convert string value to int for field "Id"`},
		{"fractional to int", ir.MustDecimal("1.5"), idField, "fractional part"},
		{"int to string", ir.IRInt(5), nameField, "cannot convert int value to string"},
		{"int to bool", ir.IRInt(1), activeField, "to bool"},
		{"bad datetime", ir.IRString("soon"), whenField, "expected RFC 3339"},
		{"unknown enum member", ir.IRString("Deleted"), statusField, "not a member of Pending|Active|Closed"},
		{"enum ordinal out of range", ir.IRInt(3), statusField, "ordinal 3 out of range"},
		{"negative ordinal", ir.IRInt(-1), statusField, "out of range"},
		{"decimal to enum", ir.MustDecimal("1"), statusField, "to enum"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(tt.value, tt.field)
			require.Error(t, err)
			assert.True(t, IsTypeConversionError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMake_PropagatesConversionError(t *testing.T) {
	op, err := Make(ir.IRString("abc"), idField)
	assert.Nil(t, op)

	var tce *TypeConversionError
	require.ErrorAs(t, err, &tce)
	assert.Equal(t, "Id", tce.Field)
	assert.Equal(t, "string", tce.From)
	assert.Equal(t, schema.TypeInt, tce.To)
}

func TestParseText(t *testing.T) {
	tests := []struct {
		text  string
		field schema.FieldDescriptor
		want  ir.IRValue
	}{
		{"42", idField, ir.IRInt(42)},
		{" 42 ", idField, ir.IRInt(42)},
		{"null", codeField, ir.IRNull{}},
		{"", codeField, ir.IRNull{}},
		{"", nameField, ir.IRString("")},
		{" Ann ", nameField, ir.IRString(" Ann ")},
		{"true", activeField, ir.IRBool(true)},
		{"2024-01-02", whenField, ir.NewIRTime(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))},
		{"Active", statusField, ir.IREnum{Ordinal: 1, Name: "Active"}},
		{"2", statusField, ir.IREnum{Ordinal: 2, Name: "Closed"}},
	}
	for _, tt := range tests {
		t.Run(tt.field.Name+"/"+tt.text, func(t *testing.T) {
			got, err := ParseText(tt.text, tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := ParseText("12.50", priceField)
	require.NoError(t, err)
	assert.Equal(t, "12.50", got.(ir.IRDecimal).String())

	_, err = ParseText("", idField)
	assert.True(t, IsTypeConversionError(err), "empty text on a non-nullable int")

	_, err = ParseText("yes please", activeField)
	assert.Error(t, err)
}

func TestRecord(t *testing.T) {
	rt := &schema.RecordType{Name: "User", Fields: []schema.FieldDescriptor{idField, nameField, codeField, priceField, whenField, statusField}}

	rec, err := Record(rt, map[string]any{
		"id":        1,
		"Name":      "Ann",
		"code":      nil,
		"Price":     12.5,
		"CreatedAt": "2024-01-02T03:04:05Z",
		"status":    "pending",
	})
	require.NoError(t, err)

	assert.Equal(t, ir.IRInt(1), rec["Id"])
	assert.Equal(t, ir.IRString("Ann"), rec["Name"])
	assert.Equal(t, ir.IRNull{}, rec["Code"])
	assert.Equal(t, "12.5", rec["Price"].(ir.IRDecimal).String())
	assert.Equal(t, ir.IREnum{Ordinal: 0, Name: "Pending"}, rec["Status"])

	_, err = Record(rt, map[string]any{"Nope": 1})
	assert.ErrorContains(t, err, `User has no field "Nope"`)

	_, err = Record(rt, map[string]any{"Id": "one"})
	assert.True(t, IsTypeConversionError(err))
}

func TestCoerceRecord(t *testing.T) {
	rt := &schema.RecordType{Name: "User", Fields: []schema.FieldDescriptor{idField, priceField, statusField}}

	rec, err := CoerceRecord(rt, ir.IRObject{
		"Id":     ir.MustDecimal("3"),
		"Price":  ir.IRInt(2),
		"Status": ir.IRInt(2),
		"Extra":  ir.IRBool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(3), rec["Id"])
	assert.Equal(t, "2", rec["Price"].(ir.IRDecimal).String())
	assert.Equal(t, ir.IREnum{Ordinal: 2, Name: "Closed"}, rec["Status"])
	assert.Equal(t, ir.IRBool(true), rec["Extra"], "undeclared keys are left for validation")

	_, err = CoerceRecord(rt, ir.IRObject{"Price": ir.IRString("cheap")})
	assert.True(t, IsTypeConversionError(err))
}
