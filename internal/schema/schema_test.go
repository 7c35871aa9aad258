package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dynquery/internal/ir"
)

func userType() RecordType {
	return RecordType{
		Name: "User",
		Fields: []FieldDescriptor{
			{Name: "Id", Type: TypeInt},
			{Name: "Name", Type: TypeString, Nullable: true, Required: true},
			{Name: "Gender", Type: TypeString, Nullable: true},
			{Name: "Code", Type: TypeInt, Nullable: true},
			{Name: "CreatedAt", Type: TypeDateTime},
			{Name: "Price", Type: TypeDecimal},
			{Name: "Active", Type: TypeBool},
			{Name: "Status", Type: TypeEnum, EnumValues: []string{"Pending", "Active", "Closed"}},
		},
	}
}

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		in   string
		want FieldType
	}{
		{"string", TypeString},
		{"Integer", TypeInt},
		{"number", TypeInt},
		{"decimal", TypeDecimal},
		{"boolean", TypeBool},
		{"timestamp", TypeDateTime},
		{" enum ", TypeEnum},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFieldType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFieldType("float")
	assert.Error(t, err)
}

func TestRecordType_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rt      RecordType
		wantErr string
	}{
		{"ok", userType(), ""},
		{"missing name", RecordType{Fields: []FieldDescriptor{{Name: "Id", Type: TypeInt}}}, "name is required"},
		{"no fields", RecordType{Name: "Empty"}, "no fields"},
		{"case collision", RecordType{Name: "X", Fields: []FieldDescriptor{
			{Name: "Id", Type: TypeInt}, {Name: "ID", Type: TypeInt},
		}}, "collides"},
		{"bad type", RecordType{Name: "X", Fields: []FieldDescriptor{{Name: "F", Type: "float"}}}, "invalid field type"},
		{"enum without members", RecordType{Name: "X", Fields: []FieldDescriptor{{Name: "S", Type: TypeEnum}}}, "at least one member"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rt.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFieldDescriptor_AcceptsNullCheck(t *testing.T) {
	rt := userType()
	code, _ := rt.Field("Code")
	name, _ := rt.Field("Name")
	id, _ := rt.Field("Id")

	assert.True(t, code.AcceptsNullCheck())
	assert.False(t, name.AcceptsNullCheck(), "required fields reject null checks")
	assert.False(t, id.AcceptsNullCheck(), "non-nullable fields reject null checks")
}

func TestFieldDescriptor_Enum(t *testing.T) {
	rt := userType()
	status, _ := rt.Field("Status")

	n, ok := status.EnumOrdinal("closed")
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)

	_, ok = status.EnumOrdinal("Deleted")
	assert.False(t, ok)

	name, ok := status.EnumName(1)
	assert.True(t, ok)
	assert.Equal(t, "Active", name)

	_, ok = status.EnumName(3)
	assert.False(t, ok)
}

func TestFieldDescriptor_AssignableTo(t *testing.T) {
	str := FieldDescriptor{Type: TypeString, Nullable: true}
	intNull := FieldDescriptor{Type: TypeInt, Nullable: true}
	intVal := FieldDescriptor{Type: TypeInt}
	enumA := FieldDescriptor{Type: TypeEnum, EnumValues: []string{"A", "B"}}
	enumB := FieldDescriptor{Type: TypeEnum, EnumValues: []string{"B", "A"}}

	assert.True(t, intVal.AssignableTo(intNull))
	assert.False(t, intNull.AssignableTo(intVal))
	assert.False(t, str.AssignableTo(intNull))
	assert.True(t, enumA.AssignableTo(enumA))
	assert.False(t, enumA.AssignableTo(enumB))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	user, err := reg.Register(userType())
	require.NoError(t, err)

	got, ok := reg.Lookup("user")
	require.True(t, ok)
	assert.Same(t, user, got)

	_, err = reg.Register(RecordType{Name: "USER", Fields: []FieldDescriptor{{Name: "Id", Type: TypeInt}}})
	assert.ErrorContains(t, err, "already registered")

	_, ok = reg.Lookup("Order")
	assert.False(t, ok)
	assert.Len(t, reg.Types(), 1)
}

func TestRegistry_CopiesInput(t *testing.T) {
	in := userType()
	reg := NewRegistry()
	stored := reg.MustRegister(in)

	in.Fields[0].Name = "Mutated"
	in.Fields[7].EnumValues[0] = "Mutated"

	assert.Equal(t, "Id", stored.Fields[0].Name)
	assert.Equal(t, "Pending", stored.Fields[7].EnumValues[0])
}

func TestResolver_CaseInsensitive(t *testing.T) {
	reg := NewRegistry()
	user := reg.MustRegister(userType())
	r := NewResolver()

	for _, name := range []string{"Name", "name", "NAME", " nAmE "} {
		fd, ok := r.Resolve(user, name)
		require.True(t, ok, name)
		assert.Equal(t, "Name", fd.Name)
	}
	assert.Equal(t, 1, r.Len(), "all spellings fold to one cache entry")
}

func TestResolver_MissesAreNotCached(t *testing.T) {
	reg := NewRegistry()
	user := reg.MustRegister(userType())
	r := NewResolver()

	_, ok := r.Resolve(user, "Nonexistent")
	assert.False(t, ok)
	_, ok = r.Resolve(user, "")
	assert.False(t, ok)
	_, ok = r.Resolve(nil, "Name")
	assert.False(t, ok)

	assert.Equal(t, 0, r.Len())
}

func TestResolver_CacheKeyedByRecordType(t *testing.T) {
	reg := NewRegistry()
	user := reg.MustRegister(userType())
	view := reg.MustRegister(RecordType{Name: "UserView", Fields: []FieldDescriptor{
		{Name: "Name", Type: TypeString, Nullable: true},
	}})
	r := NewResolver()

	fromUser, ok := r.Resolve(user, "name")
	require.True(t, ok)
	fromView, ok := r.Resolve(view, "name")
	require.True(t, ok)

	assert.True(t, fromUser.Required)
	assert.False(t, fromView.Required)
	assert.Equal(t, 2, r.Len())
}

func TestResolver_ConcurrentResolve(t *testing.T) {
	reg := NewRegistry()
	user := reg.MustRegister(userType())
	r := NewResolver()

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fd, ok := r.Resolve(user, []string{"id", "NAME", "price"}[i%3])
			assert.True(t, ok)
			assert.NotEmpty(t, fd.Name)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, r.Len())
}

func TestResolver_SupportsMethod(t *testing.T) {
	rt := userType()
	r := NewResolver()
	name, _ := rt.Field("Name")
	code, _ := rt.Field("Code")

	assert.True(t, r.SupportsMethod(name, MethodContains))
	assert.True(t, r.SupportsMethod(name, MethodEndsWith))
	assert.False(t, r.SupportsMethod(code, MethodStartsWith))
	assert.False(t, r.SupportsMethod(name, StringMethod("trim")))
}

func TestLoadCUE(t *testing.T) {
	types, err := LoadCUE(filepath.Join("testdata", "users"))
	require.NoError(t, err)
	require.Len(t, types, 2)

	user := types[0]
	assert.Equal(t, "User", user.Name)
	assert.Equal(t, []string{"Id", "Name", "Gender", "Code", "CreatedAt", "UpdateAt", "Price", "Active", "Status"}, user.FieldNames())

	name, _ := user.Field("Name")
	assert.True(t, name.Nullable, "strings default to nullable")
	assert.True(t, name.Required)

	id, _ := user.Field("Id")
	assert.False(t, id.Nullable)

	status, _ := user.Field("Status")
	assert.Equal(t, []string{"Pending", "Active", "Closed"}, status.EnumValues)

	reg := NewRegistry()
	stored, err := RegisterAll(reg, types)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestLoadCUE_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"missing type", `package test
record: A: fields: Id: {}`, "type is required"},
		{"unknown type", `package test
record: A: fields: Id: {type: "float"}`, "unknown field type"},
		{"no records", `package test
other: 1`, "no record types declared"},
		{"no fields", `package test
record: A: {abstract: true}`, "fields are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.cue"), []byte(tt.src), 0644))

			_, err := LoadCUE(dir)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadCUE_MissingDirectory(t *testing.T) {
	_, err := LoadCUE(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)

	_, err = LoadCUE(t.TempDir())
	assert.ErrorContains(t, err, "no CUE files")
}

func TestCompileCUE_Abstract(t *testing.T) {
	types, err := CompileCUE(`record: Shape: {
	abstract: true
	fields: Id: type: "int"
}`, "shape.cue")
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.True(t, types[0].Abstract)
}

func TestCompileCUE_SyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileCUE("record: {", "broken.cue")
	require.Error(t, err)

	var se *SchemaError
	if assert.ErrorAs(t, err, &se) {
		assert.True(t, se.Pos.IsValid())
		assert.Contains(t, se.Error(), "broken.cue")
	}
}

func TestRecordValidator(t *testing.T) {
	reg := NewRegistry()
	user := reg.MustRegister(userType())
	v, err := NewRecordValidator(user)
	require.NoError(t, err)

	valid := ir.IRObject{
		"Id":        ir.IRInt(1),
		"Name":      ir.IRString("Ann"),
		"Gender":    ir.IRNull{},
		"CreatedAt": ir.NewIRTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		"Price":     ir.MustDecimal("9.99"),
		"Active":    ir.IRBool(true),
		"Status":    ir.IREnum{Ordinal: 1},
	}
	assert.NoError(t, v.Validate(valid))

	tests := []struct {
		name   string
		mutate func(ir.IRObject)
	}{
		{"required string null", func(r ir.IRObject) { r["Name"] = ir.IRNull{} }},
		{"non-nullable missing", func(r ir.IRObject) { delete(r, "Id") }},
		{"wrong type", func(r ir.IRObject) { r["Active"] = ir.IRString("yes") }},
		{"enum out of range", func(r ir.IRObject) { r["Status"] = ir.IREnum{Ordinal: 5} }},
		{"unknown field", func(r ir.IRObject) { r["Extra"] = ir.IRInt(1) }},
		{"fractional int", func(r ir.IRObject) { r["Code"] = ir.MustDecimal("1.5") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := make(ir.IRObject, len(valid))
			for k, val := range valid {
				rec[k] = val
			}
			tt.mutate(rec)

			err := v.Validate(rec)
			require.Error(t, err)
			assert.True(t, IsRecordValidationError(err), fmt.Sprintf("%T", err))
		})
	}
}

func TestJSONSchema_RequiredList(t *testing.T) {
	doc := JSONSchema(&RecordType{Name: "X", Fields: []FieldDescriptor{
		{Name: "Id", Type: TypeInt},
		{Name: "Note", Type: TypeString, Nullable: true},
	}})

	assert.Equal(t, []any{"Id"}, doc["required"])
	props := doc["properties"].(map[string]any)
	assert.Equal(t, []any{"string", "null"}, props["Note"].(map[string]any)["type"])
}
