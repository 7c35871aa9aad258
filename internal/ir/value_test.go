package ir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = MustDecimal("1.5")
	var _ IRValue = NewIRTime(time.Now())
	var _ IRValue = IREnum{Ordinal: 1}
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"aA": IRInt(4),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}

	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestIRObjectGet_MissingIsNull(t *testing.T) {
	obj := IRObject{"Name": IRString("Ann")}

	assert.Equal(t, IRString("Ann"), obj.Get("Name"))
	assert.True(t, IsNull(obj.Get("Code")))
}

func TestFromGo(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	code := 7
	var missing *int

	tests := []struct {
		name string
		in   any
		want IRValue
	}{
		{"nil", nil, IRNull{}},
		{"string", "Ann", IRString("Ann")},
		{"int", 5, IRInt(5)},
		{"int64", int64(-9), IRInt(-9)},
		{"uint8", uint8(3), IRInt(3)},
		{"bool", true, IRBool(true)},
		{"pointer", &code, IRInt(7)},
		{"nil pointer", missing, IRNull{}},
		{"time normalized to utc", when, NewIRTime(when)},
		{"passthrough", IREnum{Ordinal: 2}, IREnum{Ordinal: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGo_FloatBecomesDecimal(t *testing.T) {
	got, err := FromGo(12.5)
	require.NoError(t, err)

	d, ok := got.(IRDecimal)
	require.True(t, ok, "float must become IRDecimal, got %T", got)
	assert.Equal(t, "12.5", d.String())
}

func TestFromGo_Rejects(t *testing.T) {
	_, err := FromGo(uint64(1 << 63))
	assert.Error(t, err)

	_, err = FromGo(struct{}{})
	assert.Error(t, err)
}

func TestDecimal_Int64(t *testing.T) {
	n, ok := MustDecimal("42.000").Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = MustDecimal("42.5").Int64()
	assert.False(t, ok)

	n, ok = MustDecimal("1E+3").Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(1000), n)
}

func TestDecimal_CopiesInput(t *testing.T) {
	src := apd.New(15, -1)
	d := NewIRDecimal(src)
	src.SetInt64(99)

	assert.Equal(t, "1.5", d.String())
}

func TestParseDecimal_RejectsNonFinite(t *testing.T) {
	_, err := ParseDecimal("NaN")
	assert.Error(t, err)

	_, err = ParseDecimal("abc")
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got.Time())

	got, err = ParseTime("2024-01-02T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), got.Time())

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	early := NewIRTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	late := NewIRTime(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		a, b IRValue
		want int
	}{
		{"strings by byte order", IRString("Ann"), IRString("Bob"), -1},
		{"uppercase before lowercase", IRString("Z"), IRString("a"), -1},
		{"ints", IRInt(5), IRInt(5), 0},
		{"int vs decimal", IRInt(2), MustDecimal("1.5"), 1},
		{"decimal vs int", MustDecimal("1.5"), IRInt(2), -1},
		{"decimal scale ignored", MustDecimal("1.50"), MustDecimal("1.5"), 0},
		{"bools", IRBool(false), IRBool(true), -1},
		{"times", late, early, 1},
		{"enums by ordinal", IREnum{Ordinal: 0, Name: "Zed"}, IREnum{Ordinal: 1, Name: "Amy"}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare_IncompatibleKinds(t *testing.T) {
	_, err := Compare(IRString("1"), IRInt(1))
	assert.ErrorContains(t, err, "cannot compare string with int")

	_, err = Compare(IRNull{}, IRInt(1))
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(IRNull{}, nil))
	assert.False(t, Equal(IRNull{}, IRInt(0)))
	assert.True(t, Equal(IRInt(3), MustDecimal("3.0")))
	assert.False(t, Equal(IRString("a"), IRString("A")))
}

func TestMarshalJSON_Record(t *testing.T) {
	rec := IRObject{
		"Id":        IRInt(1),
		"Name":      IRString("Ann"),
		"Code":      IRNull{},
		"Price":     MustDecimal("12.50"),
		"CreatedAt": NewIRTime(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
		"Status":    IREnum{Ordinal: 1, Name: "Active"},
	}

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"Code":null,"CreatedAt":"2024-01-02T03:04:05Z","Id":1,"Name":"Ann","Price":12.50,"Status":"Active"}`,
		string(b))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, `"Ann"`, Format(IRString("Ann")))
	assert.Equal(t, "null", Format(nil))
	assert.Equal(t, "#3", Format(IREnum{Ordinal: 3}))
	assert.Equal(t, "0.25", Format(MustDecimal("0.25")))
}
