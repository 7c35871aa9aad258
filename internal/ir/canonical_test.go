package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", IRString("hello"), `"hello"`},
		{"int", IRInt(42), "42"},
		{"min int64", IRInt(-9223372036854775808), "-9223372036854775808"},
		{"bool", IRBool(false), "false"},
		{"null", IRNull{}, "null"},
		{"decimal as string", MustDecimal("12.50"), `"12.50"`},
		{"datetime utc", NewIRTime(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), `"2024-01-02T00:00:00Z"`},
		{"enum as ordinal", IREnum{Ordinal: 2, Name: "Closed"}, "2"},
		{"array", IRArray{IRInt(1), IRString("a")}, `[1,"a"]`},
		{"go map", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := IRObject{
		"z": IRObject{"b": IRInt(1), "a": IRInt(2)},
		"a": IRInt(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as a surrogate pair starting at 0xD800, which sorts
	// before U+E000 in UTF-16 but after it in UTF-8.
	obj := IRObject{
		"\uE000":     IRInt(1),
		"\U00010000": IRInt(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

func TestMarshalCanonicalStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no html escape", "<a & b>", `"<a & b>"`},
		{"nfc normalized", "e\u0301", "\"\u00e9\""},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"paragraph separator literal", "\u2029", "\"\u2029\""},
		{"escaped backslash kept", `a\u2028`, `"a\\u2028"`},
		{"control escaped", "a\nb", `"a\nb"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.ErrorContains(t, err, "floats are forbidden")

	_, err = MarshalCanonical(map[string]any{"price": 2.5})
	assert.ErrorContains(t, err, `object["price"]: floats are forbidden`)

	_, err = MarshalCanonical([]any{IRInt(1), map[string]any{"ratio": float32(0.5)}})
	assert.ErrorContains(t, err, "array[1]")

	got, err := MarshalCanonical(map[string]any{"price": MustDecimal("2.5"), "tags": []any{"a", 1}})
	require.NoError(t, err)
	assert.Equal(t, `{"price":"2.5","tags":["a",1]}`, string(got))
}

func TestMarshalCanonicalDeterministic(t *testing.T) {
	obj := IRObject{"b": IRInt(1), "a": IRArray{IRString("x")}, "c": MustDecimal("0.1")}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for range 20 {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
