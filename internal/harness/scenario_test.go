package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dynquery/internal/builder"
)

func TestLoadScenario_Pair(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "pair.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "pair", s.Name)
	require.Len(t, s.Records["User"], 2)
	assert.Nil(t, s.Records["User"][0]["Code"])
	require.Len(t, s.Queries, 3)
	assert.Equal(t, builder.OpIsNull, s.Queries[0].Request.Filters[0].Operator)
	require.NotNil(t, s.Queries[0].Expect.Count)
	assert.Equal(t, int64(1), *s.Queries[0].Expect.Count)
	assert.True(t, s.Queries[2].Request.Order[0].Descending)
}

func TestLoadScenario_ResolvesSchemaDir(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "users.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "..", "..", "..", "schema", "testdata", "users"), s.SchemaDir)
	assert.Equal(t, builder.CombineOr, s.Queries[6].Request.Combine)
	assert.Len(t, s.Assertions, 2)
}

func TestLoadScenario_MissingSchemaDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: s
description: d
schema_dir: nowhere
queries: [{name: q, request: {record: X}}]
`), 0o644))

	_, err := LoadScenario(path)
	assert.ErrorContains(t, err, "schema directory not found")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	const schema = "schema: 'record: X: fields: Id: {type: \"int\"}'\n"
	const query = "queries: [{name: q, request: {record: X}}]\n"

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "description: d\n" + schema + query, "name is required"},
		{"missing description", "name: n\n" + schema + query, "description is required"},
		{"no schema", "name: n\ndescription: d\n" + query, "one of schema or schema_dir is required"},
		{"both schemas", "name: n\ndescription: d\nschema_dir: x\n" + schema + query, "mutually exclusive"},
		{"no queries", "name: n\ndescription: d\n" + schema, "queries list is required"},
		{"unnamed query", "name: n\ndescription: d\n" + schema + "queries: [{request: {record: X}}]\n", "queries[0]: name is required"},
		{"duplicate query", "name: n\ndescription: d\n" + schema + "queries: [{name: q, request: {record: X}}, {name: q, request: {record: X}}]\n", `duplicate name "q"`},
		{"no record", "name: n\ndescription: d\n" + schema + "queries: [{name: q, request: {}}]\n", "request.record is required"},
		{"unknown key", "name: n\ndescription: d\nquery: []\n" + schema + query, "field query not found"},
		{"bad operator", "name: n\ndescription: d\n" + schema + "queries: [{name: q, request: {record: X, filters: [{field: Id, op: between}]}}]\n", `unsupported operator "between"`},
		{"assertion type", "name: n\ndescription: d\n" + schema + query + "assertions: [{type: same, queries: [q, q]}]\n", `unknown assertion type "same"`},
		{"assertion arity", "name: n\ndescription: d\n" + schema + query + "assertions: [{type: same_shape, queries: [q]}]\n", "needs at least two queries"},
		{"assertion query", "name: n\ndescription: d\n" + schema + query + "assertions: [{type: same_shape, queries: [q, r]}]\n", `unknown query "r"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
