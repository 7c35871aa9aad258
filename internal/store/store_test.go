package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dynquery/internal/builder"
	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/param"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
	"github.com/roach88/dynquery/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seededStore creates a store holding recs in the User table.
func seededStore(t *testing.T, recs []ir.IRObject) (*Store, *testutil.Registry) {
	t.Helper()
	s := createTestStore(t)
	reg := testutil.NewRegistry()
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, reg.User))
	require.NoError(t, s.Insert(ctx, reg.User, recs...))
	return s, reg
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	reg := testutil.NewRegistry()

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.CreateTable(context.Background(), reg.User))
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	types, err := s.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "User", types[0].Name)
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		assert.NoError(t, s.verifyPragma(tt.name, tt.expected))
	}
}

func TestCreateTable_Catalog(t *testing.T) {
	s := createTestStore(t)
	reg := testutil.NewRegistry()
	ctx := context.Background()

	require.NoError(t, s.CreateTable(ctx, reg.User))
	require.NoError(t, s.CreateTable(ctx, reg.UserView))

	types, err := s.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, *reg.User, types[0])
	assert.Equal(t, *reg.UserView, types[1])

	rt, ok, err := s.Lookup(ctx, "UserView")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, reg.UserView.Fields, rt.Fields)

	_, ok, err = s.Lookup(ctx, "Missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateTable_ConflictingDefinition(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTable(ctx, &schema.RecordType{Name: "T", Fields: []schema.FieldDescriptor{
		{Name: "A", Type: schema.TypeInt},
	}}))
	err := s.CreateTable(ctx, &schema.RecordType{Name: "T", Fields: []schema.FieldDescriptor{
		{Name: "A", Type: schema.TypeString},
	}})
	assert.ErrorContains(t, err, "different shape")
}

func TestInsert_Rejects(t *testing.T) {
	s, reg := seededStore(t, nil)
	ctx := context.Background()

	good := testutil.PairUsers()[0]

	missing := ir.IRObject{}
	for k, v := range good {
		if k != "Id" {
			missing[k] = v
		}
	}
	err := s.Insert(ctx, reg.User, missing)
	assert.True(t, schema.IsRecordValidationError(err), "%v", err)

	wrongType := ir.IRObject{}
	for k, v := range good {
		wrongType[k] = v
	}
	wrongType["Active"] = ir.IRString("yes")
	err = s.Insert(ctx, reg.User, wrongType)
	assert.True(t, param.IsTypeConversionError(err), "%v", err)

	// A rejected record rejects the whole batch.
	err = s.Insert(ctx, reg.User, good, missing)
	require.Error(t, err)
	n, err := s.Count(ctx, queryir.NewQuery(reg.User))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsert_CoercesValues(t *testing.T) {
	s, reg := seededStore(t, nil)
	ctx := context.Background()

	rec := testutil.PairUsers()[1]
	rec["Price"] = ir.IRInt(7)
	rec["Status"] = ir.IRString("Closed")
	require.NoError(t, s.Insert(ctx, reg.User, rec))

	got, err := s.Query(ctx, queryir.NewQuery(reg.User))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "7", got[0]["Price"].(ir.IRDecimal).String())
	assert.Equal(t, ir.IREnum{Ordinal: 2, Name: "Closed"}, got[0]["Status"])
}

func TestQuery_RoundTripsEveryType(t *testing.T) {
	users := testutil.Users()
	s, reg := seededStore(t, users)

	got, err := s.Query(context.Background(), queryir.NewQuery(reg.User))
	require.NoError(t, err)
	require.Len(t, got, len(users))
	for i := range users {
		for _, f := range reg.User.Fields {
			assert.True(t, ir.Equal(users[i].Get(f.Name), got[i].Get(f.Name)),
				"user %d field %s: %v vs %v", i+1, f.Name, users[i].Get(f.Name), got[i].Get(f.Name))
		}
	}
}

func TestQuery_PairDataset(t *testing.T) {
	s, reg := seededStore(t, testutil.PairUsers())
	b := builder.New(nil)
	ctx := context.Background()

	q := queryir.NewQuery(reg.User)
	filter, err := b.Clause(reg.User, "Code", builder.OpIsNull, nil)
	require.NoError(t, err)
	q.Filter = filter
	got, err := s.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, testutil.IDs(got))

	q = queryir.NewQuery(reg.User)
	q.Filter, err = b.Search(reg.User, "an", builder.SearchContains, "Name")
	require.NoError(t, err)
	got, err = s.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, testutil.IDs(got))

	q = queryir.NewQuery(reg.User)
	q.Order = b.Order(reg.User, []builder.OrderItem{{Field: "Name", Descending: true}})
	got, err = s.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Ann"}, testutil.Names(got))
}

func TestQuery_Users(t *testing.T) {
	s, reg := seededStore(t, testutil.Users())
	b := builder.New(nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  builder.Request
		want []int64
	}{
		{
			name: "greater or equal",
			req:  builder.Request{Filters: []builder.RequestFilter{{Field: "Code", Operator: builder.OpGreaterThanOrEqual, Value: 200}}},
			want: []int64{2, 5, 6, 9},
		},
		{
			name: "is null",
			req:  builder.Request{Filters: []builder.RequestFilter{{Field: "Code", Operator: builder.OpIsNull}}},
			want: []int64{4, 8},
		},
		{
			name: "is not null",
			req:  builder.Request{Filters: []builder.RequestFilter{{Field: "UpdateAt", Operator: builder.OpIsNotNull}}},
			want: []int64{1, 3, 4, 6, 7, 9, 10},
		},
		{
			name: "contains ignores case",
			req:  builder.Request{Filters: []builder.RequestFilter{{Field: "Name", Operator: builder.OpContains, Value: "AN"}}},
			want: []int64{2, 4, 8, 10},
		},
		{
			name: "starts with",
			req:  builder.Request{Filters: []builder.RequestFilter{{Field: "Name", Operator: builder.OpStartsWith, Value: "j"}}},
			want: []int64{1, 10},
		},
		{
			name: "ends with",
			req:  builder.Request{Filters: []builder.RequestFilter{{Field: "Name", Operator: builder.OpEndsWith, Value: "a"}}},
			want: []int64{1, 3, 4, 5, 6, 8},
		},
		{
			name: "and",
			req: builder.Request{Filters: []builder.RequestFilter{
				{Field: "Gender", Operator: builder.OpEqual, Value: "F"},
				{Field: "Price", Operator: builder.OpGreaterThan, Value: 1},
			}},
			want: []int64{4, 6},
		},
		{
			name: "or",
			req: builder.Request{Combine: builder.CombineOr, Filters: []builder.RequestFilter{
				{Field: "Gender", Operator: builder.OpEqual, Value: "F"},
				{Field: "Code", Operator: builder.OpLessThan, Value: 160},
			}},
			want: []int64{1, 2, 3, 4, 6, 8, 10},
		},
		{
			name: "enum by name",
			req:  builder.Request{Filters: []builder.RequestFilter{{Field: "Status", Operator: builder.OpEqual, Value: "Active"}}},
			want: []int64{1, 4, 7, 10},
		},
		{
			name: "enum ordering",
			req:  builder.Request{Filters: []builder.RequestFilter{{Field: "Status", Operator: builder.OpGreaterThan, Value: "Pending"}}},
			want: []int64{1, 2, 4, 5, 7, 8, 10},
		},
		{
			name: "datetime",
			req:  builder.Request{Filters: []builder.RequestFilter{{Field: "CreatedAt", Operator: builder.OpGreaterThanOrEqual, Value: "2023-06-01"}}},
			want: []int64{6, 7, 8, 9, 10},
		},
		{
			name: "bool",
			req:  builder.Request{Filters: []builder.RequestFilter{{Field: "Active", Operator: builder.OpEqual, Value: false}}},
			want: []int64{2, 4, 7},
		},
		{
			name: "search",
			req:  builder.Request{Search: &builder.RequestSearch{Term: "an", Fields: []string{"Name", "Gender"}}},
			want: []int64{2, 4, 8, 10},
		},
		{
			name: "order nulls first",
			req:  builder.Request{Order: []builder.OrderItem{{Field: "Code"}}},
			want: []int64{4, 8, 1, 3, 7, 10, 2, 9, 6, 5},
		},
		{
			name: "order descending nulls last",
			req:  builder.Request{Order: []builder.OrderItem{{Field: "Code", Descending: true}}},
			want: []int64{5, 6, 9, 2, 10, 7, 3, 1, 4, 8},
		},
		{
			name: "order by two keys, ties in insertion order",
			req:  builder.Request{Order: builder.ParseOrder("Gender, -Price")},
			want: []int64{6, 4, 2, 8, 10, 7, 3, 1, 5, 9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Record = "User"
			q, err := b.Build(reg.Registry, tt.req)
			require.NoError(t, err)

			got, err := s.Query(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, testutil.IDs(got))

			n, err := s.Count(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), n)
		})
	}
}

func TestQuery_Projection(t *testing.T) {
	s, reg := seededStore(t, testutil.Users())
	b := builder.New(nil)

	q, err := b.Build(reg.Registry, builder.Request{
		Record: "User",
		Filters: []builder.RequestFilter{
			{Field: "Code", Operator: builder.OpIsNull},
		},
		Fields: []string{"name", "id", "Price"},
		Result: "UserView",
	})
	require.NoError(t, err)

	got, err := s.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []ir.IRObject{
		{"Name": ir.IRString("Ana Costa"), "Id": ir.IRInt(4)},
		{"Name": ir.IRString("Fernanda Rocha"), "Id": ir.IRInt(8)},
	}, got)
}

func TestQuery_EmptyResultIsNotNil(t *testing.T) {
	s, reg := seededStore(t, nil)

	got, err := s.Query(context.Background(), queryir.NewQuery(reg.User))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// Queries that differ only in values reuse one prepared statement.
func TestQuery_PlanCache(t *testing.T) {
	s, reg := seededStore(t, testutil.Users())
	b := builder.New(nil)
	ctx := context.Background()

	run := func(code int) []int64 {
		q, err := b.Build(reg.Registry, builder.Request{
			Record:  "User",
			Filters: []builder.RequestFilter{{Field: "Code", Operator: builder.OpGreaterThanOrEqual, Value: code}},
		})
		require.NoError(t, err)
		got, err := s.Query(ctx, q)
		require.NoError(t, err)
		return testutil.IDs(got)
	}

	assert.Equal(t, []int64{2, 5, 6, 9}, run(200))
	assert.Equal(t, []int64{5, 6}, run(250))
	assert.Equal(t, []int64{1, 2, 3, 5, 6, 7, 9, 10}, run(100))

	assert.Equal(t, CacheStats{Hits: 2, Misses: 1, Size: 1}, s.CacheStats())
}

func TestExplain(t *testing.T) {
	s, reg := seededStore(t, nil)
	b := builder.New(nil)

	q := queryir.NewQuery(reg.User)
	var err error
	q.Filter, err = b.Clause(reg.User, "Name", builder.OpStartsWith, ir.IRString("Jo"))
	require.NoError(t, err)

	sqlText, args, err := s.Explain(q)
	require.NoError(t, err)
	assert.Contains(t, sqlText, `WHERE "Name" LIKE ?1 ESCAPE '\'`)
	assert.Equal(t, []any{"Jo%"}, args)
	assert.Zero(t, s.CacheStats().Misses, "explain does not prepare")
}

func TestMarshalDefinition_Stable(t *testing.T) {
	reg := testutil.NewRegistry()

	a, err := marshalDefinition(reg.User)
	require.NoError(t, err)
	b, err := marshalDefinition(reg.User)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, definitionHash(a), definitionHash(b))

	rt, err := unmarshalDefinition(a)
	require.NoError(t, err)
	assert.Equal(t, *reg.User, rt)
}
