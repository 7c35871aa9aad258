package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dynquery/internal/builder"
	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
	"github.com/roach88/dynquery/internal/testutil"
)

func seeded(t *testing.T, recs []ir.IRObject) (*Memory, *testutil.Registry) {
	t.Helper()
	m := New()
	reg := testutil.NewRegistry()
	ctx := context.Background()
	require.NoError(t, m.CreateTable(ctx, reg.User))
	require.NoError(t, m.Insert(ctx, reg.User, recs...))
	return m, reg
}

func build(t *testing.T, reg *testutil.Registry, req builder.Request) queryir.Query {
	t.Helper()
	req.Record = "User"
	q, err := builder.New(nil).Build(reg.Registry, req)
	require.NoError(t, err)
	return q
}

func TestPairDataset(t *testing.T) {
	m, reg := seeded(t, testutil.PairUsers())
	ctx := context.Background()

	got, err := m.Query(ctx, build(t, reg, builder.Request{
		Filters: []builder.RequestFilter{{Field: "Code", Operator: builder.OpIsNull}},
	}))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, testutil.IDs(got))

	got, err = m.Query(ctx, build(t, reg, builder.Request{
		Search: &builder.RequestSearch{Term: "an", Fields: []string{"Name"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, testutil.IDs(got))

	got, err = m.Query(ctx, build(t, reg, builder.Request{
		Order: []builder.OrderItem{{Field: "Name", Descending: true}},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Ann"}, testutil.Names(got))
}

func TestQuery_Users(t *testing.T) {
	m, reg := seeded(t, testutil.Users())
	ctx := context.Background()

	tests := []struct {
		name string
		req  builder.Request
		want []int64
	}{
		{"identity", builder.Request{}, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{"comparison skips nulls", builder.Request{Filters: []builder.RequestFilter{{Field: "Code", Operator: builder.OpLessThan, Value: 160}}}, []int64{1, 3}},
		{"equal null", builder.Request{Filters: []builder.RequestFilter{{Field: "UpdateAt", Operator: builder.OpEqual, Value: "null"}}}, []int64{2, 5, 8}},
		{"contains ignores case", builder.Request{Filters: []builder.RequestFilter{{Field: "Name", Operator: builder.OpContains, Value: "AN"}}}, []int64{2, 4, 8, 10}},
		{"equal is case-sensitive", builder.Request{Filters: []builder.RequestFilter{{Field: "Gender", Operator: builder.OpEqual, Value: "f"}}}, nil},
		{"exact search", builder.Request{Search: &builder.RequestSearch{Term: "Ana Costa", Mode: builder.SearchExactly, Fields: []string{"Name"}}}, []int64{4}},
		{"decimal", builder.Request{Filters: []builder.RequestFilter{{Field: "Price", Operator: builder.OpGreaterThanOrEqual, Value: "2.0"}}}, []int64{3, 4, 6, 7}},
		{"order nulls first", builder.Request{Order: []builder.OrderItem{{Field: "Code"}}}, []int64{4, 8, 1, 3, 7, 10, 2, 9, 6, 5}},
		{"order descending nulls last", builder.Request{Order: []builder.OrderItem{{Field: "Code", Descending: true}}}, []int64{5, 6, 9, 2, 10, 7, 3, 1, 4, 8}},
		{"stable ties", builder.Request{Order: builder.ParseOrder("Gender, -Price")}, []int64{6, 4, 2, 8, 10, 7, 3, 1, 5, 9}},
		{"enum order", builder.Request{Order: builder.ParseOrder("-Status, Id")}, []int64{2, 5, 8, 1, 4, 7, 10, 3, 6, 9}},
		{"bool order", builder.Request{Order: builder.ParseOrder("Active")}, []int64{2, 4, 7, 1, 3, 5, 6, 8, 9, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := build(t, reg, tt.req)
			got, err := m.Query(ctx, q)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, testutil.IDs(got))
			}

			n, err := m.Count(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), n)
		})
	}
}

func TestQuery_UnicodeCaseFolding(t *testing.T) {
	m := New()
	reg := testutil.NewRegistry()
	ctx := context.Background()
	require.NoError(t, m.CreateTable(ctx, reg.UserView))
	require.NoError(t, m.Insert(ctx, reg.UserView,
		ir.IRObject{"Id": ir.IRInt(1), "Name": ir.IRString("STRASSE")},
		ir.IRObject{"Id": ir.IRInt(2), "Name": ir.IRString("École")},
		ir.IRObject{"Id": ir.IRInt(3)},
	))

	b := builder.New(nil)
	for term, want := range map[string][]int64{
		"straße": {1},
		"éCOLE":  {2},
	} {
		q := queryir.NewQuery(reg.UserView)
		var err error
		q.Filter, err = b.Clause(reg.UserView, "Name", builder.OpContains, ir.IRString(term))
		require.NoError(t, err)
		got, err := m.Query(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, want, testutil.IDs(got), term)
	}
}

func TestQuery_Projection(t *testing.T) {
	m, reg := seeded(t, testutil.Users())

	got, err := m.Query(context.Background(), build(t, reg, builder.Request{
		Filters: []builder.RequestFilter{{Field: "Code", Operator: builder.OpIsNull}},
		Fields:  []string{"name", "id", "Price"},
		Result:  "UserView",
	}))
	require.NoError(t, err)
	assert.Equal(t, []ir.IRObject{
		{"Name": ir.IRString("Ana Costa"), "Id": ir.IRInt(4)},
		{"Name": ir.IRString("Fernanda Rocha"), "Id": ir.IRInt(8)},
	}, got)
}

func TestInsert_Validation(t *testing.T) {
	m, reg := seeded(t, nil)
	ctx := context.Background()

	err := m.Insert(ctx, reg.User, ir.IRObject{"Id": ir.IRInt(1)})
	assert.True(t, schema.IsRecordValidationError(err), "%v", err)
	assert.Zero(t, m.Len(reg.User))

	// Absent nullable fields read as null.
	require.NoError(t, m.CreateTable(ctx, reg.UserView))
	require.NoError(t, m.Insert(ctx, reg.UserView, ir.IRObject{"Id": ir.IRInt(1)}))
	got, err := m.Query(ctx, queryir.NewQuery(reg.UserView))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ir.IRNull{}, got[0]["Name"])
	assert.Equal(t, ir.IRNull{}, got[0]["Gender"])
}

func TestErrors(t *testing.T) {
	m, reg := seeded(t, testutil.Users())
	ctx := context.Background()

	_, err := m.Query(ctx, queryir.NewQuery(reg.UserView))
	assert.True(t, IsUnknownRecordError(err))

	err = m.Insert(ctx, reg.UserView, ir.IRObject{"Id": ir.IRInt(1)})
	assert.True(t, IsUnknownRecordError(err))

	_, err = m.Count(ctx, queryir.Query{})
	assert.True(t, IsInvalidQueryError(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.Query(cancelled, queryir.NewQuery(reg.User))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	m, reg := seeded(t, nil)
	ctx := context.Background()
	users := testutil.GeneratedUsers(200)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, u := range users {
			assert.NoError(t, m.Insert(ctx, reg.User, u))
		}
	}()
	go func() {
		defer wg.Done()
		q := queryir.NewQuery(reg.User)
		for range 50 {
			_, err := m.Count(ctx, q)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	n, err := m.Count(ctx, queryir.NewQuery(reg.User))
	require.NoError(t, err)
	assert.Equal(t, int64(200), n)
}
