package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/queryir"
)

func TestFilterCollector(t *testing.T) {
	c := NewFilterCollector().
		AddEqual("Gender", "F").
		AddGreaterThan("Code", 100).
		AddLessThanOrEqual("Price", 2.5).
		AddContains("Name", "a").
		AddIsNotNull("UpdateAt")

	items, err := c.Build()
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, FilterItem{Field: "Gender", Operator: OpEqual, Value: ir.IRString("F")}, items[0])
	assert.Equal(t, ir.IRInt(100), items[1].Value)
	assert.Equal(t, "2.5", items[2].Value.(ir.IRDecimal).String())
	assert.Equal(t, OpIsNotNull, items[4].Operator)
	assert.Equal(t, ir.IRNull{}, items[4].Value)

	b, reg := newFixture(t)
	p, err := b.Combine(reg.User, items, CombineAnd)
	require.NoError(t, err)
	assert.Equal(t, 5, queryir.Leaves(p))
}

func TestFilterCollector_BuildReturnsCopy(t *testing.T) {
	c := NewFilterCollector().AddIsNull("Code")
	items, err := c.Build()
	require.NoError(t, err)

	c.AddIsNull("UpdateAt")
	assert.Len(t, items, 1)
	assert.Equal(t, 2, c.Len())

	c.Clear()
	items, err = c.Build()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFilterCollector_DeferredValueError(t *testing.T) {
	c := NewFilterCollector().AddEqual("Id", struct{}{}).AddIsNull("Code")

	_, err := c.Build()
	assert.ErrorContains(t, err, "value for field Id")

	c.Clear()
	_, err = c.Build()
	assert.NoError(t, err)
}

func TestOrderCollector(t *testing.T) {
	c := NewOrderCollector().AddDescending("Name").Add("Id")
	assert.Equal(t, []OrderItem{{Field: "Name", Descending: true}, {Field: "Id"}}, c.Build())

	c.Clear()
	assert.Empty(t, c.Build())
}
