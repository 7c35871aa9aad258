package builder

import (
	"github.com/roach88/dynquery/internal/ir"
)

// FilterCollector accumulates filter items fluently before one Build call.
// Values are given as Go natives; a value that cannot be represented is
// reported by Build. A collector is not safe for concurrent use.
type FilterCollector struct {
	items []FilterItem
	err   error
}

// NewFilterCollector creates an empty collector.
func NewFilterCollector() *FilterCollector {
	return &FilterCollector{}
}

// Add appends a clause with an arbitrary operator.
func (c *FilterCollector) Add(field string, op Operator, value any) *FilterCollector {
	v, err := ir.FromGo(value)
	if err != nil {
		if c.err == nil {
			c.err = &valueError{field: field, err: err}
		}
		return c
	}
	c.items = append(c.items, FilterItem{Field: field, Operator: op, Value: v})
	return c
}

// AddEqual adds field = value.
func (c *FilterCollector) AddEqual(field string, value any) *FilterCollector {
	return c.Add(field, OpEqual, value)
}

// AddGreaterThan adds field > value.
func (c *FilterCollector) AddGreaterThan(field string, value any) *FilterCollector {
	return c.Add(field, OpGreaterThan, value)
}

// AddGreaterThanOrEqual adds field >= value.
func (c *FilterCollector) AddGreaterThanOrEqual(field string, value any) *FilterCollector {
	return c.Add(field, OpGreaterThanOrEqual, value)
}

// AddLessThan adds field < value.
func (c *FilterCollector) AddLessThan(field string, value any) *FilterCollector {
	return c.Add(field, OpLessThan, value)
}

// AddLessThanOrEqual adds field <= value.
func (c *FilterCollector) AddLessThanOrEqual(field string, value any) *FilterCollector {
	return c.Add(field, OpLessThanOrEqual, value)
}

// AddContains adds a case-insensitive substring match.
func (c *FilterCollector) AddContains(field, value string) *FilterCollector {
	return c.Add(field, OpContains, value)
}

// AddStartsWith adds a case-insensitive prefix match.
func (c *FilterCollector) AddStartsWith(field, value string) *FilterCollector {
	return c.Add(field, OpStartsWith, value)
}

// AddEndsWith adds a case-insensitive suffix match.
func (c *FilterCollector) AddEndsWith(field, value string) *FilterCollector {
	return c.Add(field, OpEndsWith, value)
}

// AddIsNull adds a test that field is null.
func (c *FilterCollector) AddIsNull(field string) *FilterCollector {
	return c.Add(field, OpIsNull, nil)
}

// AddIsNotNull adds a test that field is not null.
func (c *FilterCollector) AddIsNotNull(field string) *FilterCollector {
	return c.Add(field, OpIsNotNull, nil)
}

// Clear drops every accumulated item and any pending error.
func (c *FilterCollector) Clear() *FilterCollector {
	c.items = nil
	c.err = nil
	return c
}

// Len reports how many items are accumulated.
func (c *FilterCollector) Len() int { return len(c.items) }

// Build returns a copy of the accumulated items.
func (c *FilterCollector) Build() ([]FilterItem, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([]FilterItem, len(c.items))
	copy(out, c.items)
	return out, nil
}

type valueError struct {
	field string
	err   error
}

func (e *valueError) Error() string {
	return "value for field " + e.field + ": " + e.err.Error()
}

func (e *valueError) Unwrap() error { return e.err }

// OrderCollector accumulates sort keys fluently before one Build call.
type OrderCollector struct {
	items []OrderItem
}

// NewOrderCollector creates an empty collector.
func NewOrderCollector() *OrderCollector {
	return &OrderCollector{}
}

// Add appends an ascending key.
func (c *OrderCollector) Add(field string) *OrderCollector {
	c.items = append(c.items, OrderItem{Field: field})
	return c
}

// AddDescending appends a descending key.
func (c *OrderCollector) AddDescending(field string) *OrderCollector {
	c.items = append(c.items, OrderItem{Field: field, Descending: true})
	return c
}

// Clear drops every accumulated key.
func (c *OrderCollector) Clear() *OrderCollector {
	c.items = nil
	return c
}

// Build returns a copy of the accumulated keys.
func (c *OrderCollector) Build() []OrderItem {
	out := make([]OrderItem, len(c.items))
	copy(out, c.items)
	return out
}
