package builder

import (
	"fmt"
	"strings"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/param"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

// Request is the declarative form of a query, as read from YAML or JSON.
//
//	record: User
//	filters:
//	  - {field: Code, op: isnull}
//	  - {field: CreatedAt, op: ">=", value: "2024-01-01"}
//	combine: and
//	search: {term: an, mode: contains, fields: [Name, Gender]}
//	order: [{field: Name, desc: true}]
//	fields: [Id, Name]
//	result: UserView
type Request struct {
	Record  string          `yaml:"record" json:"record"`
	Filters []RequestFilter `yaml:"filters,omitempty" json:"filters,omitempty"`
	Combine CombineMode     `yaml:"combine,omitempty" json:"combine,omitempty"`
	Search  *RequestSearch  `yaml:"search,omitempty" json:"search,omitempty"`
	Order   []OrderItem     `yaml:"order,omitempty" json:"order,omitempty"`
	Fields  []string        `yaml:"fields,omitempty" json:"fields,omitempty"`
	// Result names the projection's result shape; empty means Record.
	Result string `yaml:"result,omitempty" json:"result,omitempty"`
}

// RequestFilter is a filter clause with a loosely typed value. Strings are
// parsed according to the target field's type.
type RequestFilter struct {
	Field    string   `yaml:"field" json:"field"`
	Operator Operator `yaml:"op" json:"op"`
	Value    any      `yaml:"value,omitempty" json:"value,omitempty"`
}

// RequestSearch is a multi-field search.
type RequestSearch struct {
	Term   string     `yaml:"term" json:"term"`
	Mode   SearchMode `yaml:"mode,omitempty" json:"mode,omitempty"`
	Fields []string   `yaml:"fields" json:"fields"`
}

// Build resolves a Request against reg into a Query. The filter clauses
// are combined with req.Combine, and the search, when present, is joined to
// them with AND.
func (b *Builder) Build(reg *schema.Registry, req Request) (queryir.Query, error) {
	rt, ok := reg.Lookup(req.Record)
	if !ok {
		return queryir.Query{}, &UnknownRecordError{Name: req.Record}
	}

	items, err := b.filterItems(rt, req.Filters)
	if err != nil {
		return queryir.Query{}, err
	}
	filter, err := b.Combine(rt, items, req.Combine)
	if err != nil {
		return queryir.Query{}, fmt.Errorf("filters: %w", err)
	}

	if req.Search != nil {
		search, err := b.Search(rt, req.Search.Term, req.Search.Mode, req.Search.Fields...)
		if err != nil {
			return queryir.Query{}, fmt.Errorf("search: %w", err)
		}
		filter = queryir.AndOf(filter, search)
	}

	q := queryir.NewQuery(rt)
	q.Filter = filter
	q.Order = b.Order(rt, req.Order)

	target := rt
	if strings.TrimSpace(req.Result) != "" {
		if target, ok = reg.Lookup(req.Result); !ok {
			return queryir.Query{}, &UnknownRecordError{Name: req.Result}
		}
	}
	if q.Projection, err = b.Projection(rt, target, req.Fields); err != nil {
		return queryir.Query{}, fmt.Errorf("projection: %w", err)
	}
	return q, nil
}

// filterItems converts loosely typed request values. Fields that do not
// resolve keep their raw value; Clause skips them anyway.
func (b *Builder) filterItems(rt *schema.RecordType, filters []RequestFilter) ([]FilterItem, error) {
	items := make([]FilterItem, 0, len(filters))
	for _, f := range filters {
		var value ir.IRValue = ir.IRNull{}
		if f.Operator != OpIsNull && f.Operator != OpIsNotNull && f.Value != nil {
			fd, ok := b.resolver.Resolve(rt, f.Field)
			if ok {
				var err error
				if value, err = param.Value(f.Value, fd); err != nil {
					return nil, fmt.Errorf("filters: %w", err)
				}
			}
		}
		items = append(items, FilterItem{Field: f.Field, Operator: f.Operator, Value: value})
	}
	return items, nil
}
