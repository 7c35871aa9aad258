package builder

import (
	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

// FilterItem is one requested clause.
type FilterItem struct {
	Field    string
	Operator Operator
	Value    ir.IRValue
}

// Combine builds a clause per item and folds the results left to right
// with mode (And when empty). Skipped clauses do not contribute. With no
// contributions the result is nil, the identity filter. The first
// validation error aborts the call.
func (b *Builder) Combine(rt *schema.RecordType, items []FilterItem, mode CombineMode) (queryir.Predicate, error) {
	join := queryir.AndOf
	switch mode {
	case "", CombineAnd:
	case CombineOr:
		join = queryir.OrOf
	default:
		return nil, &UnsupportedOperatorError{Operator: string(mode)}
	}

	var combined queryir.Predicate
	for _, item := range items {
		clause, err := b.Clause(rt, item.Field, item.Operator, item.Value)
		if err != nil {
			return nil, err
		}
		combined = join(combined, clause)
	}
	return combined, nil
}
