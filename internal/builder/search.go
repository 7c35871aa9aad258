package builder

import (
	"strings"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/param"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

// Search matches one term against several string fields.
//
// The term is trimmed and converted into a single parameter shared by every
// field. Each resolved string field contributes
//
//	(field IS NOT NULL) AND match(field, term)
//
// and contributions are joined with OR. Non-nullable fields contribute the
// match alone. Unresolved and non-string fields are
// skipped. A blank term, no fields, or no contributing field yields nil.
// Exactly compares for case-sensitive equality; the other modes are
// case-insensitive.
func (b *Builder) Search(rt *schema.RecordType, term string, mode SearchMode, fields ...string) (queryir.Predicate, error) {
	var method schema.StringMethod
	switch mode {
	case "", SearchContains:
		method = schema.MethodContains
	case SearchStartsWith:
		method = schema.MethodStartsWith
	case SearchEndsWith:
		method = schema.MethodEndsWith
	case SearchExactly:
	default:
		return nil, &UnsupportedOperatorError{Operator: string(mode)}
	}

	term = strings.TrimSpace(term)
	if term == "" || len(fields) == 0 {
		return nil, nil
	}

	var shared *queryir.Parameter
	var combined queryir.Predicate
	for _, name := range fields {
		fd, ok := b.resolver.Resolve(rt, name)
		if !ok || !fd.IsString() {
			continue
		}
		if shared == nil {
			operand, err := param.Make(ir.IRString(term), fd)
			if err != nil {
				return nil, err
			}
			shared = operand.(*queryir.Parameter)
		}

		var match queryir.Predicate
		if mode == SearchExactly {
			match = &queryir.Comparison{Field: fd, Op: queryir.OpEqual, Value: shared}
		} else {
			match = &queryir.StringMatch{Field: fd, Method: method, Value: shared}
		}
		if fd.Nullable {
			match = &queryir.And{Left: &queryir.NullCheck{Field: fd, Negated: true}, Right: match}
		}
		combined = queryir.OrOf(combined, match)
	}
	return combined, nil
}
