package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

// Evaluator is the built-in FilterCompiler. It walks the predicate tree
// for every record.
type Evaluator struct{}

// CompileFilter returns a Filter evaluating p.
func (Evaluator) CompileFilter(p queryir.Predicate) (Filter, error) {
	return func(rec ir.IRObject) (bool, error) {
		return eval(p, rec)
	}, nil
}

// eval reports whether rec satisfies p. A nil predicate accepts every
// record.
func eval(p queryir.Predicate, rec ir.IRObject) (bool, error) {
	switch n := p.(type) {
	case nil:
		return true, nil
	case *queryir.And:
		ok, err := eval(n.Left, rec)
		if err != nil || !ok {
			return false, err
		}
		return eval(n.Right, rec)
	case *queryir.Or:
		ok, err := eval(n.Left, rec)
		if err != nil || ok {
			return ok, err
		}
		return eval(n.Right, rec)
	case *queryir.NullCheck:
		return ir.IsNull(rec.Get(n.Field.Name)) != n.Negated, nil
	case *queryir.Comparison:
		return compare(n, rec.Get(n.Field.Name))
	case *queryir.StringMatch:
		return match(n, rec.Get(n.Field.Name))
	default:
		return false, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compare(n *queryir.Comparison, v ir.IRValue) (bool, error) {
	switch operand := n.Value.(type) {
	case queryir.NullLiteral:
		return ir.IsNull(v), nil
	case *queryir.Parameter:
		if ir.IsNull(v) {
			return false, nil
		}
		c, err := ir.Compare(v, operand.Value())
		if err != nil {
			return false, fmt.Errorf("field %s: %w", n.Field.Name, err)
		}
		switch n.Op {
		case queryir.OpEqual:
			return c == 0, nil
		case queryir.OpGreater:
			return c > 0, nil
		case queryir.OpGreaterOrEqual:
			return c >= 0, nil
		case queryir.OpLess:
			return c < 0, nil
		case queryir.OpLessOrEqual:
			return c <= 0, nil
		}
		return false, fmt.Errorf("unsupported comparison operator %q", n.Op)
	default:
		return false, fmt.Errorf("unsupported operand type: %T", n.Value)
	}
}

// match applies a case-insensitive string method.
func match(n *queryir.StringMatch, v ir.IRValue) (bool, error) {
	if ir.IsNull(v) {
		return false, nil
	}
	s, ok := v.(ir.IRString)
	if !ok {
		return false, fmt.Errorf("field %s: %s value is not a string", n.Field.Name, v.Kind())
	}
	term, ok := n.Value.Value().(ir.IRString)
	if !ok {
		return false, fmt.Errorf("field %s: match term is not a string", n.Field.Name)
	}
	haystack, needle := schema.Fold(string(s)), schema.Fold(string(term))
	switch n.Method {
	case schema.MethodContains:
		return strings.Contains(haystack, needle), nil
	case schema.MethodStartsWith:
		return strings.HasPrefix(haystack, needle), nil
	case schema.MethodEndsWith:
		return strings.HasSuffix(haystack, needle), nil
	}
	return false, fmt.Errorf("unsupported string method %q", n.Method)
}
