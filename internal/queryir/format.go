package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/dynquery/internal/ir"
)

// Format renders p for diagnostics. Parameters print as @pN, numbered by
// first appearance; use FormatParameters for their values.
func Format(p Predicate) string {
	f := &formatter{slots: make(map[*Parameter]int)}
	return f.predicate(p)
}

// FormatParameters renders the values of p's parameters as @pN=value pairs.
func FormatParameters(p Predicate) string {
	params := Parameters(p)
	parts := make([]string, len(params))
	for i, param := range params {
		parts[i] = fmt.Sprintf("@p%d=%s", i, ir.Format(param.Value()))
	}
	return strings.Join(parts, ", ")
}

// String renders the whole query in a SQL-like diagnostic form.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString("FROM ")
	if q.Record != nil {
		b.WriteString(q.Record.Name)
	} else {
		b.WriteString("<none>")
	}
	if q.Filter != nil {
		b.WriteString(" WHERE ")
		b.WriteString(Format(q.Filter))
	}
	if !q.Order.IsIdentity() {
		keys := make([]string, len(q.Order.Keys))
		for i, k := range q.Order.Keys {
			keys[i] = k.Field.Name
			if k.Descending {
				keys[i] += " DESC"
			}
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(keys, ", "))
	}
	if q.Projection != nil {
		cols := make([]string, len(q.Projection.Bindings))
		for i, bnd := range q.Projection.Bindings {
			cols[i] = bnd.Source.Name
			if bnd.Target.Name != bnd.Source.Name {
				cols[i] += " AS " + bnd.Target.Name
			}
		}
		fmt.Fprintf(&b, " SELECT %s INTO %s", strings.Join(cols, ", "), q.ResultType().Name)
	}
	return b.String()
}

type formatter struct {
	slots map[*Parameter]int
}

func (f *formatter) predicate(p Predicate) string {
	switch n := p.(type) {
	case nil:
		return "TRUE"
	case *And:
		return "(" + f.predicate(n.Left) + " AND " + f.predicate(n.Right) + ")"
	case *Or:
		return "(" + f.predicate(n.Left) + " OR " + f.predicate(n.Right) + ")"
	case *Comparison:
		if _, ok := n.Value.(NullLiteral); ok {
			return n.Field.Name + " IS NULL"
		}
		return fmt.Sprintf("%s %s %s", n.Field.Name, n.Op, f.operand(n.Value))
	case *StringMatch:
		return fmt.Sprintf("%s %s %s", n.Field.Name, strings.ToUpper(string(n.Method)), f.operand(n.Value))
	case *NullCheck:
		if n.Negated {
			return n.Field.Name + " IS NOT NULL"
		}
		return n.Field.Name + " IS NULL"
	default:
		return fmt.Sprintf("<%T>", p)
	}
}

func (f *formatter) operand(o Operand) string {
	switch op := o.(type) {
	case *Parameter:
		slot, ok := f.slots[op]
		if !ok {
			slot = len(f.slots)
			f.slots[op] = slot
		}
		return fmt.Sprintf("@p%d", slot)
	case NullLiteral:
		return "NULL"
	default:
		return "?"
	}
}
