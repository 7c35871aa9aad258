package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

// Statement is a compiled, parameterized query.
type Statement struct {
	SQL  string
	Args []any
	// Columns describes the result columns in select order, typed as the
	// result shape's fields.
	Columns []schema.FieldDescriptor
}

// Compiler renders queries as SQL for one dialect.
//
// Values are never interpolated: every parameter becomes a numbered
// placeholder, and a parameter shared by several nodes is bound once.
// Queries differing only in parameter values therefore compile to identical
// SQL text. Every SELECT ends in a deterministic ORDER BY.
type Compiler struct {
	dialect Dialect
}

// NewCompiler creates a Compiler for d.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{dialect: d}
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() Dialect { return c.dialect }

// Compile renders q as a SELECT.
func (c *Compiler) Compile(q queryir.Query) (*Statement, error) {
	w, err := c.where(q)
	if err != nil {
		return nil, err
	}

	outputs := q.OutputFields()
	cols := make([]string, len(outputs))
	columns := make([]schema.FieldDescriptor, len(outputs))
	for i, b := range outputs {
		cols[i] = quote(b.Source.Name)
		if b.Target.Name != b.Source.Name {
			cols[i] += " AS " + quote(b.Target.Name)
		}
		columns[i] = b.Target
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(quote(q.Record.Name))
	sb.WriteString(w.clause)
	sb.WriteString(" ORDER BY ")
	sb.WriteString(c.orderBy(q.Order))

	return &Statement{SQL: sb.String(), Args: w.args, Columns: columns}, nil
}

// CompileCount renders the number of records q's filter selects.
// Ordering and projection do not affect the count.
func (c *Compiler) CompileCount(q queryir.Query) (*Statement, error) {
	w, err := c.where(q)
	if err != nil {
		return nil, err
	}
	return &Statement{
		SQL:  "SELECT COUNT(*) FROM " + quote(q.Record.Name) + w.clause,
		Args: w.args,
	}, nil
}

type whereClause struct {
	clause string
	args   []any
}

func (c *Compiler) where(q queryir.Query) (whereClause, error) {
	if q.Record == nil {
		return whereClause{}, fmt.Errorf("cannot compile query without a record type")
	}
	if res := queryir.Validate(q); !res.Valid {
		return whereClause{}, fmt.Errorf("invalid query: %s", strings.Join(res.Problems, "; "))
	}
	if q.Filter == nil {
		return whereClause{}, nil
	}
	pc := &predicateCompiler{dialect: c.dialect, slots: make(map[slotKey]int)}
	sql, err := pc.predicate(q.Filter)
	if err != nil {
		return whereClause{}, fmt.Errorf("compile filter: %w", err)
	}
	return whereClause{clause: " WHERE " + sql, args: pc.args}, nil
}

// orderBy returns the ORDER BY list. Nulls sort first ascending and last
// descending; string keys use byte order. The insertion sequence breaks
// remaining ties so results are deterministic.
func (c *Compiler) orderBy(o queryir.OrderSpec) string {
	keys := make([]string, 0, len(o.Keys)+1)
	for _, k := range o.Keys {
		key := quote(k.Field.Name)
		if k.Field.IsString() {
			key += c.dialect.collate()
		}
		if k.Descending {
			key += " DESC NULLS LAST"
		} else {
			key += " ASC NULLS FIRST"
		}
		keys = append(keys, key)
	}
	keys = append(keys, quote(seqColumn)+" ASC")
	return strings.Join(keys, ", ")
}

// slotKey identifies one bound argument. A string match binds a pattern
// derived from the parameter, so the method is part of the key.
type slotKey struct {
	param  *queryir.Parameter
	method schema.StringMethod
}

type predicateCompiler struct {
	dialect Dialect
	slots   map[slotKey]int
	args    []any
}

func (pc *predicateCompiler) predicate(p queryir.Predicate) (string, error) {
	switch n := p.(type) {
	case *queryir.And:
		return pc.binary("AND", n.Left, n.Right)
	case *queryir.Or:
		return pc.binary("OR", n.Left, n.Right)
	case *queryir.NullCheck:
		if n.Negated {
			return quote(n.Field.Name) + " IS NOT NULL", nil
		}
		return quote(n.Field.Name) + " IS NULL", nil
	case *queryir.Comparison:
		return pc.comparison(n)
	case *queryir.StringMatch:
		ph, err := pc.bind(n.Value, n.Field, n.Method)
		if err != nil {
			return "", err
		}
		return pc.dialect.match(quote(n.Field.Name), ph), nil
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (pc *predicateCompiler) binary(op string, left, right queryir.Predicate) (string, error) {
	l, err := pc.predicate(left)
	if err != nil {
		return "", err
	}
	r, err := pc.predicate(right)
	if err != nil {
		return "", err
	}
	return "(" + l + " " + op + " " + r + ")", nil
}

func (pc *predicateCompiler) comparison(n *queryir.Comparison) (string, error) {
	column := quote(n.Field.Name)
	switch v := n.Value.(type) {
	case queryir.NullLiteral:
		if n.Op != queryir.OpEqual {
			return "", fmt.Errorf("null literal with operator %s on field %q", n.Op, n.Field.Name)
		}
		return column + " IS NULL", nil
	case *queryir.Parameter:
		ph, err := pc.bind(v, n.Field, "")
		if err != nil {
			return "", err
		}
		if n.Op != queryir.OpEqual && n.Field.IsString() {
			column += pc.dialect.collate()
		}
		return column + " " + string(n.Op) + " " + ph, nil
	default:
		return "", fmt.Errorf("unsupported operand type: %T", n.Value)
	}
}

// bind returns the placeholder for p, appending its argument the first time
// p is seen with method.
func (pc *predicateCompiler) bind(p *queryir.Parameter, fd schema.FieldDescriptor, method schema.StringMethod) (string, error) {
	key := slotKey{param: p, method: method}
	if n, ok := pc.slots[key]; ok {
		return pc.dialect.placeholder(n), nil
	}
	arg, err := EncodeValue(pc.dialect, fd, p.Value())
	if err != nil {
		return "", err
	}
	if method != "" {
		arg = likePattern(method, arg.(string))
	}
	pc.args = append(pc.args, arg)
	n := len(pc.args)
	pc.slots[key] = n
	return pc.dialect.placeholder(n), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps an escaped term in the wildcards of method.
func likePattern(method schema.StringMethod, term string) string {
	term = likeEscaper.Replace(term)
	switch method {
	case schema.MethodStartsWith:
		return term + "%"
	case schema.MethodEndsWith:
		return "%" + term
	default:
		return "%" + term + "%"
	}
}
