package queryir

import (
	"fmt"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/schema"
)

// ValidationResult lists structural problems found in a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool
	// Problems describes each violation, in traversal order.
	Problems []string
}

// Validate checks a query against the rules every execution layer relies on:
//  1. a record type is present
//  2. And/Or nodes have two children; leaves carry operands
//  3. every field belongs to the record type
//  4. operand types match field types, and parameter values match operand types
//  5. string matches target string fields; null checks target nullable,
//     non-required fields; NullLiteral appears only with Equal
//  6. projection bindings are assignable and the target is not abstract
//
// Builders only emit valid queries. Validate guards hand-assembled IR.
// It is a pure function.
func Validate(q Query) ValidationResult {
	v := &validator{problems: []string{}, record: q.Record}
	if q.Record == nil {
		v.add("query has no record type")
	}
	v.validatePredicate(q.Filter)
	for i, key := range q.Order.Keys {
		v.checkField(fmt.Sprintf("order[%d]", i), key.Field)
	}
	if q.Projection != nil {
		v.validateProjection(q.Projection)
	}
	return ValidationResult{Valid: len(v.problems) == 0, Problems: v.problems}
}

type validator struct {
	problems []string
	record   *schema.RecordType
}

func (v *validator) add(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) checkField(where string, fd schema.FieldDescriptor) {
	if v.record == nil {
		return
	}
	if _, ok := v.record.Field(fd.Name); !ok {
		v.add("%s: field %q is not declared on %s", where, fd.Name, v.record.Name)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch n := p.(type) {
	case nil:
		// Identity at the root; children are checked by their parents.
	case *And:
		v.validateBranch("AND", n.Left, n.Right)
	case *Or:
		v.validateBranch("OR", n.Left, n.Right)
	case *Comparison:
		v.checkField("comparison", n.Field)
		if !n.Op.Valid() {
			v.add("comparison on %s: unknown operator %q", n.Field.Name, n.Op)
		}
		switch operand := n.Value.(type) {
		case nil:
			v.add("comparison on %s: missing operand", n.Field.Name)
		case NullLiteral:
			if n.Op != OpEqual {
				v.add("comparison on %s: null literal requires =, got %s", n.Field.Name, n.Op)
			}
			if !n.Field.Nullable {
				v.add("comparison on %s: field is not nullable", n.Field.Name)
			}
		case *Parameter:
			v.checkParameter(n.Field, operand)
		}
	case *StringMatch:
		v.checkField("string match", n.Field)
		if !n.Field.IsString() {
			v.add("string match on %s: field type is %s", n.Field.Name, n.Field.Type)
		}
		if n.Value == nil {
			v.add("string match on %s: missing operand", n.Field.Name)
		} else {
			v.checkParameter(n.Field, n.Value)
		}
	case *NullCheck:
		v.checkField("null check", n.Field)
		// Required fields still carry null guards, such as the ones a
		// search adds; only the IsNull operators refuse them.
		if !n.Field.Nullable {
			v.add("null check on %s: field is not nullable", n.Field.Name)
		}
	default:
		v.add("unknown predicate type %T", p)
	}
}

func (v *validator) validateBranch(op string, left, right Predicate) {
	if left == nil || right == nil {
		v.add("%s node with missing operand", op)
	}
	if left != nil {
		v.validatePredicate(left)
	}
	if right != nil {
		v.validatePredicate(right)
	}
}

func (v *validator) checkParameter(fd schema.FieldDescriptor, p *Parameter) {
	if p.Type() != fd.Type {
		v.add("parameter for %s has type %s, field is %s", fd.Name, p.Type(), fd.Type)
		return
	}
	if p.Value() == nil {
		v.add("parameter for %s holds no value", fd.Name)
		return
	}
	if !valueMatches(fd.Type, p.Value()) {
		v.add("parameter for %s holds %s value, expected %s", fd.Name, p.Value().Kind(), fd.Type)
	}
}

func (v *validator) validateProjection(ps *ProjectionSpec) {
	if ps.Target == nil {
		v.add("projection has no target type")
		return
	}
	if ps.Target.Abstract {
		v.add("projection target %s cannot be instantiated", ps.Target.Name)
	}
	if len(ps.Bindings) == 0 {
		v.add("projection onto %s binds no fields", ps.Target.Name)
	}
	for _, b := range ps.Bindings {
		v.checkField("projection", b.Source)
		if _, ok := ps.Target.Field(b.Target.Name); !ok {
			v.add("projection: %s has no field %q", ps.Target.Name, b.Target.Name)
		}
		if !b.Source.AssignableTo(b.Target) {
			v.add("projection: %s is not assignable to %s.%s", b.Source.Name, ps.Target.Name, b.Target.Name)
		}
	}
}

// valueMatches reports whether v is the IR kind that represents t.
func valueMatches(t schema.FieldType, v ir.IRValue) bool {
	switch t {
	case schema.TypeString:
		_, ok := v.(ir.IRString)
		return ok
	case schema.TypeInt:
		_, ok := v.(ir.IRInt)
		return ok
	case schema.TypeDecimal:
		_, ok := v.(ir.IRDecimal)
		return ok
	case schema.TypeBool:
		_, ok := v.(ir.IRBool)
		return ok
	case schema.TypeDateTime:
		_, ok := v.(ir.IRTime)
		return ok
	case schema.TypeEnum:
		_, ok := v.(ir.IREnum)
		return ok
	}
	return false
}
