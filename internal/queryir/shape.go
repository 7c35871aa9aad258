package queryir

import (
	"fmt"

	"github.com/roach88/dynquery/internal/ir"
)

// Shape encodes the structure of q with parameter values elided.
// Parameters appear as slot numbers in order of first appearance, so two
// queries share a shape exactly when they would render to the same query
// text. The query ID is not part of the shape.
func Shape(q Query) ir.IRObject {
	slots := make(map[*Parameter]int)
	shape := ir.IRObject{
		"filter": predicateShape(q.Filter, slots),
		"order":  orderShape(q.Order),
	}
	if q.Record != nil {
		shape["record"] = ir.IRString(q.Record.Name)
	}
	if q.Projection != nil {
		bindings := make(ir.IRArray, len(q.Projection.Bindings))
		for i, b := range q.Projection.Bindings {
			bindings[i] = ir.IRArray{ir.IRString(b.Source.Name), ir.IRString(b.Target.Name)}
		}
		target := ""
		if q.Projection.Target != nil {
			target = q.Projection.Target.Name
		}
		shape["projection"] = ir.IRObject{
			"target":   ir.IRString(target),
			"bindings": bindings,
		}
	}
	return shape
}

// ShapeHash is the domain-separated SHA-256 of Shape(q).
func ShapeHash(q Query) (string, error) {
	h, err := ir.Hash(ir.DomainShape, Shape(q))
	if err != nil {
		return "", fmt.Errorf("shape hash: %w", err)
	}
	return h, nil
}

func predicateShape(p Predicate, slots map[*Parameter]int) ir.IRValue {
	switch n := p.(type) {
	case nil:
		return ir.IRNull{}
	case *And:
		return ir.IRObject{
			"and": ir.IRArray{predicateShape(n.Left, slots), predicateShape(n.Right, slots)},
		}
	case *Or:
		return ir.IRObject{
			"or": ir.IRArray{predicateShape(n.Left, slots), predicateShape(n.Right, slots)},
		}
	case *Comparison:
		return ir.IRObject{
			"cmp":     ir.IRString(n.Op),
			"field":   ir.IRString(n.Field.Name),
			"operand": operandShape(n.Value, slots),
		}
	case *StringMatch:
		return ir.IRObject{
			"match":   ir.IRString(n.Method),
			"field":   ir.IRString(n.Field.Name),
			"operand": operandShape(n.Value, slots),
		}
	case *NullCheck:
		return ir.IRObject{
			"null":    ir.IRString(n.Field.Name),
			"negated": ir.IRBool(n.Negated),
		}
	default:
		return ir.IRString(fmt.Sprintf("%T", p))
	}
}

func operandShape(o Operand, slots map[*Parameter]int) ir.IRValue {
	switch op := o.(type) {
	case *Parameter:
		if op == nil {
			return ir.IRNull{}
		}
		slot, ok := slots[op]
		if !ok {
			slot = len(slots)
			slots[op] = slot
		}
		return ir.IRObject{"param": ir.IRInt(slot), "type": ir.IRString(op.Type())}
	case NullLiteral:
		return ir.IRObject{"null": ir.IRString(op.FieldType)}
	default:
		return ir.IRNull{}
	}
}

func orderShape(o OrderSpec) ir.IRArray {
	keys := make(ir.IRArray, len(o.Keys))
	for i, k := range o.Keys {
		keys[i] = ir.IRObject{"field": ir.IRString(k.Field.Name), "desc": ir.IRBool(k.Descending)}
	}
	return keys
}
