package queryir

import (
	"github.com/google/uuid"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/schema"
)

// Predicate is a boolean expression over one record.
//
// This is a sealed interface - only pointer types in this package implement
// it. A nil Predicate is the identity filter.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Operand is the right-hand side of a comparison: a bound parameter or a
// typed null literal.
type Operand interface {
	operandNode() // Marker method - seals interface to this package
	// Type is the field type the operand was converted to.
	Type() schema.FieldType
}

// Parameter is an indirection cell holding a converted literal.
//
// Identity is the pointer: renderers number parameters by first appearance
// and bind a shared Parameter once. The value never appears in generated
// query text.
type Parameter struct {
	typ   schema.FieldType
	value ir.IRValue
}

// NewParameter wraps value, already converted to typ.
func NewParameter(typ schema.FieldType, value ir.IRValue) *Parameter {
	return &Parameter{typ: typ, value: value}
}

func (*Parameter) operandNode() {}

// Type returns the field type of the held value.
func (p *Parameter) Type() schema.FieldType { return p.typ }

// Value returns the held value.
func (p *Parameter) Value() ir.IRValue { return p.value }

// NullLiteral is a typed null constant. It is not parameterized because it
// has no value to vary.
type NullLiteral struct {
	FieldType schema.FieldType
}

func (NullLiteral) operandNode() {}

// Type returns the declared type of the null.
func (n NullLiteral) Type() schema.FieldType { return n.FieldType }

// CompareOp is a relational operator.
type CompareOp string

const (
	OpEqual          CompareOp = "="
	OpGreater        CompareOp = ">"
	OpGreaterOrEqual CompareOp = ">="
	OpLess           CompareOp = "<"
	OpLessOrEqual    CompareOp = "<="
)

// Valid reports whether op is a declared operator.
func (op CompareOp) Valid() bool {
	switch op {
	case OpEqual, OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
		return true
	}
	return false
}

// Comparison represents a field-op-operand predicate.
//
// Semantics:
//
//	<field> <op> <operand>
//
// A null field value never satisfies a comparison against a Parameter.
// Equal against a NullLiteral is a null test.
//
// Example:
//
//	&Comparison{Field: price, Op: OpGreater, Value: NewParameter(schema.TypeDecimal, ir.MustDecimal("10"))}
//
// Translates to SQL:
//
//	"Price" > ?1
type Comparison struct {
	Field schema.FieldDescriptor
	Op    CompareOp
	Value Operand
}

func (*Comparison) predicateNode() {}

// StringMatch represents a case-insensitive substring, prefix or suffix test
// on a string field.
//
// Example:
//
//	&StringMatch{Field: name, Method: schema.MethodContains, Value: term}
//
// Translates to SQLite, with ?1 bound to the escaped pattern "%term%":
//
//	"Name" LIKE ?1 ESCAPE '\'
type StringMatch struct {
	Field  schema.FieldDescriptor
	Method schema.StringMethod
	Value  *Parameter
}

func (*StringMatch) predicateNode() {}

// NullCheck tests whether a field holds null (or, when Negated, a value).
type NullCheck struct {
	Field   schema.FieldDescriptor
	Negated bool
}

func (*NullCheck) predicateNode() {}

// And is the conjunction of two predicates.
type And struct {
	Left, Right Predicate
}

func (*And) predicateNode() {}

// Or is the disjunction of two predicates.
type Or struct {
	Left, Right Predicate
}

func (*Or) predicateNode() {}

// AndOf conjoins two predicates, treating nil as identity.
func AndOf(left, right Predicate) Predicate {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	default:
		return &And{Left: left, Right: right}
	}
}

// OrOf disjoins two predicates, treating nil as "not contributing".
func OrOf(left, right Predicate) Predicate {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	default:
		return &Or{Left: left, Right: right}
	}
}

// OrderKey is one sort key.
type OrderKey struct {
	Field      schema.FieldDescriptor
	Descending bool
}

// OrderSpec is an ordered list of sort keys; the first key is primary.
// Sorting is stable: records equal on every key keep their source order.
type OrderSpec struct {
	Keys []OrderKey
}

// IsIdentity reports whether the order leaves source order unchanged.
func (o OrderSpec) IsIdentity() bool { return len(o.Keys) == 0 }

// Binding maps one source field onto one target field.
type Binding struct {
	Source schema.FieldDescriptor
	Target schema.FieldDescriptor
}

// ProjectionSpec maps source records onto a result shape.
// A nil *ProjectionSpec is the identity projection.
type ProjectionSpec struct {
	Source   *schema.RecordType
	Target   *schema.RecordType
	Bindings []Binding
}

// Query bundles everything an execution layer needs.
type Query struct {
	ID         string
	Record     *schema.RecordType
	Filter     Predicate
	Order      OrderSpec
	Projection *ProjectionSpec
}

// NewQuery creates an identity query over rt with a fresh time-ordered ID.
func NewQuery(rt *schema.RecordType) Query {
	return Query{ID: uuid.Must(uuid.NewV7()).String(), Record: rt}
}

// ResultType is the record type of the query's output rows.
func (q Query) ResultType() *schema.RecordType {
	if q.Projection != nil && q.Projection.Target != nil {
		return q.Projection.Target
	}
	return q.Record
}

// OutputFields lists (source, output) field pairs in output order.
// Without a projection every field of the record maps onto itself.
func (q Query) OutputFields() []Binding {
	if q.Projection != nil {
		return q.Projection.Bindings
	}
	if q.Record == nil {
		return nil
	}
	out := make([]Binding, len(q.Record.Fields))
	for i, f := range q.Record.Fields {
		out[i] = Binding{Source: f, Target: f}
	}
	return out
}
