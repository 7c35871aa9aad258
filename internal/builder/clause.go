package builder

import (
	"strings"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/param"
	"github.com/roach88/dynquery/internal/queryir"
	"github.com/roach88/dynquery/internal/schema"
)

var comparisonOps = map[Operator]queryir.CompareOp{
	OpEqual:              queryir.OpEqual,
	OpGreaterThan:        queryir.OpGreater,
	OpGreaterThanOrEqual: queryir.OpGreaterOrEqual,
	OpLessThan:           queryir.OpLess,
	OpLessThanOrEqual:    queryir.OpLessOrEqual,
}

var stringMethods = map[Operator]schema.StringMethod{
	OpContains:   schema.MethodContains,
	OpStartsWith: schema.MethodStartsWith,
	OpEndsWith:   schema.MethodEndsWith,
}

// Clause builds a single predicate testing field against value with op.
//
// A blank or unresolved field name is skipped: Clause returns a nil
// predicate and no error. Otherwise the operator is checked against the
// field:
//   - IsNull/IsNotNull need a nullable field without a required constraint;
//     value is ignored
//   - Contains/StartsWith/EndsWith need a string field and a non-null value
//   - ordering operators are not defined for booleans
//   - a null value is accepted only by Equal on a nullable field, where it
//     becomes a null test
//
// value is converted to the field type through param.Make, so the returned
// predicate references a parameter rather than the literal.
func (b *Builder) Clause(rt *schema.RecordType, field string, op Operator, value ir.IRValue) (queryir.Predicate, error) {
	if strings.TrimSpace(field) == "" {
		return nil, nil
	}
	fd, ok := b.resolver.Resolve(rt, field)
	if !ok {
		return nil, nil
	}

	switch op {
	case OpIsNull, OpIsNotNull:
		if !fd.AcceptsNullCheck() {
			reason := "field is not nullable"
			if fd.Nullable {
				reason = "field carries a required constraint"
			}
			return nil, invalidOperator(op, fd, reason)
		}
		return &queryir.NullCheck{Field: fd, Negated: op == OpIsNotNull}, nil

	case OpContains, OpStartsWith, OpEndsWith:
		method := stringMethods[op]
		if !b.resolver.SupportsMethod(fd, method) {
			return nil, invalidOperator(op, fd, "field type "+string(fd.Type)+" has no "+string(method)+" method")
		}
		p, err := b.parameter(value, fd, op)
		if err != nil {
			return nil, err
		}
		return &queryir.StringMatch{Field: fd, Method: method, Value: p}, nil

	case OpEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		if op != OpEqual && fd.Type == schema.TypeBool {
			return nil, invalidOperator(op, fd, "booleans are not ordered")
		}
		if ir.IsNull(value) {
			if op != OpEqual || !fd.Nullable {
				return nil, nullValueError(fd, op)
			}
			return &queryir.Comparison{Field: fd, Op: queryir.OpEqual, Value: queryir.NullLiteral{FieldType: fd.Type}}, nil
		}
		p, err := b.parameter(value, fd, op)
		if err != nil {
			return nil, err
		}
		return &queryir.Comparison{Field: fd, Op: comparisonOps[op], Value: p}, nil

	default:
		return nil, &UnsupportedOperatorError{Operator: string(op)}
	}
}

// parameter converts a non-null value into a parameter for fd.
func (b *Builder) parameter(value ir.IRValue, fd schema.FieldDescriptor, op Operator) (*queryir.Parameter, error) {
	if ir.IsNull(value) {
		return nil, nullValueError(fd, op)
	}
	operand, err := param.Make(value, fd)
	if err != nil {
		return nil, err
	}
	return operand.(*queryir.Parameter), nil
}

func nullValueError(fd schema.FieldDescriptor, op Operator) error {
	return &param.TypeConversionError{
		Field:  fd.Name,
		From:   "null",
		To:     fd.Type,
		Reason: "null is only accepted by " + string(OpEqual) + " on a nullable field, got " + string(op),
	}
}
