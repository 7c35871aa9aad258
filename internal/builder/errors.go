package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/dynquery/internal/param"
	"github.com/roach88/dynquery/internal/schema"
)

// InvalidOperatorError reports an operator the target field cannot support.
type InvalidOperatorError struct {
	Operator Operator
	Field    string
	Reason   string
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("operator %s is not valid for field %q: %s", e.Operator, e.Field, e.Reason)
}

// UnknownFieldsError lists every projection field name that did not resolve.
type UnknownFieldsError struct {
	Entity string
	Fields []string
}

func (e *UnknownFieldsError) Error() string {
	return fmt.Sprintf("unknown fields for %s: %s", e.Entity, strings.Join(e.Fields, ", "))
}

// NoDefaultConstructorError reports a projection target that cannot be
// instantiated without arguments.
type NoDefaultConstructorError struct {
	ResultShape string
}

func (e *NoDefaultConstructorError) Error() string {
	return fmt.Sprintf("result shape %s has no zero-argument constructor", e.ResultShape)
}

// NoCompatibleFieldsError reports a projection in which no requested field
// could be bound to the result shape.
type NoCompatibleFieldsError struct {
	Entity      string
	ResultShape string
}

func (e *NoCompatibleFieldsError) Error() string {
	return fmt.Sprintf("no requested field of %s is compatible with %s", e.Entity, e.ResultShape)
}

// UnsupportedOperatorError reports an operator or mode outside the declared
// set. It signals a programming error rather than bad input.
type UnsupportedOperatorError struct {
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator %q", e.Operator)
}

// UnknownRecordError reports a request naming an unregistered record type.
type UnknownRecordError struct {
	Name string
}

func (e *UnknownRecordError) Error() string {
	return fmt.Sprintf("unknown record type %q", e.Name)
}

// IsValidationError reports whether err is one of the recoverable errors
// caused by caller input.
func IsValidationError(err error) bool {
	var (
		invalidOp *InvalidOperatorError
		unknown   *UnknownFieldsError
		noCtor    *NoDefaultConstructorError
		noCompat  *NoCompatibleFieldsError
		noRecord  *UnknownRecordError
		conv      *param.TypeConversionError
	)
	return errors.As(err, &invalidOp) ||
		errors.As(err, &unknown) ||
		errors.As(err, &noCtor) ||
		errors.As(err, &noCompat) ||
		errors.As(err, &noRecord) ||
		errors.As(err, &conv)
}

// IsFatal reports whether err is a programming error that callers should not
// attempt to recover from.
func IsFatal(err error) bool {
	var target *UnsupportedOperatorError
	return errors.As(err, &target)
}

func invalidOperator(op Operator, fd schema.FieldDescriptor, reason string) error {
	return &InvalidOperatorError{Operator: op, Field: fd.Name, Reason: reason}
}
