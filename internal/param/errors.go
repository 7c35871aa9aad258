package param

import (
	"errors"
	"fmt"

	"github.com/roach88/dynquery/internal/schema"
)

// TypeConversionError reports a value that cannot be converted to its
// target field's type.
type TypeConversionError struct {
	Field  string
	From   string
	To     schema.FieldType
	Reason string
}

func (e *TypeConversionError) Error() string {
	msg := fmt.Sprintf("cannot convert %s value to %s for field %q", e.From, e.To, e.Field)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// IsTypeConversionError reports whether err wraps a TypeConversionError.
func IsTypeConversionError(err error) bool {
	var target *TypeConversionError
	return errors.As(err, &target)
}
