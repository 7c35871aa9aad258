package schema

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/token"
)

// SchemaError reports an invalid record type definition.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos // set when the definition came from a CUE file
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RecordValidationError lists the ways a record violates its type's schema.
type RecordValidationError struct {
	Record   string
	Problems []string
}

func (e *RecordValidationError) Error() string {
	return fmt.Sprintf("invalid %s record: %s", e.Record, strings.Join(e.Problems, "; "))
}

// IsRecordValidationError reports whether err wraps a RecordValidationError.
func IsRecordValidationError(err error) bool {
	var target *RecordValidationError
	return errors.As(err, &target)
}
