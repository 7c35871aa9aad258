package engine

import (
	"errors"
	"fmt"
)

// EvalError reports a query the engine could not evaluate.
type EvalError struct {
	// Code identifies the error category.
	Code EvalErrorCode

	// Message is a human-readable description.
	Message string

	// Record names the queried record type, when known.
	Record string

	// Field names the field involved, when there is one.
	Field string
}

// EvalErrorCode categorizes evaluation errors.
type EvalErrorCode string

const (
	// ErrCodeUnknownRecord indicates no collection exists for the record type.
	ErrCodeUnknownRecord EvalErrorCode = "UNKNOWN_RECORD"

	// ErrCodeInvalidQuery indicates the query failed structural validation.
	ErrCodeInvalidQuery EvalErrorCode = "INVALID_QUERY"

	// ErrCodeIncomparable indicates a stored value could not be compared
	// with an operand or with another stored value.
	ErrCodeIncomparable EvalErrorCode = "INCOMPARABLE"
)

// Error implements the error interface.
func (e *EvalError) Error() string {
	switch {
	case e.Record != "" && e.Field != "":
		return fmt.Sprintf("%s: %s (record=%s, field=%s)", e.Code, e.Message, e.Record, e.Field)
	case e.Record != "":
		return fmt.Sprintf("%s: %s (record=%s)", e.Code, e.Message, e.Record)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsUnknownRecordError returns true if err reports a missing collection.
// Uses errors.As to handle wrapped errors.
func IsUnknownRecordError(err error) bool {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeUnknownRecord
	}
	return false
}

// IsInvalidQueryError returns true if err reports an invalid query.
func IsInvalidQueryError(err error) bool {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeInvalidQuery
	}
	return false
}

func incomparable(record, field string, err error) *EvalError {
	return &EvalError{Code: ErrCodeIncomparable, Message: err.Error(), Record: record, Field: field}
}
