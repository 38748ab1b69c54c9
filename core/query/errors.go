package query

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every error caused by bad caller input. Serving
// layers can map errors.Is(err, ErrValidation) to a client error response.
var ErrValidation = errors.New("validation failed")

// Sentinel validation errors raised while accumulating query state.
var (
	ErrUnsupportedCondition = fmt.Errorf("%w: unsupported filter condition", ErrValidation)
	ErrUnsupportedOperation = fmt.Errorf("%w: unsupported filter operation", ErrValidation)
	ErrUnsupportedDirection = fmt.Errorf("%w: unsupported sort order", ErrValidation)
	ErrEmptySubject         = fmt.Errorf("%w: subject cannot be empty", ErrValidation)
)

// ErrNoRows is returned by QueryResult.One when the result set is empty.
var ErrNoRows = errors.New("query returned no rows")

// ValidationError describes the input that was rejected.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps a sentinel with the offending field and value.
func NewValidationError(field string, value any, err error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Err: err}
}
