package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. Callers match them with errors.Is.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInconsistentScenario = errors.New("inconsistent scenario")
	ErrMissingRuleData      = errors.New("missing rule data")
	ErrNumericOverflow      = errors.New("numeric overflow")
)

// FieldError names the offending input field.
type FieldError struct {
	Field  string
	Reason string
	Kind   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Kind }

func invalidField(field, format string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...), Kind: ErrInvalidInput}
}

func inconsistentField(field, format string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...), Kind: ErrInconsistentScenario}
}

// NewFieldError builds a FieldError of the given kind.
func NewFieldError(kind error, field, format string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...), Kind: kind}
}
