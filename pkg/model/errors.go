package model

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a lead or user does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when another lead already uses the email
	ErrDuplicateEmail = errors.New("lead with this email already exists")
	// ErrInvalidID is returned when a lead identifier is not a valid ObjectID
	ErrInvalidID = errors.New("invalid lead id")
	// ErrInvalidFilters is returned when the filters parameter is not a JSON object of descriptors
	ErrInvalidFilters = errors.New("invalid filters format")
	// ErrCanceled is returned when the operation is canceled by the client
	ErrCanceled = errors.New("operation canceled")
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a lead payload fails validation.
// Message is the client-facing summary; Fields carries per-field detail when available.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with an optional field list.
func NewValidationError(message string, fields ...FieldError) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// IsValidation reports whether err carries a *ValidationError or *FilterError.
func IsValidation(err error) bool {
	var ve *ValidationError
	var fe *FilterError
	return errors.As(err, &ve) || errors.As(err, &fe)
}

// WrapError converts context.Canceled and context.DeadlineExceeded to ErrCanceled.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsCanceled(err) {
		return ErrCanceled
	}
	return err
}

// IsCanceled returns true if the error is due to context cancellation or deadline exceeded.
// It checks both direct context errors and wrapped errors (e.g., from MongoDB driver).
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrCanceled) {
		return true
	}
	// the mongo driver sometimes flattens context errors into its own message
	errStr := err.Error()
	return strings.Contains(errStr, "context canceled") || strings.Contains(errStr, "context deadline exceeded")
}
