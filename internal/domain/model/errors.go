package model

import (
	"fmt"
	"strings"
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports malformed or unsupported input. It is a client fault
// and is never retried.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ModelUnavailableError reports that no usable model handle is loaded. It is a
// service fault that requires a restart with a valid artifact.
type ModelUnavailableError struct {
	Reason string
	Err    error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model unavailable: %s: %v", e.Reason, e.Err)
	}
	return "model unavailable: " + e.Reason
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// CacheUnavailableError reports a cache store failure. It never leaves the
// cache-aside layer.
type CacheUnavailableError struct {
	Op  string
	Err error
}

func (e *CacheUnavailableError) Error() string {
	return fmt.Sprintf("cache unavailable during %s: %v", e.Op, e.Err)
}

func (e *CacheUnavailableError) Unwrap() error { return e.Err }
