package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/emzola/circulation/policy"
)

var (
	ErrFailedValidation       = errors.New("failed validation")
	ErrConflict               = errors.New("conflict")
	ErrInvalidState           = errors.New("invalid state")
	ErrRecordNotFound         = errors.New("record not found")
	ErrEditConflict           = errors.New("edit conflict")
	ErrReferencedRecord       = errors.New("record is still referenced")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrNotPermitted           = errors.New("not permitted")
	ErrAuthenticationRequired = errors.New("authentication required")
)

// ValidationError carries field-scoped validation messages. It matches
// ErrFailedValidation, and also ErrConflict or ErrInvalidState when a
// uniqueness or state rule caused it.
type ValidationError struct {
	Fields map[string]string
	cause  error
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "failed validation: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrFailedValidation}
	}
	return []error{ErrFailedValidation, e.cause}
}

func failedValidation(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

func fieldError(field, message string, cause error) error {
	return &ValidationError{Fields: map[string]string{field: message}, cause: cause}
}

// ValidationFields returns the field messages carried by err, if any.
func ValidationFields(err error) (map[string]string, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Fields, true
	}
	return nil, false
}

// decisionError converts a denied policy decision into a service error.
func decisionError(d policy.Decision) error {
	switch d {
	case policy.Allow:
		return nil
	case policy.DenyUnauthenticated:
		return ErrAuthenticationRequired
	case policy.DenyHidden:
		return ErrRecordNotFound
	default:
		return ErrNotPermitted
	}
}
