package services

import (
	"errors"
	"fmt"
)

// Kind classifies failures so the HTTP layer can choose a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindBusinessRule
	KindAuthRequired
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindBusinessRule:
		return "business_rule"
	case KindAuthRequired:
		return "authentication_required"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error is the only error type returned by service operations.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports malformed or missing input.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a referenced entity that does not exist.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// BusinessRule reports a violated domain constraint. The message names the rule.
func BusinessRule(format string, args ...any) error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// AuthRequired reports that no principal could be resolved.
func AuthRequired(format string, args ...any) error {
	return &Error{Kind: KindAuthRequired, Message: fmt.Sprintf(format, args...)}
}

// Forbidden reports an authenticated caller acting on something it does not own.
func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure. Service errors pass through unchanged.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: KindInternal, Message: "unexpected error", Err: err}
}

// KindOf returns the kind of err; errors not produced by this package are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message for err.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "unexpected error"
}
