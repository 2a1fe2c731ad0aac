package apperror

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Compare with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation failed")
	ErrTransient         = errors.New("transient store failure")
	ErrCache             = errors.New("cache failure")
)

// Error carries a kind plus the operation and message reported to callers.
type Error struct {
	Kind    error
	Op      string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return e.Kind == target }

func NotFound(op, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStock(op, format string, args ...any) error {
	return &Error{Kind: ErrInsufficientStock, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a malformed request. details lists individual field problems.
func Validation(op, message string, details ...string) error {
	return &Error{Kind: ErrValidation, Op: op, Message: message, Details: details}
}

func Transient(op string, err error) error {
	return &Error{Kind: ErrTransient, Op: op, Message: "store temporarily unavailable", Err: err}
}

func Cache(op string, err error) error {
	return &Error{Kind: ErrCache, Op: op, Message: "cache unavailable", Err: err}
}

// Message returns the caller-facing message of err without the wrapped cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return e.Kind.Error()
	}
	return err.Error()
}

// DetailsOf returns field level details attached to a validation error.
func DetailsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// IsContextError reports whether err stems from a cancelled or expired context.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
