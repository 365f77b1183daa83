// Package lexerr defines the error taxonomy of the dialog engine and the
// policy that converts failures into well-formed terminal responses.
package lexerr

import (
	"errors"
	"fmt"
)

// IntentNotFoundError means no handler is registered for an intent name.
// It is a bot misconfiguration, distinct from runtime faults: the
// dispatcher lets it propagate instead of converting it to a generic
// user-facing message.
type IntentNotFoundError struct {
	Intent string
}

func (e *IntentNotFoundError) Error() string {
	return fmt.Sprintf("no handler registered for intent %q", e.Intent)
}

// HandlerInvalidError means an intent resolved to a registration without a
// usable entry point (a nil handler). Also a configuration error.
type HandlerInvalidError struct {
	Intent string
}

func (e *HandlerInvalidError) Error() string {
	return fmt.Sprintf("handler registered for intent %q has no entry point", e.Intent)
}

// ValidationError carries a user-displayable message about bad slot input
// detected by handler logic. The message is shown to the user verbatim.
type ValidationError struct {
	Message string
	Code    string
}

func (e *ValidationError) Error() string { return e.Message }

// SessionError reports inconsistent session state detected by handler
// logic. Internal detail is never echoed to the user.
type SessionError struct {
	Message string
	Code    string
}

func (e *SessionError) Error() string { return e.Message }

// TransitionLimitError means a turn chained more intent-to-intent
// transitions than allowed, which indicates a handler cycle.
type TransitionLimitError struct {
	Limit int
}

func (e *TransitionLimitError) Error() string {
	return fmt.Sprintf("intent transition limit of %d exceeded", e.Limit)
}

// TypeName labels an error for metrics.
func TypeName(err error) string {
	var (
		notFound   *IntentNotFoundError
		invalid    *HandlerInvalidError
		validation *ValidationError
		session    *SessionError
		limit      *TransitionLimitError
	)
	switch {
	case errors.As(err, &notFound):
		return "intent_not_found"
	case errors.As(err, &invalid):
		return "handler_invalid"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &session):
		return "session"
	case errors.As(err, &limit):
		return "transition_limit"
	default:
		return "internal"
	}
}
