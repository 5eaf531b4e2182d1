package shipper

import (
	"errors"
)

// Kind classifies a provider error. Only one kind exists: callers tell
// failures apart by message text.
type Kind string

// KindInvalidData covers malformed payloads, provider API errors, transport
// failures and missing credentials.
const KindInvalidData Kind = "invalid_data"

// Error is the single error shape raised by provider clients.
type Error struct {
	Kind     Kind
	Provider string
	Message  string
	Cause    error
}

// Error implements the error interface. It returns the message verbatim so
// that callers matching on message text see exactly what the provider said.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for Error. Two errors match when their kinds match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// InvalidData creates a new InvalidData error with the given message.
func InvalidData(message string) *Error {
	return &Error{
		Kind:    KindInvalidData,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithProvider records which provider raised the error.
func (e *Error) WithProvider(name string) *Error {
	e.Provider = name
	return e
}

// ErrInvalidData matches any InvalidData error via errors.Is.
var ErrInvalidData = &Error{Kind: KindInvalidData, Message: "invalid data"}

// ErrProviderNotFound indicates the requested provider is not registered.
var ErrProviderNotFound = errors.New("provider not found")

// IsInvalidData reports whether err is, or wraps, an InvalidData error.
func IsInvalidData(err error) bool {
	return errors.Is(err, ErrInvalidData)
}

// Message returns the InvalidData message carried by err, or err.Error()
// for any other error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
