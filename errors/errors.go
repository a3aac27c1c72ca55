package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Error is the unified startup error type.
type Error struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message naming the failing step.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// Kind reports whether this is a configuration or a bootstrap error.
func (e *Error) Kind() Kind { return KindOf(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// --- Configuration errors ---

// ConfigSourceUnavailable reports that the fallback env file could not be loaded.
func ConfigSourceUnavailable(path string, cause error) *Error {
	msg := "fallback env file not found"
	if path != "" {
		msg = fmt.Sprintf("fallback env file %s could not be loaded", path)
	}
	e := &Error{Code: ErrCodeConfigSourceUnavailable, Message: msg, Cause: cause}
	if path != "" {
		e.WithDetail("path", path)
	}
	return e
}

// MissingRequiredKeys reports every required key left unset after all sources.
func MissingRequiredKeys(keys []string) *Error {
	missing := make([]string, len(keys))
	copy(missing, keys)
	return &Error{
		Code:    ErrCodeMissingRequiredKeys,
		Message: fmt.Sprintf("required configuration keys are not set: %s", strings.Join(missing, ", ")),
		Details: map[string]any{"missing": missing},
	}
}

// InvalidSettings reports an unreadable or invalid settings file.
func InvalidSettings(reason string, cause error) *Error {
	return &Error{Code: ErrCodeInvalidSettings, Message: reason, Cause: cause}
}

// --- Bootstrap errors ---

// DatastoreUnavailable reports that the datastore connection could not be established.
func DatastoreUnavailable(cause error) *Error {
	return &Error{Code: ErrCodeDatastoreUnavailable, Message: "unable to connect to the datastore", Cause: cause}
}

// MigrationFailed reports that pending schema migrations could not be applied.
func MigrationFailed(cause error) *Error {
	return &Error{Code: ErrCodeMigrationFailed, Message: "unable to apply schema migrations", Cause: cause}
}

// CrashHookFailed reports that crash diagnostics could not be installed.
func CrashHookFailed(cause error) *Error {
	return &Error{Code: ErrCodeCrashHookFailed, Message: "unable to install crash reporting hook", Cause: cause}
}

// BrokerUnavailable reports that no broker address accepted a connection.
func BrokerUnavailable(brokers []string, cause error) *Error {
	return &Error{
		Code:    ErrCodeBrokerUnavailable,
		Message: fmt.Sprintf("unable to connect to broker %s", strings.Join(brokers, ",")),
		Details: map[string]any{"brokers": brokers},
		Cause:   cause,
	}
}

// SubscriptionFailed reports that the consumer could not subscribe to topic.
func SubscriptionFailed(topic string, cause error) *Error {
	return &Error{
		Code:    ErrCodeSubscriptionFailed,
		Message: fmt.Sprintf("unable to subscribe to topic %s", topic),
		Details: map[string]any{"topic": topic},
		Cause:   cause,
	}
}

// ListenerBindFailed reports that the HTTP listener could not bind addr.
func ListenerBindFailed(addr string, cause error) *Error {
	return &Error{
		Code:    ErrCodeListenerBindFailed,
		Message: fmt.Sprintf("unable to bind listener on %s", addr),
		Details: map[string]any{"addr": addr},
		Cause:   cause,
	}
}

// ServeFailed reports that a long-running loop stopped with an error.
func ServeFailed(loop string, cause error) *Error {
	return &Error{
		Code:    ErrCodeServeFailed,
		Message: fmt.Sprintf("%s stopped unexpectedly", loop),
		Details: map[string]any{"loop": loop},
		Cause:   cause,
	}
}

// --- Inspection helpers ---

// AsError extracts an *Error from the chain of err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in the chain, or "" if none.
func CodeOf(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
