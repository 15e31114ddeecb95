// Package errors provides lightweight operation-error wrapping for the
// infrastructure edges of the core (graph executor, relational store,
// SMTP/IMAP transport): a consistent "failed to X, cause: Y" shape that
// internal/errors.AppError wraps once the failure has been classified.
package errors

import (
	"fmt"
	"strings"
)

// OperationError describes a failed infrastructure operation with optional
// component/resource context.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to %s", e.Operation)
	if e.Component != "" {
		fmt.Fprintf(&b, ", component: %s", e.Component)
	}
	if e.Resource != "" {
		fmt.Fprintf(&b, ", resource: %s", e.Resource)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ", cause: %s", e.Cause)
	}
	return b.String()
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo builds an OperationError for action, optionally wrapping cause.
func FailedTo(action string, cause error) error {
	return &OperationError{Operation: action, Cause: cause}
}

// FailedToWithDetails builds an OperationError with component/resource
// context attached.
func FailedToWithDetails(action, component, resource string, cause error) error {
	return &OperationError{Operation: action, Component: component, Resource: resource, Cause: cause}
}

// Wrapf prefixes err's message with a formatted string. Returns nil if err
// is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	prefix := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", prefix, err)
}

func DatabaseError(operation string, cause error) error {
	return FailedToWithDetails(operation, "database", "", cause)
}

func NetworkError(operation, endpoint string, cause error) error {
	return FailedToWithDetails(operation, "network", endpoint, cause)
}

func ValidationError(field, reason string) error {
	return fmt.Errorf("validation failed for field %s: %s", field, reason)
}

func ConfigurationError(setting, reason string) error {
	return fmt.Errorf("configuration error for setting %s: %s", setting, reason)
}

func TimeoutError(operation, duration string) error {
	return fmt.Errorf("timeout while %s after %s", operation, duration)
}

func AuthenticationError(reason string) error {
	return fmt.Errorf("authentication failed: %s", reason)
}

func AuthorizationError(action, resource string) error {
	return fmt.Errorf("authorization failed: insufficient permissions to %s %s", action, resource)
}

func ParseError(target, format string, cause error) error {
	return FailedToWithDetails(fmt.Sprintf("parse %s as %s", target, format), "parser", "", cause)
}

var retryableSubstrings = []string{
	"timeout",
	"connection refused",
	"unavailable",
	"reset by peer",
	"broken pipe",
	"temporarily unavailable",
	"eof",
}

// IsRetryable is a best-effort classification of transient infrastructure
// failures based on the error text, used where the underlying client does
// not expose a typed retryable/permanent distinction.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Chain joins non-nil errors into one, in order. Returns nil if every
// argument is nil, and the single error unchanged if exactly one is
// non-nil.
func Chain(errs ...error) error {
	var present []string
	var first error
	count := 0
	for _, e := range errs {
		if e == nil {
			continue
		}
		count++
		if first == nil {
			first = e
		}
		present = append(present, e.Error())
	}
	switch count {
	case 0:
		return nil
	case 1:
		return first
	default:
		return fmt.Errorf("multiple errors: %s", strings.Join(present, "; "))
	}
}
