package model

import (
	"fmt"
	"net/http"
)

// Error types shared across packages.
// Each type names the resource that caused the failure so that the message
// shown to the user is actionable on its own.
//
// Design decision: We use struct error types rather than sentinel values
// because every failure here carries the offending resource (a URL, a path,
// a database name). Callers match them with errors.As.

// NetworkError is returned when a bootstrap HTTP request fails, for example
// when a store is loaded from a URL. Crawl-time failures are not errors; the
// crawler records them as drops instead.
type NetworkError struct {
	// URL is the requested resource.
	URL string

	// StatusCode is the HTTP status received, or 0 for transport failures.
	StatusCode int

	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError is returned when a header value cannot be parsed.
// The record builder recovers from it locally; it never reaches the user.
type ParseError struct {
	Field string
	Value string
	Err   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s %q: %v", e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// StoreOpenError is returned when an index store cannot be opened, because
// the path is unreadable or the file is not a valid store.
type StoreOpenError struct {
	// Path is the database file that was attempted.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StoreOpenError) Error() string {
	return fmt.Sprintf("cannot open index store %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreOpenError) Unwrap() error {
	return e.Err
}

// ConfigurationError is returned when a named database definition is missing
// or invalid.
type ConfigurationError struct {
	// Name is the database or alias name involved.
	Name string

	// Reason describes what is wrong.
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %q: %s", e.Name, e.Reason)
}

// ValidationError is returned when a caller passes invalid input, such as an
// empty seed list or an unknown classifier mode.
type ValidationError struct {
	// Field names the offending input.
	Field string

	// Value is the rejected value.
	Value string

	// Reason describes what is wrong.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
