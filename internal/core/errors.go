// Package core provides the domain types, token estimation and error taxonomy
// shared by the service and transport layers.
package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind identifies one of the closed set of domain failures.
// Its value is the stable machine-readable code returned to clients.
type ErrorKind string

const (
	// KindInvalidAPIKey indicates a missing, malformed or revoked key (401)
	KindInvalidAPIKey ErrorKind = "INVALID_API_KEY"
	// KindModelNotFound indicates an unsupported model identifier (404)
	KindModelNotFound ErrorKind = "MODEL_NOT_FOUND"
	// KindTokenLimitExceeded indicates the estimated tokens exceed the model ceiling (413)
	KindTokenLimitExceeded ErrorKind = "TOKEN_LIMIT_EXCEEDED"
	// KindRateLimitExceeded indicates the caller is being throttled (429)
	KindRateLimitExceeded ErrorKind = "RATE_LIMIT_EXCEEDED"
)

// Error is the single domain error type. Kind selects the variant; the
// payload fields are populated only for the kinds that carry them.
type Error struct {
	Kind    ErrorKind `json:"code"`
	Message string    `json:"message"`

	// Model is set for KindModelNotFound.
	Model string `json:"model,omitempty"`
	// Used and Limit are set for KindTokenLimitExceeded.
	Used  int `json:"used,omitempty"`
	Limit int `json:"limit,omitempty"`

	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the stable code for programmatic handling.
func (e *Error) Code() string {
	return string(e.Kind)
}

// HTTPStatusCode returns the transport status for this error kind
func (e *Error) HTTPStatusCode() int {
	switch e.Kind {
	case KindInvalidAPIKey:
		return http.StatusUnauthorized
	case KindModelNotFound:
		return http.StatusNotFound
	case KindTokenLimitExceeded:
		return http.StatusRequestEntityTooLarge
	case KindRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *Error) ToJSON() map[string]interface{} {
	body := map[string]interface{}{
		"code":    e.Kind,
		"message": e.Message,
	}
	switch e.Kind {
	case KindModelNotFound:
		body["model"] = e.Model
	case KindTokenLimitExceeded:
		body["used"] = e.Used
		body["limit"] = e.Limit
	}
	return map[string]interface{}{"error": body}
}

// NewInvalidAPIKeyError creates an invalid API key error (401)
func NewInvalidAPIKeyError(message string, err error) *Error {
	if message == "" {
		message = "invalid api key"
	}
	return &Error{
		Kind:    KindInvalidAPIKey,
		Message: message,
		Err:     err,
	}
}

// NewModelNotFoundError creates a model not found error (404)
func NewModelNotFoundError(model string) *Error {
	return &Error{
		Kind:    KindModelNotFound,
		Message: fmt.Sprintf("model '%s' not found", model),
		Model:   model,
	}
}

// NewTokenLimitExceededError creates a token limit error (413)
func NewTokenLimitExceededError(used, limit int) *Error {
	return &Error{
		Kind:    KindTokenLimitExceeded,
		Message: fmt.Sprintf("token limit exceeded: %d/%d", used, limit),
		Used:    used,
		Limit:   limit,
	}
}

// NewRateLimitError creates a rate limit error (429)
func NewRateLimitError(message string) *Error {
	if message == "" {
		message = "request rate limit exceeded"
	}
	return &Error{
		Kind:    KindRateLimitExceeded,
		Message: message,
	}
}

// KindOf reports the domain kind of err, if err is or wraps a *Error.
func KindOf(err error) (ErrorKind, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind, true
	}
	return "", false
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
