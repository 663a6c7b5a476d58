package guac

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Guacamole error types carried in the "type" field of an error body.
const (
	ErrorTypeBadRequest              = "BAD_REQUEST"
	ErrorTypeInvalidCredentials      = "INVALID_CREDENTIALS"
	ErrorTypeInsufficientCredentials = "INSUFFICIENT_CREDENTIALS"
	ErrorTypeInternalError           = "INTERNAL_ERROR"
	ErrorTypeNotFound                = "NOT_FOUND"
	ErrorTypePermissionDenied        = "PERMISSION_DENIED"
	ErrorTypeStreamError             = "STREAM_ERROR"
)

// ErrorBody is the JSON document Guacamole returns with a failed request.
type ErrorBody struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// ParseErrorBody parses an error response from JSON.
func ParseErrorBody(data []byte) (*ErrorBody, error) {
	var body ErrorBody

	err := json.Unmarshal(data, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal error body: %w", err)
	}

	return &body, nil
}

// TransportError reports a request that never produced a response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport failure: %v", e.Method, e.Path, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError reports a non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
	Type       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}

	if e.Type == "" {
		return fmt.Sprintf("%s (status: %d)", e.Message, e.StatusCode)
	}

	return fmt.Sprintf("%s: %s (status: %d)", e.Type, e.Message, e.StatusCode)
}

// AuthExpiredError reports that the credential was rejected or is missing.
// Callers re-authenticate and retry.
type AuthExpiredError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *AuthExpiredError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("authentication required: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("authentication expired: %s (status: %d)", e.Message, e.StatusCode)
	default:
		return fmt.Sprintf("authentication expired (status: %d)", e.StatusCode)
	}
}

// Unwrap returns the credential provider error, if any.
func (e *AuthExpiredError) Unwrap() error {
	return e.Err
}

// ValidationError reports input rejected before any request was sent.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NewResponseError translates a failed response into HTTPError or
// AuthExpiredError. The body is parsed when it is a Guacamole error document.
func NewResponseError(statusCode int, body []byte) error {
	var parsed ErrorBody

	if len(body) > 0 {
		errBody, err := ParseErrorBody(body)
		if err == nil {
			parsed = *errBody
		}
	}

	if statusCode == http.StatusUnauthorized ||
		parsed.Type == ErrorTypeInvalidCredentials ||
		parsed.Type == ErrorTypeInsufficientCredentials {
		return &AuthExpiredError{StatusCode: statusCode, Message: parsed.Message}
	}

	return &HTTPError{StatusCode: statusCode, Message: parsed.Message, Type: parsed.Type}
}

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired       = errors.New("config is required")
	ErrBaseURLRequired      = errors.New("base URL is required")
	ErrNoCredentials        = errors.New("no credentials configured")
	ErrCacheKeyNotFound     = errors.New("key not found")
	ErrCacheEntryExpired    = errors.New("entry expired")
	ErrCacheValueTooLarge   = errors.New("cache value too large")
	ErrNATSConnectionNeeded = errors.New("NATS URL or connection is required")
)

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	httpErr := &HTTPError{}
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	authErr := &AuthExpiredError{}
	if errors.As(err, &authErr) {
		return authErr.StatusCode
	}

	return 0
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	httpErr := &HTTPError{}
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusNotFound || httpErr.Type == ErrorTypeNotFound
	}

	return false
}

// IsForbidden checks if the error is a permission denied error.
func IsForbidden(err error) bool {
	httpErr := &HTTPError{}
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusForbidden || httpErr.Type == ErrorTypePermissionDenied
	}

	return false
}

// IsAuthExpired checks if the error asks the caller to re-authenticate.
func IsAuthExpired(err error) bool {
	authErr := &AuthExpiredError{}

	return errors.As(err, &authErr)
}

// IsValidation checks if the error was raised before dispatch.
func IsValidation(err error) bool {
	validationErr := &ValidationError{}

	return errors.As(err, &validationErr)
}

// IsTransport checks if the error means no response was received.
func IsTransport(err error) bool {
	transportErr := &TransportError{}

	return errors.As(err, &transportErr)
}
