// Package errors defines the error taxonomy shared by the enrichment
// clients, storage and HTTP handlers.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeValidation marks syntactically invalid input. It is the only
	// provider-side error that reaches callers of the enrichment clients.
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeTransient marks provider responses worth retrying (401, 429, 500)
	ErrTypeTransient ErrorType = "transient"
	// ErrTypeTerminal marks provider responses that will not improve (400, 403, 404)
	ErrTypeTerminal ErrorType = "terminal"
	// ErrTypeConnection represents network failures
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeTimeout represents an exceeded per-call deadline
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeInternal represents anything unexpected
	ErrTypeInternal ErrorType = "internal"
	ErrTypeConfig    ErrorType = "config"
	ErrTypeNotFound  ErrorType = "not_found"
	ErrTypeRateLimit ErrorType = "rate_limit"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

func ValidationError(msg string) *AppError {
	return &AppError{Type: ErrTypeValidation, Message: msg}
}

// TransientError reports a provider status that may succeed on retry
func TransientError(msg string, cause error) *AppError {
	return &AppError{Type: ErrTypeTransient, Message: msg, Cause: cause}
}

// TerminalError reports a provider status that will fail again if retried
func TerminalError(msg string, cause error) *AppError {
	return &AppError{Type: ErrTypeTerminal, Message: msg, Cause: cause}
}

func ConnectionError(msg string, cause error) *AppError {
	return &AppError{Type: ErrTypeConnection, Message: msg, Cause: cause}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
		Cause:   cause,
	}
}

func InternalError(msg string, cause error) *AppError {
	return &AppError{Type: ErrTypeInternal, Message: msg, Cause: cause}
}

func ConfigError(msg string) *AppError {
	return &AppError{Type: ErrTypeConfig, Message: msg}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// RateLimitError creates a new rate limit error
func RateLimitError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for %s", resource),
	}
}

// IsType reports whether any AppError in err's chain has the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return ErrTypeInternal
	}

	return appErr.Type
}

// IsRetryable reports whether another provider attempt may succeed
func IsRetryable(err error) bool {
	switch GetType(err) {
	case ErrTypeTransient, ErrTypeConnection, ErrTypeTimeout:
		return true
	default:
		return false
	}
}
