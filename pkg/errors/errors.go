// Package errors provides standardized error types for the SQL gateway.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the query pipeline.
const (
	CodeConfiguration     = "CONFIGURATION_ERROR"
	CodeDecryption        = "DECRYPTION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodePolicyViolation   = "POLICY_VIOLATION"
	CodeResourceExhausted = "RESOURCE_EXHAUSTED"
	CodeInternal          = "INTERNAL_ERROR"
)

// GatewayError carries a code that decides the HTTP status, a message, and
// an optional cause.
type GatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *GatewayError) Is(target error) bool {
	t, ok := target.(*GatewayError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Common errors. Compare with errors.Is; they match on code only.
var (
	ErrUnauthorized  = &GatewayError{Code: CodeUnauthorized, Message: "Unauthorized"}
	ErrNoQuery       = &GatewayError{Code: CodeInvalidRequest, Message: "No SQL query provided"}
	ErrMissingSecret = &GatewayError{Code: CodeConfiguration, Message: "missing encryption key or ciphertext"}
	ErrDecryption    = &GatewayError{Code: CodeDecryption, Message: "failed to decrypt credential"}
)

// New creates a new GatewayError with the given code and message.
func New(code, message string) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with a GatewayError.
func Wrap(err error, code, message string) *GatewayError {
	if err == nil {
		return nil
	}
	return &GatewayError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return CodeInternal
}

// GetMessage extracts the error message from an error.
func GetMessage(err error) string {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the HTTP status code returned to callers.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodePolicyViolation:
		return http.StatusForbidden
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to send to a caller. Configuration
// and decryption failures collapse to a generic message so that nothing about
// the credential bundle leaves the process.
func PublicMessage(err error) string {
	switch GetCode(err) {
	case CodeConfiguration, CodeDecryption, CodeInternal:
		return "internal server error"
	default:
		return GetMessage(err)
	}
}
