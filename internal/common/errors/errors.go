// Package errors provides the standardized error taxonomy of the configuration pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidRequestBody ErrorCode = "INVALID_REQUEST_BODY"

	ErrCodeRenderFailed     ErrorCode = "RENDER_FAILED"
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"

	ErrCodeUnknownChannel ErrorCode = "UNKNOWN_CHANNEL"
	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured, request-scoped pipeline error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e after setting key on its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Violation is one (path, message) entry of a rejected verdict.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationFailedError reports a rejected declaration with all of its violations.
func NewValidationFailedError(violations []Violation) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Declaration validation failed",
		Details:   fmt.Sprintf("%d violation(s)", len(violations)),
		Retryable: false,
		Metadata:  map[string]interface{}{"violations": violations},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestBodyError reports a body that is not a JSON document.
func NewInvalidRequestBodyError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequestBody,
		Message:   "Request body is not a valid JSON document",
		Details:   err.Error(),
		Retryable: false,
		Metadata: map[string]interface{}{"violations": []Violation{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "invalid_json",
		}}},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewRenderFailedError reports a template that could not be expanded for the declaration.
// reference is the template expression that failed, when known.
func NewRenderFailedError(templateID, reference string, err error) *StandardError {
	e := &StandardError{
		Code:      ErrCodeRenderFailed,
		Message:   "Configuration rendering failed",
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"template": templateID},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
	if reference != "" {
		return e.WithMetadata("reference", reference)
	}
	return e
}

// NewTemplateNotFoundError reports a template id missing from the active template set.
func NewTemplateNotFoundError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found in template set",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Metadata:  map[string]interface{}{"template": templateID},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownChannelError reports an output type outside the closed channel enumeration.
func NewUnknownChannelError(outputType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownChannel,
		Message:   fmt.Sprintf("output type %s unknown", outputType),
		Retryable: false,
		Metadata:  map[string]interface{}{"outputType": outputType},
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryFailedError reports a transport-level failure of the http channel.
func NewDeliveryFailedError(url string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   fmt.Sprintf("%s unreachable", url),
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"url": url},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// HTTPStatus maps an error code to the response status returned to the caller.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeUnknownChannel:
		return http.StatusUnprocessableEntity
	case ErrCodeInvalidRequestBody:
		return http.StatusBadRequest
	case ErrCodeDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether the code is the caller's fault.
func IsClientError(code ErrorCode) bool {
	return HTTPStatus(code) < http.StatusInternalServerError
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "REQUEST"):
		return "VALIDATION"
	case strings.Contains(codeStr, "RENDER") || strings.Contains(codeStr, "TEMPLATE"):
		return "RENDER"
	case strings.Contains(codeStr, "CHANNEL"):
		return "CHANNEL"
	case strings.Contains(codeStr, "DELIVERY"):
		return "DELIVERY"
	default:
		return "OTHER"
	}
}

// Violations extracts the verdict entries carried by a validation error.
func Violations(e *StandardError) []Violation {
	if e == nil || e.Metadata == nil {
		return nil
	}
	v, _ := e.Metadata["violations"].([]Violation)
	return v
}

// AsStandardError normalizes any error to a StandardError.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// As is errors.As from the standard library.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
