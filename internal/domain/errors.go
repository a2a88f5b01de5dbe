package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeValidation   ErrorCode = "VALIDATION_ERROR"

	// Pipeline errors
	CodeTranscriptUnavailable ErrorCode = "TRANSCRIPT_UNAVAILABLE"
	CodeGenerationFailure     ErrorCode = "GENERATION_FAILURE"
)

// ErrRateLimited marks a text-generation failure caused by provider throttling.
// Adapters wrap it so callers can decide whether a retry makes sense.
var ErrRateLimited = errors.New("text generation rate limited")

// DomainError represents a domain-specific error
type DomainError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewInvalidInputError(message string) *DomainError {
	e := NewError(CodeInvalidInput, message, nil)
	e.StatusCode = http.StatusBadRequest
	return e
}

func NewInternalError(message string, err error) *DomainError {
	e := NewError(CodeInternal, message, err)
	e.StatusCode = http.StatusInternalServerError
	return e
}

// NewTranscriptUnavailableError reports that no provider produced usable text.
// statusCode is surfaced to the caller as-is; zero means 404.
func NewTranscriptUnavailableError(videoID string, statusCode int, err error) *DomainError {
	if statusCode == 0 {
		statusCode = http.StatusNotFound
	}
	e := NewError(CodeTranscriptUnavailable, fmt.Sprintf("No transcript available for video %s", videoID), err)
	e.StatusCode = statusCode
	return e
}

func NewGenerationFailureError(message string, err error) *DomainError {
	e := NewError(CodeGenerationFailure, message, err)
	e.StatusCode = http.StatusBadGateway
	return e
}

// IsCode reports whether err carries a DomainError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// ValidationError describes a single invalid request field.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects field errors for a single request.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func NewMissingFieldError(field string) ValidationError {
	return ValidationError{Field: field, Message: "field is required"}
}

func NewInvalidFormatError(field string, value interface{}) ValidationError {
	return ValidationError{Field: field, Message: "invalid format", Value: value}
}

func NewOutOfRangeError(field string, value interface{}, min, max int) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be between %d and %d", min, max),
		Value:   value,
	}
}
