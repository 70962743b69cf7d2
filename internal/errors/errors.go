package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents different types of errors that can occur
type ErrorCode int

const (
	// Configuration errors
	ErrorConfigNotFound ErrorCode = iota + 1000
	ErrorConfigInvalid
	ErrorConfigParsingFailed

	// File I/O errors
	ErrorFileNotFound
	ErrorFileReadFailed
	ErrorFileEmpty
	ErrorFileInvalidFormat

	// DNS errors
	ErrorDNSResolutionFailed
	ErrorDNSNoUsableAddress
	ErrorDNSQueryFailed

	// Transport errors
	ErrorConnectionFailed
	ErrorConnectionTimeout
	ErrorConnectionRefused
	ErrorTLSHandshakeFailed
	ErrorTooManyRedirects
	ErrorProxyConnectionFailed

	// HTTP errors
	ErrorHTTPRequestFailed
	ErrorHTTPInvalidResponse

	// Subject errors
	ErrorSubjectInvalid
	ErrorSubjectEmpty

	// Rule errors
	ErrorRuleInvalid
	ErrorRuleParsingFailed

	// System errors
	ErrorSystemTimeout
	ErrorSystemShutdown
)

// CheckError represents a structured error with context and error codes
type CheckError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Operation string                 `json:"operation,omitempty"`
	Subject   string                 `json:"subject,omitempty"`
	URL       string                 `json:"url,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"` // Original error, not serialized
}

func (e *CheckError) Error() string {
	var parts []string

	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Operation))
	}
	if e.Subject != "" {
		parts = append(parts, fmt.Sprintf("subject=%s", e.Subject))
	}
	if e.URL != "" {
		parts = append(parts, fmt.Sprintf("url=%s", e.URL))
	}

	context := ""
	if len(parts) > 0 {
		context = fmt.Sprintf(" [%s]", strings.Join(parts, ", "))
	}

	result := fmt.Sprintf("[%d] %s%s", e.Code, e.Message, context)

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying error for error unwrapping
func (e *CheckError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison for errors.Is()
func (e *CheckError) Is(target error) bool {
	if ce, ok := target.(*CheckError); ok {
		return e.Code == ce.Code
	}
	return false
}

// WithDetail adds a detail to the error
func (e *CheckError) WithDetail(key string, value interface{}) *CheckError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithSubject adds subject context to the error
func (e *CheckError) WithSubject(subject string) *CheckError {
	e.Subject = subject
	return e
}

// WithURL adds URL context to the error
func (e *CheckError) WithURL(url string) *CheckError {
	e.URL = url
	return e
}

// Constructor functions for common error types

// NewConfigError creates a configuration-related error
func NewConfigError(code ErrorCode, message string, cause error) *CheckError {
	return &CheckError{
		Code:      code,
		Message:   message,
		Operation: "config",
		Cause:     cause,
	}
}

// NewFileError creates a file I/O related error
func NewFileError(code ErrorCode, message string, filename string, cause error) *CheckError {
	return &CheckError{
		Code:      code,
		Message:   message,
		Operation: "file",
		Cause:     cause,
		Details:   map[string]interface{}{"filename": filename},
	}
}

// NewDNSError creates a DNS resolution related error
func NewDNSError(code ErrorCode, message string, hostname string, cause error) *CheckError {
	return &CheckError{
		Code:      code,
		Message:   message,
		Operation: "dns",
		Subject:   hostname,
		Cause:     cause,
	}
}

// NewTransportError creates a connection-level error
func NewTransportError(code ErrorCode, message string, url string, cause error) *CheckError {
	return &CheckError{
		Code:      code,
		Message:   message,
		Operation: "transport",
		URL:       url,
		Cause:     cause,
	}
}

// NewHTTPError creates an HTTP-related error
func NewHTTPError(code ErrorCode, message string, url string, cause error) *CheckError {
	return &CheckError{
		Code:      code,
		Message:   message,
		Operation: "http",
		URL:       url,
		Cause:     cause,
	}
}

// NewSubjectError creates a subject validation error
func NewSubjectError(code ErrorCode, message string, subject string, cause error) *CheckError {
	return &CheckError{
		Code:      code,
		Message:   message,
		Operation: "subject",
		Subject:   subject,
		Cause:     cause,
	}
}

// NewRuleError creates a rule parsing/evaluation error
func NewRuleError(code ErrorCode, message string, cause error) *CheckError {
	return &CheckError{
		Code:      code,
		Message:   message,
		Operation: "rules",
		Cause:     cause,
	}
}

// Error category checking functions

// IsConfigError checks if the error is configuration-related
func IsConfigError(err error) bool {
	if ce, ok := err.(*CheckError); ok {
		return ce.Code >= ErrorConfigNotFound && ce.Code <= ErrorConfigParsingFailed
	}
	return false
}

// IsFileError checks if the error is file I/O related
func IsFileError(err error) bool {
	if ce, ok := err.(*CheckError); ok {
		return ce.Code >= ErrorFileNotFound && ce.Code <= ErrorFileInvalidFormat
	}
	return false
}

// IsDNSError checks if the error is DNS resolution related
func IsDNSError(err error) bool {
	if ce, ok := err.(*CheckError); ok {
		return ce.Code >= ErrorDNSResolutionFailed && ce.Code <= ErrorDNSQueryFailed
	}
	return false
}

// IsTransportError checks if the error is connection-level
func IsTransportError(err error) bool {
	if ce, ok := err.(*CheckError); ok {
		return ce.Code >= ErrorConnectionFailed && ce.Code <= ErrorProxyConnectionFailed
	}
	return false
}

// IsHTTPError checks if the error is HTTP-related
func IsHTTPError(err error) bool {
	if ce, ok := err.(*CheckError); ok {
		return ce.Code >= ErrorHTTPRequestFailed && ce.Code <= ErrorHTTPInvalidResponse
	}
	return false
}

// IsRuleError checks if the error is rule related
func IsRuleError(err error) bool {
	if ce, ok := err.(*CheckError); ok {
		return ce.Code >= ErrorRuleInvalid && ce.Code <= ErrorRuleParsingFailed
	}
	return false
}

// IsRetryable determines if an error should trigger a retry
func IsRetryable(err error) bool {
	if ce, ok := err.(*CheckError); ok {
		switch ce.Code {
		case ErrorConnectionTimeout,
			ErrorConnectionRefused,
			ErrorHTTPRequestFailed,
			ErrorSystemTimeout:
			return true
		}
	}
	return false
}

// IsCritical determines if an error is critical and should stop processing
func IsCritical(err error) bool {
	if ce, ok := err.(*CheckError); ok {
		switch ce.Code {
		case ErrorConfigNotFound,
			ErrorConfigInvalid,
			ErrorFileNotFound,
			ErrorSystemShutdown:
			return true
		}
	}
	return false
}
