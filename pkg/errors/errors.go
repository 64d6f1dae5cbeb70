// Package errors provides structured error handling for the application.
// It defines AppError type with error codes for consistent API responses.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002
	CodeUnauthorized  = 1003

	// Submission errors (1100-1199)
	CodeSubmitFailed      = 1100
	CodeSubmitBadResponse = 1101
	CodeMissingImage      = 1102
	CodeMissingPrompt     = 1103

	// Polling errors (1200-1299)
	CodePollFailed      = 1200
	CodePollBadResponse = 1201
	CodeJobFailed       = 1202
	CodePollTimeout     = 1203

	// Result fetch errors (1300-1399)
	CodeFetchFailed = 1300
	CodeImageDecode = 1301

	// Storage errors (1400-1499)
	CodeDBError        = 1400
	CodeFileNotFound   = 1401
	CodeFileWriteError = 1402

	// Prompt enhancement errors (1500-1599)
	CodePromptEnhance = 1500
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Predefined common errors
var (
	ErrInvalidParams = New(CodeInvalidParams, "Invalid parameters")
	ErrNotFound      = New(CodeNotFound, "Resource not found")
	ErrUnauthorized  = New(CodeUnauthorized, "Unauthorized")

	// Submission
	ErrSubmitFailed      = New(CodeSubmitFailed, "Job submission failed")
	ErrSubmitBadResponse = New(CodeSubmitBadResponse, "Job submission returned no task id")

	// Polling
	ErrPollFailed  = New(CodePollFailed, "Status check failed")
	ErrPollTimeout = New(CodePollTimeout, "Processing timed out, please try again")
	ErrJobFailed   = New(CodeJobFailed, "Processing failed on the server")

	// Result fetch
	ErrFetchFailed = New(CodeFetchFailed, "Result download failed")
	ErrImageDecode = New(CodeImageDecode, "Result image could not be decoded")

	// Storage
	ErrDBError      = New(CodeDBError, "Database error")
	ErrFileNotFound = New(CodeFileNotFound, "File not found")
)
