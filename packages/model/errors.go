package model

import "fmt"

// AppErrorCode represents gRPC-style error codes for application-level errors.
// note that we are skipping error codes that don't make sense for our use-case,
// like unauthenticated, or permission denied.
type AppErrorCode int

const (
	// OK indicates the operation completed successfully.
	OK AppErrorCode = 0

	// Unknown error.
	Unknown AppErrorCode = 2

	// InvalidArgument indicates client specified an invalid argument, such as
	// a malformed cell address or an unknown command type.
	InvalidArgument AppErrorCode = 3

	// NotFound means some requested entity (e.g., sheet) was not found.
	NotFound AppErrorCode = 5

	// FailedPrecondition indicates operation was rejected because the
	// model is not in a state required for the operation's execution.
	FailedPrecondition AppErrorCode = 9

	// Unimplemented indicates a workbook version or feature this build does
	// not know about.
	Unimplemented AppErrorCode = 12

	// Internal errors. Means some invariants expected by underlying
	// system has been broken.
	Internal AppErrorCode = 13
)

// AppError represents errors at the application level (not
// spreadsheet formula errors)
type AppError struct {
	Code    AppErrorCode
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// NewApplicationError creates a new application error
func NewApplicationError(code AppErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func appErrorf(code AppErrorCode, format string, args ...any) *AppError {
	return NewApplicationError(code, fmt.Sprintf(format, args...))
}
