package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Studio error code.
type ErrorCode string

const (
	ErrInvalidRequest             ErrorCode = "INVALID_REQUEST"              // 400
	ErrNotFound                   ErrorCode = "NOT_FOUND"                    // 404
	ErrFileNotFound               ErrorCode = "FILE_NOT_FOUND"               // 404
	ErrDuplicateID                ErrorCode = "DUPLICATE_ID"                 // 409
	ErrCorruptSnapshot            ErrorCode = "CORRUPT_SNAPSHOT"             // 422
	ErrUnsupportedSnapshotVersion ErrorCode = "UNSUPPORTED_SNAPSHOT_VERSION" // 422
	ErrRateLimited                ErrorCode = "RATE_LIMITED"                 // 429
	ErrCancelled                  ErrorCode = "CANCELLED"                    // 499
	ErrInternal                   ErrorCode = "INTERNAL"                     // 500
)

// StudioError represents a structured error with code, status, and details.
type StudioError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *StudioError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *StudioError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *StudioError {
	return &StudioError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing project or notification.
func NewNotFound(kind, id string) *StudioError {
	return &StudioError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *StudioError {
	return &StudioError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewDuplicateID creates a 409 error when strict id mode rejects a project.
func NewDuplicateID(id string) *StudioError {
	return &StudioError{
		Code:    ErrDuplicateID,
		Status:  409,
		Message: fmt.Sprintf("project with id %q already exists", id),
		Details: map[string]any{"id": id},
	}
}

// NewCorruptSnapshot creates a 422 error for a stored blob that cannot be decoded.
func NewCorruptSnapshot(key string, err error) *StudioError {
	msg := fmt.Sprintf("snapshot %q is corrupt", key)
	if err != nil {
		msg = fmt.Sprintf("snapshot %q is corrupt: %v", key, err)
	}
	return &StudioError{
		Code:    ErrCorruptSnapshot,
		Status:  422,
		Message: msg,
		Details: map[string]any{"key": key},
		cause:   err,
	}
}

// NewUnsupportedSnapshotVersion creates a 422 error for a blob written by a newer build.
func NewUnsupportedSnapshotVersion(key string, got, max int) *StudioError {
	return &StudioError{
		Code:    ErrUnsupportedSnapshotVersion,
		Status:  422,
		Message: fmt.Sprintf("snapshot %q has version %d (max supported %d)", key, got, max),
		Details: map[string]any{"key": key, "version": got, "max_version": max},
	}
}

// NewRateLimited creates a 429 error when the HTTP API refuses a request.
func NewRateLimited() *StudioError {
	return &StudioError{
		Code:    ErrRateLimited,
		Status:  429,
		Message: "too many requests, slow down",
	}
}

// NewCancelled creates a 499 error when an operation is cancelled by its context.
func NewCancelled(op string) *StudioError {
	return &StudioError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *StudioError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &StudioError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// As returns the first StudioError in err's chain.
func As(err error) (*StudioError, bool) {
	var sErr *StudioError
	if stderrors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}

// Is checks if an error (or anything it wraps) is a StudioError with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := As(err); ok {
		return sErr.Code == code
	}
	return false
}
