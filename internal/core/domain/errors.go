package domain

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes operation failures.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates malformed or missing caller input,
	// e.g. a partial update with no fields supplied.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeNotFound indicates a well-formed reference to an entity or
	// relationship that does not exist. Expected for lookups and deletes.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeConstraintViolation indicates a schema-level rejection:
	// duplicate name, dangling foreign key, duplicate catalog pair.
	ErrCodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"

	// ErrCodeStorageFailure indicates a connectivity or unexpected engine
	// error. The only class worth logging loudly.
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
)

// Error is a classified operation failure carrying the underlying cause.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewInvalidArgument(message string) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: message}
}

func NewNotFound(message string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: message}
}

func NewConstraintViolation(message string, err error) *Error {
	return &Error{Code: ErrCodeConstraintViolation, Message: message, Err: err}
}

func NewStorageFailure(message string, err error) *Error {
	return &Error{Code: ErrCodeStorageFailure, Message: message, Err: err}
}

// IsInvalidArgument reports whether err is an InvalidArgument failure.
// Uses errors.As to handle wrapped errors.
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrCodeInvalidArgument)
}

// IsNotFound reports whether err is a NotFound failure.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsConstraintViolation reports whether err is a ConstraintViolation failure.
func IsConstraintViolation(err error) bool {
	return hasCode(err, ErrCodeConstraintViolation)
}

// IsStorageFailure reports whether err is a StorageFailure.
func IsStorageFailure(err error) bool {
	return hasCode(err, ErrCodeStorageFailure)
}

func hasCode(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
