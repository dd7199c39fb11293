package upload

import (
	"errors"
	"fmt"
)

// Category classifies a failed upload.
type Category string

const (
	AuthFailure      Category = "AuthFailure"
	ConnectFailure   Category = "ConnectFailure"
	TransferFailure  Category = "TransferFailure"
	DirectoryFailure Category = "DirectoryFailure"
)

// ErrExists is returned by Session.MakeDir when the directory is already there.
var ErrExists = errors.New("already exists")

// ErrUnsupported is returned by a Session that cannot perform an optional operation.
var ErrUnsupported = errors.New("operation not supported")

// ErrSizeMismatch indicates the stored object is not the size that was sent.
var ErrSizeMismatch = errors.New("remote size mismatch")

// Error wraps a transfer failure with its category and a retry hint.
type Error struct {
	Category  Category
	Retryable bool
	Op        string
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Category, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrapError(category Category, retryable bool, op string, err error) *Error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	return &Error{Category: category, Retryable: retryable, Op: op, Err: err}
}

// CategoryOf returns the category of err, or TransferFailure when err is not an *Error.
func CategoryOf(err error) Category {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Category
	}
	return TransferFailure
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Retryable
}
