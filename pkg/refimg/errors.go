package refimg

import (
	"errors"
	"fmt"

	"github.com/ukaji3/refimg-go/pkg/refimg/parser"
)

// ErrFileTooLarge indicates the workbook exceeds the configured size ceiling.
var ErrFileTooLarge = errors.New("file too large")

// ErrExtensionNotAllowed indicates the file name has an extension outside the allowed set.
var ErrExtensionNotAllowed = errors.New("file extension not allowed")

// ErrContentType indicates the file content is not a zip-based workbook.
var ErrContentType = errors.New("file content is not an xlsx workbook")

// ErrNoFile indicates the request carried no workbook.
var ErrNoFile = errors.New("no file uploaded")

// Format errors raised while reading the workbook package.
var (
	ErrInvalidContainer = parser.ErrInvalidContainer
	ErrPartNotFound     = parser.ErrPartNotFound
	ErrSheetNotFound    = parser.ErrSheetNotFound
)

// FormatError represents a malformed or unreadable workbook.
type FormatError = parser.FormatError

// ValidationError represents an upload rejected before parsing.
type ValidationError struct {
	Field string // "file", "size", "extension", "content"
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid upload (%s): %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{
		Field: field,
		Err:   err,
	}
}
