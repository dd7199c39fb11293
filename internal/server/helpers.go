package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every request-level failure.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

// Error codes.
const (
	CodeNoFile              = "no_file"
	CodeFileTooLarge        = "file_too_large"
	CodeExtensionNotAllowed = "extension_not_allowed"
	CodeInvalidContent      = "invalid_content"
	CodeInvalidWorkbook     = "invalid_workbook"
	CodeSheetNotFound       = "sheet_not_found"
	CodeTimeout             = "timeout"
	CodeCancelled           = "cancelled"
	CodeInternal            = "internal_error"
	CodeNotFound            = "not_found"
	CodeHistoryDisabled     = "history_disabled"
	CodeBadRequest          = "bad_request"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, CodeBadRequest, message)
}
