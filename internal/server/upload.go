package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ukaji3/refimg-go/pkg/refimg"
)

// DefaultFileField is the multipart field the upload form uses.
const DefaultFileField = "excel_file"

// multipartSlack covers multipart headers and other form fields on top of
// the workbook itself.
const multipartSlack = 1 << 20

type UploadController struct {
	processor Processor
	history   HistoryStore
	field     string
	maxBody   int64
	logger    *slog.Logger
}

func NewUploadController(processor Processor, store HistoryStore, field string, maxUploadSize int64, logger *slog.Logger) *UploadController {
	var maxBody int64
	if maxUploadSize > 0 {
		maxBody = maxUploadSize + multipartSlack
	}
	return &UploadController{
		processor: processor,
		history:   store,
		field:     field,
		maxBody:   maxBody,
		logger:    logger,
	}
}

// Upload handles POST /upload.
func (u *UploadController) Upload(c *gin.Context) {
	start := time.Now()
	if u.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, u.maxBody)
	}

	fh, err := c.FormFile(u.field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondError(c, http.StatusRequestEntityTooLarge, CodeFileTooLarge, refimg.ErrFileTooLarge.Error())
		case errors.Is(err, http.ErrMissingFile):
			respondError(c, http.StatusBadRequest, CodeNoFile, refimg.ErrNoFile.Error())
		default:
			respondBadRequest(c, "invalid multipart form: "+err.Error())
		}
		return
	}

	file, err := fh.Open()
	if err != nil {
		u.logger.Error("open uploaded file", "error", err)
		respondError(c, http.StatusInternalServerError, CodeInternal, "failed to read uploaded file")
		return
	}
	defer file.Close()

	summary, err := u.processor.Process(c.Request.Context(), refimg.Input{
		Name: fh.Filename,
		Size: fh.Size,
		Body: file,
	})
	if err != nil {
		status, code, message := classify(err)
		if status >= http.StatusInternalServerError {
			u.logger.Error("processing failed", "workbook", fh.Filename, "error", err)
		}
		respondError(c, status, code, message)
		return
	}

	if u.history != nil {
		// Record even if the client has gone away.
		ctx := context.WithoutCancel(c.Request.Context())
		if _, err := u.history.Record(ctx, summary, time.Since(start)); err != nil {
			u.logger.Warn("record history", "workbook", fh.Filename, "error", err)
		}
	}

	c.JSON(http.StatusOK, summary)
}

// classify maps a request-level error to a status, a code and a message
// safe to return to the client.
func classify(err error) (int, string, string) {
	var verr *refimg.ValidationError
	if errors.As(err, &verr) {
		switch verr.Field {
		case "size":
			return http.StatusRequestEntityTooLarge, CodeFileTooLarge, verr.Error()
		case "extension":
			return http.StatusBadRequest, CodeExtensionNotAllowed, verr.Error()
		case "content":
			return http.StatusBadRequest, CodeInvalidContent, verr.Error()
		case "file":
			return http.StatusBadRequest, CodeNoFile, verr.Error()
		}
		return http.StatusBadRequest, CodeBadRequest, verr.Error()
	}

	var ferr *refimg.FormatError
	if errors.As(err, &ferr) {
		if errors.Is(err, refimg.ErrSheetNotFound) {
			return http.StatusUnprocessableEntity, CodeSheetNotFound, ferr.Error()
		}
		return http.StatusUnprocessableEntity, CodeInvalidWorkbook, ferr.Error()
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout, "processing timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, CodeCancelled, "request cancelled"
	}
	return http.StatusInternalServerError, CodeInternal, "internal server error"
}
