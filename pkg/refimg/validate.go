package refimg

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLen is how many leading bytes ValidateUpload inspects.
const SniffLen = 3072

// ValidateUpload checks an upload before any parsing. size may be -1 when
// unknown, in which case the ceiling is enforced while spooling. head holds
// the first bytes of the file; SniffLen bytes are enough.
//
// It returns nil or a *ValidationError.
func ValidateUpload(filename string, size int64, head []byte, opts Options) error {
	if strings.TrimSpace(filename) == "" && len(head) == 0 {
		return NewValidationError("file", ErrNoFile)
	}
	if size > opts.MaxFileSize {
		return NewValidationError("size", fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, size, opts.MaxFileSize))
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !opts.extensionAllowed(ext) {
		return NewValidationError("extension", fmt.Errorf("%w: %q (allowed: %s)",
			ErrExtensionNotAllowed, ext, strings.Join(opts.AllowedExtensions, ", ")))
	}

	if !isZipContent(head) {
		mt := mimetype.Detect(head)
		return NewValidationError("content", fmt.Errorf("%w: detected %s", ErrContentType, mt.String()))
	}
	return nil
}

// isZipContent reports whether head starts a zip archive, which includes
// every OOXML workbook.
func isZipContent(head []byte) bool {
	for mt := mimetype.Detect(head); mt != nil; mt = mt.Parent() {
		if mt.Is("application/zip") {
			return true
		}
	}
	return false
}
