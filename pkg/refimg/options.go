// Package refimg publishes the images embedded in a workbook under the
// reference code written on the same row.
package refimg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ukaji3/refimg-go/pkg/refimg/models"
)

// DefaultMaxFileSize is the default workbook size ceiling (50 MiB).
const DefaultMaxFileSize = 50 << 20

// DefaultInvalidTokens returns the aggregate and label markers rejected as
// reference codes, in English and Portuguese.
func DefaultInvalidTokens() []string {
	return []string{
		"TOTAL", "SUBTOTAL", "SUM", "COUNT", "AVERAGE", "MAX", "MIN",
		"TOTAIS", "SUBTOTAIS", "SOMA", "CONTAGEM", "MÉDIA", "MÁXIMO", "MÍNIMO",
	}
}

// Options configures workbook processing.
type Options struct {
	// Sheet names the worksheet to read. Empty selects the first worksheet.
	Sheet string
	// ReferenceColumn holds the reference codes.
	ReferenceColumn models.Column
	// ImageColumn is where images are expected. It is informational: pairing
	// uses the anchor row whatever the column.
	ImageColumn models.Column
	// StartRow is the first data row (1-based).
	StartRow int
	// InvalidTokens are compared case-insensitively against trimmed references.
	InvalidTokens []string
	// MaxFileSize is the workbook size ceiling in bytes.
	MaxFileSize int64
	// AllowedExtensions are file name extensions without the dot.
	AllowedExtensions []string
	// InCellImages also collects pictures stored as cell values.
	InCellImages bool
	// RequestTimeout bounds one Process call. Zero means no limit.
	RequestTimeout time.Duration
	// MaxPartSize bounds a single decompressed package part.
	MaxPartSize int64
	// TempDir is where uploaded workbooks are spooled.
	TempDir string
}

// DefaultOptions returns default processing options.
func DefaultOptions() Options {
	return Options{
		ReferenceColumn:   models.MustParseColumn("A"),
		ImageColumn:       models.MustParseColumn("H"),
		StartRow:          4,
		InvalidTokens:     DefaultInvalidTokens(),
		MaxFileSize:       DefaultMaxFileSize,
		AllowedExtensions: []string{"xlsx"},
		InCellImages:      true,
		RequestTimeout:    5 * time.Minute,
	}
}

// Validate reports impossible option values.
func (o Options) Validate() error {
	var errs []error
	if o.StartRow < 1 {
		errs = append(errs, fmt.Errorf("start row must be at least 1, got %d", o.StartRow))
	}
	if o.ReferenceColumn < 0 || o.ReferenceColumn.String() == "?" {
		errs = append(errs, fmt.Errorf("reference column %d out of range", o.ReferenceColumn))
	}
	if o.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("max file size must be positive, got %d", o.MaxFileSize))
	}
	if len(o.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("at least one allowed extension is required"))
	}
	if o.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("request timeout must not be negative, got %s", o.RequestTimeout))
	}
	return errors.Join(errs...)
}

// tokenSet returns the invalid tokens uppercased for lookup.
func (o Options) tokenSet() map[string]bool {
	return TokenSet(o.InvalidTokens)
}

// TokenSet builds a case-insensitive lookup set from tokens.
func TokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			set[t] = true
		}
	}
	return set
}

func (o Options) extensionAllowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range o.AllowedExtensions {
		if strings.ToLower(strings.TrimPrefix(strings.TrimSpace(a), ".")) == ext {
			return true
		}
	}
	return false
}
