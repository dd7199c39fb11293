// Package output serializes processing reports.
package output

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/ukaji3/refimg-go/pkg/refimg/models"
)

// ToJSON serializes a report summary to JSON.
func ToJSON(summary *models.ReportSummary, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, summary, pretty); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WriteJSON writes v to w as JSON followed by a newline. Non-ASCII text is
// written as is, so reference codes like "MÉDIA" stay readable.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
