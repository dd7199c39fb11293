package refimg

import (
	"strings"
	"unicode"

	"github.com/ukaji3/refimg-go/pkg/refimg/models"
)

// NormalizeReference trims the raw cell text of a reference.
// Case is preserved; comparisons against invalid tokens uppercase it.
func NormalizeReference(raw string) string {
	return strings.TrimSpace(raw)
}

// ValidateReferences reads the reference column from startRow down to its
// last non-empty row and returns one Reference per non-empty row.
// Empty rows produce nothing. invalidTokens is a set built with TokenSet.
func ValidateReferences(grid *models.Grid, col models.Column, startRow int, invalidTokens map[string]bool) []models.Reference {
	if startRow < 1 {
		startRow = 1
	}
	last := grid.LastRowIn(col)

	var refs []models.Reference
	for row := startRow; row <= last; row++ {
		cell, ok := grid.Cell(row, col)
		if !ok {
			continue
		}
		ref, ok := validateReference(row, cell.Value.Text, invalidTokens)
		if !ok {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// validateReference classifies one raw value. ok is false for blank text.
func validateReference(row int, raw string, invalidTokens map[string]bool) (ref models.Reference, ok bool) {
	code := NormalizeReference(raw)
	if code == "" {
		return models.Reference{}, false
	}

	ref = models.Reference{Row: row, RawText: raw, NormalizedCode: code, IsValid: true}
	switch {
	case invalidTokens[strings.ToUpper(code)]:
		ref.IsValid = false
		ref.Reason = models.ReasonInvalidToken
	case unsafeCode(code):
		ref.IsValid = false
		ref.Reason = models.ReasonUnsafe
	}
	return ref, true
}

// unsafeCode reports codes that cannot be used as a single path segment.
func unsafeCode(code string) bool {
	if code == "." || code == ".." {
		return true
	}
	return strings.IndexFunc(code, func(r rune) bool {
		return r == '/' || r == '\\' || unicode.IsControl(r)
	}) >= 0
}
