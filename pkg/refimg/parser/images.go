package parser

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ukaji3/refimg-go/pkg/refimg/models"
)

// ImageSet is the result of resolving the pictures of a worksheet.
type ImageSet struct {
	Sheet string
	// Images are in document order: drawing parts in relationship order,
	// anchors in the order they appear in each drawing.
	Images  []models.EmbeddedImage
	Skipped []models.SkippedImage
}

// contentTypeExtensions maps image content types to file extensions.
var contentTypeExtensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/pjpeg":   "jpg",
	"image/gif":     "gif",
	"image/bmp":     "bmp",
	"image/x-bmp":   "bmp",
	"image/tiff":    "tiff",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
	"image/x-emf":   "emf",
	"image/x-wmf":   "wmf",
	"image/x-icon":  "ico",
}

// NormalizeExtension lowercases an extension, drops a leading dot and folds
// common aliases (jpeg -> jpg, tif -> tiff).
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	switch ext {
	case "jpeg", "jpe", "jfif":
		return "jpg"
	case "tif":
		return "tiff"
	}
	return ext
}

// ResolveImages returns the pictures anchored on a worksheet. An empty sheet
// name selects the first worksheet.
//
// Anchor mapping: two-cell and one-cell anchors use their "from" cell and
// ignore the offset inside that cell. Absolute anchors are mapped to the
// cell that contains their top-left position, computed from the sheet's
// column widths and row heights. That mapping is approximate; a picture
// placed across a boundary belongs to the cell its corner falls in.
//
// Pictures whose relationship or media part is missing are reported in
// Skipped and do not fail the call.
func ResolveImages(wb *Workbook, sheet string) (*ImageSet, error) {
	info, err := wb.Sheet(sheet)
	if err != nil {
		return nil, err
	}

	set := &ImageSet{Sheet: info.Name}

	rels, err := wb.readRelationships(info.Part)
	if err != nil {
		return nil, err
	}

	var geometry *sheetGeometry
	cellFor := func(pic drawingPicture) (models.Column, int, error) {
		if pic.kind != models.AnchorAbsolute {
			return models.Column(pic.fromCol), pic.fromRow + 1, nil
		}
		if geometry == nil {
			data, err := wb.ReadPart(info.Part)
			if err != nil {
				return 0, 0, err
			}
			geometry, err = parseSheetGeometry(data)
			if err != nil {
				return 0, 0, &FormatError{Part: info.Part, Err: err}
			}
		}
		col, row := geometry.cellAt(pic.x, pic.y)
		return models.Column(col), row, nil
	}

	for _, rel := range rels {
		if !rel.isType(relDrawing) || rel.external() {
			continue
		}
		drawingPart := resolveTarget(info.Part, rel.Target)
		data, err := wb.ReadPart(drawingPart)
		if err != nil {
			return nil, err
		}
		pics, err := parseDrawingXML(data)
		if err != nil {
			return nil, &FormatError{Part: drawingPart, Err: err}
		}
		if len(pics) == 0 {
			continue
		}

		drawingRels, err := wb.readRelationships(drawingPart)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]relationship, len(drawingRels))
		for _, r := range drawingRels {
			byID[r.ID] = r
		}

		for _, pic := range pics {
			col, row, err := cellFor(pic)
			if err != nil {
				return nil, err
			}
			img, reason := wb.loadPicture(drawingPart, pic, byID)
			if reason != "" {
				set.Skipped = append(set.Skipped, models.SkippedImage{
					AnchorRow:    row,
					AnchorColumn: col,
					Part:         img.Part,
					Reason:       reason,
				})
				continue
			}
			img.AnchorRow = row
			img.AnchorColumn = col
			set.Images = append(set.Images, img)
		}
	}

	return set, nil
}

// loadPicture reads the media part a picture refers to. A non-empty reason
// means the picture was skipped.
func (wb *Workbook) loadPicture(drawingPart string, pic drawingPicture, rels map[string]relationship) (models.EmbeddedImage, string) {
	img := models.EmbeddedImage{Anchor: pic.kind, Name: pic.name}

	if pic.embed == "" {
		if pic.link != "" {
			return img, "linked picture is not embedded"
		}
		return img, "picture has no image reference"
	}
	rel, ok := rels[pic.embed]
	if !ok {
		return img, fmt.Sprintf("relationship %s not found", pic.embed)
	}
	if rel.external() {
		return img, "picture refers to an external file"
	}

	img.Part = resolveTarget(drawingPart, rel.Target)
	data, err := wb.ReadPart(img.Part)
	if err != nil {
		if errors.Is(err, ErrPartNotFound) {
			return img, "media part missing"
		}
		return img, err.Error()
	}
	if len(data) == 0 {
		return img, "media part is empty"
	}

	img.Bytes = data
	img.DeclaredExtension = wb.extensionFor(img.Part, data)
	return img, ""
}

// extensionFor infers the file extension of a media part from its declared
// content type, then its name, then its bytes.
func (wb *Workbook) extensionFor(part string, data []byte) string {
	if ct, err := wb.contentTypes(); err == nil {
		declared := strings.ToLower(strings.TrimSpace(ct.lookup(part)))
		if ext, ok := contentTypeExtensions[declared]; ok {
			return ext
		}
	}
	if ext := NormalizeExtension(path.Ext(part)); ext != "" && ext != "bin" {
		return ext
	}
	return SniffExtension(data)
}

// SniffExtension guesses an image extension from its leading bytes.
// It returns "" when the bytes are not a recognised image.
func SniffExtension(data []byte) string {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return ""
	}
	return NormalizeExtension(mt.Extension())
}
