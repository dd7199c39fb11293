package parser

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// EMUPerPixel is the number of EMUs (English Metric Units) per pixel at 96 DPI.
// 1 inch = 914400 EMU, 1 inch = 96 pixels at 96 DPI
// Therefore: 914400 / 96 = 9525 EMU per pixel
const EMUPerPixel = 9525

// EMUPerPoint is the number of EMUs per typographic point (1/72 inch).
const EMUPerPoint = 12700

const (
	// defaultColumnPixels is the width of a column with no explicit width
	// (9.140625 characters of the default 11pt font).
	defaultColumnPixels = 64
	// defaultRowPoints is the height of a row with no explicit height.
	defaultRowPoints = 15.0
	// maxDigitWidth is the pixel width of one character of the default font.
	maxDigitWidth = 7
)

// ColumnWidthToPixels converts a stored column width in characters to pixels.
func ColumnWidthToPixels(width float64) int {
	if width <= 0 {
		return 0
	}
	return int(width*maxDigitWidth + 0.5)
}

type colSpan struct {
	min, max int // 1-based, inclusive
	pixels   int // negative when the span uses the sheet default width
}

// sheetGeometry holds the column widths and row heights of a worksheet,
// enough to map an absolute drawing position onto a cell.
type sheetGeometry struct {
	defaultColPixels int
	defaultRowPoints float64
	cols             []colSpan
	rows             map[int]float64 // 1-based row -> height in points
}

// parseSheetGeometry reads sheetFormatPr, cols and row heights from
// worksheet XML. Cell content is not decoded.
func parseSheetGeometry(data []byte) (*sheetGeometry, error) {
	g := &sheetGeometry{
		defaultColPixels: defaultColumnPixels,
		defaultRowPoints: defaultRowPoints,
		rows:             make(map[int]float64),
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "sheetFormatPr":
			g.readFormat(se)
		case "col":
			if span, ok := g.readCol(se); ok {
				g.cols = append(g.cols, span)
			}
		case "row":
			g.readRow(se)
		case "c":
			// Cells carry no geometry.
			if err := decoder.Skip(); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

func (g *sheetGeometry) readFormat(se xml.StartElement) {
	var base, width float64
	for _, attr := range se.Attr {
		v, err := strconv.ParseFloat(attr.Value, 64)
		if err != nil {
			continue
		}
		switch attr.Name.Local {
		case "baseColWidth":
			base = v
		case "defaultColWidth":
			width = v
		case "defaultRowHeight":
			if v > 0 {
				g.defaultRowPoints = v
			}
		}
	}
	switch {
	case width > 0:
		g.defaultColPixels = ColumnWidthToPixels(width)
	case base > 0:
		g.defaultColPixels = int(base)*maxDigitWidth + 5
	}
}

func (g *sheetGeometry) readCol(se xml.StartElement) (colSpan, bool) {
	var span colSpan
	var width float64
	hasWidth, hidden := false, false
	for _, attr := range se.Attr {
		switch attr.Name.Local {
		case "min":
			span.min, _ = strconv.Atoi(attr.Value)
		case "max":
			span.max, _ = strconv.Atoi(attr.Value)
		case "width":
			if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
				width, hasWidth = v, true
			}
		case "hidden":
			hidden = attr.Value == "1" || attr.Value == "true"
		}
	}
	if span.min < 1 || span.max < span.min {
		return span, false
	}
	switch {
	case hidden:
		span.pixels = 0
	case hasWidth:
		span.pixels = ColumnWidthToPixels(width)
	default:
		// Style-only spans keep the default width.
		span.pixels = -1
	}
	return span, true
}

func (g *sheetGeometry) readRow(se xml.StartElement) {
	var r int
	var ht float64
	hasHt, hidden := false, false
	for _, attr := range se.Attr {
		switch attr.Name.Local {
		case "r":
			r, _ = strconv.Atoi(attr.Value)
		case "ht":
			if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
				ht, hasHt = v, true
			}
		case "hidden":
			hidden = attr.Value == "1" || attr.Value == "true"
		}
	}
	if r < 1 {
		return
	}
	switch {
	case hidden:
		g.rows[r] = 0
	case hasHt:
		g.rows[r] = ht
	}
}

// columnEMU returns the width of a zero-based column in EMU.
func (g *sheetGeometry) columnEMU(col int) int64 {
	n := col + 1
	for _, span := range g.cols {
		if n >= span.min && n <= span.max && span.pixels >= 0 {
			return int64(span.pixels) * EMUPerPixel
		}
	}
	return int64(g.defaultColPixels) * EMUPerPixel
}

// rowEMU returns the height of a one-based row in EMU.
func (g *sheetGeometry) rowEMU(row int) int64 {
	pt, ok := g.rows[row]
	if !ok {
		pt = g.defaultRowPoints
	}
	return int64(pt * EMUPerPoint)
}

// cellAt maps an absolute position in EMU to the cell that contains it,
// returning a zero-based column and a one-based row. A position on a
// boundary belongs to the cell to its right or below.
func (g *sheetGeometry) cellAt(x, y int64) (col, row int) {
	var acc int64
	for col = 0; col < excelize.MaxColumns-1; col++ {
		acc += g.columnEMU(col)
		if x < acc {
			break
		}
	}

	acc = 0
	for row = 1; row < excelize.TotalRows; row++ {
		acc += g.rowEMU(row)
		if y < acc {
			break
		}
	}
	return col, row
}
