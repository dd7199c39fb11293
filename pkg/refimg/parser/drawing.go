package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/ukaji3/refimg-go/pkg/refimg/models"
)

// drawingPicture is one pic element with the anchor it belongs to.
type drawingPicture struct {
	kind models.AnchorKind
	// fromCol and fromRow are zero-based, as stored in xdr:from.
	fromCol int
	fromRow int
	// x and y are the absoluteAnchor position in EMU.
	x, y int64

	name  string
	embed string
	link  string
}

// parseDrawingXML returns every picture in a drawing part in document order.
func parseDrawingXML(data []byte) ([]drawingPicture, error) {
	var results []drawingPicture

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
		case "twoCellAnchor":
			pics, err := parseAnchor(decoder, models.AnchorTwoCell)
			if err != nil {
				return nil, err
			}
			results = append(results, pics...)
		case "oneCellAnchor":
			pics, err := parseAnchor(decoder, models.AnchorOneCell)
			if err != nil {
				return nil, err
			}
			results = append(results, pics...)
		case "absoluteAnchor":
			pics, err := parseAnchor(decoder, models.AnchorAbsolute)
			if err != nil {
				return nil, err
			}
			results = append(results, pics...)
		case "Fallback":
			if err := decoder.Skip(); err != nil {
				return nil, err
			}
		}
	}

	return results, nil
}

// parseAnchor reads one anchor element. Pictures nested in group shapes
// share the anchor of the group.
func parseAnchor(decoder *xml.Decoder, kind models.AnchorKind) ([]drawingPicture, error) {
	var pics []drawingPicture
	var fromCol, fromRow int
	var x, y int64
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "from":
				col, row, err := parseMarker(decoder)
				if err != nil {
					return nil, err
				}
				fromCol, fromRow = col, row
				depth--
			case "pos":
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "x":
						v, err := strconv.ParseInt(attr.Value, 10, 64)
						if err != nil {
							return nil, fmt.Errorf("absolute anchor x: %w", err)
						}
						x = v
					case "y":
						v, err := strconv.ParseInt(attr.Value, 10, 64)
						if err != nil {
							return nil, fmt.Errorf("absolute anchor y: %w", err)
						}
						y = v
					}
				}
			case "pic":
				pic, err := parsePicture(decoder)
				if err != nil {
					return nil, err
				}
				pics = append(pics, pic)
				depth--
			case "Fallback":
				if err := decoder.Skip(); err != nil {
					return nil, err
				}
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}

	for i := range pics {
		pics[i].kind = kind
		pics[i].fromCol = fromCol
		pics[i].fromRow = fromRow
		pics[i].x = x
		pics[i].y = y
	}
	return pics, nil
}

// parseMarker reads xdr:from. The colOff/rowOff offsets are dropped: an
// image whose corner sits inside a cell belongs to that cell.
func parseMarker(decoder *xml.Decoder) (col, row int, err error) {
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return 0, 0, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "col", "row":
				text, err := readElementText(decoder)
				if err != nil {
					return 0, 0, err
				}
				v, err := strconv.Atoi(text)
				if err != nil || v < 0 {
					return 0, 0, fmt.Errorf("anchor %s %q is not a cell index", t.Name.Local, text)
				}
				if t.Name.Local == "col" {
					col = v
				} else {
					row = v
				}
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return col, row, nil
}

// parsePicture reads a pic element for its name and blip relationship ids.
func parsePicture(decoder *xml.Decoder) (drawingPicture, error) {
	var pic drawingPicture
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return pic, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "cNvPr":
				for _, attr := range t.Attr {
					if attr.Name.Local == "name" {
						pic.name = attr.Value
					}
				}
			case "blip":
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "embed":
						pic.embed = attr.Value
					case "link":
						pic.link = attr.Value
					}
				}
			}
		case xml.EndElement:
			depth--
		}
	}

	return pic, nil
}
