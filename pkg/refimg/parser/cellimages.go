package parser

import (
	"github.com/ukaji3/refimg-go/pkg/refimg/models"
	"github.com/xuri/excelize/v2"
)

// CellKey identifies a cell by one-based row and column.
type CellKey struct {
	Row    int
	Column models.Column
}

// ResolveInCellImages returns pictures that excelize reports for cells of
// the worksheet, such as images placed in a cell or inserted with DISPIMG.
// Cells listed in taken are skipped, so pictures already recovered from a
// drawing part are not returned twice.
func ResolveInCellImages(wb *Workbook, sheet string, taken map[CellKey]bool) ([]models.EmbeddedImage, error) {
	info, err := wb.Sheet(sheet)
	if err != nil {
		return nil, err
	}
	f, err := wb.Excel()
	if err != nil {
		return nil, err
	}

	cells, err := f.GetPictureCells(info.Name)
	if err != nil {
		return nil, formatError(info.Part, err)
	}

	var images []models.EmbeddedImage
	for _, cell := range cells {
		colNum, row, err := excelize.CellNameToCoordinates(cell)
		if err != nil {
			continue
		}
		col, err := models.ColumnFromNumber(colNum)
		if err != nil {
			continue
		}
		key := CellKey{Row: row, Column: col}
		if taken[key] {
			continue
		}

		pics, err := f.GetPictures(info.Name, cell)
		if err != nil {
			continue
		}
		for _, pic := range pics {
			if len(pic.File) == 0 {
				continue
			}
			ext := NormalizeExtension(pic.Extension)
			if ext == "" {
				ext = SniffExtension(pic.File)
			}
			images = append(images, models.EmbeddedImage{
				AnchorRow:         key.Row,
				AnchorColumn:      key.Column,
				Anchor:            models.AnchorInCell,
				Bytes:             pic.File,
				DeclaredExtension: ext,
			})
		}
	}
	return images, nil
}
