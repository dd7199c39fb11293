package parser

import (
	"github.com/ukaji3/refimg-go/pkg/refimg/models"
	"github.com/xuri/excelize/v2"
)

// ParseSheet reads the cell grid of a worksheet in document order.
// An empty sheet name selects the first worksheet.
// Shared and inline strings are resolved to their text and stay strings even
// when they look numeric; numbers keep their stored form in Text.
func ParseSheet(wb *Workbook, sheet string) (*models.Grid, error) {
	info, err := wb.Sheet(sheet)
	if err != nil {
		return nil, err
	}
	f, err := wb.Excel()
	if err != nil {
		return nil, err
	}

	rows, err := f.Rows(info.Name)
	if err != nil {
		return nil, formatError(info.Part, err)
	}
	defer rows.Close()

	var result []models.CellRow
	rowNum := 0
	for rows.Next() {
		rowNum++ // 1-based row index
		values, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, formatError(info.Part, err)
		}

		cells := make(map[models.Column]models.Cell)
		for colIdx, raw := range values {
			if raw == "" {
				continue
			}
			name, err := excelize.CoordinatesToCellName(colIdx+1, rowNum)
			if err != nil {
				return nil, formatError(info.Part, err)
			}
			typ, err := f.GetCellType(info.Name, name)
			if err != nil {
				return nil, formatError(info.Part, err)
			}
			col := models.Column(colIdx)
			cells[col] = models.Cell{
				Row:    rowNum,
				Column: col,
				Value:  models.TypedValue(raw, isTextCell(typ)),
			}
		}
		if len(cells) > 0 {
			result = append(result, models.CellRow{R: rowNum, Cells: cells})
		}
	}
	if err := rows.Error(); err != nil {
		return nil, formatError(info.Part, err)
	}

	return models.NewGrid(info.Name, result), nil
}

// isTextCell reports whether the cell type attribute marks a string. Formula
// results carry no reliable type and are classified by their text.
func isTextCell(typ excelize.CellType) bool {
	return typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString
}
