// Package models defines data structures for workbook image publishing.
package models

import (
	"math"
	"strconv"
)

// ValueKind is the resolved kind of a cell value.
type ValueKind int

const (
	// KindEmpty marks a cell with no value.
	KindEmpty ValueKind = iota
	// KindString marks shared-string, inline-string and formula string values.
	KindString
	// KindNumber marks numeric values.
	KindNumber
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	default:
		return "empty"
	}
}

// CellValue is a string, a number, or empty.
type CellValue struct {
	Kind ValueKind
	// Text is the value as stored in the worksheet. For numbers this keeps
	// the raw form, so "00123" is not reduced to "123".
	Text   string
	Number float64
}

// Cell is a single parsed worksheet cell.
type Cell struct {
	// Row is the row number (1-based).
	Row    int
	Column Column
	Value  CellValue
}

// CellRow holds the non-empty cells of one row.
type CellRow struct {
	// R is the row number (1-based).
	R     int
	Cells map[Column]Cell
}

// Grid is the parsed cell content of one worksheet.
type Grid struct {
	Sheet string
	rows  map[int]CellRow
}

// NewGrid builds a grid from parsed rows. Rows with no cells are dropped.
func NewGrid(sheet string, rows []CellRow) *Grid {
	g := &Grid{Sheet: sheet, rows: make(map[int]CellRow, len(rows))}
	for _, r := range rows {
		if len(r.Cells) == 0 {
			continue
		}
		g.rows[r.R] = r
	}
	return g
}

// Cell returns the cell at row/column, and whether it has a value.
func (g *Grid) Cell(row int, col Column) (Cell, bool) {
	r, ok := g.rows[row]
	if !ok {
		return Cell{}, false
	}
	c, ok := r.Cells[col]
	return c, ok
}

// LastRowIn returns the last row with a value in col, or 0 if there is none.
func (g *Grid) LastRowIn(col Column) int {
	last := 0
	for n, r := range g.rows {
		if _, ok := r.Cells[col]; ok && n > last {
			last = n
		}
	}
	return last
}

// TypedValue builds a value from a raw cell string and the type recorded for
// the cell. A string-typed cell is KindString whatever its text looks like.
func TypedValue(s string, text bool) CellValue {
	if text && s != "" {
		return CellValue{Kind: KindString, Text: s}
	}
	return ParseValue(s)
}

// ParseValue classifies a raw cell string by its text alone.
// Integers and decimals become KindNumber, anything else non-empty is KindString.
func ParseValue(s string) CellValue {
	if s == "" {
		return CellValue{Kind: KindEmpty}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return CellValue{Kind: KindNumber, Text: s, Number: float64(i)}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return CellValue{Kind: KindNumber, Text: s, Number: f}
	}
	return CellValue{Kind: KindString, Text: s}
}
