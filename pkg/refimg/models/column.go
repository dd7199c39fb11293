package models

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column identifies a worksheet column by its zero-based index.
// Column 0 is "A", column 25 is "Z", column 26 is "AA".
type Column int

// ParseColumn converts a column name such as "H" or "aa" to a Column.
func ParseColumn(name string) (Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	n, err := excelize.ColumnNameToNumber(name)
	if err != nil {
		return 0, err
	}
	return Column(n - 1), nil
}

// MustParseColumn is like ParseColumn but panics on invalid input.
// It is intended for constants and tests.
func MustParseColumn(name string) Column {
	c, err := ParseColumn(name)
	if err != nil {
		panic(err)
	}
	return c
}

// ColumnFromNumber converts a one-based column number to a Column.
func ColumnFromNumber(n int) (Column, error) {
	if n < 1 || n > excelize.MaxColumns {
		return 0, fmt.Errorf("column number %d out of range", n)
	}
	return Column(n - 1), nil
}

// Number returns the one-based column number.
func (c Column) Number() int {
	return int(c) + 1
}

// String returns the column letters, or "?" for an out of range value.
func (c Column) String() string {
	name, err := excelize.ColumnNumberToName(c.Number())
	if err != nil {
		return "?"
	}
	return name
}

// MarshalText encodes the column as its letters.
func (c Column) MarshalText() ([]byte, error) {
	name, err := excelize.ColumnNumberToName(c.Number())
	if err != nil {
		return nil, err
	}
	return []byte(name), nil
}

// UnmarshalText decodes column letters.
func (c *Column) UnmarshalText(text []byte) error {
	v, err := ParseColumn(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
