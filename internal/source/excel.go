package source

// excel.go parses an uploaded Excel workbook into one normalized table per
// worksheet. excelize already renders every cell as a string, so the only
// work here is trimming trailing blank rows/columns and enforcing the
// header-width invariant.

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gridport/gridport/internal/normalize"
)

// Excel parses uploaded workbooks.
type Excel struct {
	maxBytes int64
}

// NewExcel creates the adapter. maxBytes caps the accepted upload size.
func NewExcel(maxBytes int64) *Excel {
	return &Excel{maxBytes: maxBytes}
}

// Parse converts workbook bytes into named tables, one per non-empty
// worksheet, in workbook order.
func (e *Excel) Parse(data []byte) ([]NamedTable, error) {
	if e.maxBytes > 0 && int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("file too large: %d bytes exceeds the %d byte limit", len(data), e.maxBytes)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid excel file: %w", err)
	}
	defer wb.Close()

	var tables []NamedTable
	for _, sheetName := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("read worksheet %q: %w", sheetName, err)
		}

		rows = trimBlank(rows)
		if len(rows) == 0 {
			continue
		}

		tables = append(tables, NamedTable{
			Name:  sheetName,
			Table: normalize.FromRows(rows),
		})
	}

	return tables, nil
}

// trimBlank drops trailing all-blank rows and trailing all-blank columns.
// Interior blanks are data and stay.
func trimBlank(rows [][]string) [][]string {
	lastRow := -1
	width := 0
	for i, row := range rows {
		rowWidth := lastFilled(row) + 1
		if rowWidth > 0 {
			lastRow = i
		}
		if rowWidth > width {
			width = rowWidth
		}
	}
	if lastRow < 0 {
		return nil
	}

	trimmed := make([][]string, 0, lastRow+1)
	for _, row := range rows[:lastRow+1] {
		cells := make([]string, width)
		copy(cells, row)
		trimmed = append(trimmed, cells)
	}
	return trimmed
}

// lastFilled returns the index of the last non-blank cell, or -1.
func lastFilled(row []string) int {
	for i := len(row) - 1; i >= 0; i-- {
		if strings.TrimSpace(row[i]) != "" {
			return i
		}
	}
	return -1
}
