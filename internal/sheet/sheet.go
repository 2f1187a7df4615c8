// Package sheet is the xlsx codec: it turns an uploaded workbook into
// ordered header-keyed rows for the importer, and entity rows back
// into a workbook for the export endpoints.
package sheet

import (
	"fmt"
	"io"

	"github.com/takaful-app/takaful/internal/importer"
	"github.com/xuri/excelize/v2"
)

// ContentType is the xlsx MIME type sent on export responses.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReadRows parses the first sheet of an uploaded workbook. The first
// row is the header; every following row becomes a header-keyed map in
// file order. Cells beyond the header width are ignored, missing
// trailing cells read as empty.
func ReadRows(r io.Reader) ([]importer.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return []importer.Row{}, nil
	}

	header := rows[0]
	out := make([]importer.Row, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		row := make(importer.Row, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(cells) {
				row[name] = cells[i]
			} else {
				row[name] = ""
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// Write builds a single-sheet workbook with a bold header row and one
// row per record, and returns the serialized file.
func Write(sheetName string, headers []string, records [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("style header cell %s: %w", cell, err)
		}
	}

	for i, record := range records {
		for col, value := range record {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
