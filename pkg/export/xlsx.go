package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders datasets into single sheet workbooks.
type XLSXExporter struct{}

// NewXLSXExporter builds an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes headers on the first row followed by every dataset row.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(data.Headers))
	for i, h := range data.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write xlsx headers: %w", err)
	}
	for i, row := range data.Rows {
		values := data.record(row)
		record := make([]interface{}, len(values))
		for j, v := range values {
			record[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("resolve xlsx cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return nil, fmt.Errorf("write xlsx row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("flush xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// SheetCell is one column of a sheet row.
type SheetCell struct {
	Header string
	Value  string
}

// SheetRow holds a row's cells in column order.
type SheetRow []SheetCell

// Get returns the value of the first column titled header.
func (r SheetRow) Get(header string) string {
	for _, cell := range r {
		if cell.Header == header {
			return cell.Value
		}
	}
	return ""
}

// ReadFirstSheet parses the first sheet of a workbook into rows whose cells
// keep the column order of the header row. Columns with a blank header are
// dropped and rows whose cells are all blank are skipped.
func ReadFirstSheet(data []byte) ([]SheetRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []SheetRow{}, nil
	}

	headers := rows[0]
	out := make([]SheetRow, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		record := make(SheetRow, 0, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			value := ""
			if i < len(cells) {
				value = cells[i]
			}
			if strings.TrimSpace(value) != "" {
				blank = false
			}
			record = append(record, SheetCell{Header: h, Value: value})
		}
		if blank {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}
