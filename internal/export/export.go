// Package export serializes tabular result sets into downloadable CSV or
// Excel byte streams. Result sets are buffered in memory; equipment
// inventories are small enough that this is an accepted constraint.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	calerrors "github.com/tracklab/calsys/internal/errors"
	"github.com/xuri/excelize/v2"
)

// Format identifies a supported output encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

const (
	MimeCSV   = "text/csv"
	MimeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ParseFormat maps the wire token to a Format, defaulting to CSV.
func ParseFormat(token string) Format {
	if token == string(FormatExcel) {
		return FormatExcel
	}
	return FormatCSV
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return "csv"
}

// Mimetype returns the content type for the format.
func (f Format) Mimetype() string {
	if f == FormatExcel {
		return MimeExcel
	}
	return MimeCSV
}

// Table is a uniform result set: a fixed column order and one row of
// scalar values per record. An empty Rows slice is valid and produces
// header-only output.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Render serializes the table in the requested format.
func Render(table *Table, format Format) ([]byte, error) {
	switch format {
	case FormatExcel:
		return renderExcel(table)
	case FormatCSV:
		return renderCSV(table)
	default:
		return nil, calerrors.Newf("unsupported export format: %s", format).
			Category(calerrors.CategoryExport).
			Build()
	}
}

// Filename builds the deterministic timestamped download name,
// {prefix}_{YYYYMMDD_HHMMSS}.{ext}.
func Filename(prefix string, format Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("20060102_150405"), format.Extension())
}

func renderCSV(table *Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}

	row := make([]string, len(table.Columns))
	for _, values := range table.Rows {
		for i := range row {
			row[i] = ""
			if i < len(values) && values[i] != nil {
				row[i] = fmt.Sprint(values[i])
			}
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("writing CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flushing CSV output: %w", err)
	}
	return buf.Bytes(), nil
}

func renderExcel(table *Table) ([]byte, error) {
	workbook := excelize.NewFile()
	defer func() { _ = workbook.Close() }()

	sheet := workbook.GetSheetName(0)

	header := make([]any, len(table.Columns))
	for i, column := range table.Columns {
		header[i] = column
	}
	if err := workbook.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing sheet header: %w", err)
	}

	for i, values := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("computing cell coordinates: %w", err)
		}
		if err := workbook.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("writing sheet row: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
