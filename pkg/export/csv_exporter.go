package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// Table is positional tabular content. Each row holds at most one cell per column;
// short rows are padded with empty cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// CSVExporter renders tables as CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the table.
func (e *CSVExporter) Render(data Table) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := e.Write(buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the table to w, header first.
func (e *CSVExporter) Write(w io.Writer, data Table) error {
	if len(data.Columns) == 0 {
		return fmt.Errorf("csv requires at least one column")
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(data.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range data.Rows {
		if len(row) > len(data.Columns) {
			return fmt.Errorf("csv row %d has %d cells for %d columns", i, len(row), len(data.Columns))
		}
		record := make([]string, len(data.Columns))
		copy(record, row)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
