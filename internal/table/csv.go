package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the header row followed by every row
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.columns))
	for _, row := range t.rows {
		for j, v := range row {
			rec[j] = FormatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a table written by WriteCSV. Every cell comes back as a string.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return FromRecords(records)
}
