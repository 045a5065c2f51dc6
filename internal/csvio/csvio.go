// Package csvio reads and writes the article CSV files the pipeline
// consumes and produces.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingColumn reports a required header the input lacks.
var ErrMissingColumn = errors.New("required column not found")

// Table is an in-memory CSV: a header plus data rows in input order.
// Every row holds exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read loads the CSV at path.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input csv: %w", err)
	}
	defer f.Close()

	table, err := ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return table, nil
}

// ReadFrom loads CSV content from r. Header names are trimmed and a
// UTF-8 BOM on the first cell is dropped. Ragged rows are normalized
// to the header width: short rows pad with empty cells, long rows
// truncate.
func ReadFrom(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("input csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	table := &Table{Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return table, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(table.Rows)+2, err)
		}
		switch {
		case len(record) < len(header):
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		case len(record) > len(header):
			record = record[:len(header)]
		}
		table.Rows = append(table.Rows, record)
	}
}

// ColumnIndex returns the position of an exactly matching header name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// RequireColumn returns the index of name, or a wrapped
// ErrMissingColumn when the header lacks it.
func (t *Table) RequireColumn(name string) (int, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return -1, fmt.Errorf("%w: %q (header: %s)", ErrMissingColumn, name, strings.Join(t.Header, ", "))
	}
	return idx, nil
}

// EnsureColumn returns the index of name, appending an empty column
// when absent.
func (t *Table) EnsureColumn(name string) int {
	if idx, ok := t.ColumnIndex(name); ok {
		return idx
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	return len(t.Header) - 1
}

// Truncate drops rows beyond limit. Zero or negative keeps every row.
func (t *Table) Truncate(limit int) {
	if limit <= 0 || len(t.Rows) <= limit {
		return
	}
	t.Rows = t.Rows[:limit]
}

// Write writes the table to path, replacing any existing file.
func Write(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output csv: %w", err)
	}
	if err := WriteTo(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output csv: %w", err)
	}
	return nil
}

// WriteTo streams the table as CSV to w.
func WriteTo(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// DeriveOutputPath appends suffix to the file name stem, so
// "articles.csv" with suffix "_with_images" becomes
// "articles_with_images.csv". Extensionless inputs get the suffix and
// a .csv extension.
func DeriveOutputPath(input, suffix string) string {
	ext := filepath.Ext(input)
	if ext == "" {
		return input + suffix + ".csv"
	}
	return strings.TrimSuffix(input, ext) + suffix + ext
}
