// Package parser turns csv, excel and json feed files into header lists and
// row maps keyed by column name.
package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatXLS  = "xls"
	FormatJSON = "json"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

var formatsByExt = map[string]string{
	".csv":  FormatCSV,
	".xlsx": FormatXLSX,
	".xls":  FormatXLS,
	".json": FormatJSON,
}

// FormatOf maps a file name to its feed format, or "" when unsupported
func FormatOf(name string) string {
	return formatsByExt[strings.ToLower(path.Ext(name))]
}

// Options controls how a feed file is read. The zero value is not useful on
// its own; start from DefaultOptions.
type Options struct {
	HasHeader bool
	Delimiter string
	Encoding  string
	Sheet     string
	// RecordsPath is a gjson path to the record array in json feeds
	RecordsPath string
	// Limit caps the number of rows returned; zero means all rows
	Limit int
}

func DefaultOptions() Options {
	return Options{HasHeader: true, Delimiter: ",", Encoding: "utf-8"}
}

// Table is a parsed feed. Rows hold strings for csv and excel input and
// decoded JSON values for json input.
type Table struct {
	Headers []string
	Rows    []map[string]any
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ParseError wraps a decoding failure with the row it happened on, when known
type ParseError struct {
	Format string
	Row    int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("failed to parse %s at row %d: %v", e.Format, e.Row, e.Err)
	}
	return fmt.Sprintf("failed to parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads r as the given format
func Parse(r io.Reader, format string, opts Options) (*Table, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return parseCSV(r, opts)
	case FormatXLSX, FormatXLS:
		return parseExcel(r, opts)
	case FormatJSON:
		return parseJSON(r, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ParseFile opens name and parses it according to its extension
func ParseFile(name string, opts Options) (*Table, error) {
	format := FormatOf(name)
	if format == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path.Base(name))
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	return Parse(f, format, opts)
}

// TrimPartialLine drops everything after the last newline so a capped csv
// sample does not end in a half-written row
func TrimPartialLine(data []byte) []byte {
	for i := len(data) - 1; i >= 0; i-- {
		if data[i] == '\n' {
			return data[:i+1]
		}
	}
	return data
}

// normalizeHeaders trims names, fills blanks with column_N and suffixes
// duplicates so every column has a distinct key
func normalizeHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = columnName(i)
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = h + "_" + strconv.Itoa(n+1)
		} else {
			seen[h] = 1
		}
		out[i] = h
	}
	return out
}

func columnName(i int) string {
	return "column_" + strconv.Itoa(i+1)
}

// buildTable converts string records into row maps. Fully blank records are
// dropped; short records leave trailing columns absent.
func buildTable(records [][]string, opts Options) *Table {
	t := &Table{Rows: []map[string]any{}}
	if len(records) == 0 {
		return t
	}

	if opts.HasHeader {
		t.Headers = normalizeHeaders(records[0])
		records = records[1:]
	}

	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		for len(t.Headers) < len(rec) {
			t.Headers = append(t.Headers, columnName(len(t.Headers)))
		}

		row := make(map[string]any, len(rec))
		for i, v := range rec {
			row[t.Headers[i]] = v
		}
		t.Rows = append(t.Rows, row)

		if opts.Limit > 0 && len(t.Rows) >= opts.Limit {
			break
		}
	}
	return t
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
