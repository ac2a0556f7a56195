package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrLegacyExcel is returned for BIFF .xls workbooks, which excelize cannot read
var ErrLegacyExcel = errors.New("legacy .xls workbooks are not supported, save as .xlsx")

// oleMagic prefixes compound-document (BIFF) workbooks
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}

func parseExcel(r io.Reader, opts Options) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: err}
	}
	if bytes.HasPrefix(data, oleMagic) {
		return nil, &ParseError{Format: FormatXLS, Err: ErrLegacyExcel}
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: err}
	}
	defer f.Close()

	sheet, err := pickSheet(f, opts.Sheet)
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: err}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: fmt.Errorf("failed to read sheet %q: %w", sheet, err)}
	}
	return buildTable(rows, opts), nil
}

// pickSheet returns the named sheet (matched case-insensitively) or the first one
func pickSheet(f *excelize.File, name string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", errors.New("workbook has no sheets")
	}
	if name == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if strings.EqualFold(s, name) {
			return s, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found, available: %s", name, strings.Join(sheets, ", "))
}
