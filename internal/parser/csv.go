package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func parseCSV(r io.Reader, opts Options) (*Table, error) {
	decoded, err := decodeReader(r, opts.Encoding)
	if err != nil {
		return nil, &ParseError{Format: FormatCSV, Err: err}
	}

	delim, err := delimiterRune(opts.Delimiter)
	if err != nil {
		return nil, &ParseError{Format: FormatCSV, Err: err}
	}

	cr := csv.NewReader(decoded)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			row := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				row = pe.StartLine
			}
			return nil, &ParseError{Format: FormatCSV, Row: row, Err: err}
		}
		records = append(records, rec)
	}
	return buildTable(records, opts), nil
}

func delimiterRune(d string) (rune, error) {
	switch strings.ToLower(d) {
	case "", ",":
		return ',', nil
	case `\t`, "tab", "\t":
		return '\t', nil
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", d)
	}
	r, _ := utf8.DecodeRuneInString(d)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", d)
	}
	return r, nil
}

// decodeReader converts r to UTF-8. The WHATWG label set is accepted
// (utf-8, latin1, windows-1252, utf-16le, shift_jis, ...); a leading BOM
// always wins over the declared label.
func decodeReader(r io.Reader, label string) (io.Reader, error) {
	var enc encoding.Encoding = unicode.UTF8
	if label = strings.TrimSpace(label); label != "" {
		e, err := htmlindex.Get(label)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q", label)
		}
		enc = e
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// KnownEncoding reports whether label names a supported text encoding
func KnownEncoding(label string) bool {
	_, err := htmlindex.Get(strings.TrimSpace(label))
	return err == nil
}
