package parser

import (
	"errors"
	"io"

	"github.com/tidwall/gjson"
)

// recordKeys are the envelope keys searched for a record array when no
// records path is configured
var recordKeys = []string{"data", "items", "results", "products", "records"}

// ExtractRecords locates the record array in a JSON document. With a records
// path it is used verbatim; otherwise a top-level array, then the first
// envelope key holding an array, then the whole document as one record.
func ExtractRecords(body []byte, recordsPath string) []gjson.Result {
	if recordsPath != "" {
		r := gjson.GetBytes(body, recordsPath)
		switch {
		case r.IsArray():
			return r.Array()
		case r.IsObject():
			return []gjson.Result{r}
		default:
			return nil
		}
	}

	doc := gjson.ParseBytes(body)
	if doc.IsArray() {
		return doc.Array()
	}
	if doc.IsObject() {
		for _, key := range recordKeys {
			if v := doc.Get(key); v.IsArray() {
				return v.Array()
			}
		}
		return []gjson.Result{doc}
	}
	return nil
}

func parseJSON(r io.Reader, opts Options) (*Table, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Format: FormatJSON, Err: err}
	}
	if !gjson.ValidBytes(body) {
		return nil, &ParseError{Format: FormatJSON, Err: errors.New("invalid JSON document")}
	}

	t := &Table{Rows: []map[string]any{}}
	seen := map[string]bool{}

	for _, rec := range ExtractRecords(body, opts.RecordsPath) {
		row := map[string]any{}
		if rec.IsObject() {
			rec.ForEach(func(key, value gjson.Result) bool {
				k := key.String()
				row[k] = value.Value()
				if !seen[k] {
					seen[k] = true
					t.Headers = append(t.Headers, k)
				}
				return true
			})
		} else {
			row["value"] = rec.Value()
			if !seen["value"] {
				seen["value"] = true
				t.Headers = append(t.Headers, "value")
			}
		}
		t.Rows = append(t.Rows, row)

		if opts.Limit > 0 && len(t.Rows) >= opts.Limit {
			break
		}
	}
	return t, nil
}
