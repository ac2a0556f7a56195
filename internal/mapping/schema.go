package mapping

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	FieldTypeUnknown = "unknown"
	FieldTypeNull    = "null"
	FieldTypeNumber  = "number"
	FieldTypeBoolean = "boolean"
	FieldTypeDate    = "date"
	FieldTypeObject  = "object"
	FieldTypeArray   = "array"
	FieldTypeString  = "string"
)

// DefaultProductSchema is the expected type of each well-known feed column
var DefaultProductSchema = map[string]string{
	"sku":         FieldTypeString,
	"name":        FieldTypeString,
	"description": FieldTypeString,
	"price":       FieldTypeNumber,
	"inventory":   FieldTypeNumber,
	"category":    FieldTypeString,
	"brand":       FieldTypeString,
	"upc":         FieldTypeString,
	"weight":      FieldTypeNumber,
	"dimensions":  FieldTypeObject,
}

var (
	datePattern  = regexp.MustCompile(`^\d{1,4}[/-]\d{1,2}[/-]\d{1,4}|^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}`)
	boolLiterals = map[string]bool{"true": true, "false": true, "yes": true, "no": true, "0": true, "1": true}
)

// SchemaResult describes how one sampled column compares to the schema
type SchemaResult struct {
	FieldName    string `json:"fieldName"`
	ExpectedType string `json:"expectedType"`
	ActualType   string `json:"actualType"`
	Valid        bool   `json:"valid"`
	SampleValue  any    `json:"sampleValue,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// DetectFieldType classifies a column from its first five non-null values
func DetectFieldType(values []any) string {
	if len(values) == 0 {
		return FieldTypeUnknown
	}

	var sample []any
	for _, v := range values {
		if v != nil {
			sample = append(sample, v)
			if len(sample) == 5 {
				break
			}
		}
	}
	if len(sample) == 0 {
		return FieldTypeNull
	}

	switch {
	case all(sample, isNumeric):
		return FieldTypeNumber
	case all(sample, isBoolLike):
		return FieldTypeBoolean
	case all(sample, isDateLike):
		return FieldTypeDate
	case all(sample, isObject):
		return FieldTypeObject
	case all(sample, isArray):
		return FieldTypeArray
	default:
		return FieldTypeString
	}
}

// ValidateSchema compares the columns of the first ten rows against schema,
// or DefaultProductSchema when schema is nil. Results are sorted by field name.
func ValidateSchema(rows []map[string]any, schema map[string]string) []SchemaResult {
	if len(rows) == 0 {
		return []SchemaResult{}
	}
	if schema == nil {
		schema = DefaultProductSchema
	}

	fields := map[string]bool{}
	for i, row := range rows {
		if i == 10 {
			break
		}
		for k := range row {
			fields[k] = true
		}
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	results := make([]SchemaResult, 0, len(names))
	for _, name := range names {
		var values []any
		for _, row := range rows {
			if v, ok := row[name]; ok {
				values = append(values, v)
			}
		}

		actual := DetectFieldType(values)
		expected, known := schema[name]
		if !known {
			expected = FieldTypeUnknown
		}

		valid := actual == expected ||
			(expected == FieldTypeNumber && actual == FieldTypeString && all(nonNil(values), isDigitString))

		res := SchemaResult{FieldName: name, ExpectedType: expected, ActualType: actual, Valid: valid}
		if len(values) > 0 {
			res.SampleValue = values[0]
		}
		if !valid {
			if known {
				res.Notes = fmt.Sprintf("Expected %s, but found %s", expected, actual)
			} else {
				res.Notes = "Field not in expected schema"
			}
		}
		results = append(results, res)
	}
	return results
}

func all(values []any, pred func(any) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

func nonNil(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return isDigitString(v)
}

// isDigitString accepts digits with at most one decimal point
func isDigitString(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.Replace(s, ".", "", 1)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isBoolLike(v any) bool {
	switch t := v.(type) {
	case bool:
		return true
	case string:
		return boolLiterals[strings.ToLower(t)]
	}
	return false
}

func isDateLike(v any) bool {
	s, ok := v.(string)
	return ok && datePattern.MatchString(s)
}

func isObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func isArray(v any) bool {
	_, ok := v.([]any)
	return ok
}
