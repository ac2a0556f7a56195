package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// scanJSON decodes a jsonb/text column. Postgres hands back []byte, SQLite may
// hand back string.
func scanJSON(value interface{}, dest interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSON column", value)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// JSONB is a free-form object column
type JSONB map[string]interface{}

func (j *JSONB) Scan(value interface{}) error {
	result := make(map[string]interface{})
	if err := scanJSON(value, &result); err != nil {
		return err
	}
	*j = result
	return nil
}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// RawJSON stores an already-encoded document as is
type RawJSON json.RawMessage

func (r *RawJSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append((*r)[:0], v...)
	case string:
		*r = RawJSON(v)
	default:
		return fmt.Errorf("cannot scan %T into RawJSON", value)
	}
	return nil
}

func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return []byte(r), nil
}

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// StringList is a JSON array of strings
type StringList []string

func (s *StringList) Scan(value interface{}) error {
	var out []string
	if err := scanJSON(value, &out); err != nil {
		return err
	}
	*s = out
	return nil
}

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}
