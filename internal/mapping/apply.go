package mapping

import (
	"strings"
)

// CanonicalFields is the standard product field set. Any other target name is
// attribute data.
var CanonicalFields = map[string]bool{
	"sku":          true,
	"name":         true,
	"description":  true,
	"brand":        true,
	"manufacturer": true,
	"category":     true,
	"upc":          true,
	"mpn":          true,
	"price":        true,
	"cost":         true,
	"msrp":         true,
	"weight":       true,
	"inventory":    true,
	"status":       true,
	"supplier_sku": true,
	"image_url":    true,
}

// Record is a canonical product row
type Record struct {
	Fields     map[string]any `json:"fields"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func newRecord() *Record {
	return &Record{Fields: map[string]any{}, Attributes: map[string]any{}}
}

// Get looks the name up in the canonical fields, then the attributes
func (r *Record) Get(name string) (any, bool) {
	if v, ok := r.Fields[name]; ok {
		return v, true
	}
	v, ok := r.Attributes[name]
	return v, ok
}

// Set stores v under name, routing non-canonical names to the attributes
func (r *Record) Set(name string, v any) {
	if CanonicalFields[name] {
		r.Fields[name] = v
		return
	}
	r.Attributes[name] = v
}

// String returns the field as a trimmed string, or "" when absent
func (r *Record) String(name string) string {
	v, ok := r.Get(name)
	if !ok || IsEmpty(v) {
		return ""
	}
	return strings.TrimSpace(stringify(v))
}

func (r *Record) clone() *Record {
	c := newRecord()
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	for k, v := range r.Attributes {
		c.Attributes[k] = v
	}
	return c
}

// IsEmpty reports whether v counts as absent: nil or a blank string
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// ApplyTemplate copies every present mapped value into a new record. Source
// fields without a mapping are dropped unless keepUnmapped is set, in which
// case they are kept as attributes under their source names.
func ApplyTemplate(raw map[string]any, mappings []FieldMapping, keepUnmapped bool) *Record {
	rec := newRecord()
	mapped := make(map[string]bool, len(mappings))

	for _, m := range mappings {
		mapped[m.SourceField] = true
		v, ok := raw[m.SourceField]
		if !ok || IsEmpty(v) {
			continue
		}
		rec.Set(m.TargetField, v)
	}

	if keepUnmapped {
		for k, v := range raw {
			if mapped[k] || IsEmpty(v) {
				continue
			}
			if _, taken := rec.Attributes[k]; taken {
				continue
			}
			rec.Attributes[k] = v
		}
	}
	return rec
}
