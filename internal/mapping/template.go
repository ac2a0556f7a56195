// Package mapping translates raw supplier rows into canonical product records
// and validates them against a template's rules.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	RuleRequired = "required"
	RuleType     = "type"
	RuleCustom   = "custom"

	LevelError   = "error"
	LevelWarning = "warning"

	TypeString  = "string"
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeBoolean = "boolean"
	TypeDate    = "date"

	CustomSetDefaultIfMissing = "setDefaultIfMissing"
)

var ErrInvalidTemplate = errors.New("invalid mapping template")

// typeAliases folds the spellings seen in stored templates onto the five
// supported coercion types
var typeAliases = map[string]string{
	"string":  TypeString,
	"text":    TypeString,
	"integer": TypeInteger,
	"int":     TypeInteger,
	"float":   TypeFloat,
	"number":  TypeFloat,
	"decimal": TypeFloat,
	"boolean": TypeBoolean,
	"bool":    TypeBoolean,
	"date":    TypeDate,
}

// FieldMapping copies one source column into one target field
type FieldMapping struct {
	SourceField string `json:"sourceField"`
	TargetField string `json:"targetField"`
}

// Rule is one validation step. Value holds the coercion type for type rules
// and the operation name for custom rules.
type Rule struct {
	Field        string `json:"field"`
	Type         string `json:"type"`
	Value        string `json:"value,omitempty"`
	ErrorLevel   string `json:"errorLevel,omitempty"`
	Message      string `json:"message,omitempty"`
	DefaultValue any    `json:"defaultValue,omitempty"`
}

// Template is a validated, ready to apply mapping definition
type Template struct {
	ID           string
	Name         string
	Mappings     []FieldMapping
	Rules        []Rule
	KeepUnmapped bool
}

// NewTemplate checks mappings and rules and normalizes rule spellings
func NewTemplate(id, name string, mappings []FieldMapping, rules []Rule, keepUnmapped bool) (*Template, error) {
	for i, m := range mappings {
		if strings.TrimSpace(m.SourceField) == "" || strings.TrimSpace(m.TargetField) == "" {
			return nil, fmt.Errorf("%w: mapping %d has an empty field name", ErrInvalidTemplate, i)
		}
	}

	normalized := make([]Rule, len(rules))
	for i, r := range rules {
		nr, err := normalizeRule(r)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d: %v", ErrInvalidTemplate, i, err)
		}
		normalized[i] = nr
	}

	return &Template{
		ID:           id,
		Name:         name,
		Mappings:     mappings,
		Rules:        normalized,
		KeepUnmapped: keepUnmapped,
	}, nil
}

func normalizeRule(r Rule) (Rule, error) {
	if strings.TrimSpace(r.Field) == "" {
		return r, errors.New("field is required")
	}

	switch r.ErrorLevel {
	case "":
		r.ErrorLevel = LevelError
	case LevelError, LevelWarning:
	default:
		return r, fmt.Errorf("unknown error level %q", r.ErrorLevel)
	}

	switch r.Type {
	case RuleRequired:
	case RuleType:
		t, ok := typeAliases[strings.ToLower(r.Value)]
		if !ok {
			return r, fmt.Errorf("unknown value type %q", r.Value)
		}
		r.Value = t
	case RuleCustom:
		if r.Value != CustomSetDefaultIfMissing {
			return r, fmt.Errorf("unknown custom rule %q", r.Value)
		}
	default:
		return r, fmt.Errorf("unknown rule type %q", r.Type)
	}
	return r, nil
}

// ParseRules decodes a stored rule list. A null or empty document is no rules.
func ParseRules(raw []byte) ([]Rule, error) {
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var rules []Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("%w: validation rules: %v", ErrInvalidTemplate, err)
	}
	return rules, nil
}

// NormalizeFieldMappings accepts the canonical array
// [{"sourceField":"a","targetField":"b"}] (source/target and destinationField
// are read as aliases) or a legacy flat object {"a":"b"}, which is migrated
// to the array sorted by source field. Any other shape is rejected.
func NormalizeFieldMappings(raw []byte) ([]FieldMapping, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []FieldMapping{}, nil
	}
	if !gjson.Valid(trimmed) {
		return nil, fmt.Errorf("%w: field mappings are not valid JSON", ErrInvalidTemplate)
	}

	doc := gjson.Parse(trimmed)
	switch {
	case doc.IsArray():
		return mappingsFromArray(doc)
	case doc.IsObject():
		return mappingsFromObject(doc)
	default:
		return nil, fmt.Errorf("%w: field mappings must be an array or an object", ErrInvalidTemplate)
	}
}

func mappingsFromArray(doc gjson.Result) ([]FieldMapping, error) {
	out := []FieldMapping{}
	var err error
	doc.ForEach(func(_, el gjson.Result) bool {
		if !el.IsObject() {
			err = fmt.Errorf("%w: mapping %d is not an object", ErrInvalidTemplate, len(out))
			return false
		}
		src := firstString(el, "sourceField", "source")
		dst := firstString(el, "targetField", "target", "destinationField")
		if src == "" || dst == "" {
			err = fmt.Errorf("%w: mapping %d needs sourceField and targetField", ErrInvalidTemplate, len(out))
			return false
		}
		out = append(out, FieldMapping{SourceField: src, TargetField: dst})
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func mappingsFromObject(doc gjson.Result) ([]FieldMapping, error) {
	out := []FieldMapping{}
	var err error
	doc.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			err = fmt.Errorf("%w: mixed mapping shapes, %q does not map to a field name", ErrInvalidTemplate, key.String())
			return false
		}
		src, dst := strings.TrimSpace(key.String()), strings.TrimSpace(value.String())
		if src == "" || dst == "" {
			err = fmt.Errorf("%w: empty field name in mapping %q", ErrInvalidTemplate, key.String())
			return false
		}
		out = append(out, FieldMapping{SourceField: src, TargetField: dst})
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].SourceField < out[j].SourceField })
	return out, nil
}

func firstString(el gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := el.Get(k); v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}
