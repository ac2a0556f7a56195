package mapping

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

var (
	trueTokens  = map[string]bool{"true": true, "yes": true, "1": true, "y": true}
	falseTokens = map[string]bool{"false": true, "no": true, "0": true, "n": true}
)

// Finding is one rule violation
type Finding struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Result is the outcome of validating one record. Record is a transformed
// copy; the input is never modified.
type Result struct {
	Errors   []Finding
	Warnings []Finding
	Record   *Record
}

// Valid reports whether no error-level finding was produced
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Result) add(rule Rule, msg string) {
	if rule.Message != "" {
		msg = rule.Message
	}
	f := Finding{Field: rule.Field, Rule: rule.Type, Level: rule.ErrorLevel, Message: msg}
	if rule.ErrorLevel == LevelWarning {
		r.Warnings = append(r.Warnings, f)
		return
	}
	r.Errors = append(r.Errors, f)
}

// Validate applies rules in declaration order. Rules are expected to have
// passed NewTemplate; unknown rule types are ignored.
func Validate(rec *Record, rules []Rule) *Result {
	res := &Result{Record: rec.clone()}

	for _, rule := range rules {
		v, present := res.Record.Get(rule.Field)

		switch rule.Type {
		case RuleRequired:
			if present && !IsEmpty(v) {
				continue
			}
			res.add(rule, fmt.Sprintf("Field '%s' is required", rule.Field))
			if rule.DefaultValue != nil {
				res.Record.Set(rule.Field, rule.DefaultValue)
			}

		case RuleType:
			if !present || IsEmpty(v) {
				continue
			}
			coerced, err := Coerce(v, rule.Value)
			if err != nil {
				res.add(rule, fmt.Sprintf("Field '%s' must be %s: %v", rule.Field, rule.Value, err))
				if rule.DefaultValue != nil {
					res.Record.Set(rule.Field, rule.DefaultValue)
				}
				continue
			}
			res.Record.Set(rule.Field, coerced)

		case RuleCustom:
			if rule.Value != CustomSetDefaultIfMissing || (present && !IsEmpty(v)) {
				continue
			}
			res.Record.Set(rule.Field, rule.DefaultValue)
			if rule.Message != "" {
				res.Warnings = append(res.Warnings, Finding{
					Field:   rule.Field,
					Rule:    rule.Type,
					Level:   LevelWarning,
					Message: rule.Message,
				})
			}
		}
	}
	return res
}

// Coerce converts v to the named type
func Coerce(v any, typ string) (any, error) {
	switch typ {
	case TypeString:
		return stringify(v), nil
	case TypeInteger:
		return toInteger(v)
	case TypeFloat:
		return toFloat(v)
	case TypeBoolean:
		return toBoolean(v)
	case TypeDate:
		return toDate(v)
	default:
		return nil, fmt.Errorf("unknown type %q", typ)
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%T is not a number", v)
	}
}

func toInteger(v any) (int64, error) {
	if s, ok := v.(string); ok {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a whole number", v)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v is out of the integer range", v)
	}
	return int64(f), nil
}

func toBoolean(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		if t == 1 || t == 0 {
			return t == 1, nil
		}
	case int:
		if t == 1 || t == 0 {
			return t == 1, nil
		}
	case string:
		tok := strings.ToLower(strings.TrimSpace(t))
		if trueTokens[tok] {
			return true, nil
		}
		if falseTokens[tok] {
			return false, nil
		}
	}
	return false, fmt.Errorf("%v is not a boolean", v)
}

func toDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, nil
			}
		}
		return time.Time{}, fmt.Errorf("%q is not a recognized date", t)
	default:
		return time.Time{}, fmt.Errorf("%T is not a date", v)
	}
}
