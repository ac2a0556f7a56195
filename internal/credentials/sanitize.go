package credentials

import "mdm-platform/feedhub/internal/constants"

var sensitiveKeys = map[string]struct{}{
	"password":    {},
	"apiKey":      {},
	"accessToken": {},
	"secretKey":   {},
	"privateKey":  {},
	"passphrase":  {},
}

// IsSensitive reports whether key names a masked credential field
func IsSensitive(key string) bool {
	_, ok := sensitiveKeys[key]
	return ok
}

// Sanitize returns a deep copy of creds with every sensitive key replaced by
// the mask token, at any nesting depth. The input is not modified.
func Sanitize(creds map[string]any) map[string]any {
	if creds == nil {
		return nil
	}
	return sanitizeMap(creds)
}

func sanitizeMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if IsSensitive(k) {
			if v == nil {
				out[k] = nil
				continue
			}
			out[k] = constants.MaskToken
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return sanitizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}
