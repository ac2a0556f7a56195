package mapping

import (
	"fmt"
	"strings"
)

const defaultFilterLimit = 100

var skuFields = []string{"sku", "product_id", "item_number", "part_number"}

// Filters narrows a sample preview
type Filters struct {
	Category      string            `json:"category,omitempty"`
	SKUPrefix     string            `json:"skuPrefix,omitempty"`
	FieldContains map[string]string `json:"fieldContains,omitempty"`
	Limit         int               `json:"limit,omitempty"`
}

// ApplyFilters returns the matching rows in order, at most Limit of them
// (100 when unset)
func ApplyFilters(rows []map[string]any, f Filters) []map[string]any {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultFilterLimit
	}

	out := make([]map[string]any, 0, min(limit, len(rows)))
	for _, row := range rows {
		if len(out) == limit {
			break
		}
		if f.Category != "" {
			if v, ok := row["category"]; !ok || fmt.Sprint(v) != f.Category {
				continue
			}
		}
		if f.SKUPrefix != "" && !hasSKUPrefix(row, f.SKUPrefix) {
			continue
		}
		if !containsAll(row, f.FieldContains) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func hasSKUPrefix(row map[string]any, prefix string) bool {
	for _, field := range skuFields {
		if v, ok := row[field]; ok && strings.HasPrefix(fmt.Sprint(v), prefix) {
			return true
		}
	}
	return false
}

func containsAll(row map[string]any, wants map[string]string) bool {
	for field, want := range wants {
		if want == "" {
			continue
		}
		v, ok := row[field]
		if !ok || !strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(want)) {
			return false
		}
	}
	return true
}
