package mapping

import (
	"sort"
)

// fieldVariation lists the column names suppliers commonly use for one
// standard field
type fieldVariation struct {
	Field string
	Names []string
}

var commonFieldNames = []fieldVariation{
	{"sku", []string{"sku", "item_number", "product_id", "product_code", "item_code", "article_number", "part_number"}},
	{"name", []string{"name", "product_name", "title", "item_name", "description", "product_title", "product_description"}},
	{"price", []string{"price", "unit_price", "retail_price", "cost", "wholesale_price", "msrp", "list_price"}},
	{"inventory", []string{"inventory", "stock", "quantity", "qty", "on_hand", "available", "stock_level"}},
	{"category", []string{"category", "department", "product_type", "product_category", "group", "product_group"}},
	{"brand", []string{"brand", "manufacturer", "vendor", "supplier", "make", "producer"}},
	{"upc", []string{"upc", "ean", "barcode", "gtin", "isbn"}},
	{"weight", []string{"weight", "item_weight", "shipping_weight", "package_weight"}},
	{"dimensions", []string{"dimensions", "size", "measurements", "package_dimensions", "shipping_dimensions"}},
}

// Candidate is a stored template offered for suggestion
type Candidate struct {
	ID       string
	Name     string
	Mappings []FieldMapping
}

// Suggestion is the best matching template with its mappings rewritten onto
// the sampled column names
type Suggestion struct {
	TemplateID    string            `json:"templateId"`
	TemplateName  string            `json:"templateName"`
	FieldMappings map[string]string `json:"fieldMappings"`
	ExactMatches  int               `json:"exactMatches"`
	TotalFields   int               `json:"totalFields"`
}

// SuggestMapping scores every candidate against the columns of the first ten
// rows: 0.7 weight on exact source-field matches, 0.3 on matches through
// common name variations. It returns nil and 0 when nothing scores.
func SuggestMapping(rows []map[string]any, candidates []Candidate) (*Suggestion, float64) {
	if len(rows) == 0 || len(candidates) == 0 {
		return nil, 0
	}

	fields := sampleFields(rows, 10)

	var best *Suggestion
	bestScore := 0.0

	for _, c := range candidates {
		templateFields := map[string]bool{}
		for _, m := range c.Mappings {
			templateFields[m.SourceField] = true
		}
		if len(templateFields) == 0 {
			continue
		}

		exact := 0
		for _, f := range fields {
			if templateFields[f] {
				exact++
			}
		}

		fuzzy := 0.0
		for _, f := range fields {
			for _, group := range commonFieldNames {
				if contains(group.Names, f) && anyIn(group.Names, templateFields) {
					fuzzy += 0.5
				}
			}
		}

		total := max(len(fields), len(templateFields))
		score := 0.7*float64(exact)/float64(total) + 0.3*fuzzy/float64(total)
		if score <= bestScore {
			continue
		}

		bestScore = score
		best = &Suggestion{
			TemplateID:    c.ID,
			TemplateName:  c.Name,
			FieldMappings: rewriteMappings(c.Mappings, fields),
			ExactMatches:  exact,
			TotalFields:   total,
		}
	}
	return best, bestScore
}

// rewriteMappings keeps exact matches and otherwise points each mapping at the
// first sampled column from the same variation group
func rewriteMappings(mappings []FieldMapping, fields []string) map[string]string {
	present := map[string]bool{}
	for _, f := range fields {
		present[f] = true
	}

	out := map[string]string{}
	for _, m := range mappings {
		if present[m.SourceField] {
			out[m.SourceField] = m.TargetField
			continue
		}
		for _, group := range commonFieldNames {
			if !contains(group.Names, m.SourceField) {
				continue
			}
			for _, f := range fields {
				if contains(group.Names, f) {
					out[f] = m.TargetField
					break
				}
			}
		}
	}
	return out
}

func sampleFields(rows []map[string]any, n int) []string {
	seen := map[string]bool{}
	for i, row := range rows {
		if i == n {
			break
		}
		for k := range row {
			seen[k] = true
		}
	}
	fields := make([]string, 0, len(seen))
	for k := range seen {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func anyIn(list []string, set map[string]bool) bool {
	for _, v := range list {
		if set[v] {
			return true
		}
	}
	return false
}
