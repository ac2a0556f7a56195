package mapping

// ValidRow is a record that passed every error-level rule
type ValidRow struct {
	Index    int
	Record   *Record
	Warnings []Finding
}

// InvalidRow keeps the untouched source row next to what was wrong with it
type InvalidRow struct {
	Index    int
	Raw      map[string]any
	Errors   []Finding
	Warnings []Finding
}

// Outcome splits a batch into rows to upsert and rows to report
type Outcome struct {
	Valid   []ValidRow
	Invalid []InvalidRow
}

// ProcessRow maps and validates a single row
func (t *Template) ProcessRow(raw map[string]any) *Result {
	return Validate(ApplyTemplate(raw, t.Mappings, t.KeepUnmapped), t.Rules)
}

// Process runs every row through the template, preserving source order
func (t *Template) Process(rows []map[string]any) *Outcome {
	out := &Outcome{}
	for i, raw := range rows {
		res := t.ProcessRow(raw)
		if res.Valid() {
			out.Valid = append(out.Valid, ValidRow{Index: i, Record: res.Record, Warnings: res.Warnings})
			continue
		}
		out.Invalid = append(out.Invalid, InvalidRow{Index: i, Raw: raw, Errors: res.Errors, Warnings: res.Warnings})
	}
	return out
}
