package aggregate

import (
	"dropkit/internal/schema"
)

// SESuffix is appended to the extra column produced by mean_se fields.
const SESuffix = "_SE"

// Table is the aggregated output: one row per site, columns in template
// order with _SE columns inserted directly after their mean_se field.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Plan maps each output field to its aggregation method. Build one with
// NewPlan, then adjust individual fields through Override before running
// Aggregate.
type Plan struct {
	Fields  []string
	Methods map[string]Method
}

// NewPlan infers a method for every template field across the full record
// list. The per-drop identifier is always excluded: it has no meaning at
// site granularity.
func NewPlan(tmpl *schema.Template, records []schema.Record) *Plan {
	plan := &Plan{Methods: make(map[string]Method, len(tmpl.Fields))}
	for _, field := range tmpl.Fields {
		if field == schema.DropIDField {
			continue
		}
		values := columnValues(records, field)
		plan.Fields = append(plan.Fields, field)
		plan.Methods[field] = InferMethod(field, values, tmpl)
	}
	return plan
}

// Override replaces the inferred method for one field. Unknown fields are
// ignored; overriding with MethodExclude removes the field from output.
func (p *Plan) Override(field string, method Method) {
	if _, ok := p.Methods[field]; ok {
		p.Methods[field] = method
	}
}

// OutputColumns returns the column header produced by this plan, including
// _SE companions.
func (p *Plan) OutputColumns() []string {
	var cols []string
	for _, field := range p.Fields {
		method := p.Methods[field]
		if method == MethodExclude {
			continue
		}
		cols = append(cols, field)
		if method == MethodMeanSE {
			cols = append(cols, field+SESuffix)
		}
	}
	return cols
}

// Aggregate reduces every group to one output row under the plan.
func Aggregate(groups []Group, plan *Plan) *Table {
	table := &Table{Columns: plan.OutputColumns()}
	for _, group := range groups {
		var row []string
		for _, field := range plan.Fields {
			method := plan.Methods[field]
			if method == MethodExclude {
				continue
			}
			values := columnValues(group.Records, field)
			switch method {
			case MethodFirstNonNA:
				row = append(row, FirstNonNA(values))
			case MethodBinaryAny:
				row = append(row, BinaryAny(values))
			case MethodTokenFreqSlash:
				row = append(row, TokenFreqSlash(values))
			case MethodSum:
				row = append(row, Sum(values))
			case MethodMean:
				row = append(row, Mean(values))
			case MethodMeanSE:
				mean, se := MeanSE(values)
				row = append(row, mean, se)
			default:
				row = append(row, FirstNonNA(values))
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// columnValues collects the raw values of one field across records,
// preserving record order. Absent fields contribute nothing, which keeps
// "field never present" distinct from "explicitly NA".
func columnValues(records []schema.Record, field string) []string {
	var out []string
	for _, rec := range records {
		if raw, ok := rec[field]; ok {
			out = append(out, raw)
		}
	}
	return out
}
