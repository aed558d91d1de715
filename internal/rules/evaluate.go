package rules

import (
	"fmt"
	"strings"

	"dropkit/internal/schema"
	"dropkit/internal/value"
)

// Validate checks the record against every rule in the set and returns all
// violation messages. An empty slice means the record is valid. Derivation
// kinds (autofill, calculated) carry no validation semantics and are skipped
// here.
func Validate(rec schema.Record, set *Set) []string {
	if set == nil {
		return nil
	}
	var violations []string
	for _, rule := range set.Rules {
		violations = append(violations, evaluateRule(rec, rule)...)
	}
	return violations
}

// evaluateRule never lets a misbehaving rule take down the rest of the
// evaluation; a panic inside one rule is swallowed and that rule reports
// nothing.
func evaluateRule(rec schema.Record, rule Rule) (msgs []string) {
	defer func() {
		if recover() != nil {
			msgs = nil
		}
	}()

	switch r := rule.(type) {
	case AllowedValues:
		return evalAllowedValues(rec, r)
	case Range:
		return evalRange(rec, r)
	case Required:
		return evalRequired(rec, r)
	case Conditional:
		return evalConditional(rec, r)
	case SumEquals:
		return evalSumEquals(rec, r)
	case ConditionalSum:
		return evalConditionalSum(rec, r)
	case AutoFill, Calculated:
		return nil
	}
	return nil
}

func fail(rule Rule, synthesized string) []string {
	if msg := rule.CustomMessage(); msg != "" {
		return []string{msg}
	}
	return []string{synthesized}
}

func evalAllowedValues(rec schema.Record, r AllowedValues) []string {
	raw := rec[r.Field]
	if value.IsNA(raw) {
		return nil
	}
	trimmed := strings.TrimSpace(raw)
	for _, allowed := range r.Values {
		if trimmed == allowed {
			return nil
		}
	}
	return fail(r, fmt.Sprintf("%s: %q is not an allowed value (allowed: %s)",
		r.Field, trimmed, strings.Join(r.Values, ", ")))
}

func evalRange(rec schema.Record, r Range) []string {
	raw := rec[r.Field]
	if value.IsNA(raw) {
		return nil
	}
	n, ok := value.ParseNumber(raw)
	if !ok {
		return fail(r, fmt.Sprintf("%s: %q must be a number", r.Field, strings.TrimSpace(raw)))
	}
	if n < r.Min || n > r.Max {
		return fail(r, fmt.Sprintf("%s: %s is outside the range %s to %s",
			r.Field, value.FormatNumber(n), value.FormatNumber(r.Min), value.FormatNumber(r.Max)))
	}
	return nil
}

func evalRequired(rec schema.Record, r Required) []string {
	if value.IsNA(rec[r.Field]) {
		return fail(r, fmt.Sprintf("%s is required", r.Field))
	}
	return nil
}

func evalConditional(rec schema.Record, r Conditional) []string {
	// The guard is an exact string match on the raw value, deliberately not
	// NA-aware: a rule keyed on if_value "" fires on blank fields.
	if rec[r.IfField] != r.IfValue {
		return nil
	}
	if value.Compare(rec[r.ThenField], r.ThenValue, r.ThenOp) {
		return nil
	}
	return fail(r, fmt.Sprintf("%s must be %s %q when %s is %q",
		r.ThenField, opPhrase(r.ThenOp), r.ThenValue, r.IfField, r.IfValue))
}

func evalSumEquals(rec schema.Record, r SumEquals) []string {
	// Partial sums are never judged: any missing field disarms the rule.
	for _, f := range r.Fields {
		if value.IsNA(rec[f]) {
			return nil
		}
	}

	var msgs []string
	sum := 0.0
	numeric := true
	for _, f := range r.Fields {
		n, ok := value.ParseNumber(rec[f])
		if !ok {
			msgs = append(msgs, fmt.Sprintf("%s: %q must be a number", f, strings.TrimSpace(rec[f])))
			numeric = false
			continue
		}
		sum += n
	}
	if !numeric {
		return msgs
	}

	if diff := sum - r.Target; diff > r.Tolerance || diff < -r.Tolerance {
		msgs = append(msgs, fail(r, fmt.Sprintf("%s must sum to %s (±%s), got %s",
			strings.Join(r.Fields, " + "), value.FormatNumber(r.Target),
			value.FormatNumber(r.Tolerance), value.FormatNumber(sum)))...)
	}
	return msgs
}

func evalConditionalSum(rec schema.Record, r ConditionalSum) []string {
	if !value.Compare(rec[r.IfField], r.IfValue, r.IfOp) {
		return nil
	}

	var msgs []string
	sum := 0.0
	numeric := true
	for _, f := range r.Fields {
		raw := rec[f]
		if value.IsNA(raw) {
			// BlankAsZero groups count missing entries as zero; otherwise a
			// missing entry simply drops out of the sum.
			continue
		}
		n, ok := value.ParseNumber(raw)
		if !ok {
			msgs = append(msgs, fmt.Sprintf("%s: %q must be a number", f, strings.TrimSpace(raw)))
			numeric = false
			continue
		}
		sum += n
	}
	if !numeric {
		return msgs
	}

	fieldList := strings.Join(r.Fields, " + ")
	switch r.Comparison {
	case value.OpEquals:
		if diff := sum - r.Target; diff > r.Tolerance || diff < -r.Tolerance {
			msgs = append(msgs, fail(r, fmt.Sprintf("%s must sum to %s (±%s) when %s is %s %q, got %s",
				fieldList, value.FormatNumber(r.Target), value.FormatNumber(r.Tolerance),
				r.IfField, opPhrase(r.IfOp), r.IfValue, value.FormatNumber(sum)))...)
		}
	case value.OpGreaterThan:
		if !(sum > r.Target) {
			msgs = append(msgs, fail(r, fmt.Sprintf("%s must sum to more than %s when %s is %s %q, got %s",
				fieldList, value.FormatNumber(r.Target),
				r.IfField, opPhrase(r.IfOp), r.IfValue, value.FormatNumber(sum)))...)
		}
	case value.OpGreaterEqual:
		if !(sum >= r.Target) {
			msgs = append(msgs, fail(r, fmt.Sprintf("%s must sum to at least %s when %s is %s %q, got %s",
				fieldList, value.FormatNumber(r.Target),
				r.IfField, opPhrase(r.IfOp), r.IfValue, value.FormatNumber(sum)))...)
		}
	}
	return msgs
}

func opPhrase(op value.Op) string {
	switch op {
	case value.OpEquals:
		return "equal to"
	case value.OpNotEquals:
		return "different from"
	case value.OpGreaterThan:
		return "greater than"
	case value.OpLessThan:
		return "less than"
	case value.OpGreaterEqual:
		return "at least"
	case value.OpLessEqual:
		return "at most"
	}
	return string(op)
}
