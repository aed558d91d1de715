package rules

import "dropkit/internal/value"

// Kind discriminates the rule variants in a rule document.
type Kind string

const (
	KindAllowedValues  Kind = "allowed_values"
	KindRange          Kind = "range"
	KindRequired       Kind = "required"
	KindConditional    Kind = "conditional"
	KindSumEquals      Kind = "sum_equals"
	KindConditionalSum Kind = "conditional_sum"
	KindAutoFill       Kind = "autofill"
	KindCalculated     Kind = "calculated"
)

var allKinds = []Kind{
	KindAllowedValues,
	KindRange,
	KindRequired,
	KindConditional,
	KindSumEquals,
	KindConditionalSum,
	KindAutoFill,
	KindCalculated,
}

// Rule is one validation or derivation rule. The concrete types below form a
// closed set; Evaluate switches over all of them so a new kind is a
// compile-visible change.
type Rule interface {
	Kind() Kind
	// CustomMessage returns the author-supplied failure message, or "" when
	// the evaluator should synthesize one.
	CustomMessage() string
}

type base struct {
	Msg string
}

func (b base) CustomMessage() string { return b.Msg }

// AllowedValues requires a non-NA value to be a member of Values.
type AllowedValues struct {
	base
	Field  string
	Values []string
}

func (AllowedValues) Kind() Kind { return KindAllowedValues }

// Range requires a non-NA value to be numeric and within [Min, Max].
type Range struct {
	base
	Field string
	Min   float64
	Max   float64
}

func (Range) Kind() Kind { return KindRange }

// Required fails exactly when the field is NA.
type Required struct {
	base
	Field string
}

func (Required) Kind() Kind { return KindRequired }

// Conditional checks ThenField against ThenValue under ThenOp, but only when
// IfField's raw value equals IfValue exactly.
type Conditional struct {
	base
	IfField   string
	IfValue   string
	ThenField string
	ThenOp    value.Op
	ThenValue string
}

func (Conditional) Kind() Kind { return KindConditional }

// SumEquals requires the listed fields, when all are present, to sum to
// Target within Tolerance. The rule does not fire when any field is missing.
type SumEquals struct {
	base
	Fields    []string
	Target    float64
	Tolerance float64
}

func (SumEquals) Kind() Kind { return KindSumEquals }

// ConditionalSum checks a sum constraint over Fields whenever the guard
// (IfField IfOp IfValue) holds. Comparison is equal / greater /
// greater_equal; Tolerance only applies to equal. BlankAsZero controls
// whether missing fields count as 0 or drop out of the sum.
type ConditionalSum struct {
	base
	IfField     string
	IfOp        value.Op
	IfValue     string
	Fields      []string
	Comparison  value.Op
	Target      float64
	Tolerance   float64
	BlankAsZero bool
}

func (ConditionalSum) Kind() Kind { return KindConditionalSum }

// AutoFill sets each Actions field to its value when TriggerField's raw
// value equals TriggerValue exactly. Only the first matching autofill rule
// in document order applies per pass.
type AutoFill struct {
	base
	TriggerField string
	TriggerValue string
	// Actions apply in sorted field order; JSON objects carry no key order.
	Actions map[string]string
}

func (AutoFill) Kind() Kind { return KindAutoFill }

// Calculated writes the result of an arithmetic Formula over field tokens to
// TargetField, formatted to Decimals fixed digits.
type Calculated struct {
	base
	TargetField string
	Formula     string
	Decimals    int
}

func (Calculated) Kind() Kind { return KindCalculated }

// Set is an ordered rule list for one template.
type Set struct {
	Rules []Rule
}

// AutoFills returns the autofill rules in document order.
func (s *Set) AutoFills() []AutoFill {
	var out []AutoFill
	for _, r := range s.Rules {
		if af, ok := r.(AutoFill); ok {
			out = append(out, af)
		}
	}
	return out
}

// Calculateds returns the calculated-field rules in document order.
func (s *Set) Calculateds() []Calculated {
	var out []Calculated
	for _, r := range s.Rules {
		if c, ok := r.(Calculated); ok {
			out = append(out, c)
		}
	}
	return out
}

// ConditionalSums returns the conditional-sum rules in document order.
func (s *Set) ConditionalSums() []ConditionalSum {
	var out []ConditionalSum
	for _, r := range s.Rules {
		if cs, ok := r.(ConditionalSum); ok {
			out = append(out, cs)
		}
	}
	return out
}
