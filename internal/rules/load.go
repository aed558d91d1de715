package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"dropkit/internal/value"
)

// Issue describes one rule that could not be loaded. The rule is skipped;
// the rest of the document still loads.
type Issue struct {
	Index  int
	Type   string
	Reason string
}

func (i Issue) String() string {
	t := i.Type
	if t == "" {
		t = "(missing type)"
	}
	return fmt.Sprintf("rule %d (%s): %s", i.Index, t, i.Reason)
}

type document struct {
	Rules []json.RawMessage `json:"rules"`
}

type rawRule struct {
	Type    string `json:"type"`
	Message string `json:"message"`

	Field  string   `json:"field"`
	Values []string `json:"values"`

	Min *float64 `json:"min"`
	Max *float64 `json:"max"`

	IfField       string `json:"if_field"`
	IfValue       string `json:"if_value"`
	IfCondition   string `json:"if_condition"`
	ThenField     string `json:"then_field"`
	ThenCondition string `json:"then_condition"`
	ThenValue     string `json:"then_value"`

	Fields      []string `json:"fields"`
	Target      *float64 `json:"target"`
	Tolerance   float64  `json:"tolerance"`
	Comparison  string   `json:"comparison"`
	BlankAsZero bool     `json:"blank_as_zero"`

	TriggerField string            `json:"trigger_field"`
	TriggerValue string            `json:"trigger_value"`
	Actions      map[string]string `json:"actions"`

	TargetField string `json:"target_field"`
	Formula     string `json:"formula"`
	Decimals    int    `json:"decimals"`
}

// LoadFile reads and parses a rule document. A missing file is not an error;
// it yields an empty set so templates without rules validate trivially.
func LoadFile(path string) (*Set, []Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Set{}, nil, nil
		}
		return nil, nil, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

// Parse decodes a rule document. Individual malformed rules are reported as
// Issues and skipped; only an unreadable document is a hard error.
func Parse(data []byte) (*Set, []Issue, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse rules document: %w", err)
	}

	set := &Set{}
	var issues []Issue
	for i, raw := range doc.Rules {
		var rr rawRule
		if err := json.Unmarshal(raw, &rr); err != nil {
			issues = append(issues, Issue{Index: i, Reason: fmt.Sprintf("not an object: %v", err)})
			continue
		}
		rule, err := buildRule(rr)
		if err != nil {
			issues = append(issues, Issue{Index: i, Type: rr.Type, Reason: err.Error()})
			continue
		}
		set.Rules = append(set.Rules, rule)
	}
	return set, issues, nil
}

func buildRule(rr rawRule) (Rule, error) {
	msg := strings.TrimSpace(rr.Message)
	switch Kind(strings.ToLower(strings.TrimSpace(rr.Type))) {
	case KindAllowedValues:
		if rr.Field == "" {
			return nil, fmt.Errorf("missing field")
		}
		if len(rr.Values) == 0 {
			return nil, fmt.Errorf("missing values")
		}
		return AllowedValues{base: base{msg}, Field: rr.Field, Values: rr.Values}, nil

	case KindRange:
		if rr.Field == "" {
			return nil, fmt.Errorf("missing field")
		}
		if rr.Min == nil || rr.Max == nil {
			return nil, fmt.Errorf("missing min or max")
		}
		if *rr.Min > *rr.Max {
			return nil, fmt.Errorf("min %v exceeds max %v", *rr.Min, *rr.Max)
		}
		return Range{base: base{msg}, Field: rr.Field, Min: *rr.Min, Max: *rr.Max}, nil

	case KindRequired:
		if rr.Field == "" {
			return nil, fmt.Errorf("missing field")
		}
		return Required{base: base{msg}, Field: rr.Field}, nil

	case KindConditional:
		if rr.IfField == "" || rr.ThenField == "" {
			return nil, fmt.Errorf("missing if_field or then_field")
		}
		op, ok := value.ParseOp(rr.ThenCondition)
		if !ok {
			return nil, fmt.Errorf("unknown then_condition %q", rr.ThenCondition)
		}
		return Conditional{
			base:      base{msg},
			IfField:   rr.IfField,
			IfValue:   rr.IfValue,
			ThenField: rr.ThenField,
			ThenOp:    op,
			ThenValue: rr.ThenValue,
		}, nil

	case KindSumEquals:
		if len(rr.Fields) == 0 {
			return nil, fmt.Errorf("missing fields")
		}
		if rr.Target == nil {
			return nil, fmt.Errorf("missing target")
		}
		if rr.Tolerance < 0 {
			return nil, fmt.Errorf("negative tolerance")
		}
		return SumEquals{base: base{msg}, Fields: rr.Fields, Target: *rr.Target, Tolerance: rr.Tolerance}, nil

	case KindConditionalSum:
		if rr.IfField == "" {
			return nil, fmt.Errorf("missing if_field")
		}
		if len(rr.Fields) == 0 {
			return nil, fmt.Errorf("missing fields")
		}
		if rr.Target == nil {
			return nil, fmt.Errorf("missing target")
		}
		ifOp, ok := value.ParseOp(rr.IfCondition)
		if !ok {
			return nil, fmt.Errorf("unknown if_condition %q", rr.IfCondition)
		}
		switch ifOp {
		case value.OpEquals, value.OpNotEquals, value.OpGreaterThan, value.OpGreaterEqual:
		default:
			return nil, fmt.Errorf("if_condition %q not supported for conditional sums", rr.IfCondition)
		}
		cmpRaw := rr.Comparison
		if cmpRaw == "" {
			cmpRaw = "equal"
		}
		cmp, ok := value.ParseOp(cmpRaw)
		if !ok {
			return nil, fmt.Errorf("unknown comparison %q", rr.Comparison)
		}
		switch cmp {
		case value.OpEquals, value.OpGreaterThan, value.OpGreaterEqual:
		default:
			return nil, fmt.Errorf("comparison %q not supported for conditional sums", rr.Comparison)
		}
		if rr.Tolerance < 0 {
			return nil, fmt.Errorf("negative tolerance")
		}
		return ConditionalSum{
			base:        base{msg},
			IfField:     rr.IfField,
			IfOp:        ifOp,
			IfValue:     rr.IfValue,
			Fields:      rr.Fields,
			Comparison:  cmp,
			Target:      *rr.Target,
			Tolerance:   rr.Tolerance,
			BlankAsZero: rr.BlankAsZero,
		}, nil

	case KindAutoFill:
		if rr.TriggerField == "" {
			return nil, fmt.Errorf("missing trigger_field")
		}
		if len(rr.Actions) == 0 {
			return nil, fmt.Errorf("missing actions")
		}
		return AutoFill{
			base:         base{msg},
			TriggerField: rr.TriggerField,
			TriggerValue: rr.TriggerValue,
			Actions:      rr.Actions,
		}, nil

	case KindCalculated:
		if rr.TargetField == "" {
			return nil, fmt.Errorf("missing target_field")
		}
		if strings.TrimSpace(rr.Formula) == "" {
			return nil, fmt.Errorf("missing formula")
		}
		if rr.Decimals < 0 {
			return nil, fmt.Errorf("negative decimals")
		}
		return Calculated{
			base:        base{msg},
			TargetField: rr.TargetField,
			Formula:     rr.Formula,
			Decimals:    rr.Decimals,
		}, nil

	case "":
		return nil, fmt.Errorf("missing type")
	default:
		return nil, fmt.Errorf("unknown type %q (known: %s)", rr.Type, kindList())
	}
}

func kindList() string {
	names := make([]string, len(allKinds))
	for i, k := range allKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
