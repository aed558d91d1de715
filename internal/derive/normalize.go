package derive

import (
	"dropkit/internal/rules"
	"dropkit/internal/schema"
	"dropkit/internal/value"
)

// NormalizeConditionalSumGroups reconciles blank, zero, and NA entries for
// every conditional-sum group so partially filled percentage groups
// aggregate correctly and inapplicable groups are not averaged as zero.
//
// Two passes, per rule:
//
//  1. blank_as_zero groups whose guard currently holds: if anything in the
//     group (the guard field or any listed field) carries a value, the
//     remaining blank/NA listed fields become "0". An untouched group, guard
//     included, stays untouched.
//  2. groups gated by a greater/greater_equal guard with threshold 0: when
//     the guard is false, every field in the group is forced to "NA".
//
// The pass is idempotent; running it on an already normalized record changes
// nothing. It must run before validation and before a record is persisted.
func NormalizeConditionalSumGroups(rec schema.Record, set *rules.Set) bool {
	if set == nil {
		return false
	}
	changed := false
	for _, rule := range set.ConditionalSums() {
		guard := value.Compare(rec[rule.IfField], rule.IfValue, rule.IfOp)

		if rule.BlankAsZero && guard {
			anyFilled := !value.IsNA(rec[rule.IfField])
			for _, f := range rule.Fields {
				if !value.IsNA(rec[f]) {
					anyFilled = true
					break
				}
			}
			if anyFilled {
				for _, f := range rule.Fields {
					if value.IsNA(rec[f]) {
						rec[f] = "0"
						changed = true
					}
				}
			}
		}

		threshold, thresholdOK := value.ParseNumber(rule.IfValue)
		zeroThresholdGuard := thresholdOK && threshold == 0 &&
			(rule.IfOp == value.OpGreaterThan || rule.IfOp == value.OpGreaterEqual)
		if zeroThresholdGuard && !guard {
			for _, f := range rule.Fields {
				if rec[f] != value.NA {
					rec[f] = value.NA
					changed = true
				}
			}
		}
	}
	return changed
}
