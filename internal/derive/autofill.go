package derive

import (
	"sort"

	"dropkit/internal/rules"
	"dropkit/internal/schema"
)

// ApplyAutoFill applies the first autofill rule whose trigger matches the
// record's raw value (exact string comparison) and actually changes it, then
// reports whether anything changed. Matching rules whose actions are already
// in place are skipped so an earlier satisfied rule cannot shadow a later
// one. Only one effective rule applies per pass; callers wanting cascaded
// effects call again until changed is false.
func ApplyAutoFill(rec schema.Record, set *rules.Set) bool {
	if set == nil {
		return false
	}
	for _, rule := range set.AutoFills() {
		if rec[rule.TriggerField] != rule.TriggerValue {
			continue
		}
		changed := false
		for _, field := range sortedKeys(rule.Actions) {
			if want := rule.Actions[field]; rec[field] != want {
				rec[field] = want
				changed = true
			}
		}
		if changed {
			return true
		}
	}
	return false
}

// ApplyAutoFillFixpoint re-runs autofill until it settles, bounded by the
// number of autofill rules so cyclic rule documents cannot spin forever.
func ApplyAutoFillFixpoint(rec schema.Record, set *rules.Set) bool {
	if set == nil {
		return false
	}
	changedAny := false
	limit := len(set.AutoFills()) + 1
	for i := 0; i < limit; i++ {
		if !ApplyAutoFill(rec, set) {
			break
		}
		changedAny = true
	}
	return changedAny
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
