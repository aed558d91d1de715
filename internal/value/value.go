// Package value implements the shared raw-value conventions of the
// observation model: NA-sentinel detection, lenient numeric parsing, and
// operator-driven comparison.
//
// Every component that inspects a field value goes through this package so
// the "blank vs NA vs zero" distinctions stay consistent between validation,
// derivation, and aggregation.
package value

import (
	"strconv"
	"strings"
)

// naSentinels are the upper-cased spellings treated as "missing" everywhere.
var naSentinels = map[string]struct{}{
	"NA":   {},
	"N/A":  {},
	"NONE": {},
	"NULL": {},
	"NAN":  {},
}

// NA is the canonical sentinel written back when a field is forced to
// "not applicable" during normalization.
const NA = "NA"

// IsNA reports whether raw is empty or one of the missing-value sentinels.
// Matching is case-insensitive and ignores surrounding whitespace.
func IsNA(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return true
	}
	_, ok := naSentinels[strings.ToUpper(trimmed)]
	return ok
}

// ParseNumber attempts to read raw as a float. NA values and non-numeric
// text report ok=false rather than an error; callers decide whether that is
// a violation or simply a skip.
func ParseNumber(raw string) (float64, bool) {
	if IsNA(raw) {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Op identifies a comparison operator used by conditional rules.
type Op string

const (
	OpEquals       Op = "equals"
	OpNotEquals    Op = "not_equals"
	OpGreaterThan  Op = "greater_than"
	OpLessThan     Op = "less_than"
	OpGreaterEqual Op = "greater_equal"
	OpLessEqual    Op = "less_equal"
)

// ParseOp normalizes the operator spellings accepted in rule documents.
// Rule authors write both "greater" and "greater_than"; both map to the same
// operator.
func ParseOp(raw string) (Op, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "equals", "equal", "==", "=":
		return OpEquals, true
	case "not_equals", "not_equal", "!=":
		return OpNotEquals, true
	case "greater_than", "greater", ">":
		return OpGreaterThan, true
	case "less_than", "less", "<":
		return OpLessThan, true
	case "greater_equal", ">=":
		return OpGreaterEqual, true
	case "less_equal", "<=":
		return OpLessEqual, true
	}
	return "", false
}

// Compare evaluates current against expected under op. When both sides parse
// numerically the comparison is numeric; otherwise only equality and
// inequality are defined and the ordering operators report false. Compare
// never panics on malformed input.
func Compare(current, expected string, op Op) bool {
	curNum, curOK := ParseNumber(current)
	expNum, expOK := ParseNumber(expected)
	if curOK && expOK {
		switch op {
		case OpEquals:
			return curNum == expNum
		case OpNotEquals:
			return curNum != expNum
		case OpGreaterThan:
			return curNum > expNum
		case OpLessThan:
			return curNum < expNum
		case OpGreaterEqual:
			return curNum >= expNum
		case OpLessEqual:
			return curNum <= expNum
		}
		return false
	}

	// String fallback: ordering over arbitrary text is undefined.
	switch op {
	case OpEquals:
		return strings.TrimSpace(current) == strings.TrimSpace(expected)
	case OpNotEquals:
		return strings.TrimSpace(current) != strings.TrimSpace(expected)
	}
	return false
}

// FormatNumber renders a float the way aggregated outputs expect: fixed
// notation with up to four fractional digits and trailing zeros trimmed, so
// 20.0 prints as "20" and 10/sqrt(3) as "5.7735".
func FormatNumber(n float64) string {
	s := strconv.FormatFloat(n, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
