// Package rules defines the closed set of data-quality rule kinds, loads
// rule documents from JSON with per-kind validation, and evaluates records
// against them.
//
// Evaluation is exhaustive: every rule runs regardless of earlier failures
// and all violation messages come back together, so an annotator sees every
// problem with an entry at once. Rule violations are values, never errors; a
// malformed rule is reported at load time and skipped, and nothing the
// evaluator does can panic past its boundary.
//
// Rule order matters for autofill (first matching trigger wins), so a Set
// preserves document order.
package rules
