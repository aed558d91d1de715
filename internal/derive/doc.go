// Package derive computes field values from rules: autofill actions,
// calculated-field formulas, and the conditional-sum normalization pass that
// reconciles blank, zero, and NA entries before aggregation.
//
// The formula evaluator is a fenced arithmetic parser over field-name tokens
// (numbers, + - * / and parentheses only); template authors cannot reach any
// general evaluation machinery through it.
package derive
