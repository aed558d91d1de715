// Package aggregate collapses per-drop observation records into one
// summarized record per site. Each field is reduced with a per-field
// strategy, either chosen explicitly by the caller or inferred from the
// field name and its values.
package aggregate
