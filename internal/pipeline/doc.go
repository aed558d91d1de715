// Package pipeline orchestrates the dropkit export run: it loads the
// template, rules, and entry store, normalizes and validates each record,
// aggregates records by site, and writes the tabular and shapefile outputs
// while journaling the run.
package pipeline
