// Package schema defines the observation record shape and the template that
// governs it: the ordered field list and which fields are metadata.
//
// The template is the single source of truth for field existence and order;
// core functions take a *Template explicitly instead of consulting any
// ambient state.
package schema

import (
	"strings"

	"dropkit/internal/value"
)

// Record is one observation entry: raw text keyed by template field name.
// Field names are case-sensitive and defined by the template.
type Record map[string]string

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// metadataNames are the field names treated as metadata wherever they appear:
// identifiers, coordinates, timestamps, and file references. Metadata fields
// are excluded from "is this entry filled in" checks and from numeric
// aggregation by default.
var metadataNames = map[string]struct{}{
	"POINT_ID":       {},
	"SITE_ID":        {},
	"STATION_ID":     {},
	"SITE":           {},
	"DROP_ID":        {},
	"FILENAME":       {},
	"VIDEO_FILENAME": {},
	"LATITUDE":       {},
	"LONGITUDE":      {},
	"LAT":            {},
	"LON":            {},
	"LONG":           {},
	"DATE":           {},
	"TIME":           {},
	"DATE_TIME":      {},
}

// SiteAliases is the ordered list of field names tried when resolving a
// record's site identifier. The first non-NA value wins.
var SiteAliases = []string{"POINT_ID", "SITE_ID", "STATION_ID", "SITE"}

// LatitudeAliases and LongitudeAliases resolve coordinates for the
// point-feature export.
var (
	LatitudeAliases  = []string{"LATITUDE", "LAT", "Y"}
	LongitudeAliases = []string{"LONGITUDE", "LON", "LONG", "X"}
)

// DropIDField is the per-drop identifier column. It is never carried into
// aggregated output because it only has meaning at drop granularity.
const DropIDField = "DROP_ID"

// Template describes the fields an observation record may carry, in column
// order, along with the subset considered metadata.
type Template struct {
	Fields   []string
	metadata map[string]struct{}
}

// NewTemplate builds a template from an ordered field list. Fields whose
// names appear in the well-known metadata table are marked as metadata.
func NewTemplate(fields []string) *Template {
	t := &Template{
		Fields:   append([]string(nil), fields...),
		metadata: make(map[string]struct{}),
	}
	for _, f := range fields {
		if _, ok := metadataNames[f]; ok {
			t.metadata[f] = struct{}{}
		}
	}
	return t
}

// IsMetadata reports whether the named field is a metadata field.
func (t *Template) IsMetadata(field string) bool {
	_, ok := t.metadata[field]
	return ok
}

// DataFields returns the non-metadata fields in template order.
func (t *Template) DataFields() []string {
	out := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		if !t.IsMetadata(f) {
			out = append(out, f)
		}
	}
	return out
}

// Has reports whether the template defines the named field.
func (t *Template) Has(field string) bool {
	for _, f := range t.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// FilledFraction returns the fraction of non-metadata fields carrying a
// non-NA value. A template with no data fields reports 0.
func (t *Template) FilledFraction(rec Record) float64 {
	data := t.DataFields()
	if len(data) == 0 {
		return 0
	}
	filled := 0
	for _, f := range data {
		if !value.IsNA(rec[f]) {
			filled++
		}
	}
	return float64(filled) / float64(len(data))
}

// NearlyEmpty reports whether the record's non-metadata fill fraction is
// below threshold. This backs the optional skip-near-empty validation
// policy; the threshold is configuration, not a contract.
func (t *Template) NearlyEmpty(rec Record, threshold float64) bool {
	return t.FilledFraction(rec) < threshold
}

// ResolveAlias returns the first alias with a non-NA value in the record,
// along with that value.
func ResolveAlias(rec Record, aliases []string) (field, raw string, ok bool) {
	for _, alias := range aliases {
		if v, present := rec[alias]; present && !value.IsNA(v) {
			return alias, strings.TrimSpace(v), true
		}
	}
	return "", "", false
}

// SiteID resolves the record's site identifier via SiteAliases.
func SiteID(rec Record) (string, bool) {
	_, id, ok := ResolveAlias(rec, SiteAliases)
	return id, ok
}
