// Package export writes aggregated site tables to disk: a delimited tabular
// file, and an ESRI point shapefile with a 10-character-safe field name
// layer plus sidecar files (.prj coordinate reference, field-name mapping).
package export

import (
	"fmt"
	"strings"
)

// dbfNameLimit is the DBF attribute-name budget shapefiles impose.
const dbfNameLimit = 10

// ShortFieldNames maps each column to a shapefile-safe name: uppercase,
// non-alphanumeric runes replaced with "_", truncated to ten characters, and
// de-duplicated with a numeric suffix that itself fits the limit. The
// returned slice is aligned with cols.
func ShortFieldNames(cols []string) []string {
	used := make(map[string]struct{}, len(cols))
	out := make([]string, len(cols))
	for i, col := range cols {
		base := sanitizeFieldName(col)
		name := base
		for n := 2; ; n++ {
			if _, taken := used[name]; !taken {
				break
			}
			suffix := fmt.Sprintf("_%d", n)
			keep := dbfNameLimit - len(suffix)
			if keep > len(base) {
				keep = len(base)
			}
			name = base[:keep] + suffix
		}
		used[name] = struct{}{}
		out[i] = name
	}
	return out
}

func sanitizeFieldName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(name)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" {
		s = "FIELD"
	}
	if len(s) > dbfNameLimit {
		s = s[:dbfNameLimit]
	}
	return s
}
