package aggregate

import "dropkit/internal/schema"

// Group is the set of records sharing one resolved site identifier, in
// first-seen order.
type Group struct {
	SiteID  string
	Records []schema.Record
}

// GroupBySite buckets records by their resolved site identifier. Records
// whose identifier resolves to NA are excluded and counted as skipped.
// Group order follows first appearance in the input, so output is
// reproducible for a given store.
func GroupBySite(records []schema.Record) (groups []Group, skipped int) {
	index := make(map[string]int)
	for _, rec := range records {
		id, ok := schema.SiteID(rec)
		if !ok {
			skipped++
			continue
		}
		i, seen := index[id]
		if !seen {
			index[id] = len(groups)
			groups = append(groups, Group{SiteID: id})
			i = len(groups) - 1
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	return groups, skipped
}
