package records

import (
	"path/filepath"
	"strconv"
	"strings"

	"dropkit/internal/schema"
)

const dropIDPrefix = "drop"

// PrepareForSave fills the bookkeeping fields an annotator leaves implicit:
// a blank FILENAME defaults to the video file's base name, and DATE_TIME is
// rebuilt from DATE and TIME (blank unless both are set). Returns whether
// anything changed.
func PrepareForSave(rec schema.Record, videoPath string) bool {
	changed := false

	if strings.TrimSpace(rec["FILENAME"]) == "" && videoPath != "" {
		rec["FILENAME"] = filepath.Base(videoPath)
		changed = true
	}

	date := strings.TrimSpace(rec["DATE"])
	clock := strings.TrimSpace(rec["TIME"])
	want := ""
	if date != "" && clock != "" {
		want = date + " " + clock
	}
	if rec["DATE_TIME"] != want {
		rec["DATE_TIME"] = want
		changed = true
	}
	return changed
}

// NextDropNumber scans existing records for the given point identifier and
// returns one past the highest drop number found. Drop identifiers follow
// the "drop<n>" convention; anything else is ignored.
func NextDropNumber(existing []schema.Record, pointID string) int {
	max := 0
	for _, rec := range existing {
		if rec["POINT_ID"] != pointID {
			continue
		}
		id := strings.TrimSpace(rec[schema.DropIDField])
		if !strings.HasPrefix(id, dropIDPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, dropIDPrefix))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

// FormatDropID renders a drop number in store form.
func FormatDropID(n int) string {
	return dropIDPrefix + strconv.Itoa(n)
}

// MatchBaseRow finds the base-data row whose VIDEO_FILENAME matches the
// loaded video, comparing both with and without the file extension. Returns
// nil when nothing matches.
func MatchBaseRow(baseRows []schema.Record, videoPath string) schema.Record {
	if videoPath == "" {
		return nil
	}
	videoName := filepath.Base(videoPath)
	videoStem := strings.TrimSuffix(videoName, filepath.Ext(videoName))

	for _, row := range baseRows {
		candidate := strings.TrimSpace(row["VIDEO_FILENAME"])
		if candidate == "" {
			continue
		}
		stem := strings.TrimSuffix(candidate, filepath.Ext(candidate))
		if candidate == videoName || stem == videoStem {
			return row
		}
	}
	return nil
}
