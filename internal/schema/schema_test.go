package schema

import (
	"os"
	"path/filepath"
	"testing"
)

func testTemplate() *Template {
	return NewTemplate([]string{
		"POINT_ID", "DROP_ID", "FILENAME", "LATITUDE", "LONGITUDE",
		"DEPTH_M", "SG_PRESENT", "SG_COVER", "SUBSTRATE", "NOTES",
	})
}

func TestMetadataClassification(t *testing.T) {
	tmpl := testTemplate()
	for _, f := range []string{"POINT_ID", "DROP_ID", "FILENAME", "LATITUDE", "LONGITUDE"} {
		if !tmpl.IsMetadata(f) {
			t.Errorf("expected %s to be metadata", f)
		}
	}
	for _, f := range []string{"DEPTH_M", "SG_PRESENT", "SUBSTRATE", "NOTES"} {
		if tmpl.IsMetadata(f) {
			t.Errorf("did not expect %s to be metadata", f)
		}
	}
	if got := tmpl.DataFields(); len(got) != 5 {
		t.Fatalf("DataFields = %v, want 5 fields", got)
	}
}

func TestFilledFractionIgnoresMetadata(t *testing.T) {
	tmpl := testTemplate()
	rec := Record{
		"POINT_ID": "S1",
		"DROP_ID":  "drop1",
		"DEPTH_M":  "4.2",
		"NOTES":    "NA",
	}
	// 1 of 5 data fields filled (NOTES is NA, metadata ignored).
	if got := tmpl.FilledFraction(rec); got != 0.2 {
		t.Fatalf("FilledFraction = %v, want 0.2", got)
	}
	if !tmpl.NearlyEmpty(rec, 0.25) {
		t.Error("expected record below a 0.25 threshold to be nearly empty")
	}
	if tmpl.NearlyEmpty(rec, 0.2) {
		t.Error("a record exactly at the threshold is not nearly empty")
	}
}

func TestSiteIDAliasOrder(t *testing.T) {
	rec := Record{"POINT_ID": "NA", "SITE_ID": "S7"}
	id, ok := SiteID(rec)
	if !ok || id != "S7" {
		t.Fatalf("SiteID = (%q, %v), want (S7, true)", id, ok)
	}

	rec = Record{"POINT_ID": "", "SITE_ID": "N/A", "STATION_ID": ""}
	if _, ok := SiteID(rec); ok {
		t.Error("expected unresolvable site identifier")
	}
}

func TestLoadTemplateCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "template.csv")
	// Leading UTF-8 BOM, as produced by spreadsheet exports.
	content := "\ufeffPOINT_ID,DROP_ID,DEPTH_M,SUBSTRATE\nS1,drop1,4,Sand\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tmpl, err := LoadTemplateCSV(path)
	if err != nil {
		t.Fatalf("LoadTemplateCSV: %v", err)
	}
	want := []string{"POINT_ID", "DROP_ID", "DEPTH_M", "SUBSTRATE"}
	if len(tmpl.Fields) != len(want) {
		t.Fatalf("Fields = %v, want %v", tmpl.Fields, want)
	}
	for i, f := range want {
		if tmpl.Fields[i] != f {
			t.Errorf("Fields[%d] = %q, want %q", i, tmpl.Fields[i], f)
		}
	}
	if !tmpl.IsMetadata("POINT_ID") {
		t.Error("BOM should not corrupt the first header name")
	}
}

func TestLoadTemplateCSVEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTemplateCSV(path); err == nil {
		t.Fatal("expected error for empty template")
	}
}
