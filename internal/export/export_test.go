package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	shp "github.com/jonas-p/go-shp"

	"dropkit/internal/aggregate"
)

func sampleTable() *aggregate.Table {
	return &aggregate.Table{
		Columns: []string{"POINT_ID", "LATITUDE", "LONGITUDE", "SG_COVER", "SUBSTRATE"},
		Rows: [][]string{
			{"S1", "-18.1", "146.2", "20", "Sand/Rubble"},
			{"S2", "-18.4", "146.5", "NA", "Rubble"},
			{"S3", "", "146.9", "5", "Mud"}, // no latitude
		},
	}
}

func TestWriteTabular(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.csv")
	if err := WriteTabular(path, sampleTable(), 0); err != nil {
		t.Fatalf("WriteTabular: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if rows[0][0] != "POINT_ID" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[2][3] != "NA" {
		t.Errorf("NA cell must survive the round trip, got %q", rows[2][3])
	}
}

func TestWriteTabularTabDelimited(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.tsv")
	if err := WriteTabular(path, sampleTable(), '\t'); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "POINT_ID\tLATITUDE") {
		t.Error("expected tab-delimited header")
	}
}

func TestWritePointFeatures(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "sites")

	result, err := WritePointFeatures(base, sampleTable())
	if err != nil {
		t.Fatalf("WritePointFeatures: %v", err)
	}
	if result.Written != 2 {
		t.Errorf("written = %d, want 2", result.Written)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1 (missing latitude)", result.Skipped)
	}

	for _, path := range []string{result.ShapefilePath, result.PrjPath, result.MappingPath, base + ".shx", base + ".dbf"} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing output %s: %v", path, err)
		}
	}
	if _, err := os.Stat(base + "dbf"); !os.IsNotExist(err) {
		t.Errorf("attribute table left at %sdbf instead of the .dbf sidecar", base)
	}

	prj, err := os.ReadFile(result.PrjPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(prj), "GCS_WGS_1984") {
		t.Error("prj sidecar must pin WGS84 long/lat")
	}

	reader, err := shp.Open(result.ShapefilePath)
	if err != nil {
		t.Fatalf("reopen shapefile: %v", err)
	}
	defer reader.Close()

	count := 0
	for reader.Next() {
		_, shape := reader.Shape()
		point, ok := shape.(*shp.Point)
		if !ok {
			t.Fatalf("shape %d is not a point", count)
		}
		if count == 0 && (point.X != 146.2 || point.Y != -18.1) {
			t.Errorf("first point = (%v, %v), want (146.2, -18.1)", point.X, point.Y)
		}
		count++
	}
	if count != 2 {
		t.Errorf("shapefile holds %d features, want 2", count)
	}
}

func TestWritePointFeaturesFieldMapping(t *testing.T) {
	dir := t.TempDir()
	table := &aggregate.Table{
		Columns: []string{"POINT_ID", "LATITUDE", "LONGITUDE", "SEAGRASS_COVER_MEAN", "SEAGRASS_COVER_MEAN_SE"},
		Rows:    [][]string{{"S1", "-18.1", "146.2", "20", "1.5"}},
	}
	result, err := WritePointFeatures(filepath.Join(dir, "sites"), table)
	if err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(result.MappingPath)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(table.Columns)+1 {
		t.Fatalf("mapping rows = %d, want %d", len(rows), len(table.Columns)+1)
	}
	if rows[0][0] != "FIELD" || rows[0][1] != "SHAPEFILE_FIELD" {
		t.Errorf("mapping header = %v", rows[0])
	}
	// The two long names collide at 10 chars and must map to distinct
	// short names.
	if rows[4][1] == rows[5][1] {
		t.Errorf("colliding columns share short name %q", rows[4][1])
	}
	for _, row := range rows[1:] {
		if len(row[1]) > 10 {
			t.Errorf("short name %q exceeds 10 characters", row[1])
		}
	}
}

func TestWritePointFeaturesAttributeTableError(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "sites")
	// Occupy the path the attribute table is created at so the write fails.
	if err := os.Mkdir(base+"dbf", 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := WritePointFeatures(base, sampleTable()); err == nil {
		t.Fatal("expected an error when the attribute table cannot be created")
	}
}

func TestWritePointFeaturesNoCoordinates(t *testing.T) {
	table := &aggregate.Table{Columns: []string{"POINT_ID", "SG_COVER"}, Rows: [][]string{{"S1", "20"}}}
	if _, err := WritePointFeatures(filepath.Join(t.TempDir(), "sites"), table); err == nil {
		t.Fatal("expected an error without coordinate columns")
	}
}
