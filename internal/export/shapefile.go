package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	shp "github.com/jonas-p/go-shp"

	"dropkit/internal/aggregate"
	"dropkit/internal/schema"
	"dropkit/internal/value"
)

// wgs84WKT is the coordinate reference written to the .prj sidecar. Outputs
// are fixed to geographic long/lat degrees.
const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

const maxTextFieldLength = 254

// PointResult reports what the shapefile writer produced.
type PointResult struct {
	ShapefilePath string
	PrjPath       string
	MappingPath   string
	Written       int
	// Skipped counts rows without a usable numeric coordinate pair.
	Skipped int
}

// WritePointFeatures writes one point feature per aggregated row that
// carries numeric coordinates, resolving the latitude and longitude columns
// through the standard alias lists. Rows without coordinates are skipped and
// counted, never fatal. The .prj sidecar and the full-name mapping file are
// always written next to the shapefile.
func WritePointFeatures(basePath string, table *aggregate.Table) (*PointResult, error) {
	latIdx := findColumn(table.Columns, schema.LatitudeAliases)
	lonIdx := findColumn(table.Columns, schema.LongitudeAliases)
	if latIdx < 0 || lonIdx < 0 {
		return nil, fmt.Errorf("no latitude/longitude columns among %s", strings.Join(table.Columns, ", "))
	}

	shortNames := ShortFieldNames(table.Columns)
	numeric := numericColumns(table)

	fields := make([]shp.Field, len(table.Columns))
	for i, name := range shortNames {
		if numeric[i] {
			fields[i] = shp.FloatField(name, 19, 8)
		} else {
			fields[i] = shp.StringField(name, textFieldLength(table, i))
		}
	}

	shpPath := basePath + ".shp"
	writer, err := shp.Create(shpPath, shp.POINT)
	if err != nil {
		return nil, fmt.Errorf("create shapefile: %w", err)
	}
	if err := writer.SetFields(fields); err != nil {
		writer.Close()
		return nil, fmt.Errorf("set attribute fields: %w", err)
	}

	result := &PointResult{ShapefilePath: shpPath}
	for _, row := range table.Rows {
		lat, latOK := value.ParseNumber(cell(row, latIdx))
		lon, lonOK := value.ParseNumber(cell(row, lonIdx))
		if !latOK || !lonOK {
			result.Skipped++
			continue
		}
		idx := writer.Write(&shp.Point{X: lon, Y: lat})
		for col := range table.Columns {
			raw := cell(row, col)
			if numeric[col] {
				n, ok := value.ParseNumber(raw)
				if !ok {
					n = 0
				}
				if err := writer.WriteAttribute(int(idx), col, n); err != nil {
					writer.Close()
					return nil, fmt.Errorf("write attribute %s: %w", shortNames[col], err)
				}
				continue
			}
			if err := writer.WriteAttribute(int(idx), col, raw); err != nil {
				writer.Close()
				return nil, fmt.Errorf("write attribute %s: %w", shortNames[col], err)
			}
		}
		result.Written++
	}
	writer.Close()

	// go-shp names the attribute table by appending "dbf" to the base path
	// without a dot, so move it to the conventional .dbf sidecar name.
	if err := os.Rename(basePath+"dbf", basePath+".dbf"); err != nil {
		return nil, fmt.Errorf("rename attribute table: %w", err)
	}

	result.PrjPath = basePath + ".prj"
	if err := os.WriteFile(result.PrjPath, []byte(wgs84WKT+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write prj sidecar: %w", err)
	}

	result.MappingPath = basePath + "_fields.csv"
	if err := writeFieldMapping(result.MappingPath, table.Columns, shortNames); err != nil {
		return nil, err
	}
	return result, nil
}

// writeFieldMapping records original column name → generated short name so
// downstream consumers can recover full names past the DBF limit.
func writeFieldMapping(path string, cols, shortNames []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create field mapping: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"FIELD", "SHAPEFILE_FIELD"}); err != nil {
		return fmt.Errorf("write field mapping: %w", err)
	}
	for i, col := range cols {
		if err := writer.Write([]string{col, shortNames[i]}); err != nil {
			return fmt.Errorf("write field mapping: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush field mapping: %w", err)
	}
	return nil
}

// numericColumns marks columns whose every non-NA cell parses as a number.
// A column with no usable values stays text.
func numericColumns(table *aggregate.Table) []bool {
	out := make([]bool, len(table.Columns))
	for col := range table.Columns {
		sawNumber := false
		allNumeric := true
		for _, row := range table.Rows {
			raw := cell(row, col)
			if value.IsNA(raw) {
				continue
			}
			if _, ok := value.ParseNumber(raw); !ok {
				allNumeric = false
				break
			}
			sawNumber = true
		}
		out[col] = sawNumber && allNumeric
	}
	return out
}

func textFieldLength(table *aggregate.Table, col int) uint8 {
	max := 1
	for _, row := range table.Rows {
		if l := len(cell(row, col)); l > max {
			max = l
		}
	}
	if max > maxTextFieldLength {
		max = maxTextFieldLength
	}
	return uint8(max)
}

func findColumn(cols []string, aliases []string) int {
	for _, alias := range aliases {
		for i, col := range cols {
			if col == alias {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
