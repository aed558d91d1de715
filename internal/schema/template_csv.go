package schema

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// OpenBOMTolerant wraps r so a leading UTF-8/UTF-16 byte order mark is
// stripped before CSV parsing. Spreadsheet tools routinely emit one.
func OpenBOMTolerant(r io.Reader) io.Reader {
	decoder := unicode.UTF8.NewDecoder()
	return transform.NewReader(r, unicode.BOMOverride(decoder))
}

// LoadTemplateCSV reads the header row of a template CSV and builds a
// Template from it. Rows beyond the header are ignored; the template file is
// only a column contract.
func LoadTemplateCSV(path string) (*Template, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(OpenBOMTolerant(file))
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("template %s: empty file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read template header: %w", err)
	}

	fields := make([]string, 0, len(header))
	for _, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		fields = append(fields, name)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("template %s: header has no field names", path)
	}
	return NewTemplate(fields), nil
}
