package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"dropkit/internal/aggregate"
)

// WriteTabular writes the aggregated table as a header-first delimited file.
// A zero delimiter means comma.
func WriteTabular(path string, table *aggregate.Table, delimiter rune) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create tabular export: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if delimiter != 0 {
		writer.Comma = delimiter
	}
	if err := writer.Write(table.Columns); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for i, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write export row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush tabular export: %w", err)
	}
	return nil
}
