// Package records reads and appends the observation entry store, a
// header-first delimited file maintained one row per drop. The core never
// edits rows in place; it reads full record lists and appends whole entries.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dropkit/internal/schema"
)

// Store wraps one observation CSV governed by a template.
type Store struct {
	Path     string
	Template *schema.Template
}

// NewStore returns a store for the entry file at path.
func NewStore(path string, tmpl *schema.Template) *Store {
	return &Store{Path: path, Template: tmpl}
}

// Load reads every record in the store. A missing file is an empty store,
// not an error. Columns outside the template are preserved on the record so
// nothing an annotator typed is silently dropped.
func (s *Store) Load() ([]schema.Record, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open entry store: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(schema.OpenBOMTolerant(file))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read entry header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var out []schema.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read entry row %d: %w", len(out)+2, err)
		}
		rec := make(schema.Record, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(row) {
				rec[name] = row[i]
			} else {
				rec[name] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Append writes one record as a new row, creating the file with a header
// row on first use. Columns follow template order; fields the record does
// not carry are written blank.
func (s *Store) Append(rec schema.Record) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	_, statErr := os.Stat(s.Path)
	writeHeader := errors.Is(statErr, os.ErrNotExist)

	file, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open entry store: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if writeHeader {
		if err := writer.Write(s.Template.Fields); err != nil {
			return fmt.Errorf("write entry header: %w", err)
		}
	}

	row := make([]string, len(s.Template.Fields))
	for i, field := range s.Template.Fields {
		row[i] = rec[field]
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("write entry row: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush entry store: %w", err)
	}
	return nil
}
