// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package record

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 100000

// ExportYAML writes the active records matching criteria to
// dir/export.yaml.
func (s *Store) ExportYAML(ctx context.Context, dir string, c Criteria) error {
	records, err := s.exportRecords(ctx, c)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "export.yaml"), data, 0o644)
}

// ExportJSON writes the active records matching criteria to
// dir/export.json.
func (s *Store) ExportJSON(ctx context.Context, dir string, c Criteria) error {
	records, err := s.exportRecords(ctx, c)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "export.json"), data, 0o644)
}

func (s *Store) exportRecords(ctx context.Context, c Criteria) ([]ExportRecord, error) {
	c.Page = 1
	c.PageSize = exportLimit
	records, _, err := s.Filter(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportRecord, len(records))
	for i, rec := range records {
		entries[i] = ExportRecord{
			ID:             rec.ID,
			Title:          rec.Title,
			Authors:        rec.Authors,
			Journal:        rec.Journal,
			Year:           rec.Year,
			DOI:            rec.DOI,
			LiteratureType: string(rec.LiteratureType),
			IsSCI:          rec.IsSCI,
		}
	}
	return entries, nil
}

// ExportRecord is the citation-level subset of a record included in
// exports.
type ExportRecord struct {
	ID             string   `json:"id" yaml:"id"`
	Title          string   `json:"title" yaml:"title"`
	Authors        []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Journal        string   `json:"journal,omitempty" yaml:"journal,omitempty"`
	Year           int      `json:"year,omitempty" yaml:"year,omitempty"`
	DOI            string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	LiteratureType string   `json:"literature_type,omitempty" yaml:"literature_type,omitempty"`
	IsSCI          bool     `json:"is_sci" yaml:"is_sci"`
}
