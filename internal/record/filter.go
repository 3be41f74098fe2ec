// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package record

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/litvault/pkg/types"
)

// Criteria holds the conjunctive predicates for a relational filter
// query. All predicates are ANDed; the active-status restriction is
// always implied.
type Criteria struct {
	// Keyword matches as a substring of title or abstract.
	Keyword string

	// Diseases and StudyTypes require tag containment: every listed
	// value must be present in the record's corresponding set.
	Diseases   []string
	StudyTypes []types.StudyType

	// LiteratureTypes matches any of the listed classifications.
	LiteratureTypes []types.LiteratureType

	// YearFrom and YearTo bound the publication year inclusively; zero
	// means unbounded.
	YearFrom int
	YearTo   int

	// IsSCI filters on the SCI flag when non-nil.
	IsSCI *bool

	// OwnerID restricts to one owner's records when set.
	OwnerID string

	// Page is 1-indexed; PageSize zero uses the store default.
	Page     int
	PageSize int
}

// Filter returns active records matching all criteria, plus the total
// match count for pagination. Ordering is year descending with id
// ascending as tie-break, so pages are reproducible under concurrent
// inserts.
func (s *Store) Filter(ctx context.Context, c Criteria) ([]types.Record, int, error) {
	where, args := buildPredicates(c)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM records`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting records: %w", err)
	}

	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	page := c.Page
	if page <= 0 {
		page = 1
	}

	query := selectColumns + ` FROM records` + where +
		` ORDER BY year DESC, id ASC LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("filtering records: %w", err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

func buildPredicates(c Criteria) (string, []any) {
	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(` WHERE status = ?`)
	args = append(args, string(types.StatusActive))

	if c.Keyword != "" {
		qb.WriteString(` AND (title LIKE ? OR abstract LIKE ?)`)
		pattern := "%" + c.Keyword + "%"
		args = append(args, pattern, pattern)
	}

	for _, disease := range c.Diseases {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(diseases) WHERE value = ?)`)
		args = append(args, disease)
	}

	for _, st := range c.StudyTypes {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(study_types) WHERE value = ?)`)
		args = append(args, string(st))
	}

	if len(c.LiteratureTypes) > 0 {
		qb.WriteString(` AND literature_type IN (`)
		for i, lt := range c.LiteratureTypes {
			if i > 0 {
				qb.WriteString(`,`)
			}
			qb.WriteString(`?`)
			args = append(args, string(lt))
		}
		qb.WriteString(`)`)
	}

	if c.YearFrom > 0 {
		qb.WriteString(` AND year >= ?`)
		args = append(args, c.YearFrom)
	}
	if c.YearTo > 0 {
		qb.WriteString(` AND year <= ?`)
		args = append(args, c.YearTo)
	}

	if c.IsSCI != nil {
		qb.WriteString(` AND is_sci = ?`)
		args = append(args, boolInt(*c.IsSCI))
	}

	if c.OwnerID != "" {
		qb.WriteString(` AND owner_id = ?`)
		args = append(args, c.OwnerID)
	}

	return qb.String(), args
}

// ActiveDocs enumerates every active record as an index document, for
// full index rebuilds.
func (s *Store) ActiveDocs(ctx context.Context) ([]types.IndexDoc, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` FROM records WHERE status = ? ORDER BY id`,
		string(types.StatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("enumerating active records: %w", err)
	}
	defer rows.Close()

	var docs []types.IndexDoc
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		docs = append(docs, Doc(rec))
	}
	return docs, rows.Err()
}

// Doc projects a record onto its search-index document.
func Doc(rec types.Record) types.IndexDoc {
	return types.IndexDoc{
		ID:             rec.ID,
		Title:          rec.Title,
		Abstract:       rec.Abstract,
		Keywords:       rec.Keywords,
		Diseases:       rec.Diseases,
		StudyTypes:     rec.StudyTypes,
		LiteratureType: rec.LiteratureType,
		Year:           rec.Year,
		IsSCI:          rec.IsSCI,
	}
}
