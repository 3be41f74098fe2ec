// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/litvault/pkg/types"
)

// Hit is one ranked match: a record id with its relevance score and a
// highlighted snippet. Field values for display are hydrated from the
// record store by the caller, never read from the index.
type Hit struct {
	RecordID string
	Score    float64
	Snippet  string
}

// Filters are the structured predicates applied as hard post-filters on
// top of the free-text match. They never contribute to the score.
type Filters struct {
	Diseases        []string
	StudyTypes      []types.StudyType
	LiteratureTypes []types.LiteratureType
	YearFrom        int
	YearTo          int
	IsSCI           *bool
}

// Query ranks documents matching freeText by field-weighted bm25 (title
// weighted highest, then abstract, then keywords), applies the
// structured filters, and returns one page of hits plus the total match
// count. Ordering is relevance descending with id ascending as tie-break.
func (i *Index) Query(ctx context.Context, freeText string, f Filters, page, pageSize int) ([]Hit, int, error) {
	match := ftsQuery(freeText)
	if match == "" {
		return nil, 0, fmt.Errorf("empty free-text query")
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	where, args := i.buildFilterClause(f)

	base := ` FROM docs_fts f JOIN docs d ON d.id = f.record_id WHERE docs_fts MATCH ?` + where
	matchArgs := append([]any{match}, args...)

	var total int
	if err := i.db.QueryRowContext(ctx,
		`SELECT count(*)`+base, matchArgs...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting matches: %w", err)
	}

	// bm25 weights follow the FTS column order: record_id (unindexed),
	// title, abstract, keywords. Lower bm25 is more relevant.
	query := fmt.Sprintf(
		`SELECT f.record_id,
			bm25(docs_fts, 0, %f, %f, %f) AS score,
			snippet(docs_fts, -1, '<em>', '</em>', '…', 12)`,
		i.cfg.TitleWeight, i.cfg.AbstractWeight, i.cfg.KeywordWeight,
	) + base + ` ORDER BY score ASC, f.record_id ASC LIMIT ? OFFSET ?`
	matchArgs = append(matchArgs, pageSize, (page-1)*pageSize)

	rows, err := i.db.QueryContext(ctx, query, matchArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.RecordID, &h.Score, &h.Snippet); err != nil {
			return nil, 0, fmt.Errorf("scanning hit: %w", err)
		}
		// Invert so callers see higher = more relevant.
		h.Score = -h.Score
		hits = append(hits, h)
	}
	return hits, total, rows.Err()
}

func (i *Index) buildFilterClause(f Filters) (string, []any) {
	var (
		qb   strings.Builder
		args []any
	)

	for _, disease := range f.Diseases {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(d.diseases) WHERE value = ?)`)
		args = append(args, disease)
	}
	for _, st := range f.StudyTypes {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(d.study_types) WHERE value = ?)`)
		args = append(args, string(st))
	}
	if len(f.LiteratureTypes) > 0 {
		qb.WriteString(` AND d.literature_type IN (`)
		for n, lt := range f.LiteratureTypes {
			if n > 0 {
				qb.WriteString(`,`)
			}
			qb.WriteString(`?`)
			args = append(args, string(lt))
		}
		qb.WriteString(`)`)
	}
	if f.YearFrom > 0 {
		qb.WriteString(` AND d.year >= ?`)
		args = append(args, f.YearFrom)
	}
	if f.YearTo > 0 {
		qb.WriteString(` AND d.year <= ?`)
		args = append(args, f.YearTo)
	}
	if f.IsSCI != nil {
		qb.WriteString(` AND d.is_sci = ?`)
		args = append(args, boolInt(*f.IsSCI))
	}

	return qb.String(), args
}

// ftsQuery turns free text into an FTS5 MATCH expression: each token is
// quoted (neutralizing operator syntax) and tokens are ANDed implicitly.
func ftsQuery(freeText string) string {
	fields := strings.Fields(freeText)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, len(fields))
	for n, tok := range fields {
		quoted[n] = `"` + strings.ReplaceAll(tok, `"`, ``) + `"`
	}
	return strings.Join(quoted, " ")
}
