// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval merges exact relational filtering with full-text
// relevance ranking. Requests without free text are served entirely from
// the record store (strongly consistent); requests with free text are
// ranked by the search index and hydrated against the record store, which
// remains authoritative for every displayed field.
package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/litvault/internal/errs"
	"github.com/pdiddy/litvault/internal/index"
	"github.com/pdiddy/litvault/internal/record"
	"github.com/pdiddy/litvault/pkg/types"
)

// Searcher is the index query surface the coordinator depends on.
type Searcher interface {
	Query(ctx context.Context, freeText string, f index.Filters, page, pageSize int) ([]index.Hit, int, error)
}

// Coordinator routes search requests between the two stores.
type Coordinator struct {
	store    *record.Store
	idx      Searcher
	logger   *zap.Logger
	pageSize int
}

// New constructs a coordinator. A nil logger disables logging.
func New(store *record.Store, idx Searcher, cfg types.EngineConfig, logger *zap.Logger) *Coordinator {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:    store,
		idx:      idx,
		logger:   logger,
		pageSize: cfg.Store.PageSize,
	}
}

// Search serves one retrieval request. Free-text results are ordered by
// relevance descending with id ascending as tie-break; ids returned by
// the index but no longer resolvable in the record store (a race with a
// delete) are silently dropped without adjusting the total. When the
// index is unreachable the request degrades to relational filtering with
// the free text demoted to a keyword substring match.
func (c *Coordinator) Search(ctx context.Context, req types.SearchRequest) (types.SearchResult, error) {
	start := time.Now()

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = c.pageSize
	}

	var (
		result types.SearchResult
		err    error
	)
	if req.FreeText == "" {
		result, err = c.relational(ctx, req, req.Keyword, false)
	} else {
		result, err = c.ranked(ctx, req)
	}
	if err != nil {
		return types.SearchResult{}, err
	}

	result.TookMs = time.Since(start).Milliseconds()
	return result, nil
}

func (c *Coordinator) relational(ctx context.Context, req types.SearchRequest, keyword string, degraded bool) (types.SearchResult, error) {
	records, total, err := c.store.Filter(ctx, record.Criteria{
		Keyword:         keyword,
		Diseases:        req.Diseases,
		StudyTypes:      req.StudyTypes,
		LiteratureTypes: req.LiteratureTypes,
		YearFrom:        req.YearFrom,
		YearTo:          req.YearTo,
		IsSCI:           req.IsSCI,
		Page:            req.Page,
		PageSize:        req.PageSize,
	})
	if err != nil {
		return types.SearchResult{}, err
	}

	items := make([]types.SearchHit, len(records))
	for i, rec := range records {
		items[i] = types.SearchHit{Record: rec}
	}
	return types.SearchResult{Items: items, Total: total, Degraded: degraded}, nil
}

func (c *Coordinator) ranked(ctx context.Context, req types.SearchRequest) (types.SearchResult, error) {
	hits, total, err := c.idx.Query(ctx, req.FreeText, index.Filters{
		Diseases:        req.Diseases,
		StudyTypes:      req.StudyTypes,
		LiteratureTypes: req.LiteratureTypes,
		YearFrom:        req.YearFrom,
		YearTo:          req.YearTo,
		IsSCI:           req.IsSCI,
	}, req.Page, req.PageSize)
	if err != nil {
		// Degraded fallback: exact filtering, free text as substring.
		c.logger.Warn("search index unavailable, falling back to relational filtering",
			zap.Error(err))
		result, fbErr := c.relational(ctx, req, req.FreeText, true)
		if fbErr != nil {
			return types.SearchResult{}, errs.ErrUnavailable
		}
		return result, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.RecordID
	}
	records, err := c.store.GetMany(ctx, ids)
	if err != nil {
		return types.SearchResult{}, err
	}

	// Hydrate in rank order; index-cached values are used only for
	// ranking and snippets, never for display.
	items := make([]types.SearchHit, 0, len(hits))
	for _, h := range hits {
		rec, ok := records[h.RecordID]
		if !ok {
			continue
		}
		items = append(items, types.SearchHit{
			Record:  rec,
			Score:   h.Score,
			Snippet: h.Snippet,
		})
	}
	return types.SearchResult{Items: items, Total: total}, nil
}
