// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the litvault engine:
// literature records, recycle-bin entries, search requests, and stage
// configuration.
package types

// IndexDoc is the denormalized projection of one active record held by
// the search index. It exists only for ranking and filtering; display
// values are always hydrated from the record store.
type IndexDoc struct {
	ID             string         `json:"id" yaml:"id"`
	Title          string         `json:"title" yaml:"title"`
	Abstract       string         `json:"abstract" yaml:"abstract"`
	Keywords       []string       `json:"keywords" yaml:"keywords"`
	Diseases       []string       `json:"diseases" yaml:"diseases"`
	StudyTypes     []StudyType    `json:"study_types" yaml:"study_types"`
	LiteratureType LiteratureType `json:"literature_type" yaml:"literature_type"`
	Year           int            `json:"year" yaml:"year"`
	IsSCI          bool           `json:"is_sci" yaml:"is_sci"`
}

// SearchRequest is the retrieval coordinator's input. FreeText empty
// means exact relational filtering only; FreeText present engages the
// search index for relevance ranking.
type SearchRequest struct {
	FreeText        string           `json:"free_text,omitempty" yaml:"free_text,omitempty"`
	Keyword         string           `json:"keyword,omitempty" yaml:"keyword,omitempty"`
	Diseases        []string         `json:"diseases,omitempty" yaml:"diseases,omitempty"`
	StudyTypes      []StudyType      `json:"study_types,omitempty" yaml:"study_types,omitempty"`
	LiteratureTypes []LiteratureType `json:"literature_types,omitempty" yaml:"literature_types,omitempty"`
	YearFrom        int              `json:"year_from,omitempty" yaml:"year_from,omitempty"`
	YearTo          int              `json:"year_to,omitempty" yaml:"year_to,omitempty"`
	IsSCI           *bool            `json:"is_sci,omitempty" yaml:"is_sci,omitempty"`

	// Page is 1-indexed. PageSize zero uses the configured default.
	Page     int `json:"page" yaml:"page"`
	PageSize int `json:"page_size" yaml:"page_size"`
}

// SearchHit is one ranked result. Score and Snippet are only populated
// for free-text queries.
type SearchHit struct {
	Record  Record  `json:"record" yaml:"record"`
	Score   float64 `json:"score,omitempty" yaml:"score,omitempty"`
	Snippet string  `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// SearchResult is the coordinator's output. Degraded is set when the
// search index was unreachable and the result fell back to relational
// filtering without relevance ranking.
type SearchResult struct {
	Items    []SearchHit `json:"items" yaml:"items"`
	Total    int         `json:"total" yaml:"total"`
	TookMs   int64       `json:"took_ms" yaml:"took_ms"`
	Degraded bool        `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}
