// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest resolves bibliographic metadata for new records by DOI.
// Lookups go to the OpenAlex Works API; the result is a pre-filled
// record the caller reviews and stores. Ingest never writes to the
// record store itself.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/litvault/internal/errs"
	"github.com/pdiddy/litvault/internal/httputil"
	"github.com/pdiddy/litvault/pkg/types"
)

// openAlexWorksBase is the OpenAlex single-work endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexWorksBase = "https://api.openalex.org/works"

// Resolver looks up work metadata by DOI.
type Resolver struct {
	client *http.Client
	cfg    types.IngestConfig
}

// NewResolver constructs a resolver. A nil client uses a default client
// bounded by the configured timeout.
func NewResolver(client *http.Client, cfg types.IngestConfig) *Resolver {
	full := types.EngineConfig{Ingest: cfg}.WithDefaults()
	cfg = full.Ingest
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Resolver{client: client, cfg: cfg}
}

// ResolveDOI fetches the work registered under the DOI and maps it onto
// a record. The returned record carries no id, status, or ownership;
// those are assigned when the caller stores it.
func (r *Resolver) ResolveDOI(ctx context.Context, doi string) (types.Record, error) {
	doi = strings.TrimSpace(strings.TrimPrefix(doi, "https://doi.org/"))
	if doi == "" {
		return types.Record{}, fmt.Errorf("empty DOI")
	}

	reqURL := openAlexWorksBase + "/https://doi.org/" + url.PathEscape(doi)
	if r.cfg.Email != "" {
		reqURL += "?mailto=" + url.QueryEscape(r.cfg.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.Record{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := httputil.DoWithRetry(ctx, r.client, req, r.cfg.MaxRetries)
	if err != nil {
		return types.Record{}, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return types.Record{}, fmt.Errorf("DOI %s: %w", doi, errs.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return types.Record{}, fmt.Errorf("OpenAlex API returned HTTP %d: %w", resp.StatusCode, errs.ErrUnavailable)
	}

	var work openAlexWork
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		return types.Record{}, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	return recordFromWork(work, doi), nil
}

func recordFromWork(work openAlexWork, doi string) types.Record {
	rec := types.Record{
		Title:          work.Title,
		Abstract:       reconstructAbstract(work.AbstractInvertedIndex),
		Journal:        work.PrimaryLocation.Source.DisplayName,
		Year:           work.PublicationYear,
		Volume:         work.Biblio.Volume,
		Issue:          work.Biblio.Issue,
		DOI:            doi,
		LiteratureType: literatureTypeFor(work.Type),
		Source:         "openalex",
	}

	if work.Biblio.FirstPage != "" {
		rec.Pages = work.Biblio.FirstPage
		if work.Biblio.LastPage != "" && work.Biblio.LastPage != work.Biblio.FirstPage {
			rec.Pages += "-" + work.Biblio.LastPage
		}
	}

	seenUnits := make(map[string]bool)
	for _, as := range work.Authorships {
		name := as.Author.DisplayName
		if name == "" {
			continue
		}
		rec.Authors = append(rec.Authors, name)
		if as.AuthorPosition == "first" && rec.FirstAuthor == "" {
			rec.FirstAuthor = name
		}
		if as.IsCorresponding && rec.CorrespondingAuthor == "" {
			rec.CorrespondingAuthor = name
		}
		for _, inst := range as.Institutions {
			if inst.DisplayName != "" && !seenUnits[inst.DisplayName] {
				seenUnits[inst.DisplayName] = true
				rec.AuthorUnits = append(rec.AuthorUnits, inst.DisplayName)
			}
		}
	}
	if rec.FirstAuthor == "" && len(rec.Authors) > 0 {
		rec.FirstAuthor = rec.Authors[0]
	}

	for _, kw := range work.Keywords {
		if kw.DisplayName != "" {
			rec.Keywords = append(rec.Keywords, kw.DisplayName)
		}
	}

	if rec.Abstract != "" {
		rec.TextAvailability = "abstract"
	}
	return rec
}

// literatureTypeFor maps OpenAlex work types onto the local
// classification. Unknown types fall back to other.
func literatureTypeFor(workType string) types.LiteratureType {
	switch workType {
	case "article", "review", "letter", "editorial":
		return types.TypeJournal
	case "book", "book-chapter", "monograph":
		return types.TypeBook
	case "dissertation":
		return types.TypeThesis
	case "report":
		return types.TypeReport
	case "standard":
		return types.TypeStandard
	case "proceedings-article":
		return types.TypeConference
	}
	return types.TypeOther
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back
// to plain text. The inverted index maps each word to the positions
// where it appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	Type                  string               `json:"type"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	Keywords              []openAlexKeyword    `json:"keywords"`
	Biblio                openAlexBiblio       `json:"biblio"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
}

type openAlexAuthorship struct {
	AuthorPosition  string                `json:"author_position"`
	IsCorresponding bool                  `json:"is_corresponding"`
	Author          openAlexAuthor        `json:"author"`
	Institutions    []openAlexInstitution `json:"institutions"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexInstitution struct {
	DisplayName string `json:"display_name"`
}

type openAlexKeyword struct {
	DisplayName string `json:"display_name"`
}

type openAlexBiblio struct {
	Volume    string `json:"volume"`
	Issue     string `json:"issue"`
	FirstPage string `json:"first_page"`
	LastPage  string `json:"last_page"`
}

type openAlexLocation struct {
	Source openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}
