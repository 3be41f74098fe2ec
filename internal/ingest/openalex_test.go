package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/litvault/internal/errs"
	"github.com/pdiddy/litvault/pkg/types"
)

const workJSON = `{
	"id": "https://openalex.org/W123",
	"title": "Resistance training in sarcopenic adults",
	"doi": "https://doi.org/10.1000/sarc.2023",
	"type": "article",
	"publication_year": 2023,
	"authorships": [
		{
			"author_position": "first",
			"is_corresponding": false,
			"author": {"id": "https://openalex.org/A1", "display_name": "Ana Moreira"},
			"institutions": [{"display_name": "University of Porto"}]
		},
		{
			"author_position": "last",
			"is_corresponding": true,
			"author": {"id": "https://openalex.org/A2", "display_name": "Wei Chen"},
			"institutions": [{"display_name": "Fudan University"}, {"display_name": "University of Porto"}]
		}
	],
	"abstract_inverted_index": {"Resistance": [0], "training": [1], "improves": [2], "strength": [3]},
	"keywords": [{"display_name": "sarcopenia"}, {"display_name": "resistance training"}],
	"biblio": {"volume": "12", "issue": "4", "first_page": "301", "last_page": "315"},
	"primary_location": {"source": {"display_name": "Journal of Ageing Research"}}
}`

func testResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := openAlexWorksBase
	openAlexWorksBase = ts.URL
	t.Cleanup(func() { openAlexWorksBase = old })

	return NewResolver(ts.Client(), types.IngestConfig{MaxRetries: 1})
}

func TestResolveDOIMapsWork(t *testing.T) {
	r := testResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(workJSON))
	})

	rec, err := r.ResolveDOI(context.Background(), "10.1000/sarc.2023")
	if err != nil {
		t.Fatal(err)
	}

	if rec.Title != "Resistance training in sarcopenic adults" {
		t.Errorf("title = %q", rec.Title)
	}
	if rec.Abstract != "Resistance training improves strength" {
		t.Errorf("abstract = %q", rec.Abstract)
	}
	if rec.DOI != "10.1000/sarc.2023" {
		t.Errorf("doi = %q", rec.DOI)
	}
	if rec.Journal != "Journal of Ageing Research" || rec.Year != 2023 {
		t.Errorf("journal/year = %q/%d", rec.Journal, rec.Year)
	}
	if rec.Volume != "12" || rec.Issue != "4" || rec.Pages != "301-315" {
		t.Errorf("biblio = %q/%q/%q", rec.Volume, rec.Issue, rec.Pages)
	}
	if rec.LiteratureType != types.TypeJournal {
		t.Errorf("literature type = %q", rec.LiteratureType)
	}
	if rec.Source != "openalex" {
		t.Errorf("source = %q", rec.Source)
	}

	if len(rec.Authors) != 2 || rec.Authors[0] != "Ana Moreira" {
		t.Errorf("authors = %v", rec.Authors)
	}
	if rec.FirstAuthor != "Ana Moreira" {
		t.Errorf("first author = %q", rec.FirstAuthor)
	}
	if rec.CorrespondingAuthor != "Wei Chen" {
		t.Errorf("corresponding author = %q", rec.CorrespondingAuthor)
	}
	// Affiliations are deduplicated.
	if len(rec.AuthorUnits) != 2 {
		t.Errorf("author units = %v", rec.AuthorUnits)
	}

	if len(rec.Keywords) != 2 || rec.Keywords[0] != "sarcopenia" {
		t.Errorf("keywords = %v", rec.Keywords)
	}
	if rec.TextAvailability != "abstract" {
		t.Errorf("text availability = %q", rec.TextAvailability)
	}

	// Lifecycle fields belong to the store, not the resolver.
	if rec.ID != "" || rec.Status != "" || rec.OwnerID != "" {
		t.Error("resolver must not assign lifecycle fields")
	}
}

func TestResolveDOIStripsURLPrefix(t *testing.T) {
	var gotPath string
	r := testResolver(t, func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		w.Write([]byte(workJSON))
	})

	rec, err := r.ResolveDOI(context.Background(), "https://doi.org/10.1000/sarc.2023")
	if err != nil {
		t.Fatal(err)
	}
	if rec.DOI != "10.1000/sarc.2023" {
		t.Errorf("doi = %q", rec.DOI)
	}
	if gotPath == "" {
		t.Fatal("no request reached the server")
	}
}

func TestResolveDOIUnknown(t *testing.T) {
	r := testResolver(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := r.ResolveDOI(context.Background(), "10.9999/missing")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveDOIEmpty(t *testing.T) {
	r := NewResolver(nil, types.IngestConfig{})
	if _, err := r.ResolveDOI(context.Background(), "  "); err == nil {
		t.Error("expected error for empty DOI")
	}
}

func TestResolveDOIUpstreamFailure(t *testing.T) {
	r := testResolver(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := r.ResolveDOI(context.Background(), "10.1000/sarc.2023")
	if !errors.Is(err, errs.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestLiteratureTypeMapping(t *testing.T) {
	cases := map[string]types.LiteratureType{
		"article":             types.TypeJournal,
		"review":              types.TypeJournal,
		"book":                types.TypeBook,
		"dissertation":        types.TypeThesis,
		"report":              types.TypeReport,
		"proceedings-article": types.TypeConference,
		"dataset":             types.TypeOther,
		"":                    types.TypeOther,
	}
	for workType, want := range cases {
		if got := literatureTypeFor(workType); got != want {
			t.Errorf("literatureTypeFor(%q) = %q, want %q", workType, got, want)
		}
	}
}
