// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"testing"

	"github.com/pdiddy/litvault/pkg/types"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	cfg := types.EngineConfig{
		Store: types.StoreConfig{DataDir: t.TempDir()},
	}
	idx, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func doc(id, title, abstract string, keywords ...string) types.IndexDoc {
	return types.IndexDoc{
		ID:       id,
		Title:    title,
		Abstract: abstract,
		Keywords: keywords,
		Year:     2021,
	}
}

func mustUpsert(t *testing.T, idx *Index, docs ...types.IndexDoc) {
	t.Helper()
	for _, d := range docs {
		if err := idx.Upsert(context.Background(), d); err != nil {
			t.Fatal(err)
		}
	}
}

func hitIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.RecordID
	}
	return ids
}

// --- Upsert / Remove ---

func TestUpsertIdempotent(t *testing.T) {
	idx := testIndex(t)
	d := doc("r1", "Insulin resistance", "A study of glucose uptake")

	// Redelivery of the same change must not duplicate the document.
	mustUpsert(t, idx, d, d, d)

	size, err := idx.Size(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if size != 1 {
		t.Fatalf("size = %d, want 1", size)
	}

	hits, total, err := idx.Query(context.Background(), "insulin", Filters{}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(hits) != 1 {
		t.Errorf("total = %d, hits = %d, want 1/1", total, len(hits))
	}
}

func TestUpsertReplacesText(t *testing.T) {
	idx := testIndex(t)
	mustUpsert(t, idx, doc("r1", "Old topic", "about statins"))
	mustUpsert(t, idx, doc("r1", "New topic", "about metformin"))

	if _, total, _ := idx.Query(context.Background(), "statins", Filters{}, 1, 10); total != 0 {
		t.Errorf("stale text still matches, total = %d", total)
	}
	if _, total, _ := idx.Query(context.Background(), "metformin", Filters{}, 1, 10); total != 1 {
		t.Errorf("new text not matching, total = %d", total)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	idx := testIndex(t)
	mustUpsert(t, idx, doc("r1", "Ephemeral", "soon removed"))

	ctx := context.Background()
	if err := idx.Remove(ctx, "r1"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Remove(ctx, "r1"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Remove(ctx, "never-indexed"); err != nil {
		t.Fatal(err)
	}

	size, err := idx.Size(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Errorf("size = %d, want 0", size)
	}
}

// --- Query ranking ---

func TestFieldWeightedRanking(t *testing.T) {
	idx := testIndex(t)
	mustUpsert(t, idx,
		doc("in-title", "Sarcopenia in older adults", "unrelated body text"),
		doc("in-abstract", "Muscle loss review", "a sarcopenia cohort study"),
		doc("in-keywords", "Aging biomarkers", "unrelated body text",
			"sarcopenia", "aging", "biomarkers", "frailty", "muscle"),
	)

	hits, total, err := idx.Query(context.Background(), "sarcopenia", Filters{}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}

	got := hitIDs(hits)
	want := []string{"in-title", "in-abstract", "in-keywords"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank order = %v, want %v", got, want)
		}
	}
	if hits[0].Score <= hits[2].Score {
		t.Errorf("title match did not outscore keyword match: %v vs %v",
			hits[0].Score, hits[2].Score)
	}
}

func TestQuerySnippetHighlights(t *testing.T) {
	idx := testIndex(t)
	mustUpsert(t, idx, doc("r1", "Plain title", "long abstract mentioning anastomosis technique details"))

	hits, _, err := idx.Query(context.Background(), "anastomosis", Filters{}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].Snippet == "" {
		t.Error("expected highlighted snippet")
	}
}

func TestQueryStructuredFilters(t *testing.T) {
	idx := testIndex(t)
	sci := types.IndexDoc{
		ID: "sci", Title: "Thyroid cancer screening", Abstract: "screening outcomes",
		Year: 2022, IsSCI: true, Diseases: []string{"thyroid"},
		LiteratureType: types.TypeJournal,
	}
	nonSci := types.IndexDoc{
		ID: "non-sci", Title: "Thyroid nodule management", Abstract: "management outcomes",
		Year: 2018, IsSCI: false, Diseases: []string{"thyroid"},
		LiteratureType: types.TypeReport,
	}
	mustUpsert(t, idx, sci, nonSci)

	flag := true
	hits, total, err := idx.Query(context.Background(), "thyroid", Filters{
		YearFrom: 2020, YearTo: 2023, IsSCI: &flag,
	}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(hits) != 1 || hits[0].RecordID != "sci" {
		t.Errorf("filters not applied: total=%d hits=%v", total, hitIDs(hits))
	}

	// Filters never widen the text match.
	if _, total, _ := idx.Query(context.Background(), "nonexistent", Filters{IsSCI: &flag}, 1, 10); total != 0 {
		t.Errorf("filter-only match leaked, total = %d", total)
	}
}

func TestQueryPagination(t *testing.T) {
	idx := testIndex(t)
	mustUpsert(t, idx,
		doc("a", "pagination study", "same text"),
		doc("b", "pagination study", "same text"),
		doc("c", "pagination study", "same text"),
	)

	page1, total, err := idx.Query(context.Background(), "pagination", Filters{}, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	page2, _, err := idx.Query(context.Background(), "pagination", Filters{}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	// Identical scores, so ids break the tie deterministically.
	if got := hitIDs(page1); got[0] != "a" || got[1] != "b" {
		t.Errorf("page1 = %v", got)
	}
	if got := hitIDs(page2); len(got) != 1 || got[0] != "c" {
		t.Errorf("page2 = %v", got)
	}
}

// --- Rebuild ---

func TestRebuildRestoresParity(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	// Drift: stale document plus a missing one.
	mustUpsert(t, idx,
		doc("stale", "Removed upstream", "should disappear"),
		doc("kept", "Still active", "stays after rebuild"),
	)

	source := []types.IndexDoc{
		doc("kept", "Still active", "stays after rebuild"),
		doc("fresh", "Newly visible", "appears after rebuild"),
	}
	if err := idx.Rebuild(ctx, source); err != nil {
		t.Fatal(err)
	}

	size, err := idx.Size(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if size != len(source) {
		t.Fatalf("size = %d, want %d", size, len(source))
	}

	if _, total, _ := idx.Query(ctx, "disappear", Filters{}, 1, 10); total != 0 {
		t.Error("stale document survived rebuild")
	}
	if _, total, _ := idx.Query(ctx, "appears", Filters{}, 1, 10); total != 1 {
		t.Error("fresh document missing after rebuild")
	}
}

func TestRebuildFromEmptySource(t *testing.T) {
	idx := testIndex(t)
	mustUpsert(t, idx, doc("r1", "Soon gone", "emptied"))

	if err := idx.Rebuild(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	size, err := idx.Size(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Errorf("size = %d, want 0", size)
	}
}
