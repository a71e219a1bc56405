package batch

import (
	"path/filepath"
	"testing"

	"reviewbot/internal/domain"
	"reviewbot/internal/storage/sqlite"
)

func testStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "reviews.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestMergeAppliesCategories(t *testing.T) {
	st := testStore(t)
	if _, err := st.InsertReviews([]domain.Review{
		{ID: "1", Text: "good", Positive: true},
		{ID: "2", Text: "bad", Positive: false},
	}); err != nil {
		t.Fatalf("seed corpus: %v", err)
	}

	res, err := Merge(st, []domain.ClassificationResult{
		{ID: "1", Categories: []string{"A"}, Positive: true},
		{ID: "2", Categories: []string{"B"}, Positive: false},
	}, testLogger())
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if res.Merged != 2 || res.Mismatch != 0 || res.NoReview != 0 {
		t.Fatalf("unexpected merge result: %+v", res)
	}

	reviews, err := st.ListReviews()
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(reviews[0].Categories) != 1 || reviews[0].Categories[0] != "A" {
		t.Fatalf("categories not merged for review 1: %+v", reviews[0])
	}
}

func TestMergeDiscardsSentimentMismatch(t *testing.T) {
	st := testStore(t)
	if _, err := st.InsertReviews([]domain.Review{
		{ID: "1", Text: "good", Positive: true},
	}); err != nil {
		t.Fatalf("seed corpus: %v", err)
	}

	// The stored result claims negative but the corpus says positive: the
	// classification is stale and must not be trusted.
	res, err := Merge(st, []domain.ClassificationResult{
		{ID: "1", Categories: []string{"B"}, Positive: false},
	}, testLogger())
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if res.Mismatch != 1 || res.Merged != 0 {
		t.Fatalf("mismatch not counted: %+v", res)
	}

	reviews, _ := st.ListReviews()
	if len(reviews[0].Categories) != 0 {
		t.Fatalf("mismatched categories must be cleared, got %+v", reviews[0].Categories)
	}
}

func TestMergeSkipsUnknownIdentifiers(t *testing.T) {
	st := testStore(t)

	res, err := Merge(st, []domain.ClassificationResult{
		{ID: "ghost", Categories: []string{"A"}, Positive: true},
	}, testLogger())
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if res.NoReview != 1 || res.Merged != 0 {
		t.Fatalf("unknown identifier not skipped: %+v", res)
	}
}

func TestMergeCountsFallbacks(t *testing.T) {
	st := testStore(t)
	if _, err := st.InsertReviews([]domain.Review{
		{ID: "1", Text: "good", Positive: true},
	}); err != nil {
		t.Fatalf("seed corpus: %v", err)
	}

	res, err := Merge(st, []domain.ClassificationResult{
		{ID: "1", Categories: []string{"Other"}, Positive: true, ErrorNote: "classification failed"},
	}, testLogger())
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if res.Fallbacks != 1 || res.Merged != 1 {
		t.Fatalf("fallback not counted: %+v", res)
	}
}
