package sqlite

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"reviewbot/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "reviews.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestInsertSkipsExistingIdentifiers(t *testing.T) {
	st := openTestStore(t)

	first := []domain.Review{
		{ID: "100", Text: "great", Positive: true, VotesUp: 3},
		{ID: "101", Text: "meh", Positive: false},
	}
	n, err := st.InsertReviews(first)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}

	// Refetching overlaps with the existing corpus; only the new record lands
	// and the existing text is never rewritten.
	second := []domain.Review{
		{ID: "100", Text: "REWRITTEN", Positive: true},
		{ID: "102", Text: "new", Positive: true},
	}
	n, err = st.InsertReviews(second)
	if err != nil {
		t.Fatalf("insert overlap: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 inserted on overlap, got %d", n)
	}

	reviews, err := st.ListReviews()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reviews) != 3 {
		t.Fatalf("expected 3 reviews, got %d", len(reviews))
	}
	if reviews[0].ID != "100" || reviews[0].Text != "great" {
		t.Fatalf("existing record was rewritten: %+v", reviews[0])
	}
}

func TestListOrderedByIdentifier(t *testing.T) {
	st := openTestStore(t)
	if _, err := st.InsertReviews([]domain.Review{
		{ID: "30", Text: "c", Positive: true},
		{ID: "10", Text: "a", Positive: true},
		{ID: "20", Text: "b", Positive: false},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	reviews, err := st.ListReviews()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, want := range []string{"10", "20", "30"} {
		if reviews[i].ID != want {
			t.Fatalf("position %d: got %s, want %s", i, reviews[i].ID, want)
		}
	}
	if reviews[2].Positive || !reviews[0].Positive {
		t.Fatalf("sentiment not round-tripped: %+v", reviews)
	}
}

func TestUpdateCategoriesRoundTrip(t *testing.T) {
	st := openTestStore(t)
	if _, err := st.InsertReviews([]domain.Review{{ID: "1", Text: "x", Positive: true}}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	want := []string{"Story", "Gameplay"}
	if err := st.UpdateCategories("1", want); err != nil {
		t.Fatalf("update: %v", err)
	}
	reviews, _ := st.ListReviews()
	if !reflect.DeepEqual(reviews[0].Categories, want) {
		t.Fatalf("categories mismatch: got %v, want %v", reviews[0].Categories, want)
	}

	// Clearing writes an empty column, not a JSON empty array.
	if err := st.UpdateCategories("1", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	reviews, _ = st.ListReviews()
	if len(reviews[0].Categories) != 0 {
		t.Fatalf("categories not cleared: %v", reviews[0].Categories)
	}
}

func TestCountAndLatest(t *testing.T) {
	st := openTestStore(t)

	if n, err := st.CountReviews(); err != nil || n != 0 {
		t.Fatalf("empty corpus: n=%d err=%v", n, err)
	}
	if latest, err := st.LatestCreatedAt(); err != nil || !latest.IsZero() {
		t.Fatalf("empty corpus latest: %v err=%v", latest, err)
	}

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := st.InsertReviews([]domain.Review{
		{ID: "1", Text: "a", Positive: true, CreatedAt: older},
		{ID: "2", Text: "b", Positive: true, CreatedAt: newer},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if n, _ := st.CountReviews(); n != 2 {
		t.Fatalf("expected 2 reviews, got %d", n)
	}
	latest, err := st.LatestCreatedAt()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !latest.Equal(newer) {
		t.Fatalf("latest created_at: got %v, want %v", latest, newer)
	}
}
