package batch

import (
	"fmt"
	"log/slog"

	"reviewbot/internal/domain"
	"reviewbot/internal/storage/sqlite"
)

// MergeResult summarizes one merge pass.
type MergeResult struct {
	Merged    int
	Mismatch  int
	NoReview  int
	Fallbacks int
}

// Merge applies an ordered result log back onto the corpus store. A stored
// result whose sentiment does not match the corpus record is discarded
// (cleared categories) rather than trusted; a result with no matching corpus
// record is skipped. The corpus fields themselves are never mutated.
func Merge(st *sqlite.Store, results []domain.ClassificationResult, log *slog.Logger) (MergeResult, error) {
	reviews, err := st.ListReviews()
	if err != nil {
		return MergeResult{}, fmt.Errorf("loading corpus for merge: %w", err)
	}
	byID := make(map[string]domain.Review, len(reviews))
	for _, r := range reviews {
		byID[r.ID] = r
	}

	var out MergeResult
	for _, res := range results {
		rev, ok := byID[res.ID]
		if !ok {
			log.Warn("result has no corpus record, skipping", "id", res.ID)
			out.NoReview++
			continue
		}
		if rev.Positive != res.Positive {
			log.Warn("sentiment mismatch between result and corpus, discarding classification", "id", res.ID)
			if err := st.UpdateCategories(res.ID, nil); err != nil {
				return out, fmt.Errorf("clearing categories for %s: %w", res.ID, err)
			}
			out.Mismatch++
			continue
		}
		if err := st.UpdateCategories(res.ID, res.Categories); err != nil {
			return out, fmt.Errorf("updating categories for %s: %w", res.ID, err)
		}
		if res.ErrorNote != "" {
			out.Fallbacks++
		}
		out.Merged++
	}
	return out, nil
}
