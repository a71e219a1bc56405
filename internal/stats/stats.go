// Package stats aggregates a classified corpus into the data an external
// report renderer consumes. It produces numbers and JSON, never charts.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"reviewbot/internal/domain"
)

// CategoryStat is one category's share within its sentiment.
type CategoryStat struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// RepresentativeReview carries the engagement metadata a renderer needs.
type RepresentativeReview struct {
	ID            string  `json:"identifier"`
	Text          string  `json:"review_text"`
	Positive      bool    `json:"voted_up"`
	VotesUp       int     `json:"votes_up"`
	PlaytimeHours float64 `json:"author_playtime_hours"`
}

// Summary is the renderer handoff document.
type Summary struct {
	TotalReviews       int                               `json:"total_reviews"`
	PositiveReviews    int                               `json:"positive_reviews"`
	NegativeReviews    int                               `json:"negative_reviews"`
	PositiveCategories map[string]CategoryStat           `json:"positive_categories"`
	NegativeCategories map[string]CategoryStat           `json:"negative_categories"`
	MultiCategory      map[int]int                       `json:"multi_category_stats"`
	Uncategorized      int                               `json:"uncategorized"`
	Representative     map[string][]RepresentativeReview `json:"representative_reviews"`
}

// Build computes per-sentiment category distributions, the multi-category
// histogram, and up to maxPerCategory representative reviews per category
// ranked by votes_up.
func Build(reviews []domain.Review, maxPerCategory int) Summary {
	if maxPerCategory <= 0 {
		maxPerCategory = 5
	}
	s := Summary{
		PositiveCategories: make(map[string]CategoryStat),
		NegativeCategories: make(map[string]CategoryStat),
		MultiCategory:      make(map[int]int),
		Representative:     make(map[string][]RepresentativeReview),
	}

	posCounts := make(map[string]int)
	negCounts := make(map[string]int)
	byCategory := make(map[string][]domain.Review)

	for _, r := range reviews {
		s.TotalReviews++
		if r.Positive {
			s.PositiveReviews++
		} else {
			s.NegativeReviews++
		}

		switch n := len(r.Categories); {
		case n == 0:
			s.Uncategorized++
		case n > 1:
			s.MultiCategory[n]++
		}

		for _, cat := range r.Categories {
			if r.Positive {
				posCounts[cat]++
			} else {
				negCounts[cat]++
			}
			byCategory[cat] = append(byCategory[cat], r)
		}
	}

	for cat, count := range posCounts {
		s.PositiveCategories[cat] = CategoryStat{Count: count, Percentage: percentage(count, s.PositiveReviews)}
	}
	for cat, count := range negCounts {
		s.NegativeCategories[cat] = CategoryStat{Count: count, Percentage: percentage(count, s.NegativeReviews)}
	}

	for cat, revs := range byCategory {
		sort.Slice(revs, func(i, j int) bool { return revs[i].VotesUp > revs[j].VotesUp })
		if len(revs) > maxPerCategory {
			revs = revs[:maxPerCategory]
		}
		reps := make([]RepresentativeReview, len(revs))
		for i, r := range revs {
			reps[i] = RepresentativeReview{
				ID:            r.ID,
				Text:          r.Text,
				Positive:      r.Positive,
				VotesUp:       r.VotesUp,
				PlaytimeHours: r.PlaytimeHours,
			}
		}
		s.Representative[cat] = reps
	}
	return s
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// WriteJSON serializes the summary for the external renderer.
func WriteJSON(path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}
