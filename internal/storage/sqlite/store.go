// Package sqlite stores the review corpus and the categories merged back
// after a classification batch.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"reviewbot/internal/domain"
)

type Store struct {
	db *sql.DB
}

// Open creates or opens the corpus database and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		recommendation_id TEXT PRIMARY KEY,
		review_text       TEXT NOT NULL,
		voted_up          INTEGER NOT NULL,
		votes_up          INTEGER NOT NULL DEFAULT 0,
		votes_funny       INTEGER NOT NULL DEFAULT 0,
		comment_count     INTEGER NOT NULL DEFAULT 0,
		playtime_hours    REAL NOT NULL DEFAULT 0,
		language          TEXT NOT NULL DEFAULT '',
		created_at        DATETIME,
		categories        TEXT NOT NULL DEFAULT '',
		fetched_at        DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_reviews_voted_up ON reviews(voted_up);
	CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON reviews(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertReviews adds newly fetched reviews, skipping identifiers already
// present. The corpus is append-only: an existing record is never rewritten.
func (s *Store) InsertReviews(reviews []domain.Review) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO reviews
		(recommendation_id, review_text, voted_up, votes_up, votes_funny, comment_count, playtime_hours, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range reviews {
		res, err := stmt.Exec(r.ID, r.Text, boolToInt(r.Positive), r.VotesUp, r.VotesFunny,
			r.CommentCount, r.PlaytimeHours, r.Language, r.CreatedAt)
		if err != nil {
			return inserted, fmt.Errorf("insert review %s: %w", r.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, tx.Commit()
}

// ListReviews returns the full corpus ordered by identifier.
func (s *Store) ListReviews() ([]domain.Review, error) {
	rows, err := s.db.Query(`SELECT recommendation_id, review_text, voted_up, votes_up, votes_funny,
		comment_count, playtime_hours, language, created_at, categories
		FROM reviews ORDER BY recommendation_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var r domain.Review
		var votedUp int
		var created sql.NullTime
		var categories string
		if err := rows.Scan(&r.ID, &r.Text, &votedUp, &r.VotesUp, &r.VotesFunny,
			&r.CommentCount, &r.PlaytimeHours, &r.Language, &created, &categories); err != nil {
			return nil, err
		}
		r.Positive = votedUp != 0
		if created.Valid {
			r.CreatedAt = created.Time
		}
		if cats, err := decodeCategories(categories); err == nil {
			r.Categories = cats
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// UpdateCategories writes the merged category set for one review. An empty
// set clears the column (the sentiment-mismatch discard path).
func (s *Store) UpdateCategories(id string, categories []string) error {
	encoded, err := encodeCategories(categories)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE reviews SET categories = ? WHERE recommendation_id = ?`, encoded, id)
	return err
}

// CountReviews returns the corpus size.
func (s *Store) CountReviews() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM reviews`).Scan(&n)
	return n, err
}

// LatestCreatedAt returns the newest review timestamp in the corpus, used by
// the scheduled fetcher to log how far behind it is.
func (s *Store) LatestCreatedAt() (time.Time, error) {
	var latest sql.NullTime
	err := s.db.QueryRow(`SELECT MAX(created_at) FROM reviews`).Scan(&latest)
	if err != nil || !latest.Valid {
		return time.Time{}, err
	}
	return latest.Time, nil
}

func encodeCategories(categories []string) (string, error) {
	if len(categories) == 0 {
		return "", nil
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return "", fmt.Errorf("encode categories: %w", err)
	}
	return string(data), nil
}

func decodeCategories(encoded string) ([]string, error) {
	if encoded == "" {
		return nil, nil
	}
	var categories []string
	if err := json.Unmarshal([]byte(encoded), &categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return categories, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
