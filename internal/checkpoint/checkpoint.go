// Package checkpoint persists classification progress as a JSON document so
// an interrupted batch resumes without reprocessing.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"reviewbot/internal/domain"
)

// Entry is one persisted classification result.
type Entry struct {
	Identifier string   `json:"identifier"`
	Categories []string `json:"categories"`
	IsPositive bool     `json:"is_positive"`
}

// Document is the on-disk checkpoint record. ProgressData is kept in the
// collector's sorted order; loading it reproduces an identical ordered log.
type Document struct {
	Timestamp      time.Time `json:"timestamp"`
	ProcessedCount int       `json:"processed_count"`
	ProgressData   []Entry   `json:"progress_data"`
	TotalCount     int       `json:"total_count"`
	SampleSize     int       `json:"sample_size,omitempty"`
}

// Store reads and writes the checkpoint document at a fixed path.
type Store struct {
	path string
	log  *slog.Logger
}

func NewStore(path string, log *slog.Logger) *Store {
	return &Store{path: path, log: log}
}

func (s *Store) Path() string {
	return s.path
}

// Save writes the document atomically (temp file + rename) so a crash mid-
// write never corrupts the previous checkpoint.
func (s *Store) Save(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// Load reads the document. A missing or corrupt file means "start fresh",
// never a fatal condition: ok is false and an empty document is returned.
func (s *Store) Load() (Document, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("cannot read checkpoint, starting fresh", "path", s.path, "error", err)
		}
		return Document{}, false
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("corrupt checkpoint, starting fresh", "path", s.path, "error", err)
		return Document{}, false
	}
	return doc, true
}

// Remove deletes the checkpoint file if present.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ToResults converts persisted entries back into classification results.
func (d Document) ToResults() []domain.ClassificationResult {
	results := make([]domain.ClassificationResult, len(d.ProgressData))
	for i, e := range d.ProgressData {
		results[i] = domain.ClassificationResult{
			ID:         e.Identifier,
			Categories: e.Categories,
			Positive:   e.IsPositive,
		}
	}
	return results
}

// FromResults builds the persisted form of an ordered progress log.
func FromResults(results []domain.ClassificationResult) []Entry {
	entries := make([]Entry, len(results))
	for i, r := range results {
		entries[i] = Entry{
			Identifier: r.ID,
			Categories: r.Categories,
			IsPositive: r.Positive,
		}
	}
	return entries
}
