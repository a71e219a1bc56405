// Package collector owns the ordered progress log for one batch and decides
// when to checkpoint it.
package collector

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"reviewbot/internal/checkpoint"
	"reviewbot/internal/domain"
	"reviewbot/internal/metrics"
)

// Options tune checkpoint cadence.
type Options struct {
	EveryNResults int
	EveryInterval time.Duration
	TotalCount    int
	SampleSize    int
}

// Collector is the single logical owner of the progress log. The log stays
// sorted by stable identifier with no duplicates regardless of the order in
// which concurrent workers deliver results. Insertion is the only critical
// section; no network call ever happens while the lock is held.
type Collector struct {
	mu        sync.Mutex
	results   []domain.ClassificationResult
	store     *checkpoint.Store
	opts      Options
	sinceSave int
	lastSave  time.Time
	log       *slog.Logger
}

// New builds a collector, optionally preloaded with results recovered from a
// checkpoint. Preloaded results are re-sorted defensively so a hand-edited
// checkpoint cannot break the ordering invariant.
func New(store *checkpoint.Store, opts Options, preload []domain.ClassificationResult, log *slog.Logger) *Collector {
	results := make([]domain.ClassificationResult, len(preload))
	copy(results, preload)
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })

	return &Collector{
		results:  results,
		store:    store,
		opts:     opts,
		lastSave: time.Now(),
		log:      log,
	}
}

// Add inserts one result at its sorted position (binary search on the stable
// identifier). A duplicate identifier is rejected: the log holds exactly one
// result per task. A checkpoint write is triggered when the result-count
// threshold or the wall-clock interval is reached.
func (c *Collector) Add(r domain.ClassificationResult) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := sort.Search(len(c.results), func(i int) bool { return c.results[i].ID >= r.ID })
	if i < len(c.results) && c.results[i].ID == r.ID {
		c.log.Warn("duplicate result dropped", "id", r.ID)
		return false, nil
	}
	c.results = append(c.results, domain.ClassificationResult{})
	copy(c.results[i+1:], c.results[i:])
	c.results[i] = r
	metrics.ReviewsClassified.Inc()

	c.sinceSave++
	if c.sinceSave >= c.opts.EveryNResults || time.Since(c.lastSave) >= c.opts.EveryInterval {
		if err := c.saveLocked(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Has reports whether a result for this identifier is already in the log.
// Resumption tests membership per identifier, never prefix completeness.
func (c *Collector) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := sort.Search(len(c.results), func(i int) bool { return c.results[i].ID >= id })
	return i < len(c.results) && c.results[i].ID == id
}

// Count returns the number of results collected so far.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// Snapshot returns a copy of the ordered log.
func (c *Collector) Snapshot() []domain.ClassificationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ClassificationResult, len(c.results))
	copy(out, c.results)
	return out
}

// Flush forces an immediate checkpoint write, used on cancellation, fatal
// abort and batch completion.
func (c *Collector) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Collector) saveLocked() error {
	doc := checkpoint.Document{
		Timestamp:      time.Now(),
		ProcessedCount: len(c.results),
		ProgressData:   checkpoint.FromResults(c.results),
		TotalCount:     c.opts.TotalCount,
		SampleSize:     c.opts.SampleSize,
	}
	if err := c.store.Save(doc); err != nil {
		return fmt.Errorf("checkpoint write: %w", err)
	}
	metrics.CheckpointWrites.Inc()
	c.sinceSave = 0
	c.lastSave = time.Now()
	c.log.Debug("checkpoint written", "processed", doc.ProcessedCount, "total", doc.TotalCount)
	return nil
}
