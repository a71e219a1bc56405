// Package batch coordinates the worker pool that drives a classification run:
// seeding the task queue, draining worker results into the collector, and
// shutting down cooperatively on interrupt or fatal service failure.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"reviewbot/internal/classify"
	"reviewbot/internal/collector"
	"reviewbot/internal/domain"
	"reviewbot/internal/queue"
	"reviewbot/internal/taxonomy"
)

// ErrInterrupted is returned when a run stopped because cancellation was
// requested. Progress up to the cutoff is checkpointed; the rest re-runs
// next time.
var ErrInterrupted = errors.New("batch interrupted")

// Classifier is the per-worker classification adapter.
type Classifier interface {
	Classify(ctx context.Context, text string, positive bool) ([]string, classify.Usage, error)
}

// ClassifierFactory builds one private adapter per worker so no client or
// connection state is shared across goroutines.
type ClassifierFactory func() Classifier

// Options configure one run.
type Options struct {
	Workers      int
	RequestDelay time.Duration // courtesy pause between calls per worker
	PopTimeout   time.Duration // how long a worker waits before rechecking cancellation
	GraceWait    time.Duration // bound on waiting for workers to join at shutdown
}

func (o *Options) applyDefaults() {
	if o.Workers < 1 {
		o.Workers = 5
	}
	if o.PopTimeout <= 0 {
		o.PopTimeout = 500 * time.Millisecond
	}
	if o.GraceWait <= 0 {
		o.GraceWait = 30 * time.Second
	}
}

// Runner executes one classification batch.
type Runner struct {
	opts          Options
	tax           *taxonomy.Taxonomy
	newClassifier ClassifierFactory
	coll          *collector.Collector
	log           *slog.Logger

	mu    sync.Mutex
	usage classify.Usage
	fatal error
}

func NewRunner(opts Options, tax *taxonomy.Taxonomy, factory ClassifierFactory, coll *collector.Collector, log *slog.Logger) *Runner {
	opts.applyDefaults()
	return &Runner{
		opts:          opts,
		tax:           tax,
		newClassifier: factory,
		coll:          coll,
		log:           log,
	}
}

// Usage returns the token usage accumulated across all workers so far.
func (r *Runner) Usage() classify.Usage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usage
}

// BuildTasks derives the remaining work from the corpus: one task per review
// whose identifier has no result yet. Membership is tested per identifier
// because checkpoints may hold a non-contiguous subset. Tasks are ordered by
// identifier for determinism; workers complete them in arbitrary order
// anyway. A sampleSize above zero caps the run.
func BuildTasks(reviews []domain.Review, done map[string]bool, sampleSize int) []domain.ReviewTask {
	sorted := make([]domain.Review, len(reviews))
	copy(sorted, reviews)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var tasks []domain.ReviewTask
	for _, rev := range sorted {
		if done[rev.ID] {
			continue
		}
		tasks = append(tasks, domain.ReviewTask{
			Seq:      len(tasks),
			ID:       rev.ID,
			Text:     rev.Text,
			Positive: rev.Positive,
		})
		if sampleSize > 0 && len(tasks) >= sampleSize {
			break
		}
	}
	return tasks
}

// Run processes every task to completion, or stops early on cancellation or
// a fatal adapter condition. In every exit path the collector is flushed so
// the checkpoint on disk reflects everything collected.
func (r *Runner) Run(ctx context.Context, tasks []domain.ReviewTask) error {
	if len(tasks) == 0 {
		r.log.Info("nothing to classify, all tasks already accounted for")
		return r.coll.Flush()
	}

	// Derived context lets a fatal condition stop all workers, not just the
	// one that observed it.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	q := queue.New(tasks)
	results := make(chan domain.ClassificationResult, r.opts.Workers)
	target := r.coll.Count() + len(tasks)

	var wg sync.WaitGroup
	for i := 0; i < r.opts.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r.worker(ctx, id, q, results, cancel)
		}(i)
	}
	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()

	r.log.Info("batch started", "tasks", len(tasks), "workers", r.opts.Workers)

	for {
		select {
		case res := <-results:
			if err := r.collect(res); err != nil {
				return err
			}
			if r.coll.Count() >= target {
				cancel()
				<-joined
				return r.finish()
			}
		case <-ctx.Done():
			return r.drain(results, joined)
		case <-joined:
			r.drainRemaining(results)
			if r.coll.Count() >= target {
				return r.finish()
			}
			return r.abort(ctx)
		}
	}
}

func (r *Runner) collect(res domain.ClassificationResult) error {
	if _, err := r.coll.Add(res); err != nil {
		return err
	}
	return nil
}

// drain handles CancelRequested -> Draining -> Terminated: workers finish
// their in-flight call, results arriving meanwhile are still collected, and
// the wait for workers to join is bounded. On timeout the run exits anyway;
// unaccounted work is simply re-attempted on the next run.
func (r *Runner) drain(results <-chan domain.ClassificationResult, joined <-chan struct{}) error {
	r.log.Info("cancellation requested, draining in-flight work", "grace", r.opts.GraceWait)
	grace := time.NewTimer(r.opts.GraceWait)
	defer grace.Stop()

	for {
		select {
		case res := <-results:
			if err := r.collect(res); err != nil {
				return err
			}
		case <-joined:
			r.drainRemaining(results)
			if err := r.coll.Flush(); err != nil {
				return err
			}
			if fatal := r.fatalErr(); fatal != nil {
				return fatal
			}
			r.log.Info("batch interrupted, progress checkpointed", "processed", r.coll.Count())
			return ErrInterrupted
		case <-grace.C:
			r.log.Warn("grace period expired, abandoning unjoined workers")
			if err := r.coll.Flush(); err != nil {
				return err
			}
			if fatal := r.fatalErr(); fatal != nil {
				return fatal
			}
			return ErrInterrupted
		}
	}
}

func (r *Runner) drainRemaining(results <-chan domain.ClassificationResult) {
	for {
		select {
		case res := <-results:
			if _, err := r.coll.Add(res); err != nil {
				r.log.Error("checkpoint write failed while draining", "error", err)
				return
			}
		default:
			return
		}
	}
}

func (r *Runner) finish() error {
	if err := r.coll.Flush(); err != nil {
		return err
	}
	r.log.Info("batch complete", "processed", r.coll.Count(), "tokens", r.Usage().TotalTokens())
	return nil
}

// abort covers workers exiting without finishing the batch, which only
// happens on a fatal adapter condition. Progress is persisted before the
// error propagates.
func (r *Runner) abort(ctx context.Context) error {
	if err := r.coll.Flush(); err != nil {
		return err
	}
	if fatal := r.fatalErr(); fatal != nil {
		return fatal
	}
	if err := ctx.Err(); err != nil {
		return ErrInterrupted
	}
	return fmt.Errorf("workers exited with %d tasks unaccounted", r.coll.Count())
}

func (r *Runner) fatalErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal
}

func (r *Runner) recordFatal(err error) {
	r.mu.Lock()
	if r.fatal == nil {
		r.fatal = err
	}
	r.mu.Unlock()
}

func (r *Runner) addUsage(u classify.Usage) {
	r.mu.Lock()
	r.usage.Add(u)
	r.mu.Unlock()
}

// worker pulls tasks until the queue is exhausted or cancellation is
// observed. Every claimed task produces exactly one result except when the
// batch has gone fatal: then the task stays unaccounted and re-runs later.
func (r *Runner) worker(ctx context.Context, id int, q *queue.Queue, results chan<- domain.ClassificationResult, cancel context.CancelFunc) {
	cl := r.newClassifier()
	log := r.log.With("worker", id)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, status := q.Pop(r.opts.PopTimeout)
		switch status {
		case queue.PopTimeout:
			continue
		case queue.PopExhausted:
			return
		}

		categories, usage, err := cl.Classify(ctx, task.Text, task.Positive)
		r.addUsage(usage)

		res := domain.ClassificationResult{ID: task.ID, Positive: task.Positive}
		switch {
		case err == nil:
			res.Categories = categories
		case errors.Is(err, classify.ErrFatal):
			log.Error("fatal classification condition, stopping batch", "error", err)
			r.recordFatal(err)
			cancel()
			return
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			// Interrupted mid-call: leave the task unaccounted for the next run.
			return
		default:
			// Degraded result beats a silently dropped task.
			log.Warn("classification failed for review, recording fallback", "id", task.ID, "error", err)
			res.Categories = []string{r.tax.ForSentiment(task.Positive).CatchAll}
			res.ErrorNote = err.Error()
		}

		select {
		case results <- res:
		case <-ctx.Done():
			return
		}

		if r.opts.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.opts.RequestDelay):
			}
		}
	}
}
