// Package classify turns one (review text, sentiment) pair into a validated
// category set by calling an external language-model service.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reviewbot/internal/metrics"
	"reviewbot/internal/taxonomy"
)

// RetryPolicy bounds the per-call retry loop. Delay is a fixed backoff
// between attempts; the consecutive-failure budget is tracked separately so
// it spans calls and workers.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Delay:       2 * time.Second,
}

// Classifier is the classification call adapter. One instance per worker;
// the transport underneath is never shared.
type Classifier struct {
	transport Transport
	tax       *taxonomy.Taxonomy
	retry     RetryPolicy
	failures  *FailureTracker
	log       *slog.Logger
}

// New builds an adapter around a private transport. failures may be shared
// across workers so the budget is process-wide.
func New(transport Transport, tax *taxonomy.Taxonomy, retry RetryPolicy, failures *FailureTracker, log *slog.Logger) *Classifier {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Classifier{
		transport: transport,
		tax:       tax,
		retry:     retry,
		failures:  failures,
		log:       log,
	}
}

// Classify returns a category set drawn from the taxonomy for the review's
// sentiment. Transient errors are retried with a fixed backoff; exhausting
// the shared consecutive-failure budget returns an ErrFatal-wrapped error.
// Empty or blank reviews resolve straight to the catch-all without a call.
func (c *Classifier) Classify(ctx context.Context, text string, positive bool) ([]string, Usage, error) {
	set := c.tax.ForSentiment(positive)
	if strings.TrimSpace(text) == "" {
		return []string{set.CatchAll}, Usage{}, nil
	}

	prompt := BuildPrompt(set, text, positive)

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		metrics.LLMCalls.Inc()
		response, usage, err := c.transport.Complete(ctx, prompt)
		if err == nil {
			c.failures.Reset()
			metrics.LLMTokens.WithLabelValues("input").Add(float64(usage.InputTokens))
			metrics.LLMTokens.WithLabelValues("output").Add(float64(usage.OutputTokens))
			return ParseCategories(response, set, c.log), usage, nil
		}
		metrics.LLMCallErrors.Inc()

		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Shutdown, not a service failure: don't spend budget on it.
			return nil, usage, err
		}
		if attempt == 0 {
			c.log.Warn("classification call failed", "error", err)
		}
		if fatalErr := c.failures.Record(err); fatalErr != nil {
			return nil, usage, fatalErr
		}

		if attempt < c.retry.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, usage, ctx.Err()
			case <-time.After(c.retry.Delay):
			}
		}
	}

	return nil, Usage{}, fmt.Errorf("classification failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}
