// Package fetch imports new reviews into the corpus store, either one-shot
// or on a cron schedule.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"reviewbot/internal/metrics"
	"reviewbot/internal/steam"
	"reviewbot/internal/storage/sqlite"
)

// Result tracks what one fetch pass did.
type Result struct {
	TotalFetched   int
	Inserted       int
	AlreadyTracked int
}

// Run fetches reviews for one app and inserts the ones not yet in the corpus.
func Run(ctx context.Context, client *steam.Client, st *sqlite.Store, appID int, opts steam.FetchOptions, log *slog.Logger) (Result, error) {
	reviews, err := client.FetchAll(ctx, appID, opts)
	if err != nil {
		return Result{}, fmt.Errorf("fetching reviews for app %d: %w", appID, err)
	}

	metrics.ReviewsFetched.Add(float64(len(reviews)))

	inserted, err := st.InsertReviews(reviews)
	if err != nil {
		return Result{}, fmt.Errorf("storing reviews: %w", err)
	}

	result := Result{
		TotalFetched:   len(reviews),
		Inserted:       inserted,
		AlreadyTracked: len(reviews) - inserted,
	}
	log.Info("fetch pass complete",
		"fetched", result.TotalFetched,
		"inserted", result.Inserted,
		"already_tracked", result.AlreadyTracked)
	return result, nil
}

// StartScheduler runs fetch passes on a cron schedule until ctx is done.
// Failures are logged and retried at the next tick, never fatal.
func StartScheduler(ctx context.Context, schedule string, client *steam.Client, st *sqlite.Store, appID int, opts steam.FetchOptions, log *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if _, err := Run(runCtx, client, st, appID, opts, log); err != nil {
			log.Error("scheduled fetch failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid fetch schedule %q: %w", schedule, err)
	}
	c.Start()
	log.Info("fetch scheduler started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return c, nil
}
