package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"reviewbot/internal/batch"
	"reviewbot/internal/checkpoint"
	"reviewbot/internal/classify"
	"reviewbot/internal/collector"
	"reviewbot/internal/config"
	"reviewbot/internal/fetch"
	"reviewbot/internal/metrics"
	"reviewbot/internal/notify"
	"reviewbot/internal/stats"
	"reviewbot/internal/steam"
	"reviewbot/internal/storage/sqlite"
	"reviewbot/internal/taxonomy"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	follow := flag.Bool("follow", false, "with the fetch command, keep running on the configured schedule")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Error("cannot create output dir", "dir", cfg.OutputDir, "error", err)
		os.Exit(1)
	}

	metrics.Serve(cfg.MetricsAddr, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open corpus database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "classify"
	}

	switch cmd {
	case "fetch":
		err = runFetch(ctx, cfg, st, *follow, log)
	case "classify":
		err = runClassify(ctx, cfg, st, log)
	case "stats":
		err = runStats(cfg, st, log)
	default:
		err = fmt.Errorf("unknown command %q (expected fetch, classify or stats)", cmd)
	}
	if err != nil {
		log.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func runFetch(ctx context.Context, cfg config.Config, st *sqlite.Store, follow bool, log *slog.Logger) error {
	if cfg.AppID == 0 {
		return fmt.Errorf("app_id is required for fetch")
	}
	client := steam.NewClient(log)
	opts := steam.FetchOptions{
		Language:  cfg.Language,
		MaxPages:  cfg.FetchMaxPages,
		PageDelay: time.Second,
	}

	if _, err := fetch.Run(ctx, client, st, cfg.AppID, opts, log); err != nil {
		return err
	}

	if follow {
		if cfg.FetchSchedule == "" {
			return fmt.Errorf("fetch_schedule is required with -follow")
		}
		if _, err := fetch.StartScheduler(ctx, cfg.FetchSchedule, client, st, cfg.AppID, opts, log); err != nil {
			return err
		}
		<-ctx.Done()
		log.Info("fetch scheduler stopped")
	}
	return nil
}

func runClassify(ctx context.Context, cfg config.Config, st *sqlite.Store, log *slog.Logger) error {
	tax, err := loadTaxonomy(cfg)
	if err != nil {
		return err
	}

	reviews, err := st.ListReviews()
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}
	if len(reviews) == 0 {
		return fmt.Errorf("corpus is empty, run fetch first")
	}

	ckStore := checkpoint.NewStore(cfg.CheckpointPath, log)
	doc, resumed := ckStore.Load()
	preload := doc.ToResults()
	done := make(map[string]bool, len(preload))
	for _, r := range preload {
		done[r.ID] = true
	}
	if resumed {
		log.Info("resuming from checkpoint", "path", ckStore.Path(), "already_processed", len(preload))
	}

	tasks := batch.BuildTasks(reviews, done, cfg.SampleSize)
	total := len(preload) + len(tasks)

	coll := collector.New(ckStore, collector.Options{
		EveryNResults: cfg.CheckpointEveryNResults,
		EveryInterval: cfg.CheckpointInterval(),
		TotalCount:    total,
		SampleSize:    cfg.SampleSize,
	}, preload, log)

	failures := classify.NewFailureTracker(cfg.MaxConsecutiveFailures)
	retry := classify.RetryPolicy{MaxAttempts: cfg.MaxRetriesPerCall, Delay: cfg.RetryDelay()}
	factory := func() batch.Classifier {
		return classify.New(newTransport(cfg), tax, retry, failures, log)
	}

	runner := batch.NewRunner(batch.Options{
		Workers:      cfg.WorkerCount,
		RequestDelay: cfg.RequestDelay(),
		GraceWait:    cfg.GraceWait(),
	}, tax, factory, coll, log)

	start := time.Now()
	runErr := runner.Run(ctx, tasks)
	duration := time.Since(start)

	// Whatever happened, merge what was collected back onto the corpus so a
	// partial run is still usable.
	merged, mergeErr := batch.Merge(st, coll.Snapshot(), log)
	if mergeErr != nil {
		log.Error("merge failed", "error", mergeErr)
	} else {
		log.Info("merge complete", "merged", merged.Merged, "mismatched", merged.Mismatch,
			"fallbacks", merged.Fallbacks, "orphaned", merged.NoReview)
	}

	summary := notify.BatchSummary{
		Processed:   coll.Count(),
		Total:       total,
		Duration:    duration,
		TotalTokens: runner.Usage().TotalTokens(),
	}
	if runErr != nil && !errors.Is(runErr, batch.ErrInterrupted) {
		summary.Fatal = runErr.Error()
	}
	if notifier := notify.New(cfg.SlackBotToken, cfg.SlackChannelID); notifier != nil {
		if err := notifier.PostBatchSummary(summary); err != nil {
			log.Warn("slack notification failed", "error", err)
		}
	}

	switch {
	case runErr == nil:
		log.Info("classification finished", "processed", coll.Count(), "total", total,
			"duration", duration.Round(time.Second), "tokens", runner.Usage().TotalTokens())
		return mergeErr
	case errors.Is(runErr, batch.ErrInterrupted):
		log.Info("classification interrupted, progress saved", "processed", coll.Count(), "total", total)
		return nil
	default:
		return runErr
	}
}

func runStats(cfg config.Config, st *sqlite.Store, log *slog.Logger) error {
	reviews, err := st.ListReviews()
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}
	summary := stats.Build(reviews, 5)
	outPath := filepath.Join(cfg.OutputDir, "analysis_summary.json")
	if err := stats.WriteJSON(outPath, summary); err != nil {
		return err
	}
	log.Info("stats written", "path", outPath,
		"total", summary.TotalReviews, "uncategorized", summary.Uncategorized)
	return nil
}

func loadTaxonomy(cfg config.Config) (*taxonomy.Taxonomy, error) {
	if cfg.TaxonomyPath == "" {
		return taxonomy.Default(), nil
	}
	return taxonomy.Load(cfg.TaxonomyPath)
}

func newTransport(cfg config.Config) classify.Transport {
	if cfg.LLMProvider == "openai" {
		return classify.NewOpenAITransport(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMBaseURL)
	}
	return classify.NewAnthropicTransport(cfg.AnthropicAPIKey, cfg.LLMModel)
}
