// Package metrics exposes run counters over Prometheus. The listener is
// optional; counters are cheap to increment either way.
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReviewsClassified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviewbot_reviews_classified_total",
		Help: "Classification results collected into the progress log.",
	})
	LLMCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviewbot_llm_calls_total",
		Help: "Classification service calls attempted.",
	})
	LLMCallErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviewbot_llm_call_errors_total",
		Help: "Classification service calls that returned an error.",
	})
	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewbot_llm_tokens_total",
		Help: "Tokens consumed by classification calls.",
	}, []string{"direction"})
	CheckpointWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviewbot_checkpoint_writes_total",
		Help: "Durable checkpoint writes.",
	})
	ReviewsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviewbot_reviews_fetched_total",
		Help: "Reviews retrieved from the review source.",
	})
)

// Serve starts the metrics listener in the background. Errors are logged,
// not fatal: metrics are never worth killing a batch over.
func Serve(addr string, log *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Info("metrics listener started", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics listener stopped", "error", err)
		}
	}()
}
