package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_server_ai_requests_total",
			Help: "Total number of requests to model providers.",
		},
		[]string{"provider", "model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_server_ai_request_duration_seconds",
			Help:    "Histogram of model provider request durations.",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"provider", "model"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_server_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts, estimated when the provider does not report usage.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"provider", "model"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_server_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"provider", "model"},
	)
)

// UsageInfo holds token usage of a single generation.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	// Estimated is set when PromptTokens was counted locally.
	Estimated bool
}

func recordAIRequest(provider, model, status string, duration time.Duration) {
	aiRequestsTotal.With(prometheus.Labels{"provider": provider, "model": model, "status": status}).Inc()
	if status == "success" || status == "success_stream" {
		aiRequestDuration.With(prometheus.Labels{"provider": provider, "model": model}).Observe(duration.Seconds())
	}
}

func recordAIUsage(provider, model string, usage UsageInfo) {
	labels := prometheus.Labels{"provider": provider, "model": model}
	if usage.PromptTokens > 0 {
		aiPromptTokens.With(labels).Observe(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		aiCompletionTokens.With(labels).Observe(float64(usage.CompletionTokens))
	}
}
