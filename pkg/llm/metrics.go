package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyforge_llm_completions_total",
			Help: "Total number of storyteller completions by model and status.",
		},
		[]string{"model", "status"},
	)
	completionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyforge_llm_completion_duration_seconds",
			Help:    "Histogram of storyteller completion durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	promptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyforge_llm_prompt_tokens",
			Help:    "Estimated prompt token counts of storyteller transcripts.",
			Buckets: prometheus.LinearBuckets(500, 500, 20), // 500 ... 10000
		},
		[]string{"model"},
	)
)
