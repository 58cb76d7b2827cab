// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "basalt_request_duration_seconds",
			Help:    "Total time taken for generation requests in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90, 120},
		},
		[]string{"model"},
	)

	PromptTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basalt_prompt_tokens_total",
			Help: "Total number of prompt tokens used",
		},
		[]string{"model"},
	)

	CompletionTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basalt_completion_tokens_total",
			Help: "Total number of completion tokens used",
		},
		[]string{"model"},
	)

	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basalt_request_count_total",
			Help: "Total number of generation requests processed",
		},
		[]string{"model", "status"},
	)

	CostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basalt_cost_usd_total",
			Help: "Total estimated spend in USD",
		},
		[]string{"model"},
	)
)
