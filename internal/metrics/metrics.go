package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5, 30},
		},
		[]string{"method", "path"},
	)

	// Chat metrics
	ChatStreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portfolio_chat_streams_active",
			Help: "Chat responses currently streaming",
		},
	)

	ChatStreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_chat_streams_total",
			Help: "Total chat responses by outcome",
		},
		[]string{"outcome"}, // "done", "error", "unconfigured"
	)

	ChatTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_chat_tokens_total",
			Help: "Total tokens streamed to clients",
		},
	)

	ContactMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_contact_messages_total",
			Help: "Total contact messages stored",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Worker metrics
	DispatcherRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_dispatcher_rejected_total",
			Help: "Chat jobs rejected because the queue was full",
		},
	)

	Workers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portfolio_workers",
			Help: "Running chat workers",
		},
	)
)
