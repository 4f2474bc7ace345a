package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jaat",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route pattern and status code.",
	}, []string{"route", "code"})
	metricLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jaat",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	metricSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "jaat",
		Name:      "sessions_active",
		Help:      "Sessions with live notifier and translation state.",
	})
	metricStreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "jaat",
		Name:      "notifier_stream_clients",
		Help:      "Connected notification stream websockets.",
	})
	metricRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jaat",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-session rate limit.",
	})
)
