package translate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jaat",
	Subsystem: "translate",
	Name:      "requests_total",
	Help:      "Translation prompts handed to the chat, by type and outcome.",
}, []string{"type", "outcome"})

func recordRequest(kind, outcome string) {
	metricRequests.WithLabelValues(kind, outcome).Inc()
}
