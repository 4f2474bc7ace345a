package jaat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricClassifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jaat",
		Name:      "classifications_total",
		Help:      "Inputs classified, by persona and request type.",
	}, []string{"persona", "request_type"})
	metricGenerationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jaat",
		Name:      "generation_failures_total",
		Help:      "Responses that fell back to the retry text because generation failed.",
	}, []string{"persona"})
	metricStorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jaat",
		Name:      "storage_errors_total",
		Help:      "Preference store read, parse or write failures.",
	}, []string{"op"})
)

func recordClassification(persona, requestType string) {
	metricClassifications.WithLabelValues(persona, requestType).Inc()
}

func recordGenerationFailure(persona string) {
	metricGenerationFailures.WithLabelValues(persona).Inc()
}

func recordStorageError(op string) {
	metricStorageErrors.WithLabelValues(op).Inc()
}
