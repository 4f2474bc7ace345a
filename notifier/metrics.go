package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jaat",
	Subsystem: "notifier",
	Name:      "notifications_total",
	Help:      "Notification deliveries by channel and outcome.",
}, []string{"channel", "outcome"})

func recordNotification(channel, outcome string) {
	metricNotifications.WithLabelValues(channel, outcome).Inc()
}
