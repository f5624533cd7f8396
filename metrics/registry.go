// metrics/registry.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mild_registry_registrations_total",
			Help: "Database registrations by logical database and result.",
		},
		[]string{"database", "result"},
	)

	registerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mild_registry_register_duration_seconds",
			Help:    "Time spent connecting to a database and ensuring its collections.",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30},
		},
		[]string{"database"},
	)

	registeredDatabases = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mild_registry_databases",
		Help: "Number of databases currently registered, summed over every registry in the process.",
	})
)

// ObserveRegistration records one Register or Replace attempt.
func ObserveRegistration(database string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	registrations.WithLabelValues(database, result).Inc()
	registerDuration.WithLabelValues(database).Observe(took.Seconds())
}

// AddRegisteredDatabases moves the registered database gauge by delta. Each
// registry reports only its own changes, so several registries can share it.
func AddRegisteredDatabases(delta int) {
	registeredDatabases.Add(float64(delta))
}
