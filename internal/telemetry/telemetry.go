package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operational counters for the authentication engine. Outcome labels match
// the wire error taxonomy.
var (
	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keytrace_enrollments_total",
		Help: "Enrollment submissions by outcome.",
	}, []string{"outcome"})

	Identifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keytrace_identifications_total",
		Help: "Identification requests by outcome.",
	}, []string{"outcome"})

	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keytrace_verifications_total",
		Help: "Verification requests by outcome.",
	}, []string{"outcome"})

	MatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "keytrace_match_duration_seconds",
		Help:    "Wall time of one matching call.",
		Buckets: prometheus.DefBuckets,
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "keytrace_active_sessions",
		Help: "Students with events inside the monitoring window.",
	})
)
