package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BootstrapSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "server", Subsystem: "bootstrap", Name: "steps_total", Help: "Bootstrap steps by step kind and outcome."},
		[]string{"step", "outcome"},
	)
	BootstrapDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "server", Subsystem: "bootstrap", Name: "duration_seconds", Help: "Wall time of a bootstrap run.", Buckets: prometheus.DefBuckets},
	)
	LockAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "server", Subsystem: "bootstrap", Name: "lock_total", Help: "Bootstrap lock attempts by result."},
		[]string{"result"},
	)
	StatusRequestsLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "server", Subsystem: "status", Name: "rate_limited_total", Help: "Status requests rejected by the rate limiter."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(BootstrapSteps)
	reg.MustRegister(BootstrapDuration)
	reg.MustRegister(LockAttempts)
	reg.MustRegister(StatusRequestsLimited)
}
