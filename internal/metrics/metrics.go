package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reunite",
		Name:      "backend_requests_total",
		Help:      "Requests sent to the matching backend, by endpoint and outcome",
	}, []string{"method", "endpoint", "outcome"})

	BackendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reunite",
		Name:      "backend_request_duration_seconds",
		Help:      "Duration of requests to the matching backend",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	CredentialFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reunite",
		Name:      "credential_fetches_total",
		Help:      "Credentials requested from the identity provider before admin calls",
	}, []string{"outcome"})

	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reunite",
		Name:      "admin_gate_decisions_total",
		Help:      "Admin gate classifications",
	}, []string{"access"})

	SearchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reunite",
		Name:      "search_outcomes_total",
		Help:      "Completed searches by final state",
	}, []string{"state"})

	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reunite",
		Name:      "registrations_total",
		Help:      "Registration submissions by final state",
	}, []string{"state"})

	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reunite",
		Name:      "verifications_total",
		Help:      "Approve/reject transitions by decision and outcome",
	}, []string{"decision", "outcome"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reunite",
		Name:      "active_sessions",
		Help:      "Portal sessions currently held in memory",
	})
)

// Outcome maps an error to a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
