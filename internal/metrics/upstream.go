package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_upstream_calls_total",
		Help: "Total calls to upstream services (dynamodb, cognito, secretsmanager, s3, redis).",
	}, []string{"service", "operation", "outcome"})

	upstreamCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_upstream_call_duration_seconds",
		Help:    "Upstream call latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "operation"})

	accessRequestDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_access_request_decisions_total",
		Help: "Access request decisions recorded by administrators.",
	}, []string{"status"})

	loginTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_login_transitions_total",
		Help: "Login state machine transitions by resulting state.",
	}, []string{"state"})
)

// ObserveUpstream records one upstream call. Use with defer:
//
//	defer metrics.ObserveUpstream("dynamodb", "Scan", time.Now(), &err)
func ObserveUpstream(service, operation string, start time.Time, errp *error) {
	outcome := "ok"
	if errp != nil && *errp != nil {
		outcome = "error"
	}
	upstreamCallsTotal.WithLabelValues(service, operation, outcome).Inc()
	upstreamCallDuration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
}

func RecordDecision(status string) {
	accessRequestDecisionsTotal.WithLabelValues(status).Inc()
}

func RecordLoginTransition(state string) {
	loginTransitionsTotal.WithLabelValues(state).Inc()
}
