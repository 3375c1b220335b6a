package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lendmatch_match_runs_total",
			Help: "Total number of match runs by outcome",
		},
		[]string{"outcome"},
	)

	MatchRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lendmatch_match_run_duration_seconds",
			Help:    "Duration of match runs in seconds, including persistence",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	MatchVerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lendmatch_match_verdicts_total",
			Help: "Total number of lender verdicts produced",
		},
		[]string{"match_status"},
	)

	DisqualificationReasonsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lendmatch_disqualification_reasons_total",
			Help: "Total number of disqualification reasons by rule field",
		},
		[]string{"field"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lendmatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lendmatch_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

const (
	OutcomeSuccess    = "success"
	OutcomeNotFound   = "not_found"
	OutcomeInProgress = "in_progress"
	OutcomeError      = "error"
)
