package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the optimizer's request surface. The decision
// core stays metrics-free; the HTTP layer records outcomes here.
var (
	JobsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bso_jobs_registered_total",
		Help: "Total number of jobs registered",
	})

	TrialReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bso_trial_reports_total",
		Help: "Total trial reports by outcome",
	}, []string{"outcome"}) // accepted | duplicate | rejected

	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bso_decisions_total",
		Help: "Total decisions returned to training jobs by kind",
	}, []string{"kind"})

	ReportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bso_report_duration_seconds",
		Help:    "Latency of trial report handling",
		Buckets: prometheus.DefBuckets,
	})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bso_active_jobs",
		Help: "Number of jobs that have not reached a terminal state",
	})
)
