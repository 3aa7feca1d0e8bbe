// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker metrics.
var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Back-office metrics.
var (
	LeadsCaptured = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_captured_total",
			Help: "Leads created, by origin and product",
		},
		[]string{"origin", "product"},
	)

	PipelineMoves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_moves_total",
			Help: "Lead lane changes applied on the board",
		},
		[]string{"from", "to"},
	)

	PipelineRemoteWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_remote_write_failures_total",
			Help: "Board mutations whose remote write failed; local state is kept",
		},
		[]string{"operation"},
	)

	IntentClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_classifications_total",
			Help: "Suggestions produced by the intent classifier",
		},
		[]string{"category", "matched"},
	)

	VaultFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_fallback_total",
			Help: "Times the document vault switched from Drive to seed data",
		},
	)

	NotificationsQueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_queued_total",
			Help: "Outbound e-mails written to the mail queue",
		},
		[]string{"kind"},
	)
)
