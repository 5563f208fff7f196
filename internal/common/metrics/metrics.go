// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	ApplicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_application_transitions_total",
			Help: "Total number of committed application status transitions",
		},
		[]string{"from", "to"},
	)

	ApplicationTransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_application_transitions_rejected_total",
			Help: "Total number of rejected application operations by error code",
		},
		[]string{"operation", "error_code"},
	)

	RoleResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_role_resolutions_total",
			Help: "Total number of role resolutions by outcome",
		},
		[]string{"outcome"},
	)

	WorkflowMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_workflow_messages_published_total",
			Help: "Total number of lifecycle messages published to the workflow engine",
		},
		[]string{"message", "result"},
	)

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

// Role resolution outcomes.
const (
	RoleOutcomeStored   = "stored"
	RoleOutcomeCached   = "cached"
	RoleOutcomeCreated  = "created"
	RoleOutcomeOverride = "bootstrap_override"
	RoleOutcomeFallback = "fallback"
)
