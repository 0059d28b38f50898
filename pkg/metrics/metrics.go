package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsCreated counts persisted notifications by type and source (api|template|dynamic|template_test|ml).
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlnotify_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"type", "source"},
	)

	// NotificationsRead counts read transitions, including bulk mark-all operations.
	NotificationsRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mlnotify_notifications_read_total",
			Help: "Total number of notifications marked as read",
		},
	)

	// NotificationsExpired counts rows deactivated by the expiry sweep.
	NotificationsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mlnotify_notifications_expired_total",
			Help: "Total number of notifications deactivated after expiry",
		},
	)

	// DynamicGenerated counts notifications produced by the dynamic generator.
	DynamicGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mlnotify_dynamic_generated_total",
			Help: "Total number of dynamically generated notifications",
		},
	)

	// TemplateRenderFailures counts render failures per template name.
	TemplateRenderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlnotify_template_render_failures_total",
			Help: "Total number of template render failures",
		},
		[]string{"template"},
	)

	// PermissionChecks counts permission evaluations and their outcome (allow|deny|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlnotify_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// MaintenanceRuns counts scheduled maintenance job runs by job and result (success|failure).
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlnotify_maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mlnotify_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
