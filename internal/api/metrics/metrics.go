// Package metrics defines the custom Prometheus metrics for PartPulse. Metrics
// register with the default registry on import through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "partpulse"

// ── Submissions ──────────────────────────────────────────────────────────────

// SubmissionsTotal counts persisted records.
// Label kind: "internal_transfer" or "warranty_claim".
var SubmissionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Total number of submitted records, by kind.",
	},
	[]string{"kind"},
)

// ApprovalsTotal counts admin decisions.
var ApprovalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "approvals_total",
		Help:      "Admin approval decisions, by kind and decision.",
	},
	[]string{"kind", "decision"},
)

// ── Documents ────────────────────────────────────────────────────────────────

// PDFRenderTotal counts render attempts.
// Labels: template ("internal-transfer", "warranty-claim"), result ("ok", "error").
var PDFRenderTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pdf_render_total",
		Help:      "PDF render attempts, by template and result.",
	},
	[]string{"template", "result"},
)

var PDFRenderDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pdf_render_duration_seconds",
		Help:      "Time spent rendering a PDF from its template.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"template"},
)

// ── Email ────────────────────────────────────────────────────────────────────

// EmailsTotal counts delivery outcomes.
// Labels: kind (invitation_email, transfer_email, ...), result ("sent", "failed", "retried", "queued").
var EmailsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_total",
		Help:      "Email jobs by kind and result.",
	},
	[]string{"kind", "result"},
)

// EmailQueueDepth is the pending job count per in-process dispatcher worker.
var EmailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "email_queue_depth",
		Help:      "Pending email jobs in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Auth & audit ─────────────────────────────────────────────────────────────

var AuthEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Authentication events by action and result.",
	},
	[]string{"action", "result"},
)

// SystemLogWriteErrorsTotal counts audit rows that could not be stored.
var SystemLogWriteErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "system_log_write_errors_total",
		Help:      "System log rows dropped because the store rejected them.",
	},
)

// ReportCacheTotal counts report cache lookups. Label result: "hit" or "miss".
var ReportCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_cache_total",
		Help:      "Report cache lookups, by result.",
	},
	[]string{"result"},
)

// RateLimitedTotal counts requests rejected by the limiter, by bucket.
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	},
	[]string{"bucket"},
)

// ── Governance ───────────────────────────────────────────────────────────────

// QIWIncidentsTotal counts incidents recorded by the watchdog detectors.
var QIWIncidentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "qiw_incidents_total",
		Help:      "Watchdog incidents recorded, by channel and severity.",
	},
	[]string{"channel", "severity"},
)
