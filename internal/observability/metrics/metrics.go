package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics captures fulfillment pipeline health signals.
type Metrics struct {
	webhookEvents   *prometheus.CounterVec
	ordersCreated   *prometheus.CounterVec
	finalizations   *prometheus.CounterVec
	artifactSeconds *prometheus.HistogramVec
	queueJobs       *prometheus.CounterVec
	emailsSent      *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		webhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadflow",
			Name:      "webhook_events_total",
			Help:      "Payment webhook events by provider, type and outcome.",
		}, []string{"provider", "event_type", "outcome"}),
		ordersCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadflow",
			Name:      "orders_created_total",
			Help:      "Orders created by tier and billing mode.",
		}, []string{"tier", "billing_mode"}),
		finalizations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadflow",
			Name:      "finalizations_total",
			Help:      "Delivery finalizer outcomes.",
		}, []string{"outcome"}),
		artifactSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadflow",
			Name:      "artifact_generation_seconds",
			Help:      "Artifact generation latency by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		queueJobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadflow",
			Name:      "queue_jobs_total",
			Help:      "Lead acquisition queue jobs by outcome.",
		}, []string{"outcome"}),
		emailsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadflow",
			Name:      "emails_sent_total",
			Help:      "Transactional emails by template and outcome.",
		}, []string{"template", "outcome"}),
	}
}

func (m *Metrics) RecordWebhookEvent(provider, eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(provider, eventType, outcome).Inc()
}

func (m *Metrics) RecordOrderCreated(tier, billingMode string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(tier, billingMode).Inc()
}

func (m *Metrics) RecordFinalization(outcome string) {
	if m == nil {
		return
	}
	m.finalizations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveArtifactGeneration(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.artifactSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) RecordQueueJob(outcome string) {
	if m == nil {
		return
	}
	m.queueJobs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordEmail(template, outcome string) {
	if m == nil {
		return
	}
	m.emailsSent.WithLabelValues(template, outcome).Inc()
}
