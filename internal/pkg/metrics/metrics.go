// Package metrics exposes the gateway's Prometheus instruments.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const maxLabelLen = 64

// Dispatch outcomes.
const (
	OutcomeCompleted         = "completed"
	OutcomeUpstreamError     = "upstream_error"
	OutcomeTimeout           = "timeout"
	OutcomeMissingCredential = "missing_credential"
	OutcomeCanceled          = "canceled"
)

// Collector groups the counters so callers can depend on one value.
type Collector struct {
	resolutions     *prometheus.CounterVec
	dispatches      *prometheus.CounterVec
	dispatchSeconds *prometheus.HistogramVec
	webhooks        *prometheus.CounterVec
}

var (
	instance *Collector
	once     sync.Once
)

// Get returns the process-wide collector registered on the default registry.
func Get() *Collector {
	once.Do(func() {
		instance = New(prometheus.DefaultRegisterer)
	})
	return instance
}

// New builds a collector on the given registerer. Tests pass their own
// registry so they do not collide with the default one.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "agent_resolutions_total",
				Help:      "SKU resolutions by answering table (primary, fallback, not_found)",
			},
			[]string{"source"},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "provider_dispatch_total",
				Help:      "Upstream provider calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		dispatchSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gateway",
				Name:      "provider_dispatch_seconds",
				Help:      "Upstream provider call latency",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
			},
			[]string{"provider"},
		),
		webhooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "billing_webhooks_total",
				Help:      "Billing webhook deliveries by provider, event and result",
			},
			[]string{"provider", "event", "result"},
		),
	}

	if reg != nil {
		reg.MustRegister(c.resolutions, c.dispatches, c.dispatchSeconds, c.webhooks)
	}
	return c
}

// RecordResolution counts one SKU resolution.
func (c *Collector) RecordResolution(source string) {
	c.resolutions.WithLabelValues(sanitizeLabel(source)).Inc()
}

// RecordDispatch counts one provider call and observes its duration.
func (c *Collector) RecordDispatch(provider, outcome string, elapsed time.Duration) {
	provider = sanitizeLabel(provider)
	c.dispatches.WithLabelValues(provider, sanitizeLabel(outcome)).Inc()
	c.dispatchSeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// RecordWebhook counts one billing delivery.
func (c *Collector) RecordWebhook(provider, event, result string) {
	c.webhooks.WithLabelValues(sanitizeLabel(provider), sanitizeLabel(event), sanitizeLabel(result)).Inc()
}

func sanitizeLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return s
}
