package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bot's collectors on a private registry.
type Metrics struct {
	reg         *prometheus.Registry
	handler     http.Handler
	updates     *prometheus.CounterVec
	verdicts    *prometheus.CounterVec
	sendErrors  prometheus.Counter
	storeErrors *prometheus.CounterVec
}

// New returns a fresh registry with Go/process collectors and bot metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		reg: reg,
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_updates_total",
			Help: "Telegram updates received by kind",
		}, []string{"kind"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_throttle_verdicts_total",
			Help: "Throttle decisions by verdict",
		}, []string{"verdict"}),
		sendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_send_errors_total",
			Help: "Outgoing Telegram requests that failed",
		}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_store_errors_total",
			Help: "Failed database operations by operation",
		}, []string{"op"}),
	}
	reg.MustRegister(m.updates, m.verdicts, m.sendErrors, m.storeErrors)
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return m
}

// TrackUsers exposes the throttle's tracked-user count as a gauge.
func (m *Metrics) TrackUsers(count func() int) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gatekeeper_throttle_tracked_users",
		Help: "Users currently held in the throttle",
	}, func() float64 { return float64(count()) }))
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// Update counts an inbound update.
func (m *Metrics) Update(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

// Verdict counts a throttle decision.
func (m *Metrics) Verdict(spam bool) {
	if m == nil {
		return
	}
	v := "accepted"
	if spam {
		v = "spam"
	}
	m.verdicts.WithLabelValues(v).Inc()
}

// SendError counts a failed outgoing request.
func (m *Metrics) SendError() {
	if m == nil {
		return
	}
	m.sendErrors.Inc()
}

// StoreError counts a failed database operation.
func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}
