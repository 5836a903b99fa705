// Package metrics exposes Prometheus collectors for the eventing, control and
// discovery layers. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "upnp"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// NOTIFY outcome label values.
const (
	NotifyRouted      = "routed"
	NotifyUnknownSID  = "unknown_sid"
	NotifyMissingSID  = "missing_sid"
	NotifyDropped     = "dropped"
	NotifyRateLimited = "rate_limited"
	NotifyParseError  = "parse_error"
)

// Metrics holds the collectors registered for one control point.
type Metrics struct {
	SubscriptionsActive    prometheus.Gauge
	SubscriptionOps        *prometheus.CounterVec
	NotifyTotal            *prometheus.CounterVec
	NotifyDispatchDuration prometheus.Histogram
	NotifyQueueDepth       prometheus.Gauge
	ControlActions         *prometheus.CounterVec
	ControlDuration        *prometheus.HistogramVec
	BreakerState           *prometheus.GaugeVec
	DevicesKnown           prometheus.Gauge
	StateWrites            *prometheus.CounterVec
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves the metrics of reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SubscriptionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Event subscriptions currently registered",
		}),
		SubscriptionOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_operations_total",
			Help:      "SUBSCRIBE, renewal and UNSUBSCRIBE exchanges by result",
		}, []string{"op", "result"}),
		NotifyTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_total",
			Help:      "Inbound NOTIFY requests by outcome",
		}, []string{"outcome"}),
		NotifyDispatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notify_dispatch_duration_seconds",
			Help:      "Time from NOTIFY receipt to handler return",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, 1},
		}),
		NotifyQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notify_queue_depth",
			Help:      "NOTIFY messages waiting for dispatch",
		}),
		ControlActions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_actions_total",
			Help:      "SOAP control actions by action and result",
		}, []string{"action", "result"}),
		ControlDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "control_action_duration_seconds",
			Help:      "SOAP control action latency",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"action"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "control_breaker_state",
			Help:      "Per-device circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"host"}),
		DevicesKnown: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices_known",
			Help:      "Devices currently materialized in the state store",
		}),
		StateWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_writes_total",
			Help:      "State store writes by ack flag",
		}, []string{"ack"}),
	}
}

// SubscriptionOp records the outcome of a SUBSCRIBE/renew/UNSUBSCRIBE exchange.
func (m *Metrics) SubscriptionOp(op string, err error) {
	if m == nil {
		return
	}
	m.SubscriptionOps.WithLabelValues(op, result(err)).Inc()
}

// SetSubscriptionsActive updates the registered subscription gauge.
func (m *Metrics) SetSubscriptionsActive(n int) {
	if m == nil {
		return
	}
	m.SubscriptionsActive.Set(float64(n))
}

// Notify counts an inbound NOTIFY by outcome.
func (m *Metrics) Notify(outcome string) {
	if m == nil {
		return
	}
	m.NotifyTotal.WithLabelValues(outcome).Inc()
}

// NotifyDispatched observes the dispatch latency of one NOTIFY.
func (m *Metrics) NotifyDispatched(d time.Duration) {
	if m == nil {
		return
	}
	m.NotifyDispatchDuration.Observe(d.Seconds())
}

// SetNotifyQueueDepth updates the dispatch queue gauge.
func (m *Metrics) SetNotifyQueueDepth(n int) {
	if m == nil {
		return
	}
	m.NotifyQueueDepth.Set(float64(n))
}

// ControlAction records a SOAP action outcome and latency.
func (m *Metrics) ControlAction(action string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ControlActions.WithLabelValues(action, result(err)).Inc()
	m.ControlDuration.WithLabelValues(action).Observe(d.Seconds())
}

// SetBreakerState records the breaker state for host.
func (m *Metrics) SetBreakerState(host string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(host).Set(state)
}

// SetDevicesKnown updates the device gauge.
func (m *Metrics) SetDevicesKnown(n int) {
	if m == nil {
		return
	}
	m.DevicesKnown.Set(float64(n))
}

// StateWrite counts a state store write.
func (m *Metrics) StateWrite(ack bool) {
	if m == nil {
		return
	}
	label := "false"
	if ack {
		label = "true"
	}
	m.StateWrites.WithLabelValues(label).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
