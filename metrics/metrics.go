// Package metrics exposes Prometheus collectors for an EventSub session.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eventsub"

// Subscription results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the session collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Frames             *prometheus.CounterVec
	Reconnects         prometheus.Counter
	Subscriptions      *prometheus.CounterVec
	HandlerInvocations *prometheus.CounterVec
	HandlerPanics      prometheus.Counter
	RoutingMisses      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of classified frames by message kind.",
		}, []string{"kind"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Total number of completed reconnect handshakes.",
		}),
		Subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_total",
			Help:      "Total number of subscription requests by result.",
		}, []string{"result"}),
		HandlerInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "handler_invocations_total",
			Help:      "Total number of notification handler invocations by category.",
		}, []string{"category"}),
		HandlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "handler_panics_total",
			Help:      "Total number of recovered handler panics.",
		}),
		RoutingMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "routing_misses_total",
			Help:      "Total number of notifications without a registered handler.",
		}, []string{"category"}),
	}

	reg.MustRegister(
		m.Frames,
		m.Reconnects,
		m.Subscriptions,
		m.HandlerInvocations,
		m.HandlerPanics,
		m.RoutingMisses,
	)

	return m
}

// ObserveFrame counts one classified frame.
func (m *Metrics) ObserveFrame(kind string) {
	if m == nil {
		return
	}

	m.Frames.WithLabelValues(kind).Inc()
}

// ObserveReconnect counts one completed reconnect.
func (m *Metrics) ObserveReconnect() {
	if m == nil {
		return
	}

	m.Reconnects.Inc()
}

// ObserveSubscription counts one subscription request.
func (m *Metrics) ObserveSubscription(err error) {
	if m == nil {
		return
	}

	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}

	m.Subscriptions.WithLabelValues(result).Inc()
}

// ObserveHandler counts one handler invocation.
func (m *Metrics) ObserveHandler(category string) {
	if m == nil {
		return
	}

	m.HandlerInvocations.WithLabelValues(category).Inc()
}

// ObserveHandlerPanic counts one recovered handler panic.
func (m *Metrics) ObserveHandlerPanic() {
	if m == nil {
		return
	}

	m.HandlerPanics.Inc()
}

// ObserveRoutingMiss counts one notification nobody handled.
func (m *Metrics) ObserveRoutingMiss(category string) {
	if m == nil {
		return
	}

	m.RoutingMisses.WithLabelValues(category).Inc()
}

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
