// Package metrics holds the Prometheus collectors for command execution.
//
// A nil *Metrics is valid and records nothing, so callers never need to
// guard their observations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every collector name.
const Namespace = "patchbay"

// Metrics groups the server's collectors.
type Metrics struct {
	commands    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	hostSends   *prometheus.CounterVec
	nodes       prometheus.Gauge
	reentrances prometheus.Counter
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests usually want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "commands_total",
			Help:      "Commands processed, by command, source and result code.",
		}, []string{"command", "source", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution latency, including nested commands.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"command"}),
		hostSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "host_sends_total",
			Help:      "Messages forwarded to the execution host, by kind.",
		}, []string{"kind"}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "nodes",
			Help:      "Live nodes in the tree.",
		}),
		reentrances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reentrance_rejections_total",
			Help:      "Set commands rejected because the endpoint was already being set.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.commands, m.duration, m.hostSends, m.nodes, m.reentrances)
	}
	return m
}

// ObserveCommand records one finished command.
func (m *Metrics) ObserveCommand(command, source, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, source, code).Inc()
	m.duration.WithLabelValues(command).Observe(d.Seconds())
}

// HostSend counts one message to the host. kind is "value", "add" or "remove".
func (m *Metrics) HostSend(kind string) {
	if m == nil {
		return
	}
	m.hostSends.WithLabelValues(kind).Inc()
}

// SetNodes records the current tree size.
func (m *Metrics) SetNodes(n int) {
	if m == nil {
		return
	}
	m.nodes.Set(float64(n))
}

// ReentranceRejected counts one REENTRANCE_ERROR.
func (m *Metrics) ReentranceRejected() {
	if m == nil {
		return
	}
	m.reentrances.Inc()
}
