// Package metrics exposes the execution engine's counters to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sarchlab/netsim/timing"
)

// Engine holds the collectors of one simulation. Each Engine registers on
// its own registry so that several simulations can live in one process. All
// Record methods accept a nil receiver.
type Engine struct {
	Registry *prometheus.Registry

	// EventsExecuted counts executed events by task kind.
	EventsExecuted *prometheus.CounterVec

	// PushesRefused counts events dropped because the scheduler was stopped.
	PushesRefused prometheus.Counter

	// PacketsDropped counts lost or unroutable packets by reason.
	PacketsDropped *prometheus.CounterVec

	// Rounds counts completed rounds.
	Rounds prometheus.Counter

	// SimulatedSeconds is the simulation time reached by the last round.
	SimulatedSeconds prometheus.Gauge

	// ProcessorIdleSeconds is the wall-clock time each processor spent
	// waiting for work.
	ProcessorIdleSeconds *prometheus.GaugeVec
}

// New creates the collectors on a fresh registry.
func New() *Engine {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Engine{
		Registry: reg,
		EventsExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netsim_events_executed_total",
				Help: "Total number of executed events by task kind",
			},
			[]string{"kind"},
		),
		PushesRefused: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "netsim_pushes_refused_total",
				Help: "Total number of events refused by a stopped scheduler",
			},
		),
		PacketsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netsim_packets_dropped_total",
				Help: "Total number of dropped packets by reason",
			},
			[]string{"reason"},
		),
		Rounds: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "netsim_rounds_total",
				Help: "Total number of completed rounds",
			},
		),
		SimulatedSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "netsim_simulated_seconds",
				Help: "Simulation time reached by the last completed round",
			},
		),
		ProcessorIdleSeconds: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netsim_processor_idle_seconds",
				Help: "Wall-clock time a processor spent without a worker to run",
			},
			[]string{"processor"},
		),
	}
}

// RecordEventExecuted counts one executed event.
func (m *Engine) RecordEventExecuted(kind string) {
	if m == nil {
		return
	}

	m.EventsExecuted.WithLabelValues(kind).Inc()
}

// RecordPushRefused counts one refused event.
func (m *Engine) RecordPushRefused() {
	if m == nil {
		return
	}

	m.PushesRefused.Inc()
}

// RecordPacketDropped counts one dropped packet.
func (m *Engine) RecordPacketDropped(reason string) {
	if m == nil {
		return
	}

	m.PacketsDropped.WithLabelValues(reason).Inc()
}

// RecordRound counts a completed round ending at the given time.
func (m *Engine) RecordRound(end timing.SimulationTime) {
	if m == nil {
		return
	}

	m.Rounds.Inc()
	m.SimulatedSeconds.Set(end.Seconds())
}

// SetProcessorIdle records the idle time of a processor.
func (m *Engine) SetProcessorIdle(processor int, idle time.Duration) {
	if m == nil {
		return
	}

	m.ProcessorIdleSeconds.WithLabelValues(strconv.Itoa(processor)).Set(idle.Seconds())
}
