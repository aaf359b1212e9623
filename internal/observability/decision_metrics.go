package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/iot-netselect/model"
)

// DecisionCollector exposes network-selection and simulator metrics. It
// satisfies decision.Recorder and core.StepRecorder.
type DecisionCollector struct {
	gatherer prometheus.Gatherer

	Decisions         *prometheus.CounterVec
	DecisionCost      *prometheus.HistogramVec
	SkippedNetworks   *prometheus.CounterVec
	SimulationSteps   prometheus.Counter
	ReachableNetworks prometheus.Gauge
}

// NewDecisionCollector registers decision metrics against the provided registerer.
func NewDecisionCollector(reg prometheus.Registerer) (*DecisionCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	decisions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netselect_decisions_total",
		Help: "Network selections, labeled by task and selected network.",
	}, []string{"task", "network"}), "netselect_decisions_total")
	if err != nil {
		return nil, err
	}

	// Costs span small energy-dominated values up to the 1000 penalty.
	cost, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netselect_decision_cost",
		Help:    "Weighted cost of the selected network.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"task"}), "netselect_decision_cost")
	if err != nil {
		return nil, err
	}

	skipped, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netselect_skipped_networks_total",
		Help: "Candidate networks skipped because no config was registered for them.",
	}, []string{"network"}), "netselect_skipped_networks_total")
	if err != nil {
		return nil, err
	}

	steps, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netselect_simulation_steps_total",
		Help: "Cumulative number of simulator steps across all sessions.",
	}), "netselect_simulation_steps_total")
	if err != nil {
		return nil, err
	}

	reachable, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netselect_reachable_networks",
		Help: "Number of reachable networks after the most recent step.",
	}), "netselect_reachable_networks")
	if err != nil {
		return nil, err
	}

	return &DecisionCollector{
		gatherer:          gatherer,
		Decisions:         decisions,
		DecisionCost:      cost,
		SkippedNetworks:   skipped,
		SimulationSteps:   steps,
		ReachableNetworks: reachable,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *DecisionCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveDecision records a completed selection.
func (c *DecisionCollector) ObserveDecision(task model.Task, network string, cost float64) {
	if c == nil {
		return
	}
	if c.Decisions != nil {
		c.Decisions.WithLabelValues(string(task), network).Inc()
	}
	if c.DecisionCost != nil {
		c.DecisionCost.WithLabelValues(string(task)).Observe(cost)
	}
}

// ObserveSkippedNetwork counts a candidate dropped for lack of a config.
func (c *DecisionCollector) ObserveSkippedNetwork(network string) {
	if c == nil || c.SkippedNetworks == nil {
		return
	}
	c.SkippedNetworks.WithLabelValues(network).Inc()
}

// ObserveStep counts a simulator step and tracks its reachable set size.
func (c *DecisionCollector) ObserveStep(_ int, state model.DeviceState) {
	if c == nil {
		return
	}
	if c.SimulationSteps != nil {
		c.SimulationSteps.Inc()
	}
	if c.ReachableNetworks != nil {
		c.ReachableNetworks.Set(float64(len(state.AvailableNetworks)))
	}
}
