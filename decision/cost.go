// Package decision scores candidate networks for a task and picks the
// cheapest one.
//
// Cost = w_energy * EnergyCost + w_qos * QoSPenalty. Lower is better.
package decision

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/model"
)

var (
	// ErrInvalidTask indicates the task has no registered weights.
	ErrInvalidTask = errors.New("invalid task")
	// ErrNoCandidates indicates selection was invoked with no networks.
	ErrNoCandidates = errors.New("no candidate networks")
	// ErrNoMatchingNetwork indicates every candidate lacked a config.
	ErrNoMatchingNetwork = errors.New("no candidate network matched a config")
)

// Recorder receives decision outcomes, typically for metrics.
type Recorder interface {
	ObserveDecision(task model.Task, network string, cost float64)
	ObserveSkippedNetwork(network string)
}

// Model evaluates networks against immutable task tables.
type Model struct {
	tables   Tables
	log      logging.Logger
	recorder Recorder
}

// Option customises Model construction.
type Option func(*Model)

// WithTables replaces the built-in tables.
func WithTables(t Tables) Option {
	return func(m *Model) { m.tables = t }
}

// WithLogger sets the logger used for skipped-candidate warnings.
func WithLogger(l logging.Logger) Option {
	return func(m *Model) { m.log = logging.OrNoop(l) }
}

// WithRecorder attaches a decision recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Model) { m.recorder = r }
}

// NewModel builds a Model and validates its tables.
func NewModel(opts ...Option) (*Model, error) {
	m := &Model{
		tables: DefaultTables(),
		log:    logging.Noop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.tables.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

var defaultModel = mustModel(WithLogger(logging.New(logging.Config{Level: "warn", Output: os.Stderr})))

func mustModel(opts ...Option) *Model {
	m, err := NewModel(opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Default returns the package-level model built from DefaultTables.
func Default() *Model { return defaultModel }

// Tables returns the model's tables. Callers must not mutate the maps.
func (m *Model) Tables() Tables { return m.tables }

// CalculateEnergyCost estimates the energy (mJ) of serving task over a
// network: one second of idle power, the task payload at the per-KB
// transmit cost, and one wake-up. The dynamic state does not affect energy.
func (m *Model) CalculateEnergyCost(cfg model.NetworkConfig, _ model.NetworkState, task model.Task) float64 {
	return cfg.EnergyIdle + m.tables.payloadKB(task)*cfg.EnergyTx + cfg.EnergyWakeup
}

// CalculateQoSPenalty measures how far a network falls short of the task's
// requirement. The result is 0, a value in (0, 500], or exactly HardPenalty.
func (m *Model) CalculateQoSPenalty(state model.NetworkState, task model.Task) float64 {
	req, ok := m.tables.Requirements[task]
	if !ok {
		return 0
	}
	if req.MustBeAvailable && !state.IsAvailable {
		return HardPenalty
	}

	penalty := 0.0
	if state.Bandwidth < req.MinBandwidth {
		penalty += (req.MinBandwidth - state.Bandwidth) * BandwidthPenaltyPerMbps
	}
	if latency := float64(state.Latency); latency > req.MaxLatency {
		penalty += (latency - req.MaxLatency) * LatencyPenaltyPerMs
	}

	if penalty > SeverePenaltyThreshold {
		return HardPenalty
	}
	return penalty
}

// CalculateCost returns the weighted sum of energy cost and QoS penalty.
// state must carry positive bandwidth and latency.
func (m *Model) CalculateCost(state model.NetworkState, cfg model.NetworkConfig, task model.Task) (float64, error) {
	nc, err := m.score(state, cfg, task)
	if err != nil {
		return 0, err
	}
	return nc.TotalCost, nil
}

// NetworkCost is the scoring breakdown of one candidate.
type NetworkCost struct {
	Network    model.NetworkState  `json:"network"`
	Config     model.NetworkConfig `json:"config"`
	EnergyCost float64             `json:"energy_cost"`
	QoSPenalty float64             `json:"qos_penalty"`
	TotalCost  float64             `json:"total_cost"`
}

func (m *Model) score(state model.NetworkState, cfg model.NetworkConfig, task model.Task) (NetworkCost, error) {
	if err := state.Validate(); err != nil {
		return NetworkCost{}, err
	}
	w, ok := m.tables.Weights[task]
	if !ok {
		return NetworkCost{}, fmt.Errorf("%w: no weights for %q", ErrInvalidTask, string(task))
	}
	energy := m.CalculateEnergyCost(cfg, state, task)
	penalty := m.CalculateQoSPenalty(state, task)
	return NetworkCost{
		Network:    state,
		Config:     cfg,
		EnergyCost: energy,
		QoSPenalty: penalty,
		TotalCost:  w.Energy*energy + w.QoS*penalty,
	}, nil
}

// Decision is the full outcome of evaluating a candidate list.
type Decision struct {
	Task     model.Task         `json:"task"`
	Selected model.NetworkState `json:"selected"`
	Cost     float64            `json:"cost"`
	// Evaluated holds every scored candidate in input order.
	Evaluated []NetworkCost `json:"evaluated"`
	// Skipped names candidates dropped for lack of a config.
	Skipped []string `json:"skipped,omitempty"`
	// Spread is the difference between the worst and best evaluated cost.
	Spread float64 `json:"spread"`
}

// Evaluate scores every candidate that has a config and selects the one with
// strictly minimal cost; on ties the first candidate in input order wins.
// Candidates without a config are skipped with a warning. Any candidate
// with non-positive bandwidth or latency rejects the whole list.
func (m *Model) Evaluate(ctx context.Context, candidates []model.NetworkState, configs map[string]model.NetworkConfig, task model.Task) (*Decision, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	if _, ok := m.tables.Weights[task]; !ok {
		return nil, fmt.Errorf("%w: no weights for %q", ErrInvalidTask, string(task))
	}

	d := &Decision{Task: task}
	best := -1
	minCost, maxCost := math.Inf(1), math.Inf(-1)
	for _, candidate := range candidates {
		cfg, ok := configs[candidate.Name]
		if !ok {
			m.log.Warn(ctx, "no config for candidate network; skipping",
				logging.String("network", candidate.Name),
				logging.String("task", string(task)),
			)
			d.Skipped = append(d.Skipped, candidate.Name)
			if m.recorder != nil {
				m.recorder.ObserveSkippedNetwork(candidate.Name)
			}
			continue
		}

		nc, err := m.score(candidate, cfg, task)
		if err != nil {
			return nil, err
		}
		d.Evaluated = append(d.Evaluated, nc)
		if nc.TotalCost < minCost {
			minCost = nc.TotalCost
			best = len(d.Evaluated) - 1
		}
		if nc.TotalCost > maxCost {
			maxCost = nc.TotalCost
		}
	}

	if best < 0 {
		return nil, fmt.Errorf("%w: %d candidates skipped", ErrNoMatchingNetwork, len(d.Skipped))
	}

	d.Selected = d.Evaluated[best].Network
	d.Cost = minCost
	d.Spread = maxCost - minCost
	if m.recorder != nil {
		m.recorder.ObserveDecision(task, d.Selected.Name, d.Cost)
	}
	return d, nil
}

// SelectBestNetwork returns the cheapest candidate and its cost.
func (m *Model) SelectBestNetwork(ctx context.Context, candidates []model.NetworkState, configs map[string]model.NetworkConfig, task model.Task) (model.NetworkState, float64, error) {
	d, err := m.Evaluate(ctx, candidates, configs, task)
	if err != nil {
		return model.NetworkState{}, 0, err
	}
	return d.Selected, d.Cost, nil
}

// CalculateEnergyCost scores energy with the default model.
func CalculateEnergyCost(cfg model.NetworkConfig, state model.NetworkState, task model.Task) float64 {
	return defaultModel.CalculateEnergyCost(cfg, state, task)
}

// CalculateQoSPenalty scores QoS with the default model.
func CalculateQoSPenalty(state model.NetworkState, task model.Task) float64 {
	return defaultModel.CalculateQoSPenalty(state, task)
}

// CalculateCost scores a network with the default model.
func CalculateCost(state model.NetworkState, cfg model.NetworkConfig, task model.Task) (float64, error) {
	return defaultModel.CalculateCost(state, cfg, task)
}

// SelectBestNetwork selects among candidates with the default model.
func SelectBestNetwork(candidates []model.NetworkState, configs map[string]model.NetworkConfig, task model.Task) (model.NetworkState, float64, error) {
	return defaultModel.SelectBestNetwork(context.Background(), candidates, configs, task)
}
