package core

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/model"
)

// ErrInvalidEngineConfig indicates construction options were unusable.
var ErrInvalidEngineConfig = errors.New("invalid simulation engine config")

// StepRecorder receives the device state after every step, typically to
// drive metrics.
type StepRecorder interface {
	ObserveStep(step int, state model.DeviceState)
}

// SimulationEngine moves a single virtual device over a fixed map and
// synthesizes which networks it can reach.
//
// The engine is not safe for concurrent use: callers sharing one instance
// must serialize Step/Reset themselves (see kb.Session).
type SimulationEngine struct {
	mapSize     MapSize
	configs     map[string]model.NetworkConfig
	configOrder []string
	stations    map[string][]model.Position
	profiles    map[string]RadioProfile

	rng      Rand
	tasks    TaskSampler
	motion   MotionModel
	log      logging.Logger
	recorder StepRecorder
	stepSize int

	listeners []func(step int, state model.DeviceState)

	step   int
	device model.DeviceState
}

// Option customises SimulationEngine construction.
type Option func(*SimulationEngine) error

// WithMapSize sets the map dimensions.
func WithMapSize(width, height int) Option {
	return func(se *SimulationEngine) error {
		if width <= 0 || height <= 0 {
			return fmt.Errorf("%w: map size %dx%d", ErrInvalidEngineConfig, width, height)
		}
		se.mapSize = MapSize{Width: width, Height: height}
		return nil
	}
}

// WithStepSize sets the movement per step used by the default motion model.
func WithStepSize(n int) Option {
	return func(se *SimulationEngine) error {
		if n <= 0 {
			return fmt.Errorf("%w: step size %d", ErrInvalidEngineConfig, n)
		}
		se.stepSize = n
		return nil
	}
}

// WithNetworkConfigs replaces the network energy table. The order given is
// the order networks appear in AvailableNetworks.
func WithNetworkConfigs(cfgs ...model.NetworkConfig) Option {
	return func(se *SimulationEngine) error {
		configs := make(map[string]model.NetworkConfig, len(cfgs))
		order := make([]string, 0, len(cfgs))
		for _, c := range cfgs {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidEngineConfig, err)
			}
			if _, dup := configs[c.Name]; dup {
				return fmt.Errorf("%w: duplicate network %q", ErrInvalidEngineConfig, c.Name)
			}
			configs[c.Name] = c
			order = append(order, c.Name)
		}
		se.configs = configs
		se.configOrder = order
		return nil
	}
}

// WithBaseStations replaces the station layout.
func WithBaseStations(stations map[string][]model.Position) Option {
	return func(se *SimulationEngine) error {
		se.stations = copyStations(stations)
		return nil
	}
}

// WithRadioProfiles replaces the per-type range/bandwidth/latency profiles.
func WithRadioProfiles(profiles map[string]RadioProfile) Option {
	return func(se *SimulationEngine) error {
		se.profiles = maps.Clone(profiles)
		return nil
	}
}

// WithRand injects the random source.
func WithRand(r Rand) Option {
	return func(se *SimulationEngine) error {
		if r == nil {
			return fmt.Errorf("%w: nil random source", ErrInvalidEngineConfig)
		}
		se.rng = r
		return nil
	}
}

// WithSeed uses a deterministic random source built from seed.
func WithSeed(seed uint64) Option {
	return WithRand(NewSeededRand(seed))
}

// WithTaskSampler replaces the task distribution.
func WithTaskSampler(s TaskSampler) Option {
	return func(se *SimulationEngine) error {
		se.tasks = s
		return nil
	}
}

// WithMotionModel replaces the movement policy.
func WithMotionModel(m MotionModel) Option {
	return func(se *SimulationEngine) error {
		se.motion = m
		return nil
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(se *SimulationEngine) error {
		se.log = logging.OrNoop(l)
		return nil
	}
}

// WithStepRecorder attaches a per-step recorder.
func WithStepRecorder(r StepRecorder) Option {
	return func(se *SimulationEngine) error {
		se.recorder = r
		return nil
	}
}

// WithScenario applies every setting carried by a loaded scenario.
func WithScenario(sc *Scenario) Option {
	return func(se *SimulationEngine) error {
		if sc == nil {
			return nil
		}
		if err := sc.Validate(); err != nil {
			return err
		}
		opts := []Option{
			WithMapSize(sc.Map.Width, sc.Map.Height),
			WithNetworkConfigs(sc.NetworkConfigs()...),
			WithBaseStations(sc.BaseStations()),
			WithRadioProfiles(sc.RadioProfiles()),
		}
		if sc.StepSize > 0 {
			opts = append(opts, WithStepSize(sc.StepSize))
		}
		for _, opt := range opts {
			if err := opt(se); err != nil {
				return err
			}
		}
		return nil
	}
}

// NewSimulationEngine builds an engine from the built-in scenario plus opts,
// places the device at the origin in idle monitoring and computes its
// reachable networks.
func NewSimulationEngine(opts ...Option) (*SimulationEngine, error) {
	se := &SimulationEngine{
		mapSize:  MapSize{Width: 1000, Height: 1000},
		stations: DefaultBaseStations(),
		profiles: DefaultRadioProfiles(),
		tasks:    DefaultTaskSampler(),
		log:      logging.Noop(),
		stepSize: DefaultStepSize,
	}
	if err := WithNetworkConfigs(DefaultNetworkConfigs()...)(se); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(se); err != nil {
			return nil, err
		}
	}
	if se.rng == nil {
		se.rng = newUnseededRand()
	}
	if se.motion == nil {
		se.motion = NewPhasedMotion(se.stepSize)
	}

	se.device = model.DeviceState{
		Position:          model.Position{},
		CurrentTask:       model.TaskIdleMonitoring,
		AvailableNetworks: []model.NetworkState{},
	}
	se.updateAvailableNetworks()

	se.log.Info(context.Background(), "simulation engine ready",
		logging.Int("map_width", se.mapSize.Width),
		logging.Int("map_height", se.mapSize.Height),
		logging.Int("network_types", len(se.configOrder)),
		logging.Int("base_stations", se.TotalBaseStations()),
	)
	return se, nil
}

// RegisterStepListener adds a callback invoked after every step.
func (se *SimulationEngine) RegisterStepListener(fn func(step int, state model.DeviceState)) {
	se.listeners = append(se.listeners, fn)
}

// RunSimulationStep advances one step: move, draw a task, recompute
// reachable networks. It returns a snapshot of the new device state.
func (se *SimulationEngine) RunSimulationStep() model.DeviceState {
	se.step++

	se.device.Position = se.motion.NextPosition(se.step, se.device.Position, se.mapSize, se.rng)
	se.device.CurrentTask = se.tasks.Sample(se.rng)
	se.updateAvailableNetworks()

	snap := se.device.Clone()
	if se.recorder != nil {
		se.recorder.ObserveStep(se.step, snap)
	}
	for _, fn := range se.listeners {
		fn(se.step, snap.Clone())
	}
	se.log.Debug(context.Background(), "simulation step",
		logging.Int("step", se.step),
		logging.String("position", snap.Position.String()),
		logging.String("task", string(snap.CurrentTask)),
		logging.Int("reachable", len(snap.AvailableNetworks)),
	)
	return snap
}

// RunMultipleSteps runs n steps and returns an independent snapshot after
// each one.
func (se *SimulationEngine) RunMultipleSteps(n int) []model.DeviceState {
	if n <= 0 {
		return []model.DeviceState{}
	}
	out := make([]model.DeviceState, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, se.RunSimulationStep())
	}
	return out
}

// StepResult pairs a step's device state with the decision made for it.
// Decision is nil when no network was reachable.
type StepResult struct {
	Step     int                `json:"step"`
	State    model.DeviceState  `json:"device_state"`
	Decision *decision.Decision `json:"decision"`
}

// RunSimulationStepWithDecision runs one step and selects a network for the
// new state with m. A step with no reachable network yields a nil decision
// and no error.
func (se *SimulationEngine) RunSimulationStepWithDecision(ctx context.Context, m *decision.Model) (StepResult, error) {
	if m == nil {
		m = decision.Default()
	}
	state := se.RunSimulationStep()
	res := StepResult{Step: se.step, State: state}
	if len(state.AvailableNetworks) == 0 {
		return res, nil
	}
	d, err := m.Evaluate(ctx, state.AvailableNetworks, se.configs, state.CurrentTask)
	if err != nil {
		return res, fmt.Errorf("step %d: %w", se.step, err)
	}
	res.Decision = d
	return res, nil
}

// ResetSimulation zeroes the step counter, moves the device to pos, forces
// idle monitoring and recomputes networks.
func (se *SimulationEngine) ResetSimulation(pos model.Position) {
	se.step = 0
	se.device.Position = pos
	se.device.CurrentTask = model.TaskIdleMonitoring
	se.updateAvailableNetworks()

	se.log.Info(context.Background(), "simulation reset",
		logging.String("position", pos.String()),
	)
}

// Reset is ResetSimulation at the origin.
func (se *SimulationEngine) Reset() { se.ResetSimulation(model.Position{}) }

func (se *SimulationEngine) updateAvailableNetworks() {
	se.device.AvailableNetworks = se.reachableNetworks(se.device.Position)
}

// SimulationStats is a read-only summary of the engine.
type SimulationStats struct {
	Step                   int            `json:"simulation_step"`
	Position               model.Position `json:"current_position"`
	Task                   model.Task     `json:"current_task"`
	AvailableNetworksCount int            `json:"available_networks_count"`
	AvailableNetworks      []string       `json:"available_networks"`
	MapSize                MapSize        `json:"map_size"`
	TotalBaseStations      int            `json:"total_base_stations"`
}

// Stats returns the current step, position, task, reachable network names,
// map size and base-station count.
func (se *SimulationEngine) Stats() SimulationStats {
	names := se.device.NetworkNames()
	return SimulationStats{
		Step:                   se.step,
		Position:               se.device.Position,
		Task:                   se.device.CurrentTask,
		AvailableNetworksCount: len(names),
		AvailableNetworks:      names,
		MapSize:                se.mapSize,
		TotalBaseStations:      se.TotalBaseStations(),
	}
}

// Step returns the number of steps since construction or the last reset.
func (se *SimulationEngine) Step() int { return se.step }

// DeviceState returns a snapshot of the live device state.
func (se *SimulationEngine) DeviceState() model.DeviceState { return se.device.Clone() }

// MapSize returns the map dimensions.
func (se *SimulationEngine) MapSize() MapSize { return se.mapSize }

// NetworkConfigs returns a copy of the name-keyed config table.
func (se *SimulationEngine) NetworkConfigs() map[string]model.NetworkConfig {
	return maps.Clone(se.configs)
}

// NetworkConfigList returns the configs in canonical order.
func (se *SimulationEngine) NetworkConfigList() []model.NetworkConfig {
	out := make([]model.NetworkConfig, 0, len(se.configOrder))
	for _, name := range se.configOrder {
		out = append(out, se.configs[name])
	}
	return out
}

// BaseStations returns a copy of the station layout.
func (se *SimulationEngine) BaseStations() map[string][]model.Position {
	return copyStations(se.stations)
}

// RadioProfiles returns a copy of the per-type radio profiles.
func (se *SimulationEngine) RadioProfiles() map[string]RadioProfile {
	return maps.Clone(se.profiles)
}

// TotalBaseStations counts every configured station across all types.
func (se *SimulationEngine) TotalBaseStations() int {
	n := 0
	for _, st := range se.stations {
		n += len(st)
	}
	return n
}

func copyStations(in map[string][]model.Position) map[string][]model.Position {
	out := make(map[string][]model.Position, len(in))
	for k, v := range in {
		out[k] = append([]model.Position(nil), v...)
	}
	return out
}
