package core

import (
	"math/rand/v2"

	"github.com/signalsfoundry/iot-netselect/model"
)

// Rand is the random source used for movement, task draws and QoS jitter.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewSeededRand returns a deterministic source for reproducible runs.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func newUnseededRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// MotionModel computes the device's next position for a step.
type MotionModel interface {
	NextPosition(step int, current model.Position, bounds MapSize, rng Rand) model.Position
}

// PhasedMotion sweeps the map in three phases keyed by the step counter:
// horizontal for steps 1..HorizontalSteps, vertical up to VerticalUntil,
// then a uniform random walk over the four unit directions.
type PhasedMotion struct {
	StepSize        int
	HorizontalSteps int
	VerticalUntil   int
}

// DefaultStepSize is the movement per step in map units.
const DefaultStepSize = 10

// NewPhasedMotion returns the default sweep: 100 horizontal steps, 100
// vertical steps, then random.
func NewPhasedMotion(stepSize int) *PhasedMotion {
	if stepSize <= 0 {
		stepSize = DefaultStepSize
	}
	return &PhasedMotion{StepSize: stepSize, HorizontalSteps: 100, VerticalUntil: 200}
}

// NextPosition implements MotionModel.
func (m *PhasedMotion) NextPosition(step int, cur model.Position, bounds MapSize, rng Rand) model.Position {
	switch {
	case step <= m.HorizontalSteps:
		return model.Position{X: min(cur.X+m.StepSize, bounds.Width-1), Y: cur.Y}
	case step <= m.VerticalUntil:
		return model.Position{X: cur.X, Y: min(cur.Y+m.StepSize, bounds.Height-1)}
	}

	s := m.StepSize
	directions := [4]model.Position{{X: -s}, {X: s}, {Y: -s}, {Y: s}}
	d := directions[rng.IntN(len(directions))]
	return bounds.Clamp(model.Position{X: cur.X + d.X, Y: cur.Y + d.Y})
}

// TaskSampler draws the device's task for a step.
type TaskSampler interface {
	Sample(rng Rand) model.Task
}

// TaskWeight is one bucket of a categorical task distribution.
type TaskWeight struct {
	Task        model.Task
	Probability float64
}

// CategoricalTaskSampler draws tasks by cumulative probability. If rounding
// leaves the draw unmatched it falls back to idle monitoring.
type CategoricalTaskSampler struct {
	Buckets []TaskWeight
}

// DefaultTaskSampler: idle 60%, burst alert 30%, streaming 10%.
func DefaultTaskSampler() *CategoricalTaskSampler {
	return &CategoricalTaskSampler{Buckets: []TaskWeight{
		{Task: model.TaskIdleMonitoring, Probability: 0.6},
		{Task: model.TaskDataBurstAlert, Probability: 0.3},
		{Task: model.TaskVideoStreaming, Probability: 0.1},
	}}
}

// Sample implements TaskSampler.
func (s *CategoricalTaskSampler) Sample(rng Rand) model.Task {
	r := rng.Float64()
	cumulative := 0.0
	for _, b := range s.Buckets {
		cumulative += b.Probability
		if r <= cumulative {
			return b.Task
		}
	}
	return model.TaskIdleMonitoring
}

// FixedTaskSampler always returns the same task.
type FixedTaskSampler model.Task

// Sample implements TaskSampler.
func (f FixedTaskSampler) Sample(Rand) model.Task { return model.Task(f) }
