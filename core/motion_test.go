package core

import (
	"testing"

	"github.com/signalsfoundry/iot-netselect/model"
)

// scriptedRand replays fixed values; it cycles when exhausted.
type scriptedRand struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (s *scriptedRand) Float64() float64 {
	if len(s.floats) == 0 {
		return 0.5
	}
	v := s.floats[s.fi%len(s.floats)]
	s.fi++
	return v
}

func (s *scriptedRand) IntN(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[s.ii%len(s.ints)] % n
	s.ii++
	return v
}

func TestPhasedMotion_HorizontalPhase(t *testing.T) {
	m := NewPhasedMotion(10)
	bounds := MapSize{Width: 1000, Height: 1000}

	pos := model.Position{}
	for step := 1; step <= 100; step++ {
		pos = m.NextPosition(step, pos, bounds, &scriptedRand{})
	}
	if pos != (model.Position{X: 999, Y: 0}) {
		t.Fatalf("after horizontal phase position = %v, want (999, 0)", pos)
	}
}

func TestPhasedMotion_HorizontalClampsAtEdge(t *testing.T) {
	m := NewPhasedMotion(10)
	bounds := MapSize{Width: 50, Height: 50}

	got := m.NextPosition(1, model.Position{X: 45, Y: 3}, bounds, &scriptedRand{})
	if got != (model.Position{X: 49, Y: 3}) {
		t.Fatalf("NextPosition = %v, want (49, 3)", got)
	}
}

func TestPhasedMotion_VerticalPhase(t *testing.T) {
	m := NewPhasedMotion(10)
	bounds := MapSize{Width: 1000, Height: 1000}

	start := model.Position{X: 500, Y: 0}
	got := m.NextPosition(101, start, bounds, &scriptedRand{})
	if got != (model.Position{X: 500, Y: 10}) {
		t.Fatalf("step 101 = %v, want (500, 10)", got)
	}
	got = m.NextPosition(200, model.Position{X: 500, Y: 995}, bounds, &scriptedRand{})
	if got != (model.Position{X: 500, Y: 999}) {
		t.Fatalf("step 200 at edge = %v, want (500, 999)", got)
	}
}

func TestPhasedMotion_RandomPhaseDirections(t *testing.T) {
	m := NewPhasedMotion(10)
	bounds := MapSize{Width: 1000, Height: 1000}
	start := model.Position{X: 500, Y: 500}

	want := []model.Position{
		{X: 490, Y: 500},
		{X: 510, Y: 500},
		{X: 500, Y: 490},
		{X: 500, Y: 510},
	}
	for i, w := range want {
		got := m.NextPosition(201, start, bounds, &scriptedRand{ints: []int{i}})
		if got != w {
			t.Errorf("direction %d: got %v, want %v", i, got, w)
		}
	}
}

func TestPhasedMotion_RandomPhaseStaysOnMap(t *testing.T) {
	m := NewPhasedMotion(10)
	bounds := MapSize{Width: 1000, Height: 1000}
	rng := NewSeededRand(7)

	corners := []model.Position{{X: 0, Y: 0}, {X: 999, Y: 999}, {X: 0, Y: 999}, {X: 999, Y: 0}}
	for _, c := range corners {
		pos := c
		for step := 201; step < 1201; step++ {
			pos = m.NextPosition(step, pos, bounds, rng)
			if !bounds.Contains(pos) {
				t.Fatalf("position %v left the map", pos)
			}
		}
	}
}

func TestCategoricalTaskSampler_Buckets(t *testing.T) {
	s := DefaultTaskSampler()
	cases := []struct {
		draw float64
		want model.Task
	}{
		{0.0, model.TaskIdleMonitoring},
		{0.59, model.TaskIdleMonitoring},
		{0.61, model.TaskDataBurstAlert},
		{0.89, model.TaskDataBurstAlert},
		{0.95, model.TaskVideoStreaming},
	}
	for _, tc := range cases {
		if got := s.Sample(&scriptedRand{floats: []float64{tc.draw}}); got != tc.want {
			t.Errorf("Sample(%v) = %s, want %s", tc.draw, got, tc.want)
		}
	}
}

func TestCategoricalTaskSampler_FallsBackToIdle(t *testing.T) {
	s := &CategoricalTaskSampler{Buckets: []TaskWeight{
		{Task: model.TaskVideoStreaming, Probability: 0.3},
	}}
	if got := s.Sample(&scriptedRand{floats: []float64{0.99}}); got != model.TaskIdleMonitoring {
		t.Fatalf("unmatched draw = %s, want idle fallback", got)
	}
}

func TestCategoricalTaskSampler_Distribution(t *testing.T) {
	s := DefaultTaskSampler()
	rng := NewSeededRand(42)

	const n = 20000
	counts := map[model.Task]int{}
	for i := 0; i < n; i++ {
		counts[s.Sample(rng)]++
	}
	want := map[model.Task]float64{
		model.TaskIdleMonitoring: 0.6,
		model.TaskDataBurstAlert: 0.3,
		model.TaskVideoStreaming: 0.1,
	}
	for task, p := range want {
		got := float64(counts[task]) / n
		if got < p-0.03 || got > p+0.03 {
			t.Errorf("%s frequency = %.3f, want about %.2f", task, got, p)
		}
	}
}
