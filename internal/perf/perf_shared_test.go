//go:build perf || perf_large

package perf

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/signalsfoundry/iot-netselect/core"
	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/kb"
	"github.com/signalsfoundry/iot-netselect/model"
)

type perfConfig struct {
	Candidates int // networks offered to one decision
	Steps      int // simulator steps per iteration
	Sessions   int // concurrent sessions
}

func benchmarkEvaluate(b *testing.B, cfg perfConfig) {
	ctx := context.Background()
	m, err := decision.NewModel()
	if err != nil {
		b.Fatalf("NewModel: %v", err)
	}

	candidates := make([]model.NetworkState, cfg.Candidates)
	configs := make(map[string]model.NetworkConfig, cfg.Candidates)
	for i := range candidates {
		name := fmt.Sprintf("net-%d", i)
		candidates[i] = model.NetworkState{
			Name:        name,
			Bandwidth:   float64(1 + i%200),
			Latency:     5 + i%300,
			IsAvailable: i%17 != 0,
		}
		configs[name] = model.NetworkConfig{
			Name:         name,
			EnergyTx:     0.1 + float64(i%10)/10,
			EnergyIdle:   2 + float64(i%15),
			EnergyWakeup: float64(i % 5),
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		task := model.Tasks()[i%3]
		if _, err := m.Evaluate(ctx, candidates, configs, task); err != nil {
			b.Fatalf("Evaluate: %v", err)
		}
	}
}

func benchmarkSteps(b *testing.B, cfg perfConfig) {
	ctx := context.Background()
	m, err := decision.NewModel()
	if err != nil {
		b.Fatalf("NewModel: %v", err)
	}
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		se, err := core.NewSimulationEngine(core.WithSeed(uint64(i)))
		if err != nil {
			b.Fatalf("NewSimulationEngine: %v", err)
		}
		b.StartTimer()
		for j := 0; j < cfg.Steps; j++ {
			if _, err := se.RunSimulationStepWithDecision(ctx, m); err != nil {
				b.Fatalf("step %d: %v", j, err)
			}
		}
	}
}

func benchmarkSessions(b *testing.B, cfg perfConfig) {
	ctx := context.Background()
	m, err := decision.NewModel()
	if err != nil {
		b.Fatalf("NewModel: %v", err)
	}
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		store := kb.NewKnowledgeBase(func() (*core.SimulationEngine, error) {
			return core.NewSimulationEngine(core.WithSeed(uint64(i)))
		})
		sessions := make([]*kb.Session, cfg.Sessions)
		for j := range sessions {
			s, err := store.CreateSession()
			if err != nil {
				b.Fatalf("CreateSession: %v", err)
			}
			sessions[j] = s
		}
		b.StartTimer()

		var wg sync.WaitGroup
		for _, s := range sessions {
			wg.Add(1)
			go func(s *kb.Session) {
				defer wg.Done()
				for j := 0; j < cfg.Steps; j++ {
					_, _ = s.StepWithDecision(ctx, m)
				}
			}(s)
		}
		wg.Wait()
	}
}
