package decision

import (
	"context"
	"testing"

	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/model"
)

func TestNewReport(t *testing.T) {
	m := newTestModel(t, WithLogger(logging.Noop()))
	state := model.DeviceState{
		Position:    model.Position{X: 110, Y: 100},
		CurrentTask: model.TaskVideoStreaming,
		AvailableNetworks: []model.NetworkState{
			{Name: "Wi-Fi", Bandwidth: 90.4, Latency: 6, IsAvailable: true},
			{Name: "5G", Bandwidth: 150, Latency: 20, IsAvailable: true},
			{Name: "LoRa", Bandwidth: 0.3, Latency: 400, IsAvailable: true},
		},
	}
	d, err := m.Evaluate(context.Background(), state.AvailableNetworks, testConfigs, state.CurrentTask)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	r := NewReport(state, d)
	if r.OptimalNetwork != d.Selected.Name {
		t.Fatalf("optimal = %s, want %s", r.OptimalNetwork, d.Selected.Name)
	}
	if r.OptimalCost != Round2(d.Cost) {
		t.Fatalf("optimal cost = %v, want %v", r.OptimalCost, Round2(d.Cost))
	}
	if r.Device.Position != state.Position || r.Device.CurrentTask != state.CurrentTask {
		t.Fatalf("device info = %+v", r.Device)
	}
	if len(r.AllNetworkCosts) != 2 || len(r.CostAnalysis) != 2 {
		t.Fatalf("costs = %v", r.AllNetworkCosts)
	}
	if r.Summary.NetworksEvaluated != 2 || r.Summary.Algorithm != Algorithm {
		t.Fatalf("summary = %+v", r.Summary)
	}
	if len(r.Summary.Skipped) != 1 || r.Summary.Skipped[0] != "LoRa" {
		t.Fatalf("skipped = %v", r.Summary.Skipped)
	}
	if r.Summary.CostDifference != Round2(d.Spread) {
		t.Fatalf("difference = %v, want %v", r.Summary.CostDifference, Round2(d.Spread))
	}
	for name, c := range r.AllNetworkCosts {
		if c != Round2(c) {
			t.Errorf("%s cost %v not rounded", name, c)
		}
	}
}

func TestNewReportSingleNetworkHasZeroDifference(t *testing.T) {
	m := newTestModel(t, WithLogger(logging.Noop()))
	state := model.DeviceState{
		CurrentTask:       model.TaskIdleMonitoring,
		AvailableNetworks: []model.NetworkState{{Name: "BLE", Bandwidth: 1, Latency: 30, IsAvailable: true}},
	}
	d, err := m.Evaluate(context.Background(), state.AvailableNetworks, testConfigs, state.CurrentTask)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := NewReport(state, d).Summary.CostDifference; got != 0 {
		t.Fatalf("difference = %v, want 0", got)
	}
}

func TestRound2(t *testing.T) {
	cases := map[float64]float64{1.234: 1.23, 1.236: 1.24, 1000: 1000, 0.004: 0}
	for in, want := range cases {
		if got := Round2(in); !approx(got, want) {
			t.Errorf("Round2(%v) = %v, want %v", in, got, want)
		}
	}
}
