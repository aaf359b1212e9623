package decision

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/model"
)

var testConfigs = map[string]model.NetworkConfig{
	"Wi-Fi": {Name: "Wi-Fi", EnergyTx: 0.5, EnergyIdle: 10, EnergyWakeup: 2},
	"5G":    {Name: "5G", EnergyTx: 1.2, EnergyIdle: 15, EnergyWakeup: 5},
	"BLE":   {Name: "BLE", EnergyTx: 0.1, EnergyIdle: 2, EnergyWakeup: 0.5},
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func newTestModel(t *testing.T, opts ...Option) *Model {
	t.Helper()
	m, err := NewModel(opts...)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	tables := DefaultTables()
	for _, task := range model.Tasks() {
		w, ok := tables.Weights[task]
		if !ok {
			t.Fatalf("no weights for %s", task)
		}
		if math.Abs(w.Energy+w.QoS-1.0) > 1e-3 {
			t.Errorf("%s weights sum to %v", task, w.Energy+w.QoS)
		}
		if _, ok := tables.Requirements[task]; !ok {
			t.Errorf("no requirement for %s", task)
		}
	}
	if err := tables.Validate(); err != nil {
		t.Fatalf("DefaultTables().Validate() = %v", err)
	}
}

func TestTablesValidateRejectsBadWeights(t *testing.T) {
	tables := DefaultTables()
	tables.Weights[model.TaskVideoStreaming] = Weights{Energy: 0.5, QoS: 0.6}
	if err := tables.Validate(); !errors.Is(err, ErrInvalidTables) {
		t.Fatalf("Validate() = %v, want ErrInvalidTables", err)
	}

	tables = DefaultTables()
	delete(tables.Requirements, model.TaskIdleMonitoring)
	if _, err := NewModel(WithTables(tables)); !errors.Is(err, ErrInvalidTables) {
		t.Fatalf("NewModel with missing requirement = %v, want ErrInvalidTables", err)
	}
}

func TestCalculateEnergyCost(t *testing.T) {
	wifi := testConfigs["Wi-Fi"]
	state := model.NetworkState{Name: "Wi-Fi", Bandwidth: 50, Latency: 10, IsAvailable: true}

	cases := []struct {
		task model.Task
		want float64
	}{
		{model.TaskIdleMonitoring, 10 + 1*0.5 + 2},
		{model.TaskDataBurstAlert, 10 + 50*0.5 + 2},
		{model.TaskVideoStreaming, 10 + 1000*0.5 + 2},
		{model.Task("UNKNOWN"), 10 + FallbackPayloadKB*0.5 + 2},
	}
	for _, tc := range cases {
		if got := CalculateEnergyCost(wifi, state, tc.task); !approx(got, tc.want) {
			t.Errorf("CalculateEnergyCost(%s) = %v, want %v", tc.task, got, tc.want)
		}
	}
}

func TestEnergyCostIsPositive(t *testing.T) {
	for _, cfg := range testConfigs {
		for _, task := range model.Tasks() {
			if got := CalculateEnergyCost(cfg, model.NetworkState{}, task); got <= 0 {
				t.Errorf("energy cost for %s/%s = %v, want > 0", cfg.Name, task, got)
			}
		}
	}
}

func TestQoSPenaltyUnavailableIsHard(t *testing.T) {
	states := []model.NetworkState{
		{Name: "a", Bandwidth: 1000, Latency: 1, IsAvailable: false},
		{Name: "b", Bandwidth: 0.01, Latency: 5000, IsAvailable: false},
	}
	for _, s := range states {
		for _, task := range model.Tasks() {
			if got := CalculateQoSPenalty(s, task); got != HardPenalty {
				t.Errorf("penalty(%+v, %s) = %v, want %v", s, task, got, HardPenalty)
			}
		}
	}
}

func TestQoSPenaltyZeroWhenSatisfied(t *testing.T) {
	for task, req := range DefaultTables().Requirements {
		s := model.NetworkState{Name: "ok", Bandwidth: req.MinBandwidth, Latency: int(req.MaxLatency), IsAvailable: true}
		if got := CalculateQoSPenalty(s, task); got != 0 {
			t.Errorf("penalty at exact requirement for %s = %v, want 0", task, got)
		}
	}
}

func TestQoSPenaltyAccumulates(t *testing.T) {
	// burst: min 5 Mbps, max 100 ms
	s := model.NetworkState{Name: "slow", Bandwidth: 3, Latency: 150, IsAvailable: true}
	want := 2*BandwidthPenaltyPerMbps + 50*LatencyPenaltyPerMs // 100 + 100
	if got := CalculateQoSPenalty(s, model.TaskDataBurstAlert); !approx(got, want) {
		t.Fatalf("penalty = %v, want %v", got, want)
	}
}

func TestQoSPenaltyClampsAboveThreshold(t *testing.T) {
	// raw = 300 ms excess * 2 = 600 -> clamp to 1000
	s := model.NetworkState{Name: "laggy", Bandwidth: 10, Latency: 400, IsAvailable: true}
	if got := CalculateQoSPenalty(s, model.TaskDataBurstAlert); got != HardPenalty {
		t.Fatalf("penalty = %v, want %v", got, HardPenalty)
	}

	// raw = exactly 500 stays 500
	s = model.NetworkState{Name: "edge", Bandwidth: 10, Latency: 350, IsAvailable: true}
	if got := CalculateQoSPenalty(s, model.TaskDataBurstAlert); got != SeverePenaltyThreshold {
		t.Fatalf("penalty at threshold = %v, want %v", got, SeverePenaltyThreshold)
	}
}

func TestQoSPenaltyNeverInClampGap(t *testing.T) {
	for bw := 0.1; bw <= 20; bw += 0.7 {
		for lat := 1; lat <= 1500; lat += 37 {
			for _, task := range model.Tasks() {
				p := CalculateQoSPenalty(model.NetworkState{Name: "x", Bandwidth: bw, Latency: lat, IsAvailable: true}, task)
				if p > SeverePenaltyThreshold && p < HardPenalty {
					t.Fatalf("penalty %v in clamp gap for bw=%v lat=%v task=%s", p, bw, lat, task)
				}
				if p < 0 || p > HardPenalty {
					t.Fatalf("penalty %v out of range", p)
				}
			}
		}
	}
}

func TestQoSPenaltyUnknownTaskIsZero(t *testing.T) {
	s := model.NetworkState{Name: "x", Bandwidth: 0.01, Latency: 9999, IsAvailable: false}
	if got := CalculateQoSPenalty(s, model.Task("UNKNOWN")); got != 0 {
		t.Fatalf("penalty for unknown task = %v, want 0", got)
	}
}

func TestCalculateCost(t *testing.T) {
	ble := testConfigs["BLE"]
	state := model.NetworkState{Name: "BLE", Bandwidth: 1.0, Latency: 100, IsAvailable: true}

	got, err := CalculateCost(state, ble, model.TaskIdleMonitoring)
	if err != nil {
		t.Fatalf("CalculateCost: %v", err)
	}
	// energy = 2 + 0.1 + 0.5 = 2.6, penalty = 0
	if want := 0.8 * 2.6; !approx(got, want) {
		t.Fatalf("cost = %v, want %v", got, want)
	}

	// BLE for streaming: bandwidth deficit 9 Mbps -> 450 penalty
	got, err = CalculateCost(state, ble, model.TaskVideoStreaming)
	if err != nil {
		t.Fatalf("CalculateCost: %v", err)
	}
	energy := 2 + 1000*0.1 + 0.5
	if want := 0.4*energy + 0.6*450; !approx(got, want) {
		t.Fatalf("streaming cost = %v, want %v", got, want)
	}
}

func TestCalculateCostInvalidTask(t *testing.T) {
	_, err := CalculateCost(model.NetworkState{Name: "x", Bandwidth: 1, Latency: 1}, testConfigs["BLE"], model.Task("GAMING"))
	if !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("err = %v, want ErrInvalidTask", err)
	}
}

func TestSelectBestNetworkTieKeepsFirst(t *testing.T) {
	// Idle costs: 0.8 * (idle + tx + wakeup) with zero penalty.
	configs := map[string]model.NetworkConfig{
		"A": {Name: "A", EnergyTx: 1.75, EnergyIdle: 2, EnergyWakeup: 0},  // 3.0
		"B": {Name: "B", EnergyTx: 0.875, EnergyIdle: 1, EnergyWakeup: 0}, // 1.5
		"C": {Name: "C", EnergyTx: 0.875, EnergyIdle: 1, EnergyWakeup: 0}, // 1.5
	}
	candidates := []model.NetworkState{
		{Name: "A", Bandwidth: 10, Latency: 10, IsAvailable: true},
		{Name: "B", Bandwidth: 10, Latency: 10, IsAvailable: true},
		{Name: "C", Bandwidth: 10, Latency: 10, IsAvailable: true},
	}

	best, cost, err := SelectBestNetwork(candidates, configs, model.TaskIdleMonitoring)
	if err != nil {
		t.Fatalf("SelectBestNetwork: %v", err)
	}
	if best.Name != "B" {
		t.Fatalf("selected %q, want B", best.Name)
	}
	if math.Abs(cost-1.5) > 1e-9 {
		t.Fatalf("cost = %v, want 1.5", cost)
	}
}

func TestSelectBestNetworkEmpty(t *testing.T) {
	_, _, err := SelectBestNetwork(nil, testConfigs, model.TaskIdleMonitoring)
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("err = %v, want ErrNoCandidates", err)
	}
}

func TestSelectBestNetworkNoMatch(t *testing.T) {
	candidates := []model.NetworkState{
		{Name: "LoRa", Bandwidth: 0.05, Latency: 500, IsAvailable: true},
		{Name: "Zigbee", Bandwidth: 0.2, Latency: 30, IsAvailable: true},
	}
	_, _, err := SelectBestNetwork(candidates, testConfigs, model.TaskIdleMonitoring)
	if !errors.Is(err, ErrNoMatchingNetwork) {
		t.Fatalf("err = %v, want ErrNoMatchingNetwork", err)
	}
	if errors.Is(err, ErrNoCandidates) {
		t.Fatalf("no-match error must be distinct from empty-candidates")
	}
}

type fakeRecorder struct {
	decisions []string
	skipped   []string
}

func (f *fakeRecorder) ObserveDecision(task model.Task, network string, cost float64) {
	f.decisions = append(f.decisions, string(task)+"/"+network)
}

func (f *fakeRecorder) ObserveSkippedNetwork(network string) {
	f.skipped = append(f.skipped, network)
}

func TestEvaluateSkipsMissingConfigWithWarning(t *testing.T) {
	var buf bytes.Buffer
	rec := &fakeRecorder{}
	m := newTestModel(t,
		WithLogger(logging.New(logging.Config{Format: "json", Output: &buf})),
		WithRecorder(rec),
	)

	candidates := []model.NetworkState{
		{Name: "LoRa", Bandwidth: 0.05, Latency: 500, IsAvailable: true},
		{Name: "Wi-Fi", Bandwidth: 50, Latency: 15, IsAvailable: true},
		{Name: "BLE", Bandwidth: 1, Latency: 100, IsAvailable: true},
	}
	d, err := m.Evaluate(context.Background(), candidates, testConfigs, model.TaskIdleMonitoring)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Selected.Name != "BLE" {
		t.Fatalf("selected %q, want BLE for idle monitoring", d.Selected.Name)
	}
	if len(d.Evaluated) != 2 {
		t.Fatalf("evaluated %d networks, want 2", len(d.Evaluated))
	}
	if len(d.Skipped) != 1 || d.Skipped[0] != "LoRa" {
		t.Fatalf("skipped = %v, want [LoRa]", d.Skipped)
	}
	if !strings.Contains(buf.String(), "LoRa") {
		t.Fatalf("expected warning mentioning LoRa, got %q", buf.String())
	}
	wantSpread := d.Evaluated[0].TotalCost - d.Evaluated[1].TotalCost
	if !approx(d.Spread, wantSpread) {
		t.Fatalf("spread = %v, want %v", d.Spread, wantSpread)
	}
	if len(rec.decisions) != 1 || rec.decisions[0] != "IDLE_MONITORING/BLE" {
		t.Fatalf("recorded decisions = %v", rec.decisions)
	}
	if len(rec.skipped) != 1 || rec.skipped[0] != "LoRa" {
		t.Fatalf("recorded skips = %v", rec.skipped)
	}
}

func TestSelectionPrefersQoSForBurst(t *testing.T) {
	candidates := []model.NetworkState{
		{Name: "Wi-Fi", Bandwidth: 50, Latency: 15, IsAvailable: true},
		{Name: "5G", Bandwidth: 100, Latency: 25, IsAvailable: true},
		{Name: "BLE", Bandwidth: 0.5, Latency: 300, IsAvailable: true},
	}
	d, err := Default().Evaluate(context.Background(), candidates, testConfigs, model.TaskDataBurstAlert)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Selected.Name != "Wi-Fi" {
		t.Fatalf("selected %q, want Wi-Fi", d.Selected.Name)
	}
	for _, nc := range d.Evaluated {
		if nc.Network.Name == "BLE" && nc.TotalCost <= 500 {
			t.Fatalf("BLE cost %v should exceed 500 for a burst alert", nc.TotalCost)
		}
	}
}

func TestEvaluateInvalidTask(t *testing.T) {
	candidates := []model.NetworkState{{Name: "Wi-Fi", Bandwidth: 50, Latency: 15, IsAvailable: true}}
	_, err := Default().Evaluate(context.Background(), candidates, testConfigs, model.Task(""))
	if !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("err = %v, want ErrInvalidTask", err)
	}
}

func TestRejectsNonPositiveQoS(t *testing.T) {
	m, err := NewModel()
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	good := model.NetworkState{Name: "Wi-Fi", Bandwidth: 50, Latency: 15, IsAvailable: true}

	tests := []struct {
		name  string
		state model.NetworkState
	}{
		{"zero bandwidth", model.NetworkState{Name: "BLE", Bandwidth: 0, Latency: 30, IsAvailable: true}},
		{"negative bandwidth", model.NetworkState{Name: "BLE", Bandwidth: -5, Latency: 30, IsAvailable: true}},
		{"zero latency", model.NetworkState{Name: "BLE", Bandwidth: 1, Latency: 0, IsAvailable: true}},
		{"negative latency", model.NetworkState{Name: "BLE", Bandwidth: 1, Latency: -1, IsAvailable: true}},
		// No config, but still rejected rather than skipped.
		{"unconfigured", model.NetworkState{Name: "Zigbee", Bandwidth: 0, Latency: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Evaluate(context.Background(), []model.NetworkState{good, tc.state}, testConfigs, model.TaskIdleMonitoring)
			if !errors.Is(err, model.ErrInvalidNetworkState) {
				t.Fatalf("Evaluate err = %v, want ErrInvalidNetworkState", err)
			}
			if cfg, ok := testConfigs[tc.state.Name]; ok {
				if _, err := m.CalculateCost(tc.state, cfg, model.TaskIdleMonitoring); !errors.Is(err, model.ErrInvalidNetworkState) {
					t.Fatalf("CalculateCost err = %v, want ErrInvalidNetworkState", err)
				}
			}
		})
	}
}
