package decision

import (
	"math"

	"github.com/signalsfoundry/iot-netselect/model"
)

// Algorithm identifies the scoring method in reports.
const Algorithm = "MCDM_Energy_QoS"

// Report is the client-facing summary of a Decision with costs rounded to
// two decimals.
type Report struct {
	OptimalNetwork  string                  `json:"optimal_network"`
	OptimalCost     float64                 `json:"optimal_cost"`
	Device          DeviceInfo              `json:"device_info"`
	AllNetworkCosts map[string]float64      `json:"all_network_costs"`
	CostAnalysis    map[string]CostAnalysis `json:"cost_analysis"`
	Summary         Summary                 `json:"decision_summary"`
}

// DeviceInfo echoes the device the decision was made for.
type DeviceInfo struct {
	Position    model.Position `json:"position"`
	CurrentTask model.Task     `json:"current_task"`
}

// CostAnalysis is the per-network breakdown.
type CostAnalysis struct {
	TotalCost  float64             `json:"total_cost"`
	EnergyCost float64             `json:"energy_cost"`
	QoSPenalty float64             `json:"qos_penalty"`
	Network    model.NetworkState  `json:"network_info"`
	Config     model.NetworkConfig `json:"config_info"`
}

// Summary aggregates the evaluation.
type Summary struct {
	NetworksEvaluated int      `json:"total_networks_evaluated"`
	CostDifference    float64  `json:"cost_difference"`
	Skipped           []string `json:"skipped_networks,omitempty"`
	Algorithm         string   `json:"algorithm"`
}

// NewReport renders d for the device in state.
func NewReport(state model.DeviceState, d *Decision) Report {
	r := Report{
		OptimalNetwork:  d.Selected.Name,
		OptimalCost:     Round2(d.Cost),
		Device:          DeviceInfo{Position: state.Position, CurrentTask: state.CurrentTask},
		AllNetworkCosts: make(map[string]float64, len(d.Evaluated)),
		CostAnalysis:    make(map[string]CostAnalysis, len(d.Evaluated)),
		Summary: Summary{
			NetworksEvaluated: len(d.Evaluated),
			Skipped:           d.Skipped,
			Algorithm:         Algorithm,
		},
	}
	for _, nc := range d.Evaluated {
		r.AllNetworkCosts[nc.Network.Name] = Round2(nc.TotalCost)
		r.CostAnalysis[nc.Network.Name] = CostAnalysis{
			TotalCost:  Round2(nc.TotalCost),
			EnergyCost: Round2(nc.EnergyCost),
			QoSPenalty: Round2(nc.QoSPenalty),
			Network:    nc.Network,
			Config:     nc.Config,
		}
	}
	if len(d.Evaluated) > 1 {
		r.Summary.CostDifference = Round2(d.Spread)
	}
	return r
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
