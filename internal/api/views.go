// Package api holds the response documents shared by the HTTP and gRPC
// surfaces so both return identical JSON.
package api

import (
	"fmt"

	"github.com/signalsfoundry/iot-netselect/core"
	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/model"
)

const (
	ServiceTitle = "IoT Network Selection API"
	Version      = "1.0.0"
)

// StepView is the result of one simulator step.
type StepView struct {
	SessionID   string            `json:"session_id"`
	StepNumber  int               `json:"step_number"`
	DeviceState model.DeviceState `json:"device_state"`
	Info        NetworksInfo      `json:"simulation_info"`
}

// NetworksInfo summarises the reachable set.
type NetworksInfo struct {
	Count int      `json:"networks_count"`
	Names []string `json:"networks_list"`
}

// NewStepView renders a step snapshot.
func NewStepView(sessionID string, step int, st model.DeviceState) StepView {
	names := st.NetworkNames()
	return StepView{
		SessionID:   sessionID,
		StepNumber:  step,
		DeviceState: st,
		Info:        NetworksInfo{Count: len(names), Names: names},
	}
}

// StepWithDecisionView pairs a step with the selection made for it.
type StepWithDecisionView struct {
	SessionID  string           `json:"session_id"`
	StepNumber int              `json:"step_number"`
	Simulation SimulationBrief  `json:"simulation"`
	Decision   *decision.Report `json:"decision"`
	Result     IntegratedResult `json:"integrated_result"`
}

// SimulationBrief is the compact device summary used alongside decisions.
type SimulationBrief struct {
	Position model.Position `json:"device_position"`
	Task     model.Task     `json:"current_task"`
	Count    int            `json:"available_networks_count"`
	Networks []string       `json:"networks"`
}

// IntegratedResult states whether a network was selected.
type IntegratedResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewStepWithDecisionView renders res; a nil decision means nothing was
// reachable.
func NewStepWithDecisionView(sessionID string, res core.StepResult) StepWithDecisionView {
	names := res.State.NetworkNames()
	v := StepWithDecisionView{
		SessionID:  sessionID,
		StepNumber: res.Step,
		Simulation: SimulationBrief{
			Position: res.State.Position,
			Task:     res.State.CurrentTask,
			Count:    len(names),
			Networks: names,
		},
		Result: IntegratedResult{Message: "No networks available"},
	}
	if res.Decision != nil {
		r := decision.NewReport(res.State, res.Decision)
		v.Decision = &r
		v.Result = IntegratedResult{Success: true, Message: "Network selected successfully"}
	}
	return v
}

// ResetView is returned after a reset.
type ResetView struct {
	SessionID   string               `json:"session_id"`
	Message     string               `json:"message"`
	NewPosition model.Position       `json:"new_position"`
	Stats       core.SimulationStats `json:"system_status"`
}

// NewResetView renders a reset outcome.
func NewResetView(sessionID string, stats core.SimulationStats) ResetView {
	return ResetView{
		SessionID:   sessionID,
		Message:     "Simulation reset successfully",
		NewPosition: stats.Position,
		Stats:       stats,
	}
}

// CostRequest asks for the cost of one network for one task.
type CostRequest struct {
	NetworkState model.NetworkState `json:"network_state"`
	Task         model.Task         `json:"task"`
}

// CostView is the breakdown of one network's cost.
type CostView struct {
	Network    string     `json:"network"`
	Task       model.Task `json:"task"`
	EnergyCost float64    `json:"energy_cost"`
	QoSPenalty float64    `json:"qos_penalty"`
	TotalCost  float64    `json:"total_cost"`
}

// CalculateCost scores req against configs with m.
func CalculateCost(m *decision.Model, configs map[string]model.NetworkConfig, req CostRequest) (CostView, error) {
	cfg, ok := configs[req.NetworkState.Name]
	if !ok {
		return CostView{}, fmt.Errorf("%w: %q", decision.ErrNoMatchingNetwork, req.NetworkState.Name)
	}
	total, err := m.CalculateCost(req.NetworkState, cfg, req.Task)
	if err != nil {
		return CostView{}, err
	}
	return CostView{
		Network:    cfg.Name,
		Task:       req.Task,
		EnergyCost: decision.Round2(m.CalculateEnergyCost(cfg, req.NetworkState, req.Task)),
		QoSPenalty: decision.Round2(m.CalculateQoSPenalty(req.NetworkState, req.Task)),
		TotalCost:  decision.Round2(total),
	}, nil
}

// StatusView is the system status document.
type StatusView struct {
	SystemStatus   string                         `json:"system_status"`
	Simulation     core.SimulationStats           `json:"simulation_engine"`
	NetworkConfigs map[string]model.NetworkConfig `json:"network_configs"`
}

// BaseStationView is one station on the map.
type BaseStationView struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position model.Position `json:"position"`
}

// MapView is everything needed to draw the map.
type MapView struct {
	MapSize      core.MapSize      `json:"map_size"`
	BaseStations []BaseStationView `json:"base_stations"`
	DeviceState  model.DeviceState `json:"device_state"`
	Step         int               `json:"simulation_step"`
}

// NewMapView lists stations grouped by network type in config order.
func NewMapView(se *core.SimulationEngine) MapView {
	stations := se.BaseStations()
	var views []BaseStationView
	for _, cfg := range se.NetworkConfigList() {
		for i, pos := range stations[cfg.Name] {
			views = append(views, BaseStationView{
				ID:       fmt.Sprintf("%s_%d", cfg.Name, i),
				Type:     cfg.Name,
				Position: pos,
			})
		}
	}
	return MapView{
		MapSize:      se.MapSize(),
		BaseStations: views,
		DeviceState:  se.DeviceState(),
		Step:         se.Step(),
	}
}
