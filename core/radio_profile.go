package core

import "github.com/signalsfoundry/iot-netselect/model"

// Network type names used by the built-in scenario.
const (
	NetworkWiFi = "Wi-Fi"
	Network5G   = "5G"
	NetworkBLE  = "BLE"
)

// RadioProfile describes how a network type's service degrades with
// distance from its base station.
type RadioProfile struct {
	// MaxRange is the coverage radius in map units. Beyond it the
	// network is unreachable.
	MaxRange float64 `json:"max_range" yaml:"max_range"`
	// PeakBandwidthMbps is the bandwidth at distance zero.
	PeakBandwidthMbps float64 `json:"peak_bandwidth" yaml:"peak_bandwidth"`
	// BestLatencyMs is the latency at distance zero.
	BestLatencyMs float64 `json:"best_latency" yaml:"best_latency"`
}

// DefaultRadioProfiles returns the calibration used by the built-in scenario.
func DefaultRadioProfiles() map[string]RadioProfile {
	return map[string]RadioProfile{
		NetworkWiFi: {MaxRange: 100, PeakBandwidthMbps: 100, BestLatencyMs: 5},
		Network5G:   {MaxRange: 500, PeakBandwidthMbps: 200, BestLatencyMs: 10},
		NetworkBLE:  {MaxRange: 50, PeakBandwidthMbps: 2, BestLatencyMs: 20},
	}
}

// DefaultNetworkConfigs returns the energy parameters of the built-in
// networks in their canonical order.
func DefaultNetworkConfigs() []model.NetworkConfig {
	return []model.NetworkConfig{
		{Name: NetworkWiFi, EnergyTx: 0.5, EnergyIdle: 10.0, EnergyWakeup: 2.0},
		{Name: Network5G, EnergyTx: 1.2, EnergyIdle: 15.0, EnergyWakeup: 5.0},
		{Name: NetworkBLE, EnergyTx: 0.1, EnergyIdle: 2.0, EnergyWakeup: 0.5},
	}
}

// DefaultBaseStations returns the fixed station layout of the built-in
// 1000x1000 map.
func DefaultBaseStations() map[string][]model.Position {
	return map[string][]model.Position{
		NetworkWiFi: {
			{X: 100, Y: 100}, // residential
			{X: 300, Y: 250}, // office
			{X: 600, Y: 400}, // cafe
			{X: 800, Y: 750}, // mall
		},
		Network5G: {
			{X: 200, Y: 200}, // city centre
			{X: 500, Y: 300}, // industrial park
			{X: 700, Y: 600}, // airport
			{X: 900, Y: 100}, // suburbs
		},
		NetworkBLE: {
			{X: 150, Y: 150}, // shop
			{X: 350, Y: 350}, // museum
			{X: 550, Y: 550}, // hospital
			{X: 750, Y: 750}, // station
		},
	}
}
