package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidNetworkConfig indicates a NetworkConfig failed validation.
	ErrInvalidNetworkConfig = errors.New("invalid network config")
	// ErrInvalidNetworkState indicates a NetworkState failed validation.
	ErrInvalidNetworkState = errors.New("invalid network state")
)

// NetworkConfig holds the static energy parameters of one network type.
// Created once per type at startup and never mutated afterwards.
type NetworkConfig struct {
	Name         string  `json:"name" yaml:"name"`
	EnergyTx     float64 `json:"energy_tx" yaml:"energy_tx"`         // mJ per KB transmitted
	EnergyIdle   float64 `json:"energy_idle" yaml:"energy_idle"`     // mW, used as a one-second dwell
	EnergyWakeup float64 `json:"energy_wakeup" yaml:"energy_wakeup"` // mJ, may be zero
}

// Validate checks the energy parameters are usable by the cost model.
func (c NetworkConfig) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidNetworkConfig)
	case c.EnergyTx <= 0:
		return fmt.Errorf("%w: %s: energy_tx must be > 0", ErrInvalidNetworkConfig, c.Name)
	case c.EnergyIdle <= 0:
		return fmt.Errorf("%w: %s: energy_idle must be > 0", ErrInvalidNetworkConfig, c.Name)
	case c.EnergyWakeup < 0:
		return fmt.Errorf("%w: %s: energy_wakeup must be >= 0", ErrInvalidNetworkConfig, c.Name)
	}
	return nil
}

// NetworkState is a dynamic observation of one network at one instant.
type NetworkState struct {
	Name        string  `json:"name"`
	Bandwidth   float64 `json:"bandwidth"` // Mbps
	Latency     int     `json:"latency"`   // ms
	IsAvailable bool    `json:"is_available"`
}

// Validate enforces strictly positive bandwidth and latency.
func (s NetworkState) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidNetworkState)
	case s.Bandwidth <= 0:
		return fmt.Errorf("%w: %s: bandwidth must be > 0", ErrInvalidNetworkState, s.Name)
	case s.Latency <= 0:
		return fmt.Errorf("%w: %s: latency must be > 0", ErrInvalidNetworkState, s.Name)
	}
	return nil
}

// Position is an integer coordinate on the simulation map.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (p Position) String() string { return fmt.Sprintf("(%d, %d)", p.X, p.Y) }

// DeviceState is the device's position, task and reachable networks.
// AvailableNetworks is the reachable subset only; names are unique by
// convention but this is not enforced.
type DeviceState struct {
	Position          Position       `json:"position"`
	CurrentTask       Task           `json:"current_task"`
	AvailableNetworks []NetworkState `json:"available_networks"`
}

// Clone returns a copy that shares no slice storage with d.
func (d DeviceState) Clone() DeviceState {
	out := d
	out.AvailableNetworks = make([]NetworkState, len(d.AvailableNetworks))
	copy(out.AvailableNetworks, d.AvailableNetworks)
	return out
}

// NetworkNames lists the names of the available networks in order.
func (d DeviceState) NetworkNames() []string {
	names := make([]string, 0, len(d.AvailableNetworks))
	for _, n := range d.AvailableNetworks {
		names = append(names, n.Name)
	}
	return names
}
