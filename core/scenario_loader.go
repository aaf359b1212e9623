// core/scenario_loader.go
package core

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/iot-netselect/model"
)

// ErrInvalidScenario is returned when a scenario document is malformed or
// inconsistent.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario describes a map and the networks deployed on it. JSON documents
// are accepted too since JSON is a YAML subset.
type Scenario struct {
	Map      MapSize       `yaml:"map" json:"map"`
	StepSize int           `yaml:"step_size,omitempty" json:"step_size,omitempty"`
	Networks []NetworkSpec `yaml:"networks" json:"networks"`
}

// NetworkSpec is one network type: its energy figures, radio profile and
// station coordinates.
type NetworkSpec struct {
	model.NetworkConfig `yaml:",inline"`
	Radio               RadioProfile     `yaml:"radio" json:"radio"`
	Stations            []model.Position `yaml:"stations" json:"stations"`
}

// DefaultScenario returns the built-in 1000x1000 layout.
func DefaultScenario() *Scenario {
	profiles := DefaultRadioProfiles()
	stations := DefaultBaseStations()
	sc := &Scenario{
		Map:      MapSize{Width: 1000, Height: 1000},
		StepSize: DefaultStepSize,
	}
	for _, cfg := range DefaultNetworkConfigs() {
		sc.Networks = append(sc.Networks, NetworkSpec{
			NetworkConfig: cfg,
			Radio:         profiles[cfg.Name],
			Stations:      stations[cfg.Name],
		})
	}
	return sc
}

// LoadScenario decodes and validates a scenario document from r.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidScenario, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadScenarioFile opens path and calls LoadScenario.
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return LoadScenario(f)
}

// Validate checks map bounds, network uniqueness and that every station
// lies on the map.
func (sc *Scenario) Validate() error {
	if sc.Map.Width <= 0 || sc.Map.Height <= 0 {
		return fmt.Errorf("%w: map size %dx%d", ErrInvalidScenario, sc.Map.Width, sc.Map.Height)
	}
	if sc.StepSize < 0 {
		return fmt.Errorf("%w: negative step size", ErrInvalidScenario)
	}
	if len(sc.Networks) == 0 {
		return fmt.Errorf("%w: no networks", ErrInvalidScenario)
	}
	seen := make(map[string]struct{}, len(sc.Networks))
	for _, n := range sc.Networks {
		if err := n.NetworkConfig.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
		}
		if _, dup := seen[n.Name]; dup {
			return fmt.Errorf("%w: duplicate network %q", ErrInvalidScenario, n.Name)
		}
		seen[n.Name] = struct{}{}

		if n.Radio.MaxRange <= 0 || n.Radio.PeakBandwidthMbps <= 0 || n.Radio.BestLatencyMs <= 0 {
			return fmt.Errorf("%w: network %q: radio profile must be positive", ErrInvalidScenario, n.Name)
		}
		for _, st := range n.Stations {
			if !sc.Map.Contains(st) {
				return fmt.Errorf("%w: network %q: station %s outside map", ErrInvalidScenario, n.Name, st)
			}
		}
	}
	return nil
}

// NetworkConfigs returns the energy table in document order.
func (sc *Scenario) NetworkConfigs() []model.NetworkConfig {
	out := make([]model.NetworkConfig, 0, len(sc.Networks))
	for _, n := range sc.Networks {
		out = append(out, n.NetworkConfig)
	}
	return out
}

// BaseStations returns the station layout keyed by network name.
func (sc *Scenario) BaseStations() map[string][]model.Position {
	out := make(map[string][]model.Position, len(sc.Networks))
	for _, n := range sc.Networks {
		out[n.Name] = append([]model.Position(nil), n.Stations...)
	}
	return out
}

// RadioProfiles returns the radio profiles keyed by network name.
func (sc *Scenario) RadioProfiles() map[string]RadioProfile {
	out := make(map[string]RadioProfile, len(sc.Networks))
	for _, n := range sc.Networks {
		out[n.Name] = n.Radio
	}
	return out
}
