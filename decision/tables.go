package decision

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/iot-netselect/model"
)

// Penalty scaling and payload constants used by the default model.
const (
	BandwidthPenaltyPerMbps = 50.0
	LatencyPenaltyPerMs     = 2.0

	// HardPenalty is returned when a required network is unavailable or
	// when the accumulated penalty exceeds SeverePenaltyThreshold.
	HardPenalty            = 1000.0
	SeverePenaltyThreshold = 500.0

	// FallbackPayloadKB is used for tasks without a payload estimate.
	FallbackPayloadKB = 10.0

	weightSumTolerance = 1e-3
)

// ErrInvalidTables indicates the weight or requirement tables are incomplete
// or inconsistent.
var ErrInvalidTables = errors.New("invalid decision tables")

// Weights is the (energy, QoS) weight pair of one task. The pair sums to 1.
type Weights struct {
	Energy float64 `json:"w_energy" yaml:"w_energy"`
	QoS    float64 `json:"w_qos" yaml:"w_qos"`
}

// QoSRequirement is the minimum service level a task expects.
type QoSRequirement struct {
	MinBandwidth    float64 `json:"min_bandwidth" yaml:"min_bandwidth"` // Mbps
	MaxLatency      float64 `json:"max_latency" yaml:"max_latency"`     // ms
	MustBeAvailable bool    `json:"must_be_available" yaml:"must_be_available"`
}

// Tables groups the per-task configuration data of the cost model.
type Tables struct {
	Weights      map[model.Task]Weights
	Requirements map[model.Task]QoSRequirement
	PayloadKB    map[model.Task]float64
}

// DefaultTables returns a fresh copy of the built-in tables. Idle monitoring
// favours energy; alerts and streaming favour QoS.
func DefaultTables() Tables {
	return Tables{
		Weights: map[model.Task]Weights{
			model.TaskIdleMonitoring: {Energy: 0.8, QoS: 0.2},
			model.TaskDataBurstAlert: {Energy: 0.3, QoS: 0.7},
			model.TaskVideoStreaming: {Energy: 0.4, QoS: 0.6},
		},
		Requirements: map[model.Task]QoSRequirement{
			model.TaskIdleMonitoring: {MinBandwidth: 0.1, MaxLatency: 1000, MustBeAvailable: true},
			model.TaskDataBurstAlert: {MinBandwidth: 5.0, MaxLatency: 100, MustBeAvailable: true},
			model.TaskVideoStreaming: {MinBandwidth: 10.0, MaxLatency: 200, MustBeAvailable: true},
		},
		PayloadKB: map[model.Task]float64{
			model.TaskIdleMonitoring: 1.0,    // sensor reading
			model.TaskDataBurstAlert: 50.0,   // alert bundle
			model.TaskVideoStreaming: 1000.0, // one video chunk
		},
	}
}

// Validate checks that every known task has a weight pair summing to 1
// and a QoS requirement.
func (t Tables) Validate() error {
	for _, task := range model.Tasks() {
		w, ok := t.Weights[task]
		if !ok {
			return fmt.Errorf("%w: no weights for %s", ErrInvalidTables, task)
		}
		if w.Energy < 0 || w.QoS < 0 {
			return fmt.Errorf("%w: negative weight for %s", ErrInvalidTables, task)
		}
		if sum := w.Energy + w.QoS; math.Abs(sum-1.0) > weightSumTolerance {
			return fmt.Errorf("%w: weights for %s sum to %.4f", ErrInvalidTables, task, sum)
		}
		if _, ok := t.Requirements[task]; !ok {
			return fmt.Errorf("%w: no QoS requirement for %s", ErrInvalidTables, task)
		}
	}
	for task, kb := range t.PayloadKB {
		if kb <= 0 {
			return fmt.Errorf("%w: payload for %s must be > 0", ErrInvalidTables, task)
		}
	}
	return nil
}

func (t Tables) payloadKB(task model.Task) float64 {
	if kb, ok := t.PayloadKB[task]; ok {
		return kb
	}
	return FallbackPayloadKB
}
