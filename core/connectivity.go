package core

import (
	"math"

	"github.com/signalsfoundry/iot-netselect/model"
)

// QoS synthesis constants.
const (
	// UnreachableLatencyMs is reported for networks out of range.
	UnreachableLatencyMs = 9999

	minBandwidthMbps = 0.1
	minLatencyMs     = 5

	// At the edge of coverage bandwidth falls to 10% of peak and latency
	// grows to 10x the best case.
	edgeBandwidthFraction = 0.1
	edgeLatencyFactor     = 10.0

	// Multiplicative jitter is drawn from [1-noiseSpread, 1+noiseSpread).
	noiseSpread = 0.2
)

// QoS is a synthesized bandwidth/latency observation. A zero Bandwidth
// means the network is unreachable.
type QoS struct {
	Bandwidth float64 `json:"bandwidth"` // Mbps
	Latency   int     `json:"latency"`   // ms
}

// Reachable reports whether the observation carries any signal.
func (q QoS) Reachable() bool { return q.Bandwidth > 0 }

var unreachable = QoS{Bandwidth: 0, Latency: UnreachableLatencyMs}

// NoiselessQoS linearly interpolates bandwidth and latency for a device at
// distance from a station of the given profile. ok is false when the
// distance exceeds the profile's range.
func NoiselessQoS(p RadioProfile, distance float64) (bandwidth, latency float64, ok bool) {
	if p.MaxRange <= 0 || distance > p.MaxRange {
		return 0, UnreachableLatencyMs, false
	}
	ratio := distance / p.MaxRange
	bandwidth = p.PeakBandwidthMbps * (1.0 - (1.0-edgeBandwidthFraction)*ratio)
	latency = p.BestLatencyMs * (1.0 + (edgeLatencyFactor-1.0)*ratio)
	return bandwidth, latency, true
}

// QoSByDistance synthesizes the QoS a device at device would see from a
// station at station for networkType. Successive calls at the same
// position differ because independent jitter is applied to both values.
func (se *SimulationEngine) QoSByDistance(device, station model.Position, networkType string) QoS {
	profile, ok := se.profiles[networkType]
	if !ok {
		return unreachable
	}
	bw, lat, ok := NoiselessQoS(profile, Distance(device, station))
	if !ok {
		return unreachable
	}

	bw *= se.jitter()
	lat *= se.jitter()

	return QoS{
		Bandwidth: math.Max(minBandwidthMbps, bw),
		Latency:   max(minLatencyMs, int(lat)),
	}
}

func (se *SimulationEngine) jitter() float64 {
	return 1.0 - noiseSpread + 2*noiseSpread*se.rng.Float64()
}

// FindBestBaseStation returns the nearest station of networkType and the QoS
// synthesized for it. ok is false when the type has no stations.
func (se *SimulationEngine) FindBestBaseStation(device model.Position, networkType string) (model.Position, QoS, bool) {
	stations := se.stations[networkType]
	if len(stations) == 0 {
		return model.Position{}, unreachable, false
	}

	best := stations[0]
	minDist := Distance(device, best)
	for _, st := range stations[1:] {
		if d := Distance(device, st); d < minDist {
			minDist = d
			best = st
		}
	}
	return best, se.QoSByDistance(device, best, networkType), true
}

// reachableNetworks lists every configured network whose nearest station
// is in range of pos. Out-of-range networks are omitted, not flagged.
func (se *SimulationEngine) reachableNetworks(pos model.Position) []model.NetworkState {
	out := make([]model.NetworkState, 0, len(se.configOrder))
	for _, name := range se.configOrder {
		_, qos, ok := se.FindBestBaseStation(pos, name)
		if !ok || !qos.Reachable() {
			continue
		}
		out = append(out, model.NetworkState{
			Name:        name,
			Bandwidth:   roundTo(qos.Bandwidth, 1),
			Latency:     qos.Latency,
			IsAvailable: true,
		})
	}
	return out
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
