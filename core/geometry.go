package core

import (
	"math"

	"github.com/signalsfoundry/iot-netselect/model"
)

// MapSize is the width and height of the simulation map in map units.
type MapSize struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Contains reports whether p lies on the map.
func (m MapSize) Contains(p model.Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.Width && p.Y < m.Height
}

// Clamp moves p onto the map, keeping each axis within [0, size-1].
func (m MapSize) Clamp(p model.Position) model.Position {
	return model.Position{
		X: clampInt(p.X, 0, m.Width-1),
		Y: clampInt(p.Y, 0, m.Height-1),
	}
}

// Distance returns the Euclidean distance between two map positions.
func Distance(a, b model.Position) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
