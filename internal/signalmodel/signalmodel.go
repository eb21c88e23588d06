// Package signalmodel maps raw received-signal-strength readings and hardware
// addresses onto the coarse polar coordinates drawn by the radar view.
//
// None of these functions fail: every input is clamped so the outputs stay
// within their documented ranges regardless of how extreme the reading is.
package signalmodel

import "math"

const (
	// DefaultMaxDistance is the outer ring of the radar in metres.
	DefaultMaxDistance = 10.0

	// StrengthFloor and StrengthCeiling bound the RSSI range (dBm) that is
	// spread across the 0-100 strength scale.
	StrengthFloor   = -95
	StrengthCeiling = -35

	// referenceRSSI is the reading treated as one metre away, and
	// pathLossDivisor the log-distance slope applied to the excess loss.
	referenceRSSI   = -45
	pathLossDivisor = 20.0
)

// Model holds the tunable parts of the signal model.
type Model struct {
	MaxDistance float64
}

// Default returns the model used when no configuration overrides it.
func Default() Model {
	return Model{MaxDistance: DefaultMaxDistance}
}

// DistanceFromStrength estimates a distance in metres from rssi using a
// log-distance path-loss heuristic: exp((-rssi-45)/20) clamped to
// [0, MaxDistance]. Weaker (more negative) readings give larger distances.
func (m Model) DistanceFromStrength(rssi int) float64 {
	maxDist := m.MaxDistance
	if maxDist <= 0 || math.IsNaN(maxDist) {
		maxDist = DefaultMaxDistance
	}

	d := math.Exp(float64(-rssi+referenceRSSI) / pathLossDivisor)
	switch {
	case math.IsNaN(d) || d < 0:
		return 0
	case d > maxDist:
		return maxDist
	}
	return d
}

// DistanceFromStrength applies the default model.
func DistanceFromStrength(rssi int) float64 {
	return Default().DistanceFromStrength(rssi)
}

// AngleFromAddress sums the six address bytes and reduces the total modulo
// 360. The bearing has no physical meaning; it only keeps a device at the
// same place on the radar between ticks. Distinct addresses may collide.
func AngleFromAddress(addr [6]byte) int {
	sum := 0
	for _, b := range addr {
		sum += int(b)
	}
	return sum % 360
}

// NormalizeStrength maps rssi linearly from [StrengthFloor, StrengthCeiling]
// onto [0, 100]. Out-of-range readings saturate at the bounds.
func NormalizeStrength(rssi int) int {
	rssi = clampInt(rssi, StrengthFloor, StrengthCeiling)
	pct := (rssi - StrengthFloor) * 100 / (StrengthCeiling - StrengthFloor)
	return clampInt(pct, 0, 100)
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
