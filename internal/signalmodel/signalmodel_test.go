package signalmodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceFromStrength(t *testing.T) {
	tests := []struct {
		name string
		rssi int
		want float64
	}{
		{"reference reading is one metre", -45, 1.0},
		{"twenty dB below reference", -65, math.E},
		{"very weak clamps to max", -95, DefaultMaxDistance},
		{"strong reading is close", -25, math.Exp(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceFromStrength(tt.rssi), 1e-9)
		})
	}
}

func TestDistanceFromStrength_AlwaysInRange(t *testing.T) {
	inputs := []int{math.MinInt, -100000, -128, -95, -65, -35, 0, 127, 100000, math.MaxInt}
	for _, rssi := range inputs {
		d := DistanceFromStrength(rssi)
		if d < 0 || d > DefaultMaxDistance || math.IsNaN(d) {
			t.Errorf("DistanceFromStrength(%d) = %v, want within [0, %v]", rssi, d, DefaultMaxDistance)
		}
	}
}

func TestModel_CustomMaxDistance(t *testing.T) {
	m := Model{MaxDistance: 3}
	assert.Equal(t, 3.0, m.DistanceFromStrength(-90))
	assert.InDelta(t, math.E, m.DistanceFromStrength(-65), 1e-9)

	// An unset model falls back to the default ring.
	assert.Equal(t, DefaultMaxDistance, Model{}.DistanceFromStrength(-95))
}

func TestDistanceFromStrength_Monotonic(t *testing.T) {
	prev := DistanceFromStrength(0)
	for rssi := -1; rssi >= -120; rssi-- {
		d := DistanceFromStrength(rssi)
		if d < prev {
			t.Fatalf("distance decreased from %v to %v at rssi %d", prev, d, rssi)
		}
		prev = d
	}
}

func TestAngleFromAddress(t *testing.T) {
	addr := [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	assert.Equal(t, 195, AngleFromAddress(addr))
	assert.Equal(t, 0, AngleFromAddress([6]byte{}))
	assert.Equal(t, (255*6)%360, AngleFromAddress([6]byte{255, 255, 255, 255, 255, 255}))

	for i := 0; i < 5; i++ {
		assert.Equal(t, 195, AngleFromAddress(addr), "angle must be stable across calls")
	}
}

func TestAngleFromAddress_Range(t *testing.T) {
	var addr [6]byte
	for i := 0; i < 2000; i++ {
		addr[i%6] = byte(i * 37)
		a := AngleFromAddress(addr)
		if a < 0 || a > 359 {
			t.Fatalf("AngleFromAddress(%x) = %d, want 0..359", addr, a)
		}
	}
}

func TestNormalizeStrength(t *testing.T) {
	tests := []struct {
		rssi int
		want int
	}{
		{-200, 0},
		{-95, 0},
		{-65, 50},
		{-36, 98},
		{-35, 100},
		{0, 100},
		{math.MinInt, 0},
		{math.MaxInt, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStrength(tt.rssi), "rssi=%d", tt.rssi)
	}
}

func TestNormalizeStrength_MonotonicInRange(t *testing.T) {
	prev := NormalizeStrength(StrengthFloor)
	for rssi := StrengthFloor; rssi <= StrengthCeiling; rssi++ {
		s := NormalizeStrength(rssi)
		if s < prev {
			t.Fatalf("strength decreased from %d to %d at rssi %d", prev, s, rssi)
		}
		if s < 0 || s > 100 {
			t.Fatalf("NormalizeStrength(%d) = %d, want 0..100", rssi, s)
		}
		prev = s
	}
}
