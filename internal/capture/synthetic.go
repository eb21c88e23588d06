package capture

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/banshee-data/wifiradar/internal/devices"
	"github.com/banshee-data/wifiradar/internal/monitoring"
	"github.com/banshee-data/wifiradar/internal/timeutil"
)

// SyntheticConfig describes the fake radio environment a SyntheticSource
// simulates.
type SyntheticConfig struct {
	// Devices is the number of distinct transmitters.
	Devices int
	// Interval is the time between bursts; each burst emits one frame per
	// device that is currently present.
	Interval time.Duration
	// Presence is the probability that a device transmits in a given burst.
	Presence float64
	// MalformedEvery injects a truncated frame every N bursts (0 disables).
	MalformedEvery int
	// Seed makes the generated sequence reproducible.
	Seed uint64
}

// DefaultSyntheticConfig returns a population that fits comfortably in a
// default-sized table.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Devices:        12,
		Interval:       200 * time.Millisecond,
		Presence:       0.6,
		MalformedEvery: 50,
		Seed:           1,
	}
}

// SyntheticSource emits generated probe-request and data frames. It stands
// in for a radio in dev mode and in tests.
type SyntheticSource struct {
	cfg   SyntheticConfig
	clock timeutil.Clock
	rng   *rand.Rand
	addrs []devices.Addr
	base  []int
}

// NewSyntheticSource creates a generator. A nil clock uses the real one.
func NewSyntheticSource(cfg SyntheticConfig, clock timeutil.Clock) *SyntheticSource {
	def := DefaultSyntheticConfig()
	if cfg.Devices <= 0 {
		cfg.Devices = def.Devices
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Presence <= 0 || cfg.Presence > 1 {
		cfg.Presence = def.Presence
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	s := &SyntheticSource{cfg: cfg, clock: clock, rng: rng}
	for i := 0; i < cfg.Devices; i++ {
		var a devices.Addr
		for j := range a {
			a[j] = byte(rng.UintN(256))
		}
		a[0] = a[0]&^0x01 | 0x02 // unicast, locally administered
		s.addrs = append(s.addrs, a)
		s.base = append(s.base, -40-rng.IntN(50))
	}
	return s
}

// Addrs returns the generated device addresses.
func (s *SyntheticSource) Addrs() []devices.Addr {
	return append([]devices.Addr(nil), s.addrs...)
}

// Run emits bursts on every tick until ctx is cancelled.
func (s *SyntheticSource) Run(ctx context.Context, h Handler) error {
	logf := monitoring.Component("synthetic")
	logf("emitting %d devices every %v", len(s.addrs), s.cfg.Interval)

	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for burst := 1; ; burst++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			s.Burst(h, burst)
		}
	}
}

// Burst emits one round of frames. The burst number drives malformed-frame
// injection.
func (s *SyntheticSource) Burst(h Handler, burst int) {
	for i, addr := range s.addrs {
		if s.rng.Float64() >= s.cfg.Presence {
			continue
		}
		kind := KindManagement
		if i%3 == 0 {
			kind = KindData
		}
		rssi := s.base[i] + s.rng.IntN(7) - 3
		h(Frame{Kind: kind, RSSI: rssi, Data: BuildHeader(kind, addr)})
	}
	if s.cfg.MalformedEvery > 0 && burst%s.cfg.MalformedEvery == 0 {
		h(Frame{Kind: KindManagement, RSSI: -50, Data: make([]byte, MinHeaderLen-1)})
	}
}

// BuildHeader returns a minimal MAC header of the given kind with transmitter
// addr and broadcast receiver/BSSID.
func BuildHeader(kind FrameKind, transmitter devices.Addr) []byte {
	hdr := make([]byte, MinHeaderLen)
	switch kind {
	case KindData:
		hdr[0] = 0x08 // data
		hdr[1] = 0x01 // to DS
	case KindControl:
		hdr[0] = 0xd4 // ack
	default:
		hdr[0] = 0x40 // probe request
	}
	for i := 4; i < 10; i++ {
		hdr[i] = 0xff
	}
	copy(hdr[transmitterOffset:], transmitter[:])
	for i := 16; i < 22; i++ {
		hdr[i] = 0xff
	}
	return hdr
}
