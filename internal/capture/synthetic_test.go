package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wifiradar/internal/timeutil"
)

func TestSyntheticSource_Burst(t *testing.T) {
	src := NewSyntheticSource(SyntheticConfig{Devices: 4, Presence: 1, MalformedEvery: 2, Seed: 3}, nil)

	var frames []Frame
	h := func(f Frame) { frames = append(frames, f) }

	src.Burst(h, 1)
	require.Len(t, frames, 4)
	for i, f := range frames {
		addr, ok := TransmitterAddr(f.Data)
		require.True(t, ok)
		assert.Equal(t, src.Addrs()[i], addr)
		assert.Equal(t, byte(0x02), addr[0]&0x03, "locally administered unicast")
	}

	frames = nil
	src.Burst(h, 2)
	require.Len(t, frames, 5)
	assert.Less(t, len(frames[4].Data), MinHeaderLen, "injected malformed frame")
}

func TestSyntheticSource_Deterministic(t *testing.T) {
	a := NewSyntheticSource(SyntheticConfig{Seed: 42}, nil)
	b := NewSyntheticSource(SyntheticConfig{Seed: 42}, nil)
	assert.Equal(t, a.Addrs(), b.Addrs())
}

func TestSyntheticSource_RunUntilCancelled(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	src := NewSyntheticSource(SyntheticConfig{Devices: 3, Presence: 1, Interval: time.Second}, clock)

	frames := make(chan Frame, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, func(f Frame) { frames <- f }) }()

	require.Eventually(t, func() bool { return clock.Tickers() == 1 }, time.Second, time.Millisecond)
	clock.Advance(time.Second)

	for i := 0; i < 3; i++ {
		select {
		case <-frames:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d frames emitted", i)
		}
	}

	cancel()
	assert.NoError(t, <-done)
}
