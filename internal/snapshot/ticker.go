package snapshot

import (
	"context"
	"time"

	"github.com/banshee-data/wifiradar/internal/monitoring"
	"github.com/banshee-data/wifiradar/internal/timeutil"
)

// DefaultInterval is the broadcast period.
const DefaultInterval = time.Second

// Publisher delivers a serialized snapshot to every connected viewer. It owns
// its own backpressure policy and must not block for long.
type Publisher interface {
	Publish(payload []byte)
}

// Recorder optionally persists each snapshot.
type Recorder interface {
	RecordSnapshot(at time.Time, s Snapshot) error
}

// Ticker builds and publishes a snapshot once per interval, whether or not
// anything changed since the last one.
type Ticker struct {
	builder   *Builder
	publisher Publisher
	recorder  Recorder
	clock     timeutil.Clock
	interval  time.Duration
	logf      func(format string, v ...interface{})
}

// TickerOption customises a Ticker.
type TickerOption func(*Ticker)

// WithRecorder archives every snapshot to r.
func WithRecorder(r Recorder) TickerOption {
	return func(t *Ticker) { t.recorder = r }
}

// WithClock replaces the real clock, for tests.
func WithClock(c timeutil.Clock) TickerOption {
	return func(t *Ticker) { t.clock = c }
}

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) TickerOption {
	return func(t *Ticker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// NewTicker creates a Ticker publishing to p.
func NewTicker(b *Builder, p Publisher, opts ...TickerOption) *Ticker {
	t := &Ticker{
		builder:   b,
		publisher: p,
		clock:     timeutil.RealClock{},
		interval:  DefaultInterval,
		logf:      monitoring.Component("snapshot"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run ticks until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) error {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			t.Tick(t.clock.Now())
		}
	}
}

// Tick builds, publishes and records one snapshot. Failures are logged and
// the next tick starts afresh.
func (t *Ticker) Tick(now time.Time) Snapshot {
	snap := t.builder.Build(now)

	payload, err := snap.Marshal()
	if err != nil {
		t.logf("failed to marshal snapshot: %v", err)
		return snap
	}
	t.publisher.Publish(payload)

	if t.recorder != nil {
		if err := t.recorder.RecordSnapshot(now, snap); err != nil {
			t.logf("failed to record snapshot: %v", err)
		}
	}
	return snap
}
