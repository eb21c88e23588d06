package capture

import (
	"sync/atomic"
	"time"

	"github.com/banshee-data/wifiradar/internal/devices"
	"github.com/banshee-data/wifiradar/internal/timeutil"
)

const (
	// MinHeaderLen is the shortest frame accepted: frame control, duration,
	// addr1, addr2, addr3 and sequence control.
	MinHeaderLen = 24

	// transmitterOffset is the position of addr2 in the MAC header.
	transmitterOffset = 10
)

// Upserter is the part of the device table the ingestor writes to.
type Upserter interface {
	Upsert(addr devices.Addr, rssi int, now time.Time) devices.Outcome
}

// IngestStats counts what the ingestor did with the frames it was given.
type IngestStats struct {
	Received  uint64 `json:"received"`
	Accepted  uint64 `json:"accepted"`
	WrongKind uint64 `json:"wrong_kind"`
	Malformed uint64 `json:"malformed"`
}

// Ingestor forwards the transmitter of each acceptable frame to the table.
type Ingestor struct {
	table Upserter
	clock timeutil.Clock

	received  atomic.Uint64
	accepted  atomic.Uint64
	wrongKind atomic.Uint64
	malformed atomic.Uint64
}

// NewIngestor creates an Ingestor writing to table. A nil clock uses the
// real one.
func NewIngestor(table Upserter, clock timeutil.Clock) *Ingestor {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Ingestor{table: table, clock: clock}
}

// Handle processes one frame and reports whether it reached the table.
// It does not allocate and holds no lock other than the table's own.
func (in *Ingestor) Handle(f Frame) bool {
	in.received.Add(1)

	switch f.Kind {
	case KindManagement, KindData, KindMisc:
	default:
		in.wrongKind.Add(1)
		return false
	}

	addr, ok := TransmitterAddr(f.Data)
	if !ok {
		in.malformed.Add(1)
		return false
	}

	in.table.Upsert(addr, f.RSSI, in.clock.Now())
	in.accepted.Add(1)
	return true
}

// Handler returns Handle as a Handler for passing to a Source.
func (in *Ingestor) Handler() Handler {
	return func(f Frame) { in.Handle(f) }
}

// Stats returns the current counters.
func (in *Ingestor) Stats() IngestStats {
	return IngestStats{
		Received:  in.received.Load(),
		Accepted:  in.accepted.Load(),
		WrongKind: in.wrongKind.Load(),
		Malformed: in.malformed.Load(),
	}
}

// TransmitterAddr extracts addr2 from an 802.11 MAC header. It reports false
// for buffers shorter than MinHeaderLen and never reads beyond len(data).
func TransmitterAddr(data []byte) (devices.Addr, bool) {
	var addr devices.Addr
	if len(data) < MinHeaderLen {
		return addr, false
	}
	copy(addr[:], data[transmitterOffset:transmitterOffset+len(addr)])
	return addr, true
}
