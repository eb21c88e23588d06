// Package capture turns raw monitor-mode frames into device observations.
//
// A Source produces Frames from whatever capture backend is available (a
// pcap handle, a serial-attached sniffer, or a synthetic generator) and hands
// each one to a Handler. The Ingestor is the Handler used in production: it
// filters, bounds-checks and forwards the transmitter address and RSSI to the
// device table.
package capture

import (
	"context"
	"fmt"
	"strings"
)

// FrameKind is the coarse classification the capture backend attaches to a frame.
type FrameKind int

const (
	KindUnknown FrameKind = iota
	KindManagement
	KindControl
	KindData
	KindMisc
)

func (k FrameKind) String() string {
	switch k {
	case KindManagement:
		return "MGMT"
	case KindControl:
		return "CTRL"
	case KindData:
		return "DATA"
	case KindMisc:
		return "MISC"
	default:
		return "UNKNOWN"
	}
}

// ParseFrameKind accepts the names printed by String as well as the numeric
// promiscuous packet types used by ESP-IDF sniffers (0 mgmt, 1 ctrl, 2 data,
// 3 misc).
func ParseFrameKind(s string) (FrameKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MGMT", "0":
		return KindManagement, nil
	case "CTRL", "1":
		return KindControl, nil
	case "DATA", "2":
		return KindData, nil
	case "MISC", "3":
		return KindMisc, nil
	}
	return KindUnknown, fmt.Errorf("unknown frame kind %q", s)
}

// Frame is one captured radio frame. Data starts at the 802.11 MAC header and
// is untrusted: it may be truncated or arbitrarily short.
type Frame struct {
	Kind FrameKind
	RSSI int
	Data []byte
}

// Handler receives frames from a Source. It is called on the source's
// goroutine and must return quickly.
type Handler func(Frame)

// Source produces frames until ctx is cancelled or the underlying capture
// ends. Run returns nil when the capture ends normally.
type Source interface {
	Run(ctx context.Context, h Handler) error
}
