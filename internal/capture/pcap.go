//go:build pcap
// +build pcap

package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/banshee-data/wifiradar/internal/monitoring"
)

// PCAPSource captures radiotap frames from a monitor-mode interface, or
// replays them from a capture file.
// This type is only functional when building with the 'pcap' build tag.
type PCAPSource struct {
	cfg PCAPConfig
}

// NewPCAPSource validates cfg and returns a source.
func NewPCAPSource(cfg PCAPConfig) (*PCAPSource, error) {
	if (cfg.Interface == "") == (cfg.File == "") {
		return nil, errors.New("exactly one of interface or file must be set")
	}
	if cfg.SnapLen <= 0 {
		cfg.SnapLen = 4096
	}
	return &PCAPSource{cfg: cfg}, nil
}

func (s *PCAPSource) open() (*pcap.Handle, error) {
	if s.cfg.File != "" {
		handle, err := pcap.OpenOffline(s.cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open PCAP file %s: %w", s.cfg.File, err)
		}
		return handle, nil
	}

	inactive, err := pcap.NewInactiveHandle(s.cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("failed to create handle for %s: %w", s.cfg.Interface, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetRFMon(true); err != nil {
		return nil, fmt.Errorf("failed to enable monitor mode on %s: %w", s.cfg.Interface, err)
	}
	if err := inactive.SetSnapLen(s.cfg.SnapLen); err != nil {
		return nil, fmt.Errorf("failed to set snaplen: %w", err)
	}
	if err := inactive.SetPromisc(true); err != nil {
		return nil, fmt.Errorf("failed to enable promiscuous mode: %w", err)
	}
	if err := inactive.SetTimeout(500 * time.Millisecond); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("failed to activate capture on %s: %w", s.cfg.Interface, err)
	}
	return handle, nil
}

// Run reads packets until ctx is cancelled or the capture file ends.
func (s *PCAPSource) Run(ctx context.Context, h Handler) error {
	logf := monitoring.Component("pcap")

	handle, err := s.open()
	if err != nil {
		return err
	}
	defer handle.Close()

	if lt := handle.LinkType(); lt != layers.LinkTypeIEEE80211Radio {
		return fmt.Errorf("link type %v is not radiotap; is the interface in monitor mode?", lt)
	}
	if s.cfg.BPFFilter != "" {
		if err := handle.SetBPFFilter(s.cfg.BPFFilter); err != nil {
			return fmt.Errorf("failed to set BPF filter '%s': %w", s.cfg.BPFFilter, err)
		}
		logf("BPF filter set: %s", s.cfg.BPFFilter)
	}

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packetSource.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	packetCount := 0
	skipped := 0
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			logf("capture stopping (processed %d packets, %d without signal)", packetCount, skipped)
			return nil
		case packet, ok := <-packetSource.Packets():
			if !ok || packet == nil {
				logf("capture complete: %d packets in %v", packetCount, time.Since(startTime))
				return nil
			}
			packetCount++

			f, err := FrameFromPacket(packet)
			if err != nil {
				skipped++
				continue
			}
			h(f)

			if packetCount%10000 == 0 {
				elapsed := time.Since(startTime)
				logf("progress: %d packets in %v (%.0f pkt/s)",
					packetCount, elapsed, float64(packetCount)/elapsed.Seconds())
			}
		}
	}
}
