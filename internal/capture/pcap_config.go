package capture

import "errors"

// ErrPCAPDisabled is returned by the PCAP source in builds without libpcap.
var ErrPCAPDisabled = errors.New("PCAP support not enabled: rebuild with -tags=pcap to enable capture")

// PCAPConfig selects a live interface or a capture file. Exactly one of
// Interface and File must be set.
type PCAPConfig struct {
	Interface string
	File      string
	SnapLen   int
	// BPFFilter optionally narrows the capture, e.g. "type mgt or type data".
	BPFFilter string
}
