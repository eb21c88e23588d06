package capture

import (
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrNotRadioTap is returned when a packet carries no radiotap header or no
// antenna signal field, so no RSSI can be attached to it.
var ErrNotRadioTap = errors.New("packet has no radiotap antenna signal")

// DecodeRadioTap decodes a radiotap-encapsulated 802.11 packet, as captured
// from a monitor-mode interface, into a Frame.
func DecodeRadioTap(data []byte) (Frame, error) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeRadioTap, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	return FrameFromPacket(pkt)
}

// FrameFromPacket extracts the RSSI and MAC frame from a decoded packet.
// The kind comes from the frame control field, so a frame whose body is too
// short for gopacket's Dot11 decoder is still classified and left for the
// Ingestor to reject on length.
func FrameFromPacket(pkt gopacket.Packet) (Frame, error) {
	rt, ok := pkt.Layer(layers.LayerTypeRadioTap).(*layers.RadioTap)
	if !ok || !rt.Present.DBMAntennaSignal() {
		return Frame{}, ErrNotRadioTap
	}

	body := rt.Payload
	if rt.Flags.FCS() && len(body) >= 4 {
		body = body[:len(body)-4]
	}

	f := Frame{RSSI: int(rt.DBMAntennaSignal), Data: body}
	if dot11, ok := pkt.Layer(layers.LayerTypeDot11).(*layers.Dot11); ok {
		f.Kind = kindFromDot11(dot11.Type)
	} else if len(body) > 0 {
		f.Kind = kindFromDot11(layers.Dot11Type(body[0] >> 2))
	}
	return f, nil
}

func kindFromDot11(t layers.Dot11Type) FrameKind {
	switch t.MainType() {
	case layers.Dot11TypeMgmt:
		return KindManagement
	case layers.Dot11TypeCtrl:
		return KindControl
	case layers.Dot11TypeData:
		return KindData
	default:
		return KindMisc
	}
}
