//go:build pcap
// +build pcap

package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wifiradar/internal/testutil"
)

// writeCapture stores packets in a pcap file with the given link type.
func writeCapture(t *testing.T, lt layers.LinkType, packets ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, lt))
	ts := time.Unix(1700000000, 0)
	for i, p := range packets {
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(p),
			Length:        len(p),
		}
		require.NoError(t, w.WritePacket(ci, p))
	}
	return path
}

func TestNewPCAPSource_RequiresOneInput(t *testing.T) {
	_, err := NewPCAPSource(PCAPConfig{})
	assert.Error(t, err)
	_, err = NewPCAPSource(PCAPConfig{Interface: "wlan0mon", File: "x.pcap"})
	assert.Error(t, err)

	src, err := NewPCAPSource(PCAPConfig{File: "x.pcap"})
	require.NoError(t, err)
	assert.Equal(t, 4096, src.cfg.SnapLen)
}

func TestPCAPSource_ReplaysRadiotapFile(t *testing.T) {
	testutil.QuietLogs(t)

	path := writeCapture(t, layers.LinkTypeIEEE80211Radio,
		append(radiotapHeader(0, -65), BuildHeader(KindManagement, testAddr)...),
		// no antenna signal field: skipped
		append([]byte{0x00, 0x00, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00}, BuildHeader(KindData, testAddr)...),
		append(radiotapHeader(0, -72), BuildHeader(KindData, testAddr)...),
	)

	src, err := NewPCAPSource(PCAPConfig{File: path})
	require.NoError(t, err)

	var got []Frame
	require.NoError(t, src.Run(context.Background(), func(f Frame) { got = append(got, f) }))

	require.Len(t, got, 2)
	assert.Equal(t, KindManagement, got[0].Kind)
	assert.Equal(t, -65, got[0].RSSI)
	assert.Equal(t, KindData, got[1].Kind)
	assert.Equal(t, -72, got[1].RSSI)

	addr, ok := TransmitterAddr(got[1].Data)
	require.True(t, ok)
	assert.Equal(t, testAddr, addr)
}

func TestPCAPSource_RejectsNonRadiotapFile(t *testing.T) {
	testutil.QuietLogs(t)

	path := writeCapture(t, layers.LinkTypeEthernet, make([]byte, 60))
	src, err := NewPCAPSource(PCAPConfig{File: path})
	require.NoError(t, err)

	err = src.Run(context.Background(), func(Frame) {})
	assert.ErrorContains(t, err, "not radiotap")
}
