package capture

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/banshee-data/wifiradar/internal/monitoring"
)

// ErrMalformedLine is wrapped by ParseSnifferLine for any line that cannot
// be turned into a Frame.
var ErrMalformedLine = errors.New("malformed sniffer line")

// maxFrameBytes bounds the hex payload accepted from a sniffer line. It is
// the 802.11n A-MSDU MPDU limit, comfortably above anything a sniffer
// forwards.
const maxFrameBytes = 7935

// PortOptions describes the serial connection to a sniffer board.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalize validates the options and applies defaults for any unset values.
// Sniffer firmware normally runs the console at 115200 8N1.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch parity := strings.TrimSpace(strings.ToUpper(opts.Parity)); parity {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}

	return opts, nil
}

// SerialMode converts the options into the mode go.bug.st/serial expects.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{BaudRate: opts.BaudRate, DataBits: opts.DataBits}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	} else {
		mode.StopBits = serial.OneStopBit
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode, nil
}

// SerialSource reads frames from a sniffer board that prints one line per
// promiscuous-mode callback:
//
//	<KIND>,<RSSI>,<hex frame bytes>
//
// e.g. "MGMT,-65,4000000000ffffffffffffaabbccddeeff...". Unparseable lines
// are counted and skipped.
type SerialSource struct {
	port io.ReadCloser
	name string

	badLines uint64
}

// OpenSerialSource opens the serial device at path.
func OpenSerialSource(path string, opts PortOptions) (*SerialSource, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return &SerialSource{port: port, name: path}, nil
}

// NewSerialSource wraps an already open port, typically a pipe in tests.
func NewSerialSource(port io.ReadCloser) *SerialSource {
	return &SerialSource{port: port, name: "serial"}
}

// maxLineBytes bounds one sniffer line: kind, rssi and the hex payload with
// room to spare. Longer lines are counted as bad and skipped.
const maxLineBytes = 2*maxFrameBytes + 64

// Run reads lines until the port is closed or ctx is cancelled. Cancelling
// ctx closes the port to unblock the pending read.
func (s *SerialSource) Run(ctx context.Context, h Handler) error {
	logf := monitoring.Component("serial")
	logf("reading sniffer frames from %s", s.name)

	stop := context.AfterFunc(ctx, func() { s.port.Close() })
	defer stop()

	rd := bufio.NewReaderSize(s.port, maxLineBytes)
	var err error
	for err == nil {
		var line []byte
		line, err = rd.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			s.skipLine(logf, fmt.Errorf("%w: line longer than %d bytes", ErrMalformedLine, maxLineBytes))
			err = discardLine(rd)
			continue
		}
		if len(line) == 0 {
			continue
		}
		f, perr := ParseSnifferLine(string(line))
		if perr != nil {
			s.skipLine(logf, perr)
			continue
		}
		h(f)
	}

	if ctx.Err() != nil {
		return nil
	}
	if !errors.Is(err, io.EOF) {
		return fmt.Errorf("serial read failed: %w", err)
	}
	return s.port.Close()
}

func (s *SerialSource) skipLine(logf func(string, ...interface{}), err error) {
	s.badLines++
	if s.badLines%1000 == 1 {
		logf("skipping line: %v (%d bad lines so far)", err, s.badLines)
	}
}

// discardLine drops input up to and including the next newline.
func discardLine(rd *bufio.Reader) error {
	for {
		_, err := rd.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

// BadLines returns the number of lines skipped so far. It is only safe to
// call after Run has returned.
func (s *SerialSource) BadLines() uint64 {
	return s.badLines
}

// ParseSnifferLine parses one sniffer output line into a Frame. Blank lines
// and lines starting with '#' are treated as malformed so the caller can skip
// them uniformly.
func ParseSnifferLine(line string) (Frame, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Frame{}, fmt.Errorf("%w: empty or comment", ErrMalformedLine)
	}

	parts := strings.SplitN(line, ",", 3)
	if len(parts) != 3 {
		return Frame{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedLine, len(parts))
	}

	kind, err := ParseFrameKind(parts[0])
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}

	rssi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: bad rssi %q", ErrMalformedLine, parts[1])
	}

	payload := strings.TrimSpace(parts[2])
	if len(payload) > 2*maxFrameBytes {
		return Frame{}, fmt.Errorf("%w: frame longer than %d bytes", ErrMalformedLine, maxFrameBytes)
	}
	data, err := hex.DecodeString(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: bad frame hex: %v", ErrMalformedLine, err)
	}

	return Frame{Kind: kind, RSSI: rssi, Data: data}, nil
}
