// Package serial streams bit-packed Pro Controller reports to a
// microcontroller over a serial port. Every frame carries the complete report
// and how long the device should hold it.
package serial

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/switchpro"
	"github.com/Alia5/padctl/internal/log"
)

const (
	// MsgReport is the frame type of a report with a hold duration.
	MsgReport = 0x90

	// FrameSize is len + type + seq + report + hold + crc.
	FrameSize = 1 + 1 + 4 + switchpro.ReportSize + 2 + 4

	DefaultBaudRate = 115200
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeFrame builds one report frame. hold is rounded down to milliseconds
// and saturates at 65535ms; zero means hold until the next frame.
func EncodeFrame(seq uint32, s controller.State, hold time.Duration) []byte {
	r := switchpro.BuildReport(s)
	report, _ := r.MarshalBinary()

	b := make([]byte, FrameSize)
	b[0] = FrameSize
	b[1] = MsgReport
	binary.LittleEndian.PutUint32(b[2:6], seq)
	copy(b[6:6+switchpro.ReportSize], report)
	o := 6 + switchpro.ReportSize
	binary.LittleEndian.PutUint16(b[o:o+2], uint16(min(hold.Milliseconds(), 0xffff)))
	binary.LittleEndian.PutUint32(b[o+2:o+6], crc32.Checksum(b[:o+2], castagnoli))
	return b
}

// DecodeFrame parses a frame produced by EncodeFrame.
func DecodeFrame(b []byte) (seq uint32, s controller.State, hold time.Duration, err error) {
	if len(b) < FrameSize {
		return 0, s, 0, io.ErrUnexpectedEOF
	}
	if b[0] != FrameSize || b[1] != MsgReport {
		return 0, s, 0, fmt.Errorf("unexpected frame header %#x %#x", b[0], b[1])
	}
	o := 6 + switchpro.ReportSize
	if want, got := crc32.Checksum(b[:o+2], castagnoli), binary.LittleEndian.Uint32(b[o+2:o+6]); want != got {
		return 0, s, 0, fmt.Errorf("crc mismatch: %#08x != %#08x", got, want)
	}
	var r switchpro.Report
	if err := r.UnmarshalBinary(b[6:o]); err != nil {
		return 0, s, 0, err
	}
	seq = binary.LittleEndian.Uint32(b[2:6])
	hold = time.Duration(binary.LittleEndian.Uint16(b[o:o+2])) * time.Millisecond
	return seq, r.State(), hold, nil
}

// Transport writes frames to a serial port.
type Transport struct {
	w      io.WriteCloser
	logger *slog.Logger
	raw    log.RawLogger

	mu     sync.Mutex
	seq    uint32
	closed bool
	err    error
}

// Open opens a serial port.
func Open(port string, baud int, logger *slog.Logger, raw log.RawLogger) (*Transport, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", controller.ErrNotReady, port, err)
	}
	logger.Info("opened serial port", "port", port, "baud", baud)
	return New(p, logger, raw), nil
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// New wraps an already open link.
func New(w io.WriteCloser, logger *slog.Logger, raw log.RawLogger) *Transport {
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Transport{w: w, logger: logger.With("transport", "serial"), raw: raw}
}

func (t *Transport) Ready() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.closed:
		return fmt.Errorf("%w: port closed", controller.ErrNotReady)
	case t.err != nil:
		return fmt.Errorf("%w: %w", controller.ErrNotReady, t.err)
	}
	return nil
}

func (t *Transport) SendState(s controller.State, hold time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("%w: port closed", controller.ErrNotReady)
	}
	t.seq++
	frame := EncodeFrame(t.seq, s, hold)
	t.raw.Log(true, frame)
	if _, err := t.w.Write(frame); err != nil {
		t.err = err
		return fmt.Errorf("write frame %d: %w", t.seq, err)
	}
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.w.Close()
}
