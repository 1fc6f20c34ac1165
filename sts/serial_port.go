package sts

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaudRate is the factory baud rate of ST3215 servos.
const DefaultBaudRate = 1000000

// pollReadTimeout keeps SerialPort.Read effectively non-blocking: the driver
// returns whatever is buffered after at most this long.
const pollReadTimeout = time.Millisecond

// SerialPort is the default Port implementation, backed by a physical serial
// device (8 data bits, no parity, one stop bit).
//
// The underlying driver has no "bytes waiting" query, so BytesAvailable polls
// the device into an internal staging buffer; Read drains the staging buffer
// before touching the device again. SerialPort is not goroutine-safe on its
// own; the engine's transaction lock serializes all access.
type SerialPort struct {
	name   string
	baud   int
	port   *serial.Port
	staged []byte
}

// NewSerialPort creates a SerialPort for the named device (e.g. /dev/ttyUSB0)
// at the given baud rate. A baud of 0 selects DefaultBaudRate. The port is
// not opened until Open is called.
func NewSerialPort(name string, baud int) *SerialPort {
	if baud == 0 {
		baud = DefaultBaudRate
	}

	return &SerialPort{name: name, baud: baud}
}

// Open opens the serial device. An already-open port is closed and reopened.
func (p *SerialPort) Open() error {
	if p.port != nil {
		if err := p.Close(); err != nil {
			return err
		}
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        p.name,
		Baud:        p.baud,
		Size:        8,
		ReadTimeout: pollReadTimeout,
	})
	if err != nil {
		return fmt.Errorf("sts: open serial port %s: %w", p.name, err)
	}

	p.port = port
	p.staged = nil

	return nil
}

// Close closes the serial device and drops any staged input.
func (p *SerialPort) Close() error {
	if p.port == nil {
		return nil
	}

	err := p.port.Close()
	p.port = nil
	p.staged = nil

	if err != nil {
		return fmt.Errorf("sts: close serial port %s: %w", p.name, err)
	}

	return nil
}

// Read returns currently buffered bytes, staged input first. It never waits
// longer than the driver poll interval and returns 0 when nothing arrived.
func (p *SerialPort) Read(buf []byte) (int, error) {
	if len(p.staged) > 0 {
		n := copy(buf, p.staged)
		p.staged = p.staged[n:]

		return n, nil
	}

	if p.port == nil {
		return 0, ErrPortNotOpen
	}

	n, err := p.port.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		// io.EOF is how the driver reports an empty poll, not a real EOF.
		return n, fmt.Errorf("sts: read serial port %s: %w", p.name, err)
	}

	return n, nil
}

// Write transmits buf to the device.
func (p *SerialPort) Write(buf []byte) (int, error) {
	if p.port == nil {
		return 0, ErrPortNotOpen
	}

	n, err := p.port.Write(buf)
	if err != nil {
		return n, fmt.Errorf("sts: write serial port %s: %w", p.name, err)
	}

	return n, nil
}

// BytesAvailable polls the device into the staging buffer and returns the
// number of bytes a Read would deliver immediately.
func (p *SerialPort) BytesAvailable() int {
	if p.port == nil {
		return len(p.staged)
	}

	var scratch [256]byte

	// An empty poll reports io.EOF; either way there is nothing more to stage.
	n, _ := p.port.Read(scratch[:])
	if n > 0 {
		p.staged = append(p.staged, scratch[:n]...)
	}

	return len(p.staged)
}

// Flush discards staged input and the driver's pending input.
func (p *SerialPort) Flush() error {
	p.staged = nil

	if p.port == nil {
		return nil
	}

	if err := p.port.Flush(); err != nil {
		return fmt.Errorf("sts: flush serial port %s: %w", p.name, err)
	}

	return nil
}

// BaudRate returns the configured baud rate.
func (p *SerialPort) BaudRate() int { return p.baud }

// Name returns the device name the port was created with.
func (p *SerialPort) Name() string { return p.name }

var _ Port = (*SerialPort)(nil)
