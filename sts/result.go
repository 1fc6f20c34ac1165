package sts

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the protocol engine.
var (
	ErrPortBusy     = errors.New("sts: port is in use")
	ErrTxFail       = errors.New("sts: failed to transmit instruction frame")
	ErrRxFail       = errors.New("sts: failed to get status frame from device")
	ErrTxError      = errors.New("sts: incorrect instruction frame")
	ErrRxWaiting    = errors.New("sts: still receiving status frame")
	ErrRxTimeout    = errors.New("sts: no status frame within the receive budget")
	ErrRxCorrupt    = errors.New("sts: corrupt status frame")
	ErrNotAvailable = errors.New("sts: operation not available")

	ErrPortNotOpen = errors.New("sts: port is not open")
)

// CommResult is the raw communication outcome of a bus transaction. The numeric
// values match the reference SDK so logs stay comparable across host stacks.
type CommResult int

const (
	CommSuccess      CommResult = 0
	CommPortBusy     CommResult = -1
	CommTxFail       CommResult = -2
	CommRxFail       CommResult = -3
	CommTxError      CommResult = -4
	CommRxWaiting    CommResult = -5
	CommRxTimeout    CommResult = -6
	CommRxCorrupt    CommResult = -7
	CommNotAvailable CommResult = -9
)

// String returns a compact human readable message for the communication result.
func (r CommResult) String() string {
	switch r {
	case CommSuccess:
		return "communication success"
	case CommPortBusy:
		return "port is in use"
	case CommTxFail:
		return "failed to transmit instruction frame"
	case CommRxFail:
		return "failed to get status frame from device"
	case CommTxError:
		return "incorrect instruction frame"
	case CommRxWaiting:
		return "now receiving status frame"
	case CommRxTimeout:
		return "no status frame (timeout)"
	case CommRxCorrupt:
		return "incorrect status frame (corrupt)"
	case CommNotAvailable:
		return "operation not available for this instruction or id"
	default:
		return fmt.Sprintf("unknown communication result (%d)", int(r))
	}
}

// Err maps the communication result to a package sentinel error, or nil for
// CommSuccess. The sentinel can be tested with errors.Is after wrapping.
func (r CommResult) Err() error {
	switch r {
	case CommSuccess:
		return nil
	case CommPortBusy:
		return ErrPortBusy
	case CommTxFail:
		return ErrTxFail
	case CommRxFail:
		return ErrRxFail
	case CommTxError:
		return ErrTxError
	case CommRxWaiting:
		return ErrRxWaiting
	case CommRxTimeout:
		return ErrRxTimeout
	case CommRxCorrupt:
		return ErrRxCorrupt
	case CommNotAvailable:
		return ErrNotAvailable
	default:
		return fmt.Errorf("sts: communication failure (%d)", int(r))
	}
}

// ErrorBits is the raw error byte carried in a status frame. A nonzero value
// means the device was heard correctly and is itself reporting a condition;
// it is deliberately distinct from the transport-level CommResult so callers
// can tell "device reported trouble" from "could not hear the device at all".
type ErrorBits byte

const (
	ErrBitVoltage     ErrorBits = 1 << 0
	ErrBitAngleSensor ErrorBits = 1 << 1
	ErrBitOverheat    ErrorBits = 1 << 2
	ErrBitOvervoltage ErrorBits = 1 << 3
	ErrBitOverload    ErrorBits = 1 << 5
)

// Any reports whether any error bit is set.
func (e ErrorBits) Any() bool { return e != 0 }

// Has reports whether every bit in mask is set.
func (e ErrorBits) Has(mask ErrorBits) bool { return e&mask == mask }

// String returns a comma separated description of the set error bits, or an
// empty string when none are set.
func (e ErrorBits) String() string {
	if e == 0 {
		return ""
	}

	var parts []string
	if e.Has(ErrBitVoltage) {
		parts = append(parts, "input voltage error")
	}
	if e.Has(ErrBitAngleSensor) {
		parts = append(parts, "angle sensor error")
	}
	if e.Has(ErrBitOverheat) {
		parts = append(parts, "overheat error")
	}
	if e.Has(ErrBitOvervoltage) {
		parts = append(parts, "overvoltage/electrical error")
	}
	if e.Has(ErrBitOverload) {
		parts = append(parts, "overload error")
	}
	if len(parts) == 0 {
		return fmt.Sprintf("unknown error bits (0x%02X)", byte(e))
	}

	return strings.Join(parts, ", ")
}

// DeviceError is returned by higher layers when a status frame carries a
// nonzero error byte: the device answered, and reported a fault of its own.
type DeviceError struct {
	ID   byte
	Bits ErrorBits
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("sts: device %d reported: %s", e.ID, e.Bits)
}
