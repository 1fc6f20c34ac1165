package servo

import (
	"errors"
	"fmt"

	"github.com/Mickael-Roger/go-st3215/sts"
)

var (
	// ErrNotFound is returned when the addressed device does not answer a ping.
	ErrNotFound = errors.New("servo: not found")

	// ErrInvalidArg is returned when a parameter is outside the device's
	// accepted range.
	ErrInvalidArg = errors.New("servo: invalid argument")

	// ErrCalibration is returned when a calibration run cannot determine both
	// mechanical limits.
	ErrCalibration = errors.New("servo: calibration failed")
)

// commErr converts a transaction outcome into an error. A transport-level
// failure wraps the protocol sentinel; a device-reported fault wraps
// sts.DeviceError so callers can inspect the bits with errors.As.
func commErr(id byte, op string, res sts.CommResult, bits sts.ErrorBits) error {
	if res != sts.CommSuccess {
		return fmt.Errorf("servo %d: %s: %w", id, op, res.Err())
	}
	if bits.Any() {
		return fmt.Errorf("servo %d: %s: %w", id, op, &sts.DeviceError{ID: id, Bits: bits})
	}

	return nil
}
