package servo

import (
	"context"
	"fmt"
	"time"
)

// Calibration pacing. The rotation needs a moment to begin before the
// blocking-position poll starts, and the correction write needs to settle
// before the recentering move.
const calibrationSettle = 500 * time.Millisecond

// calibrationSpeed is the slow probe speed used to find mechanical limits.
const calibrationSpeed = 250

// Calibration holds the outcome of a Calibrate run. After calibration the
// position correction places Min at step 0, so the usable range is [0, Max].
type Calibration struct {
	Min int
	Max int
}

// Calibrate finds the device's mechanical limits by driving slowly into each
// end stop, then writes a position correction that places the lower limit at
// step 0 and moves to the middle of the travel.
//
// Only use on devices with both mechanical limits present. A free running
// device never blocks; the context is the only way out of the probe.
func (s *Servo) Calibrate(ctx context.Context) (Calibration, error) {
	if err := s.SetPositionCorrection(0); err != nil {
		return Calibration{}, err
	}
	if err := sleepCtx(ctx, calibrationSettle); err != nil {
		return Calibration{}, err
	}

	if err := s.SetAcceleration(100); err != nil {
		return Calibration{}, err
	}

	if err := s.Rotate(-calibrationSpeed); err != nil {
		return Calibration{}, err
	}
	if err := sleepCtx(ctx, calibrationSettle); err != nil {
		return Calibration{}, err
	}

	minPos, err := s.BlockingPosition(ctx)
	if err != nil {
		return Calibration{}, fmt.Errorf("%w: lower limit: %w", ErrCalibration, err)
	}

	if err := s.Rotate(calibrationSpeed); err != nil {
		return Calibration{}, err
	}
	if err := sleepCtx(ctx, calibrationSettle); err != nil {
		return Calibration{}, err
	}

	maxPos, err := s.BlockingPosition(ctx)
	if err != nil {
		return Calibration{}, fmt.Errorf("%w: upper limit: %w", ErrCalibration, err)
	}

	// Shift the lower limit to step 0. When the travel straddles the
	// position wrap the raw limits come back inverted and the distance runs
	// through the wrap point.
	var distance int
	if minPos >= maxPos {
		distance = (MaxPosition - minPos + maxPos) / 2
	} else {
		distance = (maxPos - minPos) / 2
	}

	corr := minPos
	if minPos > MaxPosition/2 {
		corr = minPos - MaxPosition - 1
	}

	if err := s.SetPositionCorrection(corr); err != nil {
		return Calibration{}, fmt.Errorf("%w: %w", ErrCalibration, err)
	}
	if err := sleepCtx(ctx, calibrationSettle); err != nil {
		return Calibration{}, err
	}

	if err := s.MoveTo(ctx, distance, MoveOptions{}); err != nil {
		return Calibration{}, err
	}

	return Calibration{Min: 0, Max: distance * 2}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
