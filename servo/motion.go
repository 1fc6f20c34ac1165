package servo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Mickael-Roger/go-st3215/sts"
)

// Default motion profile for MoveTo.
const (
	DefaultMoveSpeed        = 2400 // steps/s
	DefaultMoveAcceleration = 50   // x100 steps/s²
)

// movingPollInterval paces the Moving register polls in blocking waits.
const movingPollInterval = 20 * time.Millisecond

// MoveOptions shapes a MoveTo motion profile. The zero value selects the
// default speed and acceleration without waiting for arrival.
type MoveOptions struct {
	Speed        int  // steps/s; 0 selects DefaultMoveSpeed
	Acceleration int  // x100 steps/s²; 0 selects DefaultMoveAcceleration
	Wait         bool // sleep out the estimated travel time before returning
}

// WritePosition writes the goal position register without touching the rest
// of the motion profile.
func (s *Servo) WritePosition(position int) error {
	if position < 0 || position > MaxPosition {
		return fmt.Errorf("%w: position %d outside [0, %d]", ErrInvalidArg, position, MaxPosition)
	}

	res, bits := s.bus.WriteWord(s.id, sts.RegGoalPosition, uint16(position))

	return commErr(s.id, "write position", res, bits)
}

// MoveTo moves the device to position in position mode, configuring the whole
// motion profile first. With opts.Wait the call sleeps out the trapezoidal
// travel-time estimate before returning; the estimate assumes the motion is
// unobstructed, so a stalled device still returns after the estimate. The
// context bounds the wait only, not the bus transactions.
func (s *Servo) MoveTo(ctx context.Context, position int, opts MoveOptions) error {
	speed := opts.Speed
	if speed == 0 {
		speed = DefaultMoveSpeed
	}
	acc := opts.Acceleration
	if acc == 0 {
		acc = DefaultMoveAcceleration
	}

	if err := s.SetMode(ModePosition); err != nil {
		return err
	}
	if err := s.SetAcceleration(acc); err != nil {
		return err
	}
	if err := s.SetSpeed(speed); err != nil {
		return err
	}

	current, err := s.Position()
	if err != nil {
		return err
	}

	if err := s.WritePosition(position); err != nil {
		return err
	}

	if !opts.Wait {
		return nil
	}

	distance := position - current
	if distance < 0 {
		distance = -distance
	}

	wait := travelTime(distance, speed, acc)
	s.logger.Debug("servo: waiting for travel", "id", s.id, "distance", distance, "wait", wait)

	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// travelTime estimates the time to cover distance steps under a trapezoidal
// profile with the given cruise speed (steps/s) and acceleration (x100
// steps/s²). Short moves never reach cruise speed and follow the triangular
// case.
func travelTime(distance, speed, acc int) time.Duration {
	if distance == 0 || speed <= 0 || acc <= 0 {
		return 0
	}

	accSteps := float64(acc) * 100 // steps/s²
	d := float64(distance)
	v := float64(speed)

	timeToSpeed := v / accSteps
	rampDistance := 0.5 * accSteps * timeToSpeed * timeToSpeed

	var seconds float64
	if rampDistance >= d {
		seconds = math.Sqrt(2 * d / float64(acc))
	} else {
		seconds = timeToSpeed + (d-rampDistance)/v
	}

	return time.Duration(seconds * float64(time.Second))
}

// Rotate starts continuous rotation at the signed speed, negative for
// counter-clockwise. The device is switched to constant speed mode first and
// the magnitude is clamped to MaxSpeed. The register carries the sign in
// bit 15.
func (s *Servo) Rotate(speed int) error {
	if err := s.SetMode(ModeSpeed); err != nil {
		return err
	}

	mag := speed
	if mag < 0 {
		mag = -mag
	}
	if mag > MaxSpeed {
		s.logger.Warn("servo: clamping rotation speed", "id", s.id, "speed", speed)
		mag = MaxSpeed
	}
	if speed < 0 {
		mag = -mag
	}

	res, bits := s.bus.WriteWord(s.id, sts.RegGoalSpeed, uint16(sts.ToBus(mag, 15)))

	return commErr(s.id, "rotate", res, bits)
}

// BlockingPosition rotates until the device stops against a mechanical limit
// and returns the position it stopped at. The stop must be observed in five
// consecutive polls to filter out the brief standstill of a direction change.
// On return, for any outcome, the device is back in position mode with
// torque released.
//
// Only meaningful for devices with at least one mechanical limit; a free
// running device never blocks and the call runs until the context is done.
func (s *Servo) BlockingPosition(ctx context.Context) (int, error) {
	defer func() {
		if err := s.SetMode(ModePosition); err != nil {
			s.logger.Warn("servo: restoring position mode failed", "id", s.id, "error", err)
		}
		if err := s.DisableTorque(); err != nil {
			s.logger.Warn("servo: releasing torque failed", "id", s.id, "error", err)
		}
	}()

	ticker := time.NewTicker(movingPollInterval)
	defer ticker.Stop()

	stopMatches := 0
	for {
		moving, err := s.Moving()
		if err != nil {
			return 0, err
		}

		if moving {
			stopMatches = 0
		} else {
			position, err := s.Position()
			if err != nil {
				return 0, err
			}

			stopMatches++
			if stopMatches > 4 {
				return position, nil
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}
