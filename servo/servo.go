package servo

import (
	"fmt"

	"github.com/Mickael-Roger/go-st3215/logger"
	"github.com/Mickael-Roger/go-st3215/sts"
)

// Device limits.
const (
	// MaxPosition is the highest position step of one mechanical revolution.
	MaxPosition = 4095

	// MaxSpeed is the highest accepted speed magnitude, in steps per second.
	MaxSpeed = 3400

	// MaxCorrection is the highest accepted position correction magnitude.
	// The correction register carries the sign in bit 11, leaving 11
	// magnitude bits.
	MaxCorrection = 2047

	// torqueNeutral parks the output and defines the present position as the
	// midpoint step 2048.
	torqueNeutral = 128
)

// Mode is the operational mode of a device.
type Mode byte

const (
	ModePosition Mode = 0
	ModeSpeed    Mode = 1
	ModePWM      Mode = 2
	ModeStep     Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeSpeed:
		return "constant speed"
	case ModePWM:
		return "pwm"
	case ModeStep:
		return "step"
	default:
		return fmt.Sprintf("unknown mode (%d)", byte(m))
	}
}

// Status is the decoded sensor status register. Each field reports whether
// the corresponding subsystem is healthy.
type Status struct {
	Voltage     bool
	Sensor      bool
	Temperature bool
	Current     bool
	Angle       bool
	Overload    bool
}

// Servo is a handle on one device. All methods issue bus transactions; the
// handle itself is stateless beyond the id and is safe for concurrent use.
type Servo struct {
	id     byte
	bus    *sts.Bus
	logger logger.Logger
}

func newServo(c *Controller, id byte) *Servo {
	return &Servo{id: id, bus: c.bus, logger: c.logger}
}

// ID returns the device id this handle addresses.
func (s *Servo) ID() byte { return s.id }

// --- Telemetry ---

// Load returns the present load as a percentage of the drive duty cycle.
func (s *Servo) Load() (float64, error) {
	v, res, bits := s.bus.ReadByte(s.id, sts.RegPresentLoad)
	if err := commErr(s.id, "read load", res, bits); err != nil {
		return 0, err
	}

	return float64(v) * 0.1, nil
}

// Voltage returns the present supply voltage in volts.
func (s *Servo) Voltage() (float64, error) {
	v, res, bits := s.bus.ReadByte(s.id, sts.RegPresentVoltage)
	if err := commErr(s.id, "read voltage", res, bits); err != nil {
		return 0, err
	}

	return float64(v) * 0.1, nil
}

// Current returns the present motor current in milliamps.
func (s *Servo) Current() (float64, error) {
	v, res, bits := s.bus.ReadByte(s.id, sts.RegPresentCurrent)
	if err := commErr(s.id, "read current", res, bits); err != nil {
		return 0, err
	}

	return float64(v) * 6.5, nil
}

// Temperature returns the present internal temperature in degrees Celsius.
func (s *Servo) Temperature() (int, error) {
	v, res, bits := s.bus.ReadByte(s.id, sts.RegPresentTemperature)
	if err := commErr(s.id, "read temperature", res, bits); err != nil {
		return 0, err
	}

	return int(v), nil
}

// Position returns the present position in steps.
func (s *Servo) Position() (int, error) {
	v, res, bits := s.bus.ReadWord(s.id, sts.RegPresentPosition)
	if err := commErr(s.id, "read position", res, bits); err != nil {
		return 0, err
	}

	return int(v), nil
}

// Speed returns the present signed speed in steps per second. The register
// carries the sign in bit 15.
func (s *Servo) Speed() (int, error) {
	v, res, bits := s.bus.ReadWord(s.id, sts.RegPresentSpeed)
	if err := commErr(s.id, "read speed", res, bits); err != nil {
		return 0, err
	}

	return sts.ToHost(int(v), 15), nil
}

// Moving reports whether the device is currently in motion.
func (s *Servo) Moving() (bool, error) {
	v, res, bits := s.bus.ReadByte(s.id, sts.RegMoving)
	if err := commErr(s.id, "read moving", res, bits); err != nil {
		return false, err
	}

	return v != 0, nil
}

// Status reads and decodes the sensor status register. A set register bit
// flags a fault, so each returned field is true when that subsystem is
// healthy.
func (s *Servo) Status() (Status, error) {
	v, res, bits := s.bus.ReadByte(s.id, sts.RegStatus)
	if err := commErr(s.id, "read status", res, bits); err != nil {
		return Status{}, err
	}

	return Status{
		Voltage:     v&(1<<0) == 0,
		Sensor:      v&(1<<1) == 0,
		Temperature: v&(1<<2) == 0,
		Current:     v&(1<<3) == 0,
		Angle:       v&(1<<4) == 0,
		Overload:    v&(1<<5) == 0,
	}, nil
}

// --- Configuration ---

// Acceleration returns the configured acceleration, in units of 100 steps/s².
func (s *Servo) Acceleration() (int, error) {
	v, res, bits := s.bus.ReadByte(s.id, sts.RegAcceleration)
	if err := commErr(s.id, "read acceleration", res, bits); err != nil {
		return 0, err
	}

	return int(v), nil
}

// SetAcceleration configures the acceleration, in units of 100 steps/s².
func (s *Servo) SetAcceleration(acc int) error {
	if acc < 0 || acc > 254 {
		return fmt.Errorf("%w: acceleration %d outside [0, 254]", ErrInvalidArg, acc)
	}

	res, bits := s.bus.WriteByte(s.id, sts.RegAcceleration, byte(acc))

	return commErr(s.id, "set acceleration", res, bits)
}

// Mode returns the operational mode.
func (s *Servo) Mode() (Mode, error) {
	v, res, bits := s.bus.ReadByte(s.id, sts.RegMode)
	if err := commErr(s.id, "read mode", res, bits); err != nil {
		return 0, err
	}

	return Mode(v), nil
}

// SetMode configures the operational mode.
func (s *Servo) SetMode(m Mode) error {
	if m > ModeStep {
		return fmt.Errorf("%w: mode %d outside [0, 3]", ErrInvalidArg, byte(m))
	}

	res, bits := s.bus.WriteByte(s.id, sts.RegMode, byte(m))

	return commErr(s.id, "set mode", res, bits)
}

// SetSpeed configures the goal speed magnitude, in steps per second. For a
// signed constant-speed command use Rotate.
func (s *Servo) SetSpeed(speed int) error {
	if speed < 0 || speed > MaxSpeed {
		return fmt.Errorf("%w: speed %d outside [0, %d]", ErrInvalidArg, speed, MaxSpeed)
	}

	res, bits := s.bus.WriteWord(s.id, sts.RegGoalSpeed, uint16(speed))

	return commErr(s.id, "set speed", res, bits)
}

// PositionCorrection returns the signed position correction in steps. The
// register carries the sign in bit 11.
func (s *Servo) PositionCorrection() (int, error) {
	v, res, bits := s.bus.ReadWord(s.id, sts.RegOffset)
	if err := commErr(s.id, "read position correction", res, bits); err != nil {
		return 0, err
	}

	return sts.ToHost(int(v), 11), nil
}

// SetPositionCorrection configures the signed position correction in steps.
// The magnitude is clamped to MaxCorrection.
func (s *Servo) SetPositionCorrection(correction int) error {
	mag := correction
	if mag < 0 {
		mag = -mag
	}
	if mag > MaxCorrection {
		s.logger.Warn("servo: clamping position correction", "id", s.id, "correction", correction)
		mag = MaxCorrection
	}
	if correction < 0 {
		mag = -mag
	}

	res, bits := s.bus.WriteWord(s.id, sts.RegOffset, uint16(sts.ToBus(mag, 11)))

	return commErr(s.id, "set position correction", res, bits)
}

// --- Torque ---

// EnableTorque powers the output stage.
func (s *Servo) EnableTorque() error {
	res, bits := s.bus.WriteByte(s.id, sts.RegTorqueEnable, 1)
	return commErr(s.id, "enable torque", res, bits)
}

// DisableTorque releases the output stage.
func (s *Servo) DisableTorque() error {
	res, bits := s.bus.WriteByte(s.id, sts.RegTorqueEnable, 0)
	return commErr(s.id, "disable torque", res, bits)
}

// TorqueNeutral parks the output and defines the present mechanical position
// as the midpoint step 2048.
func (s *Servo) TorqueNeutral() error {
	res, bits := s.bus.WriteByte(s.id, sts.RegTorqueEnable, torqueNeutral)
	return commErr(s.id, "torque neutral", res, bits)
}

// --- EEPROM ---

// LockEEPROM write-protects the EEPROM register area.
func (s *Servo) LockEEPROM() error {
	res, bits := s.bus.WriteByte(s.id, sts.RegLock, 1)
	return commErr(s.id, "lock eeprom", res, bits)
}

// UnlockEEPROM lifts the EEPROM write protection.
func (s *Servo) UnlockEEPROM() error {
	res, bits := s.bus.WriteByte(s.id, sts.RegLock, 0)
	return commErr(s.id, "unlock eeprom", res, bits)
}

// ChangeID reassigns the device id. The EEPROM is unlocked for the write and
// relocked afterward. The handle keeps addressing the old id; fetch a new
// handle from the controller after a successful change.
func (s *Servo) ChangeID(newID byte) error {
	if newID > sts.MaxDeviceID {
		return fmt.Errorf("%w: id %d outside [0, %d]", ErrInvalidArg, newID, sts.MaxDeviceID)
	}

	if err := s.UnlockEEPROM(); err != nil {
		return err
	}

	res, bits := s.bus.WriteByte(s.id, sts.RegID, newID)
	if err := commErr(s.id, "change id", res, bits); err != nil {
		return err
	}

	// The device answers at the new id from here on.
	res, bits = s.bus.WriteByte(newID, sts.RegLock, 1)

	return commErr(newID, "lock eeprom", res, bits)
}
