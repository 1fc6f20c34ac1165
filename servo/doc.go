// Package servo provides device-level semantics on top of the sts protocol
// engine: discovery, telemetry in engineering units, motion control and
// calibration for STS-series smart servos.
//
// A Controller wraps one bus and hands out Servo handles. Handles are
// stateless beyond the device id; every method is a bus transaction and the
// engine serializes them, so handles may be shared across goroutines.
package servo
