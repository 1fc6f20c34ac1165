package sts

import "time"

// DefaultLatency is the fixed turnaround allowance added to every receive
// budget. It absorbs USB adapter buffering and the device's own response
// delay, neither of which scales with the baud rate.
const DefaultLatency = 50 * time.Millisecond

// bitsPerByte is the number of bit periods one byte occupies on the wire:
// a start bit, eight data bits and a stop bit.
const bitsPerByte = 10

// deadline bounds how long the engine waits for reply bytes.
//
// The serial line carries no message boundaries, so "stop waiting" cannot be
// observed; it has to be computed. The budget is derived purely from the
// transmission time of the expected frame at the configured baud rate, plus
// a fixed latency allowance. The deadline is advisory: it bounds how long
// the engine polls for bytes, not how long a device may take to respond.
type deadline struct {
	start   time.Time
	budget  time.Duration
	perByte time.Duration
	latency time.Duration
}

func newDeadline(baud int, latency time.Duration) deadline {
	return deadline{
		perByte: bitsPerByte * time.Second / time.Duration(baud),
		latency: latency,
	}
}

// arm starts the receive window for a frame of frameLen bytes. Three extra
// byte periods cover inter-frame turnaround on the device side.
func (d *deadline) arm(frameLen int) {
	d.start = time.Now()
	d.budget = d.perByte*time.Duration(frameLen+3) + d.latency
}

// expired reports whether the armed window has elapsed. If the clock has
// regressed since arming, the window is restarted instead of reporting
// expiry, so a wall-clock step backwards never cuts a receive short.
func (d *deadline) expired() bool {
	elapsed := time.Since(d.start)
	if elapsed < 0 {
		d.start = time.Now()
		return false
	}

	return elapsed > d.budget
}
