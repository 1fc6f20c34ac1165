package sts

import (
	"fmt"
	"time"

	"github.com/Mickael-Roger/go-st3215/logger"
)

// Receive budget limits. The latency allowance is clamped so a misconfigured
// option cannot stretch a single transaction into seconds of busy polling.
const (
	MinLatency = time.Millisecond
	MaxLatency = time.Second
)

// BusOption configures a Bus at construction time.
type BusOption func(*Bus) error

// WithLogger sets the logger the engine reports through. The engine never
// logs through package-global state.
func WithLogger(l logger.Logger) BusOption {
	return func(b *Bus) error {
		if l == nil {
			return fmt.Errorf("%w: logger is nil", ErrTxError)
		}
		b.logger = l

		return nil
	}
}

// WithLatency sets the fixed latency allowance added to every receive budget.
func WithLatency(d time.Duration) BusOption {
	return func(b *Bus) error {
		if d < MinLatency || d > MaxLatency {
			return fmt.Errorf("%w: latency %v outside [%v, %v]", ErrTxError, d, MinLatency, MaxLatency)
		}
		b.latency = d

		return nil
	}
}
