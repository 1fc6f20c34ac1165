package servo

import (
	"errors"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/Mickael-Roger/go-st3215/logger"
	"github.com/Mickael-Roger/go-st3215/sts"
)

// Controller is the device-level facade over one bus. It hands out Servo
// handles and keeps a registry of the devices seen so far, safe for
// concurrent use by application goroutines; the bus transactions themselves
// are serialized by the engine's lock.
type Controller struct {
	bus    *sts.Bus
	logger logger.Logger
	servos *xsync.MapOf[byte, *Servo]
}

// ControllerOption configures a Controller at construction time.
type ControllerOption func(*Controller) error

// WithLogger sets the logger the controller and its servo handles report
// through.
func WithLogger(l logger.Logger) ControllerOption {
	return func(c *Controller) error {
		if l == nil {
			return errors.New("servo: logger is nil")
		}
		c.logger = l

		return nil
	}
}

// NewController creates a facade over an existing protocol engine.
func NewController(bus *sts.Bus, opts ...ControllerOption) (*Controller, error) {
	if bus == nil {
		return nil, errors.New("servo: bus is nil")
	}

	c := &Controller{
		bus:    bus,
		logger: logger.GetLogger(),
		servos: xsync.NewMapOf[byte, *Servo](),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Bus returns the underlying protocol engine.
func (c *Controller) Bus() *sts.Bus { return c.bus }

// Ping reports whether a healthy device answers at id: the transaction
// succeeded, the model number is nonzero and no error bits are set.
func (c *Controller) Ping(id byte) bool {
	model, res, errBits := c.bus.Ping(id)
	if res != sts.CommSuccess || model == 0 || errBits.Any() {
		return false
	}

	c.servos.LoadOrStore(id, newServo(c, id))

	return true
}

// Scan walks the full id range and returns the ids that answered, in
// ascending order. Every responder is registered in the controller. Absent
// ids cost a full receive timeout each, so a scan over an empty bus takes
// 254 timeouts; tune the engine latency before scanning a sparse bus.
func (c *Controller) Scan() []byte {
	c.logger.Info("servo: scanning bus")

	var found []byte
	for id := 0; id <= int(sts.MaxDeviceID); id++ {
		if c.Ping(byte(id)) {
			found = append(found, byte(id))
		}
	}

	c.logger.Info("servo: scan complete", "found", len(found))

	return found
}

// Servo returns a handle for id, pinging the device first if it has not been
// seen yet.
func (c *Controller) Servo(id byte) (*Servo, error) {
	if s, ok := c.servos.Load(id); ok {
		return s, nil
	}
	if !c.Ping(id) {
		return nil, ErrNotFound
	}

	s, _ := c.servos.Load(id)

	return s, nil
}

// Known returns the ids registered so far, in no particular order.
func (c *Controller) Known() []byte {
	var ids []byte
	c.servos.Range(func(id byte, _ *Servo) bool {
		ids = append(ids, id)
		return true
	})

	return ids
}
