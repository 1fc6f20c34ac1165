package sts

import (
	"errors"
	"sync"
	"time"

	"github.com/Mickael-Roger/go-st3215/internal/pool"
	"github.com/Mickael-Roger/go-st3215/logger"
)

// Bus is the protocol engine for one half-duplex servo bus.
//
// A single coarse lock serializes every transaction, single-target or group,
// across all calling goroutines: the bus cannot tolerate interleaved frames.
// No operation is cancellable mid-flight; the receive deadline bounds how
// long the engine polls for bytes, and closing the Port out-of-band is the
// only true cancellation. The engine never retries and never sleeps.
type Bus struct {
	mu      sync.Mutex
	port    Port
	logger  logger.Logger
	latency time.Duration
	dl      deadline

	metrics BusMetrics
}

// NewBus creates a protocol engine on top of an already-configured Port.
// The caller keeps ownership of the port's lifecycle (Open/Close).
func NewBus(port Port, opts ...BusOption) (*Bus, error) {
	if port == nil {
		return nil, errors.New("sts: port is nil")
	}

	b := &Bus{
		port:    port,
		logger:  logger.GetLogger(),
		latency: DefaultLatency,
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	b.dl = newDeadline(port.BaudRate(), b.latency)

	return b, nil
}

// Port returns the transport the engine drives.
func (b *Bus) Port() Port { return b.port }

// Metrics returns the engine's atomic counters.
func (b *Bus) Metrics() *BusMetrics { return &b.metrics }

// --- Single-target transactions ---

// Ping checks the presence of a device. On success it also reads the model
// number register, so the returned model is nonzero for a healthy device and
// zero whenever the transaction failed.
//
// The error bits are only meaningful when the result is CommSuccess; a
// nonzero CommResult short-circuits and leaves them undefined.
func (b *Bus) Ping(id byte) (uint16, CommResult, ErrorBits) {
	if id == BroadcastID {
		return 0, CommNotAvailable, 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	frame, err := EncodeInstruction(id, InstPing, nil)
	if err != nil {
		return 0, CommTxError, 0
	}

	errBits, _, res := b.txRx(frame, id, 0)
	if res != CommSuccess {
		b.logger.Debug("sts: ping failed", "id", id, "result", res)
		return 0, res, errBits
	}

	data, res, errBits := b.read(id, RegModelNumber, 2)
	if res != CommSuccess {
		return 0, res, errBits
	}

	return MakeWord(data[0], data[1]), CommSuccess, errBits
}

// Read reads width bytes (1, 2 or 4) starting at address and composes them
// little-endian. The value is only meaningful when the result is CommSuccess.
func (b *Bus) Read(id byte, address byte, width int) (uint32, CommResult, ErrorBits) {
	if width != 1 && width != 2 && width != 4 {
		return 0, CommNotAvailable, 0
	}
	if id == BroadcastID {
		return 0, CommNotAvailable, 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	data, res, errBits := b.read(id, address, width)
	if res != CommSuccess {
		return 0, res, errBits
	}

	var value uint32
	switch width {
	case 1:
		value = uint32(data[0])
	case 2:
		value = uint32(MakeWord(data[0], data[1]))
	case 4:
		value = MakeDWord(MakeWord(data[0], data[1]), MakeWord(data[2], data[3]))
	}

	return value, CommSuccess, errBits
}

// ReadByte reads a one-byte register.
func (b *Bus) ReadByte(id byte, address byte) (byte, CommResult, ErrorBits) {
	v, res, errBits := b.Read(id, address, 1)
	return byte(v), res, errBits
}

// ReadWord reads a two-byte little-endian register.
func (b *Bus) ReadWord(id byte, address byte) (uint16, CommResult, ErrorBits) {
	v, res, errBits := b.Read(id, address, 2)
	return uint16(v), res, errBits
}

// ReadDWord reads a four-byte little-endian register.
func (b *Bus) ReadDWord(id byte, address byte) (uint32, CommResult, ErrorBits) {
	return b.Read(id, address, 4)
}

// Write writes data starting at address. The status frame is awaited even
// though it carries no payload, so the device's error bits stay observable.
// A broadcast write solicits no reply; its only observable failure is
// transmit failure.
func (b *Bus) Write(id byte, address byte, data []byte) (CommResult, ErrorBits) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.write(id, InstWrite, address, data)
}

// WriteByte writes a one-byte register.
func (b *Bus) WriteByte(id byte, address byte, value byte) (CommResult, ErrorBits) {
	return b.Write(id, address, []byte{value})
}

// WriteWord writes a two-byte little-endian register.
func (b *Bus) WriteWord(id byte, address byte, value uint16) (CommResult, ErrorBits) {
	return b.Write(id, address, []byte{LoByte(value), HiByte(value)})
}

// RegWrite stages a write in the device's register-write buffer. The staged
// value takes effect when Action is issued, letting several devices commit
// simultaneously without the sync write payload format.
func (b *Bus) RegWrite(id byte, address byte, data []byte) (CommResult, ErrorBits) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.write(id, InstRegWrite, address, data)
}

// Action commits writes previously staged with RegWrite. It is normally
// broadcast, in which case no status frame is solicited.
func (b *Bus) Action(id byte) CommResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	frame, err := EncodeInstruction(id, InstAction, nil)
	if err != nil {
		return CommTxError
	}

	if res := b.txPacket(frame); res != CommSuccess {
		return res
	}
	if id == BroadcastID {
		return CommSuccess
	}

	b.dl.arm(statusOverhead)
	_, _, res := b.rxPacket(id, 0)

	return res
}

// --- Internals (caller holds b.mu) ---

func (b *Bus) read(id byte, address byte, width int) ([]byte, CommResult, ErrorBits) {
	frame, err := EncodeInstruction(id, InstRead, []byte{address, byte(width)})
	if err != nil {
		return nil, CommTxError, 0
	}

	errBits, params, res := b.txRx(frame, id, width)
	if res != CommSuccess {
		b.logger.Debug("sts: read failed", "id", id, "address", address, "width", width, "result", res)
		return nil, res, errBits
	}

	return params, CommSuccess, errBits
}

func (b *Bus) write(id byte, instr byte, address byte, data []byte) (CommResult, ErrorBits) {
	params := make([]byte, 0, len(data)+1)
	params = append(params, address)
	params = append(params, data...)

	frame, err := EncodeInstruction(id, instr, params)
	if err != nil {
		return CommTxError, 0
	}

	if id == BroadcastID {
		return b.txPacket(frame), 0
	}

	errBits, _, res := b.txRx(frame, id, 0)
	if res != CommSuccess {
		b.logger.Debug("sts: write failed", "id", id, "address", address, "result", res)
	}

	return res, errBits
}

// txRx transmits one instruction frame and receives the matching status
// frame. Broadcast frames get no status; the transmit result stands alone.
func (b *Bus) txRx(frame []byte, id byte, paramLen int) (ErrorBits, []byte, CommResult) {
	if res := b.txPacket(frame); res != CommSuccess {
		return 0, nil, res
	}
	if id == BroadcastID {
		return 0, nil, CommSuccess
	}

	b.dl.arm(paramLen + statusOverhead)

	return b.rxPacket(id, paramLen)
}

// txPacket clears stale input and transmits one frame.
func (b *Bus) txPacket(frame []byte) CommResult {
	if err := b.port.Flush(); err != nil {
		return CommPortBusy
	}

	n, err := b.port.Write(frame)
	if err != nil {
		if errors.Is(err, ErrPortNotOpen) {
			return CommPortBusy
		}

		b.logger.Error("sts: transmit failed", "error", err)

		return CommTxFail
	}
	if n != len(frame) {
		b.logger.Error("sts: short transmit", "written", n, "frame", len(frame))
		return CommTxFail
	}

	b.metrics.incTxFrameCount()

	return CommSuccess
}

// rxPacket polls the port for a status frame from id with paramLen parameter
// bytes until the armed deadline expires. Expiry with nothing received is a
// timeout; expiry with an undecodable partial buffer is corruption.
func (b *Bus) rxPacket(id byte, paramLen int) (ErrorBits, []byte, CommResult) {
	want := paramLen + statusOverhead

	buf := pool.GetBuffer(2 * want)
	defer func() { pool.PutBuffer(buf) }()

	scratch := pool.GetBuffer(want)[:want]
	defer pool.PutBuffer(scratch)

	for {
		if b.port.BytesAvailable() > 0 {
			n, err := b.port.Read(scratch)
			if err != nil {
				b.logger.Error("sts: receive failed", "error", err)
				return 0, nil, CommRxFail
			}
			buf = append(buf, scratch[:n]...)
		}

		if len(buf) >= want {
			errBits, params, res := DecodeStatus(buf, id, paramLen)
			if res == CommSuccess {
				b.metrics.incRxFrameCount()
				if errBits.Any() {
					b.metrics.incDeviceErrorCount()
				}

				return errBits, params, CommSuccess
			}
			// More bytes may still complete a frame after leading noise;
			// keep polling until the deadline decides.
		}

		if b.dl.expired() {
			if len(buf) == 0 {
				b.metrics.incTimeoutCount()
				return 0, nil, CommRxTimeout
			}

			b.metrics.incCorruptCount()
			b.logger.Debug("sts: corrupt status frame", "id", id, "received", len(buf), "want", want)

			return 0, nil, CommRxCorrupt
		}
	}
}

// syncWriteTx transmits one sync write batch frame. Sync write has broadcast
// semantics: no replies are solicited and an unreachable id is silently
// dropped by the bus, so the only observable failure is transmit failure.
func (b *Bus) syncWriteTx(startAddr byte, width int, param []byte) CommResult {
	p := make([]byte, 0, len(param)+2)
	p = append(p, startAddr, byte(width))
	p = append(p, param...)

	frame, err := EncodeInstruction(BroadcastID, InstSyncWrite, p)
	if err != nil {
		return CommTxError
	}

	res := b.txPacket(frame)
	if res == CommSuccess {
		b.metrics.incSyncWriteCount()
	}

	return res
}

// syncReadTx transmits one sync read request naming every participating id.
// The addressed devices reply in id order on the shared line.
func (b *Bus) syncReadTx(startAddr byte, width int, ids []byte) CommResult {
	p := make([]byte, 0, len(ids)+2)
	p = append(p, startAddr, byte(width))
	p = append(p, ids...)

	frame, err := EncodeInstruction(BroadcastID, InstSyncRead, p)
	if err != nil {
		return CommTxError
	}

	return b.txPacket(frame)
}

// syncReadRx collects the fan-in reply burst: count status frames of width
// parameter bytes each, expected back-to-back. The partial buffer is returned
// even on expiry so the caller can salvage the frames that did arrive.
func (b *Bus) syncReadRx(width int, count int) ([]byte, CommResult) {
	// buf is handed back to the caller, so only scratch is recycled here.
	want := (width + statusOverhead) * count
	buf := make([]byte, 0, want)

	scratch := pool.GetBuffer(want)[:want]
	defer pool.PutBuffer(scratch)

	b.dl.arm(want)

	for {
		if b.port.BytesAvailable() > 0 {
			n, err := b.port.Read(scratch)
			if err != nil {
				return buf, CommRxFail
			}
			buf = append(buf, scratch[:n]...)
		}

		if len(buf) >= want {
			return buf, CommSuccess
		}

		if b.dl.expired() {
			if len(buf) == 0 {
				b.metrics.incTimeoutCount()
				return nil, CommRxTimeout
			}

			return buf, CommRxCorrupt
		}
	}
}
