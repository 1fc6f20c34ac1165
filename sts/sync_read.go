package sts

// SyncRead batches register reads from many devices into one bus transaction:
// a single broadcast request naming every member, answered by one status
// frame per member back-to-back on the shared line.
//
// Decoded values are queried lazily after the round-trip via IsAvailable and
// Data, possibly long after membership has changed, so every query
// re-validates membership, the register window and the stored raw length.
// SyncRead is not goroutine-safe; mutate and query it from one goroutine and
// let the engine lock serialize the bus transactions.
type SyncRead struct {
	bus       *Bus
	startAddr byte
	dataLen   int

	g     group
	param []byte

	lastResult bool
}

// NewSyncRead creates a sync read batch for the register window starting at
// startAddr and spanning dataLen bytes per device.
func NewSyncRead(bus *Bus, startAddr byte, dataLen int) *SyncRead {
	return &SyncRead{
		bus:       bus,
		startAddr: startAddr,
		dataLen:   dataLen,
		g:         newGroup(),
	}
}

// Add registers id as a batch member. Duplicate ids are rejected. It reports
// whether the member was added.
func (sr *SyncRead) Add(id byte) bool {
	if id > MaxDeviceID {
		return false
	}

	return sr.g.add(id, nil)
}

// Remove drops id from the batch. Removing a non-member is a no-op.
func (sr *SyncRead) Remove(id byte) { sr.g.remove(id) }

// Clear drops every member and their stored replies.
func (sr *SyncRead) Clear() { sr.g.clear() }

// Len returns the number of members.
func (sr *SyncRead) Len() int { return sr.g.size() }

// LastResult reports whether every member of the most recent Rx decoded
// successfully. Members that did decode retain their values even when the
// aggregate is false.
func (sr *SyncRead) LastResult() bool { return sr.lastResult }

// TxRx performs the full batch round-trip: one request frame out, one fan-in
// reply burst back, demultiplexed per member. It holds the engine lock across
// both phases, as the half-duplex line cannot tolerate an interleaved
// transaction between them.
func (sr *SyncRead) TxRx() CommResult {
	sr.bus.mu.Lock()
	defer sr.bus.mu.Unlock()

	if res := sr.txLocked(); res != CommSuccess {
		return res
	}

	return sr.rxLocked()
}

// Tx transmits the request phase only. Prefer TxRx; Tx/Rx exist for callers
// that interleave other host-side work between the phases.
func (sr *SyncRead) Tx() CommResult {
	sr.bus.mu.Lock()
	defer sr.bus.mu.Unlock()

	return sr.txLocked()
}

// Rx receives and demultiplexes the reply phase of a previously transmitted
// request.
func (sr *SyncRead) Rx() CommResult {
	sr.bus.mu.Lock()
	defer sr.bus.mu.Unlock()

	return sr.rxLocked()
}

// IsAvailable reports whether a field at (address, width) can be served for
// id from the stored replies, and returns the device's error bits alongside.
// It verifies that id is still a member, that the requested window lies
// inside the batch's configured window, and that the stored raw buffer is
// long enough (the leading byte is the device's error byte).
func (sr *SyncRead) IsAvailable(id byte, address byte, width int) (bool, ErrorBits) {
	if !sr.g.contains(id) {
		return false, 0
	}
	if address < sr.startAddr || int(sr.startAddr)+sr.dataLen-width < int(address) {
		return false, 0
	}

	raw := sr.g.data[id]
	if len(raw) < width+1 {
		return false, 0
	}

	return true, ErrorBits(raw[0])
}

// Data returns the little-endian composition of width bytes (1, 2 or 4) at
// address for id, or 0 when the field is not available.
func (sr *SyncRead) Data(id byte, address byte, width int) uint32 {
	if ok, _ := sr.IsAvailable(id, address, width); !ok {
		return 0
	}

	raw := sr.g.data[id]
	off := int(address-sr.startAddr) + 1

	switch width {
	case 1:
		return uint32(raw[off])
	case 2:
		return uint32(MakeWord(raw[off], raw[off+1]))
	case 4:
		return MakeDWord(MakeWord(raw[off], raw[off+1]), MakeWord(raw[off+2], raw[off+3]))
	default:
		return 0
	}
}

// --- Internals (caller holds the engine lock) ---

func (sr *SyncRead) txLocked() CommResult {
	if sr.g.size() == 0 {
		return CommNotAvailable
	}

	if sr.g.dirty || sr.param == nil {
		sr.makeParam()
	}

	return sr.bus.syncReadTx(sr.startAddr, sr.dataLen, sr.param)
}

// rxLocked demultiplexes the reply burst. One device's noise must not blind
// reads for its bus-mates: decoding continues across every member even after
// a failure, tracking per-member success, and the aggregate LastResult is
// false if any member failed.
func (sr *SyncRead) rxLocked() CommResult {
	sr.lastResult = true

	if sr.g.size() == 0 {
		return CommNotAvailable
	}

	buf, result := sr.bus.syncReadRx(sr.dataLen, sr.g.size())

	// Anything shorter than one status frame fails the whole batch without
	// attempting per-member decode.
	if len(buf) < sr.dataLen+statusOverhead {
		sr.lastResult = false
		for _, id := range sr.g.ids {
			sr.g.data[id] = nil
		}
		if result == CommSuccess {
			result = CommRxFail
		}

		return result
	}

	for _, id := range sr.g.ids {
		errBits, params, res := DecodeStatus(buf, id, sr.dataLen)
		if res != CommSuccess {
			sr.lastResult = false
			sr.g.data[id] = nil
			result = res

			continue
		}

		raw := make([]byte, 0, sr.dataLen+1)
		raw = append(raw, byte(errBits))
		raw = append(raw, params...)
		sr.g.data[id] = raw
	}

	if sr.lastResult {
		sr.bus.metrics.incSyncReadCount()
	}

	return result
}

func (sr *SyncRead) makeParam() {
	sr.param = append(sr.param[:0], sr.g.ids...)
	sr.g.dirty = false
}
