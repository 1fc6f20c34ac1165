package sts

// SyncWrite batches register writes to many devices into one broadcast
// instruction frame: every member receives its own payload for the same
// register window in a single bus transaction.
//
// The member set persists across transactions until explicitly cleared, so a
// motion loop can update payloads with Set and retransmit without rebuilding
// membership. SyncWrite is not goroutine-safe; mutate it from one goroutine
// and let the engine lock serialize the transmissions.
type SyncWrite struct {
	bus       *Bus
	startAddr byte
	dataLen   int

	g     group
	param []byte
}

// NewSyncWrite creates a sync write batch for the register window starting at
// startAddr and spanning dataLen bytes per device.
func NewSyncWrite(bus *Bus, startAddr byte, dataLen int) *SyncWrite {
	return &SyncWrite{
		bus:       bus,
		startAddr: startAddr,
		dataLen:   dataLen,
		g:         newGroup(),
	}
}

// Add registers id with its payload. The payload length must equal the
// batch's configured data length, and duplicate ids are rejected with the
// first payload retained. It reports whether the member was added.
func (sw *SyncWrite) Add(id byte, data []byte) bool {
	if id > MaxDeviceID || len(data) != sw.dataLen {
		return false
	}

	payload := make([]byte, len(data))
	copy(payload, data)

	return sw.g.add(id, payload)
}

// Set replaces the payload of an existing member. It reports whether id is a
// member.
func (sw *SyncWrite) Set(id byte, data []byte) bool {
	if len(data) != sw.dataLen {
		return false
	}

	payload := make([]byte, len(data))
	copy(payload, data)

	return sw.g.set(id, payload)
}

// Remove drops id from the batch. Removing a non-member is a no-op.
func (sw *SyncWrite) Remove(id byte) { sw.g.remove(id) }

// Clear drops every member.
func (sw *SyncWrite) Clear() { sw.g.clear() }

// Len returns the number of members.
func (sw *SyncWrite) Len() int { return sw.g.size() }

// Tx transmits the batch as one instruction frame with parameters
//
//	[startAddr, dataLen, id_1, payload_1..., id_2, payload_2..., ...]
//
// in insertion order. No replies are solicited; an unreachable id is silently
// dropped and the only observable failure is transmit failure. An empty batch
// yields CommNotAvailable.
func (sw *SyncWrite) Tx() CommResult {
	if sw.g.size() == 0 {
		return CommNotAvailable
	}

	if sw.g.dirty || sw.param == nil {
		sw.makeParam()
	}

	sw.bus.mu.Lock()
	defer sw.bus.mu.Unlock()

	return sw.bus.syncWriteTx(sw.startAddr, sw.dataLen, sw.param)
}

func (sw *SyncWrite) makeParam() {
	sw.param = sw.param[:0]
	for _, id := range sw.g.ids {
		sw.param = append(sw.param, id)
		sw.param = append(sw.param, sw.g.data[id]...)
	}
	sw.g.dirty = false
}
