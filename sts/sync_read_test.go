package sts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// burst concatenates status frames into one fan-in reply buffer.
func burst(frames ...[]byte) []byte {
	var buf []byte
	for _, f := range frames {
		buf = append(buf, f...)
	}

	return buf
}

func TestSyncRead_TxRx(t *testing.T) {
	mp := newMockPort()
	mp.script(burst(
		statusFrame(2, 0, 10, 20),
		statusFrame(5, 0, 30, 40),
	))
	bus, err := NewBus(mp, WithLatency(time.Millisecond))
	require.NoError(t, err)

	sr := NewSyncRead(bus, RegPresentPosition, 2)
	require.True(t, sr.Add(2))
	require.True(t, sr.Add(5))

	res := sr.TxRx()
	require.Equal(t, CommSuccess, res)
	assert.True(t, sr.LastResult())

	wantFrame, _ := EncodeInstruction(BroadcastID, InstSyncRead,
		[]byte{RegPresentPosition, 2, 2, 5})
	require.Len(t, mp.frames, 1)
	assert.Equal(t, wantFrame, mp.frames[0])

	for _, tt := range []struct {
		id   byte
		want uint32
	}{
		{2, uint32(MakeWord(10, 20))},
		{5, uint32(MakeWord(30, 40))},
	} {
		ok, errBits := sr.IsAvailable(tt.id, RegPresentPosition, 2)
		require.True(t, ok)
		assert.Equal(t, ErrorBits(0), errBits)
		assert.Equal(t, tt.want, sr.Data(tt.id, RegPresentPosition, 2))
	}

	assert.Equal(t, uint64(1), bus.Metrics().SyncReadCount.Load())
}

func TestSyncRead_RepliesInAnyOrder(t *testing.T) {
	mp := newMockPort()
	mp.script(burst(
		statusFrame(5, 0, 30, 40), // devices answered out of id order
		statusFrame(2, 0, 10, 20),
	))
	bus, _ := NewBus(mp, WithLatency(time.Millisecond))

	sr := NewSyncRead(bus, RegPresentPosition, 2)
	sr.Add(2)
	sr.Add(5)

	require.Equal(t, CommSuccess, sr.TxRx())
	assert.Equal(t, uint32(MakeWord(10, 20)), sr.Data(2, RegPresentPosition, 2))
	assert.Equal(t, uint32(MakeWord(30, 40)), sr.Data(5, RegPresentPosition, 2))
}

func TestSyncRead_PartialFailure(t *testing.T) {
	corrupt := statusFrame(5, 0, 30, 40)
	corrupt[len(corrupt)-1] ^= 0xFF

	mp := newMockPort()
	mp.script(burst(
		statusFrame(2, 0, 10, 20),
		corrupt,
	))
	bus, _ := NewBus(mp, WithLatency(time.Millisecond))

	sr := NewSyncRead(bus, RegPresentPosition, 2)
	sr.Add(2)
	sr.Add(5)

	res := sr.TxRx()
	assert.NotEqual(t, CommSuccess, res)
	assert.False(t, sr.LastResult())

	// The healthy member keeps its value.
	ok, _ := sr.IsAvailable(2, RegPresentPosition, 2)
	assert.True(t, ok)
	assert.Equal(t, uint32(MakeWord(10, 20)), sr.Data(2, RegPresentPosition, 2))

	ok, _ = sr.IsAvailable(5, RegPresentPosition, 2)
	assert.False(t, ok)
	assert.Equal(t, uint32(0), sr.Data(5, RegPresentPosition, 2))
}

func TestSyncRead_DeviceErrorBits(t *testing.T) {
	mp := newMockPort()
	mp.script(burst(statusFrame(2, byte(ErrBitOverheat), 10, 20)))
	bus, _ := NewBus(mp, WithLatency(time.Millisecond))

	sr := NewSyncRead(bus, RegPresentPosition, 2)
	sr.Add(2)

	require.Equal(t, CommSuccess, sr.TxRx())

	ok, errBits := sr.IsAvailable(2, RegPresentPosition, 2)
	require.True(t, ok)
	assert.True(t, errBits.Has(ErrBitOverheat))
	assert.Equal(t, uint32(MakeWord(10, 20)), sr.Data(2, RegPresentPosition, 2))
}

func TestSyncRead_ShortBurstFailsBatch(t *testing.T) {
	mp := newMockPort()
	mp.script([]byte{0xFF, 0xFF, 2}) // less than one status frame
	bus, _ := NewBus(mp, WithLatency(time.Millisecond))

	sr := NewSyncRead(bus, RegPresentPosition, 2)
	sr.Add(2)
	sr.Add(5)

	res := sr.TxRx()
	assert.NotEqual(t, CommSuccess, res)
	assert.False(t, sr.LastResult())

	for _, id := range []byte{2, 5} {
		ok, _ := sr.IsAvailable(id, RegPresentPosition, 2)
		assert.False(t, ok)
	}
}

func TestSyncRead_Timeout(t *testing.T) {
	mp := newMockPort() // nothing scripted
	bus, _ := NewBus(mp, WithLatency(time.Millisecond))

	sr := NewSyncRead(bus, RegPresentPosition, 2)
	sr.Add(2)

	assert.Equal(t, CommRxTimeout, sr.TxRx())
	assert.False(t, sr.LastResult())
	assert.Equal(t, uint64(1), bus.Metrics().TimeoutCount.Load())
}

func TestSyncRead_Empty(t *testing.T) {
	bus, _ := NewBus(newMockPort())

	sr := NewSyncRead(bus, RegPresentPosition, 2)
	assert.Equal(t, CommNotAvailable, sr.TxRx())
}

func TestSyncRead_IsAvailableWindow(t *testing.T) {
	mp := newMockPort()
	mp.script(burst(statusFrame(2, 0, 10, 20, 30, 40)))
	bus, _ := NewBus(mp, WithLatency(time.Millisecond))

	sr := NewSyncRead(bus, RegPresentPosition, 4)
	sr.Add(2)
	require.Equal(t, CommSuccess, sr.TxRx())

	ok, _ := sr.IsAvailable(2, RegPresentPosition, 4)
	assert.True(t, ok)
	ok, _ = sr.IsAvailable(2, RegPresentSpeed, 2)
	assert.True(t, ok, "inner field of the window")
	assert.Equal(t, uint32(MakeWord(30, 40)), sr.Data(2, RegPresentSpeed, 2))

	ok, _ = sr.IsAvailable(2, RegPresentLoad, 2)
	assert.False(t, ok, "field extends past the window")
	ok, _ = sr.IsAvailable(2, RegGoalPosition, 1)
	assert.False(t, ok, "address below the window")
	ok, _ = sr.IsAvailable(9, RegPresentPosition, 2)
	assert.False(t, ok, "non-member")
}

func TestSyncRead_MembershipChangeAfterRx(t *testing.T) {
	mp := newMockPort()
	mp.script(burst(statusFrame(2, 0, 10, 20)))
	bus, _ := NewBus(mp, WithLatency(time.Millisecond))

	sr := NewSyncRead(bus, RegPresentPosition, 2)
	sr.Add(2)
	require.Equal(t, CommSuccess, sr.TxRx())

	sr.Remove(2)
	ok, _ := sr.IsAvailable(2, RegPresentPosition, 2)
	assert.False(t, ok, "stored reply must not outlive membership")
	assert.Equal(t, uint32(0), sr.Data(2, RegPresentPosition, 2))
}
