package sts

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T, mp *mockPort) *Bus {
	t.Helper()

	// Short latency keeps the failure-path polls fast.
	bus, err := NewBus(mp, WithLatency(time.Millisecond))
	require.NoError(t, err)

	return bus
}

func TestNewBus(t *testing.T) {
	_, err := NewBus(nil)
	assert.Error(t, err)

	_, err = NewBus(newMockPort(), WithLatency(time.Hour))
	assert.ErrorIs(t, err, ErrTxError)

	_, err = NewBus(newMockPort(), WithLogger(nil))
	assert.ErrorIs(t, err, ErrTxError)

	bus, err := NewBus(newMockPort())
	require.NoError(t, err)
	assert.NotNil(t, bus.Port())
}

func TestBus_Ping(t *testing.T) {
	mp := newMockPort()
	mp.script(
		statusFrame(1, 0),             // ping reply
		statusFrame(1, 0, 0x09, 0x03), // model number reply: 0x0309 = 777
	)
	bus := newTestBus(t, mp)

	model, res, errBits := bus.Ping(1)
	require.Equal(t, CommSuccess, res)
	assert.Equal(t, uint16(777), model)
	assert.Equal(t, ErrorBits(0), errBits)

	require.Len(t, mp.frames, 2)
	wantPing, _ := EncodeInstruction(1, InstPing, nil)
	assert.Equal(t, wantPing, mp.frames[0])
	wantRead, _ := EncodeInstruction(1, InstRead, []byte{RegModelNumber, 2})
	assert.Equal(t, wantRead, mp.frames[1])

	assert.Equal(t, uint64(2), bus.Metrics().TxFrameCount.Load())
	assert.Equal(t, uint64(2), bus.Metrics().RxFrameCount.Load())
}

func TestBus_PingBroadcast(t *testing.T) {
	bus := newTestBus(t, newMockPort())

	_, res, _ := bus.Ping(BroadcastID)
	assert.Equal(t, CommNotAvailable, res)
}

func TestBus_PingTimeout(t *testing.T) {
	mp := newMockPort() // no scripted reply
	bus := newTestBus(t, mp)

	model, res, _ := bus.Ping(9)
	assert.Equal(t, CommRxTimeout, res)
	assert.Equal(t, uint16(0), model)
	assert.Equal(t, uint64(1), bus.Metrics().TimeoutCount.Load())
}

func TestBus_Read(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		params []byte
		want   uint32
	}{
		{"byte", 1, []byte{0x2A}, 0x2A},
		{"word", 2, []byte{0x34, 0x12}, 0x1234},
		{"dword", 4, []byte{0x78, 0x56, 0x34, 0x12}, 0x12345678},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp := newMockPort()
			mp.script(statusFrame(2, 0, tt.params...))
			bus := newTestBus(t, mp)

			value, res, errBits := bus.Read(2, RegPresentPosition, tt.width)
			require.Equal(t, CommSuccess, res)
			assert.Equal(t, tt.want, value)
			assert.Equal(t, ErrorBits(0), errBits)

			wantFrame, _ := EncodeInstruction(2, InstRead, []byte{RegPresentPosition, byte(tt.width)})
			require.Len(t, mp.frames, 1)
			assert.Equal(t, wantFrame, mp.frames[0])
		})
	}
}

func TestBus_ReadInvalidWidth(t *testing.T) {
	bus := newTestBus(t, newMockPort())

	_, res, _ := bus.Read(1, RegPresentPosition, 3)
	assert.Equal(t, CommNotAvailable, res)

	_, res, _ = bus.Read(BroadcastID, RegPresentPosition, 2)
	assert.Equal(t, CommNotAvailable, res)
}

func TestBus_ReadDeviceError(t *testing.T) {
	mp := newMockPort()
	mp.script(statusFrame(4, byte(ErrBitOverload|ErrBitOverheat), 0x00))
	bus := newTestBus(t, mp)

	_, res, errBits := bus.ReadByte(4, RegPresentTemperature)
	require.Equal(t, CommSuccess, res, "a device-reported fault is not a transport failure")
	assert.True(t, errBits.Has(ErrBitOverload))
	assert.True(t, errBits.Has(ErrBitOverheat))
	assert.False(t, errBits.Has(ErrBitVoltage))
	assert.Equal(t, uint64(1), bus.Metrics().DeviceErrorCount.Load())
}

func TestBus_ReadChunkedDelivery(t *testing.T) {
	mp := newMockPort()
	mp.chunk = 3 // replies dribble in a few bytes per poll
	mp.script(statusFrame(2, 0, 0xE8, 0x03))
	bus := newTestBus(t, mp)

	value, res, _ := bus.ReadWord(2, RegPresentPosition)
	require.Equal(t, CommSuccess, res)
	assert.Equal(t, uint16(1000), value)
}

func TestBus_ReadNoisePrefix(t *testing.T) {
	mp := newMockPort()
	reply := append([]byte{0x00, 0xFF, 0x13}, statusFrame(2, 0, 0x10)...)
	mp.script(reply)
	bus := newTestBus(t, mp)

	value, res, _ := bus.ReadByte(2, RegMode)
	require.Equal(t, CommSuccess, res)
	assert.Equal(t, byte(0x10), value)
}

func TestBus_ReadCorrupt(t *testing.T) {
	mp := newMockPort()
	bad := statusFrame(2, 0, 0x10)
	bad[len(bad)-1] ^= 0xFF
	mp.script(bad)
	bus := newTestBus(t, mp)

	_, res, _ := bus.ReadByte(2, RegMode)
	assert.Equal(t, CommRxCorrupt, res)
	assert.Equal(t, uint64(1), bus.Metrics().CorruptCount.Load())
}

func TestBus_Write(t *testing.T) {
	mp := newMockPort()
	mp.script(statusFrame(3, 0))
	bus := newTestBus(t, mp)

	res, errBits := bus.Write(3, RegGoalPosition, []byte{0x00, 0x08})
	require.Equal(t, CommSuccess, res)
	assert.Equal(t, ErrorBits(0), errBits)

	wantFrame, _ := EncodeInstruction(3, InstWrite, []byte{RegGoalPosition, 0x00, 0x08})
	require.Len(t, mp.frames, 1)
	assert.Equal(t, wantFrame, mp.frames[0])
}

func TestBus_WriteAwaitsEmptyStatus(t *testing.T) {
	mp := newMockPort()
	mp.script(statusFrame(3, byte(ErrBitVoltage)))
	bus := newTestBus(t, mp)

	res, errBits := bus.WriteByte(3, RegTorqueEnable, 1)
	require.Equal(t, CommSuccess, res)
	assert.True(t, errBits.Has(ErrBitVoltage), "error bits must stay observable on writes")
}

func TestBus_WriteBroadcast(t *testing.T) {
	mp := newMockPort() // no reply scripted: broadcast solicits none
	bus := newTestBus(t, mp)

	res, _ := bus.WriteByte(BroadcastID, RegTorqueEnable, 0)
	assert.Equal(t, CommSuccess, res)
	require.Len(t, mp.frames, 1)
}

func TestBus_WriteWord(t *testing.T) {
	mp := newMockPort()
	mp.script(statusFrame(1, 0))
	bus := newTestBus(t, mp)

	res, _ := bus.WriteWord(1, RegGoalSpeed, 0x1234)
	require.Equal(t, CommSuccess, res)

	wantFrame, _ := EncodeInstruction(1, InstWrite, []byte{RegGoalSpeed, 0x34, 0x12})
	assert.Equal(t, wantFrame, mp.frames[0])
}

func TestBus_TransmitFailures(t *testing.T) {
	t.Run("short write", func(t *testing.T) {
		mp := newMockPort()
		mp.shortWrite = true
		bus := newTestBus(t, mp)

		res, _ := bus.WriteByte(1, RegTorqueEnable, 1)
		assert.Equal(t, CommTxFail, res)
	})

	t.Run("port not open", func(t *testing.T) {
		mp := newMockPort()
		mp.opened = false
		bus := newTestBus(t, mp)

		res, _ := bus.WriteByte(1, RegTorqueEnable, 1)
		assert.Equal(t, CommPortBusy, res)
	})

	t.Run("write error", func(t *testing.T) {
		mp := newMockPort()
		mp.writeErr = errors.New("boom")
		bus := newTestBus(t, mp)

		res, _ := bus.WriteByte(1, RegTorqueEnable, 1)
		assert.Equal(t, CommTxFail, res)
	})
}

func TestBus_RegWriteAction(t *testing.T) {
	mp := newMockPort()
	mp.script(statusFrame(6, 0))
	bus := newTestBus(t, mp)

	res, _ := bus.RegWrite(6, RegGoalPosition, []byte{0xE8, 0x03})
	require.Equal(t, CommSuccess, res)

	res = bus.Action(BroadcastID)
	require.Equal(t, CommSuccess, res)

	require.Len(t, mp.frames, 2)
	wantReg, _ := EncodeInstruction(6, InstRegWrite, []byte{RegGoalPosition, 0xE8, 0x03})
	assert.Equal(t, wantReg, mp.frames[0])
	wantAction, _ := EncodeInstruction(BroadcastID, InstAction, nil)
	assert.Equal(t, wantAction, mp.frames[1])
}
