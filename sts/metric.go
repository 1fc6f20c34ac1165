package sts

import "sync/atomic"

// BusMetrics contains atomic counters for a Bus.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type BusMetrics struct {
	// TxFrameCount is the number of instruction frames transmitted.
	TxFrameCount atomic.Uint64
	// RxFrameCount is the number of status frames decoded successfully.
	RxFrameCount atomic.Uint64

	// TimeoutCount is the number of receives that expired with no bytes.
	TimeoutCount atomic.Uint64
	// CorruptCount is the number of receives rejected for checksum or
	// framing errors.
	CorruptCount atomic.Uint64
	// DeviceErrorCount is the number of status frames carrying a nonzero
	// error byte.
	DeviceErrorCount atomic.Uint64

	// SyncWriteCount is the number of sync write batches transmitted.
	SyncWriteCount atomic.Uint64
	// SyncReadCount is the number of sync read batches completed (tx + rx).
	SyncReadCount atomic.Uint64
}

func (m *BusMetrics) incTxFrameCount()     { m.TxFrameCount.Add(1) }
func (m *BusMetrics) incRxFrameCount()     { m.RxFrameCount.Add(1) }
func (m *BusMetrics) incTimeoutCount()     { m.TimeoutCount.Add(1) }
func (m *BusMetrics) incCorruptCount()     { m.CorruptCount.Add(1) }
func (m *BusMetrics) incDeviceErrorCount() { m.DeviceErrorCount.Add(1) }
func (m *BusMetrics) incSyncWriteCount()   { m.SyncWriteCount.Add(1) }
func (m *BusMetrics) incSyncReadCount()    { m.SyncReadCount.Add(1) }
