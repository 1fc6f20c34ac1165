package pool

import "sync"

// Receive buffers churn once per bus transaction, so they are recycled
// through a sync.Pool instead of allocated per call.

const defaultCapacity = 64

var bufferPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, defaultCapacity)
	},
}

// GetBuffer returns a zero-length buffer with capacity of at least size.
//
// Return the buffer to the pool with PutBuffer.
func GetBuffer(size int) []byte {
	buf, _ := bufferPool.Get().([]byte) // Type assertion is safe here since we only put []byte into the pool
	if cap(buf) < size {
		return make([]byte, 0, size)
	}

	return buf[:0]
}

// PutBuffer returns buf to the pool.
//
// buf and any subslice of it cannot be accessed after returning to the pool.
func PutBuffer(buf []byte) {
	bufferPool.Put(buf[:0]) //nolint:staticcheck
}
