package sts

// mockPort is an in-memory Port for transaction tests. Written frames are
// recorded; each Write stages the next scripted reply so the following reads
// observe it, which models the request/reply discipline of the real bus.
type mockPort struct {
	opened bool
	baud   int

	frames  [][]byte // recorded instruction frames, in transmit order
	replies [][]byte // scripted reply buffers, consumed one per Write
	pending []byte   // bytes currently readable

	chunk      int // max bytes served per Read; 0 means unlimited
	writeErr   error
	shortWrite bool
}

func newMockPort() *mockPort {
	return &mockPort{opened: true, baud: 1000000}
}

func (m *mockPort) script(replies ...[]byte) {
	m.replies = append(m.replies, replies...)
}

func (m *mockPort) Open() error {
	m.opened = true
	return nil
}

func (m *mockPort) Close() error {
	m.opened = false
	return nil
}

func (m *mockPort) Read(p []byte) (int, error) {
	if len(m.pending) == 0 {
		return 0, nil
	}

	n := len(m.pending)
	if m.chunk > 0 && n > m.chunk {
		n = m.chunk
	}
	if n > len(p) {
		n = len(p)
	}

	copy(p, m.pending[:n])
	m.pending = m.pending[n:]

	return n, nil
}

func (m *mockPort) Write(p []byte) (int, error) {
	if !m.opened {
		return 0, ErrPortNotOpen
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}

	frame := make([]byte, len(p))
	copy(frame, p)
	m.frames = append(m.frames, frame)

	if len(m.replies) > 0 {
		m.pending = append(m.pending, m.replies[0]...)
		m.replies = m.replies[1:]
	}

	if m.shortWrite {
		return len(p) - 1, nil
	}

	return len(p), nil
}

func (m *mockPort) BytesAvailable() int { return len(m.pending) }

func (m *mockPort) Flush() error {
	m.pending = nil
	return nil
}

func (m *mockPort) BaudRate() int { return m.baud }

var _ Port = (*mockPort)(nil)
