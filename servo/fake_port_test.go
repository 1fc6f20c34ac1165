package servo

import (
	"github.com/Mickael-Roger/go-st3215/sts"
)

// fakePort is an in-memory sts.Port. Written frames are recorded; each write
// stages the next scripted reply so the following reads observe it.
type fakePort struct {
	frames  [][]byte
	replies [][]byte
	pending []byte
}

func newFakePort() *fakePort {
	return &fakePort{}
}

func (f *fakePort) script(replies ...[]byte) {
	f.replies = append(f.replies, replies...)
}

func (f *fakePort) Open() error  { return nil }
func (f *fakePort) Close() error { return nil }

func (f *fakePort) Read(p []byte) (int, error) {
	n := copy(p, f.pending)
	f.pending = f.pending[n:]

	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	frame := make([]byte, len(p))
	copy(frame, p)
	f.frames = append(f.frames, frame)

	if len(f.replies) > 0 {
		f.pending = append(f.pending, f.replies[0]...)
		f.replies = f.replies[1:]
	}

	return len(p), nil
}

func (f *fakePort) BytesAvailable() int { return len(f.pending) }

func (f *fakePort) Flush() error {
	f.pending = nil
	return nil
}

func (f *fakePort) BaudRate() int { return sts.DefaultBaudRate }

var _ sts.Port = (*fakePort)(nil)

// reply builds a valid status frame.
func reply(id byte, errByte byte, params ...byte) []byte {
	frame := []byte{0xFF, 0xFF, id, byte(len(params) + 2), errByte}
	frame = append(frame, params...)

	var sum byte
	for _, b := range frame[2:] {
		sum += b
	}
	frame = append(frame, ^sum)

	return frame
}

// emptyReply builds a status frame with no parameters.
func emptyReply(id byte) []byte { return reply(id, 0) }
