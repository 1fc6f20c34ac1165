package sts

// Port is the raw byte channel the engine drives. Implementations wrap a
// physical serial device; the engine depends only on this capability set.
//
// The engine performs its own timeout polling, so Read must not block waiting
// for data: it returns whatever is currently buffered, up to len(p),
// immediately. Write must fail loudly when the channel is not open.
type Port interface {
	// Open opens the underlying channel. Opening an already-open port
	// reopens it.
	Open() error

	// Close closes the underlying channel. Closing is the only way to
	// interrupt an in-flight transaction from outside the engine.
	Close() error

	// Read copies currently buffered bytes into p and returns the count.
	// It returns 0 when nothing is buffered.
	Read(p []byte) (int, error)

	// Write transmits p and returns the number of bytes written. It fails
	// with ErrPortNotOpen when the channel is not open.
	Write(p []byte) (int, error)

	// BytesAvailable returns the number of bytes currently buffered for Read.
	BytesAvailable() int

	// Flush discards any buffered input.
	Flush() error

	// BaudRate returns the configured baud rate; the engine derives all
	// receive budgets from it.
	BaudRate() int
}
