package transport

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrDialerClosed is returned when dialing or accepting on a closed MemoryDialer
var ErrDialerClosed = errors.New("memory dialer is closed")

// memoryConnection is one end of an in-memory bidirectional pipe
type memoryConnection struct {
	reader *io.PipeReader
	writer *io.PipeWriter
	mu     sync.Mutex
	closed bool
	closes int
}

// Read reads data written by the other end
func (c *memoryConnection) Read(p []byte) (int, error) {
	if c.isClosed() {
		return 0, ErrConnectionClosed
	}
	return c.reader.Read(p)
}

// Write writes data for the other end to read
func (c *memoryConnection) Write(p []byte) (int, error) {
	if c.isClosed() {
		return 0, ErrConnectionClosed
	}
	return c.writer.Write(p)
}

// Close closes both pipe halves; the other end then reads io.EOF
func (c *memoryConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.reader.Close()
	_ = c.writer.Close()
	return nil
}

func (c *memoryConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// CloseCalls reports how many times Close was called on c, or -1 if c is not
// an in-memory connection
func CloseCalls(c Connection) int {
	mc, ok := c.(*memoryConnection)
	if !ok {
		return -1
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.closes
}

// MemoryDialer hands out in-memory connections. The remote end of each dialed
// connection is delivered through Accept.
type MemoryDialer struct {
	peers  chan Connection
	mu     sync.Mutex
	closed bool

	// Err, when set, is returned by Dial instead of connecting
	Err error
}

// NewMemoryDialer creates a MemoryDialer
func NewMemoryDialer() *MemoryDialer {
	return &MemoryDialer{
		peers: make(chan Connection, 10),
	}
}

// Dial creates a connected pair and queues the remote end for Accept
func (d *MemoryDialer) Dial(ctx context.Context, host string, port int) (Connection, error) {
	if _, err := Address(host, port); err != nil {
		return nil, err
	}
	if d.Err != nil {
		return nil, d.Err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDialerClosed
	}

	// local writes -> remote reads
	remoteReader, localWriter := io.Pipe()
	// remote writes -> local reads
	localReader, remoteWriter := io.Pipe()

	local := &memoryConnection{reader: localReader, writer: localWriter}
	remote := &memoryConnection{reader: remoteReader, writer: remoteWriter}

	select {
	case d.peers <- remote:
		return local, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Accept returns the remote end of the next dialed connection
func (d *MemoryDialer) Accept(ctx context.Context) (Connection, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case conn, ok := <-d.peers:
		if !ok {
			return nil, ErrDialerClosed
		}
		return conn, nil
	}
}

// Close stops the dialer; pending Accept calls return ErrDialerClosed
func (d *MemoryDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	close(d.peers)
	return nil
}

var (
	_ Dialer     = (*MemoryDialer)(nil)
	_ Connection = (*memoryConnection)(nil)
)
