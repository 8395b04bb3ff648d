package transport

import (
	"context"
	"net"
	"time"
)

// TCPDialer opens plain TCP connections
type TCPDialer struct {
	// Timeout bounds the connect handshake. Zero means no limit beyond the OS default.
	Timeout time.Duration
}

// Dial connects to host:port over TCP. The returned connection is a *net.TCPConn.
func (d *TCPDialer) Dial(ctx context.Context, host string, port int) (Connection, error) {
	addr, err := Address(host, port)
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

var _ Dialer = (*TCPDialer)(nil)
