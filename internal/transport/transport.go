package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/julienstroheker/tcprelay/internal/config"
)

var (
	// ErrConnectionClosed is returned when reading or writing a closed connection
	ErrConnectionClosed = errors.New("connection is closed")
	// ErrInvalidPort is returned for ports outside 1..65535
	ErrInvalidPort = errors.New("port must be between 1 and 65535")
)

// Connection is a bidirectional byte stream to the remote peer
type Connection interface {
	io.ReadWriteCloser
}

// Deadliner is implemented by connections that support read deadlines
type Deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Dialer establishes connections to a remote peer
type Dialer interface {
	// Dial connects to host:port
	Dial(ctx context.Context, host string, port int) (Connection, error)
}

// Address joins host and port, validating the port range
func Address(host string, port int) (string, error) {
	if port < 1 || port > 65535 {
		return "", fmt.Errorf("%w, got %d", ErrInvalidPort, port)
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// New builds the dialer selected by the configuration
func New(cfg *config.Config) (Dialer, error) {
	switch cfg.Transport {
	case config.TransportTCP, "":
		return &TCPDialer{Timeout: cfg.DialTimeout}, nil
	case config.TransportWebSocket:
		return &WebSocketDialer{Path: cfg.WebSocketPath, Timeout: cfg.DialTimeout}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
