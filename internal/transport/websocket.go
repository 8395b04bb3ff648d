package transport

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultHandshakeTimeout = 30 * time.Second

// WebSocketDialer opens ws:// connections and exposes them as byte streams
type WebSocketDialer struct {
	// Path is the request path, "/" when empty
	Path string

	// Timeout bounds the websocket handshake; 30s when zero
	Timeout time.Duration
}

// Dial connects to ws://host:port/path
func (d *WebSocketDialer) Dial(ctx context.Context, host string, port int) (Connection, error) {
	addr, err := Address(host, port)
	if err != nil {
		return nil, err
	}

	path := d.Path
	if path == "" {
		path = "/"
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: path}

	timeout := d.Timeout
	if timeout == 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake with %s failed (status %d): %w", u.String(), resp.StatusCode, err)
		}
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	return NewWebSocketConnection(conn), nil
}

// wsConnection adapts a websocket connection to a byte stream. Each Write is
// sent as one binary message; Read drains messages in arrival order.
type wsConnection struct {
	conn    *websocket.Conn
	buffer  []byte
	readMu  sync.Mutex
	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

// NewWebSocketConnection wraps an established websocket connection
func NewWebSocketConnection(conn *websocket.Conn) Connection {
	return &wsConnection{conn: conn}
}

// Read reads data from the connection
func (c *wsConnection) Read(p []byte) (int, error) {
	if c.isClosed() {
		return 0, ErrConnectionClosed
	}

	c.readMu.Lock()
	defer c.readMu.Unlock()

	for len(c.buffer) == 0 {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
			return 0, fmt.Errorf("unexpected message type: %d", messageType)
		}
		c.buffer = data
	}

	n := copy(p, c.buffer)
	c.buffer = c.buffer[n:]
	return n, nil
}

// Write sends p as a single binary message
func (c *wsConnection) Write(p []byte) (int, error) {
	if c.isClosed() {
		return 0, ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SetReadDeadline sets the deadline for the next message read
func (c *wsConnection) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close sends a close frame on a best-effort basis and closes the socket
func (c *wsConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	return c.conn.Close()
}

func (c *wsConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var (
	_ Dialer     = (*WebSocketDialer)(nil)
	_ Connection = (*wsConnection)(nil)
	_ Deadliner  = (*wsConnection)(nil)
)
