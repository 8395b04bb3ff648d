package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/julienstroheker/tcprelay/internal/config"
	"github.com/julienstroheker/tcprelay/internal/echo"
)

func TestAddress(t *testing.T) {
	tests := []struct {
		host    string
		port    int
		want    string
		wantErr bool
	}{
		{"localhost", 8080, "localhost:8080", false},
		{"127.0.0.1", 1, "127.0.0.1:1", false},
		{"::1", 65535, "[::1]:65535", false},
		{"localhost", 0, "", true},
		{"localhost", 65536, "", true},
		{"localhost", -1, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.want+strconv.Itoa(tt.port), func(t *testing.T) {
			got, err := Address(tt.host, tt.port)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPort) {
					t.Errorf("Expected ErrInvalidPort, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.DialTimeout = 3 * time.Second

	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	tcp, ok := d.(*TCPDialer)
	if !ok {
		t.Fatalf("Expected *TCPDialer, got %T", d)
	}
	if tcp.Timeout != 3*time.Second {
		t.Errorf("Expected timeout to carry over, got %v", tcp.Timeout)
	}

	cfg.Transport = config.TransportWebSocket
	cfg.WebSocketPath = "/echo"
	d, err = New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ws, ok := d.(*WebSocketDialer)
	if !ok {
		t.Fatalf("Expected *WebSocketDialer, got %T", d)
	}
	if ws.Path != "/echo" {
		t.Errorf("Expected path /echo, got %q", ws.Path)
	}

	cfg.Transport = "carrier-pigeon"
	if _, err := New(cfg); err == nil {
		t.Error("Expected error for unknown transport")
	}
}

func listenerPort(t *testing.T, l net.Listener) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort failed: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func TestTCPDialer_Dial(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer listener.Close()

	accepted := make(chan []byte, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		accepted <- data
	}()

	host, port := listenerPort(t, listener)
	conn, err := (&TCPDialer{}).Dial(context.Background(), host, port)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if _, ok := conn.(Deadliner); !ok {
		t.Error("Expected TCP connection to support read deadlines")
	}

	_, _ = conn.Write([]byte("ping"))
	_ = conn.Close()

	select {
	case data := <-accepted:
		if string(data) != "ping" {
			t.Errorf("Expected %q, got %q", "ping", string(data))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for peer")
	}
}

func TestTCPDialer_Refused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	host, port := listenerPort(t, listener)
	_ = listener.Close()

	if _, err := (&TCPDialer{Timeout: 2 * time.Second}).Dial(context.Background(), host, port); err == nil {
		t.Error("Expected dial to a closed port to fail")
	}
}

func TestTCPDialer_InvalidPort(t *testing.T) {
	if _, err := (&TCPDialer{}).Dial(context.Background(), "localhost", 70000); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("Expected ErrInvalidPort, got: %v", err)
	}
}

func TestMemoryDialer_Pair(t *testing.T) {
	dialer := NewMemoryDialer()
	defer dialer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	local, err := dialer.Dial(ctx, "memory", 1)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	remote, err := dialer.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	go func() { _, _ = local.Write([]byte("to remote")) }()
	buf := make([]byte, 64)
	n, err := remote.Read(buf)
	if err != nil {
		t.Fatalf("Remote read failed: %v", err)
	}
	if string(buf[:n]) != "to remote" {
		t.Errorf("Expected %q, got %q", "to remote", string(buf[:n]))
	}

	go func() { _, _ = remote.Write([]byte("to local")) }()
	n, err = local.Read(buf)
	if err != nil {
		t.Fatalf("Local read failed: %v", err)
	}
	if string(buf[:n]) != "to local" {
		t.Errorf("Expected %q, got %q", "to local", string(buf[:n]))
	}

	// Closing one end is seen as EOF on the other
	_ = remote.Close()
	if _, err := local.Read(buf); err != io.EOF {
		t.Errorf("Expected io.EOF after remote close, got: %v", err)
	}

	_ = local.Close()
	_ = local.Close()
	if got := CloseCalls(local); got != 2 {
		t.Errorf("Expected 2 close calls recorded, got %d", got)
	}
	if _, err := local.Write([]byte("late")); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed, got: %v", err)
	}
}

func TestMemoryDialer_Errors(t *testing.T) {
	dialer := NewMemoryDialer()
	dialer.Err = errors.New("connection refused")
	if _, err := dialer.Dial(context.Background(), "memory", 1); err == nil || err.Error() != "connection refused" {
		t.Errorf("Expected injected error, got: %v", err)
	}

	dialer = NewMemoryDialer()
	_ = dialer.Close()
	if _, err := dialer.Dial(context.Background(), "memory", 1); !errors.Is(err, ErrDialerClosed) {
		t.Errorf("Expected ErrDialerClosed from Dial, got: %v", err)
	}
	if _, err := dialer.Accept(context.Background()); !errors.Is(err, ErrDialerClosed) {
		t.Errorf("Expected ErrDialerClosed from Accept, got: %v", err)
	}
	if got := CloseCalls(nil); got != -1 {
		t.Errorf("Expected -1 for non-memory connection, got %d", got)
	}
}

func TestWebSocketDialer_RoundTrip(t *testing.T) {
	server := httptest.NewServer(echo.NewWebSocketServer(&echo.Options{Path: "/echo"}).Handler())
	defer server.Close()

	listenerHost, portStr, _ := net.SplitHostPort(server.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	conn, err := (&WebSocketDialer{Path: "/echo"}).Dial(context.Background(), listenerHost, port)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadliner, ok := conn.(Deadliner)
	if !ok {
		t.Fatal("Expected websocket connection to support read deadlines")
	}
	_ = deadliner.SetReadDeadline(time.Now().Add(5 * time.Second))

	if _, err := conn.Write([]byte("hello websocket")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Read in small pieces to exercise message buffering
	var got []byte
	buf := make([]byte, 4)
	for len(got) < len("hello websocket") {
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != "hello websocket" {
		t.Errorf("Expected %q, got %q", "hello websocket", string(got))
	}

	if err := conn.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
	if _, err := conn.Read(buf); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed after close, got: %v", err)
	}
}

func TestWebSocketDialer_HandshakeFailure(t *testing.T) {
	server := httptest.NewServer(echo.NewWebSocketServer(&echo.Options{Path: "/echo"}).Handler())
	defer server.Close()

	host, portStr, _ := net.SplitHostPort(server.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	if _, err := (&WebSocketDialer{Path: "/missing"}).Dial(context.Background(), host, port); err == nil {
		t.Error("Expected handshake failure for unknown path")
	}
}
