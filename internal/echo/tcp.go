// Package echo implements a local peer that writes every byte it receives back
// to the sender. It stands in for the remote server when exercising the relay.
package echo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/julienstroheker/tcprelay/internal/logging"
)

// TCPServer echoes bytes on every accepted TCP connection
type TCPServer struct {
	listenAddr  string
	logger      *logging.Logger
	listener    net.Listener
	mu          sync.Mutex
	closed      bool
	conns       map[string]net.Conn
	connections sync.WaitGroup
	done        chan struct{}
}

// Options configures an echo server
type Options struct {
	// ListenAddr is the address to bind, e.g. "127.0.0.1:9999". Port 0 picks a free port.
	ListenAddr string

	// Path is the websocket upgrade path (websocket server only)
	Path string

	// Logger receives lifecycle and per-connection events; nil discards them
	Logger *logging.Logger
}

// NewTCPServer creates a TCP echo server
func NewTCPServer(opts *Options) *TCPServer {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &TCPServer{
		listenAddr: opts.ListenAddr,
		logger:     logger,
		conns:      make(map[string]net.Conn),
	}
}

// Start binds the listener and serves connections in the background
func (s *TCPServer) Start(ctx context.Context) error {
	if s.listenAddr == "" {
		return fmt.Errorf("echo: listen address is required")
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("echo: failed to listen on %s: %w", s.listenAddr, err)
	}
	s.listener = listener
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.acceptLoop()
	}()

	s.logger.Info("Echo server listening", logging.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *TCPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting, closes open connections and waits for handlers to return
func (s *TCPServer) Close() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()

	s.mu.Lock()
	s.closed = true
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	<-s.done
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *TCPServer) acceptLoop() {
	defer s.connections.Wait()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Error("Accept failed", logging.Error(err))
			}
			return
		}

		id := uuid.New().String()
		if !s.track(id, conn) {
			_ = conn.Close()
			return
		}

		s.connections.Add(1)
		go s.serve(id, conn)
	}
}

// track registers conn for Close, refusing it once Close has started
func (s *TCPServer) track(id string, conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[id] = conn
	return true
}

func (s *TCPServer) serve(id string, conn net.Conn) {
	defer s.connections.Done()
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
	}()

	log := s.logger.With(logging.String("conn_id", id), logging.String("remote", conn.RemoteAddr().String()))
	log.Info("Peer connected")

	n, err := io.Copy(conn, conn)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		log.Debug("Echo stopped with error", logging.Error(err))
	}
	log.Info("Peer disconnected", logging.Int("bytes", int(n)))
}
