package echo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienstroheker/tcprelay/internal/logging"
)

// WebSocketServer echoes every websocket message back to its sender
type WebSocketServer struct {
	listenAddr string
	path       string
	logger     *logging.Logger
	upgrader   websocket.Upgrader
	server     *http.Server
	listener   net.Listener
	done       chan struct{}
	mu         sync.Mutex
	conns      map[*websocket.Conn]struct{}
}

// NewWebSocketServer creates a websocket echo server
func NewWebSocketServer(opts *Options) *WebSocketServer {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	path := opts.Path
	if path == "" {
		path = "/"
	}

	s := &WebSocketServer{
		listenAddr: opts.ListenAddr,
		path:       path,
		logger:     logger,
		conns:      make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handle)
	if path != HealthPath {
		mux.HandleFunc(HealthPath, healthHandler)
	}
	s.server = &http.Server{
		Handler:           logRequests(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the upgrade and health handlers, for mounting on an existing server
func (s *WebSocketServer) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listener and serves in the background
func (s *WebSocketServer) Start(ctx context.Context) error {
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
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Websocket echo server stopped", logging.Error(err))
		}
	}()

	s.logger.Info("Websocket echo server listening",
		logging.String("addr", listener.Addr().String()),
		logging.String("path", s.path))
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *WebSocketServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close shuts the HTTP server down and closes upgraded connections, which the
// HTTP server no longer tracks
func (s *WebSocketServer) Close() error {
	if s.listener == nil {
		return nil
	}
	err := s.server.Close()

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	<-s.done
	return err
}

func (s *WebSocketServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", logging.Error(err))
		return
	}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	log := s.logger.With(logging.String("conn_id", uuid.New().String()), logging.String("remote", r.RemoteAddr))
	log.Info("Peer connected")

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("Echo stopped with error", logging.Error(err))
			}
			log.Info("Peer disconnected")
			return
		}
		if err := conn.WriteMessage(messageType, data); err != nil {
			log.Debug("Echo write failed", logging.Error(err))
			return
		}
	}
}
