package relay

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/julienstroheker/tcprelay/internal/config"
	"github.com/julienstroheker/tcprelay/internal/logging"
	"github.com/julienstroheker/tcprelay/internal/transport"
)

// Sentinel is the console line that ends the session, compared case-insensitively
const Sentinel = "quit"

// IsSentinel reports whether a console line (without its terminator) ends the session
func IsSentinel(line string) bool {
	return strings.EqualFold(line, Sentinel)
}

// Options configures a Relay
type Options struct {
	// Input is the console input; nil behaves as an empty stream
	Input io.Reader

	// Output receives prompts, received data and diagnostics
	Output io.Writer

	// Logger receives diagnostics; nil discards them
	Logger *logging.Logger

	// BufferSize is the largest chunk read per receive (config.DefaultBufferSize when zero)
	BufferSize int

	// ReadTimeout bounds each receive on connections that support deadlines. Zero waits forever.
	ReadTimeout time.Duration

	// Prompt is printed before each console read; empty prints nothing
	Prompt string

	// ExitOnRemoteClose ends Run when the inbound loop stops
	ExitOnRemoteClose bool

	// SessionID tags log entries; a random UUID when empty
	SessionID string
}

// Relay runs the inbound and outbound loops over one connection
type Relay struct {
	conn              transport.Connection
	input             *bufio.Reader
	console           *Console
	logger            *logging.Logger
	bufferSize        int
	readTimeout       time.Duration
	prompt            string
	exitOnRemoteClose bool
	sessionID         string

	closeOnce sync.Once
	closeErr  error
}

// Connect dials host:port and wraps any failure in a *ConnectionError
func Connect(ctx context.Context, dialer transport.Dialer, host string, port int) (transport.Connection, error) {
	conn, err := dialer.Dial(ctx, host, port)
	if err != nil {
		return nil, &ConnectionError{Host: host, Port: port, Err: err}
	}
	return conn, nil
}

// New creates a Relay that owns conn
func New(conn transport.Connection, opts *Options) *Relay {
	if opts == nil {
		opts = &Options{}
	}

	input := opts.Input
	if input == nil {
		input = strings.NewReader("")
	}

	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = config.DefaultBufferSize
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Relay{
		conn:              conn,
		input:             bufio.NewReader(input),
		console:           NewConsole(opts.Output),
		logger:            logger.With(logging.String("session_id", sessionID)),
		bufferSize:        bufferSize,
		readTimeout:       opts.ReadTimeout,
		prompt:            opts.Prompt,
		exitOnRemoteClose: opts.ExitOnRemoteClose,
		sessionID:         sessionID,
	}
}

// SessionID returns the identifier used in this relay's log entries
func (r *Relay) SessionID() string {
	return r.sessionID
}

// Console returns the serialised output shared by both loops
func (r *Relay) Console() *Console {
	return r.console
}

// Run starts both loops and blocks until the outbound loop stops, the context
// is cancelled, or (with ExitOnRemoteClose) the inbound loop stops. The
// inbound loop is cancelled, not awaited, when Run returns.
func (r *Relay) Run(ctx context.Context) Summary {
	started := time.Now()
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.logger.Info("Relay session started",
		logging.Int("buffer_size", r.bufferSize),
		logging.Duration("read_timeout", r.readTimeout))

	inboundDone := make(chan Result, 1)
	outboundDone := make(chan Result, 1)
	go func() { inboundDone <- r.receiveLoop(loopCtx) }()
	go func() { outboundDone <- r.sendLoop(loopCtx) }()

	summary := Summary{SessionID: r.sessionID}

	for {
		select {
		case res := <-outboundDone:
			summary.Outbound = &res
			summary.EndedBy = Outbound
			if res.Reason == ReasonCancelled && ctx.Err() != nil {
				summary.Interrupted = true
				summary.EndedBy = ""
				r.console.Println("\nShutting down...")
			}
			select {
			case in := <-inboundDone:
				summary.Inbound = &in
			default:
			}
			return r.finish(summary, started)

		case res := <-inboundDone:
			summary.Inbound = &res
			inboundDone = nil
			if r.exitOnRemoteClose && res.Reason != ReasonCancelled {
				summary.EndedBy = Inbound
				return r.finish(summary, started)
			}

		case <-ctx.Done():
			summary.Interrupted = true
			r.console.Println("\nShutting down...")
			return r.finish(summary, started)
		}
	}
}

func (r *Relay) finish(summary Summary, started time.Time) Summary {
	summary.Duration = time.Since(started)
	r.logger.Info("Relay session finished",
		logging.String("ended_by", string(summary.EndedBy)),
		logging.Bool("interrupted", summary.Interrupted),
		logging.Duration("duration", summary.Duration))
	return summary
}

// Close closes the connection once and reports the disconnect on the console.
// Later calls return the first call's error.
func (r *Relay) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.conn.Close()
		if r.closeErr != nil {
			r.logger.Warn("Closing connection failed", logging.Error(r.closeErr))
		}
		r.console.Println("Disconnected")
	})
	return r.closeErr
}
