package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienstroheker/tcprelay/internal/config"
	"github.com/julienstroheker/tcprelay/internal/logging"
	"github.com/julienstroheker/tcprelay/internal/relay"
	"github.com/julienstroheker/tcprelay/internal/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// relayFlags mirrors the relay settings that can be overridden on the command line
type relayFlags struct {
	transport         string
	path              string
	readTimeout       time.Duration
	dialTimeout       time.Duration
	bufferSize        int
	prompt            string
	exitOnRemoteClose bool
}

func bindRelayFlags(fs *pflag.FlagSet, f *relayFlags) {
	defaults := config.Default()
	fs.StringVarP(&f.transport, "transport", "t", string(defaults.Transport), "Transport to dial: tcp or websocket")
	fs.StringVar(&f.path, "path", defaults.WebSocketPath, "Request path for the websocket transport")
	fs.DurationVar(&f.readTimeout, "read-timeout", defaults.ReadTimeout, "Give up on the connection after this long without data (0 waits forever)")
	fs.DurationVar(&f.dialTimeout, "dial-timeout", defaults.DialTimeout, "Connection establishment timeout (0 uses the OS default)")
	fs.IntVar(&f.bufferSize, "buffer-size", defaults.BufferSize, "Maximum bytes read from the connection at once")
	fs.StringVar(&f.prompt, "prompt", defaults.Prompt, "Prompt printed before each line of input (empty disables it)")
	fs.BoolVar(&f.exitOnRemoteClose, "exit-on-remote-close", defaults.ExitOnRemoteClose, "End the session when the peer closes the connection")
}

// apply copies explicitly set flags over the environment-derived configuration
func (f *relayFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("transport") {
		cfg.Transport = config.Transport(f.transport)
	}
	if fs.Changed("path") {
		cfg.WebSocketPath = f.path
	}
	if fs.Changed("read-timeout") {
		cfg.ReadTimeout = f.readTimeout
	}
	if fs.Changed("dial-timeout") {
		cfg.DialTimeout = f.dialTimeout
	}
	if fs.Changed("buffer-size") {
		cfg.BufferSize = f.bufferSize
	}
	if fs.Changed("prompt") {
		cfg.Prompt = f.prompt
	}
	if fs.Changed("exit-on-remote-close") {
		cfg.ExitOnRemoteClose = f.exitOnRemoteClose
	}
}

func (c *cli) runRelay(cmd *cobra.Command, args []string) error {
	host := args[0]
	port, err := relay.ParsePort(args[1])
	if err != nil {
		return err
	}

	dialer, err := transport.New(c.cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := c.logger.With(logging.String("host", host), logging.Int("port", port))
	log.Debug("Connecting", logging.String("transport", c.cfg.Transport.String()))

	conn, err := relay.Connect(ctx, dialer, host, port)
	if err != nil {
		log.Error("Connection failed", logging.Error(err))
		return err
	}
	cmd.Printf("Connected to %s:%d\n", host, port)

	r := relay.New(conn, &relay.Options{
		Input:             cmd.InOrStdin(),
		Output:            cmd.OutOrStdout(),
		Logger:            log,
		BufferSize:        c.cfg.BufferSize,
		ReadTimeout:       c.cfg.ReadTimeout,
		Prompt:            c.cfg.Prompt,
		ExitOnRemoteClose: c.cfg.ExitOnRemoteClose,
	})
	defer func() {
		_ = r.Close()
	}()

	logSummary(log, r.Run(ctx))
	return nil
}

// logSummary records how each loop ended
func logSummary(log *logging.Logger, summary relay.Summary) {
	log = log.With(logging.String("session_id", summary.SessionID))
	for _, res := range []*relay.Result{summary.Outbound, summary.Inbound} {
		if res == nil {
			continue
		}
		fields := []logging.Field{
			logging.String("loop", string(res.Loop)),
			logging.String("reason", string(res.Reason)),
			logging.Int("bytes", res.Bytes),
		}
		if res.Failed() {
			log.Warn("Loop stopped with error", append(fields, logging.Error(res.Err))...)
			continue
		}
		log.Info("Loop stopped", fields...)
	}
	log.Info("Session summary",
		logging.String("ended_by", string(summary.EndedBy)),
		logging.Bool("interrupted", summary.Interrupted),
		logging.Duration("duration", summary.Duration))
}
