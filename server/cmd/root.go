package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienstroheker/tcprelay/internal/config"
	"github.com/julienstroheker/tcprelay/internal/echo"
	"github.com/julienstroheker/tcprelay/internal/logging"
	"github.com/spf13/cobra"
)

const defaultListenAddr = "127.0.0.1:9999"

type echoServer interface {
	Start(ctx context.Context) error
	Addr() net.Addr
	Close() error
}

// server holds the flags and runtime state of the echo peer command
type server struct {
	logger        *logging.Logger
	configFlag    string
	verboseFlag   bool
	jsonFlag      bool
	listenFlag    string
	websocketFlag bool
	pathFlag      string
}

func newRootCmd() *cobra.Command {
	s := &server{}

	rootCmd := &cobra.Command{
		Use:   "tcprelay-echo",
		Short: "Run a local peer that sends every byte back",
		Long: `tcprelay-echo - a local peer that sends every byte it receives back to the sender,
for trying tcprelay without a real server`,
		Example:           "  tcprelay-echo --listen 127.0.0.1:9999\n  tcprelay-echo --websocket --path /ws",
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: s.setup,
		RunE:              s.serve,
	}

	// Disable default completion and help commands
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&s.configFlag, "config", "c", "", "Config file (yaml, json or toml); only the log level is used")
	rootCmd.PersistentFlags().BoolVarP(&s.verboseFlag, "verbose", "v", false, "Enable verbose logging (debug level)")
	rootCmd.PersistentFlags().BoolVar(&s.jsonFlag, "json", false, "Output logs in JSON format")
	rootCmd.Flags().StringVarP(&s.listenFlag, "listen", "l", defaultListenAddr, "Address to listen on")
	rootCmd.Flags().BoolVar(&s.websocketFlag, "websocket", false, "Serve websocket connections instead of raw TCP")
	rootCmd.Flags().StringVar(&s.pathFlag, "path", config.DefaultWebSocketPath, "Websocket upgrade path")
	return rootCmd
}

func (s *server) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(s.configFlag)
	if err != nil {
		return err
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if s.verboseFlag {
		level = logging.DebugLevel
	}
	format := logging.FormatConsole
	if s.jsonFlag {
		format = logging.FormatJSON
	}

	s.logger = logging.NewWithOutput(level, cmd.ErrOrStderr())
	s.logger.SetFormat(format)
	return nil
}

func (s *server) serve(cmd *cobra.Command, _ []string) error {
	opts := &echo.Options{ListenAddr: s.listenFlag, Path: s.pathFlag, Logger: s.logger}

	var srv echoServer = echo.NewTCPServer(opts)
	if s.websocketFlag {
		srv = echo.NewWebSocketServer(opts)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}
	cmd.Printf("Echo server listening on %s\n", srv.Addr())

	<-ctx.Done()
	cmd.Println("Shutting down...")
	if err := srv.Close(); err != nil {
		return err
	}
	cmd.Println("Echo server stopped")
	return nil
}

// run executes the command against the given streams and returns the exit status
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}
	return 0
}

// Execute runs the echo peer and exits with its status
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
