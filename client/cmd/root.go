package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/julienstroheker/tcprelay/internal/config"
	"github.com/julienstroheker/tcprelay/internal/logging"
	"github.com/julienstroheker/tcprelay/internal/relay"
	"github.com/spf13/cobra"
)

const (
	exitOK              = 0
	exitUsage           = 1
	exitConnectionError = 2

	usageText = `Usage: tcprelay <host> <port> [flags]
Example: tcprelay localhost 8080
`
)

// cli holds the state shared by the root command and its subcommands
type cli struct {
	cfg         *config.Config
	logger      *logging.Logger
	configFlag  string
	verboseFlag bool
	jsonFlag    bool
	relayFlags  relayFlags
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "tcprelay <host> <port>",
		Short: "Relay console lines to a TCP peer and print what comes back",
		Long: `tcprelay - connect to <host>:<port>, send each typed line as raw bytes and
print every chunk received as "Received: <text>". Type quit to leave.`,
		Example:           "  tcprelay localhost 8080\n  tcprelay --transport websocket --path /ws localhost 9999",
		Args:              validateTarget,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		RunE:              c.runRelay,
	}

	// Disable default completion and help commands
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &relay.UsageError{Msg: "invalid flags", Err: err}
	})

	rootCmd.PersistentFlags().StringVarP(&c.configFlag, "config", "c", "", "Config file (yaml, json or toml); environment variables take precedence")
	rootCmd.PersistentFlags().BoolVarP(&c.verboseFlag, "verbose", "v", false, "Enable verbose logging (debug level)")
	rootCmd.PersistentFlags().BoolVar(&c.jsonFlag, "json", false, "Output logs in JSON format")
	bindRelayFlags(rootCmd.Flags(), &c.relayFlags)
	return rootCmd
}

// setup loads configuration and initialises the logger before any command runs
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(c.configFlag)
	if err != nil {
		return &relay.UsageError{Msg: "invalid configuration source", Err: err}
	}
	c.relayFlags.apply(cmd.Root().Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return &relay.UsageError{Msg: "invalid settings", Err: err}
	}
	c.cfg = cfg

	level := logging.ParseLevel(cfg.LogLevel)
	if c.verboseFlag {
		level = logging.DebugLevel
	}
	format := logging.FormatConsole
	if c.jsonFlag {
		format = logging.FormatJSON
	}

	c.logger = logging.NewWithOutput(level, cmd.ErrOrStderr())
	c.logger.SetFormat(format)
	c.logger.Debug("Logger initialized",
		logging.String("level", level.String()),
		logging.String("format", format.String()),
	)
	return nil
}

// validateTarget accepts exactly a host and a port
func validateTarget(_ *cobra.Command, args []string) error {
	if len(args) != 2 {
		return &relay.UsageError{Msg: fmt.Sprintf("expected <host> <port>, got %d argument(s)", len(args))}
	}
	return nil
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var connErr *relay.ConnectionError
	if errors.As(err, &connErr) {
		return exitConnectionError
	}
	return exitUsage
}

// run executes the command tree against the given streams and returns the exit status.
// Diagnostics go to stdout next to the session output; logs go to stderr.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(stdout, "Error: %v\n", err)
	var usageErr *relay.UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprint(stdout, usageText)
	}
	// a failed connect still ends with the closed-connection notice
	var connErr *relay.ConnectionError
	if errors.As(err, &connErr) {
		fmt.Fprintln(stdout, "Disconnected")
	}
	return exitCode(err)
}

// Execute runs the root command and exits with its status
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
