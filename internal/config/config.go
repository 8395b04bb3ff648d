package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultBufferSize is the maximum number of bytes taken from the connection per read
	DefaultBufferSize = 1024

	// DefaultPrompt is printed before each line of console input is read
	DefaultPrompt = "Enter message to send (or 'quit' to exit): "

	// DefaultWebSocketPath is the request path used by the websocket transport
	DefaultWebSocketPath = "/"

	maxBufferSize = 1 << 20
)

// Config holds the relay settings shared by the CLI commands
type Config struct {
	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// Transport selects the dialer (tcp or websocket)
	Transport Transport

	// WebSocketPath is the request path for the websocket transport
	WebSocketPath string

	// ReadTimeout bounds each inbound read. Zero waits indefinitely.
	ReadTimeout time.Duration

	// DialTimeout bounds connection establishment. Zero leaves it to the OS.
	DialTimeout time.Duration

	// BufferSize is the largest chunk read from the connection at once
	BufferSize int

	// Prompt is written before each console read; empty disables it
	Prompt string

	// ExitOnRemoteClose ends the session as soon as the peer closes the connection
	ExitOnRemoteClose bool
}

// Default returns a Config populated with defaults only
func Default() *Config {
	return &Config{
		LogLevel:      "warn",
		Transport:     TransportTCP,
		WebSocketPath: DefaultWebSocketPath,
		BufferSize:    DefaultBufferSize,
		Prompt:        DefaultPrompt,
	}
}

// envPrefix namespaces the environment variables, e.g. TCPRELAY_LOG_LEVEL
const envPrefix = "TCPRELAY"

// Load creates a Config by reading from environment variables
// and applying defaults where values are not set
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an optional config file (yaml, json or toml, chosen by
// extension). Environment variables override values from the file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		LogLevel:      v.GetString("log_level"),
		Transport:     Transport(strings.ToLower(v.GetString("transport"))),
		WebSocketPath: v.GetString("websocket_path"),
		Prompt:        v.GetString("prompt"),
	}

	var err error
	if cfg.ReadTimeout, err = getDuration(v, "read_timeout"); err != nil {
		return nil, err
	}
	if cfg.DialTimeout, err = getDuration(v, "dial_timeout"); err != nil {
		return nil, err
	}
	if cfg.BufferSize, err = getInt(v, "buffer_size"); err != nil {
		return nil, err
	}
	if cfg.ExitOnRemoteClose, err = getBool(v, "exit_on_remote_close"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("transport", string(d.Transport))
	v.SetDefault("websocket_path", d.WebSocketPath)
	v.SetDefault("read_timeout", d.ReadTimeout.String())
	v.SetDefault("dial_timeout", d.DialTimeout.String())
	v.SetDefault("buffer_size", d.BufferSize)
	v.SetDefault("prompt", d.Prompt)
	v.SetDefault("exit_on_remote_close", d.ExitOnRemoteClose)
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	var problems []string

	if !c.Transport.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown transport %q", c.Transport))
	}
	if c.Transport == TransportWebSocket && !strings.HasPrefix(c.WebSocketPath, "/") {
		problems = append(problems, fmt.Sprintf("websocket path must start with '/', got %q", c.WebSocketPath))
	}
	if c.BufferSize < 1 || c.BufferSize > maxBufferSize {
		problems = append(problems, fmt.Sprintf("buffer size must be between 1 and %d, got %d", maxBufferSize, c.BufferSize))
	}
	if c.ReadTimeout < 0 {
		problems = append(problems, "read timeout cannot be negative")
	}
	if c.DialTimeout < 0 {
		problems = append(problems, "dial timeout cannot be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return nil
}

// envName returns the environment variable that sets key
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(key)
}

func getDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (%s) %q: %w", key, envName(key), raw, err)
	}
	return d, nil
}

func getInt(v *viper.Viper, key string) (int, error) {
	raw := v.GetString(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (%s) %q: %w", key, envName(key), raw, err)
	}
	return n, nil
}

func getBool(v *viper.Viper, key string) (bool, error) {
	raw := v.GetString(key)
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s (%s) %q: %w", key, envName(key), raw, err)
	}
	return b, nil
}
