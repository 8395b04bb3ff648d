package relay

import (
	"fmt"
	"net"
	"strconv"
)

// UsageError reports malformed command-line input. No connection is attempted.
type UsageError struct {
	Msg string
	Err error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// ConnectionError reports a failure to establish the connection
type ConnectionError struct {
	Host string
	Port int
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", net.JoinHostPort(e.Host, strconv.Itoa(e.Port)), e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Direction names the side of the connection a transfer used
type Direction string

const (
	// Send is a write to the connection
	Send Direction = "send"
	// Receive is a read from the connection
	Receive Direction = "receive"
)

// TransferError reports a failed send or receive. It ends the loop that saw it
// and is recorded in that loop's Result.
type TransferError struct {
	Direction Direction
	Err       error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Direction, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// ParsePort converts a command-line port into an integer in 1..65535
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, &UsageError{Msg: fmt.Sprintf("invalid port %q", s), Err: err}
	}
	if port < 1 || port > 65535 {
		return 0, &UsageError{Msg: fmt.Sprintf("invalid port %q: must be between 1 and 65535", s)}
	}
	return port, nil
}
