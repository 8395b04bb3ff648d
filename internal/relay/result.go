package relay

import "time"

// Loop identifies one of the two relay loops
type Loop string

const (
	// Inbound is the connection -> console loop
	Inbound Loop = "inbound"
	// Outbound is the console -> connection loop
	Outbound Loop = "outbound"
)

// Reason tags why a loop stopped
type Reason string

const (
	// ReasonQuit means the user typed the sentinel
	ReasonQuit Reason = "quit"
	// ReasonInputClosed means console input reached EOF
	ReasonInputClosed Reason = "input closed"
	// ReasonInputFailed means reading console input failed
	ReasonInputFailed Reason = "input failed"
	// ReasonSendFailed means a write to the connection failed
	ReasonSendFailed Reason = "send failed"
	// ReasonPeerClosed means the remote end closed the connection
	ReasonPeerClosed Reason = "peer closed"
	// ReasonReceiveFailed means a read from the connection failed
	ReasonReceiveFailed Reason = "receive failed"
	// ReasonCancelled means the session was already ending
	ReasonCancelled Reason = "cancelled"
)

// Result is the outcome of one loop
type Result struct {
	Loop   Loop
	Reason Reason
	// Err holds the underlying failure, nil for orderly stops
	Err error
	// Bytes counts bytes moved over the connection by this loop
	Bytes int
}

// Failed reports whether the loop stopped because of an error
func (r Result) Failed() bool {
	return r.Err != nil
}

// Summary collects the outcome of a Run call
type Summary struct {
	SessionID string

	// Outbound is nil only when Run returned before the outbound loop stopped
	Outbound *Result

	// Inbound is nil when the inbound loop was still listening as Run returned
	Inbound *Result

	// EndedBy is the loop whose completion ended Run; empty on interrupt
	EndedBy Loop

	// Interrupted is set when the context was cancelled
	Interrupted bool

	Duration time.Duration
}
