package config

// Transport names the wire used to reach the peer. Both carry the same raw
// bytes; neither adds framing visible to the relay.
type Transport string

const (
	// TransportTCP is a plain TCP stream and the default
	TransportTCP Transport = "tcp"

	// TransportWebSocket upgrades ws://host:port/path and sends each console
	// line as one binary message
	TransportWebSocket Transport = "websocket"
)

// IsValid reports whether a dialer exists for t
func (t Transport) IsValid() bool {
	switch t {
	case TransportTCP, TransportWebSocket:
		return true
	}
	return false
}

func (t Transport) String() string {
	return string(t)
}
