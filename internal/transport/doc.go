// Package transport provides the byte streams the relay runs over.
//
// A Dialer turns a (host, port) pair into a Connection, which is nothing more
// than an io.ReadWriteCloser. Three dialers exist:
//
//   - TCPDialer opens a plain TCP stream. This is the default.
//   - WebSocketDialer opens ws://host:port/path and carries the same raw bytes
//     as binary messages. It adds no framing visible to the relay.
//   - MemoryDialer hands out in-memory pipe pairs so tests can play the remote
//     peer without touching the network.
//
// Connections returned by TCPDialer and WebSocketDialer also implement
// Deadliner, which the relay uses to apply an optional per-read timeout.
package transport
