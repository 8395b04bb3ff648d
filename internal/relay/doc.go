// Package relay connects the console to a remote peer over a single
// connection.
//
// A session is two goroutines sharing one transport.Connection:
//
//   - the inbound loop reads chunks from the connection and prints each one
//     as "Received: <text>", decoding UTF-8 with invalid bytes replaced;
//   - the outbound loop reads console lines and writes their bytes to the
//     connection until the user types quit (any letter case).
//
// Only the inbound loop reads the connection and only the outbound loop
// writes it. Run blocks until the outbound loop stops or the context is
// cancelled; the inbound loop is not joined, it is cancelled through the
// context Run derives for it. Each loop reports a Result and Run collects
// them into a Summary. Transfer failures end only the loop that saw them.
//
// Close releases the connection exactly once and prints "Disconnected".
//
// # Usage Example
//
//	conn, err := relay.Connect(ctx, &transport.TCPDialer{}, "localhost", 8080)
//	if err != nil {
//	    return err // *relay.ConnectionError
//	}
//	r := relay.New(conn, &relay.Options{Input: os.Stdin, Output: os.Stdout})
//	defer r.Close()
//	summary := r.Run(ctx)
package relay
