package relay

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/julienstroheker/tcprelay/internal/logging"
	"github.com/julienstroheker/tcprelay/internal/transport"
	"golang.org/x/text/encoding/unicode"
)

// ReceivedPrefix precedes every chunk printed by the inbound loop
const ReceivedPrefix = "Received: "

// decodeChunk decodes one received chunk as UTF-8, replacing invalid sequences with U+FFFD
func decodeChunk(chunk []byte) string {
	decoded, err := unicode.UTF8.NewDecoder().Bytes(chunk)
	if err != nil {
		// the decoder replaces invalid input instead of failing
		return string(chunk)
	}
	return string(decoded)
}

// receiveLoop moves bytes from the connection to the console until the peer
// closes, a read fails or the context is cancelled
func (r *Relay) receiveLoop(ctx context.Context) Result {
	log := r.logger.With(logging.String("loop", string(Inbound)))
	result := Result{Loop: Inbound}
	buf := make([]byte, r.bufferSize)
	deadliner, _ := r.conn.(transport.Deadliner)

	for {
		if r.readTimeout > 0 && deadliner != nil {
			_ = deadliner.SetReadDeadline(time.Now().Add(r.readTimeout))
		}

		n, err := r.conn.Read(buf)
		if n > 0 {
			result.Bytes += n
			log.Debug("Chunk received", logging.Int("bytes", n))
			r.console.Println(ReceivedPrefix + decodeChunk(buf[:n]))
		}
		if err == nil {
			continue
		}

		switch {
		case ctx.Err() != nil:
			result.Reason = ReasonCancelled
			log.Debug("Inbound loop cancelled")
		case errors.Is(err, io.EOF):
			result.Reason = ReasonPeerClosed
			log.Info("Connection closed by remote host", logging.Int("bytes", result.Bytes))
			r.console.Println("Connection closed by remote host")
		default:
			result.Reason = ReasonReceiveFailed
			result.Err = &TransferError{Direction: Receive, Err: err}
			log.Warn("Receive failed", logging.Error(err))
			r.console.Printf("Error receiving data: %v\n", err)
		}
		return result
	}
}
