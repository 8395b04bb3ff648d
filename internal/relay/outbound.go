package relay

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/julienstroheker/tcprelay/internal/logging"
)

// trimLineTerminator strips the trailing "\n" or "\r\n" supplied by the console
func trimLineTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// sendLoop moves console lines to the connection until the sentinel, an
// input or write failure, or input EOF
func (r *Relay) sendLoop(ctx context.Context) Result {
	log := r.logger.With(logging.String("loop", string(Outbound)))
	result := Result{Loop: Outbound}

	for {
		if r.prompt != "" {
			r.console.Print(r.prompt)
		}

		line, readErr := r.input.ReadString('\n')
		if ctx.Err() != nil {
			result.Reason = ReasonCancelled
			return result
		}
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			result.Reason = ReasonInputFailed
			result.Err = readErr
			log.Warn("Reading input failed", logging.Error(readErr))
			r.console.Printf("Error sending data: %v\n", readErr)
			return result
		}

		message := trimLineTerminator(line)
		if readErr != nil && line == "" {
			result.Reason = ReasonInputClosed
			log.Info("Console input closed")
			return result
		}

		if IsSentinel(message) {
			result.Reason = ReasonQuit
			log.Info("Sentinel received", logging.Int("bytes", result.Bytes))
			return result
		}

		// an empty line carries no bytes, so there is nothing to write
		if message != "" {
			n, err := r.conn.Write([]byte(message))
			result.Bytes += n
			if err != nil {
				if ctx.Err() != nil {
					result.Reason = ReasonCancelled
					return result
				}
				result.Reason = ReasonSendFailed
				result.Err = &TransferError{Direction: Send, Err: err}
				log.Warn("Send failed", logging.Error(err))
				r.console.Printf("Error sending data: %v\n", err)
				return result
			}
			log.Debug("Line sent", logging.Int("bytes", n))
		}

		if readErr != nil {
			result.Reason = ReasonInputClosed
			log.Info("Console input closed")
			return result
		}
	}
}
