package relay

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julienstroheker/tcprelay/internal/transport"
)

// syncBuffer is an output sink the test can read while loops write to it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %q, output so far: %q", want, out.String())
}

// memoryPair dials a MemoryDialer and returns the local and remote ends
func memoryPair(t *testing.T) (transport.Connection, transport.Connection) {
	t.Helper()
	dialer := transport.NewMemoryDialer()
	t.Cleanup(func() { _ = dialer.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	local, err := Connect(ctx, dialer, "memory", 1)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	remote, err := dialer.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	t.Cleanup(func() { _ = remote.Close() })
	return local, remote
}

// echoPeer writes back everything it reads until the connection closes
func echoPeer(conn transport.Connection) {
	go func() {
		_, _ = io.Copy(conn, conn)
	}()
}

// collectPeer gathers everything the remote end reads
func collectPeer(conn transport.Connection) <-chan []byte {
	received := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(conn)
		received <- data
	}()
	return received
}

type runOutcome struct {
	summary Summary
}

// startRun runs r in the background and returns a channel with its summary
func startRun(ctx context.Context, r *Relay) <-chan runOutcome {
	done := make(chan runOutcome, 1)
	go func() {
		done <- runOutcome{summary: r.Run(ctx)}
	}()
	return done
}

func waitRun(t *testing.T, done <-chan runOutcome) Summary {
	t.Helper()
	select {
	case outcome := <-done:
		return outcome.summary
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for Run to return")
		return Summary{}
	}
}
