package relay

import (
	"fmt"
	"io"
	"sync"
)

// Console serialises writes from both loops to one output stream
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole wraps w
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{out: w}
}

// Print writes s as is
func (c *Console) Print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, s)
}

// Println writes s followed by a newline
func (c *Console) Println(s string) {
	c.Print(s + "\n")
}

// Printf formats and writes
func (c *Console) Printf(format string, args ...any) {
	c.Print(fmt.Sprintf(format, args...))
}
