// Package gate provides a one-shot latch that holds the control loop until
// the first cloud connection is established.
package gate

import (
	"context"
	"sync"
)

// Gate opens once and stays open. The zero value is not usable; use New.
type Gate struct {
	once sync.Once
	done chan struct{}
}

// New returns a closed gate.
func New() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Signal opens the gate. Calls after the first do nothing, so it can be wired
// directly to a connect handler that fires on every reconnect.
func (g *Gate) Signal() {
	g.once.Do(func() { close(g.done) })
}

// Wait blocks until the gate opens. There is no timeout: a device that never
// connects waits forever. ctx only lets the process shut down meanwhile.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the gate opens.
func (g *Gate) Done() <-chan struct{} { return g.done }

// IsOpen reports whether Signal has been called.
func (g *Gate) IsOpen() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}
