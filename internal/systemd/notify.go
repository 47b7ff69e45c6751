package systemd

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/blinkynode/internal/events"
)

// Notifier reports agent progress to systemd: READY once the first cloud
// connection is up, WATCHDOG on every heartbeat attempt, STATUS on loop state
// changes and STOPPING on shutdown. Outside systemd every call is a no-op.
type Notifier struct {
	bus    *events.Bus
	logger *slog.Logger
	notify func(state string) (bool, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotifier creates a notifier fed by bus.
func NewNotifier(bus *events.Bus, logger *slog.Logger) *Notifier {
	return &Notifier{
		bus:    bus,
		logger: logger,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
	}
}

// Start subscribes to the bus and forwards notifications until ctx ends or
// Stop is called.
func (n *Notifier) Start(ctx context.Context) {
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		n.logger.Info("systemd watchdog enabled", "interval", interval)
	}

	ch := make(chan any, 16)
	unsubs := []func(){
		events.SubscribeToChannel[events.ConnectedEvent](n.bus, ch),
		events.SubscribeToChannel[events.HeartbeatEvent](n.bus, ch),
		events.SubscribeToChannel[events.LoopStateEvent](n.bus, ch),
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	n.mu.Lock()
	n.cancel = cancel
	n.done = done
	n.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			for _, unsub := range unsubs {
				unsub()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				n.handle(ev)
			}
		}
	}()
}

func (n *Notifier) handle(ev any) {
	switch e := ev.(type) {
	case events.ConnectedEvent:
		n.send(daemon.SdNotifyReady)
	case events.HeartbeatEvent:
		n.send(daemon.SdNotifyWatchdog)
	case events.LoopStateEvent:
		n.send("STATUS=" + e.State)
	}
}

// Stopping tells systemd the agent is shutting down.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Stop ends forwarding and waits for the forwarder to exit.
func (n *Notifier) Stop() {
	n.mu.Lock()
	cancel, done := n.cancel, n.done
	n.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("sd_notify", "state", state)
	}
}
