// Package loop runs the agent's control loop: bring up the indicator, wait
// for the first cloud connection, then heartbeat and blink forever at the
// stored interval.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/blinkynode/internal/events"
	"github.com/smazurov/blinkynode/internal/led"
	"github.com/smazurov/blinkynode/internal/settings"
)

// DefaultHeartbeatTimeout bounds one heartbeat when Options leaves it zero.
const DefaultHeartbeatTimeout = 5 * time.Second

// State is a control loop state.
type State string

// Loop states, in order.
const (
	StateInitializing         State = "initializing"
	StateWaitingForConnection State = "waiting_for_connection"
	StateRunning              State = "running"
	StateStopped              State = "stopped"
	StateFailed               State = "failed"
)

// States lists every state; the index is the value exported as a metric.
var States = []State{StateInitializing, StateWaitingForConnection, StateRunning, StateStopped, StateFailed}

// Client is the part of the cloud connection the loop uses. Start is called
// once the indicator is ready and must not block on the network.
type Client interface {
	Start() error
	SendHeartbeat(ctx context.Context, counter uint32) error
	RegisterSettings(cb settings.Callback) error
}

// Indicator is the visual status output.
type Indicator interface {
	Init() error
	Step(counter uint32) error
}

// Gate holds the loop until the first connection.
type Gate interface {
	Wait(ctx context.Context) error
}

// Options wires a Loop.
type Options struct {
	DeviceID         string
	Client           Client
	Indicator        Indicator
	Gate             Gate
	Store            *settings.Store
	Settings         settings.Callback
	HeartbeatTimeout time.Duration
	Bus              *events.Bus
	Logger           *slog.Logger
}

// Status is a snapshot of the loop.
type Status struct {
	State         State
	Counter       uint32
	DelayMS       int32
	Connected     bool
	LastHeartbeat time.Time
	LastError     string
}

// Loop is the control loop. Run it once.
type Loop struct {
	opts    Options
	logger  *slog.Logger
	counter atomic.Uint32

	mu            sync.RWMutex
	state         State
	connected     bool
	lastHeartbeat time.Time
	lastError     string
}

// New creates a loop.
func New(opts Options) *Loop {
	if opts.HeartbeatTimeout <= 0 {
		opts.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		opts:   opts,
		logger: logger,
		state:  StateInitializing,
	}
}

// Run drives the loop until ctx ends or the indicator fails. The cloud
// client is started only after the indicator initialized. Cancellation is
// a clean stop and returns nil. Failures are *Error values.
func (l *Loop) Run(ctx context.Context) error {
	l.setState(StateInitializing)
	if err := l.opts.Indicator.Init(); err != nil {
		if errors.Is(err, led.ErrNotReady) {
			return l.fail(NewError(ErrPeripheralNotReady, "indicator peripheral not ready", err))
		}
		return l.fail(NewError(ErrIndicatorUpdateFailed, "indicator init failed", err))
	}

	if err := l.opts.Client.Start(); err != nil {
		return l.fail(NewError(ErrCloudStartFailed, "cloud client start failed", err))
	}

	l.setState(StateWaitingForConnection)
	l.logger.Info("Waiting for cloud connection")
	if err := l.opts.Gate.Wait(ctx); err != nil {
		l.setState(StateStopped)
		return nil
	}

	l.mu.Lock()
	l.connected = true
	l.mu.Unlock()
	l.logger.Info("Connected to cloud", "device_id", l.opts.DeviceID)
	l.opts.Bus.Publish(events.ConnectedEvent{DeviceID: l.opts.DeviceID, Timestamp: time.Now()})

	if l.opts.Settings != nil {
		if err := l.opts.Client.RegisterSettings(l.opts.Settings); err != nil {
			l.logger.Warn("Failed to register settings callback", "error", err)
		}
	}

	l.setState(StateRunning)
	for {
		if err := l.iterate(ctx); err != nil {
			return l.fail(err)
		}
		if !l.sleep(ctx) {
			l.setState(StateStopped)
			l.logger.Info("Control loop stopped", "counter", l.counter.Load())
			return nil
		}
	}
}

// iterate sends one heartbeat and advances the indicator.
func (l *Loop) iterate(ctx context.Context) *Error {
	counter := l.counter.Load()
	l.logger.Info("Sending hello", "counter", counter)

	hbCtx, cancel := context.WithTimeout(ctx, l.opts.HeartbeatTimeout)
	err := l.opts.Client.SendHeartbeat(hbCtx, counter)
	cancel()

	ev := events.HeartbeatEvent{Counter: counter, Timestamp: time.Now()}
	if err != nil {
		hbErr := NewError(ErrHeartbeatSendFailed, "heartbeat not delivered", err)
		l.logger.Warn("Failed to send hello", "counter", counter, "error", hbErr)
		ev.Error = err.Error()
		l.mu.Lock()
		l.lastError = hbErr.Error()
		l.mu.Unlock()
	} else {
		l.mu.Lock()
		l.lastHeartbeat = ev.Timestamp
		l.mu.Unlock()
	}
	l.opts.Bus.Publish(ev)

	next := l.counter.Add(1)

	if err := l.opts.Indicator.Step(next); err != nil {
		return NewError(ErrIndicatorUpdateFailed, "indicator step failed", err)
	}
	return nil
}

// sleep waits for the stored delay. A wake restarts the wait with the delay
// stored at that moment. It returns false when ctx ended.
func (l *Loop) sleep(ctx context.Context) bool {
	timer := time.NewTimer(l.opts.Store.Delay())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return true
		case <-l.opts.Store.Wake():
			delay := l.opts.Store.Delay()
			l.logger.Debug("Sleep interrupted, restarting wait", "delay", delay)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(delay)
		case <-ctx.Done():
			return false
		}
	}
}

// Status returns a snapshot of the loop.
func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Status{
		State:         l.state,
		Counter:       l.counter.Load(),
		DelayMS:       l.opts.Store.DelayMS(),
		Connected:     l.connected,
		LastHeartbeat: l.lastHeartbeat,
		LastError:     l.lastError,
	}
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
	l.logger.Debug("Loop state changed", "state", s)
	l.opts.Bus.Publish(events.LoopStateEvent{State: string(s), Timestamp: time.Now()})
}

func (l *Loop) fail(err *Error) error {
	l.mu.Lock()
	l.lastError = err.Error()
	l.mu.Unlock()
	l.setState(StateFailed)
	l.logger.Error("Control loop failed", "code", err.Code, "error", err.Cause)
	return err
}
