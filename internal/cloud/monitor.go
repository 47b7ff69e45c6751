package cloud

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Monitor subscribes to heartbeats from every device and hands each decoded
// HelloMessage to a handler. It backs `blinkynode broker`.
type Monitor struct {
	url     string
	handler func(HelloMessage)
	conn    *nats.Conn
	sub     *nats.Subscription
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewMonitor creates a monitor. A nil handler logs each heartbeat.
func NewMonitor(url string, handler func(HelloMessage), logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		url:     url,
		handler: handler,
		logger:  logger.With("component", "nats-monitor"),
	}
	if m.handler == nil {
		m.handler = func(h HelloMessage) {
			m.logger.Info("Hello", "device_id", h.DeviceID, "counter", h.Counter)
		}
	}
	return m
}

// Start connects and subscribes.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, err := nats.Connect(m.url,
		nats.Name("blinkynode-monitor"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				m.logger.Warn("NATS monitor disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			m.logger.Info("NATS monitor reconnected")
		}),
	)
	if err != nil {
		return err
	}

	sub, err := conn.Subscribe(SubjectAllHello, m.handleHello)
	if err != nil {
		conn.Close()
		return err
	}

	m.conn = conn
	m.sub = sub
	m.logger.Info("NATS monitor subscribed", "subject", SubjectAllHello)
	return nil
}

func (m *Monitor) handleHello(msg *nats.Msg) {
	hello, err := UnmarshalHello(msg.Data)
	if err != nil {
		m.logger.Warn("Failed to unmarshal hello", "error", err, "subject", msg.Subject)
		return
	}
	m.handler(hello)
}

// Stop unsubscribes and closes the connection.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sub != nil {
		_ = m.sub.Unsubscribe()
		m.sub = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.logger.Info("NATS monitor stopped")
}

// IsConnected reports whether the monitor is connected.
func (m *Monitor) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil && m.conn.IsConnected()
}
