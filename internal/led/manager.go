package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/blinkynode/internal/events"
)

// Manager drives the board's system LED from connection health: blinking
// while offline or while heartbeats fail, solid while they go through.
type Manager struct {
	controller Controller
	led        string
	eventBus   *events.Bus
	logger     *slog.Logger

	unsubscribe []func()

	mu        sync.Mutex
	connected bool
	failing   bool
	pattern   string
}

// NewManager creates a manager for the system LED named led.
func NewManager(controller Controller, led string, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		led:        led,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Start shows the offline pattern and begins following events.
func (m *Manager) Start() {
	m.mu.Lock()
	m.apply()
	m.mu.Unlock()

	m.unsubscribe = append(m.unsubscribe,
		m.eventBus.Subscribe(func(events.ConnectedEvent) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.connected = true
			m.apply()
		}),
		m.eventBus.Subscribe(func(e events.HeartbeatEvent) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.failing = e.Failed()
			m.apply()
		}),
	)
	m.logger.Info("LED manager started", "led", m.led)
}

// Stop stops following events.
func (m *Manager) Stop() {
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	m.unsubscribe = nil
	m.logger.Info("LED manager stopped")
}

// apply must be called with m.mu held.
func (m *Manager) apply() {
	pattern := "solid"
	if !m.connected || m.failing {
		pattern = "blink"
	}
	if pattern == m.pattern {
		return
	}
	if err := m.controller.Set(m.led, true, pattern); err != nil {
		m.logger.Warn("Failed to set system LED", "led", m.led, "pattern", pattern, "error", err)
		return
	}
	m.pattern = pattern
	m.logger.Debug("System LED updated", "led", m.led, "pattern", pattern)
}

// Controller returns the underlying LED controller.
func (m *Manager) Controller() Controller {
	return m.controller
}
