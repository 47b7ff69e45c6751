package systemd

import (
	"context"

	"github.com/coreos/go-systemd/v22/dbus"
)

// ServiceName is the unit the agent is installed as.
const ServiceName = "blinkynode.service"

// Manager queries and controls the agent's unit via D-Bus.
type Manager struct {
	conn    *dbus.Conn
	service string
}

// NewManager connects to the system bus, or the user bus when user is set.
func NewManager(ctx context.Context, service string, user bool) (*Manager, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	if user {
		conn, err = dbus.NewUserConnectionContext(ctx)
	} else {
		conn, err = dbus.NewSystemConnectionContext(ctx)
	}
	if err != nil {
		return nil, err
	}
	if service == "" {
		service = ServiceName
	}
	return &Manager{conn: conn, service: service}, nil
}

// Service returns the managed unit name.
func (m *Manager) Service() string { return m.service }

// Status returns the unit's ActiveState.
func (m *Manager) Status(ctx context.Context) (string, error) {
	prop, err := m.conn.GetUnitPropertyContext(ctx, m.service, "ActiveState")
	if err != nil {
		return "", err
	}
	state, _ := prop.Value.Value().(string)
	return state, nil
}

// Restart queues a restart of the unit in replace mode.
func (m *Manager) Restart(ctx context.Context) error {
	_, err := m.conn.RestartUnitContext(ctx, m.service, "replace", nil)
	return err
}

// Close closes the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}
