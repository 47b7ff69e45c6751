package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/blinkynode/internal/settings"
)

// NATSClient connects a device to a NATS server. Heartbeats are published
// and flushed so a dead link surfaces as an error; settings arrive as
// request/reply messages.
type NATSClient struct {
	url      string
	deviceID string
	user     string
	password string
	logger   *slog.Logger

	mu        sync.RWMutex
	conn      *nats.Conn
	sub       *nats.Subscription
	onConnect []func()
	settings  settings.Callback
}

// NewNATSClient creates a client; call Start to connect.
func NewNATSClient(cfg Config, logger *slog.Logger) *NATSClient {
	if logger == nil {
		logger = slog.Default()
	}
	url := cfg.NATSURL
	if url == "" {
		url = nats.DefaultURL
	}
	return &NATSClient{
		url:      url,
		deviceID: cfg.DeviceID,
		user:     cfg.Username,
		password: cfg.Password,
		logger:   logger.With("component", "nats-client", "device_id", cfg.DeviceID),
	}
}

// Start connects in the background, retrying until the server answers.
func (c *NATSClient) Start() error {
	opts := []nats.Option{
		nats.Name("blinkynode-" + c.deviceID),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Warn("NATS disconnected", "error", err)
			} else {
				c.logger.Debug("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.logger.Info("NATS reconnected")
			c.fireConnected()
		}),
		nats.ConnectHandler(func(_ *nats.Conn) {
			c.logger.Info("Connected to NATS", "url", c.url)
			c.fireConnected()
		}),
	}
	if c.user != "" {
		opts = append(opts, nats.UserInfo(c.user, c.password))
	}

	conn, err := nats.Connect(c.url, opts...)
	if err != nil {
		return fmt.Errorf("nats connect %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if conn.IsConnected() {
		c.fireConnected()
	} else {
		c.logger.Warn("NATS not reachable yet, retrying in background", "url", c.url)
	}
	return c.subscribeSettings()
}

// OnConnect registers fn for every (re)connect.
func (c *NATSClient) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = append(c.onConnect, fn)
	connected := c.conn != nil && c.conn.IsConnected()
	c.mu.Unlock()

	if connected {
		fn()
	}
}

func (c *NATSClient) fireConnected() {
	c.mu.RLock()
	fns := append([]func(){}, c.onConnect...)
	c.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// SendHeartbeat publishes a HelloMessage and flushes it to the server.
func (c *NATSClient) SendHeartbeat(ctx context.Context, counter uint32) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}

	data, err := HelloMessage{
		DeviceID:  c.deviceID,
		Counter:   counter,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}.Marshal()
	if err != nil {
		return err
	}

	if err := conn.Publish(SubjectHello(c.deviceID), data); err != nil {
		return fmt.Errorf("publish hello: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
		defer cancel()
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush hello: %w", err)
	}
	return nil
}

// RegisterSettings answers settings requests with cb. Registering again
// replaces the callback.
func (c *NATSClient) RegisterSettings(cb settings.Callback) error {
	c.mu.Lock()
	c.settings = cb
	c.mu.Unlock()
	return c.subscribeSettings()
}

// subscribeSettings subscribes once both a connection and a callback exist.
// The subscription survives reconnects.
func (c *NATSClient) subscribeSettings() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.settings == nil || c.sub != nil {
		return nil
	}

	sub, err := c.conn.Subscribe(SubjectSettings(c.deviceID), c.handleSettings)
	if err != nil {
		return fmt.Errorf("subscribe settings: %w", err)
	}
	c.sub = sub
	c.logger.Debug("Subscribed to settings", "subject", sub.Subject)
	return nil
}

func (c *NATSClient) handleSettings(msg *nats.Msg) {
	c.mu.RLock()
	cb := c.settings
	c.mu.RUnlock()

	result := handleSetting(c.deviceID, msg.Data, cb)
	c.logger.Debug("Handled setting", "key", result.Key, "status", result.Status)

	if msg.Reply == "" {
		return
	}
	data, err := result.Marshal()
	if err != nil {
		c.logger.Warn("Failed to marshal setting result", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		c.logger.Warn("Failed to answer setting request", "error", err)
	}
}

// IsConnected returns true if connected to NATS.
func (c *NATSClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Close drops the subscription and the connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub != nil {
		_ = c.sub.Unsubscribe()
		c.sub = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.logger.Debug("NATS client closed")
}
