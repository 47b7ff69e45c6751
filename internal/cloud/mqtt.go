package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/smazurov/blinkynode/internal/settings"
)

const mqttQoS byte = 1

// MQTTClient connects a device to an MQTT broker. Heartbeats are published
// with QoS 1 and wait for the broker's PUBACK. Settings arrive on the
// device's settings topic and results go to settings/status.
type MQTTClient struct {
	broker   string
	deviceID string
	user     string
	password string
	logger   *slog.Logger

	newClient func(*mqtt.ClientOptions) mqtt.Client

	mu        sync.RWMutex
	client    mqtt.Client
	onConnect []func()
	settings  settings.Callback
}

// NewMQTTClient creates a client; call Start to connect.
func NewMQTTClient(cfg Config, logger *slog.Logger) *MQTTClient {
	if logger == nil {
		logger = slog.Default()
	}
	broker := cfg.MQTTBroker
	if broker == "" {
		broker = "tcp://127.0.0.1:1883"
	}
	return &MQTTClient{
		broker:    broker,
		deviceID:  cfg.DeviceID,
		user:      cfg.Username,
		password:  cfg.Password,
		logger:    logger.With("component", "mqtt-client", "device_id", cfg.DeviceID),
		newClient: mqtt.NewClient,
	}
}

// Start connects in the background. paho keeps retrying until the broker
// answers and reconnects after every loss.
func (c *MQTTClient) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.broker)
	opts.SetClientID("blinkynode-" + c.deviceID)
	if c.user != "" {
		opts.SetUsername(c.user)
		opts.SetPassword(c.password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOnConnectHandler(c.handleConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Warn("MQTT connection lost", "error", err)
	})

	client := c.newClient(opts)

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	token := client.Connect()
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			c.logger.Warn("MQTT connect failed", "broker", c.broker, "error", err)
		}
	}()
	return nil
}

func (c *MQTTClient) handleConnect(client mqtt.Client) {
	c.logger.Info("Connected to MQTT", "broker", c.broker)

	c.mu.RLock()
	cb := c.settings
	fns := append([]func(){}, c.onConnect...)
	c.mu.RUnlock()

	// Clean sessions drop subscriptions, so subscribe on every connect.
	if cb != nil {
		token := client.Subscribe(TopicSettings(c.deviceID), mqttQoS, c.handleSettings)
		go func() {
			<-token.Done()
			if err := token.Error(); err != nil {
				c.logger.Warn("Failed to subscribe to settings", "error", err)
			}
		}()
	}

	for _, fn := range fns {
		fn()
	}
}

// OnConnect registers fn for every (re)connect.
func (c *MQTTClient) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = append(c.onConnect, fn)
	c.mu.Unlock()

	if c.IsConnected() {
		fn()
	}
}

// SendHeartbeat publishes a HelloMessage and waits for the broker's ack.
func (c *MQTTClient) SendHeartbeat(ctx context.Context, counter uint32) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil || !client.IsConnectionOpen() {
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

	return waitToken(ctx, client.Publish(TopicHello(c.deviceID), mqttQoS, false, data))
}

// RegisterSettings routes settings messages to cb. If the client is already
// connected the subscription is made now, otherwise on the next connect.
func (c *MQTTClient) RegisterSettings(cb settings.Callback) error {
	c.mu.Lock()
	c.settings = cb
	client := c.client
	c.mu.Unlock()

	if client == nil || !client.IsConnectionOpen() {
		return nil
	}

	token := client.Subscribe(TopicSettings(c.deviceID), mqttQoS, c.handleSettings)
	if err := waitToken(context.Background(), token); err != nil {
		return fmt.Errorf("subscribe settings: %w", err)
	}
	c.logger.Debug("Subscribed to settings", "topic", TopicSettings(c.deviceID))
	return nil
}

func (c *MQTTClient) handleSettings(client mqtt.Client, msg mqtt.Message) {
	c.mu.RLock()
	cb := c.settings
	c.mu.RUnlock()
	if cb == nil {
		return
	}

	result := handleSetting(c.deviceID, msg.Payload(), cb)
	c.logger.Debug("Handled setting", "key", result.Key, "status", result.Status)

	data, err := result.Marshal()
	if err != nil {
		c.logger.Warn("Failed to marshal setting result", "error", err)
		return
	}
	client.Publish(TopicSettingsStatus(c.deviceID), mqttQoS, false, data)
}

// IsConnected reports whether the broker link is up.
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil && c.client.IsConnectionOpen()
}

// Close disconnects, giving in-flight work 250ms.
func (c *MQTTClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.Disconnect(250)
		c.client = nil
	}
	c.logger.Debug("MQTT client closed")
}

// waitToken waits for token, bounded by ctx or by defaultFlushTimeout when
// ctx has no deadline.
func waitToken(ctx context.Context, token mqtt.Token) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
		defer cancel()
	}
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
