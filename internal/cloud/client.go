package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/blinkynode/internal/settings"
)

// ErrNotConnected is returned by SendHeartbeat while the link is down.
var ErrNotConnected = errors.New("cloud: not connected")

// Transports.
const (
	TransportNATS = "nats"
	TransportMQTT = "mqtt"
)

const defaultFlushTimeout = 5 * time.Second

// Client is a device-side cloud connection.
type Client interface {
	// Start begins connecting in the background. It returns an error only
	// for bad configuration; an unreachable server is retried forever.
	Start() error
	// OnConnect registers fn to run on every (re)connect. fn runs
	// immediately if the client is already connected.
	OnConnect(fn func())
	// SendHeartbeat delivers one heartbeat and waits for the server to
	// acknowledge it, or for ctx to end.
	SendHeartbeat(ctx context.Context, counter uint32) error
	// RegisterSettings routes remote settings to cb.
	RegisterSettings(cb settings.Callback) error
	IsConnected() bool
	Close()
}

// Config selects and configures a transport.
type Config struct {
	Transport  string
	DeviceID   string
	NATSURL    string
	MQTTBroker string
	Username   string
	Password   string
}

// New creates the client for cfg.Transport.
func New(cfg Config, logger *slog.Logger) (Client, error) {
	if cfg.DeviceID == "" {
		return nil, errors.New("cloud: device id is required")
	}
	switch cfg.Transport {
	case "", TransportNATS:
		return NewNATSClient(cfg, logger), nil
	case TransportMQTT:
		return NewMQTTClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("cloud: unknown transport %q", cfg.Transport)
	}
}
