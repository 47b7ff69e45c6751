package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Console is the operator side of the settings protocol. It sends one
// setting to a device and waits for the device's answer.
type Console struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewConsole connects to url. Unlike device clients it fails fast when the
// server is unreachable.
func NewConsole(url, username, password string, logger *slog.Logger) (*Console, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []nats.Option{
		nats.Name("blinkynode-console"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
	}
	if username != "" {
		opts = append(opts, nats.UserInfo(username, password))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}

	return &Console{
		conn:   conn,
		logger: logger.With("component", "nats-console"),
	}, nil
}

// SetSetting asks deviceID to apply key=value. value must be a JSON scalar.
// A device that rejects the setting still yields a nil error; inspect the
// returned Status.
func (c *Console) SetSetting(ctx context.Context, deviceID, key string, value json.RawMessage) (SettingResultMessage, error) {
	data, err := SettingMessage{Key: key, Value: value}.Marshal()
	if err != nil {
		return SettingResultMessage{}, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
		defer cancel()
	}

	reply, err := c.conn.RequestWithContext(ctx, SubjectSettings(deviceID), data)
	if err != nil {
		return SettingResultMessage{}, fmt.Errorf("settings request to %s: %w", deviceID, err)
	}

	result, err := UnmarshalSettingResult(reply.Data)
	if err != nil {
		return SettingResultMessage{}, fmt.Errorf("decode settings reply: %w", err)
	}

	c.logger.Info("Setting sent", "device_id", deviceID, "key", key, "status", result.Status)
	return result, nil
}

// Close closes the connection.
func (c *Console) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
