package settings

import (
	"log/slog"
	"time"

	"github.com/smazurov/blinkynode/internal/events"
)

// Setting keys understood by the agent.
const (
	KeyLoopDelayMS = "LOOP_DELAY_MS"
	// KeyLoopDelayS is the retired seconds-based key. Fleets still push it,
	// so it is accepted and ignored.
	KeyLoopDelayS = "LOOP_DELAY_S"
)

// Loop delay bounds for remote updates, in milliseconds.
const (
	DefaultLoopDelayMS = 1000
	MinLoopDelayMS     = 100
	MaxLoopDelayMS     = 60000
)

// Sources recorded on SettingAppliedEvent.
const (
	SourceCloud  = "cloud"
	SourceAPI    = "api"
	SourceConfig = "config"
)

// Callback handles one remote setting and reports the outcome.
type Callback func(key string, value Value) Status

// Validator checks incoming settings and applies accepted ones to a Store.
// It is safe for concurrent use.
type Validator struct {
	store  *Store
	bus    *events.Bus
	logger *slog.Logger
}

// NewValidator creates a validator writing to store. bus may be nil.
func NewValidator(store *Store, bus *events.Bus, logger *slog.Logger) *Validator {
	return &Validator{store: store, bus: bus, logger: logger}
}

// Apply validates a setting received from the cloud. It matches Callback.
func (v *Validator) Apply(key string, value Value) Status {
	return v.ApplyFrom(SourceCloud, key, value)
}

// ApplyFrom validates and applies a setting, tagging the outcome with source.
func (v *Validator) ApplyFrom(source, key string, value Value) Status {
	v.logger.Debug("Setting received", "source", source, "key", key, "type", value.Kind.String(), "value", value.Format())

	status := v.apply(key, value)

	if !status.OK() {
		v.logger.Warn("Setting rejected", "source", source, "key", key, "value", value.Format(), "status", status.String())
	}
	v.bus.Publish(events.SettingAppliedEvent{
		Key:       key,
		Status:    status.String(),
		Source:    source,
		DelayMS:   v.store.DelayMS(),
		Timestamp: time.Now(),
	})
	return status
}

func (v *Validator) apply(key string, value Value) Status {
	switch key {
	case KeyLoopDelayMS:
		if value.Kind != KindInt64 {
			return StatusFormatInvalid
		}
		if value.Int64 < MinLoopDelayMS || value.Int64 > MaxLoopDelayMS {
			return StatusOutOfRange
		}
		v.store.setDelayMS(int32(value.Int64))
		v.logger.Info("Loop delay updated", "delay_ms", value.Int64)
		return StatusSuccess

	case KeyLoopDelayS:
		return StatusSuccess

	default:
		return StatusKeyNotRecognized
	}
}
