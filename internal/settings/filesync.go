package settings

import (
	"fmt"
	"log/slog"
	"sync"
)

// FileSync feeds loop.delay_ms from the config file into a Validator.
// A reload applies the file value only when it differs from the value the
// file held last time, so an interval set by the cloud, the API or a
// command line flag survives reloads that leave loop.delay_ms alone.
type FileSync struct {
	validator *Validator
	logger    *slog.Logger

	mu   sync.Mutex
	last fileValue
}

// fileValue is what the file held: absent, a usable Value, or raw text
// that does not convert.
type fileValue struct {
	present bool
	value   Value
	raw     string
}

func newFileValue(raw any) fileValue {
	if raw == nil {
		return fileValue{}
	}
	v, err := FromAny(raw)
	if err != nil {
		return fileValue{present: true, raw: fmt.Sprintf("%T:%v", raw, raw)}
	}
	return fileValue{present: true, value: v}
}

// NewFileSync starts from the value the file held at startup, which the
// caller has already resolved against flags and environment.
func NewFileSync(v *Validator, initial any, logger *slog.Logger) *FileSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSync{validator: v, logger: logger, last: newFileValue(initial)}
}

// Reload handles the loop.delay_ms value from a fresh read of the file.
// applied is false when the file value did not change or was removed.
func (f *FileSync) Reload(raw any) (status Status, applied bool) {
	next := newFileValue(raw)

	f.mu.Lock()
	changed := next != f.last
	f.last = next
	f.mu.Unlock()

	if !changed {
		return StatusSuccess, false
	}
	if !next.present {
		f.logger.Info("loop.delay_ms removed from config, keeping current interval")
		return StatusSuccess, false
	}
	if next.raw != "" {
		f.logger.Warn("Ignoring loop.delay_ms from config", "value", next.raw)
	}
	return f.validator.ApplyFrom(SourceConfig, KeyLoopDelayMS, next.value), true
}
