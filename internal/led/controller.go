package led

import "errors"

// ErrNotReady marks a peripheral that is missing or could not be claimed.
// The control loop treats it as a startup failure.
var ErrNotReady = errors.New("peripheral not ready")

// Controller abstracts discrete LED hardware across boards and kernel
// interfaces. LED names are board-level identifiers such as "user",
// "status" or "act".
type Controller interface {
	// Set switches an LED on or off. pattern selects a hardware pattern
	// ("solid", "blink", "heartbeat"); empty leaves the current one.
	Set(name string, enabled bool, pattern string) error

	// Ready claims the LED for manual control. Errors wrap ErrNotReady.
	Ready(name string) error

	// Available returns the LED names this controller drives.
	Available() []string

	// Patterns returns the patterns Set accepts.
	Patterns() []string

	// Close releases any claimed lines.
	Close() error
}
