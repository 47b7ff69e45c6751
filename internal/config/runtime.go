package config

import (
	"fmt"

	"github.com/smazurov/blinkynode/internal/logging"
)

// Runtime holds the settings that can change while the agent runs. It is
// what the config watcher hands to reload handlers.
type Runtime struct {
	// LoopDelayMS is nil when the file does not set loop.delay_ms. Other
	// value types are kept as-is so the settings validator can reject them.
	LoopDelayMS any
	Logging     logging.Config
}

// LoadRuntime reads the reloadable subset of the config file.
func LoadRuntime(path string) (Runtime, error) {
	doc, err := readDocument(path)
	if err != nil {
		return Runtime{}, fmt.Errorf("load runtime config: %w", err)
	}
	return Runtime{
		LoopDelayMS: getNestedValue(doc, "loop.delay_ms"),
		Logging:     LoadLoggingConfig(path),
	}, nil
}
