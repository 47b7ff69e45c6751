// Package logging provides slog loggers with per-module levels.
//
// Records go to stdout (text or json) when stdout is connected, and to the
// systemd journal when journald is listening. Both are used when both are
// available.
//
// Initialize once at startup, then ask for module loggers:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"cloud": "debug"},
//	})
//
//	logger := logging.GetLogger("loop")
//	logger.Info("Sending hello", "counter", n)
//
// Loggers obtained before Initialize keep working and pick up the configured
// level once Initialize runs.
//
// The equivalent TOML:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	cloud = "debug"
//	led = "warn"
//
// Journal records carry SYSLOG_IDENTIFIER=blinkynode and one upper-cased
// field per attribute:
//
//	journalctl -t blinkynode MODULE=loop
package logging
