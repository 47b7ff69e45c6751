package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Identifier is the syslog identifier used for journal records.
const Identifier = "blinkynode"

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

type moduleLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

var (
	mutex       sync.RWMutex
	modules     = make(map[string]*moduleLogger)
	current     Config
	initialized bool
	rootLevel   = &slog.LevelVar{}
)

// Initialize configures the global level, output format and per-module
// overrides. Loggers handed out earlier keep their identity; their level
// and handler chain are refreshed in place.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	current = config
	initialized = true
	rootLevel.Set(levelOrDefault(config.Level, slog.LevelInfo))

	for name, m := range modules {
		m.level.Set(moduleLevel(name))
		*m.logger = *slog.New(createHandler(config.Format, m.level)).With("module", name)
	}

	slog.SetDefault(slog.New(createHandler(config.Format, rootLevel)))
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	m, ok := modules[module]
	mutex.RUnlock()
	if ok {
		return m.logger
	}

	mutex.Lock()
	defer mutex.Unlock()
	if m, ok := modules[module]; ok {
		return m.logger
	}

	level := &slog.LevelVar{}
	format := "text"
	if initialized {
		level.Set(moduleLevel(module))
		format = current.Format
	}

	m = &moduleLogger{
		logger: slog.New(createHandler(format, level)).With("module", module),
		level:  level,
	}
	modules[module] = m
	return m.logger
}

// SetModuleLevel changes the level of one module at runtime.
func SetModuleLevel(module, level string) error {
	parsed := parseLevel(level)
	if parsed == nil {
		return fmt.Errorf("unknown log level %q", level)
	}
	GetLogger(module)

	mutex.Lock()
	defer mutex.Unlock()
	modules[module].level.Set(*parsed)
	return nil
}

// moduleLevel must be called with mutex held.
func moduleLevel(module string) slog.Level {
	level := levelOrDefault(current.Level, slog.LevelInfo)
	if override, ok := current.Modules[module]; ok {
		level = levelOrDefault(override, level)
	}
	return level
}

// createHandler builds the output chain: stdout (text or json) when stdout
// goes somewhere, plus the journal when journald is listening.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if isStdoutAvailable() {
		handlers = append(handlers, stdout)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}

	switch len(handlers) {
	case 0:
		return stdout
	case 1:
		return handlers[0]
	default:
		return NewMultiHandler(handlers...)
	}
}

// isStdoutAvailable reports whether stdout is a terminal, pipe, socket or
// regular file. /dev/null is a device and does not count.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&os.ModeCharDevice != 0 || mode&os.ModeNamedPipe != 0 || mode&os.ModeSocket != 0 || mode.IsRegular()
}

func levelOrDefault(level string, fallback slog.Level) slog.Level {
	if parsed := parseLevel(level); parsed != nil {
		return *parsed
	}
	return fallback
}

// parseLevel converts a level name to slog.Level, nil when unknown.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
