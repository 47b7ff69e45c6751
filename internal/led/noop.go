package led

import "log/slog"

// noop implements Controller for hosts without a usable LED.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Set(name string, enabled bool, pattern string) error {
	n.logger.Debug("LED control not available (no-op)",
		"led", name,
		"enabled", enabled,
		"pattern", pattern)
	return nil
}

func (n *noop) Ready(string) error { return nil }

func (n *noop) Available() []string { return []string{} }

func (n *noop) Patterns() []string { return []string{} }

func (n *noop) Close() error { return nil }
