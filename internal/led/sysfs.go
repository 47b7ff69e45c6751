package led

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives LEDs through /sys/class/leds/<name>/{trigger,brightness}.
type sysfs struct {
	root string
	leds map[string]string // LED name -> sysfs directory
}

func newSysfs(leds map[string]string) *sysfs {
	return &sysfs{root: sysfsLEDPath, leds: leds}
}

func (s *sysfs) dir(name string) (string, error) {
	sysfsName, ok := s.leds[name]
	if !ok {
		return "", fmt.Errorf("LED %q not supported on this board: %w", name, ErrNotReady)
	}
	dir := filepath.Join(s.root, sysfsName)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("LED %q at %s: %w", name, dir, ErrNotReady)
	}
	return dir, nil
}

// Ready detaches any kernel trigger so brightness writes stick.
func (s *sysfs) Ready(name string) error {
	dir, err := s.dir(name)
	if err != nil {
		return err
	}
	if err := writeAttr(dir, "trigger", "none"); err != nil {
		return fmt.Errorf("claim LED %q: %w: %w", name, ErrNotReady, err)
	}
	return nil
}

func (s *sysfs) Set(name string, enabled bool, pattern string) error {
	dir, err := s.dir(name)
	if err != nil {
		return err
	}

	switch pattern {
	case "":
	case "solid":
		if err := writeAttr(dir, "trigger", "none"); err != nil {
			return err
		}
	case "blink", "heartbeat":
		if err := writeAttr(dir, "trigger", "heartbeat"); err != nil {
			return err
		}
	default:
		// raw kernel trigger name
		if err := writeAttr(dir, "trigger", pattern); err != nil {
			return err
		}
	}

	brightness := "0"
	if enabled {
		brightness = "1"
	}
	return writeAttr(dir, "brightness", brightness)
}

func (s *sysfs) Available() []string {
	names := make([]string, 0, len(s.leds))
	for name := range s.leds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *sysfs) Patterns() []string {
	return []string{"solid", "blink", "heartbeat"}
}

func (s *sysfs) Close() error { return nil }

func writeAttr(dir, attr, value string) error {
	if err := os.WriteFile(filepath.Join(dir, attr), []byte(value), 0o644); err != nil {
		return fmt.Errorf("write LED %s: %w", attr, err)
	}
	return nil
}
