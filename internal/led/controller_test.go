package led

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockController records calls for assertions.
type mockController struct {
	mu       sync.Mutex
	setCalls []setCall
	readyErr error
	setErr   error
}

type setCall struct {
	name    string
	enabled bool
	pattern string
}

func (m *mockController) Set(name string, enabled bool, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.setCalls = append(m.setCalls, setCall{name, enabled, pattern})
	return nil
}

func (m *mockController) Ready(string) error { return m.readyErr }

func (m *mockController) Available() []string { return []string{"status", "system"} }

func (m *mockController) Patterns() []string { return []string{"solid", "blink"} }

func (m *mockController) Close() error { return nil }

func (m *mockController) calls() []setCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]setCall(nil), m.setCalls...)
}

func TestNoopController(t *testing.T) {
	ctrl := newNoop(discardLogger())

	if err := ctrl.Ready("status"); err != nil {
		t.Errorf("Ready() = %v", err)
	}
	if err := ctrl.Set("status", true, "solid"); err != nil {
		t.Errorf("Set() = %v", err)
	}
	if got := ctrl.Available(); len(got) != 0 {
		t.Errorf("Available() = %v, want empty", got)
	}
	if got := ctrl.Patterns(); len(got) != 0 {
		t.Errorf("Patterns() = %v, want empty", got)
	}
}

// fakeSysfs builds a /sys/class/leds lookalike with one LED directory.
func fakeSysfs(t *testing.T, leds map[string]string, present ...string) *sysfs {
	t.Helper()
	root := t.TempDir()
	for _, dir := range present {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	s := newSysfs(leds)
	s.root = root
	return s
}

func readAttr(t *testing.T, s *sysfs, dir, attr string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.root, dir, attr))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestSysfsReadyAndSet(t *testing.T) {
	s := fakeSysfs(t, map[string]string{"user": "usr_led"}, "usr_led")

	if err := s.Ready("user"); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if got := readAttr(t, s, "usr_led", "trigger"); got != "none" {
		t.Errorf("trigger = %q, want none", got)
	}

	if err := s.Set("user", true, ""); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := readAttr(t, s, "usr_led", "brightness"); got != "1" {
		t.Errorf("brightness = %q, want 1", got)
	}

	if err := s.Set("user", false, "blink"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := readAttr(t, s, "usr_led", "brightness"); got != "0" {
		t.Errorf("brightness = %q, want 0", got)
	}
	if got := readAttr(t, s, "usr_led", "trigger"); got != "heartbeat" {
		t.Errorf("trigger = %q, want heartbeat", got)
	}
}

func TestSysfsNotReady(t *testing.T) {
	s := fakeSysfs(t, map[string]string{"user": "usr_led"})

	tests := []struct {
		name string
		led  string
	}{
		{"unknown LED", "system"},
		{"missing directory", "user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Ready(tt.led); !errors.Is(err, ErrNotReady) {
				t.Errorf("Ready(%q) = %v, want ErrNotReady", tt.led, err)
			}
			if err := s.Set(tt.led, true, ""); !errors.Is(err, ErrNotReady) {
				t.Errorf("Set(%q) = %v, want ErrNotReady", tt.led, err)
			}
		})
	}
}

func TestSysfsAvailable(t *testing.T) {
	tests := []struct {
		name string
		leds map[string]string
		want []string
	}{
		{"NanoPC-T6", map[string]string{"user": "usr_led", "system": "sys_led"}, []string{"system", "user"}},
		{"Orange Pi", map[string]string{"green": "green_led", "blue": "blue_led"}, []string{"blue", "green"}},
		{"none", map[string]string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newSysfs(tt.leds).Available(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGPIOUnknownLED(t *testing.T) {
	g := newGPIO("gpiochip0", map[string]int{"status": 17})

	if err := g.Ready("other"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Ready = %v, want ErrNotReady", err)
	}
	if err := g.Set("status", true, "heartbeat"); err == nil {
		t.Error("GPIO LEDs should reject hardware patterns")
	}
	if got := g.Available(); !reflect.DeepEqual(got, []string{"status"}) {
		t.Errorf("Available() = %v", got)
	}
	if err := g.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
