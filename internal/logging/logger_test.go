package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func resetState() {
	mutex.Lock()
	modules = make(map[string]*moduleLogger)
	current = Config{}
	initialized = false
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()
	Initialize(Config{
		Level:   "info",
		Format:  "text",
		Modules: map[string]string{"cloud": "debug", "api": "warn"},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"cloud", true, true, true},
		{"api", false, false, true},
		{"loop", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			h := GetLogger(tt.module).Handler()
			ctx := context.Background()
			if got := h.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := h.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := h.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	before := GetLogger("led")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"led": "debug"}})

	after := GetLogger("led")
	if before != after {
		t.Error("logger should be cached across Initialize")
	}
	if !before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("cached logger should pick up the debug override")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info"})

	logger := GetLogger("settings")
	if err := SetModuleLevel("settings", "error"); err != nil {
		t.Fatalf("SetModuleLevel: %v", err)
	}
	if logger.Handler().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled after raising level to error")
	}
	if err := SetModuleLevel("settings", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestMultiHandlerFanOut(t *testing.T) {
	var buf bytes.Buffer
	debug := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	info := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debug, info)).With("module", "test")
	logger.Debug("debug only")
	logger.Info("both")

	out := buf.String()
	if n := strings.Count(out, "debug only"); n != 1 {
		t.Errorf("debug message written %d times, want 1", n)
	}
	if n := strings.Count(out, "both"); n != 2 {
		t.Errorf("info message written %d times, want 2", n)
	}
	if !strings.Contains(out, "module=test") {
		t.Errorf("attrs not propagated: %s", out)
	}
}

func TestJournalFields(t *testing.T) {
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "Sending hello", 0)
	r.AddAttrs(
		slog.Int("counter", 7),
		slog.Group("strip", slog.String("device", "/dev/ttyUSB0")),
		slog.Duration("delay", 250*time.Millisecond),
	)

	fields := journalFields([]slog.Attr{slog.String("module", "loop")}, nil, r)

	want := map[string]string{
		"MESSAGE":           "Sending hello",
		"SYSLOG_IDENTIFIER": "blinkynode",
		"MODULE":            "loop",
		"COUNTER":           "7",
		"STRIP_DEVICE":      "/dev/ttyUSB0",
		"DELAY":             "250ms",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %s = %q, want %q", k, fields[k], v)
		}
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{" info ", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if tt.isNil {
				if got != nil {
					t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
