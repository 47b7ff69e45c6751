package main

import (
	"testing"

	"github.com/smazurov/blinkynode/internal/led"
)

func TestPolarityFix(t *testing.T) {
	esp := led.Board{Name: "ESP32-S2", SPIControllerBase: 0x3F424000}
	generic := led.Board{Name: "generic"}

	tests := []struct {
		name     string
		board    led.Board
		driver   string
		mode     string
		base     string
		wantBase uint64
		wantNil  bool
		wantErr  bool
	}{
		{name: "auto adalight", board: esp, driver: "adalight", mode: "auto", wantNil: true},
		{name: "auto noop", board: esp, driver: "noop", mode: "auto", wantNil: true},
		{name: "auto spidev board profile", board: esp, driver: "spidev", mode: "auto", wantBase: 0x3F424000},
		{name: "auto spidev generic", board: generic, driver: "spidev", mode: "auto", wantNil: true},
		{name: "auto spidev override", board: generic, driver: "spidev", mode: "auto", base: "0xfe204000", wantBase: 0xfe204000},
		{name: "on without base", board: generic, driver: "spidev", mode: "on", wantErr: true},
		{name: "on adalight", board: esp, driver: "adalight", mode: "on", wantBase: 0x3F424000},
		{name: "off", board: esp, driver: "spidev", mode: "off", wantNil: true},
		{name: "bad base", board: esp, driver: "spidev", mode: "auto", base: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &Options{
				StripDriver:         tt.driver,
				StripPolarityFix:    tt.mode,
				StripControllerBase: tt.base,
			}
			fix, err := polarityFix(opts, tt.board)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got fix %+v", fix)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if fix != nil {
					t.Fatalf("expected no fix, got %+v", fix)
				}
				return
			}
			if fix == nil {
				t.Fatal("expected a fix")
			}
			if fix.ControllerBase != tt.wantBase {
				t.Errorf("ControllerBase = %#x, want %#x", fix.ControllerBase, tt.wantBase)
			}
		})
	}
}

func TestNewStrip(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr bool
	}{
		{driver: "adalight"},
		{driver: ""},
		{driver: "spidev"},
		{driver: "noop"},
		{driver: "ws2801", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			opts := &Options{StripDriver: tt.driver, StripDevice: "/dev/null", StripPixels: 8}
			strip, err := newStrip(opts, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strip.Len() != 8 {
				t.Errorf("Len() = %d, want 8", strip.Len())
			}
		})
	}
}
