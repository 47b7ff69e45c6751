package led

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// RGB is one strip pixel.
type RGB struct {
	R, G, B uint8
}

func (c RGB) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Strip colors. Intensities are kept low so a USB port can power the strip.
var (
	Off    = RGB{}
	Red    = RGB{R: 0x0f}
	Green  = RGB{G: 0x0f}
	Blue   = RGB{B: 0x0f}
	Yellow = RGB{R: 0x08, G: 0x08}
)

// Palette maps color names accepted in configuration to colors.
var Palette = map[string]RGB{
	"off":    Off,
	"red":    Red,
	"green":  Green,
	"blue":   Blue,
	"yellow": Yellow,
}

var colorNames = map[RGB]string{
	Off:    "off",
	Red:    "red",
	Green:  "green",
	Blue:   "blue",
	Yellow: "yellow",
}

// Strip is an addressable RGB LED chain. Update always receives the whole
// buffer; drivers push it as one frame.
type Strip interface {
	Open() error
	Len() int
	Update(pixels []RGB) error
	Close() error
}

// Fill sets every pixel to c.
func Fill(pixels []RGB, c RGB) {
	for i := range pixels {
		pixels[i] = c
	}
}

// NoopStrip accepts frames and drops them. It stands in for a strip on
// benches without one attached.
type NoopStrip struct {
	pixels int
	frames atomic.Uint64
	logger *slog.Logger
}

// NewNoopStrip returns a strip of n pixels that only logs frames.
func NewNoopStrip(n int, logger *slog.Logger) *NoopStrip {
	return &NoopStrip{pixels: n, logger: logger}
}

func (s *NoopStrip) Open() error { return nil }

func (s *NoopStrip) Len() int { return s.pixels }

func (s *NoopStrip) Update(pixels []RGB) error {
	if len(pixels) != s.pixels {
		return fmt.Errorf("strip has %d pixels, frame has %d", s.pixels, len(pixels))
	}
	n := s.frames.Add(1)
	if len(pixels) > 0 {
		s.logger.Debug("Strip frame (no-op)", "frame", n, "first", pixels[0].String())
	}
	return nil
}

func (s *NoopStrip) Close() error { return nil }
