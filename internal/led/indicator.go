package led

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/blinkynode/internal/events"
)

// IndicatorOptions wires an Indicator to its hardware.
type IndicatorOptions struct {
	Controller Controller
	LED        string

	// Strip is optional. Without it only the discrete LED is driven.
	Strip Strip
	// Polarity, when set, is applied between the black and the first
	// colored frame at startup.
	Polarity *PolarityFix
	// Color shown on odd counters; defaults to Blue.
	Color RGB

	Bus    *events.Bus
	Logger *slog.Logger
}

// Indicator reflects control loop progress on a discrete LED and an
// optional RGB strip.
type Indicator struct {
	ctrl     Controller
	led      string
	strip    Strip
	polarity *PolarityFix
	color    RGB
	bus      *events.Bus
	logger   *slog.Logger

	mu     sync.Mutex
	pixels []RGB
	ledOn  bool
	shown  RGB
}

// NewIndicator creates an Indicator. Nothing touches hardware until Init.
func NewIndicator(opts IndicatorOptions) *Indicator {
	color := opts.Color
	if color == Off {
		color = Blue
	}
	return &Indicator{
		ctrl:     opts.Controller,
		led:      opts.LED,
		strip:    opts.Strip,
		polarity: opts.Polarity,
		color:    color,
		bus:      opts.Bus,
		logger:   opts.Logger,
	}
}

// Init claims the LED and switches it on. With a strip it pushes an all-off
// frame, applies the polarity fix if configured, then pushes an all-color
// frame. Missing hardware is reported as ErrNotReady.
func (i *Indicator) Init() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.ctrl.Ready(i.led); err != nil {
		return err
	}
	if err := i.ctrl.Set(i.led, true, ""); err != nil {
		return fmt.Errorf("switch on LED %q: %w", i.led, err)
	}
	i.ledOn = true

	if i.strip == nil {
		return nil
	}

	if err := i.strip.Open(); err != nil {
		return err
	}
	if i.strip.Len() <= 0 {
		return fmt.Errorf("strip has no pixels: %w", ErrNotReady)
	}
	i.pixels = make([]RGB, i.strip.Len())

	if err := i.push(Off); err != nil {
		return err
	}
	if i.polarity != nil {
		if err := i.polarity.Apply(i.logger); err != nil {
			return err
		}
	}
	return i.push(i.color)
}

// Step toggles the LED and shows the color for counter: Color when odd,
// off when even.
func (i *Indicator) Step(counter uint32) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	next := !i.ledOn
	if err := i.ctrl.Set(i.led, next, ""); err != nil {
		return fmt.Errorf("toggle LED %q: %w", i.led, err)
	}
	i.ledOn = next

	ev := events.IndicatorChangedEvent{Counter: counter, LEDOn: next}
	if i.strip != nil {
		c := Off
		if counter%2 == 1 {
			c = i.color
		}
		if err := i.push(c); err != nil {
			return err
		}
		ev.Color = c.String()
	}

	i.bus.Publish(ev)
	return nil
}

// State returns the LED state and the color last pushed to the strip.
func (i *Indicator) State() (ledOn bool, color RGB, hasStrip bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ledOn, i.shown, i.strip != nil
}

// Close releases the strip and the LED controller.
func (i *Indicator) Close() error {
	var err error
	if i.strip != nil {
		err = i.strip.Close()
	}
	if cerr := i.ctrl.Close(); err == nil {
		err = cerr
	}
	return err
}

// push must be called with i.mu held.
func (i *Indicator) push(c RGB) error {
	Fill(i.pixels, c)
	if err := i.strip.Update(i.pixels); err != nil {
		return fmt.Errorf("update strip: %w", err)
	}
	i.shown = c
	return nil
}
