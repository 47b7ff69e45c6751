package led

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

const gpioConsumer = "blinkynode"

// gpioLine drives LEDs wired straight to GPIO lines through the GPIO
// character device. Lines are requested on first use and held until Close.
type gpioLine struct {
	chipName string
	offsets  map[string]int

	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines map[string]*gpiocdev.Line
}

func newGPIO(chipName string, offsets map[string]int) *gpioLine {
	return &gpioLine{
		chipName: chipName,
		offsets:  offsets,
		lines:    make(map[string]*gpiocdev.Line),
	}
}

// Ready requests the line as an output driven active.
func (g *gpioLine) Ready(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, err := g.line(name)
	return err
}

// line must be called with g.mu held.
func (g *gpioLine) line(name string) (*gpiocdev.Line, error) {
	if l, ok := g.lines[name]; ok {
		return l, nil
	}
	offset, ok := g.offsets[name]
	if !ok {
		return nil, fmt.Errorf("LED %q has no GPIO line: %w", name, ErrNotReady)
	}
	if g.chip == nil {
		chip, err := gpiocdev.NewChip(g.chipName, gpiocdev.WithConsumer(gpioConsumer))
		if err != nil {
			return nil, fmt.Errorf("open %s: %w: %w", g.chipName, ErrNotReady, err)
		}
		g.chip = chip
	}
	l, err := g.chip.RequestLine(offset, gpiocdev.AsOutput(1))
	if err != nil {
		return nil, fmt.Errorf("request %s line %d: %w: %w", g.chipName, offset, ErrNotReady, err)
	}
	g.lines[name] = l
	return l, nil
}

func (g *gpioLine) Set(name string, enabled bool, pattern string) error {
	if pattern != "" && pattern != "solid" {
		return fmt.Errorf("pattern %q not supported on GPIO LEDs", pattern)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	l, err := g.line(name)
	if err != nil {
		return err
	}
	value := 0
	if enabled {
		value = 1
	}
	return l.SetValue(value)
}

func (g *gpioLine) Available() []string {
	names := make([]string, 0, len(g.offsets))
	for name := range g.offsets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (g *gpioLine) Patterns() []string {
	return []string{"solid"}
}

func (g *gpioLine) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	for name, l := range g.lines {
		errs = append(errs, l.Close())
		delete(g.lines, name)
	}
	if g.chip != nil {
		errs = append(errs, g.chip.Close())
		g.chip = nil
	}
	return errors.Join(errs...)
}
