package led

import (
	"fmt"
	"log/slog"
)

// SPI controller register layout used by the polarity fix.
const (
	SPICtrlRegOffset   = 0x8 // SPI_CTRL_REG
	SPIDataPolarityBit = 19  // SPI_D_POL
)

// PolarityFix clears the output data polarity bit of the SPI controller that
// clocks the strip. Some boards bring the controller up with the data line
// inverted, which makes WS2812 pixels latch garbage. The driver offers no
// knob for it, so the register is patched directly.
type PolarityFix struct {
	ControllerBase uint64
	// Open maps the register; nil means OpenDevMem.
	Open func(addr uint64) (Register, error)
}

// Addr returns the physical address of the control register.
func (p PolarityFix) Addr() uint64 {
	return p.ControllerBase + SPICtrlRegOffset
}

// Apply performs one read-modify-write of the control register.
func (p PolarityFix) Apply(logger *slog.Logger) error {
	open := p.Open
	if open == nil {
		open = OpenDevMem
	}

	reg, err := open(p.Addr())
	if err != nil {
		return fmt.Errorf("map SPI control register: %w: %w", ErrNotReady, err)
	}
	defer reg.Close()

	before, err := reg.Read()
	if err != nil {
		return fmt.Errorf("read SPI control register: %w", err)
	}
	after := before &^ (1 << SPIDataPolarityBit)
	if err := reg.Write(after); err != nil {
		return fmt.Errorf("write SPI control register: %w", err)
	}

	logger.Debug("SPI data polarity cleared",
		"addr", fmt.Sprintf("%#x", reg.Addr()),
		"before", fmt.Sprintf("%#08x", before),
		"after", fmt.Sprintf("%#08x", after))
	return nil
}
