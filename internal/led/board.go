package led

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Board describes how a supported board wires its LEDs and which quirks its
// strip output needs.
type Board struct {
	Name  string
	Model string // model string reported by the device tree
	match string

	// LEDs maps LED names to /sys/class/leds entries.
	LEDs map[string]string
	// StatusLED is toggled by the control loop.
	StatusLED string
	// SystemLED, when set, shows connection health.
	SystemLED string

	// SPIControllerBase is the physical base address of the SPI controller
	// feeding the strip. Nonzero means the controller comes up with inverted
	// output data polarity and needs PolarityFix.
	SPIControllerBase uint64
}

// NeedsPolarityFix reports whether the strip controller must be patched.
func (b Board) NeedsPolarityFix() bool { return b.SPIControllerBase != 0 }

var boards = []Board{
	{
		Name:      "NanoPC-T6",
		match:     "NanoPC-T6",
		LEDs:      map[string]string{"user": "usr_led", "system": "sys_led"},
		StatusLED: "user",
		SystemLED: "system",
	},
	{
		Name:      "Orange Pi",
		match:     "Orange Pi",
		LEDs:      map[string]string{"blue": "blue_led", "green": "green_led"},
		StatusLED: "green",
		SystemLED: "blue",
	},
	{
		Name:      "Raspberry Pi",
		match:     "Raspberry Pi",
		LEDs:      map[string]string{"act": "ACT"},
		StatusLED: "act",
	},
	{
		// SPI2 (GPSPI2) drives the strip; its data line idles inverted.
		Name:              "ESP32-S2",
		match:             "ESP32-S2",
		LEDs:              map[string]string{"status": "led0"},
		StatusLED:         "status",
		SPIControllerBase: 0x3F424000,
	},
}

// DetectBoard identifies the board from the device tree model.
func DetectBoard() Board {
	return boardForModel(readModel(deviceTreeModelPath))
}

func boardForModel(model string) Board {
	for _, b := range boards {
		if strings.Contains(model, b.match) {
			b.Model = model
			return b
		}
	}
	return Board{Name: "generic", Model: model}
}

func readModel(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	// device tree strings are NUL terminated
	return strings.TrimRight(string(data), "\x00")
}

// ControllerOptions selects and configures the discrete LED driver.
type ControllerOptions struct {
	Driver   string // auto, sysfs, gpiocdev or noop
	Name     string // LED name; defaults to the board's status LED
	GPIOChip string
	GPIOLine int
}

// LEDName resolves the LED the control loop toggles.
func (o ControllerOptions) LEDName(board Board) string {
	if o.Name != "" {
		return o.Name
	}
	if board.StatusLED != "" {
		return board.StatusLED
	}
	return "status"
}

// New creates the LED controller for board. auto prefers the board's sysfs
// LEDs, then a configured GPIO line, then the no-op controller.
func New(opts ControllerOptions, board Board, logger *slog.Logger) (Controller, error) {
	name := opts.LEDName(board)

	driver := opts.Driver
	if driver == "" || driver == "auto" {
		switch {
		case len(board.LEDs) > 0:
			driver = "sysfs"
		case opts.GPIOChip != "":
			driver = "gpiocdev"
		default:
			driver = "noop"
		}
	}

	logger.Info("Using LED controller", "driver", driver, "board", board.Name, "board_model", board.Model, "led", name)

	switch driver {
	case "sysfs":
		leds := board.LEDs
		if len(leds) == 0 {
			leds = map[string]string{name: name}
		}
		return newSysfs(leds), nil
	case "gpiocdev":
		if opts.GPIOChip == "" {
			return nil, fmt.Errorf("gpiocdev LED driver needs a GPIO chip")
		}
		return newGPIO(opts.GPIOChip, map[string]int{name: opts.GPIOLine}), nil
	case "noop":
		return newNoop(logger), nil
	default:
		return nil, fmt.Errorf("unknown LED driver %q", opts.Driver)
	}
}
