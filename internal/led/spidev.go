package led

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// WS2812 timing over SPI: at 2.4 MHz one SPI bit is ~417ns, so each data bit
// becomes three SPI bits, 110 for one and 100 for zero.
const (
	DefaultSPISpeedHz = 2_400_000
	spiBitsPerBit     = 3
	spiResetBytes     = 90 // >280us low at 2.4 MHz latches the frame

	spiIocWrMaxSpeedHz = 0x40046b04 // _IOW('k', 4, __u32)
)

// SPIStripConfig describes WS2812 pixels wired to the MOSI line of a SoC SPI
// controller, reached through spidev.
type SPIStripConfig struct {
	Device  string // e.g. /dev/spidev1.0
	Pixels  int
	SpeedHz uint32
}

// SPIStrip clocks WS2812 frames out of a spidev device. This is the strip
// whose controller the polarity fix patches.
type SPIStrip struct {
	cfg  SPIStripConfig
	open func(path string, speedHz uint32) (io.WriteCloser, error)

	mu    sync.Mutex
	dev   io.WriteCloser
	frame []byte
}

// NewSPIStrip returns an unopened spidev strip.
func NewSPIStrip(cfg SPIStripConfig) *SPIStrip {
	if cfg.SpeedHz == 0 {
		cfg.SpeedHz = DefaultSPISpeedHz
	}
	return &SPIStrip{cfg: cfg, open: openSPIDev}
}

func openSPIDev(path string, speedHz uint32) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.IoctlSetPointerInt(int(f.Fd()), spiIocWrMaxSpeedHz, int(speedHz)); err != nil {
		f.Close()
		return nil, fmt.Errorf("set SPI speed %d Hz: %w", speedHz, err)
	}
	return f, nil
}

// Open claims the spidev device. Errors wrap ErrNotReady.
func (s *SPIStrip) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev != nil {
		return nil
	}
	if s.cfg.Pixels <= 0 || s.cfg.Pixels > 1<<16 {
		return fmt.Errorf("strip pixel count %d out of range: %w", s.cfg.Pixels, ErrNotReady)
	}

	dev, err := s.open(s.cfg.Device, s.cfg.SpeedHz)
	if err != nil {
		return fmt.Errorf("open strip %s: %w: %w", s.cfg.Device, ErrNotReady, err)
	}
	s.dev = dev
	s.frame = make([]byte, 3*spiBitsPerBit*s.cfg.Pixels+spiResetBytes)
	return nil
}

func (s *SPIStrip) Len() int { return s.cfg.Pixels }

// Update writes one frame holding every pixel followed by the reset gap.
func (s *SPIStrip) Update(pixels []RGB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil {
		return fmt.Errorf("strip %s not open", s.cfg.Device)
	}
	if len(pixels) != s.cfg.Pixels {
		return fmt.Errorf("strip has %d pixels, frame has %d", s.cfg.Pixels, len(pixels))
	}

	encodeWS2812(s.frame, pixels)
	n, err := s.dev.Write(s.frame)
	if err != nil {
		return fmt.Errorf("write strip frame: %w", err)
	}
	if n != len(s.frame) {
		return fmt.Errorf("write strip frame: short write %d/%d", n, len(s.frame))
	}
	return nil
}

func (s *SPIStrip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}
	err := s.dev.Close()
	s.dev = nil
	return err
}

// encodeWS2812 fills frame with GRB pixel data, three SPI bits per data bit,
// and zeroes the tail so the line idles low.
func encodeWS2812(frame []byte, pixels []RGB) {
	out := frame[:0]
	for _, p := range pixels {
		out = appendSPIByte(out, p.G)
		out = appendSPIByte(out, p.R)
		out = appendSPIByte(out, p.B)
	}
	clear(frame[len(out):])
}

func appendSPIByte(out []byte, b byte) []byte {
	var bits uint32
	for i := 7; i >= 0; i-- {
		if b&(1<<i) != 0 {
			bits = bits<<3 | 0b110
		} else {
			bits = bits<<3 | 0b100
		}
	}
	return append(out, byte(bits>>16), byte(bits>>8), byte(bits))
}
