package led

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/grid-x/serial"
)

// AdalightConfig describes a strip behind a serial Adalight bridge, such as a
// microcontroller clocking WS2812 pixels out of its SPI peripheral.
type AdalightConfig struct {
	Device   string
	BaudRate int
	Pixels   int
	Timeout  time.Duration
}

// Adalight pushes frames using the Adalight protocol: "Ada", the pixel count
// minus one as big-endian uint16, a checksum byte, then RGB triplets.
type Adalight struct {
	cfg  AdalightConfig
	open func(*serial.Config) (io.ReadWriteCloser, error)

	mu    sync.Mutex
	port  io.ReadWriteCloser
	frame []byte
}

// NewAdalight returns an unopened serial strip.
func NewAdalight(cfg AdalightConfig) *Adalight {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	return &Adalight{
		cfg: cfg,
		open: func(c *serial.Config) (io.ReadWriteCloser, error) {
			return serial.Open(c)
		},
	}
}

// Open claims the serial port. Errors wrap ErrNotReady.
func (a *Adalight) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port != nil {
		return nil
	}
	if a.cfg.Pixels <= 0 || a.cfg.Pixels > 1<<16 {
		return fmt.Errorf("strip pixel count %d out of range: %w", a.cfg.Pixels, ErrNotReady)
	}

	port, err := a.open(&serial.Config{
		Address:  a.cfg.Device,
		BaudRate: a.cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  a.cfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("open strip %s: %w: %w", a.cfg.Device, ErrNotReady, err)
	}
	a.port = port
	a.frame = make([]byte, 6+3*a.cfg.Pixels)
	return nil
}

func (a *Adalight) Len() int { return a.cfg.Pixels }

// Update writes one frame holding every pixel.
func (a *Adalight) Update(pixels []RGB) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return fmt.Errorf("strip %s not open", a.cfg.Device)
	}
	if len(pixels) != a.cfg.Pixels {
		return fmt.Errorf("strip has %d pixels, frame has %d", a.cfg.Pixels, len(pixels))
	}

	encodeAdalight(a.frame, pixels)
	n, err := a.port.Write(a.frame)
	if err != nil {
		return fmt.Errorf("write strip frame: %w", err)
	}
	if n != len(a.frame) {
		return fmt.Errorf("write strip frame: short write %d/%d", n, len(a.frame))
	}
	return nil
}

func (a *Adalight) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.port == nil {
		return nil
	}
	err := a.port.Close()
	a.port = nil
	return err
}

// encodeAdalight fills frame, which must hold 6+3*len(pixels) bytes.
func encodeAdalight(frame []byte, pixels []RGB) {
	count := len(pixels) - 1
	hi, lo := byte(count>>8), byte(count)
	frame[0], frame[1], frame[2] = 'A', 'd', 'a'
	frame[3], frame[4], frame[5] = hi, lo, hi^lo^0x55
	for i, p := range pixels {
		frame[6+3*i] = p.R
		frame[7+3*i] = p.G
		frame[8+3*i] = p.B
	}
}
