package led

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func newTestSPIStrip(pixels int, dev *fakePort, openErr error) (*SPIStrip, *uint32) {
	s := NewSPIStrip(SPIStripConfig{Device: "/dev/spidev1.0", Pixels: pixels})
	var speed uint32
	s.open = func(_ string, hz uint32) (io.WriteCloser, error) {
		speed = hz
		if openErr != nil {
			return nil, openErr
		}
		return dev, nil
	}
	return s, &speed
}

func TestAppendSPIByte(t *testing.T) {
	tests := []struct {
		in   byte
		want []byte
	}{
		{0x00, []byte{0x92, 0x49, 0x24}},
		{0x0f, []byte{0x92, 0x4d, 0xb6}},
		{0xff, []byte{0xdb, 0x6d, 0xb6}},
	}
	for _, tt := range tests {
		if got := appendSPIByte(nil, tt.in); !bytes.Equal(got, tt.want) {
			t.Errorf("appendSPIByte(%#02x) = % x, want % x", tt.in, got, tt.want)
		}
	}
}

func TestSPIStripFrame(t *testing.T) {
	dev := &fakePort{}
	s, speed := newTestSPIStrip(2, dev, nil)
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if *speed != DefaultSPISpeedHz {
		t.Errorf("speed = %d, want %d", *speed, DefaultSPISpeedHz)
	}

	if err := s.Update([]RGB{Blue, Off}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	zero := []byte{0x92, 0x49, 0x24}
	blue := []byte{0x92, 0x4d, 0xb6}
	var want []byte
	want = append(want, zero...) // G
	want = append(want, zero...) // R
	want = append(want, blue...) // B
	for i := 0; i < 3; i++ {
		want = append(want, zero...)
	}
	want = append(want, make([]byte, spiResetBytes)...)

	if got := dev.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("frame = % x\nwant    % x", got, want)
	}
}

func TestSPIStripErrors(t *testing.T) {
	s, _ := newTestSPIStrip(1, nil, errors.New("no such device"))
	if err := s.Open(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Open error = %v, want ErrNotReady", err)
	}

	s, _ = newTestSPIStrip(0, &fakePort{}, nil)
	if err := s.Open(); !errors.Is(err, ErrNotReady) {
		t.Errorf("zero pixels: Open error = %v, want ErrNotReady", err)
	}

	dev := &fakePort{}
	s, _ = newTestSPIStrip(1, dev, nil)
	if err := s.Update([]RGB{Blue}); err == nil {
		t.Error("Update before Open should fail")
	}
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	if err := s.Update([]RGB{Blue, Blue}); err == nil {
		t.Error("Update with wrong length should fail")
	}
	dev.writeErr = errors.New("EIO")
	if err := s.Update([]RGB{Blue}); err == nil {
		t.Error("write error not returned")
	}
	if err := s.Close(); err != nil || !dev.closed {
		t.Errorf("Close = %v, closed = %v", err, dev.closed)
	}
}
