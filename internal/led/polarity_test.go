package led

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// memFile creates a two page file standing in for /dev/mem.
func memFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mem")
	if err := os.WriteFile(path, make([]byte, 2*os.Getpagesize()), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMemRegisterReadWrite(t *testing.T) {
	path := memFile(t)
	addr := uint64(os.Getpagesize()) + 0x8

	reg, err := openMemRegister(path, addr)
	if err != nil {
		t.Fatalf("openMemRegister: %v", err)
	}
	if err := reg.Write(0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	got, err := reg.Read()
	if err != nil || got != 0xdeadbeef {
		t.Errorf("Read = %#x, %v", got, err)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if v := binary.NativeEndian.Uint32(data[addr:]); v != 0xdeadbeef {
		t.Errorf("backing file holds %#x", v)
	}
}

func TestMemRegisterRejectsUnaligned(t *testing.T) {
	if _, err := openMemRegister(memFile(t), 0x6); err == nil {
		t.Error("expected alignment error")
	}
}

func TestPolarityFixClearsOnlyBit19(t *testing.T) {
	path := memFile(t)
	page := uint64(os.Getpagesize())

	fix := PolarityFix{
		ControllerBase: page,
		Open: func(addr uint64) (Register, error) {
			return openMemRegister(path, addr)
		},
	}
	if fix.Addr() != page+0x8 {
		t.Fatalf("Addr = %#x", fix.Addr())
	}

	tests := []struct {
		name   string
		before uint32
		want   uint32
	}{
		{"bit set", 0x0008_0000, 0},
		{"bit and neighbours set", 0xffff_ffff, 0xfff7_ffff},
		{"bit already clear", 0x0000_1234, 0x0000_1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := fix.Open(fix.Addr())
			if err != nil {
				t.Fatal(err)
			}
			reg.Write(tt.before)
			reg.Close()

			if err := fix.Apply(discardLogger()); err != nil {
				t.Fatalf("Apply: %v", err)
			}

			reg, _ = fix.Open(fix.Addr())
			defer reg.Close()
			if got, _ := reg.Read(); got != tt.want {
				t.Errorf("register = %#08x, want %#08x", got, tt.want)
			}
		})
	}
}

func TestPolarityFixOpenFailure(t *testing.T) {
	fix := PolarityFix{
		ControllerBase: 0x3F424000,
		Open: func(uint64) (Register, error) {
			return nil, os.ErrPermission
		},
	}
	err := fix.Apply(discardLogger())
	if !errors.Is(err, ErrNotReady) || !errors.Is(err, os.ErrPermission) {
		t.Errorf("Apply = %v, want ErrNotReady wrapping permission error", err)
	}
}
