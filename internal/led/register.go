package led

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

const devMemPath = "/dev/mem"

// Register is one 32-bit memory-mapped hardware register.
type Register interface {
	Addr() uint64
	Read() (uint32, error)
	Write(v uint32) error
	Close() error
}

// DevMemRegister maps the page holding a physical register through /dev/mem.
// Accesses are single aligned 32-bit loads and stores.
type DevMemRegister struct {
	addr uint64
	file *os.File
	mem  mmap.MMap
	off  int
}

// OpenDevMem maps the register at physical address addr. It needs
// CAP_SYS_RAWIO and a kernel that allows /dev/mem access to the range.
func OpenDevMem(addr uint64) (Register, error) {
	return openMemRegister(devMemPath, addr)
}

func openMemRegister(path string, addr uint64) (*DevMemRegister, error) {
	if addr%4 != 0 {
		return nil, fmt.Errorf("register address %#x is not 32-bit aligned", addr)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	page := uint64(os.Getpagesize())
	base := addr &^ (page - 1)
	mem, err := mmap.MapRegion(f, int(page), mmap.RDWR, 0, int64(base))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("map %s at %#x: %w", path, base, err)
	}

	return &DevMemRegister{addr: addr, file: f, mem: mem, off: int(addr - base)}, nil
}

func (r *DevMemRegister) word() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.mem[r.off]))
}

func (r *DevMemRegister) Addr() uint64 { return r.addr }

func (r *DevMemRegister) Read() (uint32, error) {
	return atomic.LoadUint32(r.word()), nil
}

func (r *DevMemRegister) Write(v uint32) error {
	atomic.StoreUint32(r.word(), v)
	return nil
}

func (r *DevMemRegister) Close() error {
	err := r.mem.Unmap()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}
