//go:build linux

package i2c

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux I2C bus backed by /dev/i2c-*.
//
// Register reads go out as one I2C_RDWR transaction (write register
// address, repeated start, read), which the BMP085/BMP180 requires.

const (
	i2cMrd  = 0x0001
	i2cRdwr = 0x0707
)

type msg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type rdwrData struct {
	msgs  uintptr
	nmsgs uint32
}

// Bus is an opened I2C bus (e.g., /dev/i2c-1). It implements the register
// port used by the sensor drivers. Transfers are serialized.
type Bus struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func Open(path string) (*Bus, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &Bus{f: f, path: path}, nil
}

// BusPath returns the device node for bus number n.
func BusPath(n int) string { return fmt.Sprintf("/dev/i2c-%d", n) }

func (b *Bus) String() string {
	if b == nil {
		return "i2c(nil)"
	}
	return b.path
}

func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}

// ReadReg reads len(dst) bytes starting at reg.
func (b *Bus) ReadReg(addr uint16, reg byte, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	return b.tx(addr, []byte{reg}, dst)
}

// WriteReg writes a single byte to reg.
func (b *Bus) WriteReg(addr uint16, reg, value byte) error {
	return b.tx(addr, []byte{reg, value}, nil)
}

func (b *Bus) tx(addr uint16, w, r []byte) error {
	if b == nil {
		return errors.New("i2c bus is nil")
	}
	if addr == 0 || addr > 0x7F {
		return fmt.Errorf("invalid i2c addr 0x%X", addr)
	}

	msgs := make([]msg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, msg{addr: addr, flags: 0, len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))})
	}
	if len(r) > 0 {
		msgs = append(msgs, msg{addr: addr, flags: i2cMrd, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))})
	}
	if len(msgs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return fmt.Errorf("i2c %s: closed", b.path)
	}
	data := rdwrData{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(len(msgs))}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, b.f.Fd(), uintptr(i2cRdwr), uintptr(unsafe.Pointer(&data)))
	if errno != 0 {
		return fmt.Errorf("i2c %s addr 0x%02X: %w", b.path, addr, errno)
	}
	return nil
}
