//go:build !linux

package i2c

import "fmt"

type Bus struct{}

func Open(path string) (*Bus, error) { return nil, fmt.Errorf("i2c: unsupported OS (need linux)") }

func BusPath(n int) string { return fmt.Sprintf("/dev/i2c-%d", n) }

func (b *Bus) String() string { return "i2c(unsupported)" }

func (b *Bus) Close() error { return nil }

func (b *Bus) ReadReg(addr uint16, reg byte, dst []byte) error {
	return fmt.Errorf("i2c: unsupported OS")
}

func (b *Bus) WriteReg(addr uint16, reg, value byte) error { return fmt.Errorf("i2c: unsupported OS") }
