// Package periphio adapts a periph.io I2C bus to the register port used by
// the sensor drivers.
package periphio

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

type Bus struct {
	bus i2c.Bus
	c   interface{ Close() error }
}

// Open initializes the periph host drivers once and opens the named bus.
// An empty name selects the first available bus.
func Open(name string) (*Bus, error) {
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("periphio: host init: %w", err)
	}
	bc, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("periphio: open %q: %w", name, err)
	}
	return &Bus{bus: bc, c: bc}, nil
}

// Wrap uses an already opened periph bus. Close is a no-op for wrapped buses.
func Wrap(bus i2c.Bus) *Bus {
	return &Bus{bus: bus}
}

func (b *Bus) String() string { return b.bus.String() }

func (b *Bus) ReadReg(addr uint16, reg byte, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	return b.dev(addr).Tx([]byte{reg}, dst)
}

func (b *Bus) WriteReg(addr uint16, reg, value byte) error {
	return b.dev(addr).Tx([]byte{reg, value}, nil)
}

func (b *Bus) Close() error {
	if b == nil || b.c == nil {
		return nil
	}
	err := b.c.Close()
	b.c = nil
	return err
}

func (b *Bus) dev(addr uint16) *i2c.Dev {
	return &i2c.Dev{Bus: b.bus, Addr: addr}
}
