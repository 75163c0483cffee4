//go:build linux

package eoc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// Open requests the given BCM GPIO as an input using the Linux GPIO
// character device. The chip drives EOC high when a conversion finishes.
func Open(pin int) (*Line, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("eoc: invalid gpio pin %d", pin)
	}

	// On Pi, line names are commonly "GPIO17", etc.
	lineName := fmt.Sprintf("GPIO%d", pin)

	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		l, err := chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithConsumer("bmp180-ng-eoc"))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &Line{pin: pin, v: &gpiodLine{chip: chip, line: l}}, nil
	}

	return nil, fmt.Errorf("eoc: gpio line %q not found (or busy)", lineName)
}

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) Value() (int, error) {
	return g.line.Value()
}

func (g *gpiodLine) Close() error {
	err := g.line.Close()
	if cerr := g.chip.Close(); err == nil {
		err = cerr
	}
	return err
}
