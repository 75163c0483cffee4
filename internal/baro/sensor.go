package baro

import (
	"fmt"

	"bmp180-ng/internal/eoc"
	"bmp180-ng/internal/i2c"
	"bmp180-ng/internal/i2c/periphio"
	"bmp180-ng/internal/sensors/bmp180"
)

type port interface {
	bmp180.Port
	Close() error
}

type readyLine interface {
	bmp180.ReadyLine
	Close() error
}

var openPortFn = func(cfg Config) (port, error) {
	if cfg.Transport == "periph" {
		return periphio.Open(cfg.I2CDevice)
	}
	return i2c.Open(i2c.BusPath(cfg.I2CBus))
}

var openEOCFn = func(pin int) (readyLine, error) {
	l, err := eoc.Open(pin)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Sensor is an initialized device together with the bus and EOC line it
// owns.
type Sensor struct {
	port port
	eoc  readyLine
	dev  *bmp180.Device
}

// Open opens the configured transport (and EOC line, if any) and
// initializes the device on it. Everything opened is released on failure.
func Open(cfg Config) (*Sensor, error) {
	if err := cfg.Oversampling.Validate(); err != nil {
		return nil, err
	}
	p, err := openPortFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("baro: open %s bus: %w", cfg.Transport, err)
	}
	sn := &Sensor{port: p}

	if cfg.EOCPin > 0 {
		l, err := openEOCFn(cfg.EOCPin)
		if err != nil {
			_ = sn.Close()
			return nil, fmt.Errorf("baro: eoc init: %w", err)
		}
		sn.eoc = l
	}

	if err := sn.init(cfg); err != nil {
		_ = sn.Close()
		return nil, fmt.Errorf("baro: init: %w", err)
	}
	return sn, nil
}

// init reads identity and calibration on the open bus.
func (sn *Sensor) init(cfg Config) error {
	dcfg := bmp180.Config{
		Address:      cfg.Addr,
		Oversampling: cfg.Oversampling,
		ReferencePa:  cfg.ReferencePa,
	}
	if sn.eoc != nil {
		dcfg.EOC = sn.eoc
	}
	dev, err := bmp180.New(sn.port, dcfg)
	if err != nil {
		return err
	}
	sn.dev = dev
	return nil
}

func (sn *Sensor) Device() *bmp180.Device { return sn.dev }

func (sn *Sensor) Close() error {
	if sn == nil {
		return nil
	}
	var err error
	if sn.eoc != nil {
		err = sn.eoc.Close()
		sn.eoc = nil
	}
	if sn.port != nil {
		if cerr := sn.port.Close(); err == nil {
			err = cerr
		}
		sn.port = nil
	}
	return err
}
