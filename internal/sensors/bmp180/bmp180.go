package bmp180

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

var sleep = time.Sleep

// Driver for the Bosch BMP085/BMP180 barometer.
//
// Measurements are split into a temperature and a pressure phase; see
// Scheduler. Device adds calibration, compensation and altitude on top.

const (
	addrDefault = 0x77

	regCalibAC1 = 0xAA
	calibLen    = 22

	regID        = 0xD0
	chipIDBMP180 = 0x55

	regControl     = 0xF4
	cmdTemperature = 0x2E
	cmdPressure    = 0x34

	regResult     = 0xF6
	regResultLSB  = 0xF7
	regResultXLSB = 0xF8

	// SeaLevelPa is the ISA standard sea level pressure.
	SeaLevelPa = 101325
)

func DefaultAddress() uint16 { return addrDefault }

type Config struct {
	// Address defaults to 0x77.
	Address      uint16
	Oversampling Oversampling
	// ReferencePa is the altitude reference. Zero means SeaLevelPa.
	ReferencePa float64
	// Clock defaults to SystemClock.
	Clock Clock
	// EOC is the optional end-of-conversion line.
	EOC ReadyLine
}

type Device struct {
	port  Port
	cfg   Config
	cal   Calibration
	id    [2]byte
	sched *Scheduler
}

// New identifies the chip, reads its calibration and returns an idle device.
func New(port Port, cfg Config) (*Device, error) {
	if port == nil {
		return nil, fmt.Errorf("bmp180: port is nil")
	}
	if err := cfg.Oversampling.Validate(); err != nil {
		return nil, err
	}
	if cfg.ReferencePa == 0 {
		cfg.ReferencePa = SeaLevelPa
	}
	if cfg.ReferencePa < 0 {
		return nil, configErr("reference pressure %g Pa must be > 0", cfg.ReferencePa)
	}
	if cfg.Address == 0 {
		cfg.Address = addrDefault
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}

	d := &Device{port: port, cfg: cfg}
	if err := port.ReadReg(cfg.Address, regID, d.id[:]); err != nil {
		return nil, transportErr("read chip id", err)
	}
	if d.id[0] != chipIDBMP180 {
		return nil, configErr("chip id=0x%02X want 0x%02X", d.id[0], chipIDBMP180)
	}

	cal, err := readCalibration(port, cfg.Address)
	if err != nil {
		return nil, err
	}
	d.cal = cal
	d.sched = NewScheduler(port, cfg.Address, cfg.Clock, cfg.EOC)
	return d, nil
}

func (d *Device) ChipID() [2]byte { return d.id }

func (d *Device) Calibration() Calibration { return d.cal }

func (d *Device) Oversampling() Oversampling { return d.cfg.Oversampling }

// SetOversampling takes effect from the next Start.
func (d *Device) SetOversampling(o Oversampling) error {
	if err := o.Validate(); err != nil {
		return err
	}
	d.cfg.Oversampling = o
	return nil
}

func (d *Device) Reference() float64 { return d.cfg.ReferencePa }

func (d *Device) SetReference(pa float64) error {
	if pa <= 0 {
		return configErr("reference pressure %g Pa must be > 0", pa)
	}
	d.cfg.ReferencePa = pa
	return nil
}

func (d *Device) State() State { return d.sched.State() }

// Start begins a measurement cycle. See Scheduler.Start.
func (d *Device) Start() error {
	return d.sched.Start(d.cfg.Oversampling)
}

// Abort discards a pending cycle.
func (d *Device) Abort() { d.sched.Abort() }

// Poll advances the current cycle and compensates the result once both
// phases are done.
func (d *Device) Poll() (Sample, bool, error) {
	raw, ok, err := d.sched.Poll()
	if err != nil || !ok {
		return Sample{}, false, err
	}
	s, err := d.cal.Compensate(raw)
	if err != nil {
		return Sample{}, false, err
	}
	return s, true, nil
}

// Measure runs one full cycle, sleeping between polls. A cancelled ctx
// aborts the cycle.
func (d *Device) Measure(ctx context.Context) (Sample, error) {
	if err := d.Start(); err != nil {
		return Sample{}, err
	}
	for {
		s, ok, err := d.Poll()
		if err != nil {
			return Sample{}, err
		}
		if ok {
			return s, nil
		}
		if err := ctx.Err(); err != nil {
			d.Abort()
			return Sample{}, err
		}
		sleep(time.Millisecond)
	}
}

// Altitude returns the altitude of s in meters above the reference pressure.
func (d *Device) Altitude(s Sample) (float64, error) {
	return Altitude(float64(s.PressurePa), d.cfg.ReferencePa)
}

// Baseline averages the pressure over window, measured on the device clock.
// A zero window means one second. At least one sample is always taken.
func (d *Device) Baseline(ctx context.Context, window time.Duration) (float64, error) {
	if window <= 0 {
		window = time.Second
	}
	stop := d.cfg.Clock() + uint32(window.Milliseconds())
	var sum float64
	var n int
	for n == 0 || !after(d.cfg.Clock(), stop) {
		s, err := d.Measure(ctx)
		if err != nil {
			return 0, err
		}
		sum += float64(s.PressurePa)
		n++
	}
	return sum / float64(n), nil
}

// Sense takes one reading into e. Humidity is left untouched.
func (d *Device) Sense(e *physic.Env) error {
	s, err := d.Measure(context.Background())
	if err != nil {
		return err
	}
	e.Temperature = s.Temperature()
	e.Pressure = s.Pressure()
	return nil
}

func (d *Device) String() string {
	return fmt.Sprintf("BMP180{addr=0x%02X, oss=%d}", d.cfg.Address, d.cfg.Oversampling)
}
