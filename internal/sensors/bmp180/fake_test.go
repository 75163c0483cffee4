package bmp180

import (
	"encoding/binary"
	"errors"
)

// fakeI2C models the chip's register file. Writing a conversion command to
// the control register latches the configured ADC result into 0xF6..0xF8,
// like the real part does once the conversion finishes.
type fakeI2C struct {
	mem [256]byte

	ut    uint16
	upRaw uint32 // 24-bit MSB/LSB/XLSB value

	readErr  map[byte]error
	writeErr error

	addrs  []uint16
	reads  []byte
	writes []writeOp
}

type writeOp struct {
	reg byte
	val byte
}

func (f *fakeI2C) ReadReg(addr uint16, reg byte, dst []byte) error {
	f.addrs = append(f.addrs, addr)
	f.reads = append(f.reads, reg)
	if err := f.readErr[reg]; err != nil {
		return err
	}
	if int(reg)+len(dst) > len(f.mem) {
		return errors.New("read past end")
	}
	copy(dst, f.mem[reg:])
	return nil
}

func (f *fakeI2C) WriteReg(addr uint16, reg, value byte) error {
	f.addrs = append(f.addrs, addr)
	f.writes = append(f.writes, writeOp{reg: reg, val: value})
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mem[reg] = value
	if reg != regControl {
		return nil
	}
	switch {
	case value == cmdTemperature:
		binary.BigEndian.PutUint16(f.mem[regResult:], f.ut)
	case value&0x3F == cmdPressure:
		f.mem[regResult] = byte(f.upRaw >> 16)
		f.mem[regResultLSB] = byte(f.upRaw >> 8)
		f.mem[regResultXLSB] = byte(f.upRaw)
	}
	return nil
}

type fakeClock struct {
	now uint32
}

func (c *fakeClock) Now() uint32 { return c.now }

type fakeEOC struct {
	high bool
	err  error
}

func (e *fakeEOC) Ready() (bool, error) { return e.high, e.err }

// Datasheet worked example.
func datasheetCalibration() Calibration {
	return Calibration{
		AC1: 408, AC2: -72, AC3: -14383, AC4: 32741, AC5: 32757, AC6: 23153,
		B1: 6190, B2: 4, MB: -32767, MC: -8711, MD: 2868,
	}
}

const (
	datasheetUT    = 27898
	datasheetUPRaw = 23843 << 8 // UP at oss=0, before the shift
)

func calibrationBytes(c Calibration) []byte {
	buf := make([]byte, calibLen)
	for i, w := range []uint16{
		uint16(c.AC1), uint16(c.AC2), uint16(c.AC3), c.AC4, c.AC5, c.AC6,
		uint16(c.B1), uint16(c.B2), uint16(c.MB), uint16(c.MC), uint16(c.MD),
	} {
		binary.BigEndian.PutUint16(buf[i*2:], w)
	}
	return buf
}

func newFakeChip() *fakeI2C {
	f := &fakeI2C{ut: datasheetUT, upRaw: datasheetUPRaw}
	f.mem[regID] = chipIDBMP180
	copy(f.mem[regCalibAC1:], calibrationBytes(datasheetCalibration()))
	return f
}
