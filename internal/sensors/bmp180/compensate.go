package bmp180

import "periph.io/x/conn/v3/physic"

// RawSample holds the uncompensated ADC codes from one measurement cycle,
// together with the oversampling the cycle ran at.
type RawSample struct {
	UT           uint16
	UP           int32
	Oversampling Oversampling
}

// Sample is a compensated reading.
type Sample struct {
	TemperatureDeciC int32
	PressurePa       int32
}

func (s Sample) TemperatureC() float64 { return float64(s.TemperatureDeciC) / 10 }

func (s Sample) Temperature() physic.Temperature {
	return physic.Temperature(s.TemperatureDeciC)*100*physic.MilliCelsius + physic.ZeroCelsius
}

func (s Sample) Pressure() physic.Pressure {
	return physic.Pressure(s.PressurePa) * physic.Pascal
}

// The arithmetic below follows the datasheet's reference code step by step.
// Divisions by powers of two are arithmetic shifts, other divisions
// truncate, and B4/B7 are unsigned 32-bit. Reordering any step changes the
// rounding.

// CompensateTemperature returns the temperature in 0.1 °C and the B5 term
// needed by CompensatePressure.
func (c Calibration) CompensateTemperature(ut uint16) (deciC int32, b5 int32, err error) {
	x1 := (int64(ut) - int64(c.AC6)) * int64(c.AC5) >> 15
	den := x1 + int64(c.MD)
	if den == 0 {
		return 0, 0, computationErr("temperature divisor X1+MD is zero (ut=%d)", ut)
	}
	x2 := (int64(c.MC) << 11) / den
	b := x1 + x2
	return int32((b + 8) >> 4), int32(b), nil
}

// CompensatePressure returns the pressure in Pa. b5 must come from the same
// cycle's temperature reading.
func (c Calibration) CompensatePressure(up int32, b5 int32, oss Oversampling) (int32, error) {
	if err := oss.Validate(); err != nil {
		return 0, err
	}

	b6 := int64(b5) - 4000
	x1 := (int64(c.B2) * (b6 * b6 >> 12)) >> 11
	x2 := int64(c.AC2) * b6 >> 11
	x3 := x1 + x2
	b3 := ((int64(c.AC1)*4+x3)<<oss + 2) / 4

	x1 = int64(c.AC3) * b6 >> 13
	x2 = (int64(c.B1) * (b6 * b6 >> 12)) >> 16
	x3 = (x1 + x2 + 2) >> 2
	b4 := uint32(c.AC4) * uint32(x3+32768) >> 15
	if b4 == 0 {
		return 0, computationErr("pressure divisor B4 is zero (b5=%d)", b5)
	}

	if up < 0 {
		up = -up
	}
	b7 := uint32(int64(up)-b3) * uint32(50000>>oss)

	var p int64
	if b7 < 0x80000000 {
		p = int64((b7 * 2) / b4)
	} else {
		p = int64((b7 / b4) * 2)
	}

	x1 = (p >> 8) * (p >> 8)
	x1 = (x1 * 3038) >> 16
	x2 = (-7357 * p) >> 16
	return int32(p + (x1+x2+3791)>>4), nil
}

// Compensate converts a raw sample into a compensated one.
func (c Calibration) Compensate(raw RawSample) (Sample, error) {
	t, b5, err := c.CompensateTemperature(raw.UT)
	if err != nil {
		return Sample{}, err
	}
	p, err := c.CompensatePressure(raw.UP, b5, raw.Oversampling)
	if err != nil {
		return Sample{}, err
	}
	return Sample{TemperatureDeciC: t, PressurePa: p}, nil
}
