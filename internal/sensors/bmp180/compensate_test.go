package bmp180

import (
	"errors"
	"testing"
)

func TestCompensate_DatasheetExample(t *testing.T) {
	c := datasheetCalibration()

	temp, b5, err := c.CompensateTemperature(datasheetUT)
	if err != nil {
		t.Fatalf("CompensateTemperature: %v", err)
	}
	if temp != 150 {
		t.Fatalf("temp=%d want 150", temp)
	}
	if b5 != 2400 {
		t.Fatalf("b5=%d want 2400", b5)
	}

	p, err := c.CompensatePressure(23843, b5, UltraLowPower)
	if err != nil {
		t.Fatalf("CompensatePressure: %v", err)
	}
	if p != 69964 {
		t.Fatalf("p=%d want 69964", p)
	}
}

func TestCompensatePressure_OversamplingShift(t *testing.T) {
	// Same 24-bit ADC word read at each oversampling setting.
	c := datasheetCalibration()
	_, b5, err := c.CompensateTemperature(datasheetUT)
	if err != nil {
		t.Fatalf("CompensateTemperature: %v", err)
	}
	want := []int32{69964, 69962, 69963, 69963}
	for oss := UltraLowPower; oss <= UltraHighResolution; oss++ {
		up := int32(datasheetUPRaw >> (8 - oss))
		p, err := c.CompensatePressure(up, b5, oss)
		if err != nil {
			t.Fatalf("oss=%d: %v", oss, err)
		}
		if p != want[oss] {
			t.Fatalf("oss=%d p=%d want %d", oss, p, want[oss])
		}
	}
}

func TestCompensate_Deterministic(t *testing.T) {
	c := datasheetCalibration()
	raw := RawSample{UT: datasheetUT, UP: 23843, Oversampling: UltraLowPower}
	a, err := c.Compensate(raw)
	if err != nil {
		t.Fatalf("Compensate: %v", err)
	}
	b, err := c.Compensate(raw)
	if err != nil {
		t.Fatalf("Compensate: %v", err)
	}
	if a != b {
		t.Fatalf("first=%+v second=%+v", a, b)
	}
	if a.TemperatureC() != 15.0 {
		t.Fatalf("tempC=%v want 15", a.TemperatureC())
	}
}

func TestCompensateTemperature_ZeroDivisorErrors(t *testing.T) {
	c := datasheetCalibration()
	// AC5=2^15 makes X1 = UT-AC6, so UT=AC6-MD gives X1+MD == 0.
	c.AC5 = 1 << 15
	ut := uint16(int32(c.AC6) - int32(c.MD))
	_, _, err := c.CompensateTemperature(ut)
	if !errors.Is(err, ErrComputation) {
		t.Fatalf("err=%v want ErrComputation", err)
	}
}

func TestCompensatePressure_ZeroB4Errors(t *testing.T) {
	c := datasheetCalibration()
	c.AC4 = 0
	_, err := c.CompensatePressure(23843, 2400, UltraLowPower)
	if !errors.Is(err, ErrComputation) {
		t.Fatalf("err=%v want ErrComputation", err)
	}
}

func TestCompensatePressure_RejectsBadOversampling(t *testing.T) {
	c := datasheetCalibration()
	_, err := c.CompensatePressure(23843, 2400, Oversampling(4))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("err=%v want ErrConfig", err)
	}
}

func TestParseCalibration(t *testing.T) {
	want := datasheetCalibration()
	got, err := parseCalibration(calibrationBytes(want))
	if err != nil {
		t.Fatalf("parseCalibration: %v", err)
	}
	if got != want {
		t.Fatalf("got=%+v want=%+v", got, want)
	}
}

func TestParseCalibration_RejectsDegenerateWords(t *testing.T) {
	for _, word := range []uint16{0x0000, 0xFFFF} {
		buf := calibrationBytes(datasheetCalibration())
		// MD.
		buf[20], buf[21] = byte(word>>8), byte(word)
		if _, err := parseCalibration(buf); !errors.Is(err, ErrComputation) {
			t.Fatalf("word=0x%04X err=%v want ErrComputation", word, err)
		}
	}
}
