package bmp180

import (
	"encoding/binary"
	"fmt"
)

// Calibration holds the factory coefficients from the chip's EEPROM.
// It is read once and never modified.
type Calibration struct {
	AC1 int16
	AC2 int16
	AC3 int16
	AC4 uint16
	AC5 uint16
	AC6 uint16
	B1  int16
	B2  int16
	MB  int16
	MC  int16
	MD  int16
}

func readCalibration(port Port, addr uint16) (Calibration, error) {
	var buf [calibLen]byte
	if err := port.ReadReg(addr, regCalibAC1, buf[:]); err != nil {
		return Calibration{}, transportErr("read calibration", err)
	}
	c, err := parseCalibration(buf[:])
	if err != nil {
		return Calibration{}, err
	}
	return c, nil
}

func parseCalibration(buf []byte) (Calibration, error) {
	if len(buf) != calibLen {
		return Calibration{}, fmt.Errorf("bmp180: calibration length %d want %d", len(buf), calibLen)
	}
	// Datasheet: a word of 0x0000 or 0xFFFF means the EEPROM read failed.
	for i := 0; i < calibLen; i += 2 {
		w := binary.BigEndian.Uint16(buf[i : i+2])
		if w == 0x0000 || w == 0xFFFF {
			return Calibration{}, computationErr("calibration word at 0x%02X is 0x%04X", regCalibAC1+i, w)
		}
	}
	// Big endian.
	c := Calibration{
		AC1: int16(binary.BigEndian.Uint16(buf[0:2])),
		AC2: int16(binary.BigEndian.Uint16(buf[2:4])),
		AC3: int16(binary.BigEndian.Uint16(buf[4:6])),
		AC4: binary.BigEndian.Uint16(buf[6:8]),
		AC5: binary.BigEndian.Uint16(buf[8:10]),
		AC6: binary.BigEndian.Uint16(buf[10:12]),
		B1:  int16(binary.BigEndian.Uint16(buf[12:14])),
		B2:  int16(binary.BigEndian.Uint16(buf[14:16])),
		MB:  int16(binary.BigEndian.Uint16(buf[16:18])),
		MC:  int16(binary.BigEndian.Uint16(buf[18:20])),
		MD:  int16(binary.BigEndian.Uint16(buf[20:22])),
	}
	if err := c.Validate(); err != nil {
		return Calibration{}, err
	}
	return c, nil
}

// Validate rejects coefficients that would make compensation divide by zero.
func (c Calibration) Validate() error {
	if c.MD == 0 {
		return computationErr("calibration MD is zero")
	}
	if c.AC4 == 0 {
		return computationErr("calibration AC4 is zero")
	}
	return nil
}
