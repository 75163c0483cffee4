package bmp180

import "time"

// Port is the register access capability the driver is built on. ReadReg
// must fill dst completely or return an error.
type Port interface {
	ReadReg(addr uint16, reg byte, dst []byte) error
	WriteReg(addr uint16, reg, value byte) error
}

// Clock returns monotonic milliseconds. It may wrap; deadlines are compared
// with wraparound-safe subtraction.
type Clock func() uint32

// ReadyLine reports the chip's end-of-conversion output, if wired.
type ReadyLine interface {
	Ready() (bool, error)
}

var clockEpoch = time.Now()

// SystemClock is a Clock backed by the runtime's monotonic time.
func SystemClock() uint32 {
	return uint32(time.Since(clockEpoch).Milliseconds())
}

// after reports whether now is strictly past deadline.
func after(now, deadline uint32) bool {
	return int32(now-deadline) > 0
}
