// Package eoc reads the BMP085 end-of-conversion pin so a measurement phase
// is only read once the chip reports it done.
package eoc

import "fmt"

type valuer interface {
	Value() (int, error)
	Close() error
}

// Line is an input line wired to the sensor's EOC output.
type Line struct {
	pin int
	v   valuer
}

// Ready reports whether the line is high.
func (l *Line) Ready() (bool, error) {
	if l == nil || l.v == nil {
		return false, fmt.Errorf("eoc: line not open")
	}
	v, err := l.v.Value()
	if err != nil {
		return false, fmt.Errorf("eoc: read GPIO%d: %w", l.pin, err)
	}
	return v != 0, nil
}

func (l *Line) Close() error {
	if l == nil || l.v == nil {
		return nil
	}
	err := l.v.Close()
	l.v = nil
	return err
}
