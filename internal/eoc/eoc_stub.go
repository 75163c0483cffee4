//go:build !linux

package eoc

import "fmt"

func Open(pin int) (*Line, error) {
	return nil, fmt.Errorf("eoc: gpio unsupported on this platform")
}
