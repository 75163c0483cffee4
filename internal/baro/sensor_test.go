package baro

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bmp180-ng/internal/sensors/bmp180"
)

type fakeLine struct {
	mu     sync.Mutex
	polls  int
	closed bool
}

func (l *fakeLine) Ready() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.polls++
	return true, nil
}

func (l *fakeLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func useFakeEOC(t *testing.T, fn func(pin int) (readyLine, error)) {
	t.Helper()
	old := openEOCFn
	openEOCFn = fn
	t.Cleanup(func() { openEOCFn = old })
}

func TestOpen_BadOversamplingSkipsBus(t *testing.T) {
	opened := false
	old := openPortFn
	openPortFn = func(Config) (port, error) { opened = true; return newFakeChip(), nil }
	t.Cleanup(func() { openPortFn = old })

	_, err := Open(Config{Oversampling: 4})
	if !errors.Is(err, bmp180.ErrConfig) {
		t.Fatalf("err=%v want ErrConfig", err)
	}
	if opened {
		t.Fatalf("bus opened for invalid oversampling")
	}
}

func TestOpen_WrongChipClosesBus(t *testing.T) {
	f := newFakeChip()
	f.mem[0xD0] = 0x58
	useFakePort(t, f)

	_, err := Open(Config{})
	if !errors.Is(err, bmp180.ErrConfig) {
		t.Fatalf("err=%v want ErrConfig", err)
	}
	if !f.isClosed() {
		t.Fatalf("port left open")
	}
}

func TestOpen_EOCFailureClosesBus(t *testing.T) {
	f := newFakeChip()
	useFakePort(t, f)
	useFakeEOC(t, func(int) (readyLine, error) { return nil, errors.New("no gpiochip") })

	_, err := Open(Config{EOCPin: 17})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !f.isClosed() {
		t.Fatalf("port left open")
	}
}

func TestOpen_WithEOC(t *testing.T) {
	f := newFakeChip()
	useFakePort(t, f)
	line := &fakeLine{}
	var gotPin int
	useFakeEOC(t, func(pin int) (readyLine, error) { gotPin = pin; return line, nil })

	sn, err := Open(Config{EOCPin: 17})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if gotPin != 17 {
		t.Fatalf("eoc pin=%d want 17", gotPin)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := sn.Device().Measure(ctx)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if s.PressurePa != 69964 {
		t.Fatalf("pressure=%d want 69964", s.PressurePa)
	}
	if line.polls == 0 {
		t.Fatalf("eoc line never consulted")
	}

	if err := sn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !f.isClosed() || !line.closed {
		t.Fatalf("port closed=%v line closed=%v", f.isClosed(), line.closed)
	}
	// Second close is a no-op.
	if err := sn.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
