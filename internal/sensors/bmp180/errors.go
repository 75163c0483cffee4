package bmp180

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	// ErrTransport: a register read or write failed. The current cycle is
	// aborted to idle; nothing is retried.
	ErrTransport = errors.New("transport error")

	// ErrConfig: invalid oversampling, reference pressure or device identity.
	ErrConfig = errors.New("configuration error")

	// ErrComputation: a division would divide by zero.
	ErrComputation = errors.New("computation error")

	// ErrState: operation not valid in the scheduler's current state.
	ErrState = errors.New("state error")
)

func transportErr(op string, err error) error {
	return fmt.Errorf("bmp180: %s: %w: %w", op, ErrTransport, err)
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("bmp180: %w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

func computationErr(format string, args ...any) error {
	return fmt.Errorf("bmp180: %w: %s", ErrComputation, fmt.Sprintf(format, args...))
}

func stateErr(format string, args ...any) error {
	return fmt.Errorf("bmp180: %w: %s", ErrState, fmt.Sprintf(format, args...))
}
