//go:build !linux

package gpio

import (
	"errors"
	"time"
)

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// NewRealLine returns an error on non-Linux platforms.
func NewRealLine(pin int) (*RealLine, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetDirection is not implemented on non-Linux platforms.
func (l *RealLine) SetDirection(d Direction) error {
	return errors.New("gpio: not supported")
}

// SetLevel is not implemented on non-Linux platforms.
func (l *RealLine) SetLevel(lv Level) error {
	return errors.New("gpio: not supported")
}

// Level is not implemented on non-Linux platforms.
func (l *RealLine) Level() (Level, error) {
	return Low, errors.New("gpio: not supported")
}

// Delay is a no-op on non-Linux platforms.
func (l *RealLine) Delay(d time.Duration) {}

// Close is not implemented on non-Linux platforms.
func (l *RealLine) Close() error {
	return nil
}
