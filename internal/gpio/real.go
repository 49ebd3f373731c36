//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealLine drives an actual GPIO line using the Linux GPIO character device.
type RealLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealLine requests the given BCM pin on gpiochip0. The line starts in
// input mode; the sensor bus idles high through its external pull-up, so
// nothing is driven until a transaction starts.
func NewRealLine(pin int) (*RealLine, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsInput)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request sensor pin %d: %w", pin, err)
	}

	return &RealLine{chip: chip, line: line}, nil
}

// SetDirection reconfigures the line. Output mode starts with the line
// driven high, matching the idle state of the bus.
func (l *RealLine) SetDirection(d Direction) error {
	var err error
	if d == Output {
		err = l.line.Reconfigure(gpiocdev.AsOutput(1))
	} else {
		err = l.line.Reconfigure(gpiocdev.AsInput)
	}
	if err != nil {
		return fmt.Errorf("reconfigure sensor pin: %w", err)
	}
	return nil
}

// SetLevel drives the line high or low.
func (l *RealLine) SetLevel(lv Level) error {
	v := 0
	if lv == High {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("set sensor pin: %w", err)
	}
	return nil
}

// Level samples the current line level.
func (l *RealLine) Level() (Level, error) {
	v, err := l.line.Value()
	if err != nil {
		return Low, fmt.Errorf("read sensor pin: %w", err)
	}
	return v != 0, nil
}

// Delay busy-waits for d. time.Sleep cannot hold microsecond deadlines on
// a non-realtime kernel, so this spins on the wall clock instead.
func (l *RealLine) Delay(d time.Duration) {
	end := time.Now().Add(d)
	for time.Now().Before(end) {
	}
}

// Close releases GPIO resources. The line is reconfigured to input first
// so the sensor bus is left floating on its pull-up.
func (l *RealLine) Close() error {
	var errs []error

	if l.line != nil {
		if err := l.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure sensor pin: %w", err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sensor pin: %w", err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
