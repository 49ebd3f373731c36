// Package gpio provides single-line GPIO access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation simulates a line for testing without hardware.
package gpio

import "time"

// Direction is the configured direction of a GPIO line.
type Direction int

const (
	Input Direction = iota
	Output
)

// Level is the electrical level of a GPIO line.
type Level bool

// Line levels.
const (
	Low  Level = false
	High Level = true
)

// Line is exclusive access to a single bidirectional GPIO line.
// The sensor protocol toggles the line between output (to request a
// reading) and input (to receive it).
type Line interface {
	// SetDirection switches the line between input and output.
	SetDirection(d Direction) error

	// SetLevel drives the line high or low. Only meaningful in output mode.
	SetLevel(l Level) error

	// Level samples the current line level.
	Level() (Level, error)

	// Delay busy-waits for the given duration. The sensor's bit windows
	// are tens of microseconds, so this must not yield to the scheduler.
	Delay(d time.Duration)

	// Close releases the line.
	Close() error
}

// DefaultPin is the BCM pin the sensor data line is wired to.
const DefaultPin = 4
