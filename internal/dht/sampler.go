package dht

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/room-sensor/internal/gpio"
)

// Protocol timing, per the DHT11 datasheet.
const (
	// startLowTime is how long the line is held low to request a reading.
	// The datasheet minimum is 18ms.
	startLowTime = 19 * time.Millisecond

	// releaseTime is how long the line is held high before handing it to
	// the sensor.
	releaseTime = 30 * time.Microsecond

	// sampleDelay is how long after a bit's rising edge the line is
	// sampled. A "0" bit stays high for 26-28us and a "1" bit for about
	// 70us, so the level at 30us is the bit value.
	sampleDelay = 30 * time.Microsecond

	// pollStep is the busy-poll interval inside a bounded wait.
	pollStep = time.Microsecond

	// ackTimeout bounds each handshake wait. The sensor answers within
	// 20-40us and its acknowledge pulses are 80us each.
	ackTimeout = 500 * time.Microsecond

	// bitTimeout bounds each wait inside a bit read. A full bit is at
	// most ~120us on a healthy line.
	bitTimeout = time.Millisecond
)

// sampler drives the start handshake and extracts bits from line timing.
// One transaction is a handshake followed by exactly 40 bit reads.
type sampler struct {
	line gpio.Line
}

// handshake requests a reading and waits for the acknowledgement: hold the
// line low, release it high, switch to input, then expect the sensor's
// 80us low pulse and 80us high pulse. A sensor that never answers within
// the bound is reported as ErrNoResponse.
func (s sampler) handshake() error {
	if err := s.line.SetDirection(gpio.Output); err != nil {
		return fmt.Errorf("dht: drive line: %w", err)
	}
	if err := s.line.SetLevel(gpio.Low); err != nil {
		return fmt.Errorf("dht: drive line: %w", err)
	}
	s.line.Delay(startLowTime)

	if err := s.line.SetLevel(gpio.High); err != nil {
		return fmt.Errorf("dht: drive line: %w", err)
	}
	s.line.Delay(releaseTime)
	if err := s.line.SetDirection(gpio.Input); err != nil {
		return fmt.Errorf("dht: release line: %w", err)
	}

	if err := s.waitFor(gpio.Low, ackTimeout); err != nil {
		return ackErr(err)
	}
	if err := s.waitFor(gpio.High, ackTimeout); err != nil {
		return ackErr(err)
	}
	return nil
}

// readBit extracts one bit from pulse timing. Every bit is preceded by a
// 50us low separator; once the line returns high, the level 30us later is
// the bit value. The trailing wait for the line to fall leaves the next
// call synchronized at the following separator.
func (s sampler) readBit() (byte, error) {
	if err := s.waitFor(gpio.Low, bitTimeout); err != nil {
		return 0, err
	}
	if err := s.waitFor(gpio.High, bitTimeout); err != nil {
		return 0, err
	}
	s.line.Delay(sampleDelay)

	level, err := s.line.Level()
	if err != nil {
		return 0, fmt.Errorf("dht: read line: %w", err)
	}
	var bit byte
	if level == gpio.High {
		bit = 1
	}

	if err := s.waitFor(gpio.Low, bitTimeout); err != nil {
		return 0, err
	}
	return bit, nil
}

// waitFor polls until the line reads the wanted level. The wait is bounded
// by iteration count rather than wall clock so it stays deterministic
// against a simulated line.
func (s sampler) waitFor(want gpio.Level, timeout time.Duration) error {
	steps := int(timeout / pollStep)
	for i := 0; i <= steps; i++ {
		level, err := s.line.Level()
		if err != nil {
			return fmt.Errorf("dht: read line: %w", err)
		}
		if level == want {
			return nil
		}
		s.line.Delay(pollStep)
	}
	return ErrLineTimeout
}

// ackErr maps a timed-out handshake wait to ErrNoResponse. Other failures
// (hardware access errors) pass through unchanged.
func ackErr(err error) error {
	if errors.Is(err, ErrLineTimeout) {
		return ErrNoResponse
	}
	return err
}
