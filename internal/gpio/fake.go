package gpio

import (
	"sync"
	"time"
)

// Segment is one span of a scripted line level.
type Segment struct {
	Level    Level
	Duration time.Duration
}

// FakeLine simulates a sensor data line against a virtual clock.
//
// Time advances only through Delay, which makes protocol timing fully
// deterministic in tests: a Level call samples the scripted timeline at
// the current virtual time. The timeline starts playing when the line is
// released back to input mode, so each transaction sees the same waveform
// from its beginning. After the script is exhausted the line reads high,
// like the real bus idling on its pull-up.
type FakeLine struct {
	mu sync.Mutex

	// Segments is the level timeline played back in input mode.
	Segments []Segment

	// Directions records every direction change, in order.
	Directions []Direction

	// Lows counts how many times the line was driven low (one per
	// transaction start).
	Lows int

	// LevelError, if set, is returned by Level.
	LevelError error

	// Closed tracks if Close was called.
	Closed bool

	direction Direction
	out       Level
	now       time.Duration // virtual clock
	origin    time.Duration // virtual time the script started
}

// NewFakeLine creates a FakeLine that plays the given waveform to each
// read transaction.
func NewFakeLine(segments []Segment) *FakeLine {
	return &FakeLine{Segments: segments, out: High}
}

// SetDirection records the change. Releasing the line to input starts the
// scripted response.
func (f *FakeLine) SetDirection(d Direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Directions = append(f.Directions, d)
	if d == Input && f.direction == Output {
		f.origin = f.now
	}
	f.direction = d
	return nil
}

// SetLevel records the driven level.
func (f *FakeLine) SetLevel(l Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l == Low && f.out == High {
		f.Lows++
	}
	f.out = l
	return nil
}

// Level returns the driven level in output mode, or samples the scripted
// timeline at the current virtual time in input mode.
func (f *FakeLine) Level() (Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LevelError != nil {
		return Low, f.LevelError
	}
	if f.direction == Output {
		return f.out, nil
	}
	t := f.now - f.origin
	for _, seg := range f.Segments {
		if t < seg.Duration {
			return seg.Level, nil
		}
		t -= seg.Duration
	}
	return High, nil
}

// Delay advances the virtual clock.
func (f *FakeLine) Delay(d time.Duration) {
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
