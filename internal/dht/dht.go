// Package dht implements the DHT11 single-wire protocol: the start
// handshake, the 40-bit pulse-width capture, byte assembly, and checksum
// validation. It talks to the hardware only through the gpio.Line
// capability interface, so it runs equally against a real pin or a
// simulated one.
package dht

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/sweeney/room-sensor/internal/gpio"
)

// DefaultReadInterval is the minimum spacing between transactions. The
// sensor needs time to recover between reads; the datasheet asks for at
// least one second, two is reliable in practice.
const DefaultReadInterval = 2 * time.Second

// Sensor owns the data line and runs one read transaction at a time.
type Sensor struct {
	mu          sync.Mutex
	line        gpio.Line
	minInterval time.Duration
	lastRead    time.Time
}

// New creates a Sensor on the given line, paced at DefaultReadInterval.
func New(line gpio.Line) *Sensor {
	return NewPaced(line, DefaultReadInterval)
}

// NewPaced creates a Sensor with a custom pacing interval. Zero disables
// pacing; tests against a simulated line use that.
func NewPaced(line gpio.Line, minInterval time.Duration) *Sensor {
	return &Sensor{line: line, minInterval: minInterval}
}

// Read runs one full transaction: handshake, 40-bit capture, checksum.
// Concurrent callers are serialized on the line; a second Read blocks
// until the first completes. A failed read is not retried, the typed
// error (ErrNoResponse, ErrLineTimeout, *ChecksumError) is returned to
// the caller to decide.
//
// The bit windows are tens of microseconds, so the GC is kept out of the
// critical section and every line wait is a bounded busy-poll.
func (s *Sensor) Read() (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.minInterval > 0 && !s.lastRead.IsZero() {
		if wait := s.minInterval - time.Since(s.lastRead); wait > 0 {
			time.Sleep(wait)
		}
	}
	s.lastRead = time.Now()

	gcPercent := debug.SetGCPercent(-1)
	bits, err := s.capture()
	debug.SetGCPercent(gcPercent)
	if err != nil {
		return Reading{}, err
	}

	frame, err := AssembleFrame(bits)
	if err != nil {
		return Reading{}, err
	}
	return Decode(frame)
}

// capture is the timing-critical section: the handshake plus 40 bit reads.
func (s *Sensor) capture() ([]byte, error) {
	smp := sampler{line: s.line}
	if err := smp.handshake(); err != nil {
		return nil, err
	}

	bits := make([]byte, 0, frameBits)
	for i := 0; i < frameBits; i++ {
		bit, err := smp.readBit()
		if err != nil {
			return nil, err
		}
		bits = append(bits, bit)
	}
	return bits, nil
}
