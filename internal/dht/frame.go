package dht

import "fmt"

// frameBits is the number of bits in one transmission: 5 bytes of 8.
const frameBits = 40

// RawFrame is the 5-byte payload captured from one transaction, in the
// order the sensor sends it: humidity integral, humidity fractional,
// temperature integral, temperature fractional, checksum.
type RawFrame [5]byte

// Checksum returns the checksum the sensor should have sent: the low 8
// bits of the sum of the first four bytes.
func (f RawFrame) Checksum() byte {
	return f[0] + f[1] + f[2] + f[3]
}

// Valid reports whether the frame's checksum byte matches its payload.
func (f RawFrame) Valid() bool {
	return f[4] == f.Checksum()
}

// Reading is a validated sensor measurement. The DHT11 reports whole
// percent and whole degrees Celsius; the fractional frame bytes are always
// zero on this sensor and are not exposed.
type Reading struct {
	Humidity    int // relative humidity, percent
	Temperature int // degrees Celsius
}

// AssembleFrame folds 40 sampled bits into the 5 frame bytes, most
// significant bit first (left-shift-then-OR, matching the send order).
func AssembleFrame(bits []byte) (RawFrame, error) {
	var f RawFrame
	if len(bits) != frameBits {
		return f, fmt.Errorf("dht: expected %d bits, got %d", frameBits, len(bits))
	}
	for i, bit := range bits {
		f[i/8] = f[i/8]<<1 | bit&1
	}
	return f, nil
}

// Decode validates a frame and derives a Reading from it. A frame that
// fails the checksum never becomes a Reading.
func Decode(f RawFrame) (Reading, error) {
	if !f.Valid() {
		return Reading{}, &ChecksumError{Frame: f}
	}
	return Reading{Humidity: int(f[0]), Temperature: int(f[2])}, nil
}
