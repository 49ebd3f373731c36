package dht

import (
	"time"

	"github.com/sweeney/room-sensor/internal/gpio"
)

// Nominal sensor-side pulse widths, used to build simulated waveforms.
const (
	simAck       = 80 * time.Microsecond
	simSeparator = 50 * time.Microsecond
	simZeroHigh  = 27 * time.Microsecond
	simOneHigh   = 70 * time.Microsecond
)

// FrameWaveform builds the level timeline a sensor emits for the given
// frame: the two 80us acknowledge pulses followed by 40 bit pulses, each
// a 50us low separator and then a high whose width encodes the bit. Feed
// it to a gpio.FakeLine to exercise a full transaction without hardware.
func FrameWaveform(frame RawFrame) []gpio.Segment {
	segs := AckWaveform()
	for _, b := range frame {
		for i := 7; i >= 0; i-- {
			high := simZeroHigh
			if b>>uint(i)&1 == 1 {
				high = simOneHigh
			}
			segs = append(segs,
				gpio.Segment{Level: gpio.Low, Duration: simSeparator},
				gpio.Segment{Level: gpio.High, Duration: high},
			)
		}
	}
	// Sensor pulls low once more before releasing the bus.
	return append(segs, gpio.Segment{Level: gpio.Low, Duration: simSeparator})
}

// AckWaveform builds just the handshake acknowledgement, with no data
// after it. A transaction against it fails mid-capture.
func AckWaveform() []gpio.Segment {
	return []gpio.Segment{
		{Level: gpio.Low, Duration: simAck},
		{Level: gpio.High, Duration: simAck},
	}
}
