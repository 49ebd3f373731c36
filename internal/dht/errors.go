package dht

import (
	"errors"
	"fmt"
)

// ErrNoResponse means the sensor never acknowledged the start signal.
// The caller may retry a whole new transaction later; the driver does not
// retry on its own.
var ErrNoResponse = errors.New("dht: sensor not responding")

// ErrLineTimeout means a wait on the data line exceeded its bound mid
// transmission. The partial frame is discarded.
var ErrLineTimeout = errors.New("dht: line timeout")

// ChecksumError means a full frame was captured but its checksum byte does
// not match the payload. The raw bytes are kept for diagnostics.
type ChecksumError struct {
	Frame RawFrame
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("dht: checksum mismatch: got %d, want %d (frame %v)",
		e.Frame[4], e.Frame.Checksum(), [5]byte(e.Frame))
}

// Kind returns a short stable name for a read error, suitable for counters
// and status output. It returns "" for nil.
func Kind(err error) string {
	var ce *ChecksumError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoResponse):
		return "no_response"
	case errors.Is(err, ErrLineTimeout):
		return "line_timeout"
	case errors.As(err, &ce):
		return "checksum"
	default:
		return "line_error"
	}
}
