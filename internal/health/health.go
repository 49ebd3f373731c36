// Package health contains pure logic for tracking sensor health from a
// stream of read outcomes. This package has no hardware, clock, or I/O
// dependencies; time is always injected via time.Time parameters.
package health

import "time"

// State is the logical health of the sensor.
type State string

const (
	StateOK    State = "OK"
	StateFault State = "FAULT"
)

// EventType is a health transition to be published.
type EventType string

const (
	EventSensorFault EventType = "SENSOR_FAULT"
	EventSensorOK    EventType = "SENSOR_OK"
)

// Event represents a health transition.
type Event struct {
	Timestamp time.Time
	Type      EventType
	// Failures is the consecutive-failure count at the time of the event.
	Failures int
}

// Result classifies one read attempt.
type Result int

const (
	ResultOK Result = iota
	ResultNoResponse
	ResultLineTimeout
	ResultChecksum
	ResultOther
)

// Counts tracks read outcomes since startup.
type Counts struct {
	OK          int
	NoResponse  int
	LineTimeout int
	Checksum    int
	Other       int
}

// Failures returns the total number of failed reads.
func (c Counts) Failures() int {
	return c.NoResponse + c.LineTimeout + c.Checksum + c.Other
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}

// Monitor turns read outcomes into health transitions. A run of consecutive
// failures reaching the threshold marks the sensor FAULT; the first success
// after that marks it OK again. A single failed read is normal for this
// sensor and does not change state.
type Monitor struct {
	threshold     int
	state         State
	failures      int
	counts        Counts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewMonitor creates a Monitor that declares a fault after threshold
// consecutive failures. The startTime is used for uptime in heartbeats.
func NewMonitor(threshold int, startTime time.Time) *Monitor {
	return &Monitor{
		threshold:     threshold,
		state:         StateOK,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Record processes one read outcome and returns the transition event, if
// any.
func (m *Monitor) Record(r Result, now time.Time) *Event {
	switch r {
	case ResultOK:
		m.counts.OK++
	case ResultNoResponse:
		m.counts.NoResponse++
	case ResultLineTimeout:
		m.counts.LineTimeout++
	case ResultChecksum:
		m.counts.Checksum++
	default:
		m.counts.Other++
	}

	if r == ResultOK {
		m.failures = 0
		if m.state == StateFault {
			m.state = StateOK
			return &Event{Timestamp: now, Type: EventSensorOK}
		}
		return nil
	}

	m.failures++
	if m.state == StateOK && m.failures >= m.threshold {
		m.state = StateFault
		return &Event{Timestamp: now, Type: EventSensorFault, Failures: m.failures}
	}
	return nil
}

// State returns the current health state.
func (m *Monitor) State() State {
	return m.state
}

// ConsecutiveFailures returns the length of the current failure run.
func (m *Monitor) ConsecutiveFailures() int {
	return m.failures
}

// CountsSnapshot returns the outcome counts since startup.
func (m *Monitor) CountsSnapshot() Counts {
	return m.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since
// the last heartbeat (or startup). Returns nil if the interval has not
// elapsed or if interval is <= 0 (disabled).
func (m *Monitor) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Counts:    m.counts,
	}
}
