// Package status provides a thread-safe status tracker for the room-sensor
// daemon. It is read by the HTTP handlers and feeds MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/room-sensor/internal/dht"
	"github.com/sweeney/room-sensor/internal/health"
)

// NetworkInfo contains network state as reported by the host helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Pin            int
	PollMs         int64
	HeartbeatMs    int64
	FaultThreshold int
	Broker         string
	HTTPAddr       string
	WSBroker       string // Websocket broker URL for browser MQTT (empty = disabled)
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Reading       dht.Reading
	HaveReading   bool
	ReadingAt     time.Time
	LastError     string // error kind of the most recent failed read, "" if it succeeded
	Health        health.State
	Counts        health.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Health:    health.StateOK,
			Config:    cfg,
		},
	}
}

// SetReading records a successful read and clears the last error.
func (t *Tracker) SetReading(r dht.Reading, at time.Time) {
	t.mu.Lock()
	t.snap.Reading = r
	t.snap.HaveReading = true
	t.snap.ReadingAt = at
	t.snap.LastError = ""
	t.mu.Unlock()
}

// SetReadError records the kind of a failed read. The previous reading is
// kept for display.
func (t *Tracker) SetReadError(kind string) {
	t.mu.Lock()
	t.snap.LastError = kind
	t.mu.Unlock()
}

// SetHealth sets the health state and outcome counts.
// Called from the poll loop after every read.
func (t *Tracker) SetHealth(state health.State, counts health.Counts) {
	t.mu.Lock()
	t.snap.Health = state
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
