// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/room-sensor/internal/dht"
)

// Topic is the MQTT topic for sensor readings.
const Topic = "home/climate/room-sensor/readings"

// TopicSystem is the MQTT topic for system lifecycle and health events.
const TopicSystem = "home/climate/room-sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a sensor reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event ReadingEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// ReadingEvent is one published measurement.
type ReadingEvent struct {
	Timestamp time.Time
	Reading   dht.Reading
}

// SystemEvent represents a system lifecycle or health event
// (e.g., startup, shutdown, heartbeat, sensor fault).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "SENSOR_FAULT"
	Reason     string // e.g., "SIGTERM", or the error kind for health events
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure for readings.
type Payload struct {
	Climate ClimatePayload `json:"climate"`
}

// ClimatePayload contains the measurement details.
type ClimatePayload struct {
	Timestamp    string `json:"timestamp"`
	TemperatureC int    `json:"temperature_c"`
	HumidityPct  int    `json:"humidity_pct"`
}

// FormatPayload creates the JSON payload for a reading event.
func FormatPayload(event ReadingEvent) ([]byte, error) {
	payload := Payload{
		Climate: ClimatePayload{
			Timestamp:    event.Timestamp.UTC().Format(time.RFC3339),
			TemperatureC: event.Reading.Temperature,
			HumidityPct:  event.Reading.Humidity,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full
// status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
