package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/room-sensor/internal/dht"
	"github.com/sweeney/room-sensor/internal/health"
	"github.com/sweeney/room-sensor/internal/mqtt"
	"github.com/sweeney/room-sensor/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants — not the other way around.
func TestEnvVarNames(t *testing.T) {
	// These are the canonical names from pi-helper.
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := &status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}

	if *info != *want {
		t.Errorf("network info: got %+v, want %+v", *info, *want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	info := readNetworkInfo()
	if info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}

	if info.Status != "connected" {
		t.Errorf("Status: got %q, want %q", info.Status, "connected")
	}
	if info.Type != "" {
		t.Errorf("Type: got %q, want empty", info.Type)
	}
	if info.IP != "" {
		t.Errorf("IP: got %q, want empty", info.IP)
	}
}

func TestResolveWSBroker(t *testing.T) {
	tests := []struct {
		name   string
		ws     string
		broker string
		want   string
	}{
		{"off disables", "off", "tcp://192.168.1.200:1883", ""},
		{"explicit URL passes through", "ws://other:9001", "tcp://192.168.1.200:1883", "ws://other:9001"},
		{"derive from broker", "=broker", "tcp://192.168.1.200:1883", "ws://192.168.1.200:9001"},
		{"derive from hostname broker", "=broker", "tcp://mqtt.local:1883", "ws://mqtt.local:9001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveWSBroker(tt.ws, tt.broker); got != tt.want {
				t.Errorf("resolveWSBroker(%q, %q): got %q, want %q", tt.ws, tt.broker, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want health.Result
	}{
		{"nil", nil, health.ResultOK},
		{"no response", dht.ErrNoResponse, health.ResultNoResponse},
		{"wrapped no response", fmt.Errorf("read: %w", dht.ErrNoResponse), health.ResultNoResponse},
		{"line timeout", dht.ErrLineTimeout, health.ResultLineTimeout},
		{"checksum", &dht.ChecksumError{Frame: dht.RawFrame{1, 2, 3, 4, 99}}, health.ResultChecksum},
		{"other", errors.New("gpio: chip gone"), health.ResultOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v): got %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// --- runLoop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// scriptedSensor returns the scripted results in order; the last result
// repeats once the script runs out.
type scriptedSensor struct {
	script []readResult
	call   int
}

type readResult struct {
	reading dht.Reading
	err     error
}

func (s *scriptedSensor) Read() (dht.Reading, error) {
	i := s.call
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	s.call++
	r := s.script[i]
	return r.reading, r.err
}

func oks(r dht.Reading, n int) []readResult {
	out := make([]readResult, n)
	for i := range out {
		out[i] = readResult{reading: r}
	}
	return out
}

func fails(err error, n int) []readResult {
	out := make([]readResult, n)
	for i := range out {
		out[i] = readResult{err: err}
	}
	return out
}

// runRunLoop drives runLoop with the scripted sensor for nTicks, then sends
// the signal, returning the error for assertions.
func runRunLoop(t *testing.T, sensor sensorReader, pub *mqtt.FakePublisher, tracker *status.Tracker, faultThreshold int, heartbeat time.Duration, clock func() time.Time, nTicks int, signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(sensor, pub, pub, tracker, faultThreshold, heartbeat, clock, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	return <-errCh
}

func TestRunLoopPublishesReadings(t *testing.T) {
	sensor := &scriptedSensor{script: oks(dht.Reading{Humidity: 37, Temperature: 25}, 3)}
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 30*time.Second)

	err := runRunLoop(t, sensor, pub, nil, 3, 0, clock, 3, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.Events) != 3 {
		t.Fatalf("expected 3 reading events, got %d", len(pub.Events))
	}
	for i, ev := range pub.Events {
		if ev.Reading.Temperature != 25 || ev.Reading.Humidity != 37 {
			t.Errorf("event %d: got %+v, want 25°C/37%%", i, ev.Reading)
		}
	}

	// Should have exactly one system event: SHUTDOWN
	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	if pub.SystemEvents[0].Event != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN event, got %q", pub.SystemEvents[0].Event)
	}
}

func TestRunLoopFailedReadNotPublished(t *testing.T) {
	sensor := &scriptedSensor{script: fails(dht.ErrNoResponse, 2)}
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 30*time.Second)

	err := runRunLoop(t, sensor, pub, nil, 3, 0, clock, 2, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.Events) != 0 {
		t.Errorf("expected 0 reading events for failed reads, got %d", len(pub.Events))
	}
}

func TestRunLoopFaultAndRecovery(t *testing.T) {
	// 3 consecutive failures hit the threshold, then a success recovers.
	script := append(fails(dht.ErrLineTimeout, 3), oks(dht.Reading{Humidity: 40, Temperature: 22}, 1)...)
	sensor := &scriptedSensor{script: script}
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 30*time.Second)

	err := runRunLoop(t, sensor, pub, nil, 3, 0, clock, 4, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var types []string
	for _, se := range pub.SystemEvents {
		types = append(types, se.Event)
	}
	want := []string{"SENSOR_FAULT", "SENSOR_OK", "SHUTDOWN"}
	if len(types) != len(want) {
		t.Fatalf("system events: got %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("system event %d: got %q, want %q", i, types[i], want[i])
		}
	}

	if pub.SystemEvents[0].Reason != "line_timeout" {
		t.Errorf("SENSOR_FAULT reason: got %q, want line_timeout", pub.SystemEvents[0].Reason)
	}
	if !pub.SystemEvents[0].Retained {
		t.Error("expected Retained=true for SENSOR_FAULT")
	}
}

func TestRunLoopBelowThresholdNoFault(t *testing.T) {
	// 2 failures then a success: below the threshold of 3, no health events.
	script := append(fails(dht.ErrNoResponse, 2), oks(dht.Reading{Humidity: 37, Temperature: 25}, 1)...)
	sensor := &scriptedSensor{script: script}
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 30*time.Second)

	err := runRunLoop(t, sensor, pub, nil, 3, 0, clock, 3, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	for _, se := range pub.SystemEvents {
		if se.Event == "SENSOR_FAULT" || se.Event == "SENSOR_OK" {
			t.Errorf("unexpected health event %q below fault threshold", se.Event)
		}
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	// Clock step 5 min: ticks at +5m, +10m, +15m, +20m. With a 15-minute
	// interval the heartbeat fires once, on the third tick.
	sensor := &scriptedSensor{script: oks(dht.Reading{Humidity: 37, Temperature: 25}, 4)}
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 5*time.Minute)

	err := runRunLoop(t, sensor, pub, nil, 3, 15*time.Minute, clock, 4, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var heartbeats, shutdowns int
	for _, se := range pub.SystemEvents {
		switch se.Event {
		case "HEARTBEAT":
			heartbeats++
		case "SHUTDOWN":
			shutdowns++
		}
	}
	if heartbeats != 1 {
		t.Errorf("expected 1 HEARTBEAT event, got %d", heartbeats)
	}
	if shutdowns != 1 {
		t.Errorf("expected 1 SHUTDOWN event, got %d", shutdowns)
	}
}

func TestRunLoopHeartbeatDisabled(t *testing.T) {
	sensor := &scriptedSensor{script: oks(dht.Reading{Humidity: 37, Temperature: 25}, 4)}
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 5*time.Minute)

	err := runRunLoop(t, sensor, pub, nil, 3, 0, clock, 4, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	for _, se := range pub.SystemEvents {
		if se.Event == "HEARTBEAT" {
			t.Error("expected no HEARTBEAT events with interval 0")
		}
	}
}

func TestRunLoopPublishError(t *testing.T) {
	// Readings fail to publish — loop should continue and still publish
	// SHUTDOWN via PublishSystem.
	sensor := &scriptedSensor{script: oks(dht.Reading{Humidity: 37, Temperature: 25}, 3)}
	pub := mqtt.NewFakePublisher()
	pub.PublishError = fmt.Errorf("broker unavailable")
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 30*time.Second)

	err := runRunLoop(t, sensor, pub, nil, 3, 0, clock, 3, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.Events) != 0 {
		t.Errorf("expected 0 recorded events (publish failed), got %d", len(pub.Events))
	}

	found := false
	for _, se := range pub.SystemEvents {
		if se.Event == "SHUTDOWN" {
			found = true
		}
	}
	if !found {
		t.Error("expected SHUTDOWN system event despite publish errors")
	}
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	sensor := &scriptedSensor{script: oks(dht.Reading{Humidity: 37, Temperature: 25}, 2)}
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 30*time.Second)

	err := runRunLoop(t, sensor, pub, nil, 3, 0, clock, 2, syscall.SIGINT)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	se := pub.SystemEvents[0]
	if se.Event != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN, got %q", se.Event)
	}
	if se.Reason != "SIGINT" {
		t.Errorf("expected reason SIGINT, got %q", se.Reason)
	}
	if !se.Retained {
		t.Error("expected Retained=true for SHUTDOWN")
	}
}

func TestRunLoopTrackerUpdated(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker := status.NewTracker(start, status.Config{Pin: 4, FaultThreshold: 3})

	script := append(oks(dht.Reading{Humidity: 37, Temperature: 25}, 1), fails(dht.ErrNoResponse, 1)...)
	sensor := &scriptedSensor{script: script}
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	clock := fakeClock(start, 30*time.Second)

	err := runRunLoop(t, sensor, pub, tracker, 3, 0, clock, 2, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	snap := tracker.Snapshot()
	if !snap.HaveReading {
		t.Fatal("expected tracker to hold a reading")
	}
	if snap.Reading.Temperature != 25 || snap.Reading.Humidity != 37 {
		t.Errorf("tracker reading: got %+v, want 25°C/37%%", snap.Reading)
	}
	if snap.LastError != "no_response" {
		t.Errorf("tracker last error: got %q, want no_response", snap.LastError)
	}
	if snap.Counts.OK != 1 {
		t.Errorf("counts.OK: got %d, want 1", snap.Counts.OK)
	}
	if snap.Counts.NoResponse != 1 {
		t.Errorf("counts.NoResponse: got %d, want 1", snap.Counts.NoResponse)
	}
	if !snap.MQTTConnected {
		t.Error("expected MQTTConnected=true in tracker")
	}
}
