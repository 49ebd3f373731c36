// Command room-sensor reads a single-wire temperature/humidity sensor on a
// GPIO pin and publishes readings and health events to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/room-sensor/internal/dht"
	"github.com/sweeney/room-sensor/internal/gpio"
	"github.com/sweeney/room-sensor/internal/health"
	"github.com/sweeney/room-sensor/internal/mqtt"
	"github.com/sweeney/room-sensor/internal/status"
	"github.com/sweeney/room-sensor/internal/web"
)

func main() {
	poll := flag.Duration("poll", 30*time.Second, "Sensor polling interval")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	pin := flag.Int("pin", gpio.DefaultPin, "BCM pin number of the sensor data line")
	faultThreshold := flag.Int("fault-threshold", 3, "Consecutive read failures before declaring a sensor fault")
	printReading := flag.Bool("print-reading", false, "Read the sensor once, print the result and exit")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)

	flag.Parse()

	ws := resolveWSBroker(*wsBroker, *broker)
	if err := run(*poll, *broker, *heartbeat, *pin, *faultThreshold, *printReading, *httpAddr, ws); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(poll time.Duration, broker string, heartbeat time.Duration, pin, faultThreshold int, printReading bool, httpAddr, wsBroker string) error {
	// Initialize GPIO
	line, err := gpio.NewRealLine(pin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer line.Close()

	sensor := dht.New(line)

	// Print reading mode
	if printReading {
		reading, err := sensor.Read()
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		fmt.Printf("Temperature: %d°C, Humidity: %d%%\n", reading.Temperature, reading.Humidity)
		return nil
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Pin:            pin,
		PollMs:         poll.Milliseconds(),
		HeartbeatMs:    heartbeat.Milliseconds(),
		FaultThreshold: faultThreshold,
		Broker:         broker,
		HTTPAddr:       httpAddr,
		WSBroker:       wsBroker,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, sensor, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: pin=%d poll=%v broker=%s heartbeat=%v fault-threshold=%d", pin, poll, broker, heartbeat, faultThreshold)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(sensor, publisher, publisher, tracker, faultThreshold, heartbeat, time.Now, ticker.C, sigCh)
}

// sensorReader is the sensor boundary of the poll loop.
type sensorReader interface {
	Read() (dht.Reading, error)
}

func runLoop(sensor sensorReader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, faultThreshold int, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	monitor := health.NewMonitor(faultThreshold, startTime)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			reading, err := sensor.Read()
			kind := dht.Kind(err)

			if err != nil {
				log.Printf("sensor read error: %v", err)
				if tracker != nil {
					tracker.SetReadError(kind)
				}
			} else {
				log.Printf("reading: temperature=%d°C humidity=%d%%", reading.Temperature, reading.Humidity)
				if tracker != nil {
					tracker.SetReading(reading, t)
				}
				if err := publisher.Publish(mqtt.ReadingEvent{Timestamp: t, Reading: reading}); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if ev := monitor.Record(classify(err), t); ev != nil {
				log.Printf("health event: %s (failures=%d)", ev.Type, ev.Failures)
				sysEvent := mqtt.SystemEvent{
					Timestamp: ev.Timestamp,
					Event:     string(ev.Type),
					Reason:    kind,
					Retained:  true,
				}
				if tracker != nil {
					tracker.SetHealth(monitor.State(), monitor.CountsSnapshot())
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					snap := tracker.Snapshot()
					sysEvent.RawPayload = status.FormatStatusEvent(snap, string(ev.Type), kind)
				}
				if err := publisher.PublishSystem(sysEvent); err != nil {
					log.Printf("health event publish error: %v", err)
				}
			}

			// Check for heartbeat
			if hbData := monitor.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v ok=%d no_response=%d line_timeout=%d checksum=%d",
					hbData.Uptime, hbData.Counts.OK, hbData.Counts.NoResponse, hbData.Counts.LineTimeout, hbData.Counts.Checksum)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.SetHealth(monitor.State(), monitor.CountsSnapshot())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.SetHealth(monitor.State(), monitor.CountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// classify maps a read error to a health result.
func classify(err error) health.Result {
	var cerr *dht.ChecksumError
	switch {
	case err == nil:
		return health.ResultOK
	case errors.Is(err, dht.ErrNoResponse):
		return health.ResultNoResponse
	case errors.Is(err, dht.ErrLineTimeout):
		return health.ResultLineTimeout
	case errors.As(err, &cerr):
		return health.ResultChecksum
	default:
		return health.ResultOther
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse --broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
