package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/room-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"errorText": func(kind string) string {
		switch kind {
		case "no_response":
			return "sensor error: not responding"
		case "line_timeout":
			return "sensor error: transmission timed out"
		case "checksum":
			return "sensor error: corrupted data"
		default:
			return "sensor error"
		}
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Room Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.value { font-size: 1.6em; font-weight: bold; }
.error { color: red; font-weight: bold; }
.stale { color: #888; }
.ok { color: green; font-weight: bold; }
.fault { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Room Sensor{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

{{if .FailKind}}
<p class="error">{{errorText .FailKind}}</p>
{{if .HaveReading}}<p class="stale">last good reading from {{.ReadingAt.UTC.Format "2006-01-02T15:04:05Z"}}:</p>{{end}}
{{end}}
{{if .HaveReading}}
<table>
<tr><th>Temperature</th><td class="value" id="temp">{{.Reading.Temperature}}&deg;C</td></tr>
<tr><th>Humidity</th><td class="value" id="humi">{{.Reading.Humidity}}%</td></tr>
</table>
{{else if not .FailKind}}
<p class="stale">no reading yet</p>
{{end}}

<h2>Health</h2>
<table>
<tr><th>Sensor</th><td class="{{if eq (printf "%s" .Health) "OK"}}ok{{else}}fault{{end}}">{{.Health}}</td></tr>
<tr><th>Reads OK</th><td>{{.Counts.OK}}</td></tr>
<tr><th>No response</th><td>{{.Counts.NoResponse}}</td></tr>
<tr><th>Line timeouts</th><td>{{.Counts.LineTimeout}}</td></tr>
<tr><th>Checksum failures</th><td>{{.Counts.Checksum}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} / {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Pin</th><td>BCM {{.Config.Pin}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "home/climate/room-sensor/readings";
  var dot = document.getElementById("live-dot");
  var tempEl = document.getElementById("temp");
  var humiEl = document.getElementById("humi");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.climate && tempEl && humiEl) {
        tempEl.innerHTML = msg.climate.temperature_c + "&deg;C";
        humiEl.textContent = msg.climate.humidity_pct + "%";
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, failKind string) {
	// Snapshot has an Uptime() method but the template needs plain fields.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		FailKind string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		FailKind: failKind,
	}
	indexTmpl.Execute(w, data)
}
