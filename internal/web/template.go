package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/plant-buddy/internal/status"
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
	"ago": func(now, then time.Time) string {
		return now.Sub(then).Truncate(time.Second).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Plant Buddy</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.dry { color: #b5651d; font-weight: bold; }
.wet { color: #1e6fb5; font-weight: bold; }
.ok { color: green; }
.pending { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Plant Buddy</h1>

<h2>Plant</h2>
<table>
<tr><th>Pump</th><td id="pump" class="{{if .PumpOn}}on{{else}}off{{end}}">{{.PumpLabel}}</td></tr>
{{if .Sampled}}<tr><th>Soil</th><td id="soil" class="{{if eq (printf "%s" .Soil.Label) "DRY"}}dry{{else if eq (printf "%s" .Soil.Label) "WET"}}wet{{else}}ok{{end}}">{{.Soil.Percent}}% {{.Soil.Label}}{{if .Soil.Frozen}} (held while watering){{end}}</td></tr>
<tr><th>Soil raw</th><td>{{.Soil.Raw}}</td></tr>
{{if .Air.OK}}<tr><th>Temperature</th><td>{{printf "%.1f" .Air.Temperature}} &deg;C</td></tr>
<tr><th>Humidity</th><td>{{printf "%.1f" .Air.Humidity}} %</td></tr>{{else}}<tr><th>Air</th><td class="pending">unavailable</td></tr>{{end}}
{{else}}<tr><th>Soil</th><td class="pending">waiting for first reading</td></tr>{{end}}
<tr><th>Last alert</th><td>{{if .LastAlert.IsZero}}never{{else}}{{ago .Now .LastAlert}} ago{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Ticks</th><td>{{.Counts.Ticks}}</td></tr>
<tr><th>Held readings</th><td>{{.Counts.FrozenTicks}}</td></tr>
<tr><th>Soil errors</th><td>{{.Counts.SoilErrors}}</td></tr>
<tr><th>Alerts</th><td>{{.Counts.Alerts}}</td></tr>
<tr><th>Pump ON</th><td>{{.Counts.PumpOn}}</td></tr>
<tr><th>Pump OFF</th><td>{{.Counts.PumpOff}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Alert threshold</th><td>raw &gt; {{.Config.AlertRawThreshold}}, every {{.Config.AlertIntervalMs}}ms</td></tr>
<tr><th>Calibration</th><td>dry {{.Config.DryRaw}} / wet {{.Config.WetRaw}}</td></tr>
<tr><th>Sensors</th><td>soil {{.Config.SoilDriver}}, air {{.Config.AirDriver}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
