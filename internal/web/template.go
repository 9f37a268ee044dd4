package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/weather-station/internal/status"
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
	"clock": func(t time.Time) string {
		return t.UTC().Format("15:04:05")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="{{.RefreshSeconds}}">
<title>Weather Station</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.degraded { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Weather Station</h1>

<h2>Last Reading</h2>
<table>
{{if .Last}}<tr><th>Time</th><td>{{.Last.Timestamp.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Wind Vane</th><td>{{.Last.VaneLevel}}</td></tr>
<tr><th>Temperature</th><td>{{.Last.TemperatureLevel}}</td></tr>
<tr><th>Anemometer Pulses</th><td>{{.Last.PulseCount}}</td></tr>
<tr><th>Counter</th><td class="{{if .Last.Degraded}}degraded{{else}}ok{{end}}">{{.Last.CounterStatus}}</td></tr>
<tr><th>Payload</th><td>{{.LastPayload}}</td></tr>{{else}}<tr><th>Ready</th><td>no</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic</th><td>{{.Config.Topic}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
{{if .LastError}}<tr><th>Last Error</th><td>{{.LastError}}</td></tr>{{end}}
</table>

<h2>Tick Counts</h2>
<table>
<tr><th>Ticks</th><td>{{.Counts.Ticks}}</td></tr>
<tr><th>Published</th><td>{{.Counts.Published}}</td></tr>
<tr><th>Publish Failures</th><td>{{.Counts.PublishFailures}}</td></tr>
<tr><th>Acknowledged</th><td>{{.Counts.Acknowledged}}</td></tr>
<tr><th>Degraded</th><td>{{.Counts.Degraded}}</td></tr>
<tr><th>Overruns</th><td>{{.Counts.Overruns}}</td></tr>
</table>

{{if .Recent}}<h2>Recent</h2>
<table>
<tr><th>Time</th><th>Vane</th><th>Temp</th><th>Pulses</th></tr>
{{range .Recent}}<tr class="{{if .Degraded}}degraded{{end}}"><td>{{clock .Timestamp}}</td><td>{{.VaneLevel}}</td><td>{{.TemperatureLevel}}</td><td>{{.PulseCount}}</td></tr>
{{end}}</table>{{end}}

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Period</th><td>{{.Config.PeriodMs}}ms</td></tr>
<tr><th>High Watermark</th><td>{{.Config.HighWatermark}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	refresh := snap.Config.PeriodMs / 1000
	if refresh < 1 {
		refresh = 1
	}
	data := struct {
		status.Snapshot
		Uptime         time.Duration
		RefreshSeconds int64
	}{
		Snapshot:       snap,
		Uptime:         snap.Uptime(),
		RefreshSeconds: refresh,
	}
	return indexTmpl.Execute(w, data)
}
