package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/relay-controller/internal/status"
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
	"state": func(on bool) string {
		if on {
			return "ON"
		}
		return "OFF"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Relay Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Relay Controller</h1>
<table>
<tr><th>Channel</th><th>Output</th><th>Trigger</th><th>State</th></tr>
{{range .Channels}}
<tr>
<td>{{.Name}}</td>
<td>GPIO {{.Output}}</td>
<td>{{.Trigger}}</td>
<td class="{{if .On}}on{{else}}off{{end}}">{{state .On}}</td>
</tr>
{{end}}
</table>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Confirmed triggers</th><td>{{.Counts.Confirmed}}</td></tr>
<tr><th>Discarded (bounce)</th><td>{{.Counts.Bounced}}</td></tr>
<tr><th>Discarded (re-arm)</th><td>{{.Counts.Rearmed}}</td></tr>
<tr><th>Settle delay</th><td>{{.Config.SettleMs}} ms</td></tr>
<tr><th>Re-arm window</th><td>{{.Config.RearmMs}} ms</td></tr>
{{if .Config.Broker}}
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">
{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}})</td></tr>
{{end}}
</table>
</body>
</html>
`

type channelRow struct {
	Name    string
	Output  int
	Trigger string
	On      bool
}

type indexData struct {
	Channels      []channelRow
	Uptime        time.Duration
	Counts        status.EdgeCounts
	Config        status.Config
	MQTTConnected bool
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	rows := make([]channelRow, len(snap.Channels))
	for i, ch := range snap.Channels {
		trig := "none"
		if ch.Trigger != nil {
			trig = fmt.Sprintf("GPIO %d", *ch.Trigger)
		}
		rows[i] = channelRow{Name: ch.Name, Output: ch.Output, Trigger: trig, On: ch.On}
	}
	data := indexData{
		Channels:      rows,
		Uptime:        snap.Uptime(),
		Counts:        snap.Counts,
		Config:        snap.Config,
		MQTTConnected: snap.MQTTConnected,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("render status page: %v", err)
	}
}
