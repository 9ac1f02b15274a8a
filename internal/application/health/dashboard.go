package health

import (
	"bytes"
	"html/template"
	"sort"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>StockHouse · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    :root { --green: #0f766e; --ink: #1e293b; --bg: #f8fafc; --muted: #64748b; --bad: #dc2626; }
    body { background: var(--bg); color: var(--ink); font-family: system-ui, sans-serif; margin: 0; padding: 40px 20px; }
    .wrap { max-width: 960px; margin: 0 auto; }
    h1 { font-size: 44px; font-weight: 900; letter-spacing: -2px; margin: 0 0 8px; }
    h1.issue { color: var(--bad); }
    .sub { color: var(--muted); font-weight: 600; margin-bottom: 28px; }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: 16px; }
    .card { background: white; border-radius: 20px; padding: 28px; box-shadow: 0 10px 40px -10px rgba(15,118,110,0.15); }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 900; letter-spacing: 2px; color: #94a3b8; margin-bottom: 16px; }
    .big { font-size: 36px; font-weight: 900; margin-bottom: 8px; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid #f1f5f9; font-size: 14px; font-weight: 600; }
    .ok { color: var(--green); }
    .err { color: var(--bad); }
    .last { margin-top: 16px; font-family: monospace; font-size: 13px; color: var(--muted); }
    a { color: var(--green); font-weight: 700; margin-right: 16px; }
    @media (max-width: 800px) { .grid { grid-template-columns: 1fr; } }
  </style>
</head>
<body>
  <div class="wrap">
    {{if eq .Status "ok"}}<h1>All Systems Operational</h1>{{else}}<h1 class="issue">System Issues Detected</h1>{{end}}
    <p class="sub">StockHouse API performance and dependencies.</p>
    <div class="grid">
      <div class="card">
        <div class="label">Traffic</div>
        <div class="big">{{.Traffic.TotalRequests}}</div>
        <div class="row"><span>Successful</span><span class="ok">{{.Traffic.SuccessCount}}</span></div>
        <div class="row"><span>Failed</span><span class="err">{{.Traffic.FailedCount}}</span></div>
        <div class="row"><span>Success Rate</span><span>{{.Traffic.SuccessRate}}%</span></div>
        <div class="row"><span>Avg Latency</span><span>{{.Traffic.AvgResponseTime}}ms</span></div>
      </div>
      <div class="card">
        <div class="label">Runtime</div>
        <div class="big">{{.Runtime.UptimeSeconds}}s</div>
        <div class="row"><span>Heap Used</span><span>{{.Runtime.Memory.HeapUsed}} MB</span></div>
        <div class="row"><span>Allocated</span><span>{{.Runtime.Memory.AllocMB}} MB</span></div>
        <div class="row"><span>Goroutines</span><span>{{.Runtime.Goroutines}}</span></div>
        <div class="row"><span>Go</span><span>{{.Runtime.GoVersion}} {{.Runtime.Platform}}</span></div>
      </div>
      <div class="card">
        <div class="label">Dependencies</div>
        {{range .Deps}}<div class="row"><span>{{.Name}}</span><span class="{{if .OK}}ok{{else}}err{{end}}">{{.Status}}{{with .PingMs}} · {{.}} ms{{end}}</span></div>
        {{end}}
      </div>
    </div>
    {{with .Traffic.LastRequest}}<div class="last">LAST INBOUND {{index . "method"}} {{index . "path"}} {{index . "ip"}}</div>{{end}}
    <p><a href="/health/json">/health/json</a><a href="/health/errors">/health/errors</a></p>
  </div>
</body>
</html>
`))

type depRow struct {
	Name   string
	Status string
	PingMs *int64
	OK     bool
}

// RenderDashboard returns the HTML status page for a report.
func RenderDashboard(r Report) (string, error) {
	deps := make([]depRow, 0, len(r.Dependencies))
	for name, d := range r.Dependencies {
		ok := d.Status == "connected" || d.Status == "available"
		deps = append(deps, depRow{Name: name, Status: d.Status, PingMs: d.PingMs, OK: ok})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })

	var buf bytes.Buffer
	err := dashboardTmpl.Execute(&buf, struct {
		Report
		Deps []depRow
	}{r, deps})
	return buf.String(), err
}
