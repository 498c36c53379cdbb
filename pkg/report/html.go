package report

import (
	"html/template"
	"os"
)

// htmlTemplate is a self-contained page; no external assets so it works over
// file://.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>webpilot report</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem auto; max-width: 60rem; color: #1c1e21; }
  h1 { font-size: 1.4rem; }
  .summary { margin: 1rem 0; }
  .summary span { margin-right: 1.5rem; }
  table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
  th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #e4e6eb; }
  .passed { color: #1a7f37; }
  .failed, .errored { color: #cf222e; }
  .skipped { color: #6e7781; }
  .error { font-size: 0.85rem; color: #cf222e; }
  .muted { color: #6e7781; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>webpilot run <span class="{{.Status}}">{{.Status}}</span></h1>
<p class="muted">{{.StartTime.Format "2006-01-02 15:04:05"}} &middot; {{.Client.Endpoint}} &middot; client {{.Client.Version}}</p>
<div class="summary">
  <span>{{.Summary.Total}} scenarios</span>
  <span class="passed">{{.Summary.Passed}} passed</span>
  <span class="failed">{{.Summary.Failed}} failed</span>
  <span class="errored">{{.Summary.Errored}} errored</span>
</div>
{{range .Scenarios}}
<h2 class="{{.Status}}">{{.Name}} <span class="muted">({{.Elapsed}}ms)</span></h2>
<table>
  <tr><th>#</th><th>Step</th><th>Status</th><th>Elapsed</th></tr>
  {{range .Steps}}
  <tr>
    <td>{{.Index}}</td>
    <td>{{.Description}}{{if .Error}}<div class="error">{{.Error}}</div>{{end}}</td>
    <td class="{{.Status}}">{{.Status}}</td>
    <td>{{.Elapsed}}ms</td>
  </tr>
  {{end}}
</table>
{{end}}
</body>
</html>
`

var htmlTmpl = template.Must(template.New("report").Parse(htmlTemplate))

func writeHTML(path string, r *Report) error {
	f, err := os.Create(path) //#nosec G304 -- report output path
	if err != nil {
		return err
	}
	defer f.Close()
	return htmlTmpl.Execute(f, r)
}
