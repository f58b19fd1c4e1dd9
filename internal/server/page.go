package server

import (
	"html/template"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/unsubscribe"
)

type pageItem struct {
	Name        string
	Description string
	Frequency   string
	Required    bool
}

type page struct {
	Title     string
	Domain    models.DomainConfig
	Target    *unsubscribe.Target
	Aggregate string
	Items     []pageItem
	Notice    string
	Error     string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; min-height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { background: white; padding: 2rem; min-width: 24rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { margin: 0 0 1rem 0; }
        .error { color: #c0392b; }
        .notice { color: #1e8449; }
        .muted { color: #666; }
        form { display: inline; }
    </style>
</head>
<body>
    <div class="container">
        {{- if .Domain.Name}}<h1>{{.Domain.Name}}</h1>{{else}}<h1>{{.Title}}</h1>{{end}}
        {{- if .Error}}<p class="error">{{.Error}}</p>{{end}}
        {{- if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}
        {{- with .Target}}
        <p>Unsubscribe from <strong>{{.Label}}</strong>? You will no longer receive these emails.</p>
        <form method="post" action="/email-preferences/unsubscribe/confirm">
            <input type="hidden" name="request_id" value="{{.RequestID}}">
            <button type="submit">Unsubscribe</button>
        </form>
        <form method="post" action="/email-preferences/unsubscribe/cancel">
            <input type="hidden" name="request_id" value="{{.RequestID}}">
            <button type="submit">Cancel</button>
        </form>
        {{- else}}
        {{- if .Domain.Description}}<p class="muted">{{.Domain.Description}}</p>{{end}}
        {{- if .Aggregate}}<p>All emails: <strong>{{.Aggregate}}</strong></p>{{end}}
        {{- if .Items}}
        <ul>
            {{- range .Items}}
            <li><strong>{{.Name}}</strong>: {{.Frequency}}{{if .Required}} <span class="muted">(required)</span>{{end}}</li>
            {{- end}}
        </ul>
        {{- end}}
        {{- end}}
    </div>
</body>
</html>
`))
