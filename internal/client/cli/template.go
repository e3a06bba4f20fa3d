package cli

import (
	"strings"
	"text/template"
	"time"
)

var funcs = template.FuncMap{
	"short": func(s string) string {
		if len(s) > 12 {
			return s[:12]
		}
		return s
	},
	"millis": func(ms int64) string {
		if ms == 0 {
			return "never"
		}
		return time.UnixMilli(ms).Format(time.RFC3339)
	},
	"oneline": func(s string) string {
		return strings.ReplaceAll(s, "\n", `\n`)
	},
}

const usageText = `
Site Content Editor

Commands:
  show                              Show the current content
  edit [-format F] <field> <value>  Edit a field (format: plain, rich, markdown)
  save                              Send pending edits to the host
  status                            Show version, pending edits and grace windows
  verify                            Compare the copies held by every storage tier
  resync                            Drop grace windows and ask the host for fresh content
  clear                             Erase the content from every tier
  help                              Show this help
  quit                              Exit
`

var contentTemplate = template.Must(template.New("content").Funcs(funcs).Parse(`
=== Site Content ===
Version: {{ .Snapshot.Version }}  Origin: {{ .Snapshot.Origin }}  Saved: {{ millis .Snapshot.Timestamp }}
{{ if eq (len .Fields) 0 }}
(no fields)
{{ else }}
{{- range .Fields }}
  {{ .Name }} = {{ oneline .Value }}
{{- end }}
{{ end -}}
`))

var statusTemplate = template.Must(template.New("status").Funcs(funcs).Parse(`
=== Editor Status ===
Version:      {{ .Version }}
Pending:      {{ .Pending }} field(s)
Last save:    {{ if .LastSave.IsZero }}never{{ else }}{{ .LastSave.At.Format "2006-01-02T15:04:05Z07:00" }} ({{ .LastSave.Saved }} field(s), {{ short .LastSave.RequestID }}){{ end }}
{{- if eq (len .Windows) 0 }}
Grace:        none
{{- else }}
Grace:
{{- range .Windows }}
  {{ .Field }} for {{ .Remaining }}
{{- end }}
{{- end }}
`))

var integrityTemplate = template.Must(template.New("integrity").Funcs(funcs).Parse(`
=== Storage Integrity ===
{{- range .Tiers }}
  {{ printf "%-10s" .Tier }} {{ if .Err }}{{ .Err }}{{ else }}v{{ .Version }} {{ .Fields }} field(s) {{ .Origin }} {{ short .Checksum }}{{ end }}
{{- end }}
{{ if .OK }}All tiers agree.{{ else }}Divergence:
{{- range .Divergence }}
  - {{ . }}
{{- end }}{{ end }}
`))
