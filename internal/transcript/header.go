package transcript

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/tenex-chat/web-client-sub005/internal/status"
	"github.com/tenex-chat/web-client-sub005/internal/types"
)

// DefaultHeader is the text/template rendered above every transcript.
// Fields: .Title, .ID, .Project, .Workers, .Total, .Omitted.
const DefaultHeader = `# {{if .Title}}{{.Title}}{{else}}Conversation {{.ID}}{{end}}
{{- if .Project}}
Project: {{.Project}}
{{- end}}
{{- if .Workers}}
Working: {{.Workers}}
{{- end}}
{{- if .Omitted}}
({{.Omitted}} earlier of {{.Total}} messages omitted)
{{- end}}`

// HeaderData feeds DefaultHeader.
type HeaderData struct {
	Title   string
	ID      string
	Project string
	Workers string
	Total   int
	Omitted int
}

type headerTemplate struct {
	tmpl *template.Template
}

func parseHeader(text string) (*headerTemplate, error) {
	t, err := template.New("header").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse header template: %w", err)
	}
	return &headerTemplate{tmpl: t}, nil
}

func (h *headerTemplate) render(data HeaderData) (string, error) {
	var b strings.Builder
	if err := h.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render header: %w", err)
	}
	return b.String(), nil
}

// placeholder renders a worst-case header for budgeting.
func (h *headerTemplate) placeholder() string {
	s, _ := h.render(HeaderData{
		Title:   strings.Repeat("x", 64),
		Project: strings.Repeat("x", 64),
		Workers: strings.Repeat("x", 64),
		Total:   99999,
		Omitted: 99999,
	})
	return s
}

func headerData(conv *types.Conversation, snaps []status.Snapshot, total, start int) HeaderData {
	d := HeaderData{Total: total, Omitted: start}
	if conv != nil {
		d.Title = conv.Title
		d.ID = string(conv.ID)
		d.Project = conv.Project
	}
	var workers []string
	for _, s := range snaps {
		if d.ID != "" && s.SubjectEventID != d.ID {
			continue
		}
		for _, w := range s.Workers {
			workers = append(workers, ShortKey(w))
		}
	}
	d.Workers = strings.Join(workers, ", ")
	return d
}
