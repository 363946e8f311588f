// Package formatter provides output formatters for tusk commands: tables
// for listings, markdown for entity detail, and the structured JSON
// envelope for machine consumers.
package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/tusk-dev/tusk/internal/store"
)

// EpicView bundles an epic with its tasks for rendering.
type EpicView struct {
	Epic  *store.Epic
	Tasks []*store.Task
}

// EpicMarkdown renders an epic and its tasks as a markdown document,
// suitable for direct printing or terminal rendering.
func EpicMarkdown(w io.Writer, view *EpicView) error {
	tmpl, err := template.New("epic").Funcs(markdownFuncs()).Parse(epicTemplate)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	return tmpl.Execute(w, view)
}

// TaskMarkdown renders one task record as a markdown summary. The task's
// spec document is the authoritative detail; this covers the state fields.
func TaskMarkdown(w io.Writer, task *store.Task) error {
	tmpl, err := template.New("task").Funcs(markdownFuncs()).Parse(taskTemplate)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	return tmpl.Execute(w, task)
}

func markdownFuncs() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"priority": func(p *int) string {
			if p == nil {
				return "-"
			}
			return fmt.Sprintf("%d", *p)
		},
		"hasAny": func(s []string) bool {
			return len(s) > 0
		},
	}
}

const epicTemplate = `# {{ .Epic.ID }} {{ .Epic.Title }}

**Status:** {{ .Epic.Status }}
**Plan review:** {{ .Epic.PlanReviewStatus }}
**Branch:** {{ .Epic.BranchName }}
{{- if hasAny .Epic.DependsOnEpics }}
**Depends on:** {{ join .Epic.DependsOnEpics ", " }}
{{- end }}

| Task | Title | Status | Priority | Assignee |
|------|-------|--------|----------|----------|
{{- range .Tasks }}
| {{ .ID }} | {{ .Title }} | {{ .Status }} | {{ priority .Priority }} | {{ deref .Assignee }} |
{{- end }}
`

const taskTemplate = `# {{ .ID }} {{ .Title }}

**Epic:** {{ .Epic }}
**Status:** {{ .Status }}
**Priority:** {{ priority .Priority }}
{{- if .Assignee }}
**Assignee:** {{ deref .Assignee }}{{ if .ClaimNote }} ({{ .ClaimNote }}){{ end }}
{{- end }}
{{- if hasAny .DependsOn }}
**Depends on:** {{ join .DependsOn ", " }}
{{- end }}
`
