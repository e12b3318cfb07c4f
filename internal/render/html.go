package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"

	"folio/internal/services"
)

// HTMLRenderer renders a single self-contained HTML document.
type HTMLRenderer struct {
	tmpl   *template.Template
	policy *bluemonday.Policy
}

// NewHTMLRenderer builds the HTML renderer.
func NewHTMLRenderer() *HTMLRenderer {
	h := &HTMLRenderer{policy: fragmentPolicy()}
	h.tmpl = template.Must(template.New("book").Funcs(template.FuncMap{
		"safe": func(fragment string) template.HTML {
			return template.HTML(h.policy.Sanitize(fragment)) //nolint:gosec
		},
	}).Parse(htmlTemplate))
	return h
}

// Render implements services.Renderer.
func (h *HTMLRenderer) Render(ctx context.Context, doc *services.Document) (*services.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	css := template.CSS(bookCSS + printCSS(doc)) //nolint:gosec
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, struct {
		*services.Document
		CSS template.CSS
	}{doc, css}); err != nil {
		return nil, fmt.Errorf("execute html template: %w", err)
	}
	return &services.Artifact{
		Format:      doc.Format,
		ContentType: "text/html; charset=utf-8",
		Extension:   "html",
		Data:        buf.Bytes(),
	}, nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="{{.Language}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- if .Author}}
<meta name="author" content="{{.Author}}">
{{- end}}
{{- if .Description}}
<meta name="description" content="{{.Description}}">
{{- end}}
<style>{{.CSS}}</style>
</head>
<body>
{{- with .Cover}}
<section class="cover">
<h1>{{.Title}}</h1>
{{- if .Subtitle}}
<p class="subtitle">{{.Subtitle}}</p>
{{- end}}
{{- if .Description}}
<p>{{.Description}}</p>
{{- end}}
</section>
{{- end}}
{{- if .TOC}}
<nav class="toc">
<h2>Contents</h2>
<ol>
{{- range .TOC}}
<li><a href="#{{.Anchor}}">{{.Label}}</a></li>
{{- end}}
</ol>
</nav>
{{- end}}
{{- range $ch := .Chapters}}
<section class="chapter" id="{{.Anchor}}">
<h1>{{if .Number}}Chapter {{.Number}}: {{end}}{{.Title}}</h1>
{{safe .HTML}}
{{- range .Sections}}
<section class="section" id="{{.Anchor}}">
<h2>{{.Title}}</h2>
{{safe .HTML}}
</section>
{{- end}}
{{- if .Footnotes}}
<ol class="footnotes">
{{- range .Footnotes}}
<li id="{{$ch.Anchor}}-fn-{{.Number}}">{{.Text}}</li>
{{- end}}
</ol>
{{- end}}
</section>
{{- end}}
{{- if .Bibliography}}
<section class="bibliography">
<h1>Bibliography</h1>
<ul>
{{- range .Bibliography}}
<li>{{.}}</li>
{{- end}}
</ul>
</section>
{{- end}}
</body>
</html>
`
