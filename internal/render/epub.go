package render

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	epub "github.com/go-shiori/go-epub"
	"github.com/microcosm-cc/bluemonday"

	"folio/internal/services"
)

var imgSrcPattern = regexp.MustCompile(`<img([^>]*)\ssrc=["']([^"']+)["']([^>]*)>`)

// EPUBRenderer builds an EPUB with one section per chapter and a
// sub-section per chapter section.
type EPUBRenderer struct {
	// EmbedImages downloads remote images into the package. When false the
	// images keep their remote URLs.
	EmbedImages bool
	policy      *bluemonday.Policy
}

// NewEPUBRenderer builds the EPUB renderer.
func NewEPUBRenderer() *EPUBRenderer {
	return &EPUBRenderer{policy: fragmentPolicy()}
}

// Render implements services.Renderer.
func (r *EPUBRenderer) Render(ctx context.Context, doc *services.Document) (*services.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	title := doc.Title
	if title == "" {
		title = "Untitled"
	}
	e, err := epub.NewEpub(title)
	if err != nil {
		return nil, fmt.Errorf("create epub: %w", err)
	}
	if doc.Author != "" {
		e.SetAuthor(doc.Author)
	}
	if doc.Description != "" {
		e.SetDescription(doc.Description)
	}
	lang := doc.Language
	if lang == "" {
		lang = "en"
	}
	e.SetLang(lang)
	if doc.ExportID != "" {
		e.SetIdentifier("urn:uuid:" + doc.ExportID)
	}

	workDir, err := os.MkdirTemp("", "folio-epub-*")
	if err != nil {
		return nil, fmt.Errorf("create epub work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	cssSource := filepath.Join(workDir, "book.css")
	if err := os.WriteFile(cssSource, []byte(bookCSS), 0o644); err != nil {
		return nil, fmt.Errorf("write epub css: %w", err)
	}
	cssPath, err := e.AddCSS(cssSource, "book.css")
	if err != nil {
		return nil, fmt.Errorf("add epub css: %w", err)
	}

	if doc.Cover != nil {
		if _, err := e.AddSection(coverBody(doc.Cover), "Cover", "cover.xhtml", cssPath); err != nil {
			return nil, fmt.Errorf("add cover: %w", err)
		}
	}

	for i, ch := range doc.Chapters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		heading := ch.Title
		if ch.Number > 0 {
			heading = fmt.Sprintf("Chapter %d: %s", ch.Number, ch.Title)
		}
		filename := fmt.Sprintf("chapter-%03d.xhtml", i+1)
		body := fmt.Sprintf(`<h1 id="%s">%s</h1>`, html.EscapeString(ch.Anchor), html.EscapeString(heading)) +
			r.fragment(e, ch.HTML) + footnotesBody(ch)
		parent, err := e.AddSection(body, heading, filename, cssPath)
		if err != nil {
			return nil, fmt.Errorf("add chapter %d: %w", i+1, err)
		}
		for j, sec := range ch.Sections {
			secBody := fmt.Sprintf(`<h2 id="%s">%s</h2>`, html.EscapeString(sec.Anchor), html.EscapeString(sec.Title)) +
				r.fragment(e, sec.HTML)
			secFile := fmt.Sprintf("chapter-%03d-%03d.xhtml", i+1, j+1)
			if _, err := e.AddSubSection(parent, secBody, sec.Title, secFile, cssPath); err != nil {
				return nil, fmt.Errorf("add section %d.%d: %w", i+1, j+1, err)
			}
		}
	}

	if len(doc.Bibliography) > 0 {
		var b strings.Builder
		b.WriteString("<h1>Bibliography</h1><ul>")
		for _, entry := range doc.Bibliography {
			b.WriteString("<li>" + html.EscapeString(entry) + "</li>")
		}
		b.WriteString("</ul>")
		if _, err := e.AddSection(b.String(), "Bibliography", "bibliography.xhtml", cssPath); err != nil {
			return nil, fmt.Errorf("add bibliography: %w", err)
		}
	}

	out := filepath.Join(workDir, "book.epub")
	if err := e.Write(out); err != nil {
		return nil, fmt.Errorf("write epub: %w", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read epub: %w", err)
	}
	return &services.Artifact{
		Format:      doc.Format,
		ContentType: "application/epub+zip",
		Extension:   "epub",
		Data:        data,
	}, nil
}

func (r *EPUBRenderer) fragment(e *epub.Epub, body string) string {
	clean := r.policy.Sanitize(body)
	if !r.EmbedImages {
		return clean
	}
	return imgSrcPattern.ReplaceAllStringFunc(clean, func(match string) string {
		sub := imgSrcPattern.FindStringSubmatch(match)
		if len(sub) < 4 || !(strings.HasPrefix(sub[2], "http://") || strings.HasPrefix(sub[2], "https://")) {
			return match
		}
		internal, err := e.AddImage(sub[2], "")
		if err != nil {
			return match
		}
		return fmt.Sprintf(`<img%s src="%s"%s>`, sub[1], internal, sub[3])
	})
}

func coverBody(c *services.CoverPage) string {
	var b strings.Builder
	b.WriteString(`<div class="cover"><h1>` + html.EscapeString(c.Title) + `</h1>`)
	if c.Subtitle != "" {
		b.WriteString(`<p class="subtitle">` + html.EscapeString(c.Subtitle) + `</p>`)
	}
	if c.Description != "" {
		b.WriteString(`<p>` + html.EscapeString(c.Description) + `</p>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func footnotesBody(ch services.DocumentChapter) string {
	if len(ch.Footnotes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<ol class="footnotes">`)
	for _, fn := range ch.Footnotes {
		fmt.Fprintf(&b, `<li id="%s-fn-%d">%s</li>`, html.EscapeString(ch.Anchor), fn.Number, html.EscapeString(fn.Text))
	}
	b.WriteString(`</ol>`)
	return b.String()
}
