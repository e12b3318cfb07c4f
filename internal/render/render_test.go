package render_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"folio/internal/content"
	"folio/internal/logging"
	"folio/internal/render"
	"folio/internal/services"
)

func sampleDocument(format content.ExportFormat) *services.Document {
	return &services.Document{
		BookID:   "book-1",
		ExportID: "11111111-2222-3333-4444-555555555555",
		Format:   string(format),
		Title:    "Field Notes",
		Author:   "Ada Marsh",
		Language: "en",
		Cover:    &services.CoverPage{Title: "Field Notes", Subtitle: "A coastal year"},
		TOC: []services.TOCEntry{
			{Label: "Chapter 1: Tides", Anchor: "chapter-1"},
			{Label: "Chapter 2: Birds", Anchor: "chapter-2"},
		},
		Chapters: []services.DocumentChapter{
			{
				Number: 1,
				Title:  "Tides",
				Anchor: "chapter-1",
				HTML:   `<p>The tide turns twice a day.<sup class="cite"><a href="#chapter-1-fn-1">1</a></sup></p><script>alert(1)</script>`,
				Sections: []services.DocumentSection{
					{Title: "Neap", Anchor: "chapter-1-section-1", HTML: "<p>Small tides.</p>"},
				},
				Footnotes: []services.Footnote{{Number: 1, Text: "Marsh, A. (2020). Tide Atlas."}},
			},
			{Number: 2, Title: "Birds", Anchor: "chapter-2", HTML: "<p>Gulls follow the boats.</p>"},
		},
		Bibliography: []string{"Marsh, A. (2020). Tide Atlas."},
	}
}

func TestRegistryRejectsFormatsWithoutRenderer(t *testing.T) {
	reg := render.NewDefaultRegistry(logging.NewNop())
	for _, format := range []content.ExportFormat{content.FormatPDF, content.FormatPDFPrint, content.FormatKDP, content.FormatIngram} {
		_, err := reg.Render(context.Background(), sampleDocument(format))
		if !errors.Is(err, services.ErrRenderFailed) {
			t.Fatalf("%s: err = %v, want render failed", format, err)
		}
	}
	if got := strings.Join(reg.Formats(), ","); got != "audiobook,epub,html" {
		t.Fatalf("formats = %s", got)
	}
}

func TestRegistryWrapsRendererErrors(t *testing.T) {
	reg := render.NewRegistry(logging.NewNop())
	reg.Register(content.FormatPDF, failingRenderer{})
	_, err := reg.Render(context.Background(), sampleDocument(content.FormatPDF))
	if !errors.Is(err, services.ErrRenderFailed) || !strings.Contains(err.Error(), "engine crashed") {
		t.Fatalf("err = %v", err)
	}
}

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, *services.Document) (*services.Artifact, error) {
	return nil, errors.New("engine crashed")
}

func TestHTMLRenderer(t *testing.T) {
	artifact, err := render.NewHTMLRenderer().Render(context.Background(), sampleDocument(content.FormatHTML))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := string(artifact.Data)
	for _, want := range []string{
		"<title>Field Notes</title>",
		`<a href="#chapter-2">Chapter 2: Birds</a>`,
		"<h1>Chapter 1: Tides</h1>",
		`id="chapter-1-fn-1"`,
		"Small tides.",
		`class="bibliography"`,
		"A coastal year",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("html missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Fatal("script tag survived sanitising")
	}
	if artifact.Extension != "html" || !strings.HasPrefix(artifact.ContentType, "text/html") {
		t.Fatalf("artifact = %s %s", artifact.Extension, artifact.ContentType)
	}
}

func TestHTMLRendererWithoutNumbering(t *testing.T) {
	doc := sampleDocument(content.FormatHTML)
	doc.Chapters[0].Number = 0
	doc.TOC = nil
	artifact, err := render.NewHTMLRenderer().Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := string(artifact.Data)
	if !strings.Contains(out, "<h1>Tides</h1>") {
		t.Fatalf("expected unnumbered heading:\n%s", out)
	}
	if strings.Contains(out, `class="toc"`) {
		t.Fatal("toc rendered without entries")
	}
}

func TestEPUBRenderer(t *testing.T) {
	artifact, err := render.NewEPUBRenderer().Render(context.Background(), sampleDocument(content.FormatEPUB))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if artifact.ContentType != "application/epub+zip" || artifact.Extension != "epub" {
		t.Fatalf("artifact = %+v", artifact.ContentType)
	}
	zr, err := zip.NewReader(bytes.NewReader(artifact.Data), int64(len(artifact.Data)))
	if err != nil {
		t.Fatalf("open epub zip: %v", err)
	}
	var chapterOne string
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
		if strings.HasSuffix(f.Name, "chapter-001.xhtml") {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("open %s: %v", f.Name, err)
			}
			data, _ := io.ReadAll(rc)
			rc.Close()
			chapterOne = string(data)
		}
	}
	if !names["mimetype"] {
		t.Fatalf("epub missing mimetype entry: %v", names)
	}
	if chapterOne == "" {
		t.Fatalf("chapter file missing: %v", names)
	}
	if !strings.Contains(chapterOne, "Chapter 1: Tides") || strings.Contains(chapterOne, "<script>") {
		t.Fatalf("chapter body = %s", chapterOne)
	}
}

func TestNarrationRenderer(t *testing.T) {
	doc := sampleDocument(content.FormatAudiobook)
	doc.VoiceID = "narrator-2"
	artifact, err := render.NewNarrationRenderer().Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := string(artifact.Data)
	for _, want := range []string{"# voice: narrator-2", "Chapter 1. Tides.", "The tide turns twice a day.", "Neap.", "Gulls follow the boats."} {
		if !strings.Contains(out, want) {
			t.Fatalf("script missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<p>") {
		t.Fatal("markup leaked into narration")
	}
}
