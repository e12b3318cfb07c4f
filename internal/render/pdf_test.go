package render_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"folio/internal/config"
	"folio/internal/content"
	"folio/internal/logging"
	"folio/internal/render"
	"folio/internal/services"
)

func writeConverter(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "html2pdf")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write converter: %v", err)
	}
	return path
}

func TestPDFRendererRunsConverter(t *testing.T) {
	converter := writeConverter(t, `[ "$1" = "--quiet" ] || exit 3
cp "$2" "$3"`)
	pdf, err := render.NewPDFRenderer(converter + " --quiet")
	if err != nil {
		t.Fatalf("NewPDFRenderer: %v", err)
	}
	doc := sampleDocument(content.FormatPDFPrint)
	doc.PageSize = string(content.Page6x9)
	doc.FontSize = 12

	artifact, err := pdf.Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if artifact.Extension != "pdf" || artifact.ContentType != "application/pdf" || artifact.Format != "pdf_print" {
		t.Fatalf("artifact = %s %s %s", artifact.Extension, artifact.ContentType, artifact.Format)
	}
	out := string(artifact.Data)
	for _, want := range []string{"@page { size: 6in 9in;", "body { font-size: 12pt; }", "Gulls follow the boats."} {
		if !strings.Contains(out, want) {
			t.Fatalf("converter input missing %q", want)
		}
	}
}

func TestPDFRendererReportsConverterFailure(t *testing.T) {
	converter := writeConverter(t, `echo "missing font" >&2
exit 1`)
	pdf, err := render.NewPDFRenderer(converter)
	if err != nil {
		t.Fatalf("NewPDFRenderer: %v", err)
	}
	_, err = pdf.Render(context.Background(), sampleDocument(content.FormatPDF))
	if err == nil || !strings.Contains(err.Error(), "missing font") {
		t.Fatalf("err = %v, want converter stderr", err)
	}
}

func TestNewPDFRendererRequiresCommand(t *testing.T) {
	if _, err := render.NewPDFRenderer("   "); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestRegistryFromConfigAddsPDF(t *testing.T) {
	cfg := config.Default().Export
	cfg.PDFCommand = writeConverter(t, `cp "$1" "$2"`)
	reg := render.NewRegistryFromConfig(cfg, logging.NewNop())
	if got := strings.Join(reg.Formats(), ","); got != "audiobook,epub,html,pdf,pdf_print" {
		t.Fatalf("formats = %s", got)
	}
	artifact, err := reg.Render(context.Background(), sampleDocument(content.FormatPDF))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if artifact.Extension != "pdf" {
		t.Fatalf("extension = %s", artifact.Extension)
	}

	_, err = render.NewRegistryFromConfig(config.Default().Export, logging.NewNop()).
		Render(context.Background(), sampleDocument(content.FormatPDF))
	if !errors.Is(err, services.ErrRenderFailed) {
		t.Fatalf("unconfigured pdf err = %v, want render failed", err)
	}
}
