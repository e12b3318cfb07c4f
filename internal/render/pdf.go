package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"folio/internal/deps"
	"folio/internal/services"
)

const maxConverterOutput = 512

// PDFRenderer prints the HTML rendering of a document to PDF with an external
// converter invoked as "<command> [args] input.html output.pdf".
type PDFRenderer struct {
	command string
	args    []string
	html    *HTMLRenderer
}

// NewPDFRenderer builds a renderer for commandLine, e.g. "weasyprint".
func NewPDFRenderer(commandLine string) (*PDFRenderer, error) {
	bin, args := deps.SplitCommand(commandLine)
	if bin == "" {
		return nil, errors.New("pdf command is empty")
	}
	return &PDFRenderer{command: bin, args: args, html: NewHTMLRenderer()}, nil
}

// Render implements services.Renderer.
func (p *PDFRenderer) Render(ctx context.Context, doc *services.Document) (*services.Artifact, error) {
	page, err := p.html.Render(ctx, doc)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "folio-pdf-")
	if err != nil {
		return nil, fmt.Errorf("create pdf workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "book.html")
	output := filepath.Join(dir, "book.pdf")
	if err := os.WriteFile(input, page.Data, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf input: %w", err)
	}

	args := append(append([]string{}, p.args...), input, output)
	cmd := exec.CommandContext(ctx, p.command, args...) //nolint:gosec
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %w%s", p.command, err, converterOutput(stderr.String()))
	}

	data, err := os.ReadFile(output) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("%s produced no output: %w", p.command, err)
	}
	return &services.Artifact{
		Format:      doc.Format,
		ContentType: "application/pdf",
		Extension:   "pdf",
		Data:        data,
	}, nil
}

func converterOutput(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return ""
	}
	if len(stderr) > maxConverterOutput {
		stderr = stderr[:maxConverterOutput] + "..."
	}
	return ": " + stderr
}
