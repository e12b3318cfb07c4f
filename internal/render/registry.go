package render

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"folio/internal/config"
	"folio/internal/content"
	"folio/internal/logging"
	"folio/internal/services"
)

const component = "render"

// Registry maps export formats to renderers.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]services.Renderer
	logger    *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		renderers: make(map[string]services.Renderer),
		logger:    logging.NewComponentLogger(logger, component),
	}
}

// NewDefaultRegistry registers the in-repo renderers: epub, html and audiobook.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(content.FormatEPUB, NewEPUBRenderer())
	r.Register(content.FormatHTML, NewHTMLRenderer())
	r.Register(content.FormatAudiobook, NewNarrationRenderer())
	return r
}

// NewRegistryFromConfig extends the default registry with the pdf formats
// when an external converter is configured.
func NewRegistryFromConfig(cfg config.Export, logger *slog.Logger) *Registry {
	r := NewDefaultRegistry(logger)
	if strings.TrimSpace(cfg.PDFCommand) == "" {
		return r
	}
	pdf, err := NewPDFRenderer(cfg.PDFCommand)
	if err != nil {
		r.logger.Warn("pdf renderer disabled", logging.Error(err))
		return r
	}
	r.Register(content.FormatPDF, pdf)
	r.Register(content.FormatPDFPrint, pdf)
	return r
}

// Register installs renderer for format, replacing any previous one.
func (r *Registry) Register(format content.ExportFormat, renderer services.Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[string(format)] = renderer
}

// Formats lists the registered formats in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.renderers))
	for f := range r.renderers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Render implements services.Renderer by dispatching on doc.Format.
func (r *Registry) Render(ctx context.Context, doc *services.Document) (*services.Artifact, error) {
	if doc == nil {
		return nil, services.Wrap(services.ErrRenderFailed, component, "render", "document is nil", nil)
	}
	r.mu.RLock()
	renderer, ok := r.renderers[doc.Format]
	r.mu.RUnlock()
	if !ok {
		return nil, services.Wrap(services.ErrRenderFailed, component, "render",
			fmt.Sprintf("no renderer available for format %q", doc.Format), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("rendering document",
		logging.String(logging.FieldFormat, doc.Format),
		logging.Int("chapters", len(doc.Chapters)),
	)
	artifact, err := renderer.Render(ctx, doc)
	if err != nil {
		return nil, services.Wrap(services.ErrRenderFailed, component, "render", doc.Format, err)
	}
	logger.Debug("document rendered",
		logging.String(logging.FieldFormat, doc.Format),
		logging.Int("bytes", len(artifact.Data)),
	)
	return artifact, nil
}
