package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"folio/internal/artifacts"
	"folio/internal/config"
	"folio/internal/content"
	"folio/internal/lifecycle"
	"folio/internal/logging"
	"folio/internal/services"
	"folio/internal/store"
)

const (
	component = "export"

	// CancelledMessage is recorded on exports failed by Cancel.
	CancelledMessage = "cancelled"
)

// Pipeline requests, renders, publishes and cancels exports.
type Pipeline struct {
	store     *store.Store
	renderer  services.Renderer
	publisher services.Publisher
	cfg       config.Export
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// Option configures optional Pipeline behavior.
type Option func(*Pipeline)

// WithClock overrides the time source used for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithTracer overrides the tracer used for render spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// NewPipeline constructs a Pipeline. renderer is usually a render.Registry.
func NewPipeline(st *store.Store, renderer services.Renderer, publisher services.Publisher, cfg config.Export, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     st,
		renderer:  renderer,
		publisher: publisher,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, component),
		tracer:    otel.Tracer("folio/export"),
		now:       time.Now,
		inflight:  make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RequestExport queues an export of the caller's book. Publish-grade formats
// need the book in review or later; html previews are allowed at any status.
// settings may be nil to use defaults derived from the book.
func (p *Pipeline) RequestExport(ctx context.Context, caller services.Identity, bookID string, format content.ExportFormat, settings *content.ExportSettings) (content.Export, error) {
	if _, ok := content.ParseExportFormat(string(format)); !ok {
		return content.Export{}, services.Wrap(services.ErrValidation, component, "request export",
			fmt.Sprintf("unknown format %q", format), nil)
	}
	var exp content.Export
	err := p.store.WithTx(ctx, func(tx *store.Tx) error {
		book, err := lifecycle.OwnedBook(ctx, tx, caller, bookID, "request export")
		if err != nil {
			return err
		}
		if format != content.FormatHTML && !book.Status.AtLeast(content.BookReview) {
			return services.Precondition("request "+string(format)+" export",
				fmt.Sprintf("book is in %s; %s exports need review or later", book.Status, format))
		}
		chosen := content.DefaultExportSettings(book.Settings)
		if settings != nil {
			chosen = *settings
		}
		exp, err = content.NewExport(book.ID, format, chosen, p.now())
		if err != nil {
			return err
		}
		return tx.InsertExport(ctx, exp)
	})
	if err != nil {
		return content.Export{}, err
	}
	p.logger.With(logging.Args(logging.ExportAttrs(exp)...)...).Info("export queued",
		logging.String(logging.FieldEventType, "export_queued"),
	)
	return exp, nil
}

// GetExport returns one of the caller's exports.
func (p *Pipeline) GetExport(ctx context.Context, caller services.Identity, exportID string) (content.Export, error) {
	exp, err := p.store.GetExport(ctx, exportID)
	if err != nil {
		return content.Export{}, err
	}
	if _, err := lifecycle.OwnedBook(ctx, p.store, caller, exp.BookID, "get export"); err != nil {
		return content.Export{}, err
	}
	return exp, nil
}

// ListExports returns the caller's exports for a book, newest first.
func (p *Pipeline) ListExports(ctx context.Context, caller services.Identity, bookID string) ([]content.Export, error) {
	if _, err := lifecycle.OwnedBook(ctx, p.store, caller, bookID, "list exports"); err != nil {
		return nil, err
	}
	return p.store.ListExports(ctx, bookID)
}

// Stats counts exports by status.
func (p *Pipeline) Stats(ctx context.Context) (map[content.ExportStatus]int, error) {
	return p.store.ExportStats(ctx)
}

// Cancel fails an export that has not yet produced bytes and stops its
// in-process render. Once the renderer has returned, cancellation is refused.
func (p *Pipeline) Cancel(ctx context.Context, caller services.Identity, exportID string) (content.Export, error) {
	exp, err := p.GetExport(ctx, caller, exportID)
	if err != nil {
		return content.Export{}, err
	}
	ok, err := p.store.CancelExport(ctx, exportID, CancelledMessage)
	if err != nil {
		return content.Export{}, err
	}
	if !ok {
		condition := "export already produced its artifact"
		if exp.Status.Terminal() {
			condition = fmt.Sprintf("export is already %s", exp.Status)
		}
		return content.Export{}, services.Precondition("cancel export", condition)
	}

	p.mu.Lock()
	stop := p.inflight[exportID]
	p.mu.Unlock()
	if stop != nil {
		stop()
	}

	cancelled, err := p.store.GetExport(ctx, exportID)
	if err != nil {
		return content.Export{}, err
	}
	p.logger.With(logging.Args(logging.ExportAttrs(cancelled)...)...).Info("export cancelled",
		logging.String(logging.FieldEventType, "export_cancelled"),
		logging.Bool("in_process", stop != nil),
	)
	return cancelled, nil
}

// Render claims a queued export and runs it to completion. Rendering and
// publishing failures are recorded on the export and do not produce an
// error; the returned error covers claiming and bookkeeping only.
func (p *Pipeline) Render(ctx context.Context, exportID string) error {
	claimed, err := p.store.ClaimExport(ctx, exportID, p.now())
	if err != nil {
		return err
	}
	if !claimed {
		current, err := p.store.GetExport(ctx, exportID)
		if err != nil {
			return err
		}
		return services.Precondition("render export", fmt.Sprintf("export is %s, not queued", current.Status))
	}
	exp, err := p.store.GetExport(ctx, exportID)
	if err != nil {
		return err
	}

	ctx = services.WithExportID(services.WithBookID(ctx, exp.BookID), exp.ID)
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldFormat, string(exp.Format)))

	var (
		renderCtx context.Context
		cancel    context.CancelFunc
	)
	if timeout := time.Duration(p.cfg.RenderTimeoutSeconds) * time.Second; timeout > 0 {
		renderCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		renderCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	p.track(exp.ID, cancel)
	defer p.untrack(exp.ID)

	renderCtx, span := p.tracer.Start(renderCtx, "export.render", trace.WithAttributes(
		attribute.String("folio.book_id", exp.BookID),
		attribute.String("folio.export_id", exp.ID),
		attribute.String("folio.format", string(exp.Format)),
	))
	defer span.End()

	started := p.now()
	url, runErr := p.run(renderCtx, logger, exp)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, services.Kind(runErr))
		return p.fail(ctx, logger, exp, runErr)
	}
	span.SetStatus(codes.Ok, "")

	done, err := p.store.CompleteExport(ctx, exp.ID, url, p.now())
	if err != nil {
		return err
	}
	if !done {
		logger.Info("export finished after it was failed elsewhere",
			logging.String(logging.FieldEventType, "export_complete_skipped"))
		return nil
	}
	logger.Info("export complete",
		logging.String(logging.FieldEventType, "export_complete"),
		logging.String("file_url", url),
		logging.Duration("elapsed", p.now().Sub(started)),
	)
	return nil
}

// run assembles, renders and publishes one export, returning the artifact URL.
func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, exp content.Export) (string, error) {
	if p.renderer == nil {
		return "", services.Wrap(services.ErrRenderFailed, component, "render", "no renderer configured", nil)
	}
	if p.publisher == nil {
		return "", services.Wrap(services.ErrUnavailable, component, "publish", "no artifact publisher configured", nil)
	}

	assembleCtx, span := p.tracer.Start(ctx, "export.assemble")
	bc, err := loadBookContent(assembleCtx, p.store, exp.BookID)
	var doc *services.Document
	if err == nil {
		doc, err = newAssembler(bc, exp, p.cfg.Language).Document()
	}
	endSpan(span, err)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", interrupted(err)
	}

	renderCtx, span := p.tracer.Start(ctx, "export.renderer")
	artifact, err := p.renderer.Render(renderCtx, doc)
	endSpan(span, err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", interrupted(ctxErr)
		}
		return "", err
	}

	// Returned bytes are kept even if ctx ended meanwhile; only a stored
	// cancellation stops the export here.
	marked, err := p.store.MarkExportRendered(context.WithoutCancel(ctx), exp.ID, p.now())
	if err != nil {
		return "", err
	}
	if !marked {
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return "", interrupted(cause)
	}
	logger.Debug("artifact rendered",
		logging.String(logging.FieldEventType, "export_rendered"),
		logging.Int("bytes", len(artifact.Data)),
	)

	// Past this point the export can no longer be cancelled.
	publishCtx, span := p.tracer.Start(context.WithoutCancel(ctx), "export.publish")
	key := artifacts.Key(exp.BookID, bc.book.Title, exp.ID, artifact.Extension)
	url, err := p.publisher.Publish(publishCtx, key, artifact)
	endSpan(span, err)
	if err != nil {
		return "", err
	}
	return url, nil
}

// fail records err on the export. A cancelled export keeps its message.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, exp content.Export, cause error) error {
	failed, err := p.store.FailExport(context.WithoutCancel(ctx), exp.ID, cause.Error())
	if err != nil {
		return err
	}
	if !failed {
		logger.Info("export stopped",
			logging.String(logging.FieldEventType, "export_stopped"),
			logging.String("reason", cause.Error()),
		)
		return nil
	}
	logging.WarnWithContext(logger, "export failed", "export_failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorKind, services.Kind(cause)),
		logging.String(logging.FieldErrorHint, "inspect the export error_message and request a new export"),
		logging.String(logging.FieldImpact, "no artifact was published"),
	)
	return nil
}

func (p *Pipeline) track(id string, cancel context.CancelFunc) {
	p.mu.Lock()
	p.inflight[id] = cancel
	p.mu.Unlock()
}

func (p *Pipeline) untrack(id string) {
	p.mu.Lock()
	delete(p.inflight, id)
	p.mu.Unlock()
}

func interrupted(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrRenderFailed, component, "render", "render timed out", err)
	}
	return services.Wrap(services.ErrRenderFailed, component, "render", "render interrupted", err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, services.Kind(err))
	}
	span.End()
}
