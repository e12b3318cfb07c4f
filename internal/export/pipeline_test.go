package export_test

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"folio/internal/artifacts"
	"folio/internal/config"
	"folio/internal/content"
	"folio/internal/export"
	"folio/internal/logging"
	"folio/internal/render"
	"folio/internal/services"
	"folio/internal/store"
	"folio/internal/testsupport"
)

var owner = services.Identity{UserID: "author-1"}

type captureRenderer struct {
	doc *services.Document
}

func (c *captureRenderer) Render(_ context.Context, doc *services.Document) (*services.Artifact, error) {
	c.doc = doc
	return &services.Artifact{Format: doc.Format, ContentType: "text/html", Extension: "html", Data: []byte("<html></html>")}, nil
}

// blockingRenderer waits for its context to end.
type blockingRenderer struct {
	started chan struct{}
}

func (b *blockingRenderer) Render(ctx context.Context, _ *services.Document) (*services.Artifact, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

// lateRenderer finishes its work only after its context has ended.
type lateRenderer struct{}

func (lateRenderer) Render(ctx context.Context, doc *services.Document) (*services.Artifact, error) {
	<-ctx.Done()
	return &services.Artifact{Format: doc.Format, ContentType: "text/html", Extension: "html", Data: []byte("<html></html>")}, nil
}

// gatedPublisher blocks until released.
type gatedPublisher struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedPublisher) Publish(_ context.Context, key string, _ *services.Artifact) (string, error) {
	close(g.started)
	<-g.release
	return "https://files.example/" + key, nil
}

type fixture struct {
	cfg   *config.Config
	store *store.Store
	book  content.Book
}

func newFixture(t *testing.T, status content.BookStatus, opts ...testsupport.BookOption) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	opts = append([]testsupport.BookOption{testsupport.WithStatus(status)}, opts...)
	book := testsupport.SeedBook(t, st, owner.UserID, opts...)
	return fixture{cfg: cfg, store: st, book: book}
}

func (f fixture) pipeline(renderer services.Renderer, publisher services.Publisher) *export.Pipeline {
	return export.NewPipeline(f.store, renderer, publisher, f.cfg.Export, logging.NewNop())
}

func (f fixture) defaultPipeline() *export.Pipeline {
	return f.pipeline(render.NewDefaultRegistry(logging.NewNop()),
		artifacts.NewLocalPublisher(f.cfg.Paths.ArtifactDir, "", logging.NewNop()))
}

func (f fixture) citation(t *testing.T, in content.CitationInput) content.Citation {
	t.Helper()
	c, err := content.NewCitation(f.book.ID, in, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewCitation: %v", err)
	}
	if err := f.store.InsertCitation(context.Background(), c); err != nil {
		t.Fatalf("InsertCitation: %v", err)
	}
	return c
}

func mustGet(t *testing.T, p *export.Pipeline, id string) content.Export {
	t.Helper()
	exp, err := p.GetExport(context.Background(), owner, id)
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	return exp
}

func TestRequestExportAllowsOneInFlightPerFormat(t *testing.T) {
	f := newFixture(t, content.BookReview)
	p := f.defaultPipeline()
	ctx := context.Background()

	first, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatEPUB, nil)
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	if first.Status != content.ExportQueued {
		t.Fatalf("status = %s, want queued", first.Status)
	}
	if !first.Settings.IncludeCover || first.Settings.PageSize != content.Page6x9 {
		t.Fatalf("default settings not applied: %+v", first.Settings)
	}

	if _, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatEPUB, nil); !errors.Is(err, services.ErrExportInProgress) {
		t.Fatalf("second epub err = %v, want ErrExportInProgress", err)
	}
	if _, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatHTML, nil); err != nil {
		t.Fatalf("html alongside epub: %v", err)
	}

	if err := p.Render(ctx, first.ID); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatEPUB, nil); err != nil {
		t.Fatalf("epub after completion: %v", err)
	}
}

func TestRequestExportEligibility(t *testing.T) {
	f := newFixture(t, content.BookWriting)
	p := f.defaultPipeline()
	ctx := context.Background()

	_, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatEPUB, nil)
	if !errors.Is(err, services.ErrPreconditionNotMet) {
		t.Fatalf("epub from writing err = %v, want precondition", err)
	}
	if _, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatHTML, nil); err != nil {
		t.Fatalf("html preview from writing: %v", err)
	}
	if _, err := p.RequestExport(ctx, owner, f.book.ID, content.ExportFormat("docx"), nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unknown format err = %v, want validation", err)
	}
	stranger := services.Identity{UserID: "someone-else"}
	if _, err := p.RequestExport(ctx, stranger, f.book.ID, content.FormatHTML, nil); !errors.Is(err, services.ErrOwnershipMismatch) {
		t.Fatalf("stranger err = %v, want ownership mismatch", err)
	}
	if _, err := p.RequestExport(ctx, services.Identity{}, f.book.ID, content.FormatHTML, nil); !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("anonymous err = %v, want unauthorized", err)
	}
}

func TestBackToBackPDFExportsFailWithoutTouchingBook(t *testing.T) {
	f := newFixture(t, content.BookReview)
	testsupport.SeedChapter(t, f.store, f.book.ID, "Harbour", content.ChapterComplete, "<p>Boats return at dusk.</p>")
	p := f.defaultPipeline()
	ctx := context.Background()
	before, err := f.store.GetBook(ctx, f.book.ID)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}

	for i := range 2 {
		exp, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatPDF, nil)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if err := p.Render(ctx, exp.ID); err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
		got := mustGet(t, p, exp.ID)
		if got.Status != content.ExportFailed {
			t.Fatalf("export %d status = %s, want failed", i, got.Status)
		}
		if !strings.Contains(got.ErrorMessage, "render failed") || !strings.Contains(got.ErrorMessage, "pdf") {
			t.Fatalf("export %d error_message = %q", i, got.ErrorMessage)
		}
		if got.FileURL != "" || got.CompletedAt != nil {
			t.Fatalf("failed export has artifact fields: %+v", got)
		}
	}

	book, err := f.store.GetBook(ctx, f.book.ID)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if book.Status != content.BookReview || book.Version != before.Version {
		t.Fatalf("book changed: status %s version %d", book.Status, book.Version)
	}
	exports, err := p.ListExports(ctx, owner, f.book.ID)
	if err != nil {
		t.Fatalf("ListExports: %v", err)
	}
	if len(exports) != 2 {
		t.Fatalf("exports = %d, want 2", len(exports))
	}
}

func TestRenderEPUBPublishesArtifact(t *testing.T) {
	f := newFixture(t, content.BookReview)
	testsupport.SeedChapter(t, f.store, f.book.ID, "Harbour", content.ChapterComplete, "Boats return at dusk.\n\nThe lamps come on.")
	p := f.defaultPipeline()
	ctx := context.Background()

	exp, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatEPUB, nil)
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	if err := p.Render(ctx, exp.ID); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := mustGet(t, p, exp.ID)
	if got.Status != content.ExportComplete {
		t.Fatalf("status = %s (%s), want complete", got.Status, got.ErrorMessage)
	}
	if got.CompletedAt == nil || got.RenderedAt == nil || got.StartedAt == nil {
		t.Fatalf("timestamps missing: %+v", got)
	}
	u, err := url.Parse(got.FileURL)
	if err != nil || u.Scheme != "file" {
		t.Fatalf("file_url = %q", got.FileURL)
	}
	if !strings.HasSuffix(u.Path, "/field-notes-"+exp.ID+".epub") {
		t.Fatalf("artifact path = %q", u.Path)
	}
	info, err := os.Stat(u.Path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("artifact missing: %v", err)
	}

	if err := p.Render(ctx, exp.ID); !errors.Is(err, services.ErrPreconditionNotMet) {
		t.Fatalf("second render err = %v, want precondition", err)
	}
}

func TestRenderFailsOnUnknownCitation(t *testing.T) {
	f := newFixture(t, content.BookWriting)
	testsupport.SeedChapter(t, f.store, f.book.ID, "Harbour", content.ChapterDraft, "<p>Tides rise [cite:missing-source].</p>")
	p := f.pipeline(&captureRenderer{}, artifacts.NewLocalPublisher(f.cfg.Paths.ArtifactDir, "", logging.NewNop()))
	ctx := context.Background()

	exp, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatHTML, nil)
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	if err := p.Render(ctx, exp.ID); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := mustGet(t, p, exp.ID)
	if got.Status != content.ExportFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	for _, want := range []string{"dangling reference", "missing-source", `chapter 1 "Harbour"`} {
		if !strings.Contains(got.ErrorMessage, want) {
			t.Fatalf("error_message %q missing %q", got.ErrorMessage, want)
		}
	}
}

func TestCancelQueuedExport(t *testing.T) {
	f := newFixture(t, content.BookReview)
	p := f.defaultPipeline()
	ctx := context.Background()

	exp, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatEPUB, nil)
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	cancelled, err := p.Cancel(ctx, owner, exp.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != content.ExportFailed || cancelled.ErrorMessage != export.CancelledMessage {
		t.Fatalf("cancelled export = %+v", cancelled)
	}
	if err := p.Render(ctx, exp.ID); !errors.Is(err, services.ErrPreconditionNotMet) {
		t.Fatalf("render after cancel err = %v, want precondition", err)
	}
	if _, err := p.Cancel(ctx, owner, exp.ID); !errors.Is(err, services.ErrPreconditionNotMet) {
		t.Fatalf("second cancel err = %v, want precondition", err)
	}
	if _, err := p.Cancel(ctx, services.Identity{UserID: "intruder"}, exp.ID); !errors.Is(err, services.ErrOwnershipMismatch) {
		t.Fatalf("intruder cancel err = %v, want ownership mismatch", err)
	}
}

func TestCancelStopsInProcessRender(t *testing.T) {
	f := newFixture(t, content.BookReview)
	renderer := &blockingRenderer{started: make(chan struct{})}
	p := f.pipeline(renderer, artifacts.NewLocalPublisher(f.cfg.Paths.ArtifactDir, "", logging.NewNop()))
	ctx := context.Background()

	exp, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatEPUB, nil)
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- p.Render(ctx, exp.ID) }()

	select {
	case <-renderer.started:
	case <-time.After(5 * time.Second):
		t.Fatal("renderer never started")
	}
	if _, err := p.Cancel(ctx, owner, exp.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("render did not stop after cancel")
	}
	got := mustGet(t, p, exp.ID)
	if got.Status != content.ExportFailed || got.ErrorMessage != export.CancelledMessage {
		t.Fatalf("export = %s %q, want failed cancelled", got.Status, got.ErrorMessage)
	}
	if got.RenderedAt != nil {
		t.Fatalf("rendered_at set on cancelled export")
	}
}

func TestCancelRefusedOnceRendered(t *testing.T) {
	f := newFixture(t, content.BookReview)
	publisher := &gatedPublisher{started: make(chan struct{}), release: make(chan struct{})}
	p := f.pipeline(&captureRenderer{}, publisher)
	ctx := context.Background()

	exp, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatEPUB, nil)
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- p.Render(ctx, exp.ID) }()

	select {
	case <-publisher.started:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher never started")
	}
	if _, err := p.Cancel(ctx, owner, exp.ID); !errors.Is(err, services.ErrPreconditionNotMet) {
		t.Fatalf("cancel after render err = %v, want precondition", err)
	}
	close(publisher.release)
	if err := <-done; err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := mustGet(t, p, exp.ID)
	if got.Status != content.ExportComplete || !strings.HasPrefix(got.FileURL, "https://files.example/"+f.book.ID+"/") {
		t.Fatalf("export = %s %q", got.Status, got.FileURL)
	}
}

func TestRenderTimeoutFailsExport(t *testing.T) {
	f := newFixture(t, content.BookReview)
	f.cfg.Export.RenderTimeoutSeconds = 1
	renderer := &blockingRenderer{started: make(chan struct{})}
	p := f.pipeline(renderer, artifacts.NewLocalPublisher(f.cfg.Paths.ArtifactDir, "", logging.NewNop()))
	ctx := context.Background()

	exp, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatAudiobook, nil)
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	if err := p.Render(ctx, exp.ID); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := mustGet(t, p, exp.ID)
	if got.Status != content.ExportFailed || !strings.Contains(got.ErrorMessage, "timed out") {
		t.Fatalf("export = %s %q, want timed out failure", got.Status, got.ErrorMessage)
	}
}

func TestRenderedBytesSurviveLateDeadline(t *testing.T) {
	f := newFixture(t, content.BookReview)
	f.cfg.Export.RenderTimeoutSeconds = 1
	publisher := artifacts.NewLocalPublisher(f.cfg.Paths.ArtifactDir, "", logging.NewNop())
	p := f.pipeline(lateRenderer{}, publisher)
	ctx := context.Background()

	exp, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatEPUB, nil)
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	if err := p.Render(ctx, exp.ID); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := mustGet(t, p, exp.ID)
	if got.Status != content.ExportComplete || got.FileURL == "" {
		t.Fatalf("export = %s %q %q, want complete", got.Status, got.FileURL, got.ErrorMessage)
	}
	if got.RenderedAt == nil {
		t.Fatalf("rendered_at not set")
	}
	if _, err := p.Cancel(ctx, owner, exp.ID); !errors.Is(err, services.ErrPreconditionNotMet) {
		t.Fatalf("cancel after completion err = %v, want precondition", err)
	}
}

func TestStatsCountsByStatus(t *testing.T) {
	f := newFixture(t, content.BookReview)
	p := f.defaultPipeline()
	ctx := context.Background()
	if _, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatHTML, nil); err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	pdf, err := p.RequestExport(ctx, owner, f.book.ID, content.FormatPDF, nil)
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	if err := p.Render(ctx, pdf.ID); err != nil {
		t.Fatalf("Render: %v", err)
	}
	stats, err := p.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[content.ExportQueued] != 1 || stats[content.ExportFailed] != 1 {
		t.Fatalf("stats = %v", stats)
	}
}
