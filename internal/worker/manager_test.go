package worker_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"folio/internal/artifacts"
	"folio/internal/config"
	"folio/internal/content"
	"folio/internal/export"
	"folio/internal/logging"
	"folio/internal/notifications"
	"folio/internal/render"
	"folio/internal/services"
	"folio/internal/store"
	"folio/internal/testsupport"
	"folio/internal/worker"
)

var owner = services.Identity{UserID: "author-1"}

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{event: event, payload: payload})
	return nil
}

func (r *recordingNotifier) snapshot() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]published(nil), r.events...)
}

type fixture struct {
	cfg      *config.Config
	store    *store.Store
	pipeline *export.Pipeline
	notifier *recordingNotifier
	book     content.Book
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	pipeline := export.NewPipeline(st, render.NewDefaultRegistry(logger),
		artifacts.NewLocalPublisher(cfg.Paths.ArtifactDir, "", logger), cfg.Export, logger)
	book := testsupport.SeedBook(t, st, owner.UserID, testsupport.WithStatus(content.BookReview))
	testsupport.SeedChapter(t, st, book.ID, "Harbour", content.ChapterComplete, "Tides rise and fall.")
	return fixture{cfg: cfg, store: st, pipeline: pipeline, notifier: &recordingNotifier{}, book: book}
}

func (f fixture) manager(opts ...worker.Option) *worker.Manager {
	opts = append([]worker.Option{worker.WithNotifier(f.notifier)}, opts...)
	return worker.NewManager(f.cfg, f.store, f.pipeline, logging.NewNop(), opts...)
}

func (f fixture) request(t *testing.T, format content.ExportFormat) content.Export {
	t.Helper()
	exp, err := f.pipeline.RequestExport(context.Background(), owner, f.book.ID, format, nil)
	if err != nil {
		t.Fatalf("RequestExport(%s): %v", format, err)
	}
	return exp
}

func (f fixture) export(t *testing.T, id string) content.Export {
	t.Helper()
	exp, err := f.store.GetExport(context.Background(), id)
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	return exp
}

func TestDrainRendersQueueAndNotifies(t *testing.T) {
	f := newFixture(t)
	epub := f.request(t, content.FormatEPUB)
	html := f.request(t, content.FormatHTML)

	processed, err := f.manager().Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if processed != 2 {
		t.Fatalf("processed = %d, want 2", processed)
	}
	for _, id := range []string{epub.ID, html.ID} {
		if got := f.export(t, id); got.Status != content.ExportComplete || got.FileURL == "" {
			t.Fatalf("export %s = %s %q", id, got.Status, got.ErrorMessage)
		}
	}

	events := f.notifier.snapshot()
	if len(events) != 2 {
		t.Fatalf("events = %+v, want 2", events)
	}
	var ready *published
	for i := range events {
		if events[i].event != notifications.EventExportCompleted || events[i].payload["title"] != "Field Notes" {
			t.Fatalf("event = %+v", events[i])
		}
		if events[i].payload["format"] == "epub" {
			ready = &events[i]
		}
	}
	if ready == nil {
		t.Fatalf("no epub event in %+v", events)
	}
	if url, _ := ready.payload["url"].(string); !strings.HasSuffix(url, ".epub") {
		t.Fatalf("url = %v", ready.payload["url"])
	}
}

func TestDrainNotifiesRenderFailure(t *testing.T) {
	f := newFixture(t)
	pdf := f.request(t, content.FormatPDF)

	if _, err := f.manager().Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if got := f.export(t, pdf.ID); got.Status != content.ExportFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	events := f.notifier.snapshot()
	if len(events) != 1 || events[0].event != notifications.EventExportFailed {
		t.Fatalf("events = %+v", events)
	}
	if msg, _ := events[0].payload["error"].(string); !strings.Contains(msg, "render failed") {
		t.Fatalf("error payload = %q", msg)
	}
}

func TestDrainFailsAbandonedExports(t *testing.T) {
	f := newFixture(t)
	exp := f.request(t, content.FormatHTML)
	ctx := context.Background()
	claimed, err := f.store.ClaimExport(ctx, exp.ID, time.Now().Add(-time.Hour))
	if err != nil || !claimed {
		t.Fatalf("ClaimExport = %v, %v", claimed, err)
	}

	processed, err := f.manager().Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if processed != 0 {
		t.Fatalf("processed = %d, want 0", processed)
	}
	got := f.export(t, exp.ID)
	if got.Status != content.ExportFailed || got.ErrorMessage != worker.AbandonedMessage {
		t.Fatalf("export = %s %q, want failed %q", got.Status, got.ErrorMessage, worker.AbandonedMessage)
	}
	events := f.notifier.snapshot()
	if len(events) != 1 || events[0].event != notifications.EventExportsAbandoned || events[0].payload["count"] != "1" {
		t.Fatalf("events = %+v", events)
	}
}

func TestFreshHeartbeatIsNotReclaimed(t *testing.T) {
	f := newFixture(t)
	exp := f.request(t, content.FormatHTML)
	ctx := context.Background()
	if _, err := f.store.ClaimExport(ctx, exp.ID, time.Now()); err != nil {
		t.Fatalf("ClaimExport: %v", err)
	}

	monitor := worker.NewHeartbeatMonitor(f.store, logging.NewNop(), time.Second, f.cfg.HeartbeatTimeout(), nil)
	failed, err := monitor.FailStale(ctx)
	if err != nil {
		t.Fatalf("FailStale: %v", err)
	}
	if failed != 0 {
		t.Fatalf("failed = %d, want 0", failed)
	}
	if got := f.export(t, exp.ID); got.Status != content.ExportProcessing {
		t.Fatalf("status = %s, want processing", got.Status)
	}
}

func TestSecondWorkerIsLockedOut(t *testing.T) {
	f := newFixture(t)
	first := f.manager()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	_, err := f.manager().Drain(context.Background())
	if !errors.Is(err, worker.ErrLocked) {
		t.Fatalf("second worker err = %v, want ErrLocked", err)
	}
	if err := first.Start(context.Background()); err == nil {
		t.Fatal("expected error starting a running worker")
	}
}

func TestPreflightFailureBlocksWorker(t *testing.T) {
	f := newFixture(t)
	exp := f.request(t, content.FormatEPUB)
	f.cfg.Identity.JWTSecret = ""

	_, err := f.manager().Drain(context.Background())
	if err == nil || !strings.Contains(err.Error(), "Token secret") {
		t.Fatalf("Drain err = %v, want preflight failure", err)
	}
	if got := f.export(t, exp.ID); got.Status != content.ExportQueued {
		t.Fatalf("export status = %s, want queued", got.Status)
	}

	// The lock is released so a correctly configured worker can run.
	f.cfg.Identity.JWTSecret = testsupport.TestSecret
	if _, err := f.manager().Drain(context.Background()); err != nil {
		t.Fatalf("Drain after fixing config: %v", err)
	}
}

func TestStartProcessesInBackground(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	exp := f.request(t, content.FormatHTML)

	deadline := time.Now().Add(10 * time.Second)
	for f.export(t, exp.ID).Status != content.ExportComplete {
		if time.Now().After(deadline) {
			m.Stop()
			t.Fatalf("export never completed: %+v", f.export(t, exp.ID))
		}
		time.Sleep(50 * time.Millisecond)
	}

	status := m.Status(context.Background())
	if !status.Running || status.LastError != "" {
		t.Fatalf("status = %+v", status)
	}
	m.Stop()

	status = m.Status(context.Background())
	if status.Running {
		t.Fatal("worker still running after Stop")
	}
	if status.ExportStats[content.ExportComplete] != 1 || status.LastExport != exp.ID {
		t.Fatalf("status = %+v", status)
	}

	// Stop releases the lock for the next worker.
	if _, err := f.manager().Drain(context.Background()); err != nil {
		t.Fatalf("Drain after Stop: %v", err)
	}
}
