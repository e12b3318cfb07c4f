package store_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"folio/internal/content"
	"folio/internal/services"
	"folio/internal/store"
	"folio/internal/testsupport"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

func TestOpenAppliesMigrations(t *testing.T) {
	st := openStore(t)
	version, err := st.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != "001_initial" {
		t.Fatalf("schema version = %q, want 001_initial", version)
	}

	// Reopening the same file must not reapply migrations.
	again, err := store.OpenPath(st.Path())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = again.Close()
}

func TestBookRoundTripAndVersionCheck(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	book := testsupport.SeedBook(t, st, "user-1")
	book.Blueprint = &content.BookBlueprint{Title: "Draft", Chapters: []content.ChapterPlan{{Title: "One"}}}
	book.VoiceProfile = &content.VoiceProfile{Tone: content.ToneCasual, Style: []string{"warm"}}
	if err := st.UpdateBook(ctx, &book); err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	if book.Version != 2 {
		t.Fatalf("version = %d, want 2", book.Version)
	}

	got, err := st.GetBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if got.Blueprint == nil || got.Blueprint.Chapters[0].Title != "One" {
		t.Fatalf("blueprint not round-tripped: %+v", got.Blueprint)
	}
	if got.VoiceProfile == nil || got.VoiceProfile.Tone != content.ToneCasual {
		t.Fatalf("voice profile not round-tripped: %+v", got.VoiceProfile)
	}
	if got.Settings != content.DefaultBookSettings() {
		t.Fatalf("settings = %+v", got.Settings)
	}

	stale := got
	stale.Version = 1
	stale.Title = "Other"
	if err := st.UpdateBook(ctx, &stale); !errors.Is(err, services.ErrStaleWrite) {
		t.Fatalf("stale update err = %v, want ErrStaleWrite", err)
	}

	missing := got
	missing.ID = "nope"
	if err := st.UpdateBook(ctx, &missing); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing update err = %v, want ErrNotFound", err)
	}

	books, err := st.ListBooksByUser(ctx, "user-1")
	if err != nil || len(books) != 1 {
		t.Fatalf("ListBooksByUser = %d, %v", len(books), err)
	}
}

func TestChapterOrderConstraints(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	book := testsupport.SeedBook(t, st, "user-1")

	first := testsupport.SeedChapter(t, st, book.ID, "One", content.ChapterOutline, "")
	second := testsupport.SeedChapter(t, st, book.ID, "Two", content.ChapterOutline, "")

	dup, err := content.NewChapter(book.ID, content.ChapterInput{Title: "Dup"}, time.Now())
	if err != nil {
		t.Fatalf("NewChapter: %v", err)
	}
	dup.OrderIndex = 1
	if err := st.InsertChapter(ctx, dup); !errors.Is(err, services.ErrConflictingOrder) {
		t.Fatalf("duplicate order err = %v, want ErrConflictingOrder", err)
	}

	orphan, _ := content.NewChapter("missing-book", content.ChapterInput{Title: "Orphan"}, time.Now())
	if err := st.InsertChapter(ctx, orphan); !errors.Is(err, services.ErrDanglingReference) {
		t.Fatalf("orphan err = %v, want ErrDanglingReference", err)
	}

	if err := st.WithTx(ctx, func(tx *store.Tx) error {
		return tx.RewriteChapterOrder(ctx, book.ID, []string{second.ID, first.ID})
	}); err != nil {
		t.Fatalf("RewriteChapterOrder: %v", err)
	}
	chapters, err := st.ListChapters(ctx, book.ID)
	if err != nil {
		t.Fatalf("ListChapters: %v", err)
	}
	if chapters[0].ID != second.ID || chapters[1].ID != first.ID {
		t.Fatalf("order not rewritten: %s, %s", chapters[0].Title, chapters[1].Title)
	}
	if chapters[0].OrderIndex != 0 || chapters[1].OrderIndex != 1 {
		t.Fatalf("indices = %d, %d", chapters[0].OrderIndex, chapters[1].OrderIndex)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	book := testsupport.SeedBook(t, st, "user-1")

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx *store.Tx) error {
		ch, _ := content.NewChapter(book.ID, content.ChapterInput{Title: "Lost"}, time.Now())
		if err := tx.InsertChapter(ctx, ch); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v", err)
	}
	chapters, _ := st.ListChapters(ctx, book.ID)
	if len(chapters) != 0 {
		t.Fatalf("expected rollback, found %d chapters", len(chapters))
	}
}

func TestSectionsAndCascadingDelete(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	book := testsupport.SeedBook(t, st, "user-1")
	ch := testsupport.SeedChapter(t, st, book.ID, "One", content.ChapterDraft, "hello there")

	for i, title := range []string{"A", "B"} {
		sec, err := content.NewSection(ch.ID, title, "two words", time.Now())
		if err != nil {
			t.Fatalf("NewSection: %v", err)
		}
		sec.OrderIndex = i
		if err := st.InsertSection(ctx, sec); err != nil {
			t.Fatalf("InsertSection: %v", err)
		}
	}
	byChapter, err := st.ListBookSections(ctx, book.ID)
	if err != nil {
		t.Fatalf("ListBookSections: %v", err)
	}
	if len(byChapter[ch.ID]) != 2 || byChapter[ch.ID][0].Title != "A" {
		t.Fatalf("sections = %+v", byChapter[ch.ID])
	}

	c, _ := content.NewCitation(book.ID, content.CitationInput{Title: "Source", CredibilityScore: 0.7}, time.Now())
	if err := st.InsertCitation(ctx, c); err != nil {
		t.Fatalf("InsertCitation: %v", err)
	}
	if err := st.DeleteBook(ctx, book.ID); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	if _, err := st.GetChapter(ctx, ch.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("chapter survived delete: %v", err)
	}
	if list, _ := st.ListSections(ctx, ch.ID); len(list) != 0 {
		t.Fatalf("sections survived delete: %d", len(list))
	}
	if _, err := st.GetCitation(ctx, c.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("citation survived delete: %v", err)
	}
}

func TestCitationRawDataVerbatim(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	book := testsupport.SeedBook(t, st, "user-1")

	raw := []byte(`{"b": 2,   "a": [1, 2.50]}`)
	c, err := content.NewCitation(book.ID, content.CitationInput{
		SourceType:       content.SourceJournal,
		Title:            "Paper",
		Authors:          []content.Author{{FirstName: "Ada", LastName: "Lovelace"}},
		CredibilityScore: 0.9,
		RawData:          raw,
	}, time.Now())
	if err != nil {
		t.Fatalf("NewCitation: %v", err)
	}
	if err := st.InsertCitation(ctx, c); err != nil {
		t.Fatalf("InsertCitation: %v", err)
	}
	got, err := st.GetCitation(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCitation: %v", err)
	}
	if !bytes.Equal(got.RawData, raw) {
		t.Fatalf("raw data = %s, want %s", got.RawData, raw)
	}
	if len(got.Authors) != 1 || got.Authors[0].LastName != "Lovelace" {
		t.Fatalf("authors = %+v", got.Authors)
	}
}

func TestMediaCaptionIsOnlyMutation(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	book := testsupport.SeedBook(t, st, "user-1")
	asset, err := content.NewMediaAsset(book.ID, content.MediaAssetInput{
		AssetType: content.AssetImage,
		Source:    content.MediaUpload,
		URL:       "https://example.com/a.png",
		AltText:   "a chart",
		Metadata:  content.MediaMetadata{Width: 640, Height: 480},
	}, time.Now())
	if err != nil {
		t.Fatalf("NewMediaAsset: %v", err)
	}
	if err := st.InsertMediaAsset(ctx, asset); err != nil {
		t.Fatalf("InsertMediaAsset: %v", err)
	}
	if err := st.UpdateMediaCaption(ctx, asset.ID, "Figure 1"); err != nil {
		t.Fatalf("UpdateMediaCaption: %v", err)
	}
	got, err := st.GetMediaAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetMediaAsset: %v", err)
	}
	if got.Caption != "Figure 1" || got.URL != asset.URL || got.Metadata.Width != 640 {
		t.Fatalf("asset = %+v", got)
	}
}

func TestExportLifecycleQueries(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	book := testsupport.SeedBook(t, st, "user-1")
	now := time.Now().UTC()

	first, _ := content.NewExport(book.ID, content.FormatPDF, content.DefaultExportSettings(book.Settings), now)
	if err := st.InsertExport(ctx, first); err != nil {
		t.Fatalf("InsertExport: %v", err)
	}
	second, _ := content.NewExport(book.ID, content.FormatPDF, content.DefaultExportSettings(book.Settings), now)
	if err := st.InsertExport(ctx, second); !errors.Is(err, services.ErrExportInProgress) {
		t.Fatalf("second export err = %v, want ErrExportInProgress", err)
	}

	next, err := st.NextQueuedExport(ctx)
	if err != nil || next != first.ID {
		t.Fatalf("NextQueuedExport = %q, %v", next, err)
	}
	if ok, err := st.ClaimExport(ctx, first.ID, now); err != nil || !ok {
		t.Fatalf("ClaimExport = %v, %v", ok, err)
	}
	if ok, _ := st.ClaimExport(ctx, first.ID, now); ok {
		t.Fatal("claimed a processing export twice")
	}
	if ok, err := st.MarkExportRendered(ctx, first.ID, now); err != nil || !ok {
		t.Fatalf("MarkExportRendered = %v, %v", ok, err)
	}
	if ok, _ := st.CancelExport(ctx, first.ID, "cancelled"); ok {
		t.Fatal("cancelled a rendered export")
	}
	if ok, err := st.CompleteExport(ctx, first.ID, "file:///tmp/book.pdf", now); err != nil || !ok {
		t.Fatalf("CompleteExport = %v, %v", ok, err)
	}
	if ok, _ := st.FailExport(ctx, first.ID, "late"); ok {
		t.Fatal("terminal export mutated")
	}

	has, err := st.HasCompleteExport(ctx, book.ID, []content.ExportFormat{content.FormatPDF, content.FormatEPUB})
	if err != nil || !has {
		t.Fatalf("HasCompleteExport = %v, %v", has, err)
	}

	// Once the first export is terminal the same format may be queued again.
	if err := st.InsertExport(ctx, second); err != nil {
		t.Fatalf("re-request after completion: %v", err)
	}
	if ok, err := st.CancelExport(ctx, second.ID, "cancelled"); err != nil || !ok {
		t.Fatalf("CancelExport = %v, %v", ok, err)
	}
	got, _ := st.GetExport(ctx, second.ID)
	if got.Status != content.ExportFailed || got.ErrorMessage != "cancelled" {
		t.Fatalf("cancelled export = %+v", got)
	}

	stats, err := st.ExportStats(ctx)
	if err != nil {
		t.Fatalf("ExportStats: %v", err)
	}
	if stats[content.ExportComplete] != 1 || stats[content.ExportFailed] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestFailStaleExports(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	book := testsupport.SeedBook(t, st, "user-1")
	old := time.Now().UTC().Add(-time.Hour)

	e, _ := content.NewExport(book.ID, content.FormatEPUB, content.DefaultExportSettings(book.Settings), old)
	if err := st.InsertExport(ctx, e); err != nil {
		t.Fatalf("InsertExport: %v", err)
	}
	if _, err := st.ClaimExport(ctx, e.ID, old); err != nil {
		t.Fatalf("ClaimExport: %v", err)
	}
	n, err := st.FailStaleExports(ctx, time.Now().UTC().Add(-time.Minute), "abandoned by worker")
	if err != nil || n != 1 {
		t.Fatalf("FailStaleExports = %d, %v", n, err)
	}
	got, _ := st.GetExport(ctx, e.ID)
	if got.Status != content.ExportFailed || got.ErrorMessage != "abandoned by worker" {
		t.Fatalf("stale export = %+v", got)
	}
}

func TestLatestQualityReport(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	book := testsupport.SeedBook(t, st, "user-1")

	if report, err := st.LatestQualityReport(ctx, book.ID); err != nil || report != nil {
		t.Fatalf("empty latest = %v, %v", report, err)
	}
	base := time.Now().UTC()
	for i, score := range []float64{55, 81.5} {
		report := content.QualityReport{
			ID:           "report-" + string(rune('a'+i)),
			BookID:       book.ID,
			OverallScore: score,
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		}
		if err := st.InsertQualityReport(ctx, report); err != nil {
			t.Fatalf("InsertQualityReport: %v", err)
		}
	}
	latest, err := st.LatestQualityReport(ctx, book.ID)
	if err != nil {
		t.Fatalf("LatestQualityReport: %v", err)
	}
	if latest == nil || latest.OverallScore != 81.5 {
		t.Fatalf("latest = %+v", latest)
	}
	all, _ := st.ListQualityReports(ctx, book.ID)
	if len(all) != 2 {
		t.Fatalf("reports = %d", len(all))
	}
}
