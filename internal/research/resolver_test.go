package research_test

import (
	"context"
	"errors"
	"testing"

	"folio/internal/content"
	"folio/internal/logging"
	"folio/internal/research"
	"folio/internal/services"
	"folio/internal/store"
	"folio/internal/testsupport"
)

var owner = services.Identity{UserID: "author-1"}

type stubMedia struct {
	candidates []services.MediaCandidate
	err        error
	queries    []services.MediaQuery
}

func (s *stubMedia) SearchMedia(_ context.Context, q services.MediaQuery) ([]services.MediaCandidate, error) {
	s.queries = append(s.queries, q)
	return s.candidates, s.err
}

type stubSources struct {
	candidates []services.SourceCandidate
	err        error
}

func (s stubSources) SearchSources(context.Context, string) ([]services.SourceCandidate, error) {
	return s.candidates, s.err
}

func seedChapterWithPlaceholders(t *testing.T, st *store.Store, bookID string, placeholders ...content.MediaPlaceholder) content.Chapter {
	t.Helper()
	ch := testsupport.SeedChapter(t, st, bookID, "Harbour", content.ChapterDraft, "<p>Boats return at dusk.</p>")
	ch.MediaPlaceholders = placeholders
	if err := st.UpdateChapter(context.Background(), ch); err != nil {
		t.Fatalf("UpdateChapter: %v", err)
	}
	return ch
}

func mustPlaceholder(t *testing.T, kind content.PlaceholderType, description string) content.MediaPlaceholder {
	t.Helper()
	p, err := content.NewPlaceholder(kind, description, 0, true)
	if err != nil {
		t.Fatalf("NewPlaceholder: %v", err)
	}
	return p
}

func TestResolvePlaceholdersPrefersAltText(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	book := testsupport.SeedBook(t, st, owner.UserID, testsupport.WithStatus(content.BookWriting))
	image := mustPlaceholder(t, content.PlaceholderImage, "fishing boats at dusk")
	video := mustPlaceholder(t, content.PlaceholderVideo, "harbour timelapse")
	ch := seedChapterWithPlaceholders(t, st, book.ID, image, video)

	media := &stubMedia{candidates: []services.MediaCandidate{
		{Type: "audio", Source: "pixabay", URL: "https://cdn.example/a.mp3", AltText: "gulls"},
		{Type: "image", Source: "pexels", URL: ""},
		{Type: "image", Source: "pexels", URL: "https://cdn.example/plain.jpg"},
		{Type: "image", Source: "unsplash", URL: "https://cdn.example/boats.jpg", AltText: "Boats moored at dusk", Width: 800},
	}}
	resolver := research.NewResolver(st, media, nil, cfg.Research, logging.NewNop())

	n, err := resolver.ResolvePlaceholders(context.Background(), owner, ch.ID)
	if err != nil {
		t.Fatalf("ResolvePlaceholders: %v", err)
	}
	if n != 1 {
		t.Fatalf("resolved = %d, want 1 (no video candidate)", n)
	}
	if len(media.queries) != 2 || media.queries[0].Query != "fishing boats at dusk" || media.queries[0].Limit != cfg.Research.MediaResults {
		t.Fatalf("queries = %+v", media.queries)
	}

	got, err := st.GetChapter(context.Background(), ch.ID)
	if err != nil {
		t.Fatalf("GetChapter: %v", err)
	}
	p, _ := got.Placeholder(image.ID)
	if !p.Resolved || p.AssetID == "" {
		t.Fatalf("image placeholder = %+v", p)
	}
	if v, _ := got.Placeholder(video.ID); v.Resolved {
		t.Fatal("video placeholder should stay unresolved")
	}
	asset, err := st.GetMediaAsset(context.Background(), p.AssetID)
	if err != nil {
		t.Fatalf("GetMediaAsset: %v", err)
	}
	if asset.URL != "https://cdn.example/boats.jpg" || asset.AltText != "Boats moored at dusk" || asset.ChapterID != ch.ID {
		t.Fatalf("asset = %+v", asset)
	}
	if asset.Metadata.Width != 800 {
		t.Fatalf("metadata = %+v", asset.Metadata)
	}
}

func TestResolvePlaceholdersFallsBackToDescriptionAlt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	book := testsupport.SeedBook(t, st, owner.UserID)
	chart := mustPlaceholder(t, content.PlaceholderChart, "tide heights by month")
	ch := seedChapterWithPlaceholders(t, st, book.ID, chart)

	media := &stubMedia{candidates: []services.MediaCandidate{{Type: "image", Source: "generated", URL: "https://cdn.example/chart.png"}}}
	resolver := research.NewResolver(st, media, nil, cfg.Research, logging.NewNop())
	if _, err := resolver.ResolvePlaceholders(context.Background(), owner, ch.ID); err != nil {
		t.Fatalf("ResolvePlaceholders: %v", err)
	}
	assets, err := st.ListMediaAssets(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("ListMediaAssets: %v", err)
	}
	if len(assets) != 1 || assets[0].AltText != "tide heights by month" {
		t.Fatalf("assets = %+v", assets)
	}
}

func TestResolvePlaceholdersProviderDown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	book := testsupport.SeedBook(t, st, owner.UserID)
	ch := seedChapterWithPlaceholders(t, st, book.ID, mustPlaceholder(t, content.PlaceholderImage, "lighthouse"))

	resolver := research.NewResolver(st, &stubMedia{err: errors.New("quota exceeded")}, nil, cfg.Research, logging.NewNop())
	_, err := resolver.ResolvePlaceholders(context.Background(), owner, ch.ID)
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}

	_, err = resolver.ResolvePlaceholders(context.Background(), services.Identity{UserID: "intruder"}, ch.ID)
	if !errors.Is(err, services.ErrOwnershipMismatch) {
		t.Fatalf("err = %v, want ownership mismatch", err)
	}
}

func TestResearchTopicFiltersAndDeduplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMinCredibility(0.5))
	cfg.Research.MaxCandidates = 2
	st := testsupport.MustOpenStore(t, cfg)
	book := testsupport.SeedBook(t, st, owner.UserID)
	ctx := context.Background()

	existing, err := content.NewCitation(book.ID, content.CitationInput{Title: "Old", URL: "https://example.org/known"}, book.CreatedAt)
	if err != nil {
		t.Fatalf("NewCitation: %v", err)
	}
	if err := st.InsertCitation(ctx, existing); err != nil {
		t.Fatalf("InsertCitation: %v", err)
	}

	raw := []byte(`{"abstract": "Tides",  "id": 7}`)
	sources := stubSources{candidates: []services.SourceCandidate{
		{Title: "Weak", URL: "https://example.org/weak", CredibilityScore: 0.2},
		{Title: "Known", URL: "https://EXAMPLE.org/known/", CredibilityScore: 0.9},
		{Title: "Tide Atlas", SourceType: "book", URL: "https://example.org/atlas", CredibilityScore: 1.7, RawData: raw,
			Authors: []services.SourceAuthor{{FirstName: "Ada", LastName: "Marsh"}}},
		{Title: "Atlas again", URL: "https://example.org/atlas", CredibilityScore: 0.8},
		{Title: "Moon Pull", SourceType: "podcast-ish", URL: "https://example.org/moon", CredibilityScore: 0.6},
		{Title: "Over cap", URL: "https://example.org/cap", CredibilityScore: 0.9},
	}}
	resolver := research.NewResolver(st, nil, sources, cfg.Research, logging.NewNop())

	stored, err := resolver.ResearchTopic(ctx, owner, book.ID, "tides")
	if err != nil {
		t.Fatalf("ResearchTopic: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored = %d, want 2", len(stored))
	}
	atlas, moon := stored[0], stored[1]
	if atlas.Title != "Tide Atlas" || atlas.CredibilityScore != 1 || atlas.SourceType != content.SourceBook {
		t.Fatalf("atlas = %+v", atlas)
	}
	if moon.SourceType != content.SourceOther {
		t.Fatalf("unknown source type should map to other: %+v", moon)
	}

	got, err := st.GetCitation(ctx, atlas.ID)
	if err != nil {
		t.Fatalf("GetCitation: %v", err)
	}
	if string(got.RawData) != string(raw) {
		t.Fatalf("raw data = %s, want verbatim %s", got.RawData, raw)
	}
	if len(got.Authors) != 1 || got.Authors[0].LastName != "Marsh" {
		t.Fatalf("authors = %+v", got.Authors)
	}

	if _, err := resolver.ResearchTopic(ctx, owner, book.ID, "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("blank topic err = %v", err)
	}
}

func TestUpdateCaption(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	book := testsupport.SeedBook(t, st, owner.UserID)
	asset, err := content.NewMediaAsset(book.ID, content.MediaAssetInput{
		AssetType: content.AssetImage,
		Source:    content.MediaUpload,
		URL:       "https://cdn.example/cover.jpg",
		AltText:   "Cover",
	}, book.CreatedAt)
	if err != nil {
		t.Fatalf("NewMediaAsset: %v", err)
	}
	if err := st.InsertMediaAsset(context.Background(), asset); err != nil {
		t.Fatalf("InsertMediaAsset: %v", err)
	}
	resolver := research.NewResolver(st, nil, nil, cfg.Research, logging.NewNop())

	updated, err := resolver.UpdateCaption(context.Background(), owner, asset.ID, "  Harbour at first light ")
	if err != nil {
		t.Fatalf("UpdateCaption: %v", err)
	}
	if updated.Caption != "Harbour at first light" || updated.URL != asset.URL {
		t.Fatalf("updated = %+v", updated)
	}
	if _, err := resolver.UpdateCaption(context.Background(), services.Identity{UserID: "intruder"}, asset.ID, "x"); !errors.Is(err, services.ErrOwnershipMismatch) {
		t.Fatalf("err = %v, want ownership mismatch", err)
	}
	if _, err := resolver.UpdateCaption(context.Background(), owner, "missing", "x"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCatalogSearch(t *testing.T) {
	catalog, err := research.ParseCatalog([]byte(`{
	  "media": [
	    {"type": "image", "source": "pexels", "url": "https://cdn.example/boats.jpg", "alt_text": "Fishing boats", "tags": ["harbour"]},
	    {"type": "video", "source": "pexels", "url": "https://cdn.example/boats.mp4", "alt_text": "Fishing boats leaving"}
	  ],
	  "sources": [
	    {"title": "Tide Atlas", "source_type": "book", "url": "https://example.org/atlas", "credibility_score": 0.9, "topics": ["tides"]},
	    {"title": "Bird Calls", "url": "https://example.org/birds", "credibility_score": 0.9}
	  ]
	}`))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	media, err := catalog.SearchMedia(context.Background(), services.MediaQuery{Query: "boats in the harbour", Type: "image"})
	if err != nil {
		t.Fatalf("SearchMedia: %v", err)
	}
	if len(media) != 1 || media[0].URL != "https://cdn.example/boats.jpg" {
		t.Fatalf("media = %+v", media)
	}

	sources, err := catalog.SearchSources(context.Background(), "tides")
	if err != nil {
		t.Fatalf("SearchSources: %v", err)
	}
	if len(sources) != 1 || sources[0].Title != "Tide Atlas" {
		t.Fatalf("sources = %+v", sources)
	}
	if len(sources[0].RawData) == 0 {
		t.Fatal("expected raw payload to be kept")
	}
}
