package research

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"folio/internal/config"
	"folio/internal/content"
	"folio/internal/lifecycle"
	"folio/internal/logging"
	"folio/internal/services"
	"folio/internal/store"
)

const component = "research"

// Resolver resolves placeholders and researches citations for books.
type Resolver struct {
	store     *store.Store
	media     services.MediaSearcher
	citations services.CitationSearcher
	cfg       config.Research
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures optional Resolver behavior.
type Option func(*Resolver)

// WithClock overrides the time source used for new records.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver constructs a Resolver. Either searcher may be nil, in which
// case the matching operation reports the collaborator as unavailable.
func NewResolver(st *store.Store, media services.MediaSearcher, citations services.CitationSearcher, cfg config.Research, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		store:     st,
		media:     media,
		citations: citations,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, component),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) clock() time.Time {
	return r.now().UTC()
}

// ResolvePlaceholders searches media for every unresolved placeholder of the
// chapter and attaches the chosen assets. It returns how many placeholders
// were resolved.
func (r *Resolver) ResolvePlaceholders(ctx context.Context, caller services.Identity, chapterID string) (int, error) {
	const op = "resolve placeholders"
	if r.media == nil {
		return 0, services.Wrap(services.ErrUnavailable, component, op, "no media collaborator configured", nil)
	}
	ch, book, err := lifecycle.OwnedChapter(ctx, r.store, caller, chapterID, op)
	if err != nil {
		return 0, err
	}
	ctx = services.WithBookID(ctx, book.ID)
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldChapterID, ch.ID))

	pending := ch.UnresolvedPlaceholders()
	if len(pending) == 0 {
		return 0, nil
	}

	chosen := make(map[string]services.MediaCandidate, len(pending))
	failures := 0
	var lastErr error
	for _, p := range pending {
		candidates, err := r.media.SearchMedia(ctx, services.MediaQuery{
			Query: p.Description,
			Type:  string(p.Type),
			Limit: r.cfg.MediaResults,
		})
		if err != nil {
			failures++
			lastErr = err
			logger.Warn(
				"media search failed",
				logging.String(logging.FieldEventType, "media_search_failed"),
				logging.String("placeholder_id", p.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "placeholder left unresolved"),
			)
			continue
		}
		if c, ok := pickCandidate(p.Type, candidates); ok {
			chosen[p.ID] = c
		}
	}
	if len(chosen) == 0 {
		if failures > 0 {
			return 0, services.Wrap(services.ErrUnavailable, component, op, "media search failed", lastErr)
		}
		return 0, nil
	}

	resolved := 0
	err = r.store.WithTx(ctx, func(tx *store.Tx) error {
		current, err := tx.GetChapter(ctx, chapterID)
		if err != nil {
			return err
		}
		now := r.clock()
		for i := range current.MediaPlaceholders {
			p := &current.MediaPlaceholders[i]
			cand, ok := chosen[p.ID]
			if !ok || p.Resolved {
				continue
			}
			asset, err := newAsset(current, *p, cand, now)
			if err != nil {
				return err
			}
			if err := tx.InsertMediaAsset(ctx, asset); err != nil {
				return err
			}
			p.Resolved = true
			p.AssetID = asset.ID
			resolved++
		}
		current.UpdatedAt = now
		return tx.UpdateChapter(ctx, current)
	})
	if err != nil {
		return 0, err
	}
	logger.Info(
		"placeholders resolved",
		logging.String(logging.FieldEventType, "placeholders_resolved"),
		logging.Int("resolved", resolved),
		logging.Int("pending", len(pending)),
	)
	return resolved, nil
}

// pickCandidate returns the first type-compatible candidate with a URL,
// preferring one that carries alt text.
func pickCandidate(kind content.PlaceholderType, candidates []services.MediaCandidate) (services.MediaCandidate, bool) {
	var fallback *services.MediaCandidate
	for i := range candidates {
		c := candidates[i]
		assetType, ok := content.ParseAssetType(c.Type)
		if !ok || !assetType.Accepts(kind) || strings.TrimSpace(c.URL) == "" {
			continue
		}
		if _, ok := content.ParseMediaSource(c.Source); !ok {
			continue
		}
		if strings.TrimSpace(c.AltText) != "" {
			return c, true
		}
		if fallback == nil {
			fallback = &candidates[i]
		}
	}
	if fallback == nil {
		return services.MediaCandidate{}, false
	}
	return *fallback, true
}

func newAsset(ch content.Chapter, p content.MediaPlaceholder, c services.MediaCandidate, now time.Time) (content.MediaAsset, error) {
	assetType, _ := content.ParseAssetType(c.Type)
	source, _ := content.ParseMediaSource(c.Source)
	alt := c.AltText
	if strings.TrimSpace(alt) == "" {
		alt = p.Description
	}
	return content.NewMediaAsset(ch.BookID, content.MediaAssetInput{
		ChapterID: ch.ID,
		AssetType: assetType,
		Source:    source,
		URL:       c.URL,
		AltText:   alt,
		Caption:   c.Caption,
		Metadata: content.MediaMetadata{
			Width:       c.Width,
			Height:      c.Height,
			Duration:    c.Duration,
			FileSize:    c.FileSize,
			MimeType:    c.MimeType,
			Attribution: c.Attribution,
		},
	}, now)
}

// ResearchTopic asks the citation collaborator about topic and stores the
// credible, previously unseen sources as citations on the book.
func (r *Resolver) ResearchTopic(ctx context.Context, caller services.Identity, bookID, topic string) ([]content.Citation, error) {
	const op = "research topic"
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Wrap(services.ErrValidation, component, op, "topic is required", nil)
	}
	if r.citations == nil {
		return nil, services.Wrap(services.ErrUnavailable, component, op, "no citation collaborator configured", nil)
	}
	if _, err := lifecycle.OwnedBook(ctx, r.store, caller, bookID, op); err != nil {
		return nil, err
	}
	ctx = services.WithBookID(ctx, bookID)

	candidates, err := r.citations.SearchSources(ctx, topic)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, component, op, "citation search failed", err)
	}

	var stored []content.Citation
	err = r.store.WithTx(ctx, func(tx *store.Tx) error {
		existing, err := tx.ListCitations(ctx, bookID)
		if err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(existing))
		for _, c := range existing {
			if key := urlKey(c.URL); key != "" {
				seen[key] = struct{}{}
			}
		}
		now := r.clock()
		for _, cand := range candidates {
			if r.cfg.MaxCandidates > 0 && len(stored) >= r.cfg.MaxCandidates {
				break
			}
			credibility := clamp01(cand.CredibilityScore)
			if credibility < r.cfg.MinCredibility {
				continue
			}
			key := urlKey(cand.URL)
			if key != "" {
				if _, dup := seen[key]; dup {
					continue
				}
			}
			citation, err := content.NewCitation(bookID, citationInput(cand, credibility), now)
			if err != nil {
				return fmt.Errorf("candidate %q: %w", cand.Title, err)
			}
			if err := tx.InsertCitation(ctx, citation); err != nil {
				return err
			}
			if key != "" {
				seen[key] = struct{}{}
			}
			stored = append(stored, citation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.WithContext(ctx, r.logger).Info(
		"research topic stored",
		logging.String(logging.FieldEventType, "citations_stored"),
		logging.String("topic", topic),
		logging.Int("candidates", len(candidates)),
		logging.Int("stored", len(stored)),
	)
	return stored, nil
}

func citationInput(c services.SourceCandidate, credibility float64) content.CitationInput {
	sourceType, ok := content.ParseSourceType(c.SourceType)
	if !ok {
		sourceType = content.SourceOther
	}
	authors := make([]content.Author, 0, len(c.Authors))
	for _, a := range c.Authors {
		authors = append(authors, content.Author{FirstName: a.FirstName, LastName: a.LastName, MiddleName: a.MiddleName})
	}
	return content.CitationInput{
		SourceType:       sourceType,
		Title:            c.Title,
		Authors:          authors,
		URL:              c.URL,
		PublicationDate:  c.PublicationDate,
		CredibilityScore: credibility,
		RawData:          c.RawData,
	}
}

func urlKey(raw string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "/")
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ListCitations returns the citations stored for the caller's book.
func (r *Resolver) ListCitations(ctx context.Context, caller services.Identity, bookID string) ([]content.Citation, error) {
	if _, err := lifecycle.OwnedBook(ctx, r.store, caller, bookID, "list citations"); err != nil {
		return nil, err
	}
	return r.store.ListCitations(ctx, bookID)
}

// ListMedia returns the media assets attached to the caller's book.
func (r *Resolver) ListMedia(ctx context.Context, caller services.Identity, bookID string) ([]content.MediaAsset, error) {
	if _, err := lifecycle.OwnedBook(ctx, r.store, caller, bookID, "list media"); err != nil {
		return nil, err
	}
	return r.store.ListMediaAssets(ctx, bookID)
}

// UpdateCaption changes the caption of an asset on the caller's book. The
// caption is the only mutable asset field.
func (r *Resolver) UpdateCaption(ctx context.Context, caller services.Identity, assetID, caption string) (content.MediaAsset, error) {
	const op = "update caption"
	var asset content.MediaAsset
	err := r.store.WithTx(ctx, func(tx *store.Tx) error {
		current, err := tx.GetMediaAsset(ctx, assetID)
		if err != nil {
			return err
		}
		if _, err := lifecycle.OwnedBook(ctx, tx, caller, current.BookID, op); err != nil {
			return err
		}
		caption = strings.TrimSpace(caption)
		if err := tx.UpdateMediaCaption(ctx, assetID, caption); err != nil {
			return err
		}
		current.Caption = caption
		asset = current
		return nil
	})
	return asset, err
}
