package blueprint

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"folio/internal/content"
	"folio/internal/lifecycle"
	"folio/internal/logging"
	"folio/internal/services"
	"folio/internal/store"
)

const component = "blueprint"

// Options controls re-expansion.
type Options struct {
	// Replace discards existing outline chapters that have no words.
	Replace bool
}

// Expander turns blueprints into chapter skeletons.
type Expander struct {
	store     *store.Store
	lifecycle *lifecycle.Service
	logger    *slog.Logger
	now       func() time.Time
}

// NewExpander constructs an Expander. Status changes go through lc.
func NewExpander(st *store.Store, lc *lifecycle.Service, logger *slog.Logger) *Expander {
	return &Expander{
		store:     st,
		lifecycle: lc,
		logger:    logging.NewComponentLogger(logger, component),
		now:       time.Now,
	}
}

// Expand creates one outline chapter per chapter outline, in blueprint order,
// stores the blueprint on the book and moves the book to outline.
func (e *Expander) Expand(ctx context.Context, caller services.Identity, bookID string, bp content.BookBlueprint, opts Options) ([]content.Chapter, error) {
	if len(bp.Chapters) == 0 {
		return nil, services.Wrap(services.ErrEmptyBlueprint, component, "expand", "blueprint has no chapters", nil)
	}
	if err := bp.Validate(); err != nil {
		return nil, err
	}

	var (
		chapters []content.Chapter
		book     content.Book
		before   content.BookStatus
		replaced int
	)
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		book, err = lifecycle.OwnedBook(ctx, tx, caller, bookID, "expand blueprint")
		if err != nil {
			return err
		}
		before = book.Status

		existing, err := tx.ListChapters(ctx, bookID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			if !opts.Replace {
				return services.Wrap(services.ErrAlreadyExpanded, component, "expand",
					fmt.Sprintf("book already has %d chapters; pass replace to discard empty outlines", len(existing)), nil)
			}
			if err := discardOutlines(ctx, tx, existing); err != nil {
				return err
			}
			replaced = len(existing)
		}

		now := e.now().UTC()
		topics := assignTopics(bp.Chapters, bp.ResearchNeeds)
		chapters = make([]content.Chapter, 0, len(bp.Chapters))
		for i, outline := range bp.Chapters {
			ch, err := content.NewChapter(bookID, content.ChapterInput{
				Title:           outline.Title,
				Summary:         outline.Summary,
				TargetWordCount: outline.TargetWordCount,
				ResearchTopics:  topics[i],
				AISuggestions:   append([]content.SectionOutline(nil), outline.Sections...),
			}, now)
			if err != nil {
				return err
			}
			ch.OrderIndex = i
			if err := tx.InsertChapter(ctx, ch); err != nil {
				return err
			}
			for j, secOutline := range outline.Sections {
				sec, err := content.NewSection(ch.ID, secOutline.Title, "", now)
				if err != nil {
					return err
				}
				sec.OrderIndex = j
				if err := tx.InsertSection(ctx, sec); err != nil {
					return err
				}
			}
			chapters = append(chapters, ch)
		}

		stored := bp
		book.Blueprint = &stored
		if book.Description == "" {
			book.Description = strings.TrimSpace(bp.Description)
		}
		if book.TargetAudience == "" {
			book.TargetAudience = strings.TrimSpace(bp.TargetAudience)
		}
		lifecycle.Promote(&book, content.BookOutline)
		return e.lifecycle.Refresh(ctx, tx, &book, true)
	})
	if err != nil {
		return nil, err
	}

	logging.WithContext(services.WithBookID(ctx, bookID), e.logger).Info(
		"blueprint expanded",
		logging.String(logging.FieldEventType, "blueprint_expanded"),
		logging.Int("chapters", len(chapters)),
		logging.Int("replaced", replaced),
		logging.String("from", string(before)),
		logging.String("to", string(book.Status)),
	)
	return chapters, nil
}

// discardOutlines deletes existing chapters when none has authored content.
func discardOutlines(ctx context.Context, tx *store.Tx, existing []content.Chapter) error {
	var authored []string
	for _, ch := range existing {
		if ch.WordCount > 0 || ch.Status != content.ChapterOutline {
			authored = append(authored, ch.Label())
		}
	}
	if len(authored) > 0 {
		return services.Wrap(services.ErrNonEmptyChaptersExist, component, "expand",
			"authored chapters would be discarded: "+strings.Join(authored, ", "), nil)
	}
	for _, ch := range existing {
		if err := tx.DeleteChapter(ctx, ch.ID); err != nil {
			return err
		}
	}
	return nil
}
