package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"folio/internal/content"
	"folio/internal/services"
	"folio/internal/store"
)

// ListSections returns a chapter's sections in order.
func (s *Service) ListSections(ctx context.Context, caller services.Identity, chapterID string) ([]content.Section, error) {
	if _, _, err := OwnedChapter(ctx, s.store, caller, chapterID, "list sections"); err != nil {
		return nil, err
	}
	return s.store.ListSections(ctx, chapterID)
}

// AddSection inserts a section into a chapter at position (or Append).
func (s *Service) AddSection(ctx context.Context, caller services.Identity, chapterID, title, body string, position int) (content.Section, error) {
	var (
		sec    content.Section
		book   content.Book
		before content.BookStatus
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		ch, b, err := OwnedChapter(ctx, tx, caller, chapterID, "add section")
		if err != nil {
			return err
		}
		book, before = b, b.Status
		existing, err := tx.ListSections(ctx, chapterID)
		if err != nil {
			return err
		}
		if position == Append {
			position = len(existing)
		}
		if position < 0 || position > len(existing) {
			return services.Wrap(services.ErrValidation, component, "add section",
				fmt.Sprintf("position %d is outside 0..%d", position, len(existing)), nil)
		}
		sec, err = content.NewSection(chapterID, title, body, s.clock())
		if err != nil {
			return err
		}
		sec.OrderIndex = len(existing)
		if err := tx.InsertSection(ctx, sec); err != nil {
			return err
		}
		if position < len(existing) {
			ids := make([]string, 0, len(existing)+1)
			for _, other := range existing[:position] {
				ids = append(ids, other.ID)
			}
			ids = append(ids, sec.ID)
			for _, other := range existing[position:] {
				ids = append(ids, other.ID)
			}
			if err := tx.RewriteSectionOrder(ctx, chapterID, ids); err != nil {
				return err
			}
			sec.OrderIndex = position
		}
		return s.syncChapter(ctx, tx, &ch, &book)
	})
	if err != nil {
		return content.Section{}, err
	}
	s.logTransition(ctx, "add section", before, book)
	return sec, nil
}

// UpdateSectionContent replaces a section's text and, when title is not
// blank, its title.
func (s *Service) UpdateSectionContent(ctx context.Context, caller services.Identity, sectionID, title, body string) (content.Section, error) {
	var (
		sec    content.Section
		book   content.Book
		before content.BookStatus
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		sec, err = tx.GetSection(ctx, sectionID)
		if err != nil {
			return err
		}
		ch, b, err := OwnedChapter(ctx, tx, caller, sec.ChapterID, "update section")
		if err != nil {
			return err
		}
		book, before = b, b.Status
		if t := strings.TrimSpace(title); t != "" {
			sec.Title = t
		}
		sec.Content = body
		sec.WordCount = content.CountWords(body)
		if err := tx.UpdateSection(ctx, sec); err != nil {
			return err
		}
		return s.syncChapter(ctx, tx, &ch, &book)
	})
	if err != nil {
		return content.Section{}, err
	}
	s.logTransition(ctx, "update section", before, book)
	return sec, nil
}

// RemoveSection deletes a section and closes the gap in its chapter.
func (s *Service) RemoveSection(ctx context.Context, caller services.Identity, sectionID string) error {
	return s.store.WithTx(ctx, func(tx *store.Tx) error {
		sec, err := tx.GetSection(ctx, sectionID)
		if err != nil {
			return err
		}
		ch, book, err := OwnedChapter(ctx, tx, caller, sec.ChapterID, "remove section")
		if err != nil {
			return err
		}
		if err := tx.DeleteSection(ctx, sectionID); err != nil {
			return err
		}
		remaining, err := tx.ListSections(ctx, ch.ID)
		if err != nil {
			return err
		}
		ids := make([]string, len(remaining))
		for i, other := range remaining {
			ids[i] = other.ID
		}
		if err := tx.RewriteSectionOrder(ctx, ch.ID, ids); err != nil {
			return err
		}
		return s.syncChapter(ctx, tx, &ch, &book)
	})
}

// syncChapter recounts a chapter after a section change and refreshes the book.
func (s *Service) syncChapter(ctx context.Context, tx *store.Tx, ch *content.Chapter, book *content.Book) error {
	if err := recountChapter(ctx, tx, ch); err != nil {
		return err
	}
	autoDraft(ch, *book)
	ch.UpdatedAt = s.clock()
	if err := tx.UpdateChapter(ctx, *ch); err != nil {
		return err
	}
	return s.Refresh(ctx, tx, book, true)
}
