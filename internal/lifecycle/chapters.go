package lifecycle

import (
	"context"
	"fmt"

	"folio/internal/content"
	"folio/internal/logging"
	"folio/internal/services"
	"folio/internal/store"
)

// Append places a new chapter or section after the existing ones.
const Append = -1

// GetChapter returns a chapter of a book owned by the caller.
func (s *Service) GetChapter(ctx context.Context, caller services.Identity, chapterID string) (content.Chapter, error) {
	ch, _, err := OwnedChapter(ctx, s.store, caller, chapterID, "get chapter")
	return ch, err
}

// AddChapter inserts a chapter at position (or Append). Later chapters shift
// down by one. Adding the first chapter to an interview-stage book moves it to
// outline.
func (s *Service) AddChapter(ctx context.Context, caller services.Identity, bookID string, in content.ChapterInput, position int) (content.Chapter, error) {
	var (
		ch     content.Chapter
		book   content.Book
		before content.BookStatus
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		book, err = OwnedBook(ctx, tx, caller, bookID, "add chapter")
		if err != nil {
			return err
		}
		before = book.Status
		existing, err := tx.ListChapters(ctx, bookID)
		if err != nil {
			return err
		}
		if position == Append {
			position = len(existing)
		}
		if position < 0 || position > len(existing) {
			return services.Wrap(services.ErrValidation, component, "add chapter",
				fmt.Sprintf("position %d is outside 0..%d", position, len(existing)), nil)
		}

		ch, err = content.NewChapter(bookID, in, s.clock())
		if err != nil {
			return err
		}
		ch.OrderIndex = len(existing)
		if ch.WordCount > 0 {
			ch.Status = content.ChapterDraft
		}
		// The book leaves interview before the chapter lands so the maturity
		// ceiling admits a drafted chapter.
		Promote(&book, content.BookOutline)
		if err := tx.InsertChapter(ctx, ch); err != nil {
			return err
		}
		if position < len(existing) {
			ids := make([]string, 0, len(existing)+1)
			for _, other := range existing[:position] {
				ids = append(ids, other.ID)
			}
			ids = append(ids, ch.ID)
			for _, other := range existing[position:] {
				ids = append(ids, other.ID)
			}
			if err := tx.RewriteChapterOrder(ctx, bookID, ids); err != nil {
				return err
			}
			ch.OrderIndex = position
		}
		return s.Refresh(ctx, tx, &book, true)
	})
	if err != nil {
		return content.Chapter{}, err
	}
	s.logTransition(ctx, "add chapter", before, book)
	return ch, nil
}

// RemoveChapter deletes a chapter and closes the gap in the order.
func (s *Service) RemoveChapter(ctx context.Context, caller services.Identity, chapterID string) error {
	var (
		book   content.Book
		before content.BookStatus
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		ch, b, err := OwnedChapter(ctx, tx, caller, chapterID, "remove chapter")
		if err != nil {
			return err
		}
		book, before = b, b.Status
		if err := tx.DeleteChapter(ctx, ch.ID); err != nil {
			return err
		}
		if err := compactChapters(ctx, tx, book.ID); err != nil {
			return err
		}
		return s.Refresh(ctx, tx, &book, true)
	})
	if err != nil {
		return err
	}
	s.logTransition(ctx, "remove chapter", before, book)
	return nil
}

func compactChapters(ctx context.Context, tx *store.Tx, bookID string) error {
	remaining, err := tx.ListChapters(ctx, bookID)
	if err != nil {
		return err
	}
	ids := make([]string, len(remaining))
	for i, ch := range remaining {
		ids[i] = ch.ID
	}
	return tx.RewriteChapterOrder(ctx, bookID, ids)
}

// ReorderChapters applies orderedIDs as the new chapter order. The list must
// be an exact permutation of the book's chapters.
func (s *Service) ReorderChapters(ctx context.Context, caller services.Identity, bookID string, orderedIDs []string) ([]content.Chapter, error) {
	var chapters []content.Chapter
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		book, err := OwnedBook(ctx, tx, caller, bookID, "reorder chapters")
		if err != nil {
			return err
		}
		existing, err := tx.ListChapters(ctx, bookID)
		if err != nil {
			return err
		}
		if err := checkPermutation(existing, orderedIDs); err != nil {
			return err
		}
		if err := tx.RewriteChapterOrder(ctx, bookID, orderedIDs); err != nil {
			return err
		}
		if err := s.Refresh(ctx, tx, &book, true); err != nil {
			return err
		}
		chapters, err = tx.ListChapters(ctx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chapters, nil
}

func checkPermutation(existing []content.Chapter, orderedIDs []string) error {
	known := make(map[string]struct{}, len(existing))
	for _, ch := range existing {
		known[ch.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, ok := known[id]; !ok {
			return services.Wrap(services.ErrDanglingReference, component, "reorder chapters",
				fmt.Sprintf("chapter %s does not belong to the book", id), nil)
		}
		if _, dup := seen[id]; dup {
			return services.Wrap(services.ErrConflictingOrder, component, "reorder chapters",
				fmt.Sprintf("chapter %s listed more than once", id), nil)
		}
		seen[id] = struct{}{}
	}
	if len(orderedIDs) != len(existing) {
		return services.Wrap(services.ErrValidation, component, "reorder chapters",
			fmt.Sprintf("expected %d chapter ids, got %d", len(existing), len(orderedIDs)), nil)
	}
	return nil
}

// UpdateChapterContent replaces a chapter's own text. Non-empty text moves an
// outline chapter to draft.
func (s *Service) UpdateChapterContent(ctx context.Context, caller services.Identity, chapterID, text string) (content.Chapter, error) {
	var (
		ch     content.Chapter
		book   content.Book
		before content.BookStatus
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		ch, book, err = OwnedChapter(ctx, tx, caller, chapterID, "update chapter content")
		if err != nil {
			return err
		}
		before = book.Status
		ch.Content = text
		if err := recountChapter(ctx, tx, &ch); err != nil {
			return err
		}
		autoDraft(&ch, book)
		ch.UpdatedAt = s.clock()
		if err := tx.UpdateChapter(ctx, ch); err != nil {
			return err
		}
		return s.Refresh(ctx, tx, &book, true)
	})
	if err != nil {
		return content.Chapter{}, err
	}
	s.logTransition(ctx, "update chapter content", before, book)
	return ch, nil
}

// PlaceholderInput describes a new media placeholder.
type PlaceholderInput struct {
	Type        content.PlaceholderType
	Description string
	Position    int
	Required    bool
}

// AddPlaceholder reserves a media slot in a chapter. A complete chapter
// cannot take new unresolved placeholders.
func (s *Service) AddPlaceholder(ctx context.Context, caller services.Identity, chapterID string, in PlaceholderInput) (content.MediaPlaceholder, error) {
	var placeholder content.MediaPlaceholder
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		ch, book, err := OwnedChapter(ctx, tx, caller, chapterID, "add placeholder")
		if err != nil {
			return err
		}
		if ch.Status == content.ChapterComplete {
			return services.Precondition("add placeholder", fmt.Sprintf("%s is already complete", ch.Label()))
		}
		placeholder, err = content.NewPlaceholder(in.Type, in.Description, in.Position, in.Required)
		if err != nil {
			return err
		}
		ch.MediaPlaceholders = append(ch.MediaPlaceholders, placeholder)
		ch.UpdatedAt = s.clock()
		if err := tx.UpdateChapter(ctx, ch); err != nil {
			return err
		}
		return s.Refresh(ctx, tx, &book, true)
	})
	if err != nil {
		return content.MediaPlaceholder{}, err
	}
	return placeholder, nil
}

// AdvanceChapter moves a chapter one step forward. Entering complete
// requires every placeholder resolved and enough words for the target.
func (s *Service) AdvanceChapter(ctx context.Context, caller services.Identity, chapterID string) (content.Chapter, error) {
	var (
		ch     content.Chapter
		book   content.Book
		before content.BookStatus
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		ch, book, err = OwnedChapter(ctx, tx, caller, chapterID, "advance chapter")
		if err != nil {
			return err
		}
		before = book.Status
		next, ok := ch.Status.Next()
		if !ok {
			return services.Precondition("advance chapter", fmt.Sprintf("%s is already complete", ch.Label()))
		}
		transition := fmt.Sprintf("advance chapter from %s to %s", ch.Status, next)

		var conditions []string
		if ceiling := content.MaturityCeiling(book.Status); !ceiling.AtLeast(next) {
			conditions = append(conditions, fmt.Sprintf("book is in %s; chapters may not pass %s", book.Status, ceiling))
		}
		if next == content.ChapterDraft && ch.WordCount == 0 {
			conditions = append(conditions, fmt.Sprintf("%s has no content", ch.Label()))
		}
		if next == content.ChapterComplete {
			conditions = append(conditions, ChapterCompletionProblems(ch, s.policy)...)
		}
		if err := services.Precondition(transition, conditions...); err != nil {
			return err
		}

		ch.Status = next
		ch.UpdatedAt = s.clock()
		if err := tx.UpdateChapter(ctx, ch); err != nil {
			return err
		}
		return s.Refresh(ctx, tx, &book, false)
	})
	if err != nil {
		return content.Chapter{}, err
	}
	logging.WithContext(services.WithBookID(ctx, book.ID), s.logger).With(logging.Args(logging.ChapterAttrs(ch)...)...).Info(
		"chapter advanced",
		logging.String(logging.FieldEventType, "chapter_status_changed"),
	)
	s.logTransition(ctx, "advance chapter", before, book)
	return ch, nil
}

// autoDraft moves an outline chapter with words to draft when the book's
// maturity ceiling allows it.
func autoDraft(ch *content.Chapter, book content.Book) {
	if ch.Status == content.ChapterOutline && ch.WordCount > 0 &&
		content.MaturityCeiling(book.Status).AtLeast(content.ChapterDraft) {
		ch.Status = content.ChapterDraft
	}
}
