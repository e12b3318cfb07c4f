package lifecycle

import (
	"context"
	"strings"

	"folio/internal/content"
	"folio/internal/logging"
	"folio/internal/services"
	"folio/internal/store"
)

// BookDetails carries the book fields a caller may edit directly. Nil fields
// are left unchanged.
type BookDetails struct {
	Title        *string
	Subtitle     *string
	Description  *string
	VoiceProfile *content.VoiceProfile
	Settings     *content.BookSettings
}

// CreateBook creates a book in the interview status for the caller.
func (s *Service) CreateBook(ctx context.Context, caller services.Identity, in content.BookInput) (content.Book, error) {
	if err := requireCaller(caller, "create book"); err != nil {
		return content.Book{}, err
	}
	book, err := content.NewBook(caller.UserID, in, s.clock())
	if err != nil {
		return content.Book{}, err
	}
	if err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.InsertBook(ctx, &book)
	}); err != nil {
		return content.Book{}, err
	}
	logging.WithContext(ctx, s.logger).With(logging.Args(logging.BookAttrs(book)...)...).Info(
		"book created",
		logging.String(logging.FieldEventType, "book_created"),
	)
	return book, nil
}

// GetBook returns a book owned by the caller.
func (s *Service) GetBook(ctx context.Context, caller services.Identity, bookID string) (content.Book, error) {
	return OwnedBook(ctx, s.store, caller, bookID, "get book")
}

// ListBooks returns the caller's books, newest first.
func (s *Service) ListBooks(ctx context.Context, caller services.Identity) ([]content.Book, error) {
	if err := requireCaller(caller, "list books"); err != nil {
		return nil, err
	}
	return s.store.ListBooksByUser(ctx, caller.UserID)
}

// ListChapters returns a book's chapters in order.
func (s *Service) ListChapters(ctx context.Context, caller services.Identity, bookID string) ([]content.Chapter, error) {
	if _, err := OwnedBook(ctx, s.store, caller, bookID, "list chapters"); err != nil {
		return nil, err
	}
	return s.store.ListChapters(ctx, bookID)
}

// UpdateBookDetails edits title, subtitle, description, voice profile and
// settings. Status and word counts are never caller-editable.
func (s *Service) UpdateBookDetails(ctx context.Context, caller services.Identity, bookID string, details BookDetails) (content.Book, error) {
	var book content.Book
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		book, err = OwnedBook(ctx, tx, caller, bookID, "update book")
		if err != nil {
			return err
		}
		if details.Title != nil {
			book.Title = strings.TrimSpace(*details.Title)
		}
		if details.Subtitle != nil {
			book.Subtitle = strings.TrimSpace(*details.Subtitle)
		}
		if details.Description != nil {
			book.Description = strings.TrimSpace(*details.Description)
		}
		if details.VoiceProfile != nil {
			voice := *details.VoiceProfile
			book.VoiceProfile = &voice
		}
		if details.Settings != nil {
			book.Settings = *details.Settings
		}
		if err := book.Validate(); err != nil {
			return err
		}
		book.UpdatedAt = s.clock()
		return tx.UpdateBook(ctx, &book)
	})
	if err != nil {
		return content.Book{}, err
	}
	return book, nil
}

// DeleteBook removes a book together with everything attached to it.
func (s *Service) DeleteBook(ctx context.Context, caller services.Identity, bookID string) error {
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := OwnedBook(ctx, tx, caller, bookID, "delete book"); err != nil {
			return err
		}
		return tx.DeleteBook(ctx, bookID)
	})
	if err != nil {
		return err
	}
	logging.WithContext(services.WithBookID(ctx, bookID), s.logger).Info(
		"book deleted",
		logging.String(logging.FieldEventType, "book_deleted"),
	)
	return nil
}
