package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"folio/internal/content"
	"folio/internal/logging"
	"folio/internal/services"
	"folio/internal/store"
)

const component = "lifecycle"

// Service applies lifecycle operations against the store.
type Service struct {
	store  *store.Store
	policy Policy
	logger *slog.Logger
	now    func() time.Time
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a lifecycle service.
func NewService(st *store.Store, policy Policy, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  st,
		policy: policy,
		logger: logging.NewComponentLogger(logger, component),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the thresholds the service enforces.
func (s *Service) Policy() Policy {
	return s.policy
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// Refresh recomputes the book's word count from its chapters, applies the
// automatic cascades and writes the book with a version check. When
// contentChanged is set the book's content_updated_at moves to now.
func (s *Service) Refresh(ctx context.Context, tx *store.Tx, book *content.Book, contentChanged bool) error {
	chapters, err := tx.ListChapters(ctx, book.ID)
	if err != nil {
		return err
	}
	total := 0
	for _, ch := range chapters {
		total += ch.WordCount
	}
	now := s.clock()
	book.CurrentWordCount = total
	if contentChanged {
		book.ContentUpdatedAt = now
	}
	Promote(book, Cascade(*book, chapters, s.policy))
	book.UpdatedAt = now
	return tx.UpdateBook(ctx, book)
}

// Reader is the read surface shared by *store.Store and *store.Tx.
type Reader interface {
	GetBook(ctx context.Context, id string) (content.Book, error)
	GetChapter(ctx context.Context, id string) (content.Chapter, error)
}

// OwnedBook loads a book after checking the caller owns it.
func OwnedBook(ctx context.Context, tx Reader, caller services.Identity, bookID, operation string) (content.Book, error) {
	if err := requireCaller(caller, operation); err != nil {
		return content.Book{}, err
	}
	book, err := tx.GetBook(ctx, bookID)
	if err != nil {
		return content.Book{}, err
	}
	if err := services.RequireOwner(caller, book.UserID, component, operation); err != nil {
		return content.Book{}, err
	}
	return book, nil
}

// OwnedChapter loads a chapter and its book after checking the
// caller owns the book.
func OwnedChapter(ctx context.Context, tx Reader, caller services.Identity, chapterID, operation string) (content.Chapter, content.Book, error) {
	if err := requireCaller(caller, operation); err != nil {
		return content.Chapter{}, content.Book{}, err
	}
	ch, err := tx.GetChapter(ctx, chapterID)
	if err != nil {
		return content.Chapter{}, content.Book{}, err
	}
	book, err := OwnedBook(ctx, tx, caller, ch.BookID, operation)
	if err != nil {
		return content.Chapter{}, content.Book{}, err
	}
	return ch, book, nil
}

func requireCaller(caller services.Identity, operation string) error {
	if caller.UserID == "" {
		return services.Wrap(services.ErrUnauthorized, component, operation, "caller identity missing", nil)
	}
	return nil
}

// recountChapter recomputes a chapter's word count from its own text and its
// sections.
func recountChapter(ctx context.Context, tx *store.Tx, ch *content.Chapter) error {
	sections, err := tx.ListSections(ctx, ch.ID)
	if err != nil {
		return err
	}
	ch.WordCount = content.ChapterWordCount(*ch, sections)
	return nil
}

func (s *Service) logTransition(ctx context.Context, operation string, before content.BookStatus, book content.Book) {
	if before == book.Status {
		return
	}
	logging.WithContext(ctx, s.logger).With(logging.Args(logging.BookAttrs(book)...)...).Info(
		"book status advanced",
		logging.String(logging.FieldEventType, "book_status_changed"),
		logging.String("operation", operation),
		logging.String("from", string(before)),
	)
}
