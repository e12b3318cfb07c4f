package testsupport

import (
	"context"
	"testing"
	"time"

	"folio/internal/config"
	"folio/internal/content"
	"folio/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// BookOption adjusts a seeded book before it is inserted.
type BookOption func(*content.Book)

// WithStatus seeds the book at status.
func WithStatus(status content.BookStatus) BookOption {
	return func(b *content.Book) {
		b.Status = status
	}
}

// WithTarget sets the book's target word count.
func WithTarget(words int) BookOption {
	return func(b *content.Book) {
		b.TargetWordCount = words
	}
}

// WithSettings replaces the book settings.
func WithSettings(settings content.BookSettings) BookOption {
	return func(b *content.Book) {
		b.Settings = settings
	}
}

// SeedBook inserts a book owned by userID.
func SeedBook(t testing.TB, st *store.Store, userID string, opts ...BookOption) content.Book {
	t.Helper()

	book, err := content.NewBook(userID, content.BookInput{Title: "Field Notes"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewBook: %v", err)
	}
	for _, opt := range opts {
		opt(&book)
	}
	if err := st.InsertBook(context.Background(), &book); err != nil {
		t.Fatalf("InsertBook: %v", err)
	}
	return book
}

// SeedChapter appends a chapter with the given status and content to the
// book and refreshes the book's word count aggregate.
func SeedChapter(t testing.TB, st *store.Store, bookID, title string, status content.ChapterStatus, text string) content.Chapter {
	t.Helper()
	ctx := context.Background()

	existing, err := st.ListChapters(ctx, bookID)
	if err != nil {
		t.Fatalf("ListChapters: %v", err)
	}
	ch, err := content.NewChapter(bookID, content.ChapterInput{Title: title, Content: text}, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewChapter: %v", err)
	}
	ch.OrderIndex = len(existing)
	ch.Status = status
	ch.WordCount = content.CountWords(text)
	if err := st.InsertChapter(ctx, ch); err != nil {
		t.Fatalf("InsertChapter: %v", err)
	}

	book, err := st.GetBook(ctx, bookID)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	total, err := st.SumWordCounts(ctx, bookID)
	if err != nil {
		t.Fatalf("SumWordCounts: %v", err)
	}
	book.CurrentWordCount = total
	if err := st.UpdateBook(ctx, &book); err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	return ch
}
