package lifecycle

import (
	"context"
	"fmt"

	"folio/internal/content"
	"folio/internal/services"
	"folio/internal/store"
)

// RequestReview moves an editing book to review. Every chapter must be in
// review or complete and no required placeholder may be unresolved.
func (s *Service) RequestReview(ctx context.Context, caller services.Identity, bookID string) (content.Book, error) {
	var (
		book   content.Book
		before content.BookStatus
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		book, err = OwnedBook(ctx, tx, caller, bookID, "request review")
		if err != nil {
			return err
		}
		before = book.Status
		chapters, err := tx.ListChapters(ctx, bookID)
		if err != nil {
			return err
		}
		if err := services.Precondition("editing to review", reviewConditions(book, chapters)...); err != nil {
			return err
		}
		book.Status = content.BookReview
		book.UpdatedAt = s.clock()
		return tx.UpdateBook(ctx, &book)
	})
	if err != nil {
		return content.Book{}, err
	}
	s.logTransition(ctx, "request review", before, book)
	return book, nil
}

func reviewConditions(book content.Book, chapters []content.Chapter) []string {
	var conditions []string
	if book.Status != content.BookEditing {
		conditions = append(conditions, fmt.Sprintf("book is in %s, not editing", book.Status))
	}
	if len(chapters) == 0 {
		conditions = append(conditions, "book has no chapters")
	}
	for _, ch := range chapters {
		if !ch.Status.AtLeast(content.ChapterReview) {
			conditions = append(conditions, fmt.Sprintf("%s is still %s", ch.Label(), ch.Status))
		}
		for _, p := range ch.UnresolvedPlaceholders() {
			if p.Required {
				conditions = append(conditions, fmt.Sprintf("%s has an unresolved required %s placeholder %s", ch.Label(), p.Type, p.ID))
			}
		}
	}
	return conditions
}

// Publish moves a book in review to published. It needs a quality report
// above the threshold that is newer than the last content change, and a
// complete export in a distributable format.
func (s *Service) Publish(ctx context.Context, caller services.Identity, bookID string) (content.Book, error) {
	var (
		book   content.Book
		before content.BookStatus
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		book, err = OwnedBook(ctx, tx, caller, bookID, "publish")
		if err != nil {
			return err
		}
		before = book.Status
		var conditions []string
		if book.Status != content.BookReview {
			conditions = append(conditions, fmt.Sprintf("book is in %s, not review", book.Status))
		}

		report, err := tx.LatestQualityReport(ctx, bookID)
		if err != nil {
			return err
		}
		switch {
		case report == nil:
			conditions = append(conditions, "no quality report exists")
		default:
			if report.OverallScore <= s.policy.PublishQualityThreshold {
				conditions = append(conditions, fmt.Sprintf("latest quality score %.2f does not exceed %.2f",
					report.OverallScore, s.policy.PublishQualityThreshold))
			}
			if !report.CreatedAt.After(book.ContentUpdatedAt) {
				conditions = append(conditions, "latest quality report predates the most recent content change")
			}
		}

		exported, err := tx.HasCompleteExport(ctx, bookID, distributableFormats())
		if err != nil {
			return err
		}
		if !exported {
			conditions = append(conditions, "no complete export in a distributable format")
		}

		if err := services.Precondition("review to published", conditions...); err != nil {
			return err
		}
		book.Status = content.BookPublished
		book.UpdatedAt = s.clock()
		return tx.UpdateBook(ctx, &book)
	})
	if err != nil {
		return content.Book{}, err
	}
	s.logTransition(ctx, "publish", before, book)
	return book, nil
}

func distributableFormats() []content.ExportFormat {
	var formats []content.ExportFormat
	for _, f := range content.AllExportFormats() {
		if f.Distributable() {
			formats = append(formats, f)
		}
	}
	return formats
}
