package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"folio/internal/content"
	"folio/internal/services"
)

const bookColumns = "id, user_id, title, subtitle, description, target_audience, book_type, status, target_word_count, current_word_count, voice_profile, settings, blueprint, interview_responses, content_updated_at, version, created_at, updated_at"

func scanBook(scanner rowScanner) (content.Book, error) {
	var (
		book           content.Book
		subtitle       sql.NullString
		description    sql.NullString
		audience       sql.NullString
		bookType       string
		status         string
		voice          sql.NullString
		settings       sql.NullString
		blueprint      sql.NullString
		interview      sql.NullString
		contentUpdated string
		created        string
		updated        string
	)
	if err := scanner.Scan(
		&book.ID,
		&book.UserID,
		&book.Title,
		&subtitle,
		&description,
		&audience,
		&bookType,
		&status,
		&book.TargetWordCount,
		&book.CurrentWordCount,
		&voice,
		&settings,
		&blueprint,
		&interview,
		&contentUpdated,
		&book.Version,
		&created,
		&updated,
	); err != nil {
		return content.Book{}, err
	}
	book.Subtitle = subtitle.String
	book.Description = description.String
	book.TargetAudience = audience.String
	book.BookType = content.BookType(bookType)
	book.Status = content.BookStatus(status)

	if voice.Valid && voice.String != "" {
		book.VoiceProfile = &content.VoiceProfile{}
		if err := unmarshalJSON(voice, book.VoiceProfile); err != nil {
			return content.Book{}, fmt.Errorf("book %s voice_profile: %w", book.ID, err)
		}
	}
	if err := unmarshalJSON(settings, &book.Settings); err != nil {
		return content.Book{}, fmt.Errorf("book %s settings: %w", book.ID, err)
	}
	if blueprint.Valid && blueprint.String != "" {
		book.Blueprint = &content.BookBlueprint{}
		if err := unmarshalJSON(blueprint, book.Blueprint); err != nil {
			return content.Book{}, fmt.Errorf("book %s blueprint: %w", book.ID, err)
		}
	}
	if err := unmarshalJSON(interview, &book.InterviewResponses); err != nil {
		return content.Book{}, fmt.Errorf("book %s interview_responses: %w", book.ID, err)
	}

	var err error
	if book.ContentUpdatedAt, err = parseTimeString(contentUpdated); err != nil {
		return content.Book{}, err
	}
	if book.CreatedAt, err = parseTimeString(created); err != nil {
		return content.Book{}, err
	}
	if book.UpdatedAt, err = parseTimeString(updated); err != nil {
		return content.Book{}, err
	}
	return book, nil
}

type bookJSON struct {
	voice     any
	settings  string
	blueprint any
	interview any
}

func encodeBook(book content.Book) (bookJSON, error) {
	var out bookJSON
	var err error
	if book.VoiceProfile != nil {
		if out.voice, err = marshalJSON(book.VoiceProfile); err != nil {
			return out, err
		}
	}
	if out.settings, err = marshalJSON(book.Settings); err != nil {
		return out, err
	}
	if book.Blueprint != nil {
		if out.blueprint, err = marshalJSON(book.Blueprint); err != nil {
			return out, err
		}
	}
	if len(book.InterviewResponses) > 0 {
		if out.interview, err = marshalJSON(book.InterviewResponses); err != nil {
			return out, err
		}
	}
	return out, nil
}

// InsertBook persists a new book at version 1.
func (q queries) InsertBook(ctx context.Context, book *content.Book) error {
	encoded, err := encodeBook(*book)
	if err != nil {
		return err
	}
	book.Version = 1
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO books (`+bookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		book.UserID,
		book.Title,
		nullableString(book.Subtitle),
		nullableString(book.Description),
		nullableString(book.TargetAudience),
		string(book.BookType),
		string(book.Status),
		book.TargetWordCount,
		book.CurrentWordCount,
		encoded.voice,
		encoded.settings,
		encoded.blueprint,
		encoded.interview,
		formatTime(book.ContentUpdatedAt),
		book.Version,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
	)
	return translate(err, "insert book", nil)
}

// GetBook fetches a book by id.
func (q queries) GetBook(ctx context.Context, id string) (content.Book, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Book{}, notFound("book", id)
	}
	if err != nil {
		return content.Book{}, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// ListBooksByUser returns a user's books, newest first.
func (q queries) ListBooksByUser(ctx context.Context, userID string) ([]content.Book, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []content.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// UpdateBook writes every mutable book column if the stored version still
// matches book.Version, then bumps the version. A mismatch reports ErrStaleWrite.
func (q queries) UpdateBook(ctx context.Context, book *content.Book) error {
	encoded, err := encodeBook(*book)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `UPDATE books SET
			title = ?, subtitle = ?, description = ?, target_audience = ?, book_type = ?, status = ?,
			target_word_count = ?, current_word_count = ?, voice_profile = ?, settings = ?, blueprint = ?,
			interview_responses = ?, content_updated_at = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		book.Title,
		nullableString(book.Subtitle),
		nullableString(book.Description),
		nullableString(book.TargetAudience),
		string(book.BookType),
		string(book.Status),
		book.TargetWordCount,
		book.CurrentWordCount,
		encoded.voice,
		encoded.settings,
		encoded.blueprint,
		encoded.interview,
		formatTime(book.ContentUpdatedAt),
		formatTime(book.UpdatedAt),
		book.ID,
		book.Version,
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update book rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := q.GetBook(ctx, book.ID); getErr != nil {
			return getErr
		}
		return services.Wrap(services.ErrStaleWrite, "store", "update book",
			fmt.Sprintf("book %s changed since version %d", book.ID, book.Version), nil)
	}
	book.Version++
	return nil
}

// DeleteBook removes a book; chapters, sections, citations, media, exports and
// reports go with it through cascading foreign keys.
func (q queries) DeleteBook(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("book", id)
	}
	return nil
}

// SumWordCounts returns the total of the book's chapter word counts.
func (q queries) SumWordCounts(ctx context.Context, bookID string) (int, error) {
	var total int
	err := q.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(word_count), 0) FROM chapters WHERE book_id = ?`, bookID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum word counts: %w", err)
	}
	return total, nil
}
