package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"folio/internal/content"
	"folio/internal/services"
)

const chapterColumns = "id, book_id, title, summary, order_index, status, content, word_count, target_word_count, media_placeholders, research_topics, ai_suggestions, created_at, updated_at"

func scanChapter(scanner rowScanner) (content.Chapter, error) {
	var (
		ch           content.Chapter
		summary      sql.NullString
		status       string
		placeholders sql.NullString
		topics       sql.NullString
		suggestions  sql.NullString
		created      string
		updated      string
	)
	if err := scanner.Scan(
		&ch.ID,
		&ch.BookID,
		&ch.Title,
		&summary,
		&ch.OrderIndex,
		&status,
		&ch.Content,
		&ch.WordCount,
		&ch.TargetWordCount,
		&placeholders,
		&topics,
		&suggestions,
		&created,
		&updated,
	); err != nil {
		return content.Chapter{}, err
	}
	ch.Summary = summary.String
	ch.Status = content.ChapterStatus(status)
	ch.MediaPlaceholders = []content.MediaPlaceholder{}
	ch.ResearchTopics = []string{}
	if err := unmarshalJSON(placeholders, &ch.MediaPlaceholders); err != nil {
		return content.Chapter{}, fmt.Errorf("chapter %s media_placeholders: %w", ch.ID, err)
	}
	if err := unmarshalJSON(topics, &ch.ResearchTopics); err != nil {
		return content.Chapter{}, fmt.Errorf("chapter %s research_topics: %w", ch.ID, err)
	}
	if err := unmarshalJSON(suggestions, &ch.AISuggestions); err != nil {
		return content.Chapter{}, fmt.Errorf("chapter %s ai_suggestions: %w", ch.ID, err)
	}
	var err error
	if ch.CreatedAt, err = parseTimeString(created); err != nil {
		return content.Chapter{}, err
	}
	if ch.UpdatedAt, err = parseTimeString(updated); err != nil {
		return content.Chapter{}, err
	}
	return ch, nil
}

func encodeChapterLists(ch content.Chapter) (placeholders, topics, suggestions string, err error) {
	list := ch.MediaPlaceholders
	if list == nil {
		list = []content.MediaPlaceholder{}
	}
	if placeholders, err = marshalJSON(list); err != nil {
		return
	}
	t := ch.ResearchTopics
	if t == nil {
		t = []string{}
	}
	if topics, err = marshalJSON(t); err != nil {
		return
	}
	s := ch.AISuggestions
	if s == nil {
		s = []content.SectionOutline{}
	}
	suggestions, err = marshalJSON(s)
	return
}

// InsertChapter persists a chapter. A taken order index reports
// ErrConflictingOrder; a missing book reports ErrDanglingReference.
func (q queries) InsertChapter(ctx context.Context, ch content.Chapter) error {
	placeholders, topics, suggestions, err := encodeChapterLists(ch)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO chapters (`+chapterColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.ID,
		ch.BookID,
		ch.Title,
		nullableString(ch.Summary),
		ch.OrderIndex,
		string(ch.Status),
		ch.Content,
		ch.WordCount,
		ch.TargetWordCount,
		placeholders,
		topics,
		suggestions,
		formatTime(ch.CreatedAt),
		formatTime(ch.UpdatedAt),
	)
	if err != nil && isUniqueViolation(err) {
		return services.Wrap(services.ErrConflictingOrder, "store", "insert chapter",
			fmt.Sprintf("order_index %d is already used in book %s", ch.OrderIndex, ch.BookID), err)
	}
	return translate(err, "insert chapter", nil)
}

// GetChapter fetches a chapter by id.
func (q queries) GetChapter(ctx context.Context, id string) (content.Chapter, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+chapterColumns+` FROM chapters WHERE id = ?`, id)
	ch, err := scanChapter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Chapter{}, notFound("chapter", id)
	}
	if err != nil {
		return content.Chapter{}, fmt.Errorf("get chapter: %w", err)
	}
	return ch, nil
}

// ListChapters returns a book's chapters in order.
func (q queries) ListChapters(ctx context.Context, bookID string) ([]content.Chapter, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+chapterColumns+` FROM chapters WHERE book_id = ? ORDER BY order_index`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var chapters []content.Chapter
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

// UpdateChapter writes a chapter's mutable columns. The order index is
// managed by RewriteChapterOrder.
func (q queries) UpdateChapter(ctx context.Context, ch content.Chapter) error {
	placeholders, topics, suggestions, err := encodeChapterLists(ch)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `UPDATE chapters SET
			title = ?, summary = ?, status = ?, content = ?, word_count = ?, target_word_count = ?,
			media_placeholders = ?, research_topics = ?, ai_suggestions = ?, updated_at = ?
		WHERE id = ?`,
		ch.Title,
		nullableString(ch.Summary),
		string(ch.Status),
		ch.Content,
		ch.WordCount,
		ch.TargetWordCount,
		placeholders,
		topics,
		suggestions,
		formatTime(ch.UpdatedAt),
		ch.ID,
	)
	if err != nil {
		return fmt.Errorf("update chapter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("chapter", ch.ID)
	}
	return nil
}

// DeleteChapter removes a chapter and its sections.
func (q queries) DeleteChapter(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM chapters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("chapter", id)
	}
	return nil
}

// RewriteChapterOrder assigns order_index = position to each id. Indices are
// first parked on negative values so the unique index never sees a transient
// duplicate.
func (q queries) RewriteChapterOrder(ctx context.Context, bookID string, orderedIDs []string) error {
	return q.rewriteOrder(ctx, "chapters", "book_id", bookID, orderedIDs)
}

func (q queries) rewriteOrder(ctx context.Context, table, parentColumn, parentID string, orderedIDs []string) error {
	park := fmt.Sprintf(`UPDATE %s SET order_index = ? WHERE id = ? AND %s = ?`, table, parentColumn)
	for i, id := range orderedIDs {
		res, err := q.db.ExecContext(ctx, park, -(i + 1), id, parentID)
		if err != nil {
			return fmt.Errorf("park %s order: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return services.Wrap(services.ErrDanglingReference, "store", "rewrite order",
				fmt.Sprintf("%s %s does not belong to %s", table, id, parentID), nil)
		}
	}
	for i, id := range orderedIDs {
		if _, err := q.db.ExecContext(ctx, park, i, id, parentID); err != nil {
			return translate(err, "rewrite "+table+" order", services.ErrConflictingOrder)
		}
	}
	return nil
}
