package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"folio/internal/content"
	"folio/internal/services"
)

const sectionColumns = "id, chapter_id, title, order_index, content, word_count, created_at"

func scanSection(scanner rowScanner) (content.Section, error) {
	var (
		sec     content.Section
		created string
	)
	if err := scanner.Scan(&sec.ID, &sec.ChapterID, &sec.Title, &sec.OrderIndex, &sec.Content, &sec.WordCount, &created); err != nil {
		return content.Section{}, err
	}
	var err error
	if sec.CreatedAt, err = parseTimeString(created); err != nil {
		return content.Section{}, err
	}
	return sec, nil
}

// InsertSection persists a section.
func (q queries) InsertSection(ctx context.Context, sec content.Section) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO sections (`+sectionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sec.ID, sec.ChapterID, sec.Title, sec.OrderIndex, sec.Content, sec.WordCount, formatTime(sec.CreatedAt),
	)
	if err != nil && isUniqueViolation(err) {
		return services.Wrap(services.ErrConflictingOrder, "store", "insert section",
			fmt.Sprintf("order_index %d is already used in chapter %s", sec.OrderIndex, sec.ChapterID), err)
	}
	return translate(err, "insert section", nil)
}

// GetSection fetches a section by id.
func (q queries) GetSection(ctx context.Context, id string) (content.Section, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+sectionColumns+` FROM sections WHERE id = ?`, id)
	sec, err := scanSection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Section{}, notFound("section", id)
	}
	if err != nil {
		return content.Section{}, fmt.Errorf("get section: %w", err)
	}
	return sec, nil
}

// ListSections returns a chapter's sections in order.
func (q queries) ListSections(ctx context.Context, chapterID string) ([]content.Section, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+sectionColumns+` FROM sections WHERE chapter_id = ? ORDER BY order_index`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()
	return collectSections(rows)
}

// ListBookSections returns every section of a book keyed by chapter id, each
// slice in order.
func (q queries) ListBookSections(ctx context.Context, bookID string) (map[string][]content.Section, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT s.id, s.chapter_id, s.title, s.order_index, s.content, s.word_count, s.created_at
		FROM sections s JOIN chapters c ON c.id = s.chapter_id
		WHERE c.book_id = ? ORDER BY c.order_index, s.order_index`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list book sections: %w", err)
	}
	defer rows.Close()
	sections, err := collectSections(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]content.Section)
	for _, sec := range sections {
		out[sec.ChapterID] = append(out[sec.ChapterID], sec)
	}
	return out, nil
}

func collectSections(rows *sql.Rows) ([]content.Section, error) {
	var sections []content.Section
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// UpdateSection writes a section's title, content and word count.
func (q queries) UpdateSection(ctx context.Context, sec content.Section) error {
	res, err := q.db.ExecContext(ctx, `UPDATE sections SET title = ?, content = ?, word_count = ? WHERE id = ?`,
		sec.Title, sec.Content, sec.WordCount, sec.ID)
	if err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("section", sec.ID)
	}
	return nil
}

// DeleteSection removes a section.
func (q queries) DeleteSection(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("section", id)
	}
	return nil
}

// RewriteSectionOrder assigns order_index = position within a chapter.
func (q queries) RewriteSectionOrder(ctx context.Context, chapterID string, orderedIDs []string) error {
	return q.rewriteOrder(ctx, "sections", "chapter_id", chapterID, orderedIDs)
}
