package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"folio/internal/content"
)

const citationColumns = "id, book_id, source_type, title, authors, url, publication_date, accessed_date, credibility_score, raw_data, created_at"

func scanCitation(scanner rowScanner) (content.Citation, error) {
	var (
		c          content.Citation
		sourceType string
		authors    sql.NullString
		url        sql.NullString
		published  sql.NullString
		accessed   string
		raw        []byte
		created    string
	)
	if err := scanner.Scan(&c.ID, &c.BookID, &sourceType, &c.Title, &authors, &url, &published, &accessed, &c.CredibilityScore, &raw, &created); err != nil {
		return content.Citation{}, err
	}
	c.SourceType = content.SourceType(sourceType)
	c.URL = url.String
	c.PublicationDate = published.String
	c.Authors = []content.Author{}
	if err := unmarshalJSON(authors, &c.Authors); err != nil {
		return content.Citation{}, fmt.Errorf("citation %s authors: %w", c.ID, err)
	}
	c.RawData = append([]byte(nil), raw...)
	var err error
	if c.AccessedDate, err = parseTimeString(accessed); err != nil {
		return content.Citation{}, err
	}
	if c.CreatedAt, err = parseTimeString(created); err != nil {
		return content.Citation{}, err
	}
	return c, nil
}

// InsertCitation persists a citation. raw_data is stored as a BLOB so the
// bytes round-trip unchanged.
func (q queries) InsertCitation(ctx context.Context, c content.Citation) error {
	authors := c.Authors
	if authors == nil {
		authors = []content.Author{}
	}
	encoded, err := marshalJSON(authors)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO citations (`+citationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.BookID,
		string(c.SourceType),
		c.Title,
		encoded,
		nullableString(c.URL),
		nullableString(c.PublicationDate),
		formatTime(c.AccessedDate),
		c.CredibilityScore,
		[]byte(c.RawData),
		formatTime(c.CreatedAt),
	)
	return translate(err, "insert citation", nil)
}

// GetCitation fetches a citation by id.
func (q queries) GetCitation(ctx context.Context, id string) (content.Citation, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+citationColumns+` FROM citations WHERE id = ?`, id)
	c, err := scanCitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Citation{}, notFound("citation", id)
	}
	if err != nil {
		return content.Citation{}, fmt.Errorf("get citation: %w", err)
	}
	return c, nil
}

// ListCitations returns a book's citations in creation order.
func (q queries) ListCitations(ctx context.Context, bookID string) ([]content.Citation, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+citationColumns+` FROM citations WHERE book_id = ? ORDER BY created_at, id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list citations: %w", err)
	}
	defer rows.Close()

	var citations []content.Citation
	for rows.Next() {
		c, err := scanCitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan citation: %w", err)
		}
		citations = append(citations, c)
	}
	return citations, rows.Err()
}

const mediaColumns = "id, book_id, chapter_id, asset_type, source, url, alt_text, caption, metadata, created_at"

func scanMediaAsset(scanner rowScanner) (content.MediaAsset, error) {
	var (
		a         content.MediaAsset
		chapterID sql.NullString
		assetType string
		source    string
		caption   sql.NullString
		metadata  sql.NullString
		created   string
	)
	if err := scanner.Scan(&a.ID, &a.BookID, &chapterID, &assetType, &source, &a.URL, &a.AltText, &caption, &metadata, &created); err != nil {
		return content.MediaAsset{}, err
	}
	a.ChapterID = chapterID.String
	a.AssetType = content.AssetType(assetType)
	a.Source = content.MediaSource(source)
	a.Caption = caption.String
	if err := unmarshalJSON(metadata, &a.Metadata); err != nil {
		return content.MediaAsset{}, fmt.Errorf("media asset %s metadata: %w", a.ID, err)
	}
	var err error
	if a.CreatedAt, err = parseTimeString(created); err != nil {
		return content.MediaAsset{}, err
	}
	return a, nil
}

// InsertMediaAsset persists an asset.
func (q queries) InsertMediaAsset(ctx context.Context, a content.MediaAsset) error {
	metadata, err := marshalJSON(a.Metadata)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO media_assets (`+mediaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.BookID,
		nullableString(a.ChapterID),
		string(a.AssetType),
		string(a.Source),
		a.URL,
		a.AltText,
		nullableString(a.Caption),
		metadata,
		formatTime(a.CreatedAt),
	)
	return translate(err, "insert media asset", nil)
}

// GetMediaAsset fetches an asset by id.
func (q queries) GetMediaAsset(ctx context.Context, id string) (content.MediaAsset, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media_assets WHERE id = ?`, id)
	a, err := scanMediaAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return content.MediaAsset{}, notFound("media asset", id)
	}
	if err != nil {
		return content.MediaAsset{}, fmt.Errorf("get media asset: %w", err)
	}
	return a, nil
}

// ListMediaAssets returns a book's assets in creation order.
func (q queries) ListMediaAssets(ctx context.Context, bookID string) ([]content.MediaAsset, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+mediaColumns+` FROM media_assets WHERE book_id = ? ORDER BY created_at, id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list media assets: %w", err)
	}
	defer rows.Close()

	var assets []content.MediaAsset
	for rows.Next() {
		a, err := scanMediaAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// UpdateMediaCaption changes an asset's caption, the only mutable field.
func (q queries) UpdateMediaCaption(ctx context.Context, id, caption string) error {
	res, err := q.db.ExecContext(ctx, `UPDATE media_assets SET caption = ? WHERE id = ?`, nullableString(caption), id)
	if err != nil {
		return fmt.Errorf("update media caption: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("media asset", id)
	}
	return nil
}
