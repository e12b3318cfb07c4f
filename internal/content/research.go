package content

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Citation is a research source attached to a book.
type Citation struct {
	ID               string          `json:"id"`
	BookID           string          `json:"book_id"`
	SourceType       SourceType      `json:"source_type"`
	Title            string          `json:"title"`
	Authors          []Author        `json:"authors"`
	URL              string          `json:"url,omitempty"`
	PublicationDate  string          `json:"publication_date,omitempty"`
	AccessedDate     time.Time       `json:"accessed_date"`
	CredibilityScore float64         `json:"credibility_score"`
	RawData          json.RawMessage `json:"raw_data"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Author names one author of a cited source.
type Author struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name,omitempty"`
}

// CitationInput carries caller-supplied fields for a new citation.
type CitationInput struct {
	SourceType       SourceType
	Title            string
	Authors          []Author
	URL              string
	PublicationDate  string
	CredibilityScore float64
	RawData          []byte
}

// NewCitation builds a citation. Raw data is kept byte for byte; an empty
// payload is stored as an empty JSON object.
func NewCitation(bookID string, in CitationInput, now time.Time) (Citation, error) {
	raw := json.RawMessage(in.RawData)
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	c := Citation{
		ID:               uuid.NewString(),
		BookID:           strings.TrimSpace(bookID),
		SourceType:       in.SourceType,
		Title:            strings.TrimSpace(in.Title),
		Authors:          in.Authors,
		URL:              strings.TrimSpace(in.URL),
		PublicationDate:  strings.TrimSpace(in.PublicationDate),
		AccessedDate:     now,
		CredibilityScore: in.CredibilityScore,
		RawData:          raw,
		CreatedAt:        now,
	}
	if c.SourceType == "" {
		c.SourceType = SourceOther
	}
	if err := c.Validate(); err != nil {
		return Citation{}, err
	}
	return c, nil
}

// Validate rejects malformed citations.
func (c Citation) Validate() error {
	var problems []string
	if c.BookID == "" {
		problems = append(problems, "book_id is required")
	}
	if c.Title == "" {
		problems = append(problems, "title is required")
	}
	if _, ok := ParseSourceType(string(c.SourceType)); !ok {
		problems = append(problems, fmt.Sprintf("unknown source_type %q", c.SourceType))
	}
	if c.CredibilityScore < 0 || c.CredibilityScore > 1 {
		problems = append(problems, "credibility_score must be within [0,1]")
	}
	if len(c.RawData) > 0 && !json.Valid(c.RawData) {
		problems = append(problems, "raw_data must be valid JSON")
	}
	return validationError("validate citation", problems)
}

// DisplayName renders "First M. Last" style names.
func (a Author) DisplayName() string {
	parts := make([]string, 0, 3)
	if a.FirstName != "" {
		parts = append(parts, a.FirstName)
	}
	if a.MiddleName != "" {
		parts = append(parts, a.MiddleName)
	}
	if a.LastName != "" {
		parts = append(parts, a.LastName)
	}
	return strings.Join(parts, " ")
}

// MediaAsset is an immutable piece of media attached to a book. Only the
// caption may change after creation.
type MediaAsset struct {
	ID        string        `json:"id"`
	BookID    string        `json:"book_id"`
	ChapterID string        `json:"chapter_id,omitempty"`
	AssetType AssetType     `json:"asset_type"`
	Source    MediaSource   `json:"source"`
	URL       string        `json:"url"`
	AltText   string        `json:"alt_text"`
	Caption   string        `json:"caption,omitempty"`
	Metadata  MediaMetadata `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

// MediaMetadata describes the asset payload.
type MediaMetadata struct {
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	FileSize    int64   `json:"file_size,omitempty"`
	MimeType    string  `json:"mime_type,omitempty"`
	Attribution string  `json:"attribution,omitempty"`
}

// MediaAssetInput carries caller-supplied fields for a new asset.
type MediaAssetInput struct {
	ChapterID string
	AssetType AssetType
	Source    MediaSource
	URL       string
	AltText   string
	Caption   string
	Metadata  MediaMetadata
}

// NewMediaAsset builds an asset for bookID.
func NewMediaAsset(bookID string, in MediaAssetInput, now time.Time) (MediaAsset, error) {
	a := MediaAsset{
		ID:        uuid.NewString(),
		BookID:    strings.TrimSpace(bookID),
		ChapterID: strings.TrimSpace(in.ChapterID),
		AssetType: in.AssetType,
		Source:    in.Source,
		URL:       strings.TrimSpace(in.URL),
		AltText:   strings.TrimSpace(in.AltText),
		Caption:   strings.TrimSpace(in.Caption),
		Metadata:  in.Metadata,
		CreatedAt: now,
	}
	if err := a.Validate(); err != nil {
		return MediaAsset{}, err
	}
	return a, nil
}

// Validate rejects malformed assets.
func (a MediaAsset) Validate() error {
	var problems []string
	if a.BookID == "" {
		problems = append(problems, "book_id is required")
	}
	if _, ok := ParseAssetType(string(a.AssetType)); !ok {
		problems = append(problems, fmt.Sprintf("unknown asset_type %q", a.AssetType))
	}
	if _, ok := ParseMediaSource(string(a.Source)); !ok {
		problems = append(problems, fmt.Sprintf("unknown source %q", a.Source))
	}
	if a.URL == "" {
		problems = append(problems, "url is required")
	}
	return validationError("validate media asset", problems)
}
