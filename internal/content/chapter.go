package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Chapter is an ordered unit of a book.
type Chapter struct {
	ID                string             `json:"id"`
	BookID            string             `json:"book_id"`
	Title             string             `json:"title"`
	Summary           string             `json:"summary,omitempty"`
	OrderIndex        int                `json:"order_index"`
	Status            ChapterStatus      `json:"status"`
	Content           string             `json:"content"`
	WordCount         int                `json:"word_count"`
	TargetWordCount   int                `json:"target_word_count"`
	MediaPlaceholders []MediaPlaceholder `json:"media_placeholders"`
	ResearchTopics    []string           `json:"research_topics"`
	AISuggestions     []SectionOutline   `json:"ai_suggestions,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// ChapterInput carries caller-supplied fields for a new chapter.
type ChapterInput struct {
	Title           string
	Summary         string
	Content         string
	TargetWordCount int
	ResearchTopics  []string
	AISuggestions   []SectionOutline
}

// NewChapter builds an outline chapter for bookID. The order index is assigned
// by the caller once the chapter's position is known.
func NewChapter(bookID string, in ChapterInput, now time.Time) (Chapter, error) {
	ch := Chapter{
		ID:                uuid.NewString(),
		BookID:            strings.TrimSpace(bookID),
		Title:             strings.TrimSpace(in.Title),
		Summary:           strings.TrimSpace(in.Summary),
		Status:            ChapterOutline,
		Content:           in.Content,
		WordCount:         CountWords(in.Content),
		TargetWordCount:   in.TargetWordCount,
		MediaPlaceholders: []MediaPlaceholder{},
		AISuggestions:     in.AISuggestions,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	ch.ResearchTopics = MergeTopics(nil, in.ResearchTopics...)
	if err := ch.Validate(); err != nil {
		return Chapter{}, err
	}
	return ch, nil
}

// Validate rejects chapters with missing or out-of-range fields.
func (c Chapter) Validate() error {
	var problems []string
	if c.BookID == "" {
		problems = append(problems, "book_id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		problems = append(problems, "title is required")
	}
	if c.OrderIndex < 0 {
		problems = append(problems, "order_index must not be negative")
	}
	if _, ok := ParseChapterStatus(string(c.Status)); !ok {
		problems = append(problems, fmt.Sprintf("unknown status %q", c.Status))
	}
	if c.TargetWordCount < 0 {
		problems = append(problems, "target_word_count must not be negative")
	}
	for _, p := range c.MediaPlaceholders {
		problems = append(problems, p.problems()...)
	}
	return validationError("validate chapter", problems)
}

// UnresolvedPlaceholders returns placeholders still awaiting an asset.
func (c Chapter) UnresolvedPlaceholders() []MediaPlaceholder {
	var out []MediaPlaceholder
	for _, p := range c.MediaPlaceholders {
		if !p.Resolved {
			out = append(out, p)
		}
	}
	return out
}

// Placeholder finds a placeholder by id.
func (c Chapter) Placeholder(id string) (MediaPlaceholder, bool) {
	for _, p := range c.MediaPlaceholders {
		if p.ID == id {
			return p, true
		}
	}
	return MediaPlaceholder{}, false
}

// Label names a chapter for human-facing messages.
func (c Chapter) Label() string {
	return fmt.Sprintf("chapter %d %q", c.OrderIndex+1, c.Title)
}

// MergeTopics appends topics not already present, preserving first-seen order.
// Comparison ignores case and surrounding whitespace.
func MergeTopics(existing []string, topics ...string) []string {
	out := make([]string, 0, len(existing)+len(topics))
	seen := make(map[string]struct{}, len(existing)+len(topics))
	for _, list := range [][]string{existing, topics} {
		for _, topic := range list {
			trimmed := strings.TrimSpace(topic)
			key := strings.ToLower(trimmed)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, trimmed)
		}
	}
	return out
}

// Section is an ordered unit within a chapter.
type Section struct {
	ID         string    `json:"id"`
	ChapterID  string    `json:"chapter_id"`
	Title      string    `json:"title"`
	OrderIndex int       `json:"order_index"`
	Content    string    `json:"content"`
	WordCount  int       `json:"word_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewSection builds a section for chapterID.
func NewSection(chapterID, title, body string, now time.Time) (Section, error) {
	sec := Section{
		ID:        uuid.NewString(),
		ChapterID: strings.TrimSpace(chapterID),
		Title:     strings.TrimSpace(title),
		Content:   body,
		WordCount: CountWords(body),
		CreatedAt: now,
	}
	if err := sec.Validate(); err != nil {
		return Section{}, err
	}
	return sec, nil
}

// Validate rejects sections with missing fields.
func (s Section) Validate() error {
	var problems []string
	if s.ChapterID == "" {
		problems = append(problems, "chapter_id is required")
	}
	if strings.TrimSpace(s.Title) == "" {
		problems = append(problems, "title is required")
	}
	if s.OrderIndex < 0 {
		problems = append(problems, "order_index must not be negative")
	}
	return validationError("validate section", problems)
}

// MediaPlaceholder reserves a spot in a chapter for a media asset.
type MediaPlaceholder struct {
	ID          string          `json:"id"`
	Type        PlaceholderType `json:"type"`
	Description string          `json:"description"`
	Position    int             `json:"position"`
	Required    bool            `json:"required"`
	Resolved    bool            `json:"resolved"`
	AssetID     string          `json:"asset_id,omitempty"`
}

// NewPlaceholder builds an unresolved placeholder.
func NewPlaceholder(kind PlaceholderType, description string, position int, required bool) (MediaPlaceholder, error) {
	p := MediaPlaceholder{
		ID:          uuid.NewString(),
		Type:        kind,
		Description: strings.TrimSpace(description),
		Position:    position,
		Required:    required,
	}
	if err := p.Validate(); err != nil {
		return MediaPlaceholder{}, err
	}
	return p, nil
}

// Validate rejects malformed placeholders.
func (p MediaPlaceholder) Validate() error {
	return validationError("validate placeholder", p.problems())
}

func (p MediaPlaceholder) problems() []string {
	var problems []string
	if _, ok := ParsePlaceholderType(string(p.Type)); !ok {
		problems = append(problems, fmt.Sprintf("unknown placeholder type %q", p.Type))
	}
	if p.Description == "" {
		problems = append(problems, "placeholder description is required")
	}
	if p.Position < 0 {
		problems = append(problems, "placeholder position must not be negative")
	}
	if p.Resolved && p.AssetID == "" {
		problems = append(problems, "resolved placeholder needs an asset_id")
	}
	return problems
}
