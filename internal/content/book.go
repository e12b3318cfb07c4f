package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"folio/internal/services"
)

const (
	// DefaultTargetWordCount applies when a book is created without a target.
	DefaultTargetWordCount = 50000
	// DefaultBookType applies when a book is created without a type.
	DefaultBookType = BookTypeNonfiction
)

// Book is the root aggregate of the pipeline.
type Book struct {
	ID                 string              `json:"id"`
	UserID             string              `json:"user_id"`
	Title              string              `json:"title"`
	Subtitle           string              `json:"subtitle,omitempty"`
	Description        string              `json:"description,omitempty"`
	TargetAudience     string              `json:"target_audience,omitempty"`
	BookType           BookType            `json:"book_type"`
	Status             BookStatus          `json:"status"`
	TargetWordCount    int                 `json:"target_word_count"`
	CurrentWordCount   int                 `json:"current_word_count"`
	VoiceProfile       *VoiceProfile       `json:"voice_profile,omitempty"`
	Settings           BookSettings        `json:"settings"`
	Blueprint          *BookBlueprint      `json:"blueprint,omitempty"`
	InterviewResponses []InterviewResponse `json:"interview_responses,omitempty"`
	ContentUpdatedAt   time.Time           `json:"content_updated_at"`
	Version            int64               `json:"version"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// VoiceProfile describes the authorial voice.
type VoiceProfile struct {
	Tone            Tone            `json:"tone"`
	Style           []string        `json:"style"`
	VocabularyLevel VocabularyLevel `json:"vocabulary_level"`
	SampleText      string          `json:"sample_text,omitempty"`
}

// BookSettings controls presentation of exports.
type BookSettings struct {
	CitationStyle    CitationStyle `json:"citation_style"`
	IncludeTOC       bool          `json:"include_toc"`
	IncludeIndex     bool          `json:"include_index"`
	ChapterNumbering bool          `json:"chapter_numbering"`
	IncludeImages    bool          `json:"include_images"`
	IncludeAudio     bool          `json:"include_audio"`
}

// DefaultBookSettings returns the settings applied to new books.
func DefaultBookSettings() BookSettings {
	return BookSettings{
		CitationStyle:    CitationAPA,
		IncludeTOC:       true,
		IncludeIndex:     false,
		ChapterNumbering: true,
		IncludeImages:    true,
		IncludeAudio:     false,
	}
}

// InterviewResponse records one answer given during the discovery interview.
type InterviewResponse struct {
	QuestionID string    `json:"question_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Timestamp  time.Time `json:"timestamp"`
}

// BookInput carries caller-supplied fields for a new book.
type BookInput struct {
	Title              string
	Subtitle           string
	Description        string
	TargetAudience     string
	BookType           BookType
	TargetWordCount    int
	VoiceProfile       *VoiceProfile
	Settings           *BookSettings
	InterviewResponses []InterviewResponse
}

// NewBook builds an interview-stage book owned by userID, applying defaults.
func NewBook(userID string, in BookInput, now time.Time) (Book, error) {
	book := Book{
		ID:                 uuid.NewString(),
		UserID:             strings.TrimSpace(userID),
		Title:              strings.TrimSpace(in.Title),
		Subtitle:           strings.TrimSpace(in.Subtitle),
		Description:        strings.TrimSpace(in.Description),
		TargetAudience:     strings.TrimSpace(in.TargetAudience),
		BookType:           in.BookType,
		Status:             BookInterview,
		TargetWordCount:    in.TargetWordCount,
		VoiceProfile:       in.VoiceProfile,
		Settings:           DefaultBookSettings(),
		InterviewResponses: in.InterviewResponses,
		ContentUpdatedAt:   now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if book.BookType == "" {
		book.BookType = DefaultBookType
	}
	if book.TargetWordCount == 0 {
		book.TargetWordCount = DefaultTargetWordCount
	}
	if in.Settings != nil {
		book.Settings = *in.Settings
	}
	if err := book.Validate(); err != nil {
		return Book{}, err
	}
	return book, nil
}

// Validate rejects books with missing or out-of-range fields.
func (b Book) Validate() error {
	var problems []string
	if strings.TrimSpace(b.UserID) == "" {
		problems = append(problems, "user_id is required")
	}
	if strings.TrimSpace(b.Title) == "" {
		problems = append(problems, "title is required")
	}
	if _, ok := ParseBookType(string(b.BookType)); !ok {
		problems = append(problems, fmt.Sprintf("unknown book_type %q", b.BookType))
	}
	if _, ok := ParseBookStatus(string(b.Status)); !ok {
		problems = append(problems, fmt.Sprintf("unknown status %q", b.Status))
	}
	if b.TargetWordCount <= 0 {
		problems = append(problems, "target_word_count must be positive")
	}
	if b.VoiceProfile != nil {
		problems = append(problems, b.VoiceProfile.problems()...)
	}
	problems = append(problems, b.Settings.problems()...)
	return validationError("validate book", problems)
}

// Validate rejects unknown voice enumerations.
func (v VoiceProfile) Validate() error {
	return validationError("validate voice profile", v.problems())
}

func (v VoiceProfile) problems() []string {
	var problems []string
	if _, ok := ParseTone(string(v.Tone)); !ok {
		problems = append(problems, fmt.Sprintf("unknown tone %q", v.Tone))
	}
	if _, ok := ParseVocabularyLevel(string(v.VocabularyLevel)); !ok {
		problems = append(problems, fmt.Sprintf("unknown vocabulary_level %q", v.VocabularyLevel))
	}
	return problems
}

// Validate rejects unknown citation styles.
func (s BookSettings) Validate() error {
	return validationError("validate settings", s.problems())
}

func (s BookSettings) problems() []string {
	if _, ok := ParseCitationStyle(string(s.CitationStyle)); !ok {
		return []string{fmt.Sprintf("unknown citation_style %q", s.CitationStyle)}
	}
	return nil
}

func validationError(operation string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return services.Wrap(services.ErrValidation, "content", operation, strings.Join(problems, "; "), nil)
}
