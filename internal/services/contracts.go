package services

import "context"

// Document is the canonical, format-neutral representation of a book handed to
// a Renderer. Chapter and section bodies are sanitized HTML fragments.
type Document struct {
	BookID        string
	ExportID      string
	Format        string
	Title         string
	Subtitle      string
	Author        string
	Description   string
	Language      string
	CitationStyle string
	PageSize      string
	FontSize      int
	VoiceID       string
	Cover         *CoverPage
	TOC           []TOCEntry
	Chapters      []DocumentChapter
	Bibliography  []string
}

// CoverPage is present when the export asked for a cover.
type CoverPage struct {
	Title       string
	Subtitle    string
	Description string
}

// TOCEntry is one line of the table of contents.
type TOCEntry struct {
	Label  string
	Anchor string
}

// DocumentChapter is a chapter in reading order.
type DocumentChapter struct {
	Number    int // 0 when chapter numbering is disabled
	Title     string
	Anchor    string
	HTML      string
	Sections  []DocumentSection
	Footnotes []Footnote
}

// DocumentSection is a section in reading order.
type DocumentSection struct {
	Title  string
	Anchor string
	HTML   string
}

// Footnote is a formatted citation referenced from chapter or section text.
type Footnote struct {
	Number int
	Text   string
}

// Artifact is the rendered output of a Document.
type Artifact struct {
	Format      string
	ContentType string
	Extension   string
	Data        []byte
}

// Renderer converts a Document into bytes for one export format.
type Renderer interface {
	Render(ctx context.Context, doc *Document) (*Artifact, error)
}

// Publisher stores a rendered artifact and returns a retrievable URL.
type Publisher interface {
	Publish(ctx context.Context, key string, artifact *Artifact) (string, error)
}

// MediaQuery asks the media collaborator for candidates.
type MediaQuery struct {
	Query string
	Type  string
	Limit int
}

// MediaCandidate is one search hit from a stock or generation provider.
type MediaCandidate struct {
	Type        string
	Source      string
	URL         string
	AltText     string
	Caption     string
	Width       int
	Height      int
	Duration    float64
	FileSize    int64
	MimeType    string
	Attribution string
}

// MediaSearcher finds media assets matching a description.
type MediaSearcher interface {
	SearchMedia(ctx context.Context, query MediaQuery) ([]MediaCandidate, error)
}

// SourceAuthor names one author of a research source.
type SourceAuthor struct {
	FirstName  string
	LastName   string
	MiddleName string
}

// SourceCandidate is one research source returned by the citation collaborator.
// RawData holds the provider payload verbatim.
type SourceCandidate struct {
	SourceType       string
	Title            string
	Authors          []SourceAuthor
	URL              string
	PublicationDate  string
	CredibilityScore float64
	RawData          []byte
}

// CitationSearcher finds research sources for a topic.
type CitationSearcher interface {
	SearchSources(ctx context.Context, topic string) ([]SourceCandidate, error)
}

// SourceExcerpt is reference text a plagiarism provider compares against.
type SourceExcerpt struct {
	URL  string
	Text string
}

// PlagiarismMatch is a passage that resembles a known source.
type PlagiarismMatch struct {
	Text       string
	SourceURL  string
	Similarity float64
}

// PlagiarismResult carries a 0-100 originality score.
type PlagiarismResult struct {
	Score   float64
	Matches []PlagiarismMatch
}

// PlagiarismChecker scores text originality.
type PlagiarismChecker interface {
	CheckPlagiarism(ctx context.Context, text string, sources []SourceExcerpt) (PlagiarismResult, error)
}

// Span is a half-open rune offset range into checked text.
type Span struct {
	Start int
	End   int
}

// GrammarIssue is one finding from a grammar provider. Type is one of
// spelling, grammar, punctuation, style.
type GrammarIssue struct {
	Type       string
	Text       string
	Suggestion string
	Position   Span
}

// GrammarResult carries a 0-100 grammar score.
type GrammarResult struct {
	Score  float64
	Issues []GrammarIssue
}

// GrammarChecker scores text for grammar and style.
type GrammarChecker interface {
	CheckGrammar(ctx context.Context, text string) (GrammarResult, error)
}

// AccessibilityInput is the markup and asset metadata under review.
type AccessibilityInput struct {
	Fragments []MarkupFragment
	Assets    []AssetText
}

// MarkupFragment is one chapter or section body with a human readable location.
type MarkupFragment struct {
	Location string
	HTML     string
}

// AssetText carries the alt text of a media asset used by the book.
type AssetText struct {
	ID      string
	AltText string
}

// AccessibilityIssue is one finding from an accessibility provider. Type is
// one of alt_text, heading_structure, color_contrast, table_headers.
type AccessibilityIssue struct {
	Type        string
	Description string
	Location    string
}

// AccessibilityResult carries a 0-100 accessibility score.
type AccessibilityResult struct {
	Score  float64
	Issues []AccessibilityIssue
}

// AccessibilityChecker scores markup for accessibility.
type AccessibilityChecker interface {
	CheckAccessibility(ctx context.Context, input AccessibilityInput) (AccessibilityResult, error)
}
