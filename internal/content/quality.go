package content

import "time"

// Quality sub-score names, used in QualityReport.Unavailable and config weights.
const (
	ScorePlagiarism    = "plagiarism"
	ScoreGrammar       = "grammar"
	ScoreReadability   = "readability"
	ScoreAccessibility = "accessibility"
)

// QualityReport is one fully populated assessment of a book. A sub-score whose
// provider could not answer has Available=false and no Score.
type QualityReport struct {
	ID            string              `json:"id"`
	BookID        string              `json:"book_id"`
	OverallScore  float64             `json:"overall_score"`
	Plagiarism    PlagiarismReport    `json:"plagiarism"`
	Grammar       GrammarReport       `json:"grammar"`
	Readability   ReadabilityReport   `json:"readability"`
	Accessibility AccessibilityReport `json:"accessibility"`
	Partial       bool                `json:"partial"`
	Unavailable   []string            `json:"unavailable,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// PlagiarismReport is the originality sub-score.
type PlagiarismReport struct {
	Available bool              `json:"available"`
	Score     *float64          `json:"score,omitempty"`
	Matches   []PlagiarismMatch `json:"matches,omitempty"`
}

// PlagiarismMatch is a passage resembling a known source.
type PlagiarismMatch struct {
	Text       string  `json:"text"`
	SourceURL  string  `json:"source_url"`
	Similarity float64 `json:"similarity"`
}

// GrammarReport is the grammar sub-score.
type GrammarReport struct {
	Available bool           `json:"available"`
	Score     *float64       `json:"score,omitempty"`
	Issues    []GrammarIssue `json:"issues,omitempty"`
}

// GrammarIssue is one grammar finding with a rune offset span.
type GrammarIssue struct {
	Type       string   `json:"type"`
	Text       string   `json:"text"`
	Suggestion string   `json:"suggestion"`
	Position   TextSpan `json:"position"`
}

// TextSpan is a half-open offset range.
type TextSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ReadabilityReport is the readability sub-score plus raw metrics.
type ReadabilityReport struct {
	Available bool                `json:"available"`
	Score     *float64            `json:"score,omitempty"`
	Metrics   *ReadabilityMetrics `json:"metrics,omitempty"`
}

// ReadabilityMetrics are the classic readability formulas.
type ReadabilityMetrics struct {
	FleschKincaidGrade float64 `json:"flesch_kincaid_grade"`
	FleschReadingEase  float64 `json:"flesch_reading_ease"`
	GunningFog         float64 `json:"gunning_fog"`
	SMOGIndex          float64 `json:"smog_index"`
	AvgSentenceLength  float64 `json:"avg_sentence_length"`
	AvgWordLength      float64 `json:"avg_word_length"`
}

// AccessibilityReport is the accessibility sub-score.
type AccessibilityReport struct {
	Available bool                 `json:"available"`
	Score     *float64             `json:"score,omitempty"`
	Issues    []AccessibilityIssue `json:"issues,omitempty"`
}

// AccessibilityIssue is one accessibility finding.
type AccessibilityIssue struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Location    string `json:"location"`
}
