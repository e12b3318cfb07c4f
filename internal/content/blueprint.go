package content

import (
	"fmt"
	"strings"
)

// BookBlueprint is the structured plan produced by the discovery interview.
type BookBlueprint struct {
	Title             string        `json:"title"`
	SubtitleOptions   []string      `json:"subtitle_options"`
	Description       string        `json:"description"`
	TargetAudience    string        `json:"target_audience"`
	BookType          BookType      `json:"book_type"`
	TargetWordCount   int           `json:"target_word_count"`
	Tone              string        `json:"tone"`
	Chapters          []ChapterPlan `json:"chapters"`
	ResearchNeeds     []string      `json:"research_needs"`
	MediaRequirements []string      `json:"media_requirements"`
	EstimatedCredits  int           `json:"estimated_credits"`
}

// ChapterPlan plans one chapter.
type ChapterPlan struct {
	Title           string           `json:"title"`
	Summary         string           `json:"summary"`
	TargetWordCount int              `json:"target_word_count"`
	Sections        []SectionOutline `json:"sections"`
}

// SectionOutline plans one section.
type SectionOutline struct {
	Title           string `json:"title"`
	Summary         string `json:"summary"`
	TargetWordCount int    `json:"target_word_count"`
}

// Validate rejects blueprints whose outlines cannot be turned into records.
// An empty chapter list is reported separately by the expander.
func (b BookBlueprint) Validate() error {
	var problems []string
	if b.BookType != "" {
		if _, ok := ParseBookType(string(b.BookType)); !ok {
			problems = append(problems, fmt.Sprintf("unknown book_type %q", b.BookType))
		}
	}
	if b.TargetWordCount < 0 {
		problems = append(problems, "target_word_count must not be negative")
	}
	for i, ch := range b.Chapters {
		if strings.TrimSpace(ch.Title) == "" {
			problems = append(problems, fmt.Sprintf("chapter outline %d has no title", i))
		}
		if ch.TargetWordCount < 0 {
			problems = append(problems, fmt.Sprintf("chapter outline %d has a negative target", i))
		}
		for j, sec := range ch.Sections {
			if strings.TrimSpace(sec.Title) == "" {
				problems = append(problems, fmt.Sprintf("section outline %d.%d has no title", i, j))
			}
		}
	}
	return validationError("validate blueprint", problems)
}
