package lifecycle

import (
	"fmt"

	"folio/internal/config"
	"folio/internal/content"
)

// Policy holds the thresholds that gate transitions.
type Policy struct {
	WritingCompletionRatio  float64
	ChapterCompletionRatio  float64
	PublishQualityThreshold float64
}

// PolicyFromConfig copies the lifecycle thresholds out of cfg.
func PolicyFromConfig(cfg config.Lifecycle) Policy {
	return Policy{
		WritingCompletionRatio:  cfg.WritingCompletionRatio,
		ChapterCompletionRatio:  cfg.ChapterCompletionRatio,
		PublishQualityThreshold: cfg.PublishQualityThreshold,
	}
}

// DefaultPolicy returns the thresholds of the default configuration.
func DefaultPolicy() Policy {
	return PolicyFromConfig(config.Default().Lifecycle)
}

// Cascade returns the status a book reaches automatically given its chapters
// and word count. It never returns a status behind current.
func Cascade(book content.Book, chapters []content.Chapter, policy Policy) content.BookStatus {
	status := book.Status
	if status == content.BookInterview && len(chapters) > 0 {
		status = content.BookOutline
	}
	if status == content.BookOutline && anyChapterAtLeast(chapters, content.ChapterDraft) {
		status = content.BookWriting
	}
	if status == content.BookWriting && len(chapters) > 0 &&
		allChaptersAtLeast(chapters, content.ChapterDraft) &&
		float64(book.CurrentWordCount) >= policy.WritingCompletionRatio*float64(book.TargetWordCount) {
		status = content.BookEditing
	}
	return status
}

// Promote moves book forward to status. Requests to stay or move backward
// are ignored and report false.
func Promote(book *content.Book, status content.BookStatus) bool {
	if status.Rank() <= book.Status.Rank() {
		return false
	}
	book.Status = status
	return true
}

// ChapterCompletionProblems lists why ch cannot become complete.
func ChapterCompletionProblems(ch content.Chapter, policy Policy) []string {
	var problems []string
	if pending := ch.UnresolvedPlaceholders(); len(pending) > 0 {
		problems = append(problems, fmt.Sprintf("%s has %d unresolved media placeholder(s)", ch.Label(), len(pending)))
	}
	needed := requiredWords(ch.TargetWordCount, policy.ChapterCompletionRatio)
	if ch.WordCount < needed {
		problems = append(problems, fmt.Sprintf("%s has %d words, needs at least %d", ch.Label(), ch.WordCount, needed))
	}
	return problems
}

// requiredWords is the completion floor for a chapter target. A chapter
// without a target needs at least one word.
func requiredWords(target int, ratio float64) int {
	if target <= 0 {
		return 1
	}
	needed := int(ratio * float64(target))
	if float64(needed) < ratio*float64(target) {
		needed++
	}
	if needed < 1 {
		needed = 1
	}
	return needed
}

func anyChapterAtLeast(chapters []content.Chapter, status content.ChapterStatus) bool {
	for _, ch := range chapters {
		if ch.Status.AtLeast(status) {
			return true
		}
	}
	return false
}

func allChaptersAtLeast(chapters []content.Chapter, status content.ChapterStatus) bool {
	for _, ch := range chapters {
		if !ch.Status.AtLeast(status) {
			return false
		}
	}
	return true
}
