package blueprint

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"folio/internal/content"
)

const minKeywordLength = 4

var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "and": {}, "because": {}, "before": {}, "being": {},
	"between": {}, "book": {}, "chapter": {}, "could": {}, "does": {}, "each": {}, "from": {},
	"have": {}, "into": {}, "more": {}, "most": {}, "other": {}, "over": {}, "should": {},
	"some": {}, "such": {}, "than": {}, "that": {}, "their": {}, "them": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "through": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "while": {}, "with": {}, "would": {}, "your": {},
}

var folder = cases.Fold()

// keywords extracts the significant, case-folded words of text.
func keywords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	fields := strings.FieldsFunc(folder.String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, field := range fields {
		if len([]rune(field)) < minKeywordLength {
			continue
		}
		if _, stop := stopwords[field]; stop {
			continue
		}
		out[stem(field)] = struct{}{}
	}
	return out
}

// stem drops a plural suffix so "tides" and "tide" match.
func stem(word string) string {
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return strings.TrimSuffix(word, "ies") + "y"
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") && len(word) > 4:
		return strings.TrimSuffix(word, "s")
	default:
		return word
	}
}

func outlineKeywords(outline content.ChapterPlan) map[string]struct{} {
	parts := []string{outline.Title, outline.Summary}
	for _, sec := range outline.Sections {
		parts = append(parts, sec.Title, sec.Summary)
	}
	return keywords(strings.Join(parts, " "))
}

// assignTopics returns, per outline, the research needs sharing a keyword
// with it. A need may land on several chapters or on none.
func assignTopics(outlines []content.ChapterPlan, needs []string) [][]string {
	out := make([][]string, len(outlines))
	chapterWords := make([]map[string]struct{}, len(outlines))
	for i, outline := range outlines {
		chapterWords[i] = outlineKeywords(outline)
	}
	for _, need := range needs {
		needWords := keywords(need)
		for i, words := range chapterWords {
			if overlaps(needWords, words) {
				out[i] = append(out[i], need)
			}
		}
	}
	return out
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for word := range a {
		if _, ok := b[word]; ok {
			return true
		}
	}
	return false
}
