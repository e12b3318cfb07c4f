package quality

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"folio/internal/content"
)

// Readability computes the classic readability formulas over plain text. The
// second return value is false when the text has no words.
func Readability(text string) (content.ReadabilityMetrics, bool) {
	words := wordTokens(text)
	if len(words) == 0 {
		return content.ReadabilityMetrics{}, false
	}
	sentenceCount := len(sentences(text))
	if sentenceCount == 0 {
		sentenceCount = 1
	}

	var syllables, polysyllables, letters int
	for _, w := range words {
		n := countSyllables(w)
		syllables += n
		if n >= 3 {
			polysyllables++
		}
		letters += utf8.RuneCountInString(w)
	}

	wc := float64(len(words))
	sc := float64(sentenceCount)
	wordsPerSentence := wc / sc
	syllablesPerWord := float64(syllables) / wc

	return content.ReadabilityMetrics{
		FleschKincaidGrade: round2(0.39*wordsPerSentence + 11.8*syllablesPerWord - 15.59),
		FleschReadingEase:  round2(206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord),
		GunningFog:         round2(0.4 * (wordsPerSentence + 100*float64(polysyllables)/wc)),
		SMOGIndex:          round2(1.043*math.Sqrt(float64(polysyllables)*30/sc) + 3.1291),
		AvgSentenceLength:  round2(wordsPerSentence),
		AvgWordLength:      round2(float64(letters) / wc),
	}, true
}

// ReadabilityScore maps metrics onto 0-100 using the reading-ease scale.
func ReadabilityScore(m content.ReadabilityMetrics) float64 {
	return clampScore(m.FleschReadingEase)
}

// countSyllables approximates syllables by counting vowel groups, ignoring a
// silent trailing "e". Every word has at least one syllable.
func countSyllables(word string) int {
	w := strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range w {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	if count == 0 {
		return 1
	}
	return count
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	default:
		return false
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return round2(v)
	}
}
