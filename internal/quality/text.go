package quality

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jaytaylor/html2text"
	"golang.org/x/text/unicode/norm"
)

var markerPattern = regexp.MustCompile(`\[(?:cite|media):[^\]\s]+\]`)

// PlainText converts chapter markup into readable text. Citation and media
// markers are removed; paragraphs stay separated by blank lines.
func PlainText(markup string) string {
	stripped := markerPattern.ReplaceAllString(markup, "")
	text, err := html2text.FromString(stripped, html2text.Options{OmitLinks: true, TextOnly: true})
	if err != nil {
		text = stripped
	}
	return norm.NFC.String(strings.TrimSpace(text))
}

// wordTokens splits text into words, keeping only tokens with a letter or digit.
func wordTokens(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '—' || r == '–' || r == '/'
	})
	words := fields[:0]
	for _, f := range fields {
		trimmed := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if trimmed != "" {
			words = append(words, trimmed)
		}
	}
	return words
}

var sentenceEnd = regexp.MustCompile(`[.!?]+["')\]]*(\s+|$)`)

// sentences splits text into sentences on terminal punctuation and blank lines.
func sentences(text string) []string {
	var out []string
	for _, para := range paragraphs(text) {
		last := 0
		for _, loc := range sentenceEnd.FindAllStringIndex(para, -1) {
			if s := strings.TrimSpace(para[last:loc[1]]); s != "" {
				out = append(out, s)
			}
			last = loc[1]
		}
		if s := strings.TrimSpace(para[last:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func paragraphs(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
