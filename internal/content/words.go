package content

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var markerPattern = regexp.MustCompile(`\[(?:cite|media):[^\]\s]+\]`)

// CountWords strips markup and reference markers, normalises to NFC, and counts
// tokens that contain at least one letter or digit. Markdown punctuation such
// as list bullets and heading hashes is therefore never counted.
func CountWords(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	plain := norm.NFC.String(StripMarkup(text))
	count := 0
	for _, field := range strings.FieldsFunc(plain, unicode.IsSpace) {
		if hasWordRune(field) {
			count++
		}
	}
	return count
}

// StripMarkup returns the visible text of an HTML or markdown body with
// citation and media markers removed. Script and style contents are dropped.
func StripMarkup(text string) string {
	text = markerPattern.ReplaceAllString(text, " ")
	if !strings.ContainsRune(text, '<') {
		return text
	}
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(text))
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isHiddenTag(string(name)) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isHiddenTag(string(name)) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

func isHiddenTag(name string) bool {
	return name == "script" || name == "style"
}

func hasWordRune(field string) bool {
	for _, r := range field {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
