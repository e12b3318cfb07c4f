package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 60

// Slug converts value to a lowercase, hyphen separated ASCII token. Accents
// are stripped, runs of other characters collapse into one hyphen and the
// result is capped at 60 characters. Returns "untitled" when nothing remains.
func Slug(value string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range norm.NFKD.String(strings.TrimSpace(value)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingDash = true
		}
		if b.Len() >= maxSlugLength {
			break
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > maxSlugLength {
		out = strings.TrimRight(out[:maxSlugLength], "-")
	}
	if out == "" {
		return "untitled"
	}
	return out
}
