package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"folio/internal/content"
)

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// citationYear extracts a four digit year from a publication date.
func citationYear(c content.Citation) string {
	if m := yearPattern.FindStringSubmatch(c.PublicationDate); m != nil {
		return m[1]
	}
	return "n.d."
}

func authorSurname(c content.Citation) string {
	if len(c.Authors) == 0 {
		return c.Title
	}
	last := c.Authors[0].LastName
	if last == "" {
		last = c.Authors[0].DisplayName()
	}
	switch len(c.Authors) {
	case 1:
		return last
	case 2:
		second := c.Authors[1].LastName
		if second == "" {
			second = c.Authors[1].DisplayName()
		}
		return last + " & " + second
	default:
		return last + " et al."
	}
}

func initials(a content.Author, sep string) string {
	var parts []string
	for _, name := range []string{a.FirstName, a.MiddleName} {
		for _, f := range strings.Fields(name) {
			r := []rune(f)
			parts = append(parts, string(r[0])+sep)
		}
	}
	return strings.Join(parts, " ")
}

// invertedName renders "Last, F. M." style names.
func invertedName(a content.Author) string {
	if a.LastName == "" {
		return a.DisplayName()
	}
	if ini := initials(a, "."); ini != "" {
		return a.LastName + ", " + ini
	}
	return a.LastName
}

// fullInvertedName renders "Last, First Middle".
func fullInvertedName(a content.Author) string {
	if a.LastName == "" {
		return a.DisplayName()
	}
	given := strings.TrimSpace(a.FirstName + " " + a.MiddleName)
	if given == "" {
		return a.LastName
	}
	return a.LastName + ", " + given
}

func joinAuthors(authors []content.Author, format func(content.Author) string, sep, last string) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if n := format(a); n != "" {
			names = append(names, n)
		}
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], sep) + last + names[len(names)-1]
	}
}

func withURL(text, url, prefix string) string {
	if url == "" {
		return text
	}
	return text + " " + prefix + url
}

// FormatReference renders the note text for c in style.
func FormatReference(style content.CitationStyle, c content.Citation) string {
	year := citationYear(c)
	title := strings.TrimSpace(c.Title)
	switch style {
	case content.CitationMLA:
		authors := joinAuthors(c.Authors, fullInvertedName, ", ", ", and ")
		text := `"` + title + `."`
		if authors != "" {
			text = authors + ". " + text
		}
		var tail []string
		if year != "n.d." {
			tail = append(tail, year)
		}
		if c.URL != "" {
			tail = append(tail, c.URL)
		}
		if len(tail) == 0 {
			return text
		}
		return text + " " + strings.Join(tail, ", ") + "."
	case content.CitationChicagoNotes:
		authors := joinAuthors(c.Authors, content.Author.DisplayName, ", ", " and ")
		text := title + " (" + year + ")"
		if authors != "" {
			text = authors + ", " + text
		}
		if c.URL != "" {
			return text + ", " + c.URL + "."
		}
		return text + "."
	case content.CitationChicagoAuthor:
		authors := joinAuthors(c.Authors, fullInvertedName, ", ", ", and ")
		text := year + ". " + title + "."
		if authors != "" {
			text = authors + ". " + text
		}
		return withURL(text, c.URL, "")
	case content.CitationHarvard:
		authors := joinAuthors(c.Authors, invertedName, ", ", " and ")
		text := "(" + year + ") " + title + "."
		if authors != "" {
			text = authors + " " + text
		}
		switch {
		case c.URL != "" && !c.AccessedDate.IsZero():
			text += fmt.Sprintf(" Available at: %s (Accessed: %s).", c.URL, c.AccessedDate.Format("2 January 2006"))
		case c.URL != "":
			text += " Available at: " + c.URL + "."
		}
		return text
	case content.CitationIEEE:
		authors := joinAuthors(c.Authors, func(a content.Author) string {
			if ini := initials(a, "."); ini != "" && a.LastName != "" {
				return ini + " " + a.LastName
			}
			return a.DisplayName()
		}, ", ", ", and ")
		text := ""
		if authors != "" {
			text = authors + ", "
		}
		text += `"` + title + `," ` + year + "."
		if c.URL != "" {
			text += " [Online]. Available: " + c.URL
		}
		return text
	case content.CitationVancouver:
		authors := joinAuthors(c.Authors, func(a content.Author) string {
			return strings.TrimSpace(a.LastName + " " + strings.ReplaceAll(initials(a, ""), " ", ""))
		}, ", ", ", ")
		text := ""
		if authors != "" {
			text = authors + ". "
		}
		text += title + ". " + year + "."
		return withURL(text, c.URL, "Available from: ")
	default: // apa
		authors := joinAuthors(c.Authors, invertedName, ", ", ", & ")
		text := "(" + year + "). " + title + "."
		if authors != "" {
			text = authors + " " + text
		}
		return withURL(text, c.URL, "")
	}
}

// BibliographyEntry renders c as an entry of the closing reference list. n is
// the entry's position for numbered styles.
func BibliographyEntry(style content.CitationStyle, c content.Citation, n int) string {
	switch style {
	case content.CitationIEEE:
		return fmt.Sprintf("[%d] %s", n, FormatReference(style, c))
	case content.CitationVancouver:
		return fmt.Sprintf("%d. %s", n, FormatReference(style, c))
	case content.CitationChicagoNotes:
		authors := joinAuthors(c.Authors, fullInvertedName, ", ", ", and ")
		text := strings.TrimSpace(c.Title) + ". " + citationYear(c) + "."
		if authors != "" {
			text = authors + ". " + text
		}
		return withURL(text, c.URL, "")
	default:
		return FormatReference(style, c)
	}
}

// globalNumbering reports whether citation numbers run across the whole book
// instead of restarting in every chapter.
func globalNumbering(style content.CitationStyle) bool {
	return style == content.CitationIEEE || style == content.CitationVancouver
}

// inlineMarker renders the in-text reference linking to footnote n.
func inlineMarker(style content.CitationStyle, c content.Citation, anchor string, n int) string {
	href := fmt.Sprintf("#%s-fn-%d", anchor, n)
	switch style {
	case content.CitationIEEE:
		return fmt.Sprintf(`<a class="cite" href="%s">[%d]</a>`, href, n)
	case content.CitationChicagoNotes, content.CitationVancouver:
		return fmt.Sprintf(`<sup class="cite"><a href="%s">%d</a></sup>`, href, n)
	case content.CitationMLA:
		return fmt.Sprintf(`(<a class="cite" href="%s">%s</a>)`, href, html.EscapeString(authorSurname(c)))
	default:
		return fmt.Sprintf(`(<a class="cite" href="%s">%s, %s</a>)`, href, html.EscapeString(authorSurname(c)), citationYear(c))
	}
}
