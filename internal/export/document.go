package export

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"folio/internal/content"
	"folio/internal/services"
	"folio/internal/store"
)

var markerPattern = regexp.MustCompile(`\[(cite|media):\s*([A-Za-z0-9_\-]+)\s*\]`)

// bookContent is everything assembly reads, captured in one transaction.
type bookContent struct {
	book      content.Book
	chapters  []content.Chapter
	sections  map[string][]content.Section
	citations map[string]content.Citation
	assets    map[string]content.MediaAsset
}

func loadBookContent(ctx context.Context, st *store.Store, bookID string) (bookContent, error) {
	var bc bookContent
	err := st.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if bc.book, err = tx.GetBook(ctx, bookID); err != nil {
			return err
		}
		if bc.chapters, err = tx.ListChapters(ctx, bookID); err != nil {
			return err
		}
		if bc.sections, err = tx.ListBookSections(ctx, bookID); err != nil {
			return err
		}
		citations, err := tx.ListCitations(ctx, bookID)
		if err != nil {
			return err
		}
		bc.citations = make(map[string]content.Citation, len(citations))
		for _, c := range citations {
			bc.citations[c.ID] = c
		}
		assets, err := tx.ListMediaAssets(ctx, bookID)
		if err != nil {
			return err
		}
		bc.assets = make(map[string]content.MediaAsset, len(assets))
		for _, a := range assets {
			bc.assets[a.ID] = a
		}
		return nil
	})
	if err != nil {
		return bookContent{}, fmt.Errorf("load book content: %w", err)
	}
	return bc, nil
}

// assembler turns stored content into a services.Document for one export.
type assembler struct {
	content  bookContent
	export   content.Export
	language string
	policy   *bluemonday.Policy
	style    content.CitationStyle

	// citation numbering shared across chapters for numbered styles
	globalNumbers map[string]int
	cited         []string
}

func newAssembler(bc bookContent, exp content.Export, lang string) *assembler {
	style := bc.book.Settings.CitationStyle
	if _, ok := content.ParseCitationStyle(string(style)); !ok {
		style = content.CitationAPA
	}
	if strings.TrimSpace(lang) == "" {
		lang = "en"
	}
	return &assembler{
		content:       bc,
		export:        exp,
		language:      lang,
		policy:        contentPolicy(),
		style:         style,
		globalNumbers: make(map[string]int),
	}
}

func contentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("figure", "figcaption")
	p.AllowAttrs("class").OnElements("sup", "a", "figure", "figcaption", "span", "p")
	return p
}

// chapterNotes numbers the citations referenced from one chapter.
type chapterNotes struct {
	anchor    string
	numbers   map[string]int
	footnotes []services.Footnote
	media     map[string]bool
}

// Document builds the canonical document. It fails with ErrDanglingReference
// when text cites a citation that does not belong to the book.
func (a *assembler) Document() (*services.Document, error) {
	book := a.content.book
	settings := a.export.Settings
	doc := &services.Document{
		BookID:        book.ID,
		ExportID:      a.export.ID,
		Format:        string(a.export.Format),
		Title:         book.Title,
		Subtitle:      book.Subtitle,
		Description:   book.Description,
		Language:      a.language,
		CitationStyle: string(a.style),
		PageSize:      string(settings.PageSize),
		FontSize:      settings.FontSize,
		VoiceID:       settings.VoiceID,
	}
	if settings.IncludeCover {
		doc.Cover = &services.CoverPage{
			Title:       book.Title,
			Subtitle:    book.Subtitle,
			Description: book.Description,
		}
	}

	titler := cases.Title(a.tag(), cases.NoLower)
	for i, ch := range a.content.chapters {
		docChapter, err := a.chapter(i+1, ch)
		if err != nil {
			return nil, err
		}
		doc.Chapters = append(doc.Chapters, docChapter)
		if settings.IncludeTOC {
			label := titler.String(ch.Title)
			if docChapter.Number > 0 {
				label = fmt.Sprintf("Chapter %d: %s", docChapter.Number, label)
			}
			doc.TOC = append(doc.TOC, services.TOCEntry{Label: label, Anchor: docChapter.Anchor})
		}
	}
	doc.Bibliography = a.bibliography()
	return doc, nil
}

func (a *assembler) tag() language.Tag {
	tag, err := language.Parse(a.language)
	if err != nil {
		return language.English
	}
	return tag
}

func (a *assembler) chapter(position int, ch content.Chapter) (services.DocumentChapter, error) {
	anchor := fmt.Sprintf("chapter-%d", position)
	out := services.DocumentChapter{
		Title:  ch.Title,
		Anchor: anchor,
	}
	if a.content.book.Settings.ChapterNumbering {
		out.Number = position
	}
	notes := &chapterNotes{
		anchor:  anchor,
		numbers: make(map[string]int),
		media:   make(map[string]bool),
	}

	body, err := a.fragment(ch, ch.Content, notes)
	if err != nil {
		return services.DocumentChapter{}, err
	}
	for j, sec := range a.content.sections[ch.ID] {
		secHTML, err := a.fragment(ch, sec.Content, notes)
		if err != nil {
			return services.DocumentChapter{}, err
		}
		out.Sections = append(out.Sections, services.DocumentSection{
			Title:  sec.Title,
			Anchor: fmt.Sprintf("%s-section-%d", anchor, j+1),
			HTML:   secHTML,
		})
	}
	out.HTML = body + a.trailingFigures(ch, notes)
	out.Footnotes = notes.footnotes
	return out, nil
}

// fragment sanitizes text and replaces citation and media markers.
func (a *assembler) fragment(ch content.Chapter, text string, notes *chapterNotes) (string, error) {
	clean := a.policy.Sanitize(toHTML(text))
	var missing []string
	out := markerPattern.ReplaceAllStringFunc(clean, func(marker string) string {
		m := markerPattern.FindStringSubmatch(marker)
		kind, id := m[1], m[2]
		if kind == "media" {
			notes.media[id] = true
			return a.figure(ch, id)
		}
		c, ok := a.content.citations[id]
		if !ok {
			missing = append(missing, id)
			return ""
		}
		n := a.noteNumber(c, notes)
		return inlineMarker(a.style, c, notes.anchor, n)
	})
	if len(missing) > 0 {
		return "", services.Wrap(services.ErrDanglingReference, component, "assemble",
			fmt.Sprintf("%s cites unknown citation %s", ch.Label(), strings.Join(missing, ", ")), nil)
	}
	return out, nil
}

// noteNumber returns the footnote number for c in this chapter, adding the
// footnote on first use.
func (a *assembler) noteNumber(c content.Citation, notes *chapterNotes) int {
	if n, ok := notes.numbers[c.ID]; ok {
		return n
	}
	if _, seen := a.globalNumbers[c.ID]; !seen {
		a.globalNumbers[c.ID] = len(a.cited) + 1
		a.cited = append(a.cited, c.ID)
	}
	n := len(notes.footnotes) + 1
	if globalNumbering(a.style) {
		n = a.globalNumbers[c.ID]
	}
	notes.numbers[c.ID] = n
	notes.footnotes = append(notes.footnotes, services.Footnote{Number: n, Text: FormatReference(a.style, c)})
	return n
}

// figure renders the media for placeholder id, or nothing when images are
// disabled or the placeholder is unresolved.
func (a *assembler) figure(ch content.Chapter, id string) string {
	if !a.content.book.Settings.IncludeImages {
		return ""
	}
	p, ok := ch.Placeholder(id)
	if !ok || !p.Resolved {
		return ""
	}
	asset, ok := a.content.assets[p.AssetID]
	if !ok {
		return ""
	}
	alt := asset.AltText
	if alt == "" {
		alt = p.Description
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<figure id="figure-%s">`, html.EscapeString(p.ID))
	switch asset.AssetType {
	case content.AssetImage, content.AssetChart, content.AssetDiagram:
		fmt.Fprintf(&b, `<img src="%s" alt="%s"/>`, html.EscapeString(asset.URL), html.EscapeString(alt))
	default:
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, html.EscapeString(asset.URL), html.EscapeString(alt))
	}
	caption := asset.Caption
	if caption == "" {
		caption = asset.Metadata.Attribution
	}
	if caption != "" {
		fmt.Fprintf(&b, `<figcaption>%s</figcaption>`, html.EscapeString(caption))
	}
	b.WriteString(`</figure>`)
	return b.String()
}

// trailingFigures appends resolved placeholders the text never placed.
func (a *assembler) trailingFigures(ch content.Chapter, notes *chapterNotes) string {
	placeholders := slices.Clone(ch.MediaPlaceholders)
	slices.SortStableFunc(placeholders, func(x, y content.MediaPlaceholder) int {
		return x.Position - y.Position
	})
	var b strings.Builder
	for _, p := range placeholders {
		if notes.media[p.ID] || !p.Resolved {
			continue
		}
		b.WriteString(a.figure(ch, p.ID))
	}
	return b.String()
}

func (a *assembler) bibliography() []string {
	if len(a.cited) == 0 {
		return nil
	}
	entries := make([]string, 0, len(a.cited))
	for i, id := range a.cited {
		entries = append(entries, BibliographyEntry(a.style, a.content.citations[id], i+1))
	}
	if !globalNumbering(a.style) {
		col := collate.New(a.tag(), collate.IgnoreCase)
		slices.SortStableFunc(entries, col.CompareString)
	}
	return entries
}

// toHTML wraps plain text paragraphs in <p> elements. Text that already
// carries markup is returned unchanged.
func toHTML(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.Contains(text, "<") {
		return text
	}
	var b strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(para))
		b.WriteString("</p>")
	}
	return b.String()
}
