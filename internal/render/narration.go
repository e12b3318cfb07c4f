package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/jaytaylor/html2text"

	"folio/internal/services"
)

// NarrationRenderer produces the audiobook narration script: plain text in
// reading order with chapter and section announcements. Voice synthesis
// consumes the script downstream.
type NarrationRenderer struct{}

// NewNarrationRenderer builds the audiobook script renderer.
func NewNarrationRenderer() NarrationRenderer {
	return NarrationRenderer{}
}

// Render implements services.Renderer.
func (NarrationRenderer) Render(ctx context.Context, doc *services.Document) (*services.Artifact, error) {
	var b strings.Builder
	if doc.VoiceID != "" {
		fmt.Fprintf(&b, "# voice: %s\n\n", doc.VoiceID)
	}
	b.WriteString(doc.Title + "\n")
	if doc.Subtitle != "" {
		b.WriteString(doc.Subtitle + "\n")
	}
	if doc.Author != "" {
		b.WriteString("Written by " + doc.Author + "\n")
	}

	for _, ch := range doc.Chapters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.WriteString("\n\n")
		if ch.Number > 0 {
			fmt.Fprintf(&b, "Chapter %d. ", ch.Number)
		}
		b.WriteString(ch.Title + ".\n\n")
		text, err := narrate(ch.HTML)
		if err != nil {
			return nil, fmt.Errorf("narrate chapter %q: %w", ch.Title, err)
		}
		b.WriteString(text)
		for _, sec := range ch.Sections {
			text, err := narrate(sec.HTML)
			if err != nil {
				return nil, fmt.Errorf("narrate section %q: %w", sec.Title, err)
			}
			b.WriteString("\n\n" + sec.Title + ".\n\n" + text)
		}
	}
	b.WriteString("\n\nThe end.\n")

	return &services.Artifact{
		Format:      doc.Format,
		ContentType: "text/plain; charset=utf-8",
		Extension:   "txt",
		Data:        []byte(b.String()),
	}, nil
}

func narrate(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}
	text, err := html2text.FromString(fragment, html2text.Options{OmitLinks: true, TextOnly: true})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
