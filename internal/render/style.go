package render

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"folio/internal/content"
	"folio/internal/services"
)

const bookCSS = `body { font-family: Georgia, serif; line-height: 1.5; margin: 0 auto; max-width: 40em; padding: 1em; }
h1, h2, h3 { font-family: "Helvetica Neue", Arial, sans-serif; }
.cover { text-align: center; margin: 4em 0; }
.cover .subtitle { font-style: italic; }
nav.toc ol { list-style: none; padding-left: 0; }
figure { margin: 1.5em 0; text-align: center; }
figure img { max-width: 100%; }
figcaption { font-size: 0.9em; color: #333; }
sup.cite { font-size: 0.75em; }
.footnotes { border-top: 1px solid #999; margin-top: 2em; font-size: 0.9em; }
.bibliography li { margin-bottom: 0.5em; }
`

// pageSizes maps export page sizes onto CSS @page sizes.
var pageSizes = map[string]string{
	string(content.PageLetter): "letter",
	string(content.PageA4):     "A4",
	string(content.Page6x9):    "6in 9in",
	string(content.Page5x8):    "5in 8in",
}

// printCSS sizes pages and type for paginated output.
func printCSS(doc *services.Document) string {
	var b strings.Builder
	if size, ok := pageSizes[doc.PageSize]; ok {
		fmt.Fprintf(&b, "@page { size: %s; margin: 0.75in; }\n", size)
	}
	if doc.FontSize > 0 {
		fmt.Fprintf(&b, "body { font-size: %dpt; }\n", doc.FontSize)
	}
	return b.String()
}

// fragmentPolicy is applied to every body fragment before it is emitted.
func fragmentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").Globally()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("sup", "figure", "figcaption", "span", "p")
	p.AllowElements("figure", "figcaption")
	return p
}
