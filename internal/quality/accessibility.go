package quality

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"folio/internal/services"
)

// Accessibility issue types.
const (
	IssueAltText          = "alt_text"
	IssueHeadingStructure = "heading_structure"
	IssueColorContrast    = "color_contrast"
	IssueTableHeaders     = "table_headers"
)

const minContrastRatio = 4.5

// MarkupAccessibility inspects chapter markup for common accessibility gaps.
// The score is the share of inspected elements without an issue.
type MarkupAccessibility struct{}

// CheckAccessibility implements services.AccessibilityChecker.
func (MarkupAccessibility) CheckAccessibility(ctx context.Context, input services.AccessibilityInput) (services.AccessibilityResult, error) {
	a := &auditor{}
	for _, frag := range input.Fragments {
		if err := ctx.Err(); err != nil {
			return services.AccessibilityResult{}, err
		}
		doc, err := html.Parse(strings.NewReader(frag.HTML))
		if err != nil {
			return services.AccessibilityResult{}, fmt.Errorf("parse markup at %s: %w", frag.Location, err)
		}
		a.location = frag.Location
		a.prevHeading = 1
		a.walk(doc)
	}
	for _, asset := range input.Assets {
		a.checks++
		if strings.TrimSpace(asset.AltText) == "" {
			a.issue(IssueAltText, "media asset "+asset.ID+" has no alt text", "asset "+asset.ID)
		}
	}

	score := 100.0
	if a.checks > 0 {
		score = clampScore(100 * (1 - float64(len(a.issues))/float64(a.checks)))
	}
	return services.AccessibilityResult{Score: score, Issues: a.issues}, nil
}

type auditor struct {
	location    string
	prevHeading int
	checks      int
	issues      []services.AccessibilityIssue
}

func (a *auditor) issue(kind, description, location string) {
	a.issues = append(a.issues, services.AccessibilityIssue{
		Type:        kind,
		Description: description,
		Location:    location,
	})
}

func (a *auditor) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		a.inspect(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		a.walk(c)
	}
}

func (a *auditor) inspect(n *html.Node) {
	switch n.DataAtom {
	case atom.Img:
		a.checks++
		if alt, ok := attr(n, "alt"); !ok || (strings.TrimSpace(alt) == "" && attrVal(n, "role") != "presentation") {
			a.issue(IssueAltText, fmt.Sprintf("image %q has no alt text", attrVal(n, "src")), a.location)
		}
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		a.checks++
		level := int(n.Data[1] - '0')
		if level > a.prevHeading+1 {
			a.issue(IssueHeadingStructure,
				fmt.Sprintf("heading level jumps from h%d to h%d", a.prevHeading, level), a.location)
		}
		a.prevHeading = level
	case atom.Table:
		a.checks++
		if !hasDescendant(n, atom.Th) {
			a.issue(IssueTableHeaders, "table has no header cells", a.location)
		}
	}

	style, ok := attr(n, "style")
	if !ok {
		return
	}
	decls := parseStyle(style)
	fgRaw, hasFg := decls["color"]
	if !hasFg {
		return
	}
	fg, okFg := parseColor(fgRaw)
	if !okFg {
		return
	}
	bg := rgb{255, 255, 255}
	if raw, ok := decls["background-color"]; ok {
		if c, ok := parseColor(raw); ok {
			bg = c
		}
	} else if raw, ok := decls["background"]; ok {
		if c, ok := parseColor(raw); ok {
			bg = c
		}
	}
	a.checks++
	if ratio := contrastRatio(fg, bg); ratio < minContrastRatio {
		a.issue(IssueColorContrast,
			fmt.Sprintf("<%s> text contrast %.2f:1 is below %.1f:1", n.Data, ratio, minContrastRatio), a.location)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, at := range n.Attr {
		if strings.EqualFold(at.Key, key) {
			return at.Val, true
		}
	}
	return "", false
}

func attrVal(n *html.Node, key string) string {
	v, _ := attr(n, key)
	return v
}

func hasDescendant(n *html.Node, want atom.Atom) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == want {
			return true
		}
		if hasDescendant(c, want) {
			return true
		}
	}
	return false
}

func parseStyle(style string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(name))] = strings.ToLower(strings.TrimSpace(value))
	}
	return out
}

type rgb struct{ r, g, b float64 }

var namedColors = map[string]rgb{
	"black":  {0, 0, 0},
	"white":  {255, 255, 255},
	"gray":   {128, 128, 128},
	"grey":   {128, 128, 128},
	"silver": {192, 192, 192},
	"red":    {255, 0, 0},
	"green":  {0, 128, 0},
	"blue":   {0, 0, 255},
	"yellow": {255, 255, 0},
	"orange": {255, 165, 0},
	"navy":   {0, 0, 128},
}

func parseColor(raw string) (rgb, bool) {
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "!important"))
	if c, ok := namedColors[raw]; ok {
		return c, true
	}
	if strings.HasPrefix(raw, "#") {
		hex := raw[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return rgb{}, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return rgb{}, false
		}
		return rgb{float64(v >> 16 & 0xff), float64(v >> 8 & 0xff), float64(v & 0xff)}, true
	}
	if inner, ok := strings.CutPrefix(raw, "rgb("); ok {
		parts := strings.Split(strings.TrimSuffix(inner, ")"), ",")
		if len(parts) != 3 {
			return rgb{}, false
		}
		var vals [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil || v < 0 || v > 255 {
				return rgb{}, false
			}
			vals[i] = v
		}
		return rgb{vals[0], vals[1], vals[2]}, true
	}
	return rgb{}, false
}

func luminance(c rgb) float64 {
	channel := func(v float64) float64 {
		v /= 255
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*channel(c.r) + 0.7152*channel(c.g) + 0.0722*channel(c.b)
}

func contrastRatio(fg, bg rgb) float64 {
	l1, l2 := luminance(fg), luminance(bg)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}
