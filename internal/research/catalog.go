package research

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"folio/internal/content"
	"folio/internal/services"
)

// Catalog is a file-backed media and citation collaborator. It ranks entries
// by keyword overlap with the query and is used when no remote provider is
// wired in.
type Catalog struct {
	media   []catalogMedia
	sources []catalogSource
}

type catalogFile struct {
	Media   []catalogMedia    `json:"media"`
	Sources []json.RawMessage `json:"sources"`
}

type catalogMedia struct {
	Type        string   `json:"type"`
	Source      string   `json:"source"`
	URL         string   `json:"url"`
	AltText     string   `json:"alt_text"`
	Caption     string   `json:"caption"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Duration    float64  `json:"duration"`
	FileSize    int64    `json:"file_size"`
	MimeType    string   `json:"mime_type"`
	Attribution string   `json:"attribution"`
	Tags        []string `json:"tags"`
}

type catalogSource struct {
	SourceType       string          `json:"source_type"`
	Title            string          `json:"title"`
	Authors          []catalogAuthor `json:"authors"`
	URL              string          `json:"url"`
	PublicationDate  string          `json:"publication_date"`
	CredibilityScore float64         `json:"credibility_score"`
	Topics           []string        `json:"topics"`
	raw              []byte
}

type catalogAuthor struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name"`
}

// LoadCatalog reads a catalog JSON file with "media" and "sources" arrays.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog JSON. Each source keeps its own JSON bytes as
// the raw provider payload.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{media: file.Media}
	for i, raw := range file.Sources {
		var src catalogSource
		if err := json.Unmarshal(raw, &src); err != nil {
			return nil, fmt.Errorf("parse catalog source %d: %w", i, err)
		}
		src.raw = append([]byte(nil), raw...)
		c.sources = append(c.sources, src)
	}
	return c, nil
}

// SearchMedia implements services.MediaSearcher.
func (c *Catalog) SearchMedia(ctx context.Context, query services.MediaQuery) ([]services.MediaCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := terms(query.Query)
	placeholderType, typed := content.ParsePlaceholderType(query.Type)

	type hit struct {
		score int
		idx   int
	}
	var hits []hit
	for i, m := range c.media {
		if typed {
			assetType, ok := content.ParseAssetType(m.Type)
			if !ok || !assetType.Accepts(placeholderType) {
				continue
			}
		}
		score := overlap(want, terms(m.AltText+" "+m.Caption+" "+strings.Join(m.Tags, " ")))
		if score == 0 {
			continue
		}
		hits = append(hits, hit{score: score, idx: i})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if query.Limit > 0 && len(hits) > query.Limit {
		hits = hits[:query.Limit]
	}

	out := make([]services.MediaCandidate, 0, len(hits))
	for _, h := range hits {
		m := c.media[h.idx]
		out = append(out, services.MediaCandidate{
			Type:        m.Type,
			Source:      m.Source,
			URL:         m.URL,
			AltText:     m.AltText,
			Caption:     m.Caption,
			Width:       m.Width,
			Height:      m.Height,
			Duration:    m.Duration,
			FileSize:    m.FileSize,
			MimeType:    m.MimeType,
			Attribution: m.Attribution,
		})
	}
	return out, nil
}

// SearchSources implements services.CitationSearcher.
func (c *Catalog) SearchSources(ctx context.Context, topic string) ([]services.SourceCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := terms(topic)
	var out []services.SourceCandidate
	for _, s := range c.sources {
		if overlap(want, terms(s.Title+" "+strings.Join(s.Topics, " "))) == 0 {
			continue
		}
		authors := make([]services.SourceAuthor, 0, len(s.Authors))
		for _, a := range s.Authors {
			authors = append(authors, services.SourceAuthor{FirstName: a.FirstName, LastName: a.LastName, MiddleName: a.MiddleName})
		}
		out = append(out, services.SourceCandidate{
			SourceType:       s.SourceType,
			Title:            s.Title,
			Authors:          authors,
			URL:              s.URL,
			PublicationDate:  s.PublicationDate,
			CredibilityScore: s.CredibilityScore,
			RawData:          s.raw,
		})
	}
	return out, nil
}

func terms(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(f)) >= 4 {
			out[strings.TrimSuffix(f, "s")] = struct{}{}
		}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
