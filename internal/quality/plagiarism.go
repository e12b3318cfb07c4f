package quality

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"folio/internal/services"
)

const defaultShingleSize = 5

// ShingleMatcher scores originality by comparing word shingles of the checked
// text against source excerpts. Every word covered by a shared shingle counts
// as copied.
type ShingleMatcher struct {
	Size int
}

// NewShingleMatcher builds a matcher using shingles of size words.
func NewShingleMatcher(size int) *ShingleMatcher {
	if size <= 0 {
		size = defaultShingleSize
	}
	return &ShingleMatcher{Size: size}
}

// CheckPlagiarism implements services.PlagiarismChecker.
func (m *ShingleMatcher) CheckPlagiarism(ctx context.Context, text string, sources []services.SourceExcerpt) (services.PlagiarismResult, error) {
	runes := []rune(text)
	toks := tokenize(runes)
	size := m.Size
	if size <= 0 {
		size = defaultShingleSize
	}
	if len(toks) < size || len(sources) == 0 {
		return services.PlagiarismResult{Score: 100}, nil
	}

	// cases.Caser carries transform state and is not shared across goroutines.
	folder := cases.Fold()
	keys := shingles(folder, toks, size)
	copied := make([]bool, len(toks))
	var matches []services.PlagiarismMatch

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return services.PlagiarismResult{}, err
		}
		srcKeys := shingles(folder, tokenize([]rune(src.Text)), size)
		if len(srcKeys) == 0 {
			continue
		}
		known := make(map[string]struct{}, len(srcKeys))
		for _, k := range srcKeys {
			known[k] = struct{}{}
		}

		runStart := -1
		flush := func(end int) {
			if runStart < 0 {
				return
			}
			shared := end - runStart
			similarity := float64(shared) / float64(len(srcKeys))
			if similarity > 1 {
				similarity = 1
			}
			first, last := toks[runStart], toks[end-1+size-1]
			matches = append(matches, services.PlagiarismMatch{
				Text:       string(runes[first.start:last.end]),
				SourceURL:  src.URL,
				Similarity: round2(similarity),
			})
			runStart = -1
		}
		for i, k := range keys {
			if _, ok := known[k]; ok {
				for w := i; w < i+size; w++ {
					copied[w] = true
				}
				if runStart < 0 {
					runStart = i
				}
				continue
			}
			flush(i)
		}
		flush(len(keys))
	}

	n := 0
	for _, c := range copied {
		if c {
			n++
		}
	}
	return services.PlagiarismResult{
		Score:   clampScore(100 * (1 - float64(n)/float64(len(toks)))),
		Matches: matches,
	}, nil
}

func shingles(folder cases.Caser, toks []token, size int) []string {
	if len(toks) < size {
		return nil
	}
	words := make([]string, len(toks))
	for i, t := range toks {
		words[i] = folder.String(norm.NFC.String(t.text))
	}
	out := make([]string, 0, len(words)-size+1)
	for i := 0; i+size <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+size], " "))
	}
	return out
}
