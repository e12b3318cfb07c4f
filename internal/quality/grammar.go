package quality

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"folio/internal/services"
)

// Grammar issue types.
const (
	IssueSpelling    = "spelling"
	IssueGrammar     = "grammar"
	IssuePunctuation = "punctuation"
	IssueStyle       = "style"
)

const defaultMaxSentenceWords = 40

// RuleGrammar is a deterministic rule-based grammar checker. Offsets in the
// returned issues are rune positions into the checked text.
type RuleGrammar struct {
	MaxSentenceWords int
}

// NewRuleGrammar builds a checker that flags sentences longer than maxWords.
func NewRuleGrammar(maxWords int) *RuleGrammar {
	if maxWords <= 0 {
		maxWords = defaultMaxSentenceWords
	}
	return &RuleGrammar{MaxSentenceWords: maxWords}
}

type token struct {
	text string
	start, end int
}

// CheckGrammar implements services.GrammarChecker.
func (g *RuleGrammar) CheckGrammar(ctx context.Context, text string) (services.GrammarResult, error) {
	if err := ctx.Err(); err != nil {
		return services.GrammarResult{}, err
	}
	runes := []rune(text)
	toks := tokenize(runes)
	if len(toks) == 0 {
		return services.GrammarResult{Score: 100}, nil
	}

	var issues []services.GrammarIssue
	issues = append(issues, repeatedWords(toks)...)
	issues = append(issues, punctuationSpacing(runes)...)
	issues = append(issues, doubledPunctuation(runes)...)
	issues = append(issues, sentenceIssues(runes, g.maxWords())...)
	sortIssues(issues)

	per100 := float64(len(issues)) * 100 / float64(len(toks))
	return services.GrammarResult{
		Score:  clampScore(100 - 10*per100),
		Issues: issues,
	}, nil
}

func (g *RuleGrammar) maxWords() int {
	if g == nil || g.MaxSentenceWords <= 0 {
		return defaultMaxSentenceWords
	}
	return g.MaxSentenceWords
}

func tokenize(runes []rune) []token {
	var toks []token
	start := -1
	for i, r := range runes {
		inWord := unicode.IsLetter(r) || unicode.IsDigit(r) || (r == '\'' && start >= 0)
		switch {
		case inWord && start < 0:
			start = i
		case !inWord && start >= 0:
			toks = append(toks, token{text: string(runes[start:i]), start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		toks = append(toks, token{text: string(runes[start:]), start: start, end: len(runes)})
	}
	return toks
}

func repeatedWords(toks []token) []services.GrammarIssue {
	var issues []services.GrammarIssue
	for i := 1; i < len(toks); i++ {
		prev, cur := toks[i-1], toks[i]
		if !strings.EqualFold(prev.text, cur.text) || !unicode.IsLetter([]rune(cur.text)[0]) {
			continue
		}
		issues = append(issues, services.GrammarIssue{
			Type:       IssueGrammar,
			Text:       prev.text + " " + cur.text,
			Suggestion: prev.text,
			Position:   services.Span{Start: prev.start, End: cur.end},
		})
	}
	return issues
}

func isClausePunct(r rune) bool {
	switch r {
	case ',', '.', ';', ':', '!', '?':
		return true
	default:
		return false
	}
}

func punctuationSpacing(runes []rune) []services.GrammarIssue {
	var issues []services.GrammarIssue
	for i := 1; i < len(runes); i++ {
		if !isClausePunct(runes[i]) || runes[i-1] != ' ' {
			continue
		}
		start := i - 1
		for start > 0 && runes[start-1] == ' ' {
			start--
		}
		if start == 0 || runes[start-1] == '\n' {
			continue
		}
		// An ellipsis opening a phrase is not a spacing error.
		if runes[i] == '.' && i+1 < len(runes) && runes[i+1] == '.' {
			continue
		}
		issues = append(issues, services.GrammarIssue{
			Type:       IssuePunctuation,
			Text:       string(runes[start : i+1]),
			Suggestion: string(runes[i]),
			Position:   services.Span{Start: start, End: i + 1},
		})
	}
	return issues
}

func doubledPunctuation(runes []rune) []services.GrammarIssue {
	var issues []services.GrammarIssue
	for i := 0; i < len(runes); {
		r := runes[i]
		if !isClausePunct(r) {
			i++
			continue
		}
		j := i
		for j < len(runes) && runes[j] == r {
			j++
		}
		run := j - i
		if run > 1 && !(r == '.' && run == 3) {
			issues = append(issues, services.GrammarIssue{
				Type:       IssuePunctuation,
				Text:       string(runes[i:j]),
				Suggestion: string(r),
				Position:   services.Span{Start: i, End: j},
			})
		}
		i = j
	}
	return issues
}

// sentenceIssues walks paragraphs and sentences, flagging lowercase sentence
// starts, unterminated paragraphs and overlong sentences.
func sentenceIssues(runes []rune, maxWords int) []services.GrammarIssue {
	var issues []services.GrammarIssue
	for _, para := range paragraphSpans(runes) {
		sentStart := -1
		words := 0
		inWord := false
		paraWords := 0
		for i := para.Start; i < para.End; i++ {
			r := runes[i]
			if sentStart < 0 && !unicode.IsSpace(r) {
				sentStart = i
				if unicode.IsLower(r) {
					issues = append(issues, services.GrammarIssue{
						Type:       IssueGrammar,
						Text:       string(r),
						Suggestion: string(unicode.ToUpper(r)),
						Position:   services.Span{Start: i, End: i + 1},
					})
				}
			}
			letter := unicode.IsLetter(r) || unicode.IsDigit(r)
			if letter && !inWord {
				words++
				paraWords++
			}
			inWord = letter || (inWord && r == '\'')
			if isTerminal(r) && (i+1 == para.End || unicode.IsSpace(runes[i+1]) || isCloser(runes[i+1])) {
				if sentStart >= 0 && words > maxWords {
					issues = append(issues, overlong(runes, sentStart, i+1, words, maxWords))
				}
				sentStart = -1
				words = 0
			}
		}
		if sentStart >= 0 && words > maxWords {
			issues = append(issues, overlong(runes, sentStart, para.End, words, maxWords))
		}
		if paraWords >= 6 && !endsTerminated(runes[para.Start:para.End]) {
			issues = append(issues, services.GrammarIssue{
				Type:       IssuePunctuation,
				Text:       lastWord(runes[para.Start:para.End]),
				Suggestion: "end the paragraph with terminal punctuation",
				Position:   services.Span{Start: para.End - 1, End: para.End},
			})
		}
	}
	return issues
}

func overlong(runes []rune, start, end, words, maxWords int) services.GrammarIssue {
	return services.GrammarIssue{
		Type:       IssueStyle,
		Text:       string(runes[start:end]),
		Suggestion: fmt.Sprintf("split this %d-word sentence (limit %d)", words, maxWords),
		Position:   services.Span{Start: start, End: end},
	}
}

func paragraphSpans(runes []rune) []services.Span {
	var spans []services.Span
	start := -1
	for i := 0; i <= len(runes); i++ {
		breakHere := i == len(runes) || (runes[i] == '\n' && i+1 < len(runes) && runes[i+1] == '\n')
		if !breakHere {
			if start < 0 && !unicode.IsSpace(runes[i]) {
				start = i
			}
			continue
		}
		if start >= 0 {
			end := i
			for end > start && unicode.IsSpace(runes[end-1]) {
				end--
			}
			spans = append(spans, services.Span{Start: start, End: end})
			start = -1
		}
	}
	return spans
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	default:
		return false
	}
}

func endsTerminated(para []rune) bool {
	i := len(para) - 1
	for i >= 0 && isCloser(para[i]) {
		i--
	}
	return i >= 0 && (isTerminal(para[i]) || para[i] == ':' || para[i] == '…')
}

func lastWord(para []rune) string {
	fields := strings.Fields(string(para))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func sortIssues(issues []services.GrammarIssue) {
	slices.SortStableFunc(issues, func(a, b services.GrammarIssue) int {
		return cmp.Compare(a.Position.Start, b.Position.Start)
	})
}
