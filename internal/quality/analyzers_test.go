package quality_test

import (
	"context"
	"strings"
	"testing"

	"folio/internal/quality"
	"folio/internal/services"
)

func TestPlainTextStripsMarkupAndMarkers(t *testing.T) {
	got := quality.PlainText(`<p>Tides turn twice daily.[cite:abc-123]</p><p>[media:ph-1]Gulls follow.</p>`)
	if strings.Contains(got, "[cite:") || strings.Contains(got, "[media:") {
		t.Fatalf("markers survived: %q", got)
	}
	if strings.Contains(got, "<p>") {
		t.Fatalf("markup survived: %q", got)
	}
	if !strings.Contains(got, "Tides turn twice daily.") || !strings.Contains(got, "Gulls follow.") {
		t.Fatalf("text lost: %q", got)
	}
}

func TestReadability(t *testing.T) {
	if _, ok := quality.Readability(""); ok {
		t.Fatal("expected empty text to be unavailable")
	}

	m, ok := quality.Readability("The cat sat. The dog ran.")
	if !ok {
		t.Fatal("expected metrics")
	}
	if m.AvgSentenceLength != 3 {
		t.Fatalf("avg sentence length = %v, want 3", m.AvgSentenceLength)
	}
	if m.AvgWordLength != 3 {
		t.Fatalf("avg word length = %v, want 3", m.AvgWordLength)
	}
	if score := quality.ReadabilityScore(m); score != 100 {
		t.Fatalf("score = %v, want clamp to 100", score)
	}

	dense, _ := quality.Readability("Institutional considerations regarding international interoperability necessitate extraordinarily comprehensive documentation.")
	if dense.FleschReadingEase >= m.FleschReadingEase {
		t.Fatalf("dense text should read harder: %v >= %v", dense.FleschReadingEase, m.FleschReadingEase)
	}
	if dense.SMOGIndex <= m.SMOGIndex {
		t.Fatalf("dense SMOG %v should exceed %v", dense.SMOGIndex, m.SMOGIndex)
	}
}

func TestRuleGrammarFindings(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantType string
		wantText string
	}{
		{"repeated word", "The the cat sat.", quality.IssueGrammar, "The the"},
		{"lowercase start", "the cat sat on the mat.", quality.IssueGrammar, "t"},
		{"space before comma", "Hello , world.", quality.IssuePunctuation, " ,"},
		{"doubled punctuation", "Wait!! Really.", quality.IssuePunctuation, "!!"},
		{"unterminated paragraph", "This paragraph has seven words and no ending", quality.IssuePunctuation, "ending"},
		{"overlong sentence", "One two three four five six seven.", quality.IssueStyle, "One two three four five six seven."},
	}
	checker := quality.NewRuleGrammar(5)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := checker.CheckGrammar(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("CheckGrammar: %v", err)
			}
			found := false
			for _, issue := range res.Issues {
				if issue.Type == tt.wantType && issue.Text == tt.wantText {
					found = true
					if issue.Position.End <= issue.Position.Start {
						t.Fatalf("empty span %+v", issue.Position)
					}
				}
			}
			if !found {
				t.Fatalf("missing %s issue %q in %+v", tt.wantType, tt.wantText, res.Issues)
			}
			if res.Score >= 100 {
				t.Fatalf("score = %v, want below 100", res.Score)
			}
		})
	}
}

func TestRuleGrammarCleanText(t *testing.T) {
	res, err := quality.NewRuleGrammar(40).CheckGrammar(context.Background(), "The cat sat on the mat. It was warm... Quiet, too.")
	if err != nil {
		t.Fatalf("CheckGrammar: %v", err)
	}
	if len(res.Issues) != 0 || res.Score != 100 {
		t.Fatalf("clean text flagged: score %v issues %+v", res.Score, res.Issues)
	}
}

func TestRuleGrammarRuneOffsets(t *testing.T) {
	res, err := quality.NewRuleGrammar(40).CheckGrammar(context.Background(), "Café café is open.")
	if err != nil {
		t.Fatalf("CheckGrammar: %v", err)
	}
	if len(res.Issues) != 1 {
		t.Fatalf("issues = %+v", res.Issues)
	}
	if got := res.Issues[0].Position; got.Start != 0 || got.End != 9 {
		t.Fatalf("span = %+v, want rune offsets 0..9", got)
	}
}

func TestShingleMatcher(t *testing.T) {
	m := quality.NewShingleMatcher(3)
	sources := []services.SourceExcerpt{{URL: "https://example.org/fox", Text: "THE QUICK BROWN FOX JUMPS OVER THE LAZY DOG"}}

	res, err := m.CheckPlagiarism(context.Background(), "Yesterday the quick brown fox jumps again.", sources)
	if err != nil {
		t.Fatalf("CheckPlagiarism: %v", err)
	}
	if res.Score != 28.57 {
		t.Fatalf("score = %v, want 28.57", res.Score)
	}
	if len(res.Matches) != 1 {
		t.Fatalf("matches = %+v", res.Matches)
	}
	match := res.Matches[0]
	if match.Text != "the quick brown fox jumps" || match.SourceURL != "https://example.org/fox" {
		t.Fatalf("match = %+v", match)
	}
	if match.Similarity != 0.43 {
		t.Fatalf("similarity = %v, want 0.43", match.Similarity)
	}

	original, err := m.CheckPlagiarism(context.Background(), "Harbour seals rest on warm granite ledges.", sources)
	if err != nil {
		t.Fatalf("CheckPlagiarism: %v", err)
	}
	if original.Score != 100 || len(original.Matches) != 0 {
		t.Fatalf("original text scored %+v", original)
	}

	none, err := m.CheckPlagiarism(context.Background(), "Anything at all here.", nil)
	if err != nil {
		t.Fatalf("CheckPlagiarism: %v", err)
	}
	if none.Score != 100 {
		t.Fatalf("no sources score = %v", none.Score)
	}
}

func TestMarkupAccessibility(t *testing.T) {
	input := services.AccessibilityInput{
		Fragments: []services.MarkupFragment{{
			Location: "chapter 1",
			HTML: `<h1>Tides</h1><h3>Skipped</h3><img src="a.png">` +
				`<table><tr><td>x</td></tr></table><p style="color: #777777">faint</p>`,
		}},
		Assets: []services.AssetText{{ID: "asset-1", AltText: ""}, {ID: "asset-2", AltText: "Gull in flight"}},
	}
	res, err := quality.MarkupAccessibility{}.CheckAccessibility(context.Background(), input)
	if err != nil {
		t.Fatalf("CheckAccessibility: %v", err)
	}
	counts := map[string]int{}
	for _, issue := range res.Issues {
		counts[issue.Type]++
	}
	want := map[string]int{
		quality.IssueAltText:          2,
		quality.IssueHeadingStructure: 1,
		quality.IssueTableHeaders:     1,
		quality.IssueColorContrast:    1,
	}
	for kind, n := range want {
		if counts[kind] != n {
			t.Fatalf("%s issues = %d, want %d (%+v)", kind, counts[kind], n, res.Issues)
		}
	}
	// 7 checks, 5 issues
	if res.Score != 28.57 {
		t.Fatalf("score = %v, want 28.57", res.Score)
	}
}

func TestMarkupAccessibilityCleanMarkup(t *testing.T) {
	input := services.AccessibilityInput{Fragments: []services.MarkupFragment{{
		Location: "chapter 1",
		HTML: `<h1>Tides</h1><h2>Neap</h2><img src="a.png" alt="Chart of tides">` +
			`<table><tr><th>Hour</th></tr></table><p style="color:#767676;background-color:#fff">ok</p>`,
	}}}
	res, err := quality.MarkupAccessibility{}.CheckAccessibility(context.Background(), input)
	if err != nil {
		t.Fatalf("CheckAccessibility: %v", err)
	}
	if res.Score != 100 || len(res.Issues) != 0 {
		t.Fatalf("clean markup flagged: %+v", res)
	}

	empty, err := quality.MarkupAccessibility{}.CheckAccessibility(context.Background(), services.AccessibilityInput{})
	if err != nil {
		t.Fatalf("CheckAccessibility: %v", err)
	}
	if empty.Score != 100 {
		t.Fatalf("nothing checked score = %v", empty.Score)
	}
}
