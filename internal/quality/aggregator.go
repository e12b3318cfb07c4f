package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"folio/internal/config"
	"folio/internal/content"
	"folio/internal/lifecycle"
	"folio/internal/logging"
	"folio/internal/services"
	"folio/internal/store"
)

const component = "quality"

// excerptKeys are the citation raw_data fields treated as source text, in
// order of preference.
var excerptKeys = []string{"excerpt", "abstract", "snippet", "content", "text", "description"}

// Providers groups the analysis collaborators. A nil provider leaves its
// sub-score unavailable.
type Providers struct {
	Plagiarism    services.PlagiarismChecker
	Grammar       services.GrammarChecker
	Accessibility services.AccessibilityChecker
}

// LocalProviders returns the in-process analyzers tuned by cfg.
func LocalProviders(cfg config.Quality) Providers {
	return Providers{
		Plagiarism:    NewShingleMatcher(cfg.ShingleSize),
		Grammar:       NewRuleGrammar(cfg.MaxSentenceWords),
		Accessibility: MarkupAccessibility{},
	}
}

// Aggregator produces and persists quality reports.
type Aggregator struct {
	store     *store.Store
	providers Providers
	weights   config.QualityWeights
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures optional Aggregator behavior.
type Option func(*Aggregator)

// WithClock overrides the time source used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator constructs an Aggregator.
func NewAggregator(st *store.Store, providers Providers, cfg config.Quality, logger *slog.Logger, opts ...Option) *Aggregator {
	timeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	a := &Aggregator{
		store:     st,
		providers: providers,
		weights:   cfg.Weights,
		timeout:   timeout,
		logger:    logging.NewComponentLogger(logger, component),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// snapshot is the book content captured for one assessment.
type snapshot struct {
	text      string
	fragments []services.MarkupFragment
	assets    []services.AssetText
	sources   []services.SourceExcerpt
	takenAt   time.Time
}

// Assess evaluates the caller's book and persists a fresh report. Provider
// failures produce a partial report rather than an error.
func (a *Aggregator) Assess(ctx context.Context, caller services.Identity, bookID string) (*content.QualityReport, error) {
	snap, err := a.capture(ctx, caller, bookID)
	if err != nil {
		return nil, err
	}
	ctx = services.WithBookID(ctx, bookID)
	logger := logging.WithContext(ctx, a.logger)

	report := content.QualityReport{
		ID:        uuid.NewString(),
		BookID:    bookID,
		CreatedAt: snap.takenAt,
	}

	var (
		wg        sync.WaitGroup
		plag      services.PlagiarismResult
		gram      services.GrammarResult
		access    services.AccessibilityResult
		plagErr   error
		gramErr   error
		accessErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		plag, plagErr = a.runPlagiarism(ctx, snap)
	}()
	go func() {
		defer wg.Done()
		gram, gramErr = a.runGrammar(ctx, snap)
	}()
	go func() {
		defer wg.Done()
		access, accessErr = a.runAccessibility(ctx, snap)
	}()

	if metrics, ok := Readability(snap.text); ok {
		score := ReadabilityScore(metrics)
		report.Readability = content.ReadabilityReport{Available: true, Score: &score, Metrics: &metrics}
	} else {
		report.Unavailable = append(report.Unavailable, content.ScoreReadability)
	}
	wg.Wait()

	if plagErr != nil {
		a.providerFailed(logger, content.ScorePlagiarism, plagErr)
		report.Unavailable = append(report.Unavailable, content.ScorePlagiarism)
	} else {
		score := clampScore(plag.Score)
		report.Plagiarism = content.PlagiarismReport{Available: true, Score: &score, Matches: convertMatches(plag.Matches)}
	}
	if gramErr != nil {
		a.providerFailed(logger, content.ScoreGrammar, gramErr)
		report.Unavailable = append(report.Unavailable, content.ScoreGrammar)
	} else {
		score := clampScore(gram.Score)
		report.Grammar = content.GrammarReport{Available: true, Score: &score, Issues: convertGrammar(gram.Issues)}
	}
	if accessErr != nil {
		a.providerFailed(logger, content.ScoreAccessibility, accessErr)
		report.Unavailable = append(report.Unavailable, content.ScoreAccessibility)
	} else {
		score := clampScore(access.Score)
		report.Accessibility = content.AccessibilityReport{Available: true, Score: &score, Issues: convertAccessibility(access.Issues)}
	}

	report.Partial = len(report.Unavailable) > 0
	report.OverallScore = OverallScore(report, a.weights)

	if err := a.store.InsertQualityReport(ctx, report); err != nil {
		return nil, fmt.Errorf("persist quality report: %w", err)
	}
	logger.Info(
		"quality report generated",
		logging.String(logging.FieldEventType, "quality_report_generated"),
		logging.String("report_id", report.ID),
		logging.Float64("overall_score", report.OverallScore),
		logging.Bool("partial", report.Partial),
		logging.String("unavailable", strings.Join(report.Unavailable, ",")),
	)
	return &report, nil
}

// LatestReport returns the newest report for the caller's book, or nil.
func (a *Aggregator) LatestReport(ctx context.Context, caller services.Identity, bookID string) (*content.QualityReport, error) {
	if _, err := lifecycle.OwnedBook(ctx, a.store, caller, bookID, "latest quality report"); err != nil {
		return nil, err
	}
	return a.store.LatestQualityReport(ctx, bookID)
}

// ListReports returns every report for the caller's book, newest first.
func (a *Aggregator) ListReports(ctx context.Context, caller services.Identity, bookID string) ([]content.QualityReport, error) {
	if _, err := lifecycle.OwnedBook(ctx, a.store, caller, bookID, "list quality reports"); err != nil {
		return nil, err
	}
	return a.store.ListQualityReports(ctx, bookID)
}

// OverallScore is the weighted mean of the available sub-scores, bounded to
// [0,100] and rounded to two decimals. It is 0 when nothing is available.
func OverallScore(report content.QualityReport, weights config.QualityWeights) float64 {
	var sum, total float64
	add := func(score *float64, available bool, weight float64) {
		if !available || score == nil || weight <= 0 {
			return
		}
		sum += *score * weight
		total += weight
	}
	add(report.Plagiarism.Score, report.Plagiarism.Available, weights.Plagiarism)
	add(report.Grammar.Score, report.Grammar.Available, weights.Grammar)
	add(report.Readability.Score, report.Readability.Available, weights.Readability)
	add(report.Accessibility.Score, report.Accessibility.Available, weights.Accessibility)
	if total == 0 {
		return 0
	}
	return clampScore(sum / total)
}

func (a *Aggregator) capture(ctx context.Context, caller services.Identity, bookID string) (snapshot, error) {
	var snap snapshot
	err := a.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := lifecycle.OwnedBook(ctx, tx, caller, bookID, "assess quality"); err != nil {
			return err
		}
		chapters, err := tx.ListChapters(ctx, bookID)
		if err != nil {
			return err
		}
		sections, err := tx.ListBookSections(ctx, bookID)
		if err != nil {
			return err
		}
		citations, err := tx.ListCitations(ctx, bookID)
		if err != nil {
			return err
		}
		assets, err := tx.ListMediaAssets(ctx, bookID)
		if err != nil {
			return err
		}
		snap.takenAt = a.now().UTC()

		var parts []string
		for i, ch := range chapters {
			location := fmt.Sprintf("chapter %d %q", i+1, ch.Title)
			if text := PlainText(ch.Content); text != "" {
				parts = append(parts, text)
			}
			snap.fragments = append(snap.fragments, services.MarkupFragment{Location: location, HTML: ch.Content})
			for j, sec := range sections[ch.ID] {
				if text := PlainText(sec.Content); text != "" {
					parts = append(parts, text)
				}
				snap.fragments = append(snap.fragments, services.MarkupFragment{
					Location: fmt.Sprintf("%s section %d %q", location, j+1, sec.Title),
					HTML:     sec.Content,
				})
			}
		}
		snap.text = strings.Join(parts, "\n\n")

		for _, asset := range assets {
			snap.assets = append(snap.assets, services.AssetText{ID: asset.ID, AltText: asset.AltText})
		}
		for _, c := range citations {
			if excerpt := sourceExcerpt(c.RawData); excerpt != "" {
				url := c.URL
				if url == "" {
					url = c.Title
				}
				snap.sources = append(snap.sources, services.SourceExcerpt{URL: url, Text: excerpt})
			}
		}
		return nil
	})
	return snap, err
}

// sourceExcerpt pulls comparable text out of a citation's raw provider payload.
func sourceExcerpt(raw json.RawMessage) string {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	for _, key := range excerptKeys {
		if s, ok := fields[key].(string); ok && strings.TrimSpace(s) != "" {
			return PlainText(s)
		}
	}
	return ""
}

func (a *Aggregator) runPlagiarism(ctx context.Context, snap snapshot) (services.PlagiarismResult, error) {
	if a.providers.Plagiarism == nil {
		return services.PlagiarismResult{}, services.ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.providers.Plagiarism.CheckPlagiarism(ctx, snap.text, snap.sources)
}

func (a *Aggregator) runGrammar(ctx context.Context, snap snapshot) (services.GrammarResult, error) {
	if a.providers.Grammar == nil {
		return services.GrammarResult{}, services.ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.providers.Grammar.CheckGrammar(ctx, snap.text)
}

func (a *Aggregator) runAccessibility(ctx context.Context, snap snapshot) (services.AccessibilityResult, error) {
	if a.providers.Accessibility == nil {
		return services.AccessibilityResult{}, services.ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.providers.Accessibility.CheckAccessibility(ctx, services.AccessibilityInput{
		Fragments: snap.fragments,
		Assets:    snap.assets,
	})
}

func (a *Aggregator) providerFailed(logger *slog.Logger, name string, err error) {
	logger.Warn(
		"quality provider unavailable",
		logging.String(logging.FieldEventType, "quality_provider_unavailable"),
		logging.String("provider", name),
		logging.Error(err),
		logging.String(logging.FieldImpact, "report marked partial"),
		logging.String(logging.FieldErrorHint, "rerun the quality check once the provider recovers"),
	)
}

func convertMatches(in []services.PlagiarismMatch) []content.PlagiarismMatch {
	out := make([]content.PlagiarismMatch, 0, len(in))
	for _, m := range in {
		out = append(out, content.PlagiarismMatch{Text: m.Text, SourceURL: m.SourceURL, Similarity: m.Similarity})
	}
	return out
}

func convertGrammar(in []services.GrammarIssue) []content.GrammarIssue {
	out := make([]content.GrammarIssue, 0, len(in))
	for _, i := range in {
		out = append(out, content.GrammarIssue{
			Type:       i.Type,
			Text:       i.Text,
			Suggestion: i.Suggestion,
			Position:   content.TextSpan{Start: i.Position.Start, End: i.Position.End},
		})
	}
	return out
}

func convertAccessibility(in []services.AccessibilityIssue) []content.AccessibilityIssue {
	out := make([]content.AccessibilityIssue, 0, len(in))
	for _, i := range in {
		out = append(out, content.AccessibilityIssue{Type: i.Type, Description: i.Description, Location: i.Location})
	}
	return out
}
