// Package quality assesses a book's chapters and persists QualityReports.
//
// The Aggregator extracts plain text from chapter markup, runs the
// plagiarism, grammar and accessibility providers concurrently and computes
// readability locally. A provider that fails or times out leaves its
// sub-score unavailable and marks the report partial; the overall score is
// the weighted mean of the sub-scores that are available.
//
// RuleGrammar, ShingleMatcher and MarkupAccessibility are deterministic
// local providers used when no remote service is configured.
package quality
