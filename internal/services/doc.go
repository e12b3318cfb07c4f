// Package services defines the shared vocabulary every folio component uses
// to talk about failures, callers, and request scope.
//
// Key responsibilities:
//   - Sentinel error markers for the pipeline's error taxonomy, plus the Wrap
//     helper that attaches component and operation context without losing
//     errors.Is classification.
//   - PreconditionError, which names every unmet condition of a blocked
//     lifecycle transition.
//   - Collaborator contracts: identity (Authenticator), rendering (Renderer,
//     Publisher, Document, Artifact), research (MediaSearcher,
//     CitationSearcher), and analysis providers (PlagiarismChecker,
//     GrammarChecker, AccessibilityChecker).
//   - Context helpers that stamp book, export, and correlation identifiers for
//     logging and tracing.
package services
